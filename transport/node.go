package transport

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/imusim/logging"
)

const (
	// DefaultTopicPrefix is the root of every expanded "~" topic.
	DefaultTopicPrefix = "/gazebo"
	// scopeDelimiter is the entity name separator, which is not allowed in topics.
	scopeDelimiter = "::"
)

// NormalizeTopic replaces entity scope delimiters ("::") with topic separators ("/").
func NormalizeTopic(topic string) string {
	return strings.ReplaceAll(topic, scopeDelimiter, "/")
}

// A Node is a namespaced handle onto a Bus. Topics starting with "~" are relative to the
// node namespace, "/gazebo/<namespace>".
type Node struct {
	bus       Bus
	namespace string
	logger    logging.Logger

	mu   sync.Mutex
	subs []Subscription
}

// NewNode returns a node scoped to namespace, usually the world name.
func NewNode(bus Bus, namespace string, logger logging.Logger) *Node {
	return &Node{bus: bus, namespace: namespace, logger: logger}
}

// Namespace returns the node namespace.
func (n *Node) Namespace() string {
	return n.namespace
}

// ResolveTopic expands "~" and normalizes scope delimiters.
func (n *Node) ResolveTopic(topic string) string {
	topic = NormalizeTopic(topic)
	if strings.HasPrefix(topic, "~") {
		topic = DefaultTopicPrefix + "/" + n.namespace + strings.TrimPrefix(topic, "~")
	}
	return topic
}

// Advertise returns a publisher on topic.
func (n *Node) Advertise(topic string) *Publisher {
	return &Publisher{node: n, topic: n.ResolveTopic(topic)}
}

// Close removes every subscription made through this node.
func (n *Node) Close() error {
	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	var errs error
	for _, sub := range subs {
		errs = multierr.Append(errs, sub.Unsubscribe())
	}
	return errs
}

func (n *Node) track(sub Subscription) {
	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
}

// Subscribe decodes every message published on topic into a T and passes it to handler.
// Messages that fail to decode are reported to the publisher as errors.
func Subscribe[T any](n *Node, topic string, handler func(ctx context.Context, msg *T)) (Subscription, error) {
	resolved := n.ResolveTopic(topic)
	sub, err := n.bus.Subscribe(resolved, func(ctx context.Context, topic string, payload []byte) error {
		var msg T
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.Wrapf(err, "decoding %T from %q", msg, topic)
		}
		handler(ctx, &msg)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "subscribing to %q", resolved)
	}
	n.track(sub)
	return sub, nil
}

// A Publisher sends JSON encoded messages on a single topic.
type Publisher struct {
	node  *Node
	topic string
}

// Topic returns the fully resolved topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish encodes msg and sends it.
func (p *Publisher) Publish(ctx context.Context, msg interface{}) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "encoding %T for %q", msg, p.topic)
	}
	return p.node.bus.Publish(ctx, p.topic, payload)
}
