// Package transport implements topic based publish/subscribe between the physics world and
// its sensors.
package transport

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/imusim/logging"
)

// A Handler receives the raw payload published on a topic.
type Handler func(ctx context.Context, topic string, payload []byte) error

// A Bus moves opaque payloads between publishers and subscribers of a topic.
// All methods must be safe for concurrent use.
type Bus interface {
	// Publish delivers payload to every current subscriber of topic. Errors from handlers
	// are combined and returned.
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, handler Handler) (Subscription, error)
	Close(ctx context.Context) error
}

// A Subscription is a registered handler on a topic.
type Subscription interface {
	ID() string
	Topic() string
	// Unsubscribe stops delivery. Multiple calls are safe.
	Unsubscribe() error
}

// ErrBusClosed is returned when using a bus after Close.
var ErrBusClosed = errors.New("bus is closed")

type localSubscription struct {
	id      string
	topic   string
	handler Handler
	bus     *LocalBus
}

func (s *localSubscription) ID() string    { return s.id }
func (s *localSubscription) Topic() string { return s.topic }

func (s *localSubscription) Unsubscribe() error {
	s.bus.remove(s)
	return nil
}

// LocalBus is an in-process Bus. Publish calls handlers synchronously, in subscription order,
// in the caller's goroutine; no lock is held while a handler runs so handlers may publish or
// subscribe themselves.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string][]*localSubscription
	closed   bool
	logger   logging.Logger
}

// NewLocalBus returns an empty in-process bus.
func NewLocalBus(logger logging.Logger) *LocalBus {
	return &LocalBus{
		handlers: make(map[string][]*localSubscription),
		logger:   logger,
	}
}

// Publish implements Bus.
func (b *LocalBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := append([]*localSubscription(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	var errs error
	for _, sub := range subs {
		if err := sub.handler(ctx, topic, payload); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "subscriber %s on %q", sub.id, topic))
		}
	}
	return errs
}

// Subscribe implements Bus.
func (b *LocalBus) Subscribe(topic string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	sub := &localSubscription{id: uuid.NewString(), topic: topic, handler: handler, bus: b}
	b.handlers[topic] = append(b.handlers[topic], sub)
	b.logger.Debugw("subscribed", "topic", topic, "id", sub.id)
	return sub, nil
}

// Topics returns the sorted list of topics with at least one subscriber.
func (b *LocalBus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	topics := lo.Keys(lo.PickBy(b.handlers, func(_ string, subs []*localSubscription) bool {
		return len(subs) > 0
	}))
	sort.Strings(topics)
	return topics
}

// SubscriberCount returns the number of subscribers on topic.
func (b *LocalBus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Close drops every subscription. Publishing afterwards returns ErrBusClosed.
func (b *LocalBus) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]*localSubscription)
	return nil
}

func (b *LocalBus) remove(sub *localSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := lo.Reject(b.handlers[sub.topic], func(s *localSubscription, _ int) bool {
		return s.id == sub.id
	})
	if len(remaining) == 0 {
		delete(b.handlers, sub.topic)
		return
	}
	b.handlers[sub.topic] = remaining
}
