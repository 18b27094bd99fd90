// Package mqtt implements transport.Bus on top of an MQTT broker.
package mqtt

import (
	"context"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/transport"
)

const defaultConnectTimeout = 5 * time.Second

// Config describes how to reach the broker.
type Config struct {
	Broker         string        `json:"broker"`
	ClientID       string        `json:"client_id"`
	QoS            byte          `json:"qos,omitempty"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Broker == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "broker")
	}
	if conf.ClientID == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "client_id")
	}
	if conf.QoS > 2 {
		return goutils.NewConfigValidationError(path, errors.Errorf("qos must be 0, 1 or 2, got %d", conf.QoS))
	}
	return nil
}

// Bus relays topics through the broker. Every broker topic is subscribed at most once and fanned
// out to local handlers.
type Bus struct {
	client paho.Client
	qos    byte
	logger logging.Logger
	// timeout bounds every broker round trip made while holding mu.
	timeout time.Duration

	local *transport.LocalBus

	mu     sync.Mutex
	refs   map[string]int
	closed bool
}

// NewBus connects to the broker described by conf.
func NewBus(ctx context.Context, conf Config, logger logging.Logger) (*Bus, error) {
	if err := conf.Validate("transport"); err != nil {
		return nil, err
	}
	timeout := conf.ConnectTimeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}
	opts := paho.NewClientOptions().
		AddBroker(conf.Broker).
		SetClientID(conf.ClientID).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true).
		SetOrderMatters(true)
	client := paho.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", conf.Broker)
	}
	logger.Infow("connected to broker", "broker", conf.Broker, "client_id", conf.ClientID)
	b := newBus(client, conf.QoS, logger)
	b.timeout = timeout
	return b, nil
}

func newBus(client paho.Client, qos byte, logger logging.Logger) *Bus {
	return &Bus{
		client:  client,
		qos:     qos,
		logger:  logger,
		timeout: defaultConnectTimeout,
		local:   transport.NewLocalBus(logger.Sublogger("local")),
		refs:    make(map[string]int),
	}
}

// Publish implements transport.Bus.
func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return transport.ErrBusClosed
	}
	return errors.Wrapf(wait(ctx, b.client.Publish(BrokerTopic(topic), b.qos, false, payload)), "publishing %q", topic)
}

// Subscribe implements transport.Bus.
func (b *Bus) Subscribe(topic string, handler transport.Handler) (transport.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, transport.ErrBusClosed
	}
	sub, err := b.local.Subscribe(topic, handler)
	if err != nil {
		return nil, err
	}
	if b.refs[topic] == 0 {
		token := b.client.Subscribe(BrokerTopic(topic), b.qos, func(_ paho.Client, msg paho.Message) {
			if err := b.local.Publish(context.Background(), topic, msg.Payload()); err != nil {
				b.logger.Warnw("handler failed", "topic", topic, "error", err)
			}
		})
		if err := b.waitBroker(token); err != nil {
			goutils.UncheckedError(sub.Unsubscribe())
			return nil, errors.Wrapf(err, "subscribing to %q", topic)
		}
	}
	b.refs[topic]++
	return &subscription{Subscription: sub, bus: b}, nil
}

// Close disconnects from the broker.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.refs = make(map[string]int)
	b.mu.Unlock()

	b.client.Disconnect(250)
	return b.local.Close(ctx)
}

func (b *Bus) release(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.refs[topic] == 0 {
		return nil
	}
	b.refs[topic]--
	if b.refs[topic] > 0 {
		return nil
	}
	delete(b.refs, topic)
	return errors.Wrapf(b.waitBroker(b.client.Unsubscribe(BrokerTopic(topic))), "unsubscribing from %q", topic)
}

func (b *Bus) waitBroker(token paho.Token) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return wait(ctx, token)
}

type subscription struct {
	transport.Subscription
	bus  *Bus
	once sync.Once
}

func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		goutils.UncheckedError(s.Subscription.Unsubscribe())
		err = s.bus.release(s.Topic())
	})
	return err
}

// BrokerTopic converts a bus topic into an MQTT topic. MQTT discourages a leading "/" since it
// creates an empty first level.
func BrokerTopic(topic string) string {
	return strings.TrimPrefix(topic, "/")
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}
