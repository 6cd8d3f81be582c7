package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// subscriptionBuffer bounds the payloads queued for a slow reader. Further
// messages are dropped until the reader catches up.
const subscriptionBuffer = 64

// NATSPublisher sends each event as JSON on the subject named by its topic.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("dropin-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", topic, err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close sends anything still buffered, then disconnects. Later Publish
// calls fail.
func (p *NATSPublisher) Close() error {
	err := p.conn.Flush()
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flushing events: %w", err)
	}
	return nil
}

// NATSSubscriber reads raw event payloads for the watch command. The
// connection retries forever; pass handlers in opts to observe outages.
type NATSSubscriber struct {
	conn *nats.Conn
}

func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	all := append([]nats.Option{
		nats.Name("dropin-subscriber"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// natsSubscription couples one NATS subscription with the channel it feeds.
// out is closed exactly once, under mu, so deliver never sends on a closed
// channel.
type natsSubscription struct {
	sub  *nats.Subscription
	out  chan []byte
	mu   sync.Mutex
	done bool
}

func (s *natsSubscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	select {
	case s.out <- msg.Data:
	default:
	}
}

func (s *natsSubscription) stop() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.out)
	}
}

// Subscribe follows topic, which may use NATS wildcards such as TopicAll.
// The channel is closed by the returned cancel func, which is safe to call
// more than once.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	ns := &natsSubscription{out: make(chan []byte, subscriptionBuffer)}

	sub, err := s.conn.Subscribe(topic, ns.deliver)
	if err != nil {
		ns.stop()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	ns.sub = sub

	// Round-trip so the server knows the interest before any publish that
	// follows this call.
	if err := s.conn.Flush(); err != nil {
		ns.stop()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return ns.out, ns.stop, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
