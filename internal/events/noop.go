package events

import "context"

// NoopPublisher is a Publisher that drops every event (used when NATS is not configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(_ context.Context, _ string, _ any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
