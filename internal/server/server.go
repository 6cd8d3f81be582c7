package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/dropin/internal/events"
	"github.com/alfredjeanlab/dropin/internal/geocode"
	"github.com/alfredjeanlab/dropin/internal/idgen"
	"github.com/alfredjeanlab/dropin/internal/store"
)

// RunsServer is the run lifecycle engine. It holds no mutable state of its
// own; every read goes to the store and every write is a single conditional
// store call.
type RunsServer struct {
	store     store.Store
	publisher events.Publisher
	geocoder  *geocode.Client
	limiter   *limiterPool
	hub       *eventHub
	logger    *slog.Logger

	// Generators and clock, replaceable in tests.
	newID    func() (string, error)
	newToken func() (string, error)
	now      func() time.Time
}

// Option configures a RunsServer.
type Option func(*RunsServer)

// WithGeocoder enables GET /geocode.
func WithGeocoder(g *geocode.Client) Option {
	return func(s *RunsServer) { s.geocoder = g }
}

// WithWriteLimit rate-limits POST and PUT requests per client address.
func WithWriteLimit(cfg RateConfig) Option {
	return func(s *RunsServer) { s.limiter = newLimiterPool(cfg) }
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *RunsServer) { s.logger = l }
}

// NewRunsServer returns a new RunsServer backed by the given store and publisher.
func NewRunsServer(s store.Store, p events.Publisher, opts ...Option) *RunsServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	srv := &RunsServer{
		store:     s,
		publisher: p,
		logger:    slog.Default(),
		hub:       newEventHub(),
		newID:     idgen.Generate,
		newToken:  idgen.Token,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(srv)
	}
	return srv
}

// publish emits an event to the bus and to stream clients. Failures are
// logged and never reach the caller.
func (s *RunsServer) publish(ctx context.Context, topic, runID string, event any) {
	s.broadcastEvent(topic, event)
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "run_id", runID, "error", err)
		eventPublishFailures.WithLabelValues(topic).Inc()
	}
}

// Ping reports whether the store is reachable.
func (s *RunsServer) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
