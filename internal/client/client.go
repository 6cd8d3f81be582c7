// Package client provides a Go client for the drop-in runs REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/dropin/internal/geocode"
	"github.com/alfredjeanlab/dropin/internal/model"
)

// RunsClient is the interface the CLI commands use to talk to the server.
// It is implemented by HTTPClient.
type RunsClient interface {
	ListRuns(ctx context.Context) ([]*model.Run, error)
	GetRun(ctx context.Context, id, token string) (*model.Run, error)
	CreateRun(ctx context.Context, fields map[string]any) (*model.Run, error)
	UpdateRun(ctx context.Context, id, token string, fields map[string]any) (*model.Run, error)

	Geocode(ctx context.Context, q string) ([]geocode.Result, error)

	// StreamEvents calls fn for each lifecycle event until ctx is done, fn
	// returns an error or the server closes the stream.
	StreamEvents(ctx context.Context, topics []string, fn func(Event) error) error

	Health(ctx context.Context) (string, error)
	Close() error
}

// Event is one lifecycle event from the server's event stream.
type Event struct {
	ID    string
	Topic string
	Data  []byte
}

// Compile-time check.
var _ RunsClient = (*HTTPClient)(nil)
