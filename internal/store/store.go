package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/dropin/internal/model"
)

// ErrConditionFailed is returned when a conditional write's predicate does
// not hold: the key already exists on put, or no longer exists on update.
var ErrConditionFailed = errors.New("store: condition failed")

// Store defines the persistence interface for runs. Each call is a single
// round trip to the backend; concurrency control is left to its conditional
// writes.
type Store interface {
	// GetRun returns the run stored under id, or nil, nil when there is none.
	GetRun(ctx context.Context, id string) (*model.Run, error)

	// PutRunIfAbsent writes a new run, with its active-index attributes when
	// run.IsActive, provided no item exists under its key.
	PutRunIfAbsent(ctx context.Context, run *model.Run) error

	// UpdateRunIfExists writes the attributes named by m from run, removes
	// the cleared ones and applies m.Index, all in one atomic write guarded
	// by the key still existing. It returns the stored result.
	UpdateRunIfExists(ctx context.Context, run *model.Run, m model.Mutation) (*model.Run, error)

	// QueryActiveRuns returns every run in the active index, ordered by its
	// day sort key.
	QueryActiveRuns(ctx context.Context) ([]*model.Run, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
