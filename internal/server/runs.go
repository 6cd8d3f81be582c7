package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/dropin/internal/events"
	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/store"
)

// CreateRun validates f against the create allow-list, stores a new active
// run under a fresh id and token, and returns it with its edit token. This
// is the only call that ever returns the token.
func (s *RunsServer) CreateRun(ctx context.Context, f model.Fields) (*model.Run, error) {
	patch, err := model.DecodeCreate(f)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ID: %w", err)
	}
	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate edit token: %w", err)
	}

	run := model.NewRun(id, token, patch, s.now())
	if err := s.store.PutRunIfAbsent(ctx, run); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	runsWritten.WithLabelValues("create").Inc()
	s.publish(ctx, events.TopicRunCreated, run.ID, events.RunCreated{Run: run.Redacted()})
	return run, nil
}

// GetRun returns the run stored under id without its edit token. An
// inactive run is returned only when token matches its edit token;
// otherwise it is reported exactly like a missing one.
func (s *RunsServer) GetRun(ctx context.Context, id, token string) (*model.Run, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, ErrNotFound
	}
	if !run.IsActive && !tokenMatches(run.EditToken, token) {
		return nil, ErrNotFound
	}
	return run.Redacted(), nil
}

// ListRuns returns every active run, redacted, in index order.
func (s *RunsServer) ListRuns(ctx context.Context) ([]*model.Run, error) {
	runs, err := s.store.QueryActiveRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]*model.Run, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Redacted())
	}
	return out, nil
}

// UpdateRun applies a partial update to the run stored under id. The token
// is checked before the body is looked at. The whole update, index
// attributes included, is one conditional write.
func (s *RunsServer) UpdateRun(ctx context.Context, id, token string, f model.Fields) (*model.Run, error) {
	existing, err := s.authorize(ctx, id, token)
	if err != nil {
		return nil, err
	}

	patch, err := model.DecodePatch(f)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, &model.ValidationError{Errors: []model.FieldError{{Message: "no fields to update"}}}
	}

	merged, m := model.PlanUpdate(existing, patch, s.now())
	updated, err := s.store.UpdateRunIfExists(ctx, merged, m)
	if err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	runsWritten.WithLabelValues("update").Inc()
	indexTransitions.WithLabelValues(m.Index.Action.String()).Inc()

	out := updated.Redacted()
	if evt, ok := updateEvent(id, out, m); ok {
		s.publish(ctx, events.TopicRunUpdated, id, evt)
	}
	return out, nil
}

// updateEvent builds the public notification for a completed update.
// Inactive runs stay private: deactivation announces only the id, and
// edits to a run that was already inactive announce nothing.
func updateEvent(id string, out *model.Run, m model.Mutation) (events.RunUpdated, bool) {
	switch {
	case out.IsActive:
		return events.RunUpdated{
			ID:      id,
			Run:     out,
			Changed: append(append([]string(nil), m.Set...), m.Clear...),
			Index:   m.Index.Action.String(),
		}, true
	case m.Index.Action == model.IndexRemove:
		return events.RunUpdated{ID: id, Index: m.Index.Action.String()}, true
	}
	return events.RunUpdated{}, false
}

// authorize loads the run stored under id and checks token against it.
func (s *RunsServer) authorize(ctx context.Context, id, token string) (*model.Run, error) {
	existing, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if token == "" {
		return nil, errTokenRequired
	}
	if !tokenMatches(existing.EditToken, token) {
		return nil, errInvalidToken
	}
	return existing, nil
}

// tokenMatches compares a supplied token to the stored one in constant time.
// An empty supplied token never matches.
func tokenMatches(stored, supplied string) bool {
	if supplied == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
