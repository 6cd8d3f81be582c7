// Package events publishes run lifecycle notifications on a message bus.
// Publishing is best-effort: subscribers observe writes, they never gate them.
package events

import (
	"context"

	"github.com/alfredjeanlab/dropin/internal/model"
)

// Event topic constants
const (
	TopicRunCreated = "runs.run.created"
	TopicRunUpdated = "runs.run.updated"

	// TopicAll matches every run event.
	TopicAll = "runs.>"
)

// Event types. Runs carried in events are always redacted.

type RunCreated struct {
	Run *model.Run `json:"run"`
}

// RunUpdated describes a write to an existing run. When the write hides the
// run, only ID and Index are set.
type RunUpdated struct {
	ID      string     `json:"id"`
	Run     *model.Run `json:"run,omitempty"`
	Changed []string   `json:"changed,omitempty"` // field names written, cleared fields included
	Index   string     `json:"index"`             // keep, remove, add or move
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
