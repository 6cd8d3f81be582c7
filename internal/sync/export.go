package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/dropin/internal/model"
)

// RunSource is the read side of the store the exporter needs.
type RunSource interface {
	QueryActiveRuns(ctx context.Context) ([]*model.Run, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunCount  int       `json:"run_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every active run as JSONL to w: a header line, then
// one line per run sorted by ID. Edit tokens are never written.
func ExportJSONL(ctx context.Context, src RunSource, w io.Writer) error {
	runs, err := src.QueryActiveRuns(ctx)
	if err != nil {
		return fmt.Errorf("query active runs: %w", err)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].ID < runs[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		RunCount:  len(runs),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, r := range runs {
		if err := enc.Encode(record{Type: "run", Data: r.Redacted()}); err != nil {
			return fmt.Errorf("encode run %s: %w", r.ID, err)
		}
	}
	return nil
}
