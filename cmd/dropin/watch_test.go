package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/alfredjeanlab/dropin/internal/events"
	"github.com/alfredjeanlab/dropin/internal/model"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestFormatEvent(t *testing.T) {
	run := testRun("a1", "Early Birds", model.Friday)

	tests := []struct {
		name  string
		topic string
		data  []byte
		want  []string
		not   []string
	}{
		{
			name:  "created",
			topic: events.TopicRunCreated,
			data:  mustJSON(t, events.RunCreated{Run: run}),
			want:  []string{events.TopicRunCreated, "a1", "Early Birds", "[active]"},
			not:   []string{"changed="},
		},
		{
			name:  "updated with index change",
			topic: events.TopicRunUpdated,
			data:  mustJSON(t, events.RunUpdated{ID: "a1", Run: run, Changed: []string{"isActive", "dayOfWeek", "updatedAt"}, Index: "add"}),
			want:  []string{"changed=isActive,dayOfWeek,updatedAt", "index=add", "[active]"},
		},
		{
			name:  "deactivation carries only the id",
			topic: events.TopicRunUpdated,
			data:  mustJSON(t, events.RunUpdated{ID: "a1", Index: "remove"}),
			want:  []string{events.TopicRunUpdated, "a1", "index=remove", "[inactive]"},
			not:   []string{"Early Birds", "changed="},
		},
		{
			name: "deactivation topic inferred",
			data: mustJSON(t, events.RunUpdated{ID: "a1", Index: "remove"}),
			want: []string{events.TopicRunUpdated + " a1"},
		},
		{
			name:  "updated keep omits index",
			topic: events.TopicRunUpdated,
			data:  mustJSON(t, events.RunUpdated{Run: run, Changed: []string{"notes", "updatedAt"}, Index: "keep"}),
			want:  []string{"changed=notes,updatedAt"},
			not:   []string{"index="},
		},
		{
			name: "topic inferred from payload",
			data: mustJSON(t, events.RunUpdated{Run: run, Changed: []string{"updatedAt"}, Index: "keep"}),
			want: []string{events.TopicRunUpdated},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatEvent(tt.topic, tt.data)
			if err != nil {
				t.Fatalf("formatEvent: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in %q", w, got)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(got, n) {
					t.Errorf("unexpected %q in %q", n, got)
				}
			}
		})
	}
}

func TestFormatEvent_Errors(t *testing.T) {
	if _, err := formatEvent("", []byte("not json")); err == nil {
		t.Error("expected error for bad JSON")
	}
	if _, err := formatEvent("", []byte(`{"changed":[]}`)); err == nil {
		t.Error("expected error for missing run")
	}
}
