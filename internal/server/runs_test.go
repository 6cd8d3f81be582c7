package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/alfredjeanlab/dropin/internal/events"
	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/store"
)

func TestCreateRun(t *testing.T) {
	s, ms, pub := newTestServer(t)
	run := createTestRun(t, s, "")

	if run.ID != "run001" || run.EditToken != "tok-1" {
		t.Fatalf("id/token = %q/%q", run.ID, run.EditToken)
	}
	if !run.IsActive {
		t.Error("new run should be active")
	}
	if !run.CreatedAt.Equal(run.UpdatedAt) {
		t.Errorf("createdAt %v != updatedAt %v", run.CreatedAt, run.UpdatedAt)
	}
	if got := ms.stored(run.ID); got == nil || got.EditToken != "tok-1" {
		t.Fatalf("stored run = %+v", got)
	}
	if ms.index[run.ID] != "DAY#Tuesday" {
		t.Errorf("index entry = %q", ms.index[run.ID])
	}

	if len(pub.events) != 1 || pub.events[0].Topic != events.TopicRunCreated {
		t.Fatalf("events = %+v", pub.events)
	}
	if ev := pub.events[0].Event.(events.RunCreated); ev.Run.EditToken != "" {
		t.Error("created event carries the edit token")
	}
}

func TestCreateRun_ValidationWritesNothing(t *testing.T) {
	s, ms, pub := newTestServer(t)
	for _, body := range []string{
		`{}`,
		`{"name": "x"}`,
		`{"id": "mine"}`,
	} {
		_, err := s.CreateRun(context.Background(), mustFields(t, body))
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: err = %v, want ValidationError", body, err)
		}
	}

	f := mustFields(t, validRunBody)
	f["editToken"] = json.RawMessage(`"chosen"`)
	if _, err := s.CreateRun(context.Background(), f); err == nil {
		t.Error("client-supplied editToken accepted")
	}

	if ms.writes() != 0 || len(pub.events) != 0 {
		t.Errorf("writes = %d, events = %d, want none", ms.writes(), len(pub.events))
	}
}

func TestCreateRun_IDCollision(t *testing.T) {
	s, ms, _ := newTestServer(t)
	s.newID = func() (string, error) { return "same-id", nil }

	first := createTestRun(t, s, "")
	_, err := s.CreateRun(context.Background(), mustFields(t, validRunBody))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	if len(ms.runs) != 1 {
		t.Fatalf("store has %d runs, want 1", len(ms.runs))
	}
	if got := ms.stored("same-id"); got.EditToken != first.EditToken {
		t.Errorf("stored token = %q, want the first run's %q", got.EditToken, first.EditToken)
	}
}

func TestCreateRun_Errors(t *testing.T) {
	t.Run("id generation", func(t *testing.T) {
		s, ms, _ := newTestServer(t)
		s.newID = func() (string, error) { return "", fmt.Errorf("entropy") }
		if _, err := s.CreateRun(context.Background(), mustFields(t, validRunBody)); err == nil {
			t.Fatal("expected error")
		}
		if ms.writes() != 0 {
			t.Error("write attempted without an id")
		}
	})
	t.Run("store failure", func(t *testing.T) {
		s, ms, _ := newTestServer(t)
		ms.putErr = fmt.Errorf("throttled")
		_, err := s.CreateRun(context.Background(), mustFields(t, validRunBody))
		if err == nil || errors.Is(err, ErrConflict) {
			t.Fatalf("err = %v, want wrapped store error", err)
		}
	})
	t.Run("publish failure is ignored", func(t *testing.T) {
		s, _, pub := newTestServer(t)
		pub.err = fmt.Errorf("bus down")
		if _, err := s.CreateRun(context.Background(), mustFields(t, validRunBody)); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	})
}

func TestGetRun_Redacted(t *testing.T) {
	s, _, _ := newTestServer(t)
	run := createTestRun(t, s, "")

	for _, token := range []string{"", "wrong", run.EditToken} {
		got, err := s.GetRun(context.Background(), run.ID, token)
		if err != nil {
			t.Fatalf("GetRun(token=%q): %v", token, err)
		}
		if got.EditToken != "" {
			t.Errorf("GetRun(token=%q) returned the edit token", token)
		}
		if got.Name != run.Name {
			t.Errorf("Name = %q", got.Name)
		}
	}
}

func TestGetRun_Visibility(t *testing.T) {
	s, _, _ := newTestServer(t)
	run := createTestRun(t, s, "")
	if _, err := s.UpdateRun(context.Background(), run.ID, run.EditToken, mustFields(t, `{"isActive": false}`)); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, missingErr := s.GetRun(context.Background(), "no-such-run", "")
	for _, tc := range []struct {
		name    string
		token   string
		visible bool
	}{
		{"no token", "", false},
		{"wrong token", "tok-999", false},
		{"token prefix", run.EditToken[:3], false},
		{"correct token", run.EditToken, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.GetRun(context.Background(), run.ID, tc.token)
			if tc.visible {
				if err != nil {
					t.Fatalf("GetRun: %v", err)
				}
				if got.IsActive || got.EditToken != "" {
					t.Errorf("got active=%v token=%q", got.IsActive, got.EditToken)
				}
				return
			}
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
			if err.Error() != missingErr.Error() {
				t.Errorf("hidden run error %q differs from missing run error %q", err, missingErr)
			}
		})
	}
}

func TestGetRun_StoreError(t *testing.T) {
	s, ms, _ := newTestServer(t)
	ms.getErr = fmt.Errorf("timeout")
	_, err := s.GetRun(context.Background(), "x", "")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestListRuns(t *testing.T) {
	s, _, _ := newTestServer(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Fatalf("empty list = %#v, want empty non-nil", runs)
	}

	createTestRun(t, s, `{"dayOfWeek": "Wednesday"}`)
	createTestRun(t, s, `{"dayOfWeek": "Monday"}`)
	createTestRun(t, s, `{"dayOfWeek": "Friday"}`)

	runs, err = s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var days []model.Day
	for _, r := range runs {
		if r.EditToken != "" {
			t.Errorf("run %s listed with its token", r.ID)
		}
		days = append(days, r.DayOfWeek)
	}
	// Lexicographic on the sort key, not calendar order.
	want := []model.Day{model.Friday, model.Monday, model.Wednesday}
	if !reflect.DeepEqual(days, want) {
		t.Errorf("days = %v, want %v", days, want)
	}
}

func TestUpdateRun_Errors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		id     string
		token  string
		body   string
		check  func(error) bool
		reason string
	}{
		{"missing run", "nope", "tok-1", `{"name": "x"}`, func(err error) bool { return errors.Is(err, ErrNotFound) }, "ErrNotFound"},
		{"no token", "run001", "", `{"name": "x"}`, func(err error) bool { return errors.Is(err, errTokenRequired) }, "token required"},
		{"wrong token", "run001", "tok-2", `{"name": "x"}`, func(err error) bool { return errors.Is(err, errInvalidToken) }, "invalid token"},
		{"wrong token bad body", "run001", "tok-2", `{"id": "x"}`, func(err error) bool { return errors.Is(err, ErrForbidden) }, "ErrForbidden"},
		{"unknown field", "run001", "tok-1", `{"editToken": "mine"}`, isValidation, "ValidationError"},
		{"invalid value", "run001", "tok-1", `{"terrain": "Sand"}`, isValidation, "ValidationError"},
		{"empty update", "run001", "tok-1", `{}`, isValidation, "ValidationError"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, ms, pub := newTestServer(t)
			createTestRun(t, s, "")
			before := ms.stored("run001")
			writesBefore := ms.writes()

			_, err := s.UpdateRun(context.Background(), tc.id, tc.token, mustFields(t, tc.body))
			if !tc.check(err) {
				t.Fatalf("err = %v, want %s", err, tc.reason)
			}
			if ms.writes() != writesBefore {
				t.Errorf("store received %d write(s)", ms.writes()-writesBefore)
			}
			if len(pub.events) != 1 {
				t.Errorf("events = %d, want only the create", len(pub.events))
			}
			if !reflect.DeepEqual(ms.stored("run001"), before) {
				t.Error("run changed after a rejected update")
			}
		})
	}
}

func isValidation(err error) bool {
	var ve *model.ValidationError
	return errors.As(err, &ve)
}

func TestUpdateRun_EmptyMessage(t *testing.T) {
	s, _, _ := newTestServer(t)
	run := createTestRun(t, s, "")
	_, err := s.UpdateRun(context.Background(), run.ID, run.EditToken, model.Fields{})
	var ve *model.ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) != 1 || ve.Errors[0].Message != "no fields to update" {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateRun_PartialIsolation(t *testing.T) {
	s, ms, _ := newTestServer(t)
	run := createTestRun(t, s, `{"contactName": "Pat", "contactEmail": "pat@example.com"}`)
	before := ms.stored(run.ID)

	got, err := s.UpdateRun(context.Background(), run.ID, run.EditToken, mustFields(t, `{"startTime": "7:00 AM"}`))
	if err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	if got.EditToken != "" {
		t.Error("update response carries the edit token")
	}

	after := ms.stored(run.ID)
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("updatedAt not advanced: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
	want := before.Clone()
	want.StartTime = "7:00 AM"
	want.UpdatedAt = after.UpdatedAt

	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(after)
	if string(wantJSON) != string(gotJSON) {
		t.Errorf("stored run\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestUpdateRun_ClearsOptional(t *testing.T) {
	s, ms, pub := newTestServer(t)
	run := createTestRun(t, s, `{"contactPhone": "301-555-0100"}`)

	got, err := s.UpdateRun(context.Background(), run.ID, run.EditToken, mustFields(t, `{"contactPhone": null, "notes": ""}`))
	if err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	if got.ContactPhone != nil || got.Notes != nil {
		t.Errorf("contactPhone=%v notes=%v, want both cleared", got.ContactPhone, got.Notes)
	}
	if st := ms.stored(run.ID); st.ContactPhone != nil || st.Notes != nil {
		t.Error("store still holds cleared fields")
	}

	ev := pub.events[len(pub.events)-1].Event.(events.RunUpdated)
	if !reflect.DeepEqual(ev.Changed, []string{model.FieldUpdatedAt, model.FieldContactPhone, model.FieldNotes}) {
		t.Errorf("Changed = %v", ev.Changed)
	}
}

func TestUpdateRun_KeyVanished(t *testing.T) {
	s, ms, _ := newTestServer(t)
	run := createTestRun(t, s, "")
	ms.updateErr = store.ErrConditionFailed

	_, err := s.UpdateRun(context.Background(), run.ID, run.EditToken, mustFields(t, `{"name": "Renamed"}`))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// TestLifecycleScenario walks a run through deactivation and reactivation
// on a different day.
func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	s, ms, pub := newTestServer(t)
	run := createTestRun(t, s, `{"dayOfWeek": "Tuesday"}`)

	listed := listIDs(t, s)
	if !reflect.DeepEqual(listed, []string{run.ID}) || ms.index[run.ID] != "DAY#Tuesday" {
		t.Fatalf("after create: listed=%v index=%q", listed, ms.index[run.ID])
	}

	if _, err := s.UpdateRun(ctx, run.ID, run.EditToken, mustFields(t, `{"isActive": false}`)); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if listed := listIDs(t, s); len(listed) != 0 {
		t.Fatalf("after deactivate: listed=%v", listed)
	}
	if _, err := s.GetRun(ctx, run.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRun without token: %v", err)
	}
	got, err := s.GetRun(ctx, run.ID, run.EditToken)
	if err != nil {
		t.Fatalf("GetRun with token: %v", err)
	}
	if got.IsActive || got.EditToken != "" || got.Name != run.Name {
		t.Errorf("owner view = %+v", got)
	}

	if _, err := s.UpdateRun(ctx, run.ID, run.EditToken, mustFields(t, `{"isActive": true, "dayOfWeek": "Thursday"}`)); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if listed := listIDs(t, s); !reflect.DeepEqual(listed, []string{run.ID}) {
		t.Fatalf("after reactivate: listed=%v", listed)
	}
	if ms.index[run.ID] != "DAY#Thursday" {
		t.Errorf("index entry = %q, want DAY#Thursday", ms.index[run.ID])
	}

	var actions []string
	for _, e := range pub.events[1:] {
		actions = append(actions, e.Event.(events.RunUpdated).Index)
	}
	if !reflect.DeepEqual(actions, []string{"remove", "add"}) {
		t.Errorf("index actions = %v", actions)
	}
}

func TestUpdateRun_WrongTokenLeavesRunUnchanged(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestServer(t)
	run := createTestRun(t, s, "")
	before, _ := s.GetRun(ctx, run.ID, "")

	_, err := s.UpdateRun(ctx, run.ID, "not-the-token", mustFields(t, `{"name": "Hijacked", "isActive": false}`))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	after, err := s.GetRun(ctx, run.ID, "")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("run changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

// TestIndexInvariant applies random updates and checks after each one that
// a run is listed exactly when active, under its current day.
func TestIndexInvariant(t *testing.T) {
	ctx := context.Background()
	s, ms, _ := newTestServer(t)
	rng := rand.New(rand.NewSource(42))

	var runs []*model.Run
	for i := 0; i < 5; i++ {
		runs = append(runs, createTestRun(t, s, fmt.Sprintf(`{"dayOfWeek": %q}`, model.Days[rng.Intn(len(model.Days))])))
	}

	for step := 0; step < 200; step++ {
		r := runs[rng.Intn(len(runs))]
		body := map[string]any{}
		if rng.Intn(2) == 0 {
			body["isActive"] = rng.Intn(2) == 0
		}
		if rng.Intn(2) == 0 {
			body["dayOfWeek"] = model.Days[rng.Intn(len(model.Days))]
		}
		if len(body) == 0 {
			body["notes"] = fmt.Sprintf("step %d", step)
		}
		raw, _ := json.Marshal(body)
		if _, err := s.UpdateRun(ctx, r.ID, r.EditToken, mustFields(t, string(raw))); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}

		listed := map[string]bool{}
		for _, id := range listIDs(t, s) {
			listed[id] = true
		}
		for _, run := range runs {
			st := ms.stored(run.ID)
			if listed[run.ID] != st.IsActive {
				t.Fatalf("step %d: run %s active=%v listed=%v", step, run.ID, st.IsActive, listed[run.ID])
			}
			if st.IsActive && ms.index[run.ID] != model.DaySortKey(st.DayOfWeek) {
				t.Fatalf("step %d: run %s indexed %q, day %s", step, run.ID, ms.index[run.ID], st.DayOfWeek)
			}
		}
	}
}

func listIDs(t *testing.T, s *RunsServer) []string {
	t.Helper()
	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestTokenMatches(t *testing.T) {
	for _, tc := range []struct {
		stored, supplied string
		want             bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"abc", "ab", false},
		{"abc", "", false},
		{"", "", false},
	} {
		if got := tokenMatches(tc.stored, tc.supplied); got != tc.want {
			t.Errorf("tokenMatches(%q, %q) = %v", tc.stored, tc.supplied, got)
		}
	}
}
