package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/store"
)

// mockStore is an in-memory store.Store that applies mutations attribute by
// attribute and keeps the active index separately from the items, the way
// the real backends do.
type mockStore struct {
	mu    sync.Mutex
	runs  map[string]*model.Run
	index map[string]string // run id -> day sort key

	gets, puts, updates, queries int

	getErr    error
	putErr    error
	updateErr error
	pingErr   error
}

var _ store.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		runs:  make(map[string]*model.Run),
		index: make(map[string]string),
	}
}

func (m *mockStore) GetRun(_ context.Context, id string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (m *mockStore) PutRunIfAbsent(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	if _, ok := m.runs[run.ID]; ok {
		return store.ErrConditionFailed
	}
	m.runs[run.ID] = run.Clone()
	if run.IsActive {
		m.index[run.ID] = model.DaySortKey(run.DayOfWeek)
	}
	return nil
}

func (m *mockStore) UpdateRunIfExists(_ context.Context, run *model.Run, mut model.Mutation) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	stored, ok := m.runs[run.ID]
	if !ok {
		return nil, store.ErrConditionFailed
	}
	for _, f := range mut.Set {
		copyField(stored, run, f)
	}
	for _, f := range mut.Clear {
		copyField(stored, &model.Run{}, f)
	}
	switch mut.Index.Action {
	case model.IndexRemove:
		delete(m.index, run.ID)
	case model.IndexAdd, model.IndexMove:
		m.index[run.ID] = mut.Index.SortKey
	}
	return stored.Clone(), nil
}

func (m *mockStore) QueryActiveRuns(_ context.Context) ([]*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	ids := make([]string, 0, len(m.index))
	for id := range m.index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if m.index[ids[i]] != m.index[ids[j]] {
			return m.index[ids[i]] < m.index[ids[j]]
		}
		return ids[i] < ids[j]
	})
	out := make([]*model.Run, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.runs[id].Clone())
	}
	return out, nil
}

func (m *mockStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts + m.updates
}

func (m *mockStore) stored(id string) *model.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		return r.Clone()
	}
	return nil
}

// copyField copies one named attribute from src to dst.
func copyField(dst, src *model.Run, field string) {
	switch field {
	case model.FieldName:
		dst.Name = src.Name
	case model.FieldDayOfWeek:
		dst.DayOfWeek = src.DayOfWeek
	case model.FieldStartTime:
		dst.StartTime = src.StartTime
	case model.FieldLocationName:
		dst.LocationName = src.LocationName
	case model.FieldLatitude:
		dst.Latitude = src.Latitude
	case model.FieldLongitude:
		dst.Longitude = src.Longitude
	case model.FieldTypicalDistances:
		dst.TypicalDistances = src.TypicalDistances
	case model.FieldTerrain:
		dst.Terrain = src.Terrain
	case model.FieldPaceGroups:
		dst.PaceGroups = src.PaceGroups.Clone()
	case model.FieldContactName:
		dst.ContactName = src.ContactName
	case model.FieldContactEmail:
		dst.ContactEmail = src.ContactEmail
	case model.FieldContactPhone:
		dst.ContactPhone = src.ContactPhone
	case model.FieldNotes:
		dst.Notes = src.Notes
	case model.FieldIsActive:
		dst.IsActive = src.IsActive
	case model.FieldUpdatedAt:
		dst.UpdatedAt = src.UpdatedAt
	default:
		panic("mockStore: unknown field " + field)
	}
}

type published struct {
	Topic string
	Event any
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{Topic: topic, Event: event})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestServer returns a RunsServer with sequential ids and tokens and a
// clock that advances one minute per call.
func newTestServer(t *testing.T, opts ...Option) (*RunsServer, *mockStore, *recordingPublisher) {
	t.Helper()
	ms := newMockStore()
	pub := &recordingPublisher{}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s := NewRunsServer(ms, pub, opts...)

	var ids, tokens, ticks int
	s.newID = func() (string, error) { ids++; return fmt.Sprintf("run%03d", ids), nil }
	s.newToken = func() (string, error) { tokens++; return fmt.Sprintf("tok-%d", tokens), nil }
	s.now = func() time.Time { ticks++; return testStart.Add(time.Duration(ticks) * time.Minute) }
	return s, ms, pub
}

const validRunBody = `{
	"name": "Tuesday Track Club",
	"dayOfWeek": "Tuesday",
	"startTime": "6:30 AM",
	"locationName": "Rockville Town Square",
	"latitude": 39.084,
	"longitude": -77.152,
	"typicalDistances": "4-6 miles",
	"terrain": "Road",
	"paceGroups": {"sub_8": "rarely", "8_to_9": "sometimes", "9_to_10": "frequently", "10_plus": "consistently"},
	"notes": "Meet by the fountain"
}`

func mustFields(t *testing.T, body string) model.Fields {
	t.Helper()
	var f model.Fields
	if err := json.Unmarshal([]byte(body), &f); err != nil {
		t.Fatalf("bad test body: %v", err)
	}
	return f
}

// createTestRun creates a run from validRunBody with overrides applied.
func createTestRun(t *testing.T, s *RunsServer, overrides string) *model.Run {
	t.Helper()
	f := mustFields(t, validRunBody)
	if overrides != "" {
		for k, v := range mustFields(t, overrides) {
			f[k] = v
		}
	}
	run, err := s.CreateRun(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	return run
}

var errStoreDown = fmt.Errorf("store unavailable")
