package model

import "time"

// IndexAction is the change an update makes to a run's active-index entry.
type IndexAction int

const (
	// IndexKeep leaves the index attributes alone.
	IndexKeep IndexAction = iota
	// IndexRemove drops the entry; the run was active and no longer is.
	IndexRemove
	// IndexAdd creates the entry; the run was inactive and now is active.
	IndexAdd
	// IndexMove rewrites only the sort key of an active run whose day changed.
	IndexMove
)

func (a IndexAction) String() string {
	switch a {
	case IndexKeep:
		return "keep"
	case IndexRemove:
		return "remove"
	case IndexAdd:
		return "add"
	case IndexMove:
		return "move"
	}
	return "unknown"
}

// IndexTransition describes the index attribute change of one update.
// SortKey is set for IndexAdd and IndexMove.
type IndexTransition struct {
	Action  IndexAction
	SortKey string
}

// PlanIndex decides the index transition between two states of the same run.
// It looks only at the merged before and after records.
func PlanIndex(before, after *Run) IndexTransition {
	switch {
	case before.IsActive && !after.IsActive:
		return IndexTransition{Action: IndexRemove}
	case !before.IsActive && after.IsActive:
		return IndexTransition{Action: IndexAdd, SortKey: DaySortKey(after.DayOfWeek)}
	case before.IsActive && after.IsActive && before.DayOfWeek != after.DayOfWeek:
		return IndexTransition{Action: IndexMove, SortKey: DaySortKey(after.DayOfWeek)}
	}
	return IndexTransition{Action: IndexKeep}
}

// Mutation is the attribute-level description of one update: the fields to
// write from the merged run, the nullable fields to remove, and the index
// change. Set always ends with updatedAt.
type Mutation struct {
	Set   []string
	Clear []string
	Index IndexTransition
}

// NewRun builds a fresh active run from a validated create patch.
func NewRun(id, token string, p *RunPatch, now time.Time) *Run {
	r := &Run{
		ID:        id,
		EditToken: token,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyPatch(r, p)
	return r
}

// PlanUpdate merges p into a copy of existing and returns the merged run with
// the mutation needed to persist it. existing is not modified.
func PlanUpdate(existing *Run, p *RunPatch, now time.Time) (*Run, Mutation) {
	merged := existing.Clone()
	applyPatch(merged, p)
	merged.UpdatedAt = now

	var m Mutation
	for _, f := range p.Present() {
		if nullableFields[f] && isCleared(merged, f) {
			m.Clear = append(m.Clear, f)
			continue
		}
		m.Set = append(m.Set, f)
	}
	m.Set = append(m.Set, FieldUpdatedAt)
	m.Index = PlanIndex(existing, merged)
	return merged, m
}

func applyPatch(r *Run, p *RunPatch) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.DayOfWeek != nil {
		r.DayOfWeek = *p.DayOfWeek
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.LocationName != nil {
		r.LocationName = *p.LocationName
	}
	if p.Latitude != nil {
		r.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		r.Longitude = *p.Longitude
	}
	if p.TypicalDistances != nil {
		r.TypicalDistances = *p.TypicalDistances
	}
	if p.Terrain != nil {
		r.Terrain = *p.Terrain
	}
	if p.PaceGroups != nil {
		r.PaceGroups = p.PaceGroups.Clone()
	}
	if p.ContactName != nil {
		r.ContactName = optional(*p.ContactName)
	}
	if p.ContactEmail != nil {
		r.ContactEmail = optional(*p.ContactEmail)
	}
	if p.ContactPhone != nil {
		r.ContactPhone = optional(*p.ContactPhone)
	}
	if p.Notes != nil {
		r.Notes = optional(*p.Notes)
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
}

// optional maps "" to an absent value.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isCleared(r *Run, field string) bool {
	switch field {
	case FieldContactName:
		return r.ContactName == nil
	case FieldContactEmail:
		return r.ContactEmail == nil
	case FieldContactPhone:
		return r.ContactPhone == nil
	case FieldNotes:
		return r.Notes == nil
	}
	return false
}
