package model

import "time"

// Day is the weekday a run meets on.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// Days lists every valid Day in calendar order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// String returns the string representation of the day.
func (d Day) String() string {
	return string(d)
}

// IsValid checks whether the day is a known value.
func (d Day) IsValid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// Terrain is the surface a run mostly covers.
type Terrain string

const (
	TerrainRoad  Terrain = "Road"
	TerrainTrail Terrain = "Trail"
	TerrainMixed Terrain = "Mixed"
)

// Terrains lists every valid Terrain.
var Terrains = []Terrain{TerrainRoad, TerrainTrail, TerrainMixed}

// IsValid checks whether the terrain is a known value.
func (t Terrain) IsValid() bool {
	switch t {
	case TerrainRoad, TerrainTrail, TerrainMixed:
		return true
	}
	return false
}

// PaceRange is a bucket of minutes-per-mile paces.
type PaceRange string

const (
	PaceSub8   PaceRange = "sub_8"
	Pace8To9   PaceRange = "8_to_9"
	Pace9To10  PaceRange = "9_to_10"
	Pace10Plus PaceRange = "10_plus"
)

// PaceRanges lists the four pace buckets, fastest first.
var PaceRanges = []PaceRange{PaceSub8, Pace8To9, Pace9To10, Pace10Plus}

// IsValid checks whether the pace range is one of the four buckets.
func (p PaceRange) IsValid() bool {
	switch p {
	case PaceSub8, Pace8To9, Pace9To10, Pace10Plus:
		return true
	}
	return false
}

// Frequency says how often runners of a pace bucket show up.
type Frequency string

const (
	FrequencyConsistently Frequency = "consistently"
	FrequencyFrequently   Frequency = "frequently"
	FrequencySometimes    Frequency = "sometimes"
	FrequencyRarely       Frequency = "rarely"
)

// IsValid checks whether the frequency is a known value.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyConsistently, FrequencyFrequently, FrequencySometimes, FrequencyRarely:
		return true
	}
	return false
}

// PaceGroups maps each pace bucket to how often that group attends.
type PaceGroups map[PaceRange]Frequency

// Clone returns an independent copy of the mapping.
func (g PaceGroups) Clone() PaceGroups {
	if g == nil {
		return nil
	}
	out := make(PaceGroups, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Run is a community drop-in run listing.
type Run struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	DayOfWeek        Day        `json:"dayOfWeek"`
	StartTime        string     `json:"startTime"`
	LocationName     string     `json:"locationName"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	TypicalDistances string     `json:"typicalDistances"`
	Terrain          Terrain    `json:"terrain"`
	PaceGroups       PaceGroups `json:"paceGroups"`
	ContactName      *string    `json:"contactName"`
	ContactEmail     *string    `json:"contactEmail"`
	ContactPhone     *string    `json:"contactPhone"`
	Notes            *string    `json:"notes"`
	IsActive         bool       `json:"isActive"`
	EditToken        string     `json:"editToken,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	c := *r
	c.PaceGroups = r.PaceGroups.Clone()
	c.ContactName = cloneString(r.ContactName)
	c.ContactEmail = cloneString(r.ContactEmail)
	c.ContactPhone = cloneString(r.ContactPhone)
	c.Notes = cloneString(r.Notes)
	return &c
}

// Redacted returns a copy of the run without its edit token. Every read path
// hands out redacted runs.
func (r *Run) Redacted() *Run {
	c := r.Clone()
	c.EditToken = ""
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
