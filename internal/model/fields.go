package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// Field names, shared by request bodies and stored items.
const (
	FieldName             = "name"
	FieldDayOfWeek        = "dayOfWeek"
	FieldStartTime        = "startTime"
	FieldLocationName     = "locationName"
	FieldLatitude         = "latitude"
	FieldLongitude        = "longitude"
	FieldTypicalDistances = "typicalDistances"
	FieldTerrain          = "terrain"
	FieldPaceGroups       = "paceGroups"
	FieldContactName      = "contactName"
	FieldContactEmail     = "contactEmail"
	FieldContactPhone     = "contactPhone"
	FieldNotes            = "notes"
	FieldIsActive         = "isActive"
	FieldUpdatedAt        = "updatedAt"
)

// CreatableFields is the closed set of fields a caller may supply on create.
// Anything else, including id, editToken, isActive, timestamps and key
// attributes, is rejected.
var CreatableFields = []string{
	FieldName,
	FieldDayOfWeek,
	FieldStartTime,
	FieldLocationName,
	FieldLatitude,
	FieldLongitude,
	FieldTypicalDistances,
	FieldTerrain,
	FieldPaceGroups,
	FieldContactName,
	FieldContactEmail,
	FieldContactPhone,
	FieldNotes,
}

// UpdatableFields is CreatableFields plus isActive.
var UpdatableFields = append(append([]string(nil), CreatableFields...), FieldIsActive)

// RequiredFields must all be present on create.
var RequiredFields = []string{
	FieldName,
	FieldDayOfWeek,
	FieldStartTime,
	FieldLocationName,
	FieldLatitude,
	FieldLongitude,
	FieldTypicalDistances,
	FieldTerrain,
	FieldPaceGroups,
}

// nullableFields may be sent as null (or "") to clear them.
var nullableFields = map[string]bool{
	FieldContactName:  true,
	FieldContactEmail: true,
	FieldContactPhone: true,
	FieldNotes:        true,
}

// Fields is an undecoded request body keyed by field name.
type Fields map[string]json.RawMessage

// RunPatch is a decoded, typed field set. A nil field was not supplied.
// For the nullable contact and notes fields a pointer to "" means "clear".
type RunPatch struct {
	Name             *string
	DayOfWeek        *Day
	StartTime        *string
	LocationName     *string
	Latitude         *float64
	Longitude        *float64
	TypicalDistances *string
	Terrain          *Terrain
	PaceGroups       PaceGroups
	ContactName      *string
	ContactEmail     *string
	ContactPhone     *string
	Notes            *string
	IsActive         *bool
}

// Present returns the names of the supplied fields in UpdatableFields order.
func (p *RunPatch) Present() []string {
	var out []string
	for _, f := range UpdatableFields {
		if p.has(f) {
			out = append(out, f)
		}
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p *RunPatch) IsEmpty() bool {
	return len(p.Present()) == 0
}

func (p *RunPatch) has(field string) bool {
	switch field {
	case FieldName:
		return p.Name != nil
	case FieldDayOfWeek:
		return p.DayOfWeek != nil
	case FieldStartTime:
		return p.StartTime != nil
	case FieldLocationName:
		return p.LocationName != nil
	case FieldLatitude:
		return p.Latitude != nil
	case FieldLongitude:
		return p.Longitude != nil
	case FieldTypicalDistances:
		return p.TypicalDistances != nil
	case FieldTerrain:
		return p.Terrain != nil
	case FieldPaceGroups:
		return p.PaceGroups != nil
	case FieldContactName:
		return p.ContactName != nil
	case FieldContactEmail:
		return p.ContactEmail != nil
	case FieldContactPhone:
		return p.ContactPhone != nil
	case FieldNotes:
		return p.Notes != nil
	case FieldIsActive:
		return p.IsActive != nil
	}
	return false
}

// DecodeCreate checks f against CreatableFields, decodes and validates every
// field and requires RequiredFields. It returns a *ValidationError on failure.
func DecodeCreate(f Fields) (*RunPatch, error) {
	p, err := decodeFields(f, CreatableFields)
	if err != nil {
		return nil, err
	}
	var ve ValidationError
	for _, name := range RequiredFields {
		if !p.has(name) {
			ve.add(name, "is required")
		}
	}
	if err := ValidatePatch(p); err != nil {
		ve.Errors = append(ve.Errors, err.(*ValidationError).Errors...)
	}
	if ve.HasErrors() {
		return nil, &ve
	}
	return p, nil
}

// DecodePatch checks f against UpdatableFields and decodes and validates the
// fields present. Absent fields are left nil. It returns a *ValidationError on
// failure.
func DecodePatch(f Fields) (*RunPatch, error) {
	p, err := decodeFields(f, UpdatableFields)
	if err != nil {
		return nil, err
	}
	if err := ValidatePatch(p); err != nil {
		return nil, err
	}
	return p, nil
}

// decodeFields rejects keys outside allowed before decoding anything, then
// decodes each present field into its typed slot.
func decodeFields(f Fields, allowed []string) (*RunPatch, error) {
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ve ValidationError
	for _, k := range keys {
		if !allow[k] {
			ve.add(k, "unknown field")
		}
	}
	if ve.HasErrors() {
		return nil, &ve
	}

	p := &RunPatch{}
	for _, k := range keys {
		raw := f[k]
		if isNull(raw) {
			if nullableFields[k] {
				empty := ""
				p.setString(k, &empty)
				continue
			}
			ve.add(k, "must not be null")
			continue
		}
		if msg := p.decodeField(k, raw); msg != "" {
			ve.add(k, msg)
		}
	}
	if ve.HasErrors() {
		return nil, &ve
	}
	return p, nil
}

func (p *RunPatch) decodeField(k string, raw json.RawMessage) string {
	switch k {
	case FieldLatitude, FieldLongitude:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return "must be a number"
		}
		if k == FieldLatitude {
			p.Latitude = &v
		} else {
			p.Longitude = &v
		}
	case FieldDayOfWeek:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "must be a string"
		}
		d := Day(strings.TrimSpace(s))
		p.DayOfWeek = &d
	case FieldTerrain:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "must be a string"
		}
		t := Terrain(strings.TrimSpace(s))
		p.Terrain = &t
	case FieldPaceGroups:
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return "must be an object of pace group availabilities"
		}
		g := make(PaceGroups, len(m))
		for pace, freq := range m {
			g[PaceRange(pace)] = Frequency(freq)
		}
		p.PaceGroups = g
	case FieldIsActive:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "must be a boolean"
		}
		p.IsActive = &b
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "must be a string"
		}
		s = strings.TrimSpace(s)
		p.setString(k, &s)
	}
	return ""
}

func (p *RunPatch) setString(k string, v *string) {
	switch k {
	case FieldName:
		p.Name = v
	case FieldStartTime:
		p.StartTime = v
	case FieldLocationName:
		p.LocationName = v
	case FieldTypicalDistances:
		p.TypicalDistances = v
	case FieldContactName:
		p.ContactName = v
	case FieldContactEmail:
		p.ContactEmail = v
	case FieldContactPhone:
		p.ContactPhone = v
	case FieldNotes:
		p.Notes = v
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}
