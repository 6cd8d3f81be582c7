package model

import (
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		if fe.Field == "" {
			parts[i] = fe.Message
			continue
		}
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Length limits, in runes, for free-form text fields.
const (
	maxNameLen         = 100
	maxStartTimeLen    = 20
	maxLocationNameLen = 200
	maxDistancesLen    = 100
	maxContactNameLen  = 100
	maxContactEmailLen = 254
	maxContactPhoneLen = 30
	maxNotesLen        = 1000
)

// ValidatePatch applies the per-field rules to every field present in p.
// Absent fields are not checked; required-field checks belong to the caller.
func ValidatePatch(p *RunPatch) error {
	var ve ValidationError

	if p.Name != nil {
		checkText(&ve, FieldName, *p.Name, maxNameLen, true)
	}
	if p.DayOfWeek != nil && !p.DayOfWeek.IsValid() {
		ve.add(FieldDayOfWeek, fmt.Sprintf("must be one of %v", Days))
	}
	if p.StartTime != nil {
		checkText(&ve, FieldStartTime, *p.StartTime, maxStartTimeLen, true)
	}
	if p.LocationName != nil {
		checkText(&ve, FieldLocationName, *p.LocationName, maxLocationNameLen, true)
	}
	if p.Latitude != nil {
		if v := *p.Latitude; math.IsNaN(v) || v < -90 || v > 90 {
			ve.add(FieldLatitude, "must be between -90 and 90")
		}
	}
	if p.Longitude != nil {
		if v := *p.Longitude; math.IsNaN(v) || v < -180 || v > 180 {
			ve.add(FieldLongitude, "must be between -180 and 180")
		}
	}
	if p.TypicalDistances != nil {
		checkText(&ve, FieldTypicalDistances, *p.TypicalDistances, maxDistancesLen, true)
	}
	if p.Terrain != nil && !p.Terrain.IsValid() {
		ve.add(FieldTerrain, fmt.Sprintf("must be one of %v", Terrains))
	}
	if p.PaceGroups != nil {
		checkPaceGroups(&ve, p.PaceGroups)
	}
	if p.ContactName != nil {
		checkText(&ve, FieldContactName, *p.ContactName, maxContactNameLen, false)
	}
	if p.ContactEmail != nil {
		checkText(&ve, FieldContactEmail, *p.ContactEmail, maxContactEmailLen, false)
		if email := *p.ContactEmail; email != "" {
			if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
				ve.add(FieldContactEmail, "must be a valid email address")
			}
		}
	}
	if p.ContactPhone != nil {
		checkText(&ve, FieldContactPhone, *p.ContactPhone, maxContactPhoneLen, false)
	}
	if p.Notes != nil {
		checkText(&ve, FieldNotes, *p.Notes, maxNotesLen, false)
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func checkText(ve *ValidationError, field, value string, limit int, required bool) {
	if required && value == "" {
		ve.add(field, "is required")
		return
	}
	if utf8.RuneCountInString(value) > limit {
		ve.add(field, fmt.Sprintf("must be %d characters or fewer", limit))
	}
}

// checkPaceGroups requires exactly the four pace buckets, each with a known frequency.
func checkPaceGroups(ve *ValidationError, g PaceGroups) {
	keys := make([]PaceRange, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		v := g[k]
		if !k.IsValid() {
			ve.add(FieldPaceGroups, fmt.Sprintf("unknown pace group %q", k))
			continue
		}
		if !v.IsValid() {
			ve.add(FieldPaceGroups+"."+string(k), fmt.Sprintf("invalid availability %q", v))
		}
	}
	for _, k := range PaceRanges {
		if _, ok := g[k]; !ok {
			ve.add(FieldPaceGroups+"."+string(k), "is required")
		}
	}
}
