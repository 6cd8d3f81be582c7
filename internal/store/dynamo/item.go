package dynamo

import (
	"time"

	"github.com/alfredjeanlab/dropin/internal/model"
)

// Attribute names of the key and index attributes.
const (
	attrPK     = "PK"
	attrSK     = "SK"
	attrGSI1PK = "GSI1PK"
	attrGSI1SK = "GSI1SK"
)

// item is the stored shape of a run. Business attributes keep their JSON
// names so that update expressions can address them by field name.
type item struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK string `dynamodbav:"GSI1SK,omitempty"`

	ID               string            `dynamodbav:"id"`
	Name             string            `dynamodbav:"name"`
	DayOfWeek        string            `dynamodbav:"dayOfWeek"`
	StartTime        string            `dynamodbav:"startTime"`
	LocationName     string            `dynamodbav:"locationName"`
	Latitude         float64           `dynamodbav:"latitude"`
	Longitude        float64           `dynamodbav:"longitude"`
	TypicalDistances string            `dynamodbav:"typicalDistances"`
	Terrain          string            `dynamodbav:"terrain"`
	PaceGroups       map[string]string `dynamodbav:"paceGroups"`
	ContactName      *string           `dynamodbav:"contactName,omitempty"`
	ContactEmail     *string           `dynamodbav:"contactEmail,omitempty"`
	ContactPhone     *string           `dynamodbav:"contactPhone,omitempty"`
	Notes            *string           `dynamodbav:"notes,omitempty"`
	IsActive         bool              `dynamodbav:"isActive"`
	EditToken        string            `dynamodbav:"editToken,omitempty"`
	CreatedAt        time.Time         `dynamodbav:"createdAt"`
	UpdatedAt        time.Time         `dynamodbav:"updatedAt"`
}

// publicAttributes are projected into the active index. editToken is not.
var publicAttributes = []string{
	"id", "name", "dayOfWeek", "startTime", "locationName",
	"latitude", "longitude", "typicalDistances", "terrain", "paceGroups",
	"contactName", "contactEmail", "contactPhone", "notes",
	"isActive", "createdAt", "updatedAt",
}

func toItem(r *model.Run) *item {
	it := &item{
		PK:               model.PartitionKey(r.ID),
		SK:               model.MetadataSortKey,
		ID:               r.ID,
		Name:             r.Name,
		DayOfWeek:        string(r.DayOfWeek),
		StartTime:        r.StartTime,
		LocationName:     r.LocationName,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		TypicalDistances: r.TypicalDistances,
		Terrain:          string(r.Terrain),
		PaceGroups:       paceGroupsMap(r.PaceGroups),
		ContactName:      r.ContactName,
		ContactEmail:     r.ContactEmail,
		ContactPhone:     r.ContactPhone,
		Notes:            r.Notes,
		IsActive:         r.IsActive,
		EditToken:        r.EditToken,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if r.IsActive {
		it.GSI1PK = model.ActivePartition
		it.GSI1SK = model.DaySortKey(r.DayOfWeek)
	}
	return it
}

func (it *item) toRun() *model.Run {
	r := &model.Run{
		ID:               it.ID,
		Name:             it.Name,
		DayOfWeek:        model.Day(it.DayOfWeek),
		StartTime:        it.StartTime,
		LocationName:     it.LocationName,
		Latitude:         it.Latitude,
		Longitude:        it.Longitude,
		TypicalDistances: it.TypicalDistances,
		Terrain:          model.Terrain(it.Terrain),
		ContactName:      it.ContactName,
		ContactEmail:     it.ContactEmail,
		ContactPhone:     it.ContactPhone,
		Notes:            it.Notes,
		IsActive:         it.IsActive,
		EditToken:        it.EditToken,
		CreatedAt:        it.CreatedAt,
		UpdatedAt:        it.UpdatedAt,
	}
	if r.ID == "" {
		r.ID = model.IDFromPartitionKey(it.PK)
	}
	if it.PaceGroups != nil {
		r.PaceGroups = make(model.PaceGroups, len(it.PaceGroups))
		for k, v := range it.PaceGroups {
			r.PaceGroups[model.PaceRange(k)] = model.Frequency(v)
		}
	}
	return r
}

func paceGroupsMap(g model.PaceGroups) map[string]string {
	if g == nil {
		return nil
	}
	m := make(map[string]string, len(g))
	for k, v := range g {
		m[string(k)] = string(v)
	}
	return m
}

// fieldValue returns the Go value of a run field for an update expression.
func fieldValue(r *model.Run, field string) (any, bool) {
	switch field {
	case model.FieldName:
		return r.Name, true
	case model.FieldDayOfWeek:
		return string(r.DayOfWeek), true
	case model.FieldStartTime:
		return r.StartTime, true
	case model.FieldLocationName:
		return r.LocationName, true
	case model.FieldLatitude:
		return r.Latitude, true
	case model.FieldLongitude:
		return r.Longitude, true
	case model.FieldTypicalDistances:
		return r.TypicalDistances, true
	case model.FieldTerrain:
		return string(r.Terrain), true
	case model.FieldPaceGroups:
		return paceGroupsMap(r.PaceGroups), true
	case model.FieldContactName:
		return deref(r.ContactName), true
	case model.FieldContactEmail:
		return deref(r.ContactEmail), true
	case model.FieldContactPhone:
		return deref(r.ContactPhone), true
	case model.FieldNotes:
		return deref(r.Notes), true
	case model.FieldIsActive:
		return r.IsActive, true
	case model.FieldUpdatedAt:
		return r.UpdatedAt.UTC(), true
	}
	return nil, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
