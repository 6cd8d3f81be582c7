package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/dropin/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a model.Run.
// The row must contain columns in the order defined by runColumns.
func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var (
		day          string
		terrain      string
		pace         []byte
		contactName  sql.NullString
		contactEmail sql.NullString
		contactPhone sql.NullString
		notes        sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&r.Name,
		&day,
		&r.StartTime,
		&r.LocationName,
		&r.Latitude,
		&r.Longitude,
		&r.TypicalDistances,
		&terrain,
		&pace,
		&contactName,
		&contactEmail,
		&contactPhone,
		&notes,
		&r.IsActive,
		&r.EditToken,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.DayOfWeek = model.Day(day)
	r.Terrain = model.Terrain(terrain)
	r.ContactName = stringPtr(contactName)
	r.ContactEmail = stringPtr(contactEmail)
	r.ContactPhone = stringPtr(contactPhone)
	r.Notes = stringPtr(notes)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()

	if len(pace) > 0 {
		if err := json.Unmarshal(pace, &r.PaceGroups); err != nil {
			return nil, fmt.Errorf("decode pace_groups: %w", err)
		}
	}
	return &r, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringPtr converts an optional string to sql.NullString.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// paceGroupsBytes encodes pace groups for the JSONB column.
func paceGroupsBytes(g model.PaceGroups) ([]byte, error) {
	if g == nil {
		g = model.PaceGroups{}
	}
	b, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode pace_groups: %w", err)
	}
	return b, nil
}
