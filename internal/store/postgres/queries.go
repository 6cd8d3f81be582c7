package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/store"
)

// runColumns is the column list used for SELECT and RETURNING clauses on the runs table.
const runColumns = `id, name, day_of_week, start_time, location_name,
	latitude, longitude, typical_distances, terrain, pace_groups,
	contact_name, contact_email, contact_phone, notes,
	is_active, edit_token, created_at, updated_at`

// fieldColumns maps the updatable fields to their columns. Nothing outside
// this map can appear in an UPDATE.
var fieldColumns = map[string]string{
	model.FieldName:             "name",
	model.FieldDayOfWeek:        "day_of_week",
	model.FieldStartTime:        "start_time",
	model.FieldLocationName:     "location_name",
	model.FieldLatitude:         "latitude",
	model.FieldLongitude:        "longitude",
	model.FieldTypicalDistances: "typical_distances",
	model.FieldTerrain:          "terrain",
	model.FieldPaceGroups:       "pace_groups",
	model.FieldContactName:      "contact_name",
	model.FieldContactEmail:     "contact_email",
	model.FieldContactPhone:     "contact_phone",
	model.FieldNotes:            "notes",
	model.FieldIsActive:         "is_active",
	model.FieldUpdatedAt:        "updated_at",
}

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetRun(ctx context.Context, db executor, id string) (*model.Run, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE pk = $1 AND sk = $2`,
		model.PartitionKey(id), model.MetadataSortKey)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

func queryInsertRun(ctx context.Context, db executor, r *model.Run) error {
	pace, err := paceGroupsBytes(r.PaceGroups)
	if err != nil {
		return err
	}
	var gsi1pk, gsi1sk sql.NullString
	if r.IsActive {
		gsi1pk = nullString(model.ActivePartition)
		gsi1sk = nullString(model.DaySortKey(r.DayOfWeek))
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO runs (
			pk, sk, gsi1pk, gsi1sk,
			id, name, day_of_week, start_time, location_name,
			latitude, longitude, typical_distances, terrain, pace_groups,
			contact_name, contact_email, contact_phone, notes,
			is_active, edit_token, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21, $22
		)
		ON CONFLICT (pk, sk) DO NOTHING`,
		model.PartitionKey(r.ID),
		model.MetadataSortKey,
		gsi1pk,
		gsi1sk,
		r.ID,
		r.Name,
		string(r.DayOfWeek),
		r.StartTime,
		r.LocationName,
		r.Latitude,
		r.Longitude,
		r.TypicalDistances,
		string(r.Terrain),
		pace,
		nullStringPtr(r.ContactName),
		nullStringPtr(r.ContactEmail),
		nullStringPtr(r.ContactPhone),
		nullStringPtr(r.Notes),
		r.IsActive,
		r.EditToken,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert run %s: rows affected: %w", r.ID, err)
	}
	if n == 0 {
		return store.ErrConditionFailed
	}
	return nil
}

// queryUpdateRun builds one UPDATE touching only the columns named by m,
// plus the index columns m.Index calls for.
func queryUpdateRun(ctx context.Context, db executor, r *model.Run, m model.Mutation) (*model.Run, error) {
	var (
		sets   []string
		args   = []any{model.PartitionKey(r.ID), model.MetadataSortKey}
		argIdx = len(args)
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	for _, f := range m.Set {
		col, ok := fieldColumns[f]
		if !ok {
			return nil, fmt.Errorf("update run %s: unknown field %q", r.ID, f)
		}
		v, err := fieldValue(r, f)
		if err != nil {
			return nil, err
		}
		sets = append(sets, col+" = "+nextArg())
		args = append(args, v)
	}
	for _, f := range m.Clear {
		col, ok := fieldColumns[f]
		if !ok {
			return nil, fmt.Errorf("update run %s: unknown field %q", r.ID, f)
		}
		sets = append(sets, col+" = NULL")
	}

	switch m.Index.Action {
	case model.IndexRemove:
		sets = append(sets, "gsi1pk = NULL", "gsi1sk = NULL")
	case model.IndexAdd:
		sets = append(sets, "gsi1pk = "+nextArg())
		args = append(args, model.ActivePartition)
		sets = append(sets, "gsi1sk = "+nextArg())
		args = append(args, m.Index.SortKey)
	case model.IndexMove:
		sets = append(sets, "gsi1sk = "+nextArg())
		args = append(args, m.Index.SortKey)
	}

	if len(sets) == 0 {
		return nil, fmt.Errorf("update run %s: empty mutation", r.ID)
	}

	query := `UPDATE runs SET ` + strings.Join(sets, ", ") +
		` WHERE pk = $1 AND sk = $2 RETURNING ` + runColumns
	out, err := scanRun(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrConditionFailed
	}
	if err != nil {
		return nil, fmt.Errorf("update run %s: %w", r.ID, err)
	}
	return out, nil
}

func queryActiveRuns(ctx context.Context, db executor) ([]*model.Run, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE gsi1pk = $1 ORDER BY gsi1sk, pk`,
		model.ActivePartition)
	if err != nil {
		return nil, fmt.Errorf("query active runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// fieldValue returns the driver value of a field of r.
func fieldValue(r *model.Run, field string) (any, error) {
	switch field {
	case model.FieldName:
		return r.Name, nil
	case model.FieldDayOfWeek:
		return string(r.DayOfWeek), nil
	case model.FieldStartTime:
		return r.StartTime, nil
	case model.FieldLocationName:
		return r.LocationName, nil
	case model.FieldLatitude:
		return r.Latitude, nil
	case model.FieldLongitude:
		return r.Longitude, nil
	case model.FieldTypicalDistances:
		return r.TypicalDistances, nil
	case model.FieldTerrain:
		return string(r.Terrain), nil
	case model.FieldPaceGroups:
		return paceGroupsBytes(r.PaceGroups)
	case model.FieldContactName:
		return nullStringPtr(r.ContactName), nil
	case model.FieldContactEmail:
		return nullStringPtr(r.ContactEmail), nil
	case model.FieldContactPhone:
		return nullStringPtr(r.ContactPhone), nil
	case model.FieldNotes:
		return nullStringPtr(r.Notes), nil
	case model.FieldIsActive:
		return r.IsActive, nil
	case model.FieldUpdatedAt:
		return r.UpdatedAt, nil
	}
	return nil, fmt.Errorf("unknown field %q", field)
}
