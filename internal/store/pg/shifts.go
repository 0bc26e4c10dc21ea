package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nurseconnect.org/internal/shifts"
)

const shiftColumns = `
  s.id,
  s.facility_id,
  f.name AS facility_name,
  s.unit,
  s.shift_type,
  s.start_time,
  s.end_time,
  s.hourly_rate,
  s.status,
  s.requirements`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (shifts.Shift, error) {
	var (
		sh     shifts.Shift
		status string
		reqs   []string
	)
	if err := row.Scan(
		&sh.ID, &sh.FacilityID, &sh.FacilityName, &sh.Unit, &sh.ShiftType,
		&sh.StartTime, &sh.EndTime, &sh.HourlyRate, &status, pq.Array(&reqs),
	); err != nil {
		return shifts.Shift{}, err
	}
	sh.Status = shifts.Status(status)
	if reqs == nil {
		reqs = []string{}
	}
	sh.Requirements = reqs
	return sh, nil
}

func (s *Store) CreateShift(ctx context.Context, rec shifts.Record) (shifts.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH s AS (
			INSERT INTO shifts (facility_id, unit, shift_type, start_time, end_time, hourly_rate, status, requirements)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT`+shiftColumns+`
		FROM s JOIN facilities f ON s.facility_id = f.id
	`, rec.FacilityID, rec.Unit, rec.ShiftType, rec.StartTime, rec.EndTime, rec.HourlyRate, string(rec.Status), pq.Array(requirements(rec)))
	sh, err := scanShift(row)
	if err != nil {
		if isPgCode(err, pgErrForeignKeyViolation) {
			return shifts.Shift{}, shifts.ErrFacilityNotFound
		}
		return shifts.Shift{}, fmt.Errorf("insert shift: %w", err)
	}
	return sh, nil
}

func (s *Store) GetShift(ctx context.Context, id int64) (shifts.Shift, error) {
	row := s.db.QueryRowContext(ctx, shifts.SelectJoined+`
		WHERE s.id = $1
	`, id)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return shifts.Shift{}, shifts.ErrNotFound
	}
	if err != nil {
		return shifts.Shift{}, fmt.Errorf("get shift: %w", err)
	}
	return sh, nil
}

func (s *Store) ListShifts(ctx context.Context, f shifts.Filter) ([]shifts.Shift, error) {
	stmt, args := shifts.ListQuery(f)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var out []shifts.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return out, nil
}

// ReplaceShift overwrites every column in one conditional UPDATE so the
// existence check and the write cannot interleave with a delete.
func (s *Store) ReplaceShift(ctx context.Context, id int64, rec shifts.Record) (shifts.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH s AS (
			UPDATE shifts
			SET
				facility_id = $1,
				unit = $2,
				shift_type = $3,
				start_time = $4,
				end_time = $5,
				hourly_rate = $6,
				status = $7,
				requirements = $8
			WHERE id = $9
			RETURNING *
		)
		SELECT`+shiftColumns+`
		FROM s JOIN facilities f ON s.facility_id = f.id
	`, rec.FacilityID, rec.Unit, rec.ShiftType, rec.StartTime, rec.EndTime, rec.HourlyRate, string(rec.Status), pq.Array(requirements(rec)), id)
	sh, err := scanShift(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return shifts.Shift{}, shifts.ErrNotFound
	case isPgCode(err, pgErrForeignKeyViolation):
		return shifts.Shift{}, shifts.ErrFacilityNotFound
	case err != nil:
		return shifts.Shift{}, fmt.Errorf("update shift: %w", err)
	}
	return sh, nil
}

func (s *Store) DeleteShift(ctx context.Context, id int64) (shifts.Shift, error) {
	var (
		sh     shifts.Shift
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM shifts WHERE id = $1
		RETURNING id, facility_id, status
	`, id).Scan(&sh.ID, &sh.FacilityID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return shifts.Shift{}, shifts.ErrNotFound
	}
	if err != nil {
		return shifts.Shift{}, fmt.Errorf("delete shift: %w", err)
	}
	sh.Status = shifts.Status(status)
	return sh, nil
}

func requirements(rec shifts.Record) []string {
	if rec.Requirements == nil {
		return []string{}
	}
	return rec.Requirements
}
