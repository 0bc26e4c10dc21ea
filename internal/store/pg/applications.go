package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nurseconnect.org/internal/applications"
	"nurseconnect.org/internal/query"
	"nurseconnect.org/internal/shifts"
)

const applicationColumns = `
  id,
  shift_id,
  user_id,
  status,
  COALESCE(note, ''),
  created_at,
  updated_at`

func scanApplication(row rowScanner) (applications.Application, error) {
	var (
		a      applications.Application
		status string
	)
	if err := row.Scan(&a.ID, &a.ShiftID, &a.UserID, &status, &a.Note, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return applications.Application{}, err
	}
	a.Status = applications.Status(status)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

// CreateApplication inserts only when the shift is open; a miss is resolved
// into not-found or not-open by a follow-up read.
func (s *Store) CreateApplication(ctx context.Context, shiftID, userID int64, note string) (applications.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO applications (shift_id, user_id, status, note)
		SELECT id, $2, 'pending', NULLIF($3, '')
		FROM shifts
		WHERE id = $1 AND status = 'open'
		RETURNING`+applicationColumns,
		shiftID, userID, note)
	a, err := scanApplication(row)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, sql.ErrNoRows):
		return applications.Application{}, s.shiftState(ctx, shiftID)
	case isPgCode(err, pgErrUniqueViolation):
		return applications.Application{}, applications.ErrAlreadyApplied
	case isPgCode(err, pgErrForeignKeyViolation):
		return applications.Application{}, applications.ErrWorkerRequired
	default:
		return applications.Application{}, fmt.Errorf("insert application: %w", err)
	}
}

func (s *Store) shiftState(ctx context.Context, shiftID int64) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM shifts WHERE id = $1`, shiftID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return applications.ErrShiftNotFound
	}
	if err != nil {
		return fmt.Errorf("shift state: %w", err)
	}
	return applications.ErrShiftNotOpen
}

func (s *Store) GetApplication(ctx context.Context, id int64) (applications.Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+applicationColumns+`
		FROM applications
		WHERE id = $1`, id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return applications.Application{}, applications.ErrNotFound
	}
	if err != nil {
		return applications.Application{}, fmt.Errorf("get application: %w", err)
	}
	return a, nil
}

func (s *Store) ListApplications(ctx context.Context, f applications.Filter) ([]applications.Application, error) {
	b := query.Select(`SELECT` + applicationColumns + `
FROM applications`)
	if f.ShiftID != nil {
		b.Where("shift_id = ?", *f.ShiftID)
	}
	if f.UserID != nil {
		b.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		b.Where("status = ?", string(f.Status))
	}
	stmt, args := b.OrderBy("created_at DESC", "id DESC").Build()

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []applications.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcceptApplication locks the application and its shift, fills the shift and
// rejects competing pending applications in one transaction.
func (s *Store) AcceptApplication(ctx context.Context, id int64) (applications.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return applications.Application{}, err
	}
	defer tx.Rollback()

	var (
		shiftID     int64
		appStatus   string
		shiftStatus string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT a.shift_id, a.status, s.status
		FROM applications a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.id = $1
		FOR UPDATE
	`, id).Scan(&shiftID, &appStatus, &shiftStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return applications.Application{}, applications.ErrNotFound
	}
	if err != nil {
		return applications.Application{}, fmt.Errorf("lock application: %w", err)
	}
	if applications.Status(appStatus) != applications.StatusPending {
		return applications.Application{}, applications.ErrAlreadyDecided
	}
	if shifts.Status(shiftStatus) != shifts.StatusOpen {
		return applications.Application{}, applications.ErrShiftNotOpen
	}

	if _, err := tx.ExecContext(ctx, `UPDATE shifts SET status = 'filled' WHERE id = $1`, shiftID); err != nil {
		return applications.Application{}, fmt.Errorf("fill shift: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = 'rejected', updated_at = NOW()
		WHERE shift_id = $1 AND id <> $2 AND status = 'pending'
	`, shiftID, id); err != nil {
		return applications.Application{}, fmt.Errorf("reject competing applications: %w", err)
	}
	row := tx.QueryRowContext(ctx, `
		UPDATE applications
		SET status = 'accepted', updated_at = NOW()
		WHERE id = $1
		RETURNING`+applicationColumns, id)
	a, err := scanApplication(row)
	if err != nil {
		return applications.Application{}, fmt.Errorf("accept application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return applications.Application{}, err
	}
	return a, nil
}

func (s *Store) SetApplicationStatus(ctx context.Context, id int64, status applications.Status) (applications.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE applications
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING`+applicationColumns, id, string(status))
	a, err := scanApplication(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return applications.Application{}, fmt.Errorf("update application: %w", err)
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return applications.Application{}, fmt.Errorf("application exists: %w", err)
	}
	if !exists {
		return applications.Application{}, applications.ErrNotFound
	}
	return applications.Application{}, applications.ErrAlreadyDecided
}
