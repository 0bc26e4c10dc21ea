package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nurseconnect.org/internal/facilities"
)

const facilityColumns = `
  id,
  name,
  COALESCE(address, ''),
  COALESCE(city, ''),
  COALESCE(state, ''),
  COALESCE(zip_code, ''),
  COALESCE(contact_name, ''),
  COALESCE(contact_phone, ''),
  contact_email,
  created_at`

func scanFacility(row rowScanner, extra ...any) (facilities.Facility, error) {
	var f facilities.Facility
	dest := []any{
		&f.ID, &f.Name, &f.Address, &f.City, &f.State, &f.ZipCode,
		&f.ContactName, &f.ContactPhone, &f.ContactEmail, &f.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return facilities.Facility{}, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return f, nil
}

func (s *Store) CreateFacility(ctx context.Context, reg facilities.Registration, passwordHash string) (facilities.Facility, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO facilities (name, address, city, state, zip_code, contact_name, contact_phone, contact_email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING`+facilityColumns,
		reg.Name, reg.Address, reg.City, reg.State, reg.ZipCode,
		reg.ContactName, reg.ContactPhone, reg.ContactEmail, passwordHash)
	f, err := scanFacility(row)
	if err != nil {
		if isPgCode(err, pgErrUniqueViolation) {
			return facilities.Facility{}, facilities.ErrConflict
		}
		return facilities.Facility{}, fmt.Errorf("insert facility: %w", err)
	}
	return f, nil
}

func (s *Store) ListFacilities(ctx context.Context) ([]facilities.Facility, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+facilityColumns+`
		FROM facilities
		ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	defer rows.Close()

	out := []facilities.Facility{}
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) GetFacility(ctx context.Context, id int64) (facilities.Facility, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+facilityColumns+`
		FROM facilities
		WHERE id = $1`, id)
	f, err := scanFacility(row)
	if errors.Is(err, sql.ErrNoRows) {
		return facilities.Facility{}, facilities.ErrNotFound
	}
	if err != nil {
		return facilities.Facility{}, fmt.Errorf("get facility: %w", err)
	}
	return f, nil
}

func (s *Store) FacilityByEmail(ctx context.Context, email string) (facilities.Facility, string, error) {
	var hash string
	row := s.db.QueryRowContext(ctx, `SELECT`+facilityColumns+`,
		  password_hash
		FROM facilities
		WHERE lower(contact_email) = lower($1)`, email)
	f, err := scanFacility(row, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return facilities.Facility{}, "", facilities.ErrNotFound
	}
	if err != nil {
		return facilities.Facility{}, "", fmt.Errorf("facility by email: %w", err)
	}
	return f, hash, nil
}
