package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nurseconnect.org/internal/auth"
)

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, string, error) {
	var (
		u    auth.User
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(first_name, ''), COALESCE(last_name, ''), role, password_hash
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, "", auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, "", fmt.Errorf("user by email: %w", err)
	}
	return u, hash, nil
}
