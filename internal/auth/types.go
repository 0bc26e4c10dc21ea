package auth

import "context"

// Kind distinguishes worker and facility identities.
type Kind string

const (
	KindWorker   Kind = "worker"
	KindFacility Kind = "facility"
)

// User is a worker account. The credential hash stays in the store.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Principal is the identity carried by a verified token.
type Principal struct {
	Kind  Kind
	ID    int64
	Email string
	Role  string
}

// IsFacility reports whether the principal acts for a facility.
func (p Principal) IsFacility() bool { return p.Kind == KindFacility }

// IsWorker reports whether the principal is a worker.
func (p Principal) IsWorker() bool { return p.Kind == KindWorker }

// UserStore looks up worker credentials.
type UserStore interface {
	// UserByEmail returns the user and its password hash, or ErrNotFound.
	UserByEmail(ctx context.Context, email string) (User, string, error)
}

// Credentials is a login body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
