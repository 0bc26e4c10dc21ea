// Package facilities models healthcare facilities that post shifts.
package facilities

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Facility is the public view of a facility. The credential hash is never part
// of this type.
type Facility struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zip_code"`
	ContactName  string    `json:"contact_name"`
	ContactPhone string    `json:"contact_phone"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Registration is the signup body for a new facility.
type Registration struct {
	Name         string `json:"name" validate:"required"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
}

// Normalize trims surrounding whitespace and lower-cases the contact email.
func (r Registration) Normalize() Registration {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	r.ZipCode = strings.TrimSpace(r.ZipCode)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.ContactEmail = strings.ToLower(strings.TrimSpace(r.ContactEmail))
	return r
}

// Store persists facilities.
type Store interface {
	CreateFacility(ctx context.Context, reg Registration, passwordHash string) (Facility, error)
	ListFacilities(ctx context.Context) ([]Facility, error)
	GetFacility(ctx context.Context, id int64) (Facility, error)
	// FacilityByEmail returns the facility together with its credential hash
	// for login checks only.
	FacilityByEmail(ctx context.Context, email string) (Facility, string, error)
}

var (
	ErrNotFound = errors.New("facility not found")
	ErrConflict = errors.New("facility with this email already exists")
)
