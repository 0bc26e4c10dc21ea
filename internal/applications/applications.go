// Package applications tracks workers applying to open shifts.
package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"nurseconnect.org/internal/shifts"
)

// Status is the state of an application.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// Application associates a worker with a shift.
type Application struct {
	ID        int64     `json:"id"`
	ShiftID   int64     `json:"shift_id"`
	UserID    int64     `json:"user_id"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows application listings.
type Filter struct {
	ShiftID *int64
	UserID  *int64
	Status  Status
}

// Store persists applications.
type Store interface {
	// CreateApplication inserts a pending application if the shift exists and
	// is open.
	CreateApplication(ctx context.Context, shiftID, userID int64, note string) (Application, error)
	GetApplication(ctx context.Context, id int64) (Application, error)
	ListApplications(ctx context.Context, f Filter) ([]Application, error)
	// AcceptApplication marks the application accepted, the shift filled and
	// every other pending application for that shift rejected, atomically.
	AcceptApplication(ctx context.Context, id int64) (Application, error)
	// SetApplicationStatus moves a pending application to status; decided
	// applications yield ErrAlreadyDecided.
	SetApplicationStatus(ctx context.Context, id int64, status Status) (Application, error)
}

var (
	ErrNotFound         = errors.New("application not found")
	ErrShiftNotFound    = shifts.ErrNotFound
	ErrShiftNotOpen     = errors.New("shift is not open")
	ErrAlreadyApplied   = errors.New("already applied to this shift")
	ErrInvalidStatus    = errors.New("invalid application status")
	ErrAlreadyDecided   = errors.New("application is no longer pending")
	ErrForbidden        = errors.New("not allowed to manage this application")
	ErrWorkerRequired   = errors.New("only workers can apply to shifts")
	ErrFacilityRequired = errors.New("only facilities can decide applications")
	ErrShiftRequired    = errors.New("shift_id is required")
)

// Service enforces who may apply and who may decide.
type Service struct {
	store  Store
	shifts shifts.Store
}

func NewService(store Store, shiftStore shifts.Store) *Service {
	return &Service{store: store, shifts: shiftStore}
}

// Apply records a pending application by a worker.
func (s *Service) Apply(ctx context.Context, userID, shiftID int64, note string) (Application, error) {
	if userID <= 0 {
		return Application{}, ErrWorkerRequired
	}
	return s.store.CreateApplication(ctx, shiftID, userID, strings.TrimSpace(note))
}

// List returns applications matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Application, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	items, err := s.store.ListApplications(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Application{}
	}
	return items, nil
}

// ListForWorker restricts the listing to the worker's own applications.
func (s *Service) ListForWorker(ctx context.Context, userID int64, f Filter) ([]Application, error) {
	if userID <= 0 {
		return nil, ErrWorkerRequired
	}
	f.UserID = &userID
	return s.List(ctx, f)
}

// ListForFacility lists applications to one shift owned by the facility.
func (s *Service) ListForFacility(ctx context.Context, facilityID int64, f Filter) ([]Application, error) {
	if facilityID <= 0 {
		return nil, ErrFacilityRequired
	}
	if f.ShiftID == nil {
		return nil, ErrShiftRequired
	}
	sh, err := s.shifts.GetShift(ctx, *f.ShiftID)
	if err != nil {
		return nil, err
	}
	if sh.FacilityID != facilityID {
		return nil, ErrForbidden
	}
	return s.List(ctx, f)
}

// Decide changes the status of a pending application on behalf of the
// facility that owns the shift.
func (s *Service) Decide(ctx context.Context, facilityID, id int64, status Status) (Application, error) {
	if facilityID <= 0 {
		return Application{}, ErrFacilityRequired
	}
	if status != StatusAccepted && status != StatusRejected {
		return Application{}, ErrInvalidStatus
	}
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	sh, err := s.shifts.GetShift(ctx, app.ShiftID)
	if err != nil {
		return Application{}, err
	}
	if sh.FacilityID != facilityID {
		return Application{}, ErrForbidden
	}
	if status == StatusAccepted {
		return s.store.AcceptApplication(ctx, id)
	}
	return s.store.SetApplicationStatus(ctx, id, status)
}

// Withdraw lets a worker retract their own pending application.
func (s *Service) Withdraw(ctx context.Context, userID, id int64) (Application, error) {
	if userID <= 0 {
		return Application{}, ErrWorkerRequired
	}
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.UserID != userID {
		return Application{}, ErrForbidden
	}
	return s.store.SetApplicationStatus(ctx, id, StatusWithdrawn)
}
