// Package shifts holds the shift model, its lifecycle rules and the filtered
// listing query.
package shifts

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle state of a shift.
type Status string

const (
	StatusOpen      Status = "open"
	StatusFilled    Status = "filled"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var statuses = []Status{StatusOpen, StatusFilled, StatusCancelled, StatusCompleted}

// Valid reports whether s belongs to the status enumeration.
func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Statuses returns the accepted status values.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// Shift is a bookable work interval at a facility. FacilityName is only
// populated by reads joined with facilities.
type Shift struct {
	ID           int64     `json:"id"`
	FacilityID   int64     `json:"facility_id"`
	FacilityName string    `json:"facility_name,omitempty"`
	Unit         string    `json:"unit"`
	ShiftType    string    `json:"shift_type"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	HourlyRate   float64   `json:"hourly_rate"`
	Status       Status    `json:"status"`
	Requirements []string  `json:"requirements"`
}

// Record is a validated set of column values ready to be written.
type Record struct {
	FacilityID   int64
	Unit         string
	ShiftType    string
	StartTime    time.Time
	EndTime      time.Time
	HourlyRate   float64
	Status       Status
	Requirements []string
}

// Store persists shifts. ReplaceShift and DeleteShift are single conditional
// statements and return ErrNotFound when no row matched.
type Store interface {
	CreateShift(ctx context.Context, rec Record) (Shift, error)
	GetShift(ctx context.Context, id int64) (Shift, error)
	ListShifts(ctx context.Context, f Filter) ([]Shift, error)
	ReplaceShift(ctx context.Context, id int64, rec Record) (Shift, error)
	DeleteShift(ctx context.Context, id int64) (Shift, error)
}

var (
	ErrNotFound         = errors.New("shift not found")
	ErrFacilityNotFound = errors.New("facility does not exist")
)

// ValidationError lists the request fields that were missing or malformed.
type ValidationError struct {
	Missing []string
	Invalid []string
	Reason  string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(parts) == 0 {
		return "invalid shift"
	}
	return strings.Join(parts, "; ")
}

// MissingFields reports whether the error is about absent required fields.
func (e *ValidationError) MissingFields() bool { return len(e.Missing) > 0 }
