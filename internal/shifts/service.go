package shifts

import (
	"context"
	"errors"
	"time"
)

const (
	EventCreated = "shift.created"
	EventUpdated = "shift.updated"
	EventDeleted = "shift.deleted"
)

// Event describes a change to a shift for live subscribers.
type Event struct {
	Type       string    `json:"type"`
	ShiftID    int64     `json:"shift_id"`
	FacilityID int64     `json:"facility_id"`
	Status     Status    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher receives shift events. Publish must not block.
type Publisher interface {
	Publish(evt Event)
}

// Service applies lifecycle rules on top of a Store.
type Service struct {
	store  Store
	events Publisher
	now    func() time.Time
}

// NewService wires a store and an optional event publisher.
func NewService(store Store, events Publisher) *Service {
	return &Service{store: store, events: events, now: time.Now}
}

func (s *Service) Create(ctx context.Context, d Draft) (Shift, error) {
	rec, err := d.ForCreate()
	if err != nil {
		return Shift{}, err
	}
	sh, err := s.store.CreateShift(ctx, rec)
	if err != nil {
		return Shift{}, err
	}
	s.publish(EventCreated, sh)
	return sh, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Shift, error) {
	return s.store.GetShift(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Shift, error) {
	items, err := s.store.ListShifts(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Shift{}
	}
	return items, nil
}

// Edit replaces every field of an existing shift. A missing shift is reported
// as ErrNotFound even when the draft itself is invalid.
func (s *Service) Edit(ctx context.Context, id int64, d Draft) (Shift, error) {
	rec, verr := d.ForEdit()
	if verr != nil {
		if _, err := s.store.GetShift(ctx, id); err != nil {
			return Shift{}, err
		}
		return Shift{}, verr
	}
	sh, err := s.store.ReplaceShift(ctx, id, rec)
	if err != nil {
		return Shift{}, err
	}
	s.publish(EventUpdated, sh)
	return sh, nil
}

// Delete removes a shift and returns the identifying columns of the row.
func (s *Service) Delete(ctx context.Context, id int64) (Shift, error) {
	sh, err := s.store.DeleteShift(ctx, id)
	if err != nil {
		return Shift{}, err
	}
	s.publish(EventDeleted, sh)
	return sh, nil
}

func (s *Service) publish(kind string, sh Shift) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		Type:       kind,
		ShiftID:    sh.ID,
		FacilityID: sh.FacilityID,
		Status:     sh.Status,
		Timestamp:  s.now().UTC(),
	})
}

// IsValidation reports whether err is a shift validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
