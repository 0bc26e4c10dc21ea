// Package memory implements every store contract in process. It backs the
// HTTP tests and the API when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"nurseconnect.org/internal/applications"
	"nurseconnect.org/internal/auth"
	"nurseconnect.org/internal/facilities"
	"nurseconnect.org/internal/shifts"
)

type facilityRow struct {
	facilities.Facility
	hash string
}

type userRow struct {
	auth.User
	hash string
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	facilities map[int64]*facilityRow
	shifts     map[int64]shifts.Shift
	users      map[int64]*userRow
	apps       map[int64]applications.Application
	seq        int64
	now        func() time.Time
}

var (
	_ shifts.Store       = (*Store)(nil)
	_ facilities.Store   = (*Store)(nil)
	_ auth.UserStore     = (*Store)(nil)
	_ applications.Store = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		facilities: make(map[int64]*facilityRow),
		shifts:     make(map[int64]shifts.Shift),
		users:      make(map[int64]*userRow),
		apps:       make(map[int64]applications.Application),
		now:        time.Now,
	}
}

// Now reports the store clock; it never fails.
func (s *Store) Now(ctx context.Context) (time.Time, error) {
	return s.now().UTC(), nil
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// --- facilities ---

func (s *Store) CreateFacility(ctx context.Context, reg facilities.Registration, passwordHash string) (facilities.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.facilities {
		if strings.EqualFold(f.ContactEmail, reg.ContactEmail) {
			return facilities.Facility{}, facilities.ErrConflict
		}
	}
	fac := facilities.Facility{
		ID:           s.nextID(),
		Name:         reg.Name,
		Address:      reg.Address,
		City:         reg.City,
		State:        reg.State,
		ZipCode:      reg.ZipCode,
		ContactName:  reg.ContactName,
		ContactPhone: reg.ContactPhone,
		ContactEmail: reg.ContactEmail,
		CreatedAt:    s.now().UTC(),
	}
	s.facilities[fac.ID] = &facilityRow{Facility: fac, hash: passwordHash}
	return fac, nil
}

func (s *Store) ListFacilities(ctx context.Context) ([]facilities.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]facilities.Facility, 0, len(s.facilities))
	for _, f := range s.facilities {
		out = append(out, f.Facility)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetFacility(ctx context.Context, id int64) (facilities.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facilities[id]
	if !ok {
		return facilities.Facility{}, facilities.ErrNotFound
	}
	return f.Facility, nil
}

func (s *Store) FacilityByEmail(ctx context.Context, email string) (facilities.Facility, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.facilities {
		if strings.EqualFold(f.ContactEmail, email) {
			return f.Facility, f.hash, nil
		}
	}
	return facilities.Facility{}, "", facilities.ErrNotFound
}

// --- users ---

// AddUser registers a worker account with an already hashed password.
func (s *Store) AddUser(u auth.User, passwordHash string) auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	s.users[u.ID] = &userRow{User: u, hash: passwordHash}
	return u
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u.User, u.hash, nil
		}
	}
	return auth.User{}, "", auth.ErrNotFound
}

// --- shifts ---

func (s *Store) CreateShift(ctx context.Context, rec shifts.Record) (shifts.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fac, ok := s.facilities[rec.FacilityID]
	if !ok {
		return shifts.Shift{}, shifts.ErrFacilityNotFound
	}
	sh := fromRecord(s.nextID(), rec, fac.Name)
	s.shifts[sh.ID] = sh
	return copyShift(sh), nil
}

func (s *Store) GetShift(ctx context.Context, id int64) (shifts.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shifts[id]
	if !ok {
		return shifts.Shift{}, shifts.ErrNotFound
	}
	return copyShift(sh), nil
}

func (s *Store) ListShifts(ctx context.Context, f shifts.Filter) ([]shifts.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shifts.Shift, 0, len(s.shifts))
	for _, sh := range s.shifts {
		if f.Match(sh) {
			out = append(out, copyShift(sh))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (s *Store) ReplaceShift(ctx context.Context, id int64, rec shifts.Record) (shifts.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shifts[id]; !ok {
		return shifts.Shift{}, shifts.ErrNotFound
	}
	fac, ok := s.facilities[rec.FacilityID]
	if !ok {
		return shifts.Shift{}, shifts.ErrFacilityNotFound
	}
	sh := fromRecord(id, rec, fac.Name)
	s.shifts[id] = sh
	return copyShift(sh), nil
}

func (s *Store) DeleteShift(ctx context.Context, id int64) (shifts.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shifts[id]
	if !ok {
		return shifts.Shift{}, shifts.ErrNotFound
	}
	delete(s.shifts, id)
	for appID, app := range s.apps {
		if app.ShiftID == id {
			delete(s.apps, appID)
		}
	}
	return sh, nil
}

func fromRecord(id int64, rec shifts.Record, facilityName string) shifts.Shift {
	return shifts.Shift{
		ID:           id,
		FacilityID:   rec.FacilityID,
		FacilityName: facilityName,
		Unit:         rec.Unit,
		ShiftType:    rec.ShiftType,
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		HourlyRate:   rec.HourlyRate,
		Status:       rec.Status,
		Requirements: append([]string{}, rec.Requirements...),
	}
}

func copyShift(sh shifts.Shift) shifts.Shift {
	sh.Requirements = append([]string{}, sh.Requirements...)
	return sh
}

// --- applications ---

func (s *Store) CreateApplication(ctx context.Context, shiftID, userID int64, note string) (applications.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shifts[shiftID]
	if !ok {
		return applications.Application{}, applications.ErrShiftNotFound
	}
	if sh.Status != shifts.StatusOpen {
		return applications.Application{}, applications.ErrShiftNotOpen
	}
	for _, app := range s.apps {
		if app.ShiftID == shiftID && app.UserID == userID {
			return applications.Application{}, applications.ErrAlreadyApplied
		}
	}
	now := s.now().UTC()
	app := applications.Application{
		ID:        s.nextID(),
		ShiftID:   shiftID,
		UserID:    userID,
		Status:    applications.StatusPending,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.apps[app.ID] = app
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id int64) (applications.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	return app, nil
}

func (s *Store) ListApplications(ctx context.Context, f applications.Filter) ([]applications.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []applications.Application
	for _, app := range s.apps {
		if f.ShiftID != nil && app.ShiftID != *f.ShiftID {
			continue
		}
		if f.UserID != nil && app.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && app.Status != f.Status {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) AcceptApplication(ctx context.Context, id int64) (applications.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	if app.Status != applications.StatusPending {
		return applications.Application{}, applications.ErrAlreadyDecided
	}
	sh, ok := s.shifts[app.ShiftID]
	if !ok {
		return applications.Application{}, applications.ErrShiftNotFound
	}
	if sh.Status != shifts.StatusOpen {
		return applications.Application{}, applications.ErrShiftNotOpen
	}
	now := s.now().UTC()
	sh.Status = shifts.StatusFilled
	s.shifts[sh.ID] = sh
	for otherID, other := range s.apps {
		if other.ShiftID == sh.ID && otherID != id && other.Status == applications.StatusPending {
			other.Status = applications.StatusRejected
			other.UpdatedAt = now
			s.apps[otherID] = other
		}
	}
	app.Status = applications.StatusAccepted
	app.UpdatedAt = now
	s.apps[id] = app
	return app, nil
}

func (s *Store) SetApplicationStatus(ctx context.Context, id int64, status applications.Status) (applications.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	if app.Status != applications.StatusPending {
		return applications.Application{}, applications.ErrAlreadyDecided
	}
	app.Status = status
	app.UpdatedAt = s.now().UTC()
	s.apps[id] = app
	return app, nil
}
