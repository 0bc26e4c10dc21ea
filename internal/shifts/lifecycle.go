package shifts

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Draft is the caller-supplied body for creating or replacing a shift.
type Draft struct {
	FacilityID   int64      `json:"facility_id" validate:"required"`
	Unit         string     `json:"unit" validate:"required"`
	ShiftType    string     `json:"shift_type" validate:"required"`
	StartTime    *time.Time `json:"start_time" validate:"required"`
	EndTime      *time.Time `json:"end_time" validate:"required"`
	HourlyRate   float64    `json:"hourly_rate" validate:"required,gt=0"`
	Status       string     `json:"status"`
	Requirements []string   `json:"requirements"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// ForCreate validates a new shift and applies creation rules: status is always
// open whatever the caller sent, and absent requirements become an empty list.
func (d Draft) ForCreate() (Record, error) {
	rec, verr := d.record()
	if verr != nil {
		return Record{}, verr
	}
	rec.Status = StatusOpen
	return rec, nil
}

// ForEdit validates a full replacement. Every field, status included, is taken
// from the draft; status must belong to the enumeration.
func (d Draft) ForEdit() (Record, error) {
	rec, verr := d.record()
	status := Status(strings.TrimSpace(d.Status))
	switch {
	case status == "":
		verr = verr.add(&ValidationError{Missing: []string{"status"}})
	case !status.Valid():
		verr = verr.add(&ValidationError{Invalid: []string{"status"}})
	}
	if verr != nil {
		return Record{}, verr
	}
	rec.Status = status
	return rec, nil
}

func (d Draft) record() (Record, *ValidationError) {
	d.Unit = strings.TrimSpace(d.Unit)
	d.ShiftType = strings.TrimSpace(d.ShiftType)

	var verr *ValidationError
	if err := draftValidator().Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Record{}, &ValidationError{Reason: err.Error()}
		}
		verr = &ValidationError{}
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				verr.Missing = append(verr.Missing, fe.Field())
			} else {
				verr.Invalid = append(verr.Invalid, fe.Field())
			}
		}
		return Record{}, verr
	}
	if !d.EndTime.After(*d.StartTime) {
		return Record{}, &ValidationError{Invalid: []string{"end_time"}, Reason: "end_time must be after start_time"}
	}

	reqs := make([]string, 0, len(d.Requirements))
	for _, r := range d.Requirements {
		if r = strings.TrimSpace(r); r != "" {
			reqs = append(reqs, r)
		}
	}
	return Record{
		FacilityID:   d.FacilityID,
		Unit:         d.Unit,
		ShiftType:    d.ShiftType,
		StartTime:    d.StartTime.UTC(),
		EndTime:      d.EndTime.UTC(),
		HourlyRate:   d.HourlyRate,
		Requirements: reqs,
	}, nil
}

func (e *ValidationError) add(other *ValidationError) *ValidationError {
	if e == nil {
		return other
	}
	e.Missing = append(e.Missing, other.Missing...)
	e.Invalid = append(e.Invalid, other.Invalid...)
	return e
}
