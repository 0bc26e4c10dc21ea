package shifts

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"nurseconnect.org/internal/query"
)

const dateLayout = "2006-01-02"

// Filter narrows the shift listing. Zero-valued fields impose no constraint.
type Filter struct {
	FacilityID *int64
	Status     string
	// StartDate matches shifts whose start_time falls on that calendar date.
	StartDate *time.Time
	// EndDate matches shifts whose end_time calendar date is on or before it.
	EndDate *time.Time
}

// ParseFilter reads facility_id, status, startDate and endDate from a query
// string. Blank values are treated as absent.
func ParseFilter(v url.Values) (Filter, error) {
	var (
		f    Filter
		verr ValidationError
	)
	if raw := strings.TrimSpace(v.Get("facility_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr.Invalid = append(verr.Invalid, "facility_id")
		} else {
			f.FacilityID = &id
		}
	}
	f.Status = strings.TrimSpace(v.Get("status"))
	if raw := strings.TrimSpace(v.Get("startDate")); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			verr.Invalid = append(verr.Invalid, "startDate")
		} else {
			f.StartDate = &d
		}
	}
	if raw := strings.TrimSpace(v.Get("endDate")); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			verr.Invalid = append(verr.Invalid, "endDate")
		} else {
			f.EndDate = &d
		}
	}
	if len(verr.Invalid) > 0 {
		return Filter{}, &verr
	}
	return f, nil
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date as written, at UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Apply adds one AND predicate per present filter value. Dates are taken in
// UTC whatever the session TimeZone is.
func (f Filter) Apply(b *query.Builder) *query.Builder {
	if f.FacilityID != nil {
		b.Where("s.facility_id = ?", *f.FacilityID)
	}
	if f.Status != "" {
		b.Where("s.status = ?", f.Status)
	}
	if f.StartDate != nil {
		b.Where("(s.start_time AT TIME ZONE 'UTC')::date = ?::date", f.StartDate.Format(dateLayout))
	}
	if f.EndDate != nil {
		b.Where("(s.end_time AT TIME ZONE 'UTC')::date <= ?::date", f.EndDate.Format(dateLayout))
	}
	return b
}

// Match evaluates the filter against a shift in memory with the same
// semantics as the SQL predicates. Dates compare in UTC.
func (f Filter) Match(s Shift) bool {
	if f.FacilityID != nil && s.FacilityID != *f.FacilityID {
		return false
	}
	if f.Status != "" && string(s.Status) != f.Status {
		return false
	}
	if f.StartDate != nil && !truncateDate(s.StartTime).Equal(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && truncateDate(s.EndTime).After(*f.EndDate) {
		return false
	}
	return true
}

func truncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
