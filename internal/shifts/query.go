package shifts

import "nurseconnect.org/internal/query"

// SelectJoined reads shifts together with the owning facility's name.
const SelectJoined = `
SELECT
  s.id,
  s.facility_id,
  f.name AS facility_name,
  s.unit,
  s.shift_type,
  s.start_time,
  s.end_time,
  s.hourly_rate,
  s.status,
  s.requirements
FROM shifts s
JOIN facilities f ON s.facility_id = f.id`

// ListQuery renders the filtered listing, always ordered by start_time.
func ListQuery(f Filter) (string, []any) {
	b := query.Select(SelectJoined)
	f.Apply(b)
	return b.OrderBy("s.start_time ASC", "s.id ASC").Build()
}
