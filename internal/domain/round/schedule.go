package round

import "time"

// DrawSchedule is a fixed weekly draw schedule: a set of weekdays with a
// cutoff time in a given location.
type DrawSchedule struct {
	weekdays map[time.Weekday]bool
	hour     int
	minute   int
	location *time.Location
}

// NewDrawSchedule builds a schedule. Weekdays use time.Weekday numbering
// (0 = Sunday). The location anchors the cutoff hour; draw dates are
// returned in UTC.
func NewDrawSchedule(weekdays []time.Weekday, hour, minute int, location *time.Location) DrawSchedule {
	wd := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		wd[d] = true
	}
	if location == nil {
		location = time.UTC
	}
	return DrawSchedule{
		weekdays: wd,
		hour:     hour,
		minute:   minute,
		location: location,
	}
}

// NextDrawDate returns the next draw slot strictly after now. A draw day whose
// cutoff has already passed does not count; the slot rolls to the following
// qualifying weekday.
func (s DrawSchedule) NextDrawDate(now time.Time) time.Time {
	local := now.In(s.location)

	for offset := 0; offset <= 7; offset++ {
		day := local.AddDate(0, 0, offset)
		if !s.weekdays[day.Weekday()] {
			continue
		}
		slot := time.Date(day.Year(), day.Month(), day.Day(), s.hour, s.minute, 0, 0, s.location)
		if slot.After(now) {
			return slot.UTC()
		}
	}

	// Unreachable with at least one weekday configured.
	return time.Time{}
}
