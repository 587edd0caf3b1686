package round

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSchedule(t *testing.T) DrawSchedule {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Monday, Wednesday, Saturday at 22:59.
	return NewDrawSchedule(
		[]time.Weekday{time.Monday, time.Wednesday, time.Saturday},
		22, 59, loc,
	)
}

func TestNextDrawDateSameDayBeforeCutoff(t *testing.T) {
	s := newTestSchedule(t)
	loc, _ := time.LoadLocation("America/New_York")

	// Wednesday 10:00, well before the 22:59 cutoff.
	now := time.Date(2025, 6, 4, 10, 0, 0, 0, loc)
	next := s.NextDrawDate(now)

	assert.Equal(t, time.Date(2025, 6, 4, 22, 59, 0, 0, loc).UTC(), next)
}

func TestNextDrawDateSameDayAfterCutoff(t *testing.T) {
	s := newTestSchedule(t)
	loc, _ := time.LoadLocation("America/New_York")

	// Wednesday 23:30, past the cutoff: next slot is Saturday.
	now := time.Date(2025, 6, 4, 23, 30, 0, 0, loc)
	next := s.NextDrawDate(now)

	assert.Equal(t, time.Date(2025, 6, 7, 22, 59, 0, 0, loc).UTC(), next)
}

func TestNextDrawDateExactlyAtCutoff(t *testing.T) {
	s := newTestSchedule(t)
	loc, _ := time.LoadLocation("America/New_York")

	// Exactly 22:59 does not count; the slot must be strictly in the future.
	now := time.Date(2025, 6, 4, 22, 59, 0, 0, loc)
	next := s.NextDrawDate(now)

	assert.Equal(t, time.Date(2025, 6, 7, 22, 59, 0, 0, loc).UTC(), next)
}

func TestNextDrawDateSkipsNonDrawDays(t *testing.T) {
	s := newTestSchedule(t)
	loc, _ := time.LoadLocation("America/New_York")

	// Thursday: next slot is Saturday.
	now := time.Date(2025, 6, 5, 12, 0, 0, 0, loc)
	next := s.NextDrawDate(now)

	assert.Equal(t, time.Date(2025, 6, 7, 22, 59, 0, 0, loc).UTC(), next)
}

func TestNextDrawDateSundayRollsToMonday(t *testing.T) {
	s := newTestSchedule(t)
	loc, _ := time.LoadLocation("America/New_York")

	now := time.Date(2025, 6, 8, 8, 0, 0, 0, loc)
	next := s.NextDrawDate(now)

	assert.Equal(t, time.Date(2025, 6, 9, 22, 59, 0, 0, loc).UTC(), next)
	assert.Equal(t, time.Monday, next.In(loc).Weekday())
}

func TestNextDrawDateReturnsUTC(t *testing.T) {
	s := newTestSchedule(t)
	next := s.NextDrawDate(time.Now())

	assert.Equal(t, time.UTC, next.Location())
	assert.True(t, next.After(time.Now()))
}

func TestNewDrawScheduleNilLocationDefaultsToUTC(t *testing.T) {
	s := NewDrawSchedule([]time.Weekday{time.Friday}, 12, 0, nil)

	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday
	next := s.NextDrawDate(now)

	assert.Equal(t, time.Date(2025, 6, 6, 12, 0, 0, 0, time.UTC), next)
}
