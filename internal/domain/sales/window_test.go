package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShift(t *testing.T) {
	for in, want := range map[string]Shift{"": ShiftAll, "AM": ShiftAM, "pm": ShiftPM, " Am ": ShiftAM} {
		got, err := ParseShift(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseShift("night")
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "shift", qerr.Field)
}

func TestDayWindow_ShiftBoundary(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	beforeNoon := time.Date(2025, 6, 10, 11, 59, 59, 0, time.UTC)
	noon := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	am, err := DayWindow("", "", ShiftAM, time.UTC, now)
	require.NoError(t, err)
	pm, err := DayWindow("", "", ShiftPM, time.UTC, now)
	require.NoError(t, err)

	assert.True(t, am.Contains(beforeNoon))
	assert.False(t, am.Contains(noon))
	assert.False(t, pm.Contains(beforeNoon))
	assert.True(t, pm.Contains(noon))
}

func TestDayWindow_Range(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	w, err := DayWindow("2025-06-01", "2025-06-03", ShiftAll, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), w.To)

	assert.True(t, w.Contains(time.Date(2025, 6, 3, 23, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC)))
}

func TestDayWindow_ShiftAppliesToEveryDay(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	w, err := DayWindow("2025-06-01", "2025-06-02", ShiftPM, time.UTC, now)
	require.NoError(t, err)

	assert.True(t, w.Contains(time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)))
}

func TestDayWindow_Location(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	w, err := DayWindow("", "", ShiftAM, eat, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, eat), w.From)

	// 08:30 UTC is 11:30 in EAT.
	assert.True(t, w.Contains(time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)))
	// 09:00 UTC is noon in EAT.
	assert.False(t, w.Contains(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)))
}

func TestDayWindow_Invalid(t *testing.T) {
	now := time.Now()
	var qerr *QueryError

	_, err := DayWindow("06/01/2025", "", ShiftAll, time.UTC, now)
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "startDate", qerr.Field)

	_, err = DayWindow("2025-06-01", "yesterday", ShiftAll, time.UTC, now)
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "endDate", qerr.Field)

	_, err = DayWindow("2025-06-05", "2025-06-01", ShiftAll, time.UTC, now)
	require.ErrorAs(t, err, &qerr)
}

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)

	w, err := TrailingWindow("", "", 30, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 31, 10, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, now, w.To)

	w, err = TrailingWindow("2025-06-01", "2025-06-15", 30, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), w.To)

	_, err = TrailingWindow("2025-07-01", "", 30, time.UTC, now)
	require.Error(t, err)
}
