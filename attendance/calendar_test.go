package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance/attendance"
)

func TestCalendar_DateOf_PinsReferenceZone(t *testing.T) {
	// 23:00 UTC Saturday is already Sunday morning in Kolkata.
	saturdayNightUTC := time.Date(2025, time.August, 16, 23, 0, 0, 0, time.UTC)

	day := kolkata.DateOf(saturdayNightUTC)

	assert.Equal(t, attendance.Date("2025-08-17"), day)
	assert.True(t, kolkata.IsRestDay(day))
	assert.False(t, kolkata.IsRestDay(attendance.DateOf(saturdayNightUTC, time.UTC)))
}

func TestCalendar_NewCalendar(t *testing.T) {
	cal, err := attendance.NewCalendar("", nil)
	require.NoError(t, err)
	assert.Equal(t, attendance.DefaultTimezone, cal.Location.String())
	assert.Equal(t, time.Sunday, cal.RestDay)

	_, err = attendance.NewCalendar("Mars/Olympus_Mons", nil)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := attendance.ParseDate("2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, d.Weekday())
	assert.Equal(t, "06-10", d.MonthDay())

	for _, bad := range []string{"", "2025-6-10", "2025-13-01", "2025-02-29", "yesterday"} {
		_, err := attendance.ParseDate(bad)
		assert.ErrorIs(t, err, attendance.ErrValidation, "input %q", bad)
	}
}

func TestDate_AddDays(t *testing.T) {
	assert.Equal(t, attendance.Date("2025-03-01"), attendance.NewDate(2025, time.February, 28).AddDays(1))
	assert.Equal(t, attendance.Date("2024-12-31"), attendance.Date("2025-01-01").AddDays(-1))
}
