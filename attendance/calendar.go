package attendance

import (
	"fmt"
	"time"
	_ "time/tzdata" // reference zone must resolve on minimal container images
)

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - Calendar day key (fixed-width ISO, sorts lexicographically)
// =============================================================================

// Date is a calendar day in ISO form ("2025-08-15"). It is the unique key of
// both attendance and holiday records.
type Date string

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(DateLayout))
}

// DateOf returns the calendar day of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(DateLayout))
}

// ParseDate validates s as a real calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", s)}
	}
	return Date(t.Format(DateLayout)), nil
}

// Time returns midnight UTC of the day. Only the Y/M/D fields are meaningful.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) AddDays(n int) Date    { return Date(d.Time().AddDate(0, 0, n).Format(DateLayout)) }
func (d Date) Before(o Date) bool    { return d < o }
func (d Date) String() string        { return string(d) }
func (d Date) IsZero() bool          { return d == "" }

// MonthDay returns the "MM-DD" part, used for recurring public holidays.
func (d Date) MonthDay() string {
	if len(d) != len(DateLayout) {
		return ""
	}
	return string(d[5:])
}

// =============================================================================
// CALENDAR - Reference zone, rest day and public holidays
// =============================================================================

// DefaultTimezone is the zone every "today" is computed in.
const DefaultTimezone = "Asia/Kolkata"

// Calendar pins all day arithmetic to one reference timezone, independent of
// the server's local zone.
type Calendar struct {
	Location *time.Location
	RestDay  time.Weekday

	// PublicHolidays holds either recurring "MM-DD" entries or exact
	// "YYYY-MM-DD" entries.
	PublicHolidays []string
}

// DefaultPublicHolidays are the fixed national holidays of the default zone.
var DefaultPublicHolidays = []string{
	"01-26", // Republic Day
	"08-15", // Independence Day
	"10-02", // Gandhi Jayanti
}

// NewCalendar loads the named zone. Sunday is the rest day.
func NewCalendar(timezone string, publicHolidays []string) (Calendar, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Calendar{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return Calendar{
		Location:       loc,
		RestDay:        time.Sunday,
		PublicHolidays: publicHolidays,
	}, nil
}

// MustCalendar is NewCalendar for tests and package defaults.
func MustCalendar(timezone string) Calendar {
	cal, err := NewCalendar(timezone, DefaultPublicHolidays)
	if err != nil {
		panic(err)
	}
	return cal
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// DateOf returns the calendar day of t in the reference zone.
func (c Calendar) DateOf(t time.Time) Date { return DateOf(t, c.location()) }

// IsRestDay reports whether d falls on the rest weekday.
func (c Calendar) IsRestDay(d Date) bool { return d.Weekday() == c.RestDay }

// IsPublicHoliday reports whether d matches an entry of the public holiday list.
func (c Calendar) IsPublicHoliday(d Date) bool {
	md := d.MonthDay()
	for _, h := range c.PublicHolidays {
		if h == string(d) || h == md {
			return true
		}
	}
	return false
}
