/*
Package attendance resolves the daily status of a single tracked person.

KEY CONCEPTS:
  - Date: ISO calendar day, the unique key of every record
  - AttendanceRecord: Present/Absent mark for a day, upserted by date
  - HolidayRecord: a day declared off, upserted by date
  - Resolution: the authoritative status of one day
  - DayEntry: one row of the merged chronological view

PRECEDENCE:
  A holiday always wins. Resolution and the merged view report Holiday for a
  date with a HolidayRecord even when an AttendanceRecord exists, and new
  attendance writes for that date are rejected with ErrHolidayConflict.

SEE ALSO:
  - engine.go: write acceptance and auto-marking
  - merge.go: merged chronological view
  - store.go: persistence contract
*/
package attendance

import (
	"strings"
	"time"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"

	// StatusHoliday only appears in resolutions and merged entries, never in
	// an AttendanceRecord.
	StatusHoliday Status = "Holiday"
)

// ParseStatus accepts a write status case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present":
		return StatusPresent, nil
	case "absent":
		return StatusAbsent, nil
	case "":
		return "", &ValidationError{Field: "status", Message: "status is required"}
	default:
		return "", &ValidationError{Field: "status", Message: "status must be Present or Absent"}
	}
}

// Default reasons.
const (
	ReasonPresent        = "Present"
	ReasonAbsentDefault  = "No reason"
	ReasonHolidayDefault = "Declared by user"
	ReasonAutoAbsent     = "Auto-marked (no response by deadline)"
)

// =============================================================================
// RECORDS
// =============================================================================

// AttendanceRecord is the presence mark of one day.
type AttendanceRecord struct {
	ID        string    `json:"id"`
	Date      Date      `json:"date"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HolidayRecord marks one day off.
type HolidayRecord struct {
	ID        string    `json:"id"`
	Date      Date      `json:"date"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// =============================================================================
// RESOLUTION
// =============================================================================

type ResolutionKind int

const (
	Unmarked ResolutionKind = iota
	ResolvedAttendance
	ResolvedHoliday
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedAttendance:
		return "attendance"
	case ResolvedHoliday:
		return "holiday"
	default:
		return "unmarked"
	}
}

// Resolution is the authoritative status of a date.
type Resolution struct {
	Kind   ResolutionKind
	Date   Date
	Status Status // empty when Unmarked
	Reason string
}

func (r Resolution) IsUnmarked() bool { return r.Kind == Unmarked }
func (r Resolution) IsHoliday() bool  { return r.Kind == ResolvedHoliday }

// DayEntry is one row of the merged view.
type DayEntry struct {
	Date   Date   `json:"date"`
	Status Status `json:"status"`
	Reason string `json:"reason"`
}
