/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Request structs carry go-playground/validator tags for shape checks
  (required, length). Business validation (status values, holiday conflicts)
  stays in attendance.Engine.
*/
package api

import (
	"github.com/warp/attendance/attendance"
)

// =============================================================================
// REQUESTS
// =============================================================================

// MarkAttendanceRequest is the body of POST /attendance.
type MarkAttendanceRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=280"`
}

// DeclareHolidayRequest is the optional body of POST /holiday.
type DeclareHolidayRequest struct {
	Reason string `json:"reason" validate:"max=280"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// AttendanceSavedResponse acknowledges an attendance write. When Ignored is
// true the day is a holiday and nothing was written.
type AttendanceSavedResponse struct {
	Message string `json:"message"`
	Date    string `json:"date"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Ignored bool   `json:"ignored,omitempty"`
}

// HolidaySavedResponse acknowledges a holiday write.
type HolidaySavedResponse struct {
	Message string `json:"message"`
	Date    string `json:"date"`
	Reason  string `json:"reason"`
}

// DayEntryDTO is one resolved day.
type DayEntryDTO struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// AttendanceRecordDTO is a raw attendance record.
type AttendanceRecordDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// HolidayRecordDTO is a raw holiday record.
type HolidayRecordDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Reason    string `json:"reason"`
	Public    bool   `json:"public"`
	CreatedAt string `json:"createdAt"`
}

// SummaryResponse is the body of POST /attendance/summarize.
type SummaryResponse struct {
	Summary  string           `json:"summary"`
	Stats    attendance.Stats `json:"stats"`
	Fallback bool             `json:"fallback"`
	Emailed  bool             `json:"emailed"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status   string            `json:"status"`
	Uptime   float64           `json:"uptime"`
	Time     string            `json:"time"`
	Today    string            `json:"today"`
	NextRuns map[string]string `json:"nextRuns,omitempty"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func toDayEntryDTO(e attendance.DayEntry) DayEntryDTO {
	return DayEntryDTO{Date: e.Date.String(), Status: string(e.Status), Reason: e.Reason}
}

func toAttendanceRecordDTO(r attendance.AttendanceRecord) AttendanceRecordDTO {
	return AttendanceRecordDTO{
		ID:        r.ID,
		Date:      r.Date.String(),
		Status:    string(r.Status),
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt.Format(timestampLayout),
		UpdatedAt: r.UpdatedAt.Format(timestampLayout),
	}
}

func toHolidayRecordDTO(r attendance.HolidayRecord, cal attendance.Calendar) HolidayRecordDTO {
	return HolidayRecordDTO{
		ID:        r.ID,
		Date:      r.Date.String(),
		Reason:    r.Reason,
		Public:    cal.IsPublicHoliday(r.Date),
		CreatedAt: r.CreatedAt.Format(timestampLayout),
	}
}
