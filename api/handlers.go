/*
handlers.go - HTTP API handlers for the attendance tracker

PURPOSE:
  Exposes attendance.Engine over REST. Handles HTTP request/response and
  JSON serialization, and delegates every decision to the engine.

ENDPOINTS:
  Attendance:
    POST   /attendance             Record today's status {status, reason}
    GET    /attendance             Raw attendance records
    GET    /attendance/today       Resolved status for today (null if unmarked)
    GET    /attendance/all         Merged day log (holidays win)
    GET    /attendance/stats       Counts and attendance rate
    POST   /attendance/summarize   Generated summary, emailed in background

  Holidays:
    POST   /holiday                Declare today a holiday {reason?}
    GET    /holiday                Raw holiday records

  Ops:
    GET    /health                 "OK", 503 when the store is unreachable
    GET    /status                 Uptime and next scheduled runs

REQUEST FLOW:
  1. Decode and shape-check the body (validator tags)
  2. Call the engine for today's date in the reference zone
  3. Serialize the response
  4. Map errors to HTTP statuses

ERROR HANDLING:
  - 400: ErrValidation
  - 200 {ignored:true}: ErrHolidayConflict (soft rejection, nothing written)
  - 500: ErrStorageUnavailable and anything unexpected

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Cron triggers
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/attendance/attendance"
	"github.com/warp/attendance/summary"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *attendance.Engine
	Summarizer *summary.Summarizer
	// Scheduler is optional; when set /status reports the next runs.
	Scheduler *TriggerScheduler

	logger    *zap.Logger
	validate  *validator.Validate
	startedAt time.Time
}

// NewHandler creates a handler. summarizer may be nil, in which case
// /attendance/summarize answers with the unavailable text.
func NewHandler(engine *attendance.Engine, summarizer *summary.Summarizer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine:     engine,
		Summarizer: summarizer,
		logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		startedAt:  engine.Now(),
	}
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// MarkAttendance records Present or Absent for today.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkAttendanceRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	status, err := attendance.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status", err)
		return
	}

	today := h.Engine.Today()
	rec, err := h.Engine.AcceptAttendanceWrite(r.Context(), today, status, req.Reason)
	if err != nil {
		if attendance.IsSoftRejection(err) {
			writeJSON(w, http.StatusOK, AttendanceSavedResponse{
				Message: "Holiday - attendance ignored",
				Date:    today.String(),
				Ignored: true,
			})
			return
		}
		h.fail(w, "Failed to save attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, AttendanceSavedResponse{
		Message: "Attendance saved",
		Date:    rec.Date.String(),
		Status:  string(rec.Status),
		Reason:  rec.Reason,
	})
}

// ListAttendance returns raw attendance records, date ascending.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := h.Engine.Attendance(r.Context())
	if err != nil {
		h.fail(w, "Failed to list attendance", err)
		return
	}

	dtos := make([]AttendanceRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAttendanceRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetToday returns today's resolution, or null when nothing is recorded.
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.Resolve(r.Context(), h.Engine.Today())
	if err != nil {
		h.fail(w, "Failed to resolve today", err)
		return
	}
	if res.IsUnmarked() {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, DayEntryDTO{
		Date:   res.Date.String(),
		Status: string(res.Status),
		Reason: res.Reason,
	})
}

// ListMerged returns one entry per recorded day with holidays taking
// precedence.
func (h *Handler) ListMerged(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.Merged(r.Context())
	if err != nil {
		h.fail(w, "Failed to load attendance log", err)
		return
	}

	dtos := make([]DayEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toDayEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStats returns counts over the merged log.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.Merged(r.Context())
	if err != nil {
		h.fail(w, "Failed to load attendance log", err)
		return
	}
	writeJSON(w, http.StatusOK, attendance.ComputeStats(entries, h.Engine.Calendar()))
}

// Summarize returns a generated summary and emails it in the background.
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	if h.Summarizer == nil {
		writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary.UnavailableText, Fallback: true})
		return
	}

	report, err := h.Summarizer.Summarize(r.Context())
	if err != nil {
		h.fail(w, "Failed to load attendance log", err)
		return
	}

	emailed := h.Summarizer.MailEnabled()
	if emailed {
		h.Summarizer.Dispatch(report)
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary:  report.Text,
		Stats:    report.Stats,
		Fallback: report.Fallback,
		Emailed:  emailed,
	})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// DeclareHoliday records today as a holiday.
func (h *Handler) DeclareHoliday(w http.ResponseWriter, r *http.Request) {
	var req DeclareHolidayRequest
	if err := h.decode(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	rec, err := h.Engine.AcceptHolidayWrite(r.Context(), h.Engine.Today(), req.Reason)
	if err != nil {
		h.fail(w, "Failed to save holiday", err)
		return
	}

	writeJSON(w, http.StatusOK, HolidaySavedResponse{
		Message: "Holiday saved",
		Date:    rec.Date.String(),
		Reason:  rec.Reason,
	})
}

// ListHolidays returns raw holiday records, date ascending.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	records, err := h.Engine.Holidays(r.Context())
	if err != nil {
		h.fail(w, "Failed to list holidays", err)
		return
	}

	cal := h.Engine.Calendar()
	dtos := make([]HolidayRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toHolidayRecordDTO(rec, cal)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// OPS HANDLERS
// =============================================================================

// Health answers "OK" when the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.Engine.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNAVAILABLE"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Status reports uptime in seconds.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	now := h.Engine.Now()
	resp := StatusResponse{
		Status: "ok",
		Uptime: now.Sub(h.startedAt).Seconds(),
		Time:   now.In(h.Engine.Calendar().Location).Format(time.RFC3339),
		Today:  h.Engine.Today().String(),
	}
	if h.Scheduler != nil {
		resp.NextRuns = make(map[string]string)
		for name, at := range h.Scheduler.NextRuns() {
			resp.NextRuns[name] = at.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and runs struct validation. An empty body
// is accepted only when optional is true.
func (h *Handler) decode(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case errors.Is(err, io.EOF) && optional:
	case errors.Is(err, io.EOF):
		return errors.New("request body is required")
	case err != nil:
		return err
	}
	return h.validate.Struct(dst)
}

// fail maps engine errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case attendance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
