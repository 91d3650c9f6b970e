/*
engine.go - Daily resolution engine

PURPOSE:
  Decides the authoritative status of a calendar day and whether a write for
  that day is accepted, rejected or auto-generated. Every writer (chat bot,
  HTTP API, scheduler) goes through the Engine; nothing writes to the Store
  directly.

RULES:
  1. Holiday precedence: a HolidayRecord makes the day Holiday regardless of
     any AttendanceRecord.
  2. Attendance writes against a holiday are ignored with HolidayConflictError.
  3. Holiday writes are unconditional upserts.
  4. Auto-absent only fills an Unmarked day and never overwrites a record, so
     repeated or late scheduler firings are harmless.

CONCURRENCY:
  Writes are serialized by mu so the holiday check and the write that follows
  cannot interleave with another write in this process. Per-key atomicity
  across processes is the Store's job.

SEE ALSO:
  - merge.go: read-side merged view
  - api/scheduler.go: rest-day gate and daily triggers
*/
package attendance

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Engine applies the daily resolution rules on top of a Store.
type Engine struct {
	store    Store
	calendar Calendar
	now      func() time.Time
	logger   *zap.Logger

	mu sync.Mutex
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine over store, computing days in cal's zone.
func NewEngine(store Store, cal Calendar, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		calendar: cal,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calendar returns the engine's reference calendar.
func (e *Engine) Calendar() Calendar { return e.calendar }

// Now returns the current instant from the engine clock.
func (e *Engine) Now() time.Time { return e.now() }

// Today returns the current calendar day in the reference zone.
func (e *Engine) Today() Date { return e.calendar.DateOf(e.now()) }

// Ping checks the underlying store.
func (e *Engine) Ping(ctx context.Context) error { return e.store.Ping(ctx) }

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve returns the authoritative status of date.
func (e *Engine) Resolve(ctx context.Context, date Date) (Resolution, error) {
	holiday, err := e.store.FindHoliday(ctx, date)
	if err != nil {
		return Resolution{}, err
	}
	if holiday != nil {
		return Resolution{Kind: ResolvedHoliday, Date: date, Status: StatusHoliday, Reason: holiday.Reason}, nil
	}

	rec, err := e.store.FindAttendance(ctx, date)
	if err != nil {
		return Resolution{}, err
	}
	if rec != nil {
		return Resolution{Kind: ResolvedAttendance, Date: date, Status: rec.Status, Reason: rec.Reason}, nil
	}

	return Resolution{Kind: Unmarked, Date: date}, nil
}

// =============================================================================
// WRITES
// =============================================================================

// AcceptAttendanceWrite records status for date unless the date is a holiday.
// An empty reason gets the status default; Absent always carries a reason.
func (e *Engine) AcceptAttendanceWrite(ctx context.Context, date Date, status Status, reason string) (AttendanceRecord, error) {
	if _, err := ParseDate(string(date)); err != nil {
		return AttendanceRecord{}, err
	}
	status, err := ParseStatus(string(status))
	if err != nil {
		return AttendanceRecord{}, err
	}
	reason = normalizeReason(status, reason)

	e.mu.Lock()
	defer e.mu.Unlock()

	holiday, err := e.store.FindHoliday(ctx, date)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if holiday != nil {
		return AttendanceRecord{}, &HolidayConflictError{Date: date, Reason: holiday.Reason}
	}

	return e.store.UpsertAttendance(ctx, date, status, reason)
}

// AcceptHolidayWrite declares date a holiday. No precedence check is made
// against existing attendance; the holiday hides it from every view.
func (e *Engine) AcceptHolidayWrite(ctx context.Context, date Date, reason string) (HolidayRecord, error) {
	if _, err := ParseDate(string(date)); err != nil {
		return HolidayRecord{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = ReasonHolidayDefault
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.UpsertHoliday(ctx, date, reason)
}

// AutoMarkResult reports what AutoMarkAbsentIfUnresolved did.
type AutoMarkResult struct {
	Marked     bool
	Resolution Resolution // state observed (after marking, when Marked)
}

// AutoMarkAbsentIfUnresolved marks date Absent when nothing resolves it.
// Calling it again for the same date is a no-op.
func (e *Engine) AutoMarkAbsentIfUnresolved(ctx context.Context, date Date) (AutoMarkResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.Resolve(ctx, date)
	if err != nil {
		return AutoMarkResult{}, err
	}
	if !res.IsUnmarked() {
		return AutoMarkResult{Resolution: res}, nil
	}

	rec, created, err := e.store.InsertAttendanceIfAbsent(ctx, date, StatusAbsent, ReasonAutoAbsent)
	if err != nil {
		return AutoMarkResult{}, err
	}
	if created {
		e.logger.Info("auto-marked absent", zap.String("date", date.String()))
	}
	return AutoMarkResult{
		Marked:     created,
		Resolution: Resolution{Kind: ResolvedAttendance, Date: date, Status: rec.Status, Reason: rec.Reason},
	}, nil
}

func normalizeReason(status Status, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason != "" {
		return reason
	}
	if status == StatusAbsent {
		return ReasonAbsentDefault
	}
	return ReasonPresent
}

// =============================================================================
// READS
// =============================================================================

// Merged loads both record kinds and returns the merged view.
func (e *Engine) Merged(ctx context.Context) ([]DayEntry, error) {
	att, err := e.store.ListAttendance(ctx)
	if err != nil {
		return nil, err
	}
	hol, err := e.store.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	return Merge(att, hol), nil
}

// Attendance returns the raw attendance records, date ascending.
func (e *Engine) Attendance(ctx context.Context) ([]AttendanceRecord, error) {
	return e.store.ListAttendance(ctx)
}

// Holidays returns the raw holiday records, date ascending.
func (e *Engine) Holidays(ctx context.Context) ([]HolidayRecord, error) {
	return e.store.ListHolidays(ctx)
}
