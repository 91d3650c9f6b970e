// Package store provides in-memory attendance.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/attendance/attendance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	attendance map[attendance.Date]attendance.AttendanceRecord
	holidays   map[attendance.Date]attendance.HolidayRecord
	now        func() time.Time

	// PingErr, when set, is returned by every call. Lets tests simulate an
	// unreachable backend.
	PingErr error
}

func NewMemory() *Memory {
	return &Memory{
		attendance: make(map[attendance.Date]attendance.AttendanceRecord),
		holidays:   make(map[attendance.Date]attendance.HolidayRecord),
		now:        time.Now,
	}
}

func (m *Memory) failed(op string) error {
	if m.PingErr != nil {
		return attendance.StorageError(op, m.PingErr)
	}
	return nil
}

func (m *Memory) UpsertAttendance(_ context.Context, date attendance.Date, status attendance.Status, reason string) (attendance.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("upsert attendance"); err != nil {
		return attendance.AttendanceRecord{}, err
	}

	now := m.now().UTC()
	rec, ok := m.attendance[date]
	if !ok {
		rec = attendance.AttendanceRecord{ID: uuid.NewString(), Date: date, CreatedAt: now}
	}
	rec.Status = status
	rec.Reason = reason
	rec.UpdatedAt = now
	m.attendance[date] = rec
	return rec, nil
}

func (m *Memory) InsertAttendanceIfAbsent(_ context.Context, date attendance.Date, status attendance.Status, reason string) (attendance.AttendanceRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("insert attendance"); err != nil {
		return attendance.AttendanceRecord{}, false, err
	}

	if rec, ok := m.attendance[date]; ok {
		return rec, false, nil
	}
	now := m.now().UTC()
	rec := attendance.AttendanceRecord{
		ID:        uuid.NewString(),
		Date:      date,
		Status:    status,
		Reason:    reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.attendance[date] = rec
	return rec, true, nil
}

func (m *Memory) UpsertHoliday(_ context.Context, date attendance.Date, reason string) (attendance.HolidayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("upsert holiday"); err != nil {
		return attendance.HolidayRecord{}, err
	}

	now := m.now().UTC()
	rec, ok := m.holidays[date]
	if !ok {
		rec = attendance.HolidayRecord{ID: uuid.NewString(), Date: date, CreatedAt: now}
	}
	rec.Reason = reason
	rec.UpdatedAt = now
	m.holidays[date] = rec
	return rec, nil
}

func (m *Memory) FindAttendance(_ context.Context, date attendance.Date) (*attendance.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failed("find attendance"); err != nil {
		return nil, err
	}

	rec, ok := m.attendance[date]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) FindHoliday(_ context.Context, date attendance.Date) (*attendance.HolidayRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failed("find holiday"); err != nil {
		return nil, err
	}

	rec, ok := m.holidays[date]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListAttendance(_ context.Context) ([]attendance.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failed("list attendance"); err != nil {
		return nil, err
	}

	result := make([]attendance.AttendanceRecord, 0, len(m.attendance))
	for _, rec := range m.attendance {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]attendance.HolidayRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failed("list holidays"); err != nil {
		return nil, err
	}

	result := make([]attendance.HolidayRecord, 0, len(m.holidays))
	for _, rec := range m.holidays {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failed("ping")
}

// Compile-time check
var _ attendance.Store = (*Memory)(nil)
