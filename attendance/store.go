package attendance

import "context"

// =============================================================================
// STORE - Date-keyed persistence for both record kinds
// =============================================================================

// Store persists attendance and holiday records keyed by Date.
//
// Every write is an upsert on the date key and must be atomic per key: a
// second write for the same date overwrites status/reason instead of creating
// a duplicate. Records are never deleted.
//
// Implementations wrap backend failures with ErrStorageUnavailable.
type Store interface {
	// UpsertAttendance inserts or overwrites the record of date.
	UpsertAttendance(ctx context.Context, date Date, status Status, reason string) (AttendanceRecord, error)

	// InsertAttendanceIfAbsent writes only when no record exists for date.
	// Returns the stored record and whether this call created it.
	InsertAttendanceIfAbsent(ctx context.Context, date Date, status Status, reason string) (AttendanceRecord, bool, error)

	// UpsertHoliday inserts or overwrites the holiday of date.
	UpsertHoliday(ctx context.Context, date Date, reason string) (HolidayRecord, error)

	// FindAttendance returns nil, nil when date has no record.
	FindAttendance(ctx context.Context, date Date) (*AttendanceRecord, error)

	// FindHoliday returns nil, nil when date has no holiday.
	FindHoliday(ctx context.Context, date Date) (*HolidayRecord, error)

	// ListAttendance returns every record ordered by date ascending.
	ListAttendance(ctx context.Context) ([]AttendanceRecord, error)

	// ListHolidays returns every holiday ordered by date ascending.
	ListHolidays(ctx context.Context) ([]HolidayRecord, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}
