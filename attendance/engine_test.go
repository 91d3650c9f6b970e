package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance/attendance"
	"github.com/warp/attendance/attendance/store"
	"github.com/warp/attendance/store/sqlstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var kolkata = attendance.MustCalendar("Asia/Kolkata")

// fixedClock returns 09:30 IST on 2025-08-20 (a Wednesday).
func fixedClock() time.Time {
	return time.Date(2025, time.August, 20, 4, 0, 0, 0, time.UTC)
}

// forEachStore runs fn against the in-memory and the SQLite store.
func forEachStore(t *testing.T, fn func(t *testing.T, engine *attendance.Engine, st attendance.Store)) {
	t.Run("memory", func(t *testing.T) {
		st := store.NewMemory()
		fn(t, attendance.NewEngine(st, kolkata, attendance.WithClock(fixedClock)), st)
	})
	t.Run("sqlite", func(t *testing.T) {
		st, err := sqlstore.Open(sqlstore.DriverSQLite, ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		fn(t, attendance.NewEngine(st, kolkata, attendance.WithClock(fixedClock)), st)
	})
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestEngine_Resolve_EmptyStore_Unmarked(t *testing.T) {
	forEachStore(t, func(t *testing.T, engine *attendance.Engine, _ attendance.Store) {
		ctx := context.Background()

		res, err := engine.Resolve(ctx, "2025-06-10")
		require.NoError(t, err)
		assert.Equal(t, attendance.Unmarked, res.Kind)
		assert.Empty(t, res.Status)

		merged, err := engine.Merged(ctx)
		require.NoError(t, err)
		assert.Empty(t, merged)
	})
}

func TestEngine_Resolve_HolidayWinsOverExistingAttendance(t *testing.T) {
	// GIVEN: Present was recorded, then the same day declared a holiday
	// WHEN: Resolving the day
	// THEN: Holiday wins even though an attendance record exists

	forEachStore(t, func(t *testing.T, engine *attendance.Engine, st attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-08-14")

		_, err := engine.AcceptAttendanceWrite(ctx, day, attendance.StatusPresent, "")
		require.NoError(t, err)
		_, err = engine.AcceptHolidayWrite(ctx, day, "")
		require.NoError(t, err)

		res, err := engine.Resolve(ctx, day)
		require.NoError(t, err)
		assert.True(t, res.IsHoliday())
		assert.Equal(t, attendance.StatusHoliday, res.Status)
		assert.Equal(t, attendance.ReasonHolidayDefault, res.Reason)

		// The attendance row is kept but hidden
		rec, err := st.FindAttendance(ctx, day)
		require.NoError(t, err)
		require.NotNil(t, rec)
	})
}

// =============================================================================
// ATTENDANCE WRITES
// =============================================================================

func TestEngine_AcceptAttendanceWrite_HolidayConflict(t *testing.T) {
	// GIVEN: 2025-08-15 declared a holiday
	// WHEN: Marking it Present
	// THEN: HolidayConflictError, attendance store unchanged, still Holiday

	forEachStore(t, func(t *testing.T, engine *attendance.Engine, st attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-08-15")

		_, err := engine.AcceptHolidayWrite(ctx, day, "")
		require.NoError(t, err)

		_, err = engine.AcceptAttendanceWrite(ctx, day, attendance.StatusPresent, "-")
		require.Error(t, err)
		assert.ErrorIs(t, err, attendance.ErrHolidayConflict)
		assert.True(t, attendance.IsSoftRejection(err))

		var conflict *attendance.HolidayConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, day, conflict.Date)

		rec, err := st.FindAttendance(ctx, day)
		require.NoError(t, err)
		assert.Nil(t, rec, "holiday conflict must not write attendance")

		res, err := engine.Resolve(ctx, day)
		require.NoError(t, err)
		assert.True(t, res.IsHoliday())
	})
}

func TestEngine_AcceptAttendanceWrite_IdempotentUpsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, engine *attendance.Engine, st attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-08-18")

		first, err := engine.AcceptAttendanceWrite(ctx, day, attendance.StatusPresent, "-")
		require.NoError(t, err)
		second, err := engine.AcceptAttendanceWrite(ctx, day, attendance.StatusPresent, "-")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "upsert keeps the record identity")

		// A later write with different content overwrites in place
		_, err = engine.AcceptAttendanceWrite(ctx, day, attendance.StatusAbsent, "Train strike")
		require.NoError(t, err)

		all, err := st.ListAttendance(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, attendance.StatusAbsent, all[0].Status)
		assert.Equal(t, "Train strike", all[0].Reason)
	})
}

func TestEngine_AcceptAttendanceWrite_DefaultReasons(t *testing.T) {
	forEachStore(t, func(t *testing.T, engine *attendance.Engine, _ attendance.Store) {
		ctx := context.Background()

		present, err := engine.AcceptAttendanceWrite(ctx, "2025-08-11", "present", "")
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusPresent, present.Status)
		assert.Equal(t, attendance.ReasonPresent, present.Reason)

		absent, err := engine.AcceptAttendanceWrite(ctx, "2025-08-12", attendance.StatusAbsent, "   ")
		require.NoError(t, err)
		assert.Equal(t, attendance.ReasonAbsentDefault, absent.Reason)
	})
}

func TestEngine_AcceptAttendanceWrite_Validation(t *testing.T) {
	engine := attendance.NewEngine(store.NewMemory(), kolkata)
	ctx := context.Background()

	tests := []struct {
		name   string
		date   attendance.Date
		status attendance.Status
		field  string
	}{
		{"missing status", "2025-08-11", "", "status"},
		{"unknown status", "2025-08-11", "Late", "status"},
		{"holiday is not an attendance status", "2025-08-11", attendance.StatusHoliday, "status"},
		{"malformed date", "11/08/2025", attendance.StatusPresent, "date"},
		{"impossible date", "2025-02-30", attendance.StatusPresent, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.AcceptAttendanceWrite(ctx, tt.date, tt.status, "")
			require.Error(t, err)
			assert.True(t, attendance.IsClientError(err))

			var verr *attendance.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestEngine_StorageFailure_Propagates(t *testing.T) {
	st := store.NewMemory()
	st.PingErr = assert.AnError
	engine := attendance.NewEngine(st, kolkata)

	_, err := engine.AcceptAttendanceWrite(context.Background(), "2025-08-11", attendance.StatusPresent, "")
	assert.ErrorIs(t, err, attendance.ErrStorageUnavailable)
	assert.False(t, attendance.IsClientError(err))
}

// =============================================================================
// HOLIDAY WRITES
// =============================================================================

func TestEngine_AcceptHolidayWrite_Upserts(t *testing.T) {
	forEachStore(t, func(t *testing.T, engine *attendance.Engine, st attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-10-02")

		_, err := engine.AcceptHolidayWrite(ctx, day, "")
		require.NoError(t, err)
		rec, err := engine.AcceptHolidayWrite(ctx, day, "Gandhi Jayanti")
		require.NoError(t, err)
		assert.Equal(t, "Gandhi Jayanti", rec.Reason)

		all, err := st.ListHolidays(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Gandhi Jayanti", all[0].Reason)
	})
}

// =============================================================================
// AUTO-ABSENT
// =============================================================================

func TestEngine_AutoMark_TwiceCreatesOneRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, engine *attendance.Engine, st attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-08-19")

		first, err := engine.AutoMarkAbsentIfUnresolved(ctx, day)
		require.NoError(t, err)
		assert.True(t, first.Marked)
		assert.Equal(t, attendance.StatusAbsent, first.Resolution.Status)
		assert.Equal(t, attendance.ReasonAutoAbsent, first.Resolution.Reason)

		second, err := engine.AutoMarkAbsentIfUnresolved(ctx, day)
		require.NoError(t, err)
		assert.False(t, second.Marked, "second firing is a no-op")

		all, err := st.ListAttendance(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, attendance.StatusAbsent, all[0].Status)
	})
}

func TestEngine_AutoMark_KeepsManualReason(t *testing.T) {
	// GIVEN: User marked Absent "Fever"
	// WHEN: Deadline trigger fires for the same day
	// THEN: No second record, reason remains "Fever"

	forEachStore(t, func(t *testing.T, engine *attendance.Engine, st attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-08-20")

		_, err := engine.AcceptAttendanceWrite(ctx, day, attendance.StatusAbsent, "Fever")
		require.NoError(t, err)

		result, err := engine.AutoMarkAbsentIfUnresolved(ctx, day)
		require.NoError(t, err)
		assert.False(t, result.Marked)
		assert.Equal(t, "Fever", result.Resolution.Reason)

		all, err := st.ListAttendance(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Fever", all[0].Reason)
	})
}

func TestEngine_AutoMark_SkipsHoliday(t *testing.T) {
	forEachStore(t, func(t *testing.T, engine *attendance.Engine, st attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-08-15")

		_, err := engine.AcceptHolidayWrite(ctx, day, "")
		require.NoError(t, err)

		result, err := engine.AutoMarkAbsentIfUnresolved(ctx, day)
		require.NoError(t, err)
		assert.False(t, result.Marked)
		assert.True(t, result.Resolution.IsHoliday())

		rec, err := st.FindAttendance(ctx, day)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestEngine_ManualWriteAfterAutoMark_Overwrites(t *testing.T) {
	// A late manual answer still wins over the auto-absent mark.
	forEachStore(t, func(t *testing.T, engine *attendance.Engine, _ attendance.Store) {
		ctx := context.Background()
		day := attendance.Date("2025-08-21")

		_, err := engine.AutoMarkAbsentIfUnresolved(ctx, day)
		require.NoError(t, err)
		_, err = engine.AcceptAttendanceWrite(ctx, day, attendance.StatusPresent, "")
		require.NoError(t, err)

		res, err := engine.Resolve(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusPresent, res.Status)
	})
}

func TestEngine_Today_UsesReferenceZone(t *testing.T) {
	// 20:00 UTC on the 19th is already 01:30 on the 20th in Kolkata.
	clock := func() time.Time { return time.Date(2025, time.August, 19, 20, 0, 0, 0, time.UTC) }
	engine := attendance.NewEngine(store.NewMemory(), kolkata, attendance.WithClock(clock))

	assert.Equal(t, attendance.Date("2025-08-20"), engine.Today())
}
