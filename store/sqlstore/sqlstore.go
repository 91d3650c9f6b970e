/*
Package sqlstore provides the SQL-backed implementation of attendance.Store.

PURPOSE:
  Persists attendance and holiday records with database/sql. The same schema
  and statements run on SQLite (default, mattn/go-sqlite3) and PostgreSQL
  (lib/pq); only placeholder syntax differs and is rebound at prepare time.

KEY TABLES:
  attendance_records: one row per date (UNIQUE date)
  holiday_records:    one row per date (UNIQUE date)

UPSERT SEMANTICS:
  Writes are single INSERT ... ON CONFLICT(date) statements, so each date key
  is updated atomically by the database even with several writers:
  - UpsertAttendance / UpsertHoliday: DO UPDATE (last write wins)
  - InsertAttendanceIfAbsent:         DO NOTHING (auto-absent never clobbers)
  No DELETE statement exists.

CONCURRENCY:
  sync.RWMutex serializes writes inside the process. SQLite is opened with a
  single connection so ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlstore.Open("sqlite3", "./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - attendance/store.go: interface definition
  - attendance/store/memory.go: in-memory implementation for tests
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/attendance/attendance"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store implements attendance.Store on a SQL database.
type Store struct {
	db     *sql.DB
	driver string
	mu     sync.RWMutex
	now    func() time.Time
}

// Open connects to the database and migrates the schema.
// For SQLite, dsn is a file path or ":memory:".
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		dsn += "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, driver: driver, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL CHECK (status IN ('Present', 'Absent')),
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holiday_records (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL UNIQUE,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	// lib/pq rejects multi-statement Exec with placeholders; run one by one.
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind converts "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

const attendanceColumns = `id, date, status, reason, created_at, updated_at`

// UpsertAttendance inserts or overwrites the record of date.
func (s *Store) UpsertAttendance(ctx context.Context, date attendance.Date, status attendance.Status, reason string) (attendance.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	query := `
		INSERT INTO attendance_records (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, s.rebind(query),
		uuid.NewString(), string(date), string(status), reason, now, now,
	); err != nil {
		return attendance.AttendanceRecord{}, attendance.StorageError("upsert attendance", err)
	}

	return s.mustFindAttendance(ctx, date)
}

// InsertAttendanceIfAbsent writes only when date has no record yet.
func (s *Store) InsertAttendanceIfAbsent(ctx context.Context, date attendance.Date, status attendance.Status, reason string) (attendance.AttendanceRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	query := `
		INSERT INTO attendance_records (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, s.rebind(query),
		uuid.NewString(), string(date), string(status), reason, now, now,
	)
	if err != nil {
		return attendance.AttendanceRecord{}, false, attendance.StorageError("insert attendance", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return attendance.AttendanceRecord{}, false, attendance.StorageError("insert attendance", err)
	}

	rec, err := s.mustFindAttendance(ctx, date)
	return rec, affected > 0, err
}

// FindAttendance returns nil, nil when date has no record.
func (s *Store) FindAttendance(ctx context.Context, date attendance.Date) (*attendance.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findAttendance(ctx, date)
}

func (s *Store) findAttendance(ctx context.Context, date attendance.Date) (*attendance.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE date = ?`
	rec, err := scanAttendance(s.db.QueryRowContext(ctx, s.rebind(query), string(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, attendance.StorageError("find attendance", err)
	}
	return &rec, nil
}

func (s *Store) mustFindAttendance(ctx context.Context, date attendance.Date) (attendance.AttendanceRecord, error) {
	rec, err := s.findAttendance(ctx, date)
	if err != nil {
		return attendance.AttendanceRecord{}, err
	}
	if rec == nil {
		return attendance.AttendanceRecord{}, attendance.StorageError("read back attendance", sql.ErrNoRows)
	}
	return *rec, nil
}

// ListAttendance returns every record ordered by date ascending.
func (s *Store) ListAttendance(ctx context.Context) ([]attendance.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records ORDER BY date ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, attendance.StorageError("list attendance", err)
	}
	defer rows.Close()

	records := []attendance.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, attendance.StorageError("list attendance", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, attendance.StorageError("list attendance", err)
	}
	return records, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

const holidayColumns = `id, date, reason, created_at, updated_at`

// UpsertHoliday inserts or overwrites the holiday of date.
func (s *Store) UpsertHoliday(ctx context.Context, date attendance.Date, reason string) (attendance.HolidayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	query := `
		INSERT INTO holiday_records (` + holidayColumns + `)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, s.rebind(query),
		uuid.NewString(), string(date), reason, now, now,
	); err != nil {
		return attendance.HolidayRecord{}, attendance.StorageError("upsert holiday", err)
	}

	rec, err := s.findHoliday(ctx, date)
	if err != nil {
		return attendance.HolidayRecord{}, err
	}
	if rec == nil {
		return attendance.HolidayRecord{}, attendance.StorageError("read back holiday", sql.ErrNoRows)
	}
	return *rec, nil
}

// FindHoliday returns nil, nil when date has no holiday.
func (s *Store) FindHoliday(ctx context.Context, date attendance.Date) (*attendance.HolidayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findHoliday(ctx, date)
}

func (s *Store) findHoliday(ctx context.Context, date attendance.Date) (*attendance.HolidayRecord, error) {
	query := `SELECT ` + holidayColumns + ` FROM holiday_records WHERE date = ?`
	rec, err := scanHoliday(s.db.QueryRowContext(ctx, s.rebind(query), string(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, attendance.StorageError("find holiday", err)
	}
	return &rec, nil
}

// ListHolidays returns every holiday ordered by date ascending.
func (s *Store) ListHolidays(ctx context.Context) ([]attendance.HolidayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + holidayColumns + ` FROM holiday_records ORDER BY date ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, attendance.StorageError("list holidays", err)
	}
	defer rows.Close()

	holidays := []attendance.HolidayRecord{}
	for rows.Next() {
		rec, err := scanHoliday(rows)
		if err != nil {
			return nil, attendance.StorageError("list holidays", err)
		}
		holidays = append(holidays, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, attendance.StorageError("list holidays", err)
	}
	return holidays, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return attendance.StorageError("ping", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row scanner) (attendance.AttendanceRecord, error) {
	var rec attendance.AttendanceRecord
	var date, status, createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &date, &status, &rec.Reason, &createdAt, &updatedAt); err != nil {
		return rec, err
	}
	rec.Date = attendance.Date(date)
	rec.Status = attendance.Status(status)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return rec, nil
}

func scanHoliday(row scanner) (attendance.HolidayRecord, error) {
	var rec attendance.HolidayRecord
	var date, createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &date, &rec.Reason, &createdAt, &updatedAt); err != nil {
		return rec, err
	}
	rec.Date = attendance.Date(date)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return rec, nil
}

// Compile-time check
var _ attendance.Store = (*Store)(nil)
