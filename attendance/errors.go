/*
errors.go - Error taxonomy for the attendance engine

ERROR CATEGORIES:
  1. Validation - missing or invalid status/reason/date, write rejected
  2. Holiday conflict - attendance write against a holiday, soft rejection
  3. Storage - backing store unreachable, surfaced as a server error
  4. Upstream - chat / AI / mail collaborators, logged and degraded

USAGE:
  rec, err := engine.AcceptAttendanceWrite(ctx, day, attendance.StatusPresent, "")
  if errors.Is(err, attendance.ErrHolidayConflict) {
      // tell the user the day is a holiday, nothing was written
  }
*/
package attendance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a write carries a missing or invalid field.
	ErrValidation = errors.New("validation failed")

	// ErrHolidayConflict is returned when an attendance write targets a date
	// already declared a holiday. Nothing is written.
	ErrHolidayConflict = errors.New("date is a holiday")

	// ErrStorageUnavailable wraps every backing store failure.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUpstreamUnavailable wraps chat API, AI API and mail failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// HolidayConflictError carries the holiday that blocked the write.
type HolidayConflictError struct {
	Date   Date
	Reason string
}

func (e *HolidayConflictError) Error() string {
	return fmt.Sprintf("attendance ignored: %s is a holiday (%s)", e.Date, e.Reason)
}

func (e *HolidayConflictError) Unwrap() error {
	return ErrHolidayConflict
}

// StorageError wraps a driver error with the failing operation.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}

// UpstreamError wraps a collaborator failure.
func UpstreamError(service string, err error) error {
	return fmt.Errorf("%s: %w: %v", service, ErrUpstreamUnavailable, err)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsSoftRejection returns true when the write was ignored by a business rule
// rather than failed.
func IsSoftRejection(err error) bool {
	return errors.Is(err, ErrHolidayConflict)
}
