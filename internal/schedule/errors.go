// Package schedule implements the in-memory schedule edit session: the
// per-provider working copy of the availability map, its conflict guard, and
// the bulk update planner.
package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when an operation needs a loaded session.
	ErrNotReady = errors.New("schedule: session is not ready")

	// ErrWriteInFlight is returned when a save or bulk operation is issued
	// while another one is still outstanding. Writes are serialized per
	// session; the caller retries after the first completes.
	ErrWriteInFlight = errors.New("schedule: a write is already in progress")
)

// ConflictError reports a toggle against a booked or buffer slot. Those are
// derived, read-only state and never editable through the session.
type ConflictError struct {
	Date   string
	Clock  string
	Reason string // "booked" or "buffer"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule: slot %s on %s is %s and cannot be edited", e.Clock, e.Date, e.Reason)
}

// OutOfWindowError reports a date outside the editable window. Detected
// before any network call.
type OutOfWindowError struct {
	Date     string
	WindowLo string
	WindowHi string
}

func (e *OutOfWindowError) Error() string {
	return fmt.Sprintf("schedule: date %s is outside the editable window %s..%s", e.Date, e.WindowLo, e.WindowHi)
}

// SyncFailure wraps a failed availability-store call. Local state is left
// exactly as it was before the call; the operation is retryable.
type SyncFailure struct {
	Op  string
	Err error
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("schedule: %s failed: %v", e.Op, e.Err)
}

func (e *SyncFailure) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure the caller should
// retry, as opposed to a local validation error.
func IsRetryable(err error) bool {
	var sf *SyncFailure
	return errors.As(err, &sf) || errors.Is(err, ErrWriteInFlight)
}
