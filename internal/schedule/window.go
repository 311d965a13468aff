package schedule

import (
	"time"

	"github.com/curatel/telecare-scheduling/internal/availability"
)

// DefaultWindowMonths is how far ahead a schedule remains editable.
const DefaultWindowMonths = 3

// Window is the bounded date range a session may read or write: local
// midnight of the day the session starts through the same calendar day
// DefaultWindowMonths out, inclusive. Nothing outside it is ever fetched,
// written, or cleared.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow anchors a window at local midnight of now.
func NewWindow(now time.Time, months int) Window {
	if months <= 0 {
		months = DefaultWindowMonths
	}
	start := availability.Midnight(now)
	return Window{Start: start, End: start.AddDate(0, months, 0)}
}

// StartKey returns the wire date string of the window's first day.
func (w Window) StartKey() string { return availability.DateKey(w.Start) }

// EndKey returns the wire date string of the window's last day.
func (w Window) EndKey() string { return availability.DateKey(w.End) }

// Contains reports whether the date falls inside the window, inclusive.
func (w Window) Contains(date time.Time) bool {
	date = availability.Midnight(date)
	return !date.Before(w.Start) && !date.After(w.End)
}

// ContainsKey is Contains for wire date strings. Malformed keys are outside.
func (w Window) ContainsKey(dateKey string) bool {
	date, err := availability.ParseDateKey(dateKey)
	if err != nil {
		return false
	}
	return w.Contains(date)
}

// Clamp intersects [from, to] with the window. ok is false when the
// intersection is empty.
func (w Window) Clamp(from, to time.Time) (start, end time.Time, ok bool) {
	start, end = availability.Midnight(from), availability.Midnight(to)
	if start.Before(w.Start) {
		start = w.Start
	}
	if end.After(w.End) {
		end = w.End
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
