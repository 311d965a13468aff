// Package availstore defines the contract to the availability store and its
// client implementations. The scheduling core only ever talks to the store
// through this boundary; dates travel as "YYYY-MM-DD" strings normalized to
// the operator's local midnight and times as zero-padded "HH:MM".
package availstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curatel/telecare-scheduling/internal/availability"
)

var (
	// ErrSlotUnavailable is returned when a booking targets a slot the
	// provider has not opened.
	ErrSlotUnavailable = errors.New("availstore: slot is not open for booking")

	// ErrSlotAlreadyBooked is returned when a booking targets a slot that
	// already carries a confirmed appointment.
	ErrSlotAlreadyBooked = errors.New("availstore: slot is already booked")
)

// Pattern selects how a bulk write expands across dates.
type Pattern string

const (
	// PatternDay targets every date in the range whose weekday matches
	// BulkWrite.DayOfWeek.
	PatternDay Pattern = "day"
	// PatternWeek targets every date in the range (the caller bounds the
	// range to one calendar week).
	PatternWeek Pattern = "week"
	// PatternMonth targets every date in the range (the caller bounds the
	// range to one calendar month).
	PatternMonth Pattern = "month"
)

// DayWrite replaces one date's full open-slot list. Booked and buffer slots
// are never part of the payload; the store preserves them independently.
type DayWrite struct {
	Date           string   `json:"date"`
	AvailableTimes []string `json:"availableTimes"`
}

// BulkWrite expands one day's slot template across a date range server-side.
type BulkWrite struct {
	Pattern   Pattern  `json:"pattern"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	DayOfWeek *int     `json:"dayOfWeek,omitempty"` // 0 = Sunday; required for PatternDay
	Slots     []string `json:"slots"`
}

// Store is the sync boundary to the remote availability data. All
// implementations are safe for concurrent use.
type Store interface {
	// FetchAvailability returns the raw per-date slot lists for the
	// inclusive range. Dates without any slots are omitted.
	FetchAvailability(ctx context.Context, providerID, startDate, endDate string) ([]availability.DaySlots, error)

	// WriteAvailability upserts the full open-slot list per date. Booked
	// slots on those dates are preserved.
	WriteAvailability(ctx context.Context, providerID string, days []DayWrite) error

	// BulkWriteAvailability applies one slot template across the dates the
	// pattern expands to, with the same preserve-booked semantics.
	BulkWriteAvailability(ctx context.Context, providerID string, req BulkWrite) error

	// ClearAvailability removes all open slots on the given dates; booked
	// slots survive.
	ClearAvailability(ctx context.Context, providerID string, dates []string) error
}

// Booker marks an open slot as booked. This is the store-side entry point of
// the external booking flow; the schedule editor never writes booked state.
type Booker interface {
	BookSlot(ctx context.Context, providerID, date, clock string, durationMinutes int) error
}

// ExpandPattern lists the concrete dates a bulk write targets, inclusive and
// in chronological order.
func ExpandPattern(req BulkWrite) ([]string, error) {
	start, err := availability.ParseDateKey(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := availability.ParseDateKey(req.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("availstore: range %s..%s is inverted", req.StartDate, req.EndDate)
	}

	var match func(time.Time) bool
	switch req.Pattern {
	case PatternDay:
		if req.DayOfWeek == nil {
			return nil, fmt.Errorf("availstore: pattern %q requires dayOfWeek", req.Pattern)
		}
		weekday := time.Weekday(*req.DayOfWeek)
		if weekday < time.Sunday || weekday > time.Saturday {
			return nil, fmt.Errorf("availstore: invalid dayOfWeek %d", *req.DayOfWeek)
		}
		match = func(t time.Time) bool { return t.Weekday() == weekday }
	case PatternWeek, PatternMonth:
		match = func(time.Time) bool { return true }
	default:
		return nil, fmt.Errorf("availstore: unknown pattern %q", req.Pattern)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if match(d) {
			dates = append(dates, availability.DateKey(d))
		}
	}
	return dates, nil
}
