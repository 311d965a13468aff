// Package availability models provider time slots and derives the per-day
// views (available / booked / buffer) the schedule editor works against.
package availability

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates. Dates never carry a
	// time component or timezone offset; they are normalized to the
	// operator's local midnight before hitting the store.
	DateLayout = "2006-01-02"

	// ClockLayout is the wire format for times of day.
	ClockLayout = "15:04"

	minutesPerDay = 24 * 60
)

// DefaultPossibleDurations is applied when a stored slot record omits its
// duration options. Older records predate per-slot durations.
var DefaultPossibleDurations = []int{30, 50, 80}

// Slot is one offerable/bookable time-of-day unit for one provider on one
// date. A booked slot is never simultaneously open: booking consumes
// availability.
type Slot struct {
	Time              string `json:"time"`
	IsAvailable       bool   `json:"isAvailable"`
	IsBooked          bool   `json:"isBooked"`
	DurationMinutes   int    `json:"duration,omitempty"`
	PossibleDurations []int  `json:"possibleDurations,omitempty"`
}

// Validate checks the slot's wire invariants.
func (s Slot) Validate() error {
	if _, err := ParseClock(s.Time); err != nil {
		return err
	}
	if s.IsBooked && s.IsAvailable {
		return fmt.Errorf("availability: slot %s is both booked and available", s.Time)
	}
	if s.IsBooked && s.DurationMinutes < 0 {
		return fmt.Errorf("availability: slot %s has negative duration", s.Time)
	}
	return nil
}

// DaySlots is the raw per-date slot list exchanged with the availability store.
type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// ParseClock parses a zero-padded 24-hour "HH:MM" string into minutes from
// midnight. The format is strict: "9:30" and "09:5" are rejected.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("availability: invalid clock time %q", value)
	}
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("availability: invalid clock time %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes from midnight as a zero-padded "HH:MM" string.
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DateKey renders t as the wire date string for its local calendar day.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a wire date string into local midnight of that day.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: invalid date %q", key)
	}
	return t, nil
}

// Midnight truncates t to local midnight of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
