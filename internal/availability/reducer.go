package availability

import "sort"

// SlotDetail is the read-only per-time metadata the editor shows and
// validates against.
type SlotDetail struct {
	PossibleDurations []int `json:"possibleDurations"`
	DurationMinutes   int   `json:"duration,omitempty"`
	IsBooked          bool  `json:"isBooked"`
	IsAvailable       bool  `json:"isAvailable"`
}

// DayAvailability holds the derived views for one date. Booked and buffer
// times are never stored; they are recomputed every time the day is
// materialized, so they cannot drift out of sync with each other.
type DayAvailability struct {
	AvailableTimes []string              `json:"availableTimes"`
	BookedTimes    []string              `json:"bookedTimes"`
	BufferTimes    []string              `json:"bufferTimes"`
	SlotDetails    map[string]SlotDetail `json:"slotDetails"`
}

// Contains reports whether times holds the given clock time. The derived
// slices are small (a day's schedule), so a linear scan is fine.
func Contains(times []string, clock string) bool {
	for _, t := range times {
		if t == clock {
			return true
		}
	}
	return false
}

// Reducer materializes per-day derived views from raw store records.
type Reducer struct {
	policy BufferPolicy
}

// NewReducer builds a reducer with the given buffer policy.
func NewReducer(policy BufferPolicy) *Reducer {
	return &Reducer{policy: policy}
}

// Policy exposes the buffer policy the reducer derives buffer times with.
func (r *Reducer) Policy() BufferPolicy {
	return r.policy
}

// Reduce rebuilds one date's derived views wholesale from the raw slot list.
// The output is never patched incrementally.
//
// Classification rules:
//   - booked wins over available when a raw record claims both;
//   - every booked slot contributes its buffer window, deduplicated across
//     overlapping bookings;
//   - a slot marked available that falls inside a buffer window is dropped
//     from availableTimes (booked/buffer always win over "available");
//   - malformed clock times are skipped rather than failing the whole day.
func (r *Reducer) Reduce(raw []Slot, category Category) DayAvailability {
	available := make(map[string]struct{})
	booked := make(map[string]struct{})
	buffer := make(map[string]struct{})
	details := make(map[string]SlotDetail)

	for _, s := range raw {
		if _, err := ParseClock(s.Time); err != nil {
			continue
		}

		durations := s.PossibleDurations
		if len(durations) == 0 {
			durations = append([]int(nil), DefaultPossibleDurations...)
		}

		switch {
		case s.IsBooked:
			booked[s.Time] = struct{}{}
			duration := s.DurationMinutes
			if duration <= 0 {
				duration = durations[0]
			}
			times, err := r.policy.ComputeBufferSlots(s.Time, duration, category)
			if err == nil {
				for _, t := range times {
					buffer[t] = struct{}{}
				}
			}
			details[s.Time] = SlotDetail{
				PossibleDurations: durations,
				DurationMinutes:   duration,
				IsBooked:          true,
			}
		case s.IsAvailable:
			available[s.Time] = struct{}{}
			details[s.Time] = SlotDetail{
				PossibleDurations: durations,
				IsAvailable:       true,
			}
		default:
			details[s.Time] = SlotDetail{PossibleDurations: durations}
		}
	}

	// A booked time is reported as booked, never as buffer.
	for t := range booked {
		delete(buffer, t)
	}
	// Buffer times shadow any stored "available" flag.
	for t := range buffer {
		if _, ok := available[t]; ok {
			delete(available, t)
			detail := details[t]
			detail.IsAvailable = false
			details[t] = detail
		}
	}

	return DayAvailability{
		AvailableTimes: sortedTimes(available),
		BookedTimes:    sortedTimes(booked),
		BufferTimes:    sortedTimes(buffer),
		SlotDetails:    details,
	}
}

// sortedTimes flattens a set of zero-padded clock strings; lexicographic
// order is chronological order for this format.
func sortedTimes(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
