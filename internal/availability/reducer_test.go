package availability

import (
	"reflect"
	"testing"
)

func intersect(a, b []string) []string {
	var out []string
	for _, t := range a {
		if Contains(b, t) {
			out = append(out, t)
		}
	}
	return out
}

func TestReduceClassification(t *testing.T) {
	r := NewReducer(DefaultBufferPolicy())

	raw := []Slot{
		{Time: "09:00", IsAvailable: true, PossibleDurations: []int{30, 50}},
		{Time: "10:00", IsBooked: true, DurationMinutes: 50},
		{Time: "12:00"},
	}

	day := r.Reduce(raw, CategoryCosmetologist)

	if !reflect.DeepEqual(day.AvailableTimes, []string{"09:00"}) {
		t.Errorf("availableTimes = %v", day.AvailableTimes)
	}
	if !reflect.DeepEqual(day.BookedTimes, []string{"10:00"}) {
		t.Errorf("bookedTimes = %v", day.BookedTimes)
	}
	if !reflect.DeepEqual(day.BufferTimes, []string{"10:50"}) {
		t.Errorf("bufferTimes = %v", day.BufferTimes)
	}

	detail := day.SlotDetails["09:00"]
	if !reflect.DeepEqual(detail.PossibleDurations, []int{30, 50}) {
		t.Errorf("possibleDurations = %v", detail.PossibleDurations)
	}
	if !day.SlotDetails["10:00"].IsBooked {
		t.Error("expected 10:00 detail to be booked")
	}
	if day.SlotDetails["12:00"].IsAvailable || day.SlotDetails["12:00"].IsBooked {
		t.Error("closed slot should be neither available nor booked")
	}
}

func TestReduceDerivedSetsDisjoint(t *testing.T) {
	r := NewReducer(DefaultBufferPolicy())

	// 10:50 is stored as available but sits inside the booking's buffer.
	raw := []Slot{
		{Time: "10:00", IsBooked: true, DurationMinutes: 50},
		{Time: "10:50", IsAvailable: true},
		{Time: "11:00", IsAvailable: true},
	}

	day := r.Reduce(raw, CategoryCosmetologist)

	if got := intersect(day.BufferTimes, day.AvailableTimes); len(got) != 0 {
		t.Errorf("buffer ∩ available = %v", got)
	}
	if got := intersect(day.BookedTimes, day.AvailableTimes); len(got) != 0 {
		t.Errorf("booked ∩ available = %v", got)
	}
	if !Contains(day.BufferTimes, "10:50") {
		t.Error("10:50 should be reported as buffer")
	}
	if !Contains(day.AvailableTimes, "11:00") {
		t.Error("11:00 should stay available")
	}
	if day.SlotDetails["10:50"].IsAvailable {
		t.Error("buffered slot detail must not read as available")
	}
}

func TestReduceBookedWinsOverBuffer(t *testing.T) {
	r := NewReducer(BufferPolicy{
		StepMinutes: 30,
		Fallback:    BufferRule{AfterMinutes: 60},
	})

	// Two back-to-back bookings: the first one's buffer window covers the
	// second booking's start, which must still be reported as booked.
	raw := []Slot{
		{Time: "09:00", IsBooked: true, DurationMinutes: 30},
		{Time: "09:30", IsBooked: true, DurationMinutes: 30},
	}

	day := r.Reduce(raw, "unknown")

	if !reflect.DeepEqual(day.BookedTimes, []string{"09:00", "09:30"}) {
		t.Fatalf("bookedTimes = %v", day.BookedTimes)
	}
	if Contains(day.BufferTimes, "09:30") {
		t.Error("booked time leaked into bufferTimes")
	}
	if !Contains(day.BufferTimes, "10:00") {
		t.Errorf("expected shared buffer at 10:00, got %v", day.BufferTimes)
	}
}

func TestReduceOverlappingBuffersDeduplicated(t *testing.T) {
	r := NewReducer(BufferPolicy{
		StepMinutes: 10,
		Fallback:    BufferRule{AfterMinutes: 20},
	})

	raw := []Slot{
		{Time: "09:00", IsBooked: true, DurationMinutes: 30},
		{Time: "09:10", IsBooked: true, DurationMinutes: 30},
	}

	day := r.Reduce(raw, "unknown")

	seen := map[string]int{}
	for _, clock := range day.BufferTimes {
		seen[clock]++
	}
	for clock, n := range seen {
		if n > 1 {
			t.Errorf("buffer time %s appears %d times", clock, n)
		}
	}
}

func TestReduceIdempotent(t *testing.T) {
	r := NewReducer(DefaultBufferPolicy())
	raw := []Slot{
		{Time: "09:00", IsAvailable: true},
		{Time: "14:00", IsBooked: true, DurationMinutes: 50},
		{Time: "16:30", IsAvailable: true},
	}

	first := r.Reduce(raw, CategoryCosmetologist)
	second := r.Reduce(raw, CategoryCosmetologist)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reduce not idempotent:\n%v\n%v", first, second)
	}
}

func TestReduceDefaultsPossibleDurations(t *testing.T) {
	r := NewReducer(DefaultBufferPolicy())
	day := r.Reduce([]Slot{{Time: "09:00", IsAvailable: true}}, CategoryPhysician)

	got := day.SlotDetails["09:00"].PossibleDurations
	if !reflect.DeepEqual(got, DefaultPossibleDurations) {
		t.Fatalf("possibleDurations = %v, want %v", got, DefaultPossibleDurations)
	}
}

func TestReduceSkipsMalformedTimes(t *testing.T) {
	r := NewReducer(DefaultBufferPolicy())
	day := r.Reduce([]Slot{
		{Time: "garbage", IsAvailable: true},
		{Time: "09:00", IsAvailable: true},
	}, CategoryPhysician)

	if !reflect.DeepEqual(day.AvailableTimes, []string{"09:00"}) {
		t.Fatalf("availableTimes = %v", day.AvailableTimes)
	}
	if _, ok := day.SlotDetails["garbage"]; ok {
		t.Error("malformed record should not produce slot details")
	}
}

func TestReduceScenarioBookedSlotBuffer(t *testing.T) {
	// A 14:00 booking with duration 50 under the cosmetologist policy must
	// yield 14:50 as buffer while 14:00 itself stays booked.
	r := NewReducer(DefaultBufferPolicy())
	day := r.Reduce([]Slot{
		{Time: "14:00", IsBooked: true, DurationMinutes: 50},
	}, CategoryCosmetologist)

	if !Contains(day.BufferTimes, "14:50") {
		t.Errorf("bufferTimes = %v, want to include 14:50", day.BufferTimes)
	}
	if Contains(day.BufferTimes, "14:00") {
		t.Error("14:00 must not be a buffer time")
	}
	if !Contains(day.BookedTimes, "14:00") {
		t.Error("14:00 must be a booked time")
	}
}
