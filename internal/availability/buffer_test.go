package availability

import (
	"reflect"
	"testing"
)

func TestComputeBufferSlotsCosmetologist(t *testing.T) {
	policy := DefaultBufferPolicy()

	// 50-minute booking at 14:00 with a 10-minute cooldown blocks 14:50.
	got, err := policy.ComputeBufferSlots("14:00", 50, CategoryCosmetologist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"14:50"}) {
		t.Fatalf("buffer slots = %v, want [14:50]", got)
	}
	if Contains(got, "14:00") {
		t.Error("booking start must not be part of its own buffer")
	}
}

func TestComputeBufferSlotsBeforeAndAfter(t *testing.T) {
	policy := DefaultBufferPolicy()

	// Therapists get 10 minutes of prep before and 20 of recovery after.
	got, err := policy.ComputeBufferSlots("10:00", 50, CategoryTherapist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:50", "10:50", "11:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buffer slots = %v, want %v", got, want)
	}
}

func TestComputeBufferSlotsDeterministic(t *testing.T) {
	policy := DefaultBufferPolicy()
	first, err := policy.ComputeBufferSlots("09:00", 30, CategoryPhysician)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := policy.ComputeBufferSlots("09:00", 30, CategoryPhysician)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs produced %v then %v", first, second)
	}
}

func TestComputeBufferSlotsTruncatedAtMidnight(t *testing.T) {
	policy := BufferPolicy{
		StepMinutes: 10,
		Fallback:    BufferRule{BeforeMinutes: 30, AfterMinutes: 30},
	}

	// Late booking: the after-window would cross into the next day.
	got, err := policy.ComputeBufferSlots("23:30", 20, "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"23:00", "23:10", "23:20", "23:50"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buffer slots = %v, want %v", got, want)
	}

	// Early booking: the before-window would cross into the previous day.
	got, err = policy.ComputeBufferSlots("00:10", 30, "unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, clock := range got {
		if clock >= "00:10" && clock < "00:40" {
			t.Errorf("buffer %s overlaps the booking itself", clock)
		}
	}
	if Contains(got, "23:50") {
		t.Error("before-window leaked across midnight")
	}
}

func TestComputeBufferSlotsUnknownCategoryFallback(t *testing.T) {
	policy := DefaultBufferPolicy()
	got, err := policy.ComputeBufferSlots("12:00", 30, "acupuncturist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Default policy has a zero fallback rule: nothing blocked.
	if len(got) != 0 {
		t.Fatalf("expected no buffer slots for unknown category, got %v", got)
	}
}

func TestComputeBufferSlotsInvalidStart(t *testing.T) {
	policy := DefaultBufferPolicy()
	if _, err := policy.ComputeBufferSlots("25:00", 30, CategoryPhysician); err == nil {
		t.Fatal("expected error for invalid start time")
	}
}
