package availability

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		value   string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"14:50", 890, false},
		{"23:59", 1439, false},
		{"9:30", 0, true},
		{"09:5", 0, true},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"banana", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.value)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error, got %d", tt.value, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", tt.value, err)
			continue
		}
		if got != tt.minutes {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.value, got, tt.minutes)
		}
	}
}

func TestFormatClockRoundTrip(t *testing.T) {
	for _, clock := range []string{"00:00", "07:05", "14:50", "23:50"} {
		minutes, err := ParseClock(clock)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", clock, err)
		}
		if got := FormatClock(minutes); got != clock {
			t.Errorf("FormatClock(%d) = %q, want %q", minutes, got, clock)
		}
	}
}

func TestDateKeyRoundTrip(t *testing.T) {
	key := "2026-09-16"
	parsed, err := ParseDateKey(key)
	if err != nil {
		t.Fatalf("ParseDateKey: %v", err)
	}
	if parsed.Hour() != 0 || parsed.Minute() != 0 {
		t.Errorf("expected local midnight, got %v", parsed)
	}
	if got := DateKey(parsed); got != key {
		t.Errorf("DateKey round trip = %q, want %q", got, key)
	}
}

func TestMidnight(t *testing.T) {
	now := time.Date(2026, time.September, 16, 18, 42, 7, 0, time.Local)
	mid := Midnight(now)
	if mid.Hour() != 0 || mid.Minute() != 0 || mid.Second() != 0 {
		t.Fatalf("Midnight returned %v", mid)
	}
	if mid.Day() != 16 {
		t.Fatalf("Midnight changed the day: %v", mid)
	}
}

func TestSlotValidate(t *testing.T) {
	valid := Slot{Time: "10:00", IsAvailable: true}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bothFlags := Slot{Time: "10:00", IsAvailable: true, IsBooked: true}
	if err := bothFlags.Validate(); err == nil {
		t.Error("expected error for booked+available slot")
	}

	badTime := Slot{Time: "10am"}
	if err := badTime.Validate(); err == nil {
		t.Error("expected error for malformed time")
	}
}
