package availstore

import (
	"context"
	"sort"
	"sync"

	"github.com/curatel/telecare-scheduling/internal/availability"
)

// InMemoryStore keeps availability in process memory. Used in tests and as a
// local-development fallback when no database is configured.
type InMemoryStore struct {
	mu sync.RWMutex
	// providerID -> date -> clock -> slot
	data map[string]map[string]map[string]availability.Slot
}

// NewInMemoryStore creates an empty in-memory availability store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]map[string]map[string]availability.Slot),
	}
}

// Seed installs raw slots for a provider/date, replacing whatever is there.
// Test helper; not part of the Store contract.
func (s *InMemoryStore) Seed(providerID, date string, slots []availability.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := make(map[string]availability.Slot, len(slots))
	for _, slot := range slots {
		day[slot.Time] = slot
	}
	s.providerLocked(providerID)[date] = day
}

// FetchAvailability implements Store.
func (s *InMemoryStore) FetchAvailability(ctx context.Context, providerID, startDate, endDate string) ([]availability.DaySlots, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start, err := availability.ParseDateKey(startDate)
	if err != nil {
		return nil, err
	}
	end, err := availability.ParseDateKey(endDate)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	days, ok := s.data[providerID]
	if !ok {
		return nil, nil
	}

	var out []availability.DaySlots
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := availability.DateKey(d)
		day, ok := days[key]
		if !ok || len(day) == 0 {
			continue
		}
		slots := make([]availability.Slot, 0, len(day))
		for _, slot := range day {
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
		out = append(out, availability.DaySlots{Date: key, Slots: slots})
	}
	return out, nil
}

// WriteAvailability implements Store. Booked slots survive the overwrite.
func (s *InMemoryStore) WriteAvailability(ctx context.Context, providerID string, days []DayWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, day := range days {
		if _, err := availability.ParseDateKey(day.Date); err != nil {
			return err
		}
		for _, clock := range day.AvailableTimes {
			if _, err := availability.ParseClock(clock); err != nil {
				return err
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	provider := s.providerLocked(providerID)
	for _, day := range days {
		provider[day.Date] = overwriteOpenSlots(provider[day.Date], day.AvailableTimes)
	}
	return nil
}

// BulkWriteAvailability implements Store.
func (s *InMemoryStore) BulkWriteAvailability(ctx context.Context, providerID string, req BulkWrite) error {
	dates, err := ExpandPattern(req)
	if err != nil {
		return err
	}
	days := make([]DayWrite, len(dates))
	for i, date := range dates {
		days[i] = DayWrite{Date: date, AvailableTimes: req.Slots}
	}
	return s.WriteAvailability(ctx, providerID, days)
}

// ClearAvailability implements Store.
func (s *InMemoryStore) ClearAvailability(ctx context.Context, providerID string, dates []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	provider := s.providerLocked(providerID)
	for _, date := range dates {
		provider[date] = overwriteOpenSlots(provider[date], nil)
	}
	return nil
}

// BookSlot implements Booker. Only an open slot can be booked; booking
// consumes availability.
func (s *InMemoryStore) BookSlot(ctx context.Context, providerID, date, clock string, durationMinutes int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	day, ok := s.data[providerID][date]
	if !ok {
		return ErrSlotUnavailable
	}
	slot, ok := day[clock]
	if !ok {
		return ErrSlotUnavailable
	}
	if slot.IsBooked {
		return ErrSlotAlreadyBooked
	}
	if !slot.IsAvailable {
		return ErrSlotUnavailable
	}
	slot.IsAvailable = false
	slot.IsBooked = true
	slot.DurationMinutes = durationMinutes
	day[clock] = slot
	return nil
}

func (s *InMemoryStore) providerLocked(providerID string) map[string]map[string]availability.Slot {
	provider, ok := s.data[providerID]
	if !ok {
		provider = make(map[string]map[string]availability.Slot)
		s.data[providerID] = provider
	}
	return provider
}

// overwriteOpenSlots rebuilds a day from the new open-slot list, carrying the
// booked slots over unchanged. An open time colliding with a booked time is
// dropped: the booking wins.
func overwriteOpenSlots(existing map[string]availability.Slot, openTimes []string) map[string]availability.Slot {
	next := make(map[string]availability.Slot)
	for clock, slot := range existing {
		if slot.IsBooked {
			next[clock] = slot
		}
	}
	for _, clock := range openTimes {
		if _, booked := next[clock]; booked {
			continue
		}
		prev, had := existing[clock]
		slot := availability.Slot{Time: clock, IsAvailable: true}
		if had {
			slot.PossibleDurations = prev.PossibleDurations
		}
		next[clock] = slot
	}
	return next
}
