package schedule

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
)

// BulkKind selects how a bulk operation expands across dates.
type BulkKind string

const (
	// BulkApplyDay copies the anchor date's template onto every date in the
	// anchor's month sharing its weekday.
	BulkApplyDay BulkKind = "applyDay"
	// BulkApplyWeek copies the template onto the Sun..Sat week containing
	// the anchor.
	BulkApplyWeek BulkKind = "applyWeek"
	// BulkApplyMonth copies the template onto every date in the anchor's
	// month.
	BulkApplyMonth BulkKind = "applyMonth"
	// BulkClearDate removes the anchor date's open slots.
	BulkClearDate BulkKind = "clearDate"
	// BulkClearWeekday clears the anchor weekday across the anchor's month.
	BulkClearWeekday BulkKind = "clearWeekday"
	// BulkClearWeek clears the Sun..Sat week containing the anchor.
	BulkClearWeek BulkKind = "clearWeek"
	// BulkClearMonth clears the anchor's whole month.
	BulkClearMonth BulkKind = "clearMonth"
)

// bulkPlan is a fully-expanded bulk operation, ready to dispatch.
type bulkPlan struct {
	kind  BulkKind
	write *availstore.BulkWrite // set for apply kinds
	dates []string              // set for clear kinds
}

// ApplyBulk expands the edit intent into concrete target dates bounded by
// the editable window and dispatches it through the store. Local state is
// never touched before the remote call succeeds; on success the window is
// re-fetched and re-reduced rather than predicted locally, so concurrent
// server-side bookings are reflected correctly.
//
// The anchor's current open-slot list is the template for apply kinds.
func (s *Session) ApplyBulk(ctx context.Context, kind BulkKind, anchorKey string) error {
	s.mu.Lock()
	if s.state != StateReady && s.state != StateSaving {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.writeInFlight {
		s.mu.Unlock()
		return ErrWriteInFlight
	}
	if !s.window.ContainsKey(anchorKey) {
		s.mu.Unlock()
		s.metrics.ObserveBulk(string(kind), "out_of_window")
		return s.outOfWindow(anchorKey)
	}
	template := append([]string(nil), s.days[anchorKey].AvailableTimes...)
	window := s.window
	s.mu.Unlock()

	plan, err := buildPlan(kind, anchorKey, template, window)
	if err != nil {
		s.metrics.ObserveBulk(string(kind), "invalid")
		return err
	}
	if plan == nil {
		// Every target date fell outside the window: nothing to do, and
		// nothing is sent.
		return nil
	}

	s.mu.Lock()
	if s.writeInFlight {
		s.mu.Unlock()
		return ErrWriteInFlight
	}
	s.writeInFlight = true
	s.state = StateSaving
	s.mu.Unlock()

	ctx, span := scheduleTracer.Start(ctx, "schedule.bulk")
	defer span.End()
	span.SetAttributes(
		attribute.String("telecare.provider_id", s.providerID),
		attribute.String("telecare.bulk_kind", string(kind)),
	)

	err = s.dispatch(ctx, plan)
	if err != nil {
		span.RecordError(err)
		s.finishWrite()
		s.metrics.ObserveBulk(string(kind), "error")
		return &SyncFailure{Op: string(kind), Err: err}
	}

	refreshErr := s.refresh(ctx)
	s.finishWrite()
	if refreshErr != nil {
		span.RecordError(refreshErr)
		s.metrics.ObserveBulk(string(kind), "error")
		return refreshErr
	}
	s.metrics.ObserveBulk(string(kind), "ok")
	s.logger.Info("bulk operation applied",
		"provider_id", s.providerID,
		"kind", string(kind),
		"anchor", anchorKey,
	)
	return nil
}

func (s *Session) dispatch(ctx context.Context, plan *bulkPlan) error {
	if plan.write != nil {
		return s.timedWrite("bulk_write", func() error {
			return s.store.BulkWriteAvailability(ctx, s.providerID, *plan.write)
		})
	}
	return s.timedWrite("clear", func() error {
		return s.store.ClearAvailability(ctx, s.providerID, plan.dates)
	})
}

// buildPlan expands kind+anchor into target dates intersected with the
// window. A nil plan with nil error means the intersection was empty.
func buildPlan(kind BulkKind, anchorKey string, template []string, window Window) (*bulkPlan, error) {
	anchor, err := availability.ParseDateKey(anchorKey)
	if err != nil {
		return nil, err
	}

	var from, to time.Time
	var pattern availstore.Pattern
	var dayOfWeek *int

	switch kind {
	case BulkApplyDay, BulkClearWeekday:
		from, to = monthRange(anchor)
		pattern = availstore.PatternDay
		wd := int(anchor.Weekday())
		dayOfWeek = &wd
	case BulkApplyWeek, BulkClearWeek:
		from, to = weekRange(anchor)
		pattern = availstore.PatternWeek
	case BulkApplyMonth, BulkClearMonth:
		from, to = monthRange(anchor)
		pattern = availstore.PatternMonth
	case BulkClearDate:
		return &bulkPlan{kind: kind, dates: []string{anchorKey}}, nil
	default:
		return nil, fmt.Errorf("schedule: unknown bulk kind %q", kind)
	}

	start, end, ok := window.Clamp(from, to)
	if !ok {
		return nil, nil
	}

	write := availstore.BulkWrite{
		Pattern:   pattern,
		StartDate: availability.DateKey(start),
		EndDate:   availability.DateKey(end),
		DayOfWeek: dayOfWeek,
		Slots:     template,
	}

	switch kind {
	case BulkApplyDay, BulkApplyWeek, BulkApplyMonth:
		return &bulkPlan{kind: kind, write: &write}, nil
	default:
		// Clear kinds expand locally and go through the clear operation.
		dates, err := availstore.ExpandPattern(write)
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, nil
		}
		return &bulkPlan{kind: kind, dates: dates}, nil
	}
}

// monthRange returns the first and last day of the anchor's calendar month.
func monthRange(anchor time.Time) (time.Time, time.Time) {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	last := first.AddDate(0, 1, -1)
	return first, last
}

// weekRange returns the Sunday..Saturday week containing the anchor.
func weekRange(anchor time.Time) (time.Time, time.Time) {
	anchor = availability.Midnight(anchor)
	start := anchor.AddDate(0, 0, -int(anchor.Weekday()))
	return start, start.AddDate(0, 0, 6)
}
