package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
	"github.com/curatel/telecare-scheduling/internal/observability/metrics"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

var scheduleTracer = otel.Tracer("telecare.internal.schedule")

// State is the session lifecycle phase.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateSaving   State = "saving"
)

// Config assembles a session's collaborators.
type Config struct {
	ProviderID string
	Category   availability.Category
	Store      availstore.Store
	Reducer    *availability.Reducer
	Logger     *logging.Logger
	Metrics    *metrics.SchedulingMetrics

	// WindowMonths bounds the editable horizon; defaults to
	// DefaultWindowMonths.
	WindowMonths int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Session is the in-memory working copy of one provider's availability over
// the editable window. Local mutations are not authoritative until they have
// been saved and the window re-fetched.
type Session struct {
	providerID   string
	category     availability.Category
	store        availstore.Store
	reducer      *availability.Reducer
	logger       *logging.Logger
	metrics      *metrics.SchedulingMetrics
	windowMonths int
	now          func() time.Time

	mu            sync.Mutex
	state         State
	writeInFlight bool
	window        Window
	days          map[string]availability.DayAvailability
	dirty         map[string]struct{}
	selectedDate  string
	viewingDate   time.Time
}

// NewSession creates an unloaded session for one provider.
func NewSession(cfg Config) (*Session, error) {
	if cfg.ProviderID == "" {
		return nil, fmt.Errorf("schedule: provider id required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("schedule: store required")
	}
	if cfg.Reducer == nil {
		cfg.Reducer = availability.NewReducer(availability.DefaultBufferPolicy())
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = DefaultWindowMonths
	}
	return &Session{
		providerID:   cfg.ProviderID,
		category:     cfg.Category,
		store:        cfg.Store,
		reducer:      cfg.Reducer,
		logger:       cfg.Logger.Component("schedule.session"),
		metrics:      cfg.Metrics,
		windowMonths: cfg.WindowMonths,
		now:          cfg.Now,
		state:        StateUnloaded,
		days:         make(map[string]availability.DayAvailability),
		dirty:        make(map[string]struct{}),
	}, nil
}

// ProviderID returns the provider this session edits.
func (s *Session) ProviderID() string { return s.providerID }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Window returns the editable window. Zero until Load succeeds.
func (s *Session) Window() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// Load fetches the whole editable window once and derives local state from
// it. The fetch covers the full horizon up front; month navigation later
// never re-fetches.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return fmt.Errorf("schedule: load already in progress")
	}
	s.state = StateLoading
	window := NewWindow(s.now(), s.windowMonths)
	s.mu.Unlock()

	raw, err := s.fetchWindow(ctx, window)
	if err != nil {
		s.mu.Lock()
		s.state = StateUnloaded
		s.mu.Unlock()
		return err
	}

	days := s.reduceAll(raw)

	s.mu.Lock()
	s.window = window
	s.days = days
	s.dirty = make(map[string]struct{})
	s.selectedDate = window.StartKey()
	s.viewingDate = window.Start
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info("session loaded",
		"provider_id", s.providerID,
		"window_start", window.StartKey(),
		"window_end", window.EndKey(),
		"days", len(days),
	)
	return nil
}

// Day returns the derived views for one date. Dates inside the window with
// no slots yield empty views. The returned value is read-only.
func (s *Session) Day(dateKey string) (availability.DayAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnloaded || s.state == StateLoading {
		return availability.DayAvailability{}, ErrNotReady
	}
	if !s.window.ContainsKey(dateKey) {
		return availability.DayAvailability{}, s.outOfWindow(dateKey)
	}
	day, ok := s.days[dateKey]
	if !ok {
		return availability.DayAvailability{SlotDetails: map[string]availability.SlotDetail{}}, nil
	}
	return day, nil
}

// SelectDate moves the editing focus. The date must be inside the window.
func (s *Session) SelectDate(dateKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnloaded || s.state == StateLoading {
		return ErrNotReady
	}
	if !s.window.ContainsKey(dateKey) {
		return s.outOfWindow(dateKey)
	}
	s.selectedDate = dateKey
	return nil
}

// SelectedDate returns the date currently being edited.
func (s *Session) SelectedDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedDate
}

// NavigateMonths moves the viewed calendar month by offset without touching
// the selected date and without any re-fetch.
func (s *Session) NavigateMonths(offset int) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewingDate = s.viewingDate.AddDate(0, offset, 0)
	return s.viewingDate
}

// ViewingDate returns the calendar month currently being browsed.
func (s *Session) ViewingDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewingDate
}

// ToggleSlot opens (enable) or closes (!enable) one slot in the local
// working copy. Booked and buffer slots are rejected with a ConflictError
// and nothing is mutated. Purely in-memory; persistence is a separate,
// explicit Save.
func (s *Session) ToggleSlot(dateKey, clock string, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnloaded || s.state == StateLoading {
		return ErrNotReady
	}
	if !s.window.ContainsKey(dateKey) {
		s.metrics.ObserveToggle("out_of_window")
		return s.outOfWindow(dateKey)
	}
	if _, err := availability.ParseClock(clock); err != nil {
		s.metrics.ObserveToggle("invalid")
		return err
	}

	day, ok := s.days[dateKey]
	if !ok {
		day = availability.DayAvailability{SlotDetails: map[string]availability.SlotDetail{}}
	}
	if availability.Contains(day.BookedTimes, clock) {
		s.metrics.ObserveToggle("conflict")
		return &ConflictError{Date: dateKey, Clock: clock, Reason: "booked"}
	}
	if availability.Contains(day.BufferTimes, clock) {
		s.metrics.ObserveToggle("conflict")
		return &ConflictError{Date: dateKey, Clock: clock, Reason: "buffer"}
	}

	if enable {
		if !availability.Contains(day.AvailableTimes, clock) {
			day.AvailableTimes = append(day.AvailableTimes, clock)
			sort.Strings(day.AvailableTimes)
		}
		detail, had := day.SlotDetails[clock]
		if !had {
			detail.PossibleDurations = append([]int(nil), availability.DefaultPossibleDurations...)
		}
		detail.IsAvailable = true
		day.SlotDetails[clock] = detail
	} else {
		day.AvailableTimes = removeTime(day.AvailableTimes, clock)
		if detail, had := day.SlotDetails[clock]; had {
			detail.IsAvailable = false
			day.SlotDetails[clock] = detail
		}
	}

	s.days[dateKey] = day
	s.dirty[dateKey] = struct{}{}
	s.metrics.ObserveToggle("accepted")
	return nil
}

// Save pushes every locally-edited date's open-slot list through the store,
// then re-fetches the window and rebuilds local state from the response.
// Only one save or bulk operation may be in flight per session.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady && s.state != StateSaving {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.writeInFlight {
		s.mu.Unlock()
		return ErrWriteInFlight
	}
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}
	writes := make([]availstore.DayWrite, 0, len(s.dirty))
	for dateKey := range s.dirty {
		day := s.days[dateKey]
		writes = append(writes, availstore.DayWrite{
			Date:           dateKey,
			AvailableTimes: append([]string(nil), day.AvailableTimes...),
		})
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].Date < writes[j].Date })
	s.writeInFlight = true
	s.state = StateSaving
	s.mu.Unlock()

	ctx, span := scheduleTracer.Start(ctx, "schedule.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("telecare.provider_id", s.providerID),
		attribute.Int("telecare.dates", len(writes)),
	)

	err := s.timedWrite("write", func() error {
		return s.store.WriteAvailability(ctx, s.providerID, writes)
	})
	if err != nil {
		span.RecordError(err)
		s.finishWrite()
		return &SyncFailure{Op: "save", Err: err}
	}

	refreshErr := s.refresh(ctx)
	s.finishWrite()
	if refreshErr != nil {
		span.RecordError(refreshErr)
		return refreshErr
	}
	s.logger.Info("schedule saved", "provider_id", s.providerID, "dates", len(writes))
	return nil
}

// refresh re-fetches the whole window and rebuilds the derived maps. Any
// booking that landed remotely while we were editing shows up here and wins
// over local "available" state.
func (s *Session) refresh(ctx context.Context) error {
	s.mu.Lock()
	window := s.window
	s.mu.Unlock()

	raw, err := s.fetchWindow(ctx, window)
	if err != nil {
		return err
	}
	days := s.reduceAll(raw)

	s.mu.Lock()
	s.days = days
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}

// finishWrite releases the write gate. When the post-write refresh failed,
// the dirty set is untouched, so a retried save re-sends the same dates.
func (s *Session) finishWrite() {
	s.mu.Lock()
	s.writeInFlight = false
	s.state = StateReady
	s.mu.Unlock()
}

func (s *Session) fetchWindow(ctx context.Context, window Window) ([]availability.DaySlots, error) {
	start := time.Now()
	raw, err := s.store.FetchAvailability(ctx, s.providerID, window.StartKey(), window.EndKey())
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveSync("fetch", status, time.Since(start).Seconds())
	if err != nil {
		return nil, &SyncFailure{Op: "fetch", Err: err}
	}
	return raw, nil
}

func (s *Session) timedWrite(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveSync(op, status, time.Since(start).Seconds())
	return err
}

func (s *Session) reduceAll(raw []availability.DaySlots) map[string]availability.DayAvailability {
	days := make(map[string]availability.DayAvailability, len(raw))
	for _, daySlots := range raw {
		days[daySlots.Date] = s.reducer.Reduce(daySlots.Slots, s.category)
	}
	return days
}

func (s *Session) outOfWindow(dateKey string) error {
	return &OutOfWindowError{
		Date:     dateKey,
		WindowLo: s.window.StartKey(),
		WindowHi: s.window.EndKey(),
	}
}

func removeTime(times []string, clock string) []string {
	out := times[:0]
	for _, t := range times {
		if t != clock {
			out = append(out, t)
		}
	}
	return out
}
