// Package postgres persists provider availability in the relational
// database. It is the server side of the availstore contract: open-slot
// writes and clears never touch booked rows.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements availstore.Store and availstore.Booker on Postgres.
type Store struct {
	db DB
}

// NewStore creates a Postgres-backed availability store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("availstore/postgres: db required")
	}
	return &Store{db: db}
}

const fetchQuery = `
	SELECT to_char(day, 'YYYY-MM-DD'), slot_time, is_available, is_booked,
	       COALESCE(duration_minutes, 0), possible_durations
	FROM provider_availability
	WHERE provider_id = $1 AND day BETWEEN $2 AND $3
	ORDER BY day, slot_time`

// FetchAvailability implements availstore.Store.
func (s *Store) FetchAvailability(ctx context.Context, providerID, startDate, endDate string) ([]availability.DaySlots, error) {
	rows, err := s.db.Query(ctx, fetchQuery, providerID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("availstore/postgres: fetch range: %w", err)
	}
	defer rows.Close()

	var out []availability.DaySlots
	for rows.Next() {
		var (
			date      string
			slot      availability.Slot
			durations []int32
		)
		if err := rows.Scan(&date, &slot.Time, &slot.IsAvailable, &slot.IsBooked,
			&slot.DurationMinutes, &durations); err != nil {
			return nil, fmt.Errorf("availstore/postgres: scan slot: %w", err)
		}
		for _, d := range durations {
			slot.PossibleDurations = append(slot.PossibleDurations, int(d))
		}
		if len(out) == 0 || out[len(out)-1].Date != date {
			out = append(out, availability.DaySlots{Date: date})
		}
		out[len(out)-1].Slots = append(out[len(out)-1].Slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availstore/postgres: iterate slots: %w", err)
	}
	return out, nil
}

const deleteOpenQuery = `
	DELETE FROM provider_availability
	WHERE provider_id = $1 AND day = $2 AND NOT is_booked`

const insertOpenQuery = `
	INSERT INTO provider_availability (provider_id, day, slot_time, is_available, is_booked)
	VALUES ($1, $2, $3, TRUE, FALSE)
	ON CONFLICT (provider_id, day, slot_time) DO NOTHING`

// WriteAvailability implements availstore.Store. Each call runs in a single
// transaction: either every date lands or none does.
func (s *Store) WriteAvailability(ctx context.Context, providerID string, days []availstore.DayWrite) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("availstore/postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, day := range days {
		if _, err := tx.Exec(ctx, deleteOpenQuery, providerID, day.Date); err != nil {
			return fmt.Errorf("availstore/postgres: clear open slots %s: %w", day.Date, err)
		}
		for _, clock := range day.AvailableTimes {
			if _, err := availability.ParseClock(clock); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, insertOpenQuery, providerID, day.Date, clock); err != nil {
				return fmt.Errorf("availstore/postgres: insert slot %s %s: %w", day.Date, clock, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("availstore/postgres: commit: %w", err)
	}
	return nil
}

// BulkWriteAvailability implements availstore.Store by expanding the pattern
// locally and reusing the transactional write path.
func (s *Store) BulkWriteAvailability(ctx context.Context, providerID string, req availstore.BulkWrite) error {
	dates, err := availstore.ExpandPattern(req)
	if err != nil {
		return err
	}
	days := make([]availstore.DayWrite, len(dates))
	for i, date := range dates {
		days[i] = availstore.DayWrite{Date: date, AvailableTimes: req.Slots}
	}
	return s.WriteAvailability(ctx, providerID, days)
}

const clearQuery = `
	DELETE FROM provider_availability
	WHERE provider_id = $1 AND day = ANY($2::date[]) AND NOT is_booked`

// ClearAvailability implements availstore.Store.
func (s *Store) ClearAvailability(ctx context.Context, providerID string, dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, clearQuery, providerID, dates); err != nil {
		return fmt.Errorf("availstore/postgres: clear dates: %w", err)
	}
	return nil
}

const bookQuery = `
	UPDATE provider_availability
	SET is_available = FALSE, is_booked = TRUE, duration_minutes = $4
	WHERE provider_id = $1 AND day = $2 AND slot_time = $3
	  AND is_available AND NOT is_booked`

const bookedExistsQuery = `
	SELECT EXISTS (
		SELECT 1 FROM provider_availability
		WHERE provider_id = $1 AND day = $2 AND slot_time = $3 AND is_booked
	)`

// BookSlot implements availstore.Booker. Booking consumes availability
// atomically: the update only matches an open, unbooked row.
func (s *Store) BookSlot(ctx context.Context, providerID, date, clock string, durationMinutes int) error {
	tag, err := s.db.Exec(ctx, bookQuery, providerID, date, clock, durationMinutes)
	if err != nil {
		return fmt.Errorf("availstore/postgres: book slot: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var alreadyBooked bool
	rows, err := s.db.Query(ctx, bookedExistsQuery, providerID, date, clock)
	if err != nil {
		return fmt.Errorf("availstore/postgres: check booking: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&alreadyBooked); err != nil {
			return fmt.Errorf("availstore/postgres: check booking: %w", err)
		}
	}
	if alreadyBooked {
		return availstore.ErrSlotAlreadyBooked
	}
	return availstore.ErrSlotUnavailable
}
