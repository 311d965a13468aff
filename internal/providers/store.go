package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/curatel/telecare-scheduling/internal/availability"
)

// Repository stores the provider registry.
type Repository interface {
	Create(ctx context.Context, p Provider) error
	Get(ctx context.Context, id string) (Provider, error)
	List(ctx context.Context) ([]Provider, error)
	Update(ctx context.Context, p Provider) error
}

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository persists providers in the providers table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a Postgres-backed provider registry.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("providers: db required")
	}
	return &PostgresRepository{db: db}
}

const (
	insertQuery = `
	INSERT INTO providers (id, name, category, timezone, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectQuery = `
	SELECT id, name, category, timezone, active, created_at, updated_at
	FROM providers WHERE id = $1`

	listQuery = `
	SELECT id, name, category, timezone, active, created_at, updated_at
	FROM providers ORDER BY name`

	updateQuery = `
	UPDATE providers
	SET name = $2, category = $3, timezone = $4, active = $5, updated_at = $6
	WHERE id = $1`
)

// Create implements Repository.
func (r *PostgresRepository) Create(ctx context.Context, p Provider) error {
	_, err := r.db.Exec(ctx, insertQuery,
		p.ID, p.Name, string(p.Category), p.Timezone, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("providers: create %s: %w", p.ID, err)
	}
	return nil
}

// Get implements Repository.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Provider, error) {
	var (
		p        Provider
		category string
	)
	err := r.db.QueryRow(ctx, selectQuery, id).Scan(
		&p.ID, &p.Name, &category, &p.Timezone, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Provider{}, ErrNotFound
	}
	if err != nil {
		return Provider{}, fmt.Errorf("providers: get %s: %w", id, err)
	}
	p.Category = availability.Category(category)
	return p, nil
}

// List implements Repository.
func (r *PostgresRepository) List(ctx context.Context) ([]Provider, error) {
	rows, err := r.db.Query(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("providers: list: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		var (
			p        Provider
			category string
		)
		if err := rows.Scan(&p.ID, &p.Name, &category, &p.Timezone, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("providers: scan: %w", err)
		}
		p.Category = availability.Category(category)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("providers: list: %w", err)
	}
	return out, nil
}

// Update implements Repository.
func (r *PostgresRepository) Update(ctx context.Context, p Provider) error {
	tag, err := r.db.Exec(ctx, updateQuery,
		p.ID, p.Name, string(p.Category), p.Timezone, p.Active, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("providers: update %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InMemoryRepository is the registry used in tests and local development.
type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[string]Provider
}

// NewInMemoryRepository creates an empty in-memory registry.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[string]Provider)}
}

// Create implements Repository.
func (r *InMemoryRepository) Create(ctx context.Context, p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[p.ID]; exists {
		return fmt.Errorf("providers: duplicate id %s", p.ID)
	}
	r.data[p.ID] = p
	return nil
}

// Get implements Repository.
func (r *InMemoryRepository) Get(ctx context.Context, id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[id]
	if !ok {
		return Provider{}, ErrNotFound
	}
	return p, nil
}

// List implements Repository.
func (r *InMemoryRepository) List(ctx context.Context) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.data))
	for _, p := range r.data {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update implements Repository.
func (r *InMemoryRepository) Update(ctx context.Context, p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[p.ID]; !ok {
		return ErrNotFound
	}
	r.data[p.ID] = p
	return nil
}
