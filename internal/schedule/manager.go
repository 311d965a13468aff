package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
	"github.com/curatel/telecare-scheduling/internal/observability/metrics"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("schedule: session not found")

// Manager tracks live edit sessions per operator. An operator holds at most
// one session; opening a session for a different provider discards the
// previous one entirely, per the switch-provider lifecycle.
type Manager struct {
	store   availstore.Store
	reducer *availability.Reducer
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	now     func() time.Time

	windowMonths int

	mu         sync.Mutex
	sessions   map[string]*Session // session id -> session
	byOperator map[string]string   // operator id -> session id
}

// NewManager creates a session registry over the given store.
func NewManager(store availstore.Store, reducer *availability.Reducer, m *metrics.SchedulingMetrics, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		store:      store,
		reducer:    reducer,
		logger:     logger.Component("schedule.manager"),
		metrics:    m,
		now:        time.Now,
		sessions:   make(map[string]*Session),
		byOperator: make(map[string]string),
	}
}

// WithWindowMonths overrides the editable horizon for sessions this
// manager opens.
func (m *Manager) WithWindowMonths(months int) *Manager {
	m.windowMonths = months
	return m
}

// Open creates and loads a session for the operator to manage the given
// provider. Any previous session held by the operator is discarded first,
// even when it targeted the same provider: a fresh session always starts
// from freshly fetched state.
func (m *Manager) Open(ctx context.Context, operatorID, providerID string, category availability.Category) (string, *Session, error) {
	session, err := NewSession(Config{
		ProviderID:   providerID,
		Category:     category,
		Store:        m.store,
		Reducer:      m.reducer,
		Logger:       m.logger,
		Metrics:      m.metrics,
		Now:          m.now,
		WindowMonths: m.windowMonths,
	})
	if err != nil {
		return "", nil, err
	}
	if err := session.Load(ctx); err != nil {
		return "", nil, err
	}

	id := uuid.NewString()

	m.mu.Lock()
	if prev, ok := m.byOperator[operatorID]; ok {
		delete(m.sessions, prev)
	}
	m.sessions[id] = session
	m.byOperator[operatorID] = id
	m.mu.Unlock()

	m.logger.Info("session opened",
		"session_id", id,
		"operator_id", operatorID,
		"provider_id", providerID,
	)
	return id, session, nil
}

// Get returns a live session by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close discards a session.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	delete(m.sessions, sessionID)
	for operator, id := range m.byOperator {
		if id == sessionID {
			delete(m.byOperator, operator)
			break
		}
	}
	m.logger.Info("session closed", "session_id", sessionID, "provider_id", session.ProviderID())
}
