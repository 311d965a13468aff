package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
)

func TestManagerOpenGetClose(t *testing.T) {
	store := availstore.NewInMemoryStore()
	m := NewManager(store, nil, nil, nil)

	id, session, err := m.Open(context.Background(), "op-1", "prov-1", availability.CategoryPhysician)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if session.State() != StateReady {
		t.Errorf("state = %s, want ready", session.State())
	}

	got, err := m.Get(id)
	if err != nil || got != session {
		t.Fatalf("Get(%s) = %v, %v", id, got, err)
	}

	m.Close(id)
	if _, err := m.Get(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after close = %v, want ErrSessionNotFound", err)
	}
	// Closing twice is a no-op.
	m.Close(id)
}

func TestManagerSwitchingProvidersDiscardsPreviousSession(t *testing.T) {
	store := availstore.NewInMemoryStore()
	m := NewManager(store, nil, nil, nil)

	firstID, first, err := m.Open(context.Background(), "op-1", "prov-1", availability.CategoryPhysician)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.ToggleSlot(first.SelectedDate(), "09:00", true); err != nil {
		t.Fatal(err)
	}

	// Switching providers drops the first session, unsaved edits and all.
	secondID, second, err := m.Open(context.Background(), "op-1", "prov-2", availability.CategoryTherapist)
	if err != nil {
		t.Fatal(err)
	}
	if secondID == firstID {
		t.Error("session id reused across providers")
	}
	if _, err := m.Get(firstID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("first session still retrievable: %v", err)
	}
	if second.ProviderID() != "prov-2" {
		t.Errorf("provider = %s", second.ProviderID())
	}

	// The discarded edit never reached the store.
	raw, err := store.FetchAvailability(context.Background(), "prov-1", "2020-01-01", "2099-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 0 {
		t.Errorf("unsaved edits leaked to the store: %+v", raw)
	}
}

func TestManagerReopeningSameProviderStartsFresh(t *testing.T) {
	store := availstore.NewInMemoryStore()
	m := NewManager(store, nil, nil, nil)

	firstID, first, err := m.Open(context.Background(), "op-1", "prov-1", availability.CategoryPhysician)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.ToggleSlot(first.SelectedDate(), "09:00", true); err != nil {
		t.Fatal(err)
	}

	_, second, err := m.Open(context.Background(), "op-1", "prov-1", availability.CategoryPhysician)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(firstID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("previous session survived reopen")
	}
	day, err := second.Day(second.SelectedDate())
	if err != nil {
		t.Fatal(err)
	}
	if len(day.AvailableTimes) != 0 {
		t.Errorf("fresh session inherited unsaved edits: %v", day.AvailableTimes)
	}
}
