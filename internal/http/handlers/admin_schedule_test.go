package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
	"github.com/curatel/telecare-scheduling/internal/providers"
	"github.com/curatel/telecare-scheduling/internal/schedule"
)

type scheduleFixture struct {
	srv      *httptest.Server
	store    *availstore.InMemoryStore
	provider providers.Provider
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()

	store := availstore.NewInMemoryStore()
	repo := providers.NewInMemoryRepository()

	provider, err := providers.NewProvider("Dr. Ivanova", availability.CategoryCosmetologist)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), provider))

	manager := schedule.NewManager(store, nil, nil, nil)
	handler := NewAdminScheduleHandler(manager, repo, nil)

	r := chi.NewRouter()
	r.Mount("/admin/schedule", handler.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &scheduleFixture{srv: srv, store: store, provider: provider}
}

func (f *scheduleFixture) openSession(t *testing.T) SessionResponse {
	t.Helper()
	resp := postJSON(t, f.srv.URL+"/admin/schedule/sessions",
		`{"provider_id": "`+f.provider.ID+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func TestOpenSessionLoadsWindow(t *testing.T) {
	f := newScheduleFixture(t)

	session := f.openSession(t)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, f.provider.ID, session.ProviderID)
	assert.Equal(t, "ready", session.State)
	assert.NotEmpty(t, session.WindowStart)
	assert.Equal(t, session.WindowStart, session.SelectedDate)
}

func TestOpenSessionUnknownProvider(t *testing.T) {
	f := newScheduleFixture(t)

	resp := postJSON(t, f.srv.URL+"/admin/schedule/sessions", `{"provider_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleAndSaveRoundTrip(t *testing.T) {
	f := newScheduleFixture(t)
	session := f.openSession(t)
	base := f.srv.URL + "/admin/schedule/sessions/" + session.SessionID

	date := session.WindowStart
	resp := postJSON(t, base+"/toggle",
		`{"date": "`+date+`", "time": "09:00", "enable": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var toggled struct {
		Day availability.DayAvailability `json:"day"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&toggled))
	assert.Contains(t, toggled.Day.AvailableTimes, "09:00")

	// Nothing persisted yet.
	persisted, err := f.store.FetchAvailability(context.Background(), f.provider.ID, date, date)
	require.NoError(t, err)
	assert.Empty(t, persisted)

	resp = postJSON(t, base+"/save", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	persisted, err = f.store.FetchAvailability(context.Background(), f.provider.ID, date, date)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "09:00", persisted[0].Slots[0].Time)
}

func TestToggleBookedSlotReturnsConflict(t *testing.T) {
	f := newScheduleFixture(t)
	date := availability.DateKey(time.Now().AddDate(0, 0, 7))
	f.store.Seed(f.provider.ID, date, []availability.Slot{
		{Time: "14:00", IsBooked: true, DurationMinutes: 50},
	})
	session := f.openSession(t)
	base := f.srv.URL + "/admin/schedule/sessions/" + session.SessionID

	resp := postJSON(t, base+"/toggle",
		`{"date": "`+date+`", "time": "14:00", "enable": false}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "booked", payload["reason"])
}

func TestToggleOutOfWindowReturnsBadRequest(t *testing.T) {
	f := newScheduleFixture(t)
	session := f.openSession(t)
	base := f.srv.URL + "/admin/schedule/sessions/" + session.SessionID

	resp := postJSON(t, base+"/toggle",
		`{"date": "2099-01-01", "time": "09:00", "enable": true}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "2099-01-01", payload["date"])
	assert.Equal(t, session.WindowEnd, payload["window_end"])
}

func TestNavigateChangesViewingMonthOnly(t *testing.T) {
	f := newScheduleFixture(t)
	session := f.openSession(t)
	base := f.srv.URL + "/admin/schedule/sessions/" + session.SessionID

	resp := postJSON(t, base+"/navigate", `{"months": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var after SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	assert.NotEqual(t, session.ViewingMonth, after.ViewingMonth)
	assert.Equal(t, session.SelectedDate, after.SelectedDate)
}

func TestBulkApplyWeekThroughAPI(t *testing.T) {
	f := newScheduleFixture(t)
	session := f.openSession(t)
	base := f.srv.URL + "/admin/schedule/sessions/" + session.SessionID

	anchor := session.WindowStart
	resp := postJSON(t, base+"/toggle",
		`{"date": "`+anchor+`", "time": "10:00", "enable": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, base+"/save", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, base+"/bulk", `{"kind": "applyWeek", "anchor": "`+anchor+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The anchor's week inside the window now carries the template.
	days, err := f.store.FetchAvailability(context.Background(), f.provider.ID,
		session.WindowStart, session.WindowEnd)
	require.NoError(t, err)
	require.NotEmpty(t, days)
	for _, day := range days {
		require.Len(t, day.Slots, 1, "date %s", day.Date)
		assert.Equal(t, "10:00", day.Slots[0].Time)
	}
}

func TestBulkUnknownKindReturnsBadRequest(t *testing.T) {
	f := newScheduleFixture(t)
	session := f.openSession(t)
	base := f.srv.URL + "/admin/schedule/sessions/" + session.SessionID

	resp := postJSON(t, base+"/bulk",
		`{"kind": "applyYear", "anchor": "`+session.WindowStart+`"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionNotFound(t *testing.T) {
	f := newScheduleFixture(t)

	resp := postJSON(t, f.srv.URL+"/admin/schedule/sessions/ghost/save", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCloseSessionDiscardsEdits(t *testing.T) {
	f := newScheduleFixture(t)
	session := f.openSession(t)
	base := f.srv.URL + "/admin/schedule/sessions/" + session.SessionID

	resp := postJSON(t, base+"/toggle",
		`{"date": "`+session.WindowStart+`", "time": "09:00", "enable": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, base+"/", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp = postJSON(t, base+"/save", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	persisted, err := f.store.FetchAvailability(context.Background(), f.provider.ID,
		session.WindowStart, session.WindowStart)
	require.NoError(t, err)
	assert.Empty(t, persisted, "unsaved edits must not leak")
}
