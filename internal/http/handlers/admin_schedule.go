package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/curatel/telecare-scheduling/internal/http/middleware"
	"github.com/curatel/telecare-scheduling/internal/providers"
	"github.com/curatel/telecare-scheduling/internal/schedule"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

// AdminScheduleHandler drives schedule edit sessions for operators. Each
// operator works on one provider at a time; edits stay local to the session
// until an explicit save or bulk operation.
type AdminScheduleHandler struct {
	manager *schedule.Manager
	repo    providers.Repository
	logger  *logging.Logger
}

// NewAdminScheduleHandler creates the schedule session API handler.
func NewAdminScheduleHandler(manager *schedule.Manager, repo providers.Repository, logger *logging.Logger) *AdminScheduleHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminScheduleHandler{
		manager: manager,
		repo:    repo,
		logger:  logger.Component("handlers.admin_schedule"),
	}
}

// Routes returns a chi router mounted under /admin/schedule.
func (h *AdminScheduleHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.OpenSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.CloseSession)
		r.Get("/days/{date}", h.GetDay)
		r.Post("/select", h.SelectDate)
		r.Post("/toggle", h.Toggle)
		r.Post("/navigate", h.Navigate)
		r.Post("/save", h.Save)
		r.Post("/bulk", h.Bulk)
	})
	return r
}

// OpenSessionRequest names the provider whose schedule is edited.
type OpenSessionRequest struct {
	ProviderID string `json:"provider_id"`
}

// SessionResponse describes the session after load or navigation.
type SessionResponse struct {
	SessionID    string `json:"session_id"`
	ProviderID   string `json:"provider_id"`
	State        string `json:"state"`
	WindowStart  string `json:"window_start"`
	WindowEnd    string `json:"window_end"`
	SelectedDate string `json:"selected_date"`
	ViewingMonth string `json:"viewing_month"` // "YYYY-MM"
}

// OpenSession starts (or replaces) the operator's edit session. The whole
// editable window is fetched up front.
// POST /admin/schedule/sessions
func (h *AdminScheduleHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.ProviderID == "" {
		http.Error(w, `{"error": "provider_id required"}`, http.StatusBadRequest)
		return
	}

	provider, err := h.repo.Get(r.Context(), req.ProviderID)
	if errors.Is(err, providers.ErrNotFound) {
		http.Error(w, `{"error": "provider not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load provider", "provider_id", req.ProviderID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	id, session, err := h.manager.Open(r.Context(), h.operatorID(r), provider.ID, provider.Category)
	if err != nil {
		h.writeScheduleError(w, err, "open session", req.ProviderID)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(id, session))
}

// GetSession returns the session's current lifecycle view.
// GET /admin/schedule/sessions/{sessionID}
func (h *AdminScheduleHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, session))
}

// CloseSession discards the session and any unsaved edits.
// DELETE /admin/schedule/sessions/{sessionID}
func (h *AdminScheduleHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.manager.Close(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// GetDay returns the derived availability views for one date.
// GET /admin/schedule/sessions/{sessionID}/days/{date}
func (h *AdminScheduleHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	_, session, ok := h.session(w, r)
	if !ok {
		return
	}
	date := chi.URLParam(r, "date")
	day, err := session.Day(date)
	if err != nil {
		h.writeScheduleError(w, err, "get day", session.ProviderID())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "day": day})
}

// SelectDateRequest moves the editing focus.
type SelectDateRequest struct {
	Date string `json:"date"`
}

// SelectDate moves the editing focus to another date in the window.
// POST /admin/schedule/sessions/{sessionID}/select
func (h *AdminScheduleHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := session.SelectDate(req.Date); err != nil {
		h.writeScheduleError(w, err, "select date", session.ProviderID())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, session))
}

// ToggleRequest flips one slot in the local working copy.
type ToggleRequest struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Enable bool   `json:"enable"`
}

// Toggle opens or closes one slot locally. Nothing is persisted until save.
// POST /admin/schedule/sessions/{sessionID}/toggle
func (h *AdminScheduleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	_, session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := session.ToggleSlot(req.Date, req.Time, req.Enable); err != nil {
		h.writeScheduleError(w, err, "toggle", session.ProviderID())
		return
	}
	day, err := session.Day(req.Date)
	if err != nil {
		h.writeScheduleError(w, err, "toggle", session.ProviderID())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": req.Date, "day": day})
}

// NavigateRequest moves the viewed calendar month.
type NavigateRequest struct {
	Months int `json:"months"`
}

// Navigate moves the viewed month without refetching anything.
// POST /admin/schedule/sessions/{sessionID}/navigate
func (h *AdminScheduleHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	session.NavigateMonths(req.Months)
	writeJSON(w, http.StatusOK, sessionResponse(id, session))
}

// Save pushes all locally edited dates through the store and refreshes the
// window from the response.
// POST /admin/schedule/sessions/{sessionID}/save
func (h *AdminScheduleHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Save(r.Context()); err != nil {
		h.writeScheduleError(w, err, "save", session.ProviderID())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, session))
}

// BulkRequest applies or clears a pattern anchored on one date.
type BulkRequest struct {
	Kind   string `json:"kind"`
	Anchor string `json:"anchor"`
}

// Bulk applies the anchor date's pattern across a weekday, week, or month,
// or clears the corresponding dates.
// POST /admin/schedule/sessions/{sessionID}/bulk
func (h *AdminScheduleHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := session.ApplyBulk(r.Context(), schedule.BulkKind(req.Kind), req.Anchor); err != nil {
		h.writeScheduleError(w, err, "bulk", session.ProviderID())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(id, session))
}

func (h *AdminScheduleHandler) session(w http.ResponseWriter, r *http.Request) (string, *schedule.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	session, err := h.manager.Get(id)
	if err != nil {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return "", nil, false
	}
	return id, session, true
}

// operatorID identifies the operator from the admin JWT; requests without
// claims share an anonymous operator slot.
func (h *AdminScheduleHandler) operatorID(r *http.Request) string {
	if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "anonymous"
}

func (h *AdminScheduleHandler) writeScheduleError(w http.ResponseWriter, err error, op, providerID string) {
	var conflict *schedule.ConflictError
	var outOfWindow *schedule.OutOfWindowError
	var syncFailure *schedule.SyncFailure

	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "slot conflict",
			"reason": conflict.Reason,
			"date":   conflict.Date,
			"time":   conflict.Clock,
		})
	case errors.As(err, &outOfWindow):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":        "date outside editable window",
			"date":         outOfWindow.Date,
			"window_start": outOfWindow.WindowLo,
			"window_end":   outOfWindow.WindowHi,
		})
	case errors.Is(err, schedule.ErrWriteInFlight):
		http.Error(w, `{"error": "another save is in progress"}`, http.StatusConflict)
	case errors.Is(err, schedule.ErrNotReady):
		http.Error(w, `{"error": "session is not ready"}`, http.StatusConflict)
	case errors.As(err, &syncFailure):
		h.logger.Error("schedule sync failed", "op", op, "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "backend sync failed, retry"}`, http.StatusBadGateway)
	default:
		h.logger.Error("schedule operation failed", "op", op, "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "invalid request"}`, http.StatusBadRequest)
	}
}

func sessionResponse(id string, s *schedule.Session) SessionResponse {
	window := s.Window()
	return SessionResponse{
		SessionID:    id,
		ProviderID:   s.ProviderID(),
		State:        string(s.State()),
		WindowStart:  window.StartKey(),
		WindowEnd:    window.EndKey(),
		SelectedDate: s.SelectedDate(),
		ViewingMonth: s.ViewingDate().Format("2006-01"),
	}
}
