package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

// Handler provides HTTP endpoints for the provider registry.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a provider registry HTTP handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger.Component("providers.handler")}
}

// Routes returns a chi router with provider registry routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{providerID}", h.Get)
	r.Put("/{providerID}", h.Update)
	return r
}

// List returns all registered providers.
// GET /providers
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": list})
}

// CreateRequest is the body for registering a provider.
type CreateRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Timezone string `json:"timezone,omitempty"`
}

// Create registers a new provider.
// POST /providers
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	p, err := NewProvider(req.Name, availability.Category(strings.ToLower(req.Category)))
	if err != nil {
		http.Error(w, `{"error": "name and a known category are required"}`, http.StatusBadRequest)
		return
	}
	p.Timezone = req.Timezone

	if err := h.repo.Create(r.Context(), p); err != nil {
		h.logger.Error("failed to create provider", "name", req.Name, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("provider registered", "provider_id", p.ID, "category", string(p.Category))
	writeJSON(w, http.StatusCreated, p)
}

// Get returns one provider.
// GET /providers/{providerID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerID")
	p, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, `{"error": "provider not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get provider", "provider_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateRequest is the body for changing a provider. Absent fields keep
// their current value.
type UpdateRequest struct {
	Name     string  `json:"name,omitempty"`
	Category string  `json:"category,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Update applies a partial update to a provider.
// PUT /providers/{providerID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerID")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	p, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, `{"error": "provider not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get provider", "provider_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		p.Name = strings.TrimSpace(req.Name)
	}
	if req.Category != "" {
		category := availability.Category(strings.ToLower(req.Category))
		if !ValidCategory(category) {
			http.Error(w, `{"error": "unknown category"}`, http.StatusBadRequest)
			return
		}
		p.Category = category
	}
	if req.Timezone != nil {
		p.Timezone = *req.Timezone
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	p.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), p); err != nil {
		h.logger.Error("failed to update provider", "provider_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("provider updated", "provider_id", id)
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
