package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

// AvailabilityHandler exposes the availability store over HTTP. It is the
// backend contract the schedule client talks to: range fetch, per-date
// overwrite, pattern writes, clears, and patient-side booking.
type AvailabilityHandler struct {
	store  availstore.Store
	logger *logging.Logger
}

// NewAvailabilityHandler creates an availability API handler.
func NewAvailabilityHandler(store availstore.Store, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{store: store, logger: logger.Component("handlers.availability")}
}

// Routes returns a chi router mounted under /providers/{providerID}/availability.
func (h *AvailabilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetRange)
	r.Put("/", h.PutDays)
	r.Post("/bulk", h.BulkWrite)
	r.Post("/clear", h.Clear)
	r.Post("/book", h.Book)
	return r
}

// GetRange returns raw slots for an inclusive date range.
// GET /providers/{providerID}/availability?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *AvailabilityHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if !validDateKey(start) || !validDateKey(end) || end < start {
		http.Error(w, `{"error": "start and end must be YYYY-MM-DD with start <= end"}`, http.StatusBadRequest)
		return
	}

	days, err := h.store.FetchAvailability(r.Context(), providerID, start, end)
	if err != nil {
		h.logger.Error("failed to fetch availability", "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if days == nil {
		days = []availability.DaySlots{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// PutDaysRequest carries per-date open-slot overwrites.
type PutDaysRequest struct {
	Days []availstore.DayWrite `json:"days"`
}

// PutDays overwrites the open slots of each listed date. Booked slots on
// those dates are preserved by the store.
// PUT /providers/{providerID}/availability
func (h *AvailabilityHandler) PutDays(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var req PutDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Days) == 0 {
		http.Error(w, `{"error": "days required"}`, http.StatusBadRequest)
		return
	}
	for _, day := range req.Days {
		if !validDateKey(day.Date) {
			http.Error(w, `{"error": "dates must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		for _, clock := range day.AvailableTimes {
			if _, err := availability.ParseClock(clock); err != nil {
				http.Error(w, `{"error": "times must be HH:MM"}`, http.StatusBadRequest)
				return
			}
		}
	}

	if err := h.store.WriteAvailability(r.Context(), providerID, req.Days); err != nil {
		h.logger.Error("failed to write availability", "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("availability written", "provider_id", providerID, "dates", len(req.Days))
	w.WriteHeader(http.StatusNoContent)
}

// BulkWrite applies one slot template across a pattern of dates.
// POST /providers/{providerID}/availability/bulk
func (h *AvailabilityHandler) BulkWrite(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var req availstore.BulkWrite
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	// Expansion validates the pattern, range, and weekday before any write.
	if _, err := availstore.ExpandPattern(req); err != nil {
		http.Error(w, `{"error": "invalid bulk request"}`, http.StatusBadRequest)
		return
	}

	if err := h.store.BulkWriteAvailability(r.Context(), providerID, req); err != nil {
		h.logger.Error("failed to bulk write availability",
			"provider_id", providerID, "pattern", string(req.Pattern), "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("bulk availability written",
		"provider_id", providerID, "pattern", string(req.Pattern),
		"start", req.StartDate, "end", req.EndDate)
	w.WriteHeader(http.StatusNoContent)
}

// ClearRequest lists the dates whose open slots are removed.
type ClearRequest struct {
	Dates []string `json:"dates"`
}

// Clear removes the open slots of the listed dates; bookings stay.
// POST /providers/{providerID}/availability/clear
func (h *AvailabilityHandler) Clear(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	for _, date := range req.Dates {
		if !validDateKey(date) {
			http.Error(w, `{"error": "dates must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
	}

	if err := h.store.ClearAvailability(r.Context(), providerID, req.Dates); err != nil {
		h.logger.Error("failed to clear availability", "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("availability cleared", "provider_id", providerID, "dates", len(req.Dates))
	w.WriteHeader(http.StatusNoContent)
}

// BookRequest reserves one open slot for an appointment.
type BookRequest struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration"`
}

// Book marks an open slot as booked.
// POST /providers/{providerID}/availability/book
func (h *AvailabilityHandler) Book(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	booker, ok := h.store.(availstore.Booker)
	if !ok {
		http.Error(w, `{"error": "booking not supported"}`, http.StatusNotImplemented)
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if !validDateKey(req.Date) {
		http.Error(w, `{"error": "date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	if _, err := availability.ParseClock(req.Time); err != nil {
		http.Error(w, `{"error": "time must be HH:MM"}`, http.StatusBadRequest)
		return
	}

	err := booker.BookSlot(r.Context(), providerID, req.Date, req.Time, req.DurationMinutes)
	switch {
	case errors.Is(err, availstore.ErrSlotAlreadyBooked):
		http.Error(w, `{"error": "slot already booked"}`, http.StatusConflict)
		return
	case errors.Is(err, availstore.ErrSlotUnavailable):
		http.Error(w, `{"error": "slot is not open"}`, http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("failed to book slot",
			"provider_id", providerID, "date", req.Date, "time", req.Time, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("slot booked", "provider_id", providerID, "date", req.Date, "time", req.Time)
	w.WriteHeader(http.StatusNoContent)
}

func validDateKey(dateKey string) bool {
	_, err := availability.ParseDateKey(dateKey)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
