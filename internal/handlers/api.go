package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	maxFilterBody = 64 << 10
	noStore       = "private, no-store"
)

type APIHandlers struct {
	store    *services.SessionStore
	sessions *SessionResolver
	logger   *slog.Logger
}

func NewAPIHandlers(store *services.SessionStore, sessions *SessionResolver, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		store:    store,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *APIHandlers) session(w http.ResponseWriter, r *http.Request) (*services.Session, *http.Request, bool) {
	s, r, err := h.sessions.Resolve(w, r)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to start session"), observability.GetRequestID(r.Context()))
		return nil, r, false
	}
	return s, r, true
}

func (h *APIHandlers) snapshot(w http.ResponseWriter, r *http.Request) (services.Snapshot, bool) {
	s, r, ok := h.session(w, r)
	if !ok {
		return services.Snapshot{}, false
	}
	return s.Snapshot(r.Context()), true
}

func writeData(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": noStore})
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeData(w, s.Options())
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeData(w, snap)
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeData(w, snap.KPIs)
}

func (h *APIHandlers) HandleRegionSales(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeData(w, snap.RegionSales)
}

func (h *APIHandlers) HandleDailySales(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeData(w, snap.DailySales)
}

func (h *APIHandlers) HandleCrossTab(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeData(w, snap.CrossTab)
}

// HandleSales returns the filtered view, optionally truncated by ?limit=N.
func (h *APIHandlers) HandleSales(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errors.WriteError(w, h.logger,
				errors.Validation("limit must be a non-negative integer").WithDetails(raw),
				observability.GetRequestID(r.Context()))
			return
		}
		limit = n
	}

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	view := snap.View
	if limit >= 0 && len(view) > limit {
		view = view[:limit]
	}
	writeData(w, view)
}

// HandleFilter replaces the session's selection. Missing fields count as
// empty sets, which yields an empty view rather than an error.
func (h *APIHandlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	s, r, ok := h.session(w, r)
	if !ok {
		return
	}

	var sel models.Selection
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFilterBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sel); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Invalid filter selection"), observability.GetRequestID(r.Context()))
		return
	}

	snap := s.Apply(r.Context(), sel)
	observability.FromContext(r.Context(), h.logger).Info("filter applied",
		"regions", len(sel.Regions),
		"products", len(sel.Products),
		"records", snap.KPIs.Count,
	)
	writeData(w, snap)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.store.Stats())
}
