package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const maxTableRows = 100

// filterSignals mirrors the sidebar's checkbox bindings.
type filterSignals struct {
	Regions  []string `json:"regions"`
	Products []string `json:"products"`
}

type SSEHandlers struct {
	sessions *SessionResolver
	logger   *slog.Logger
}

func NewSSEHandlers(sessions *SessionResolver, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleRefreshAll patches every dashboard region for the current selection.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	s, r, err := h.sessions.Resolve(w, r)
	if err != nil {
		h.logger.Error("resolve session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	snap := s.Snapshot(r.Context())
	h.stream(w, r, s.Options(), snap)
}

// HandleFilter reads the checkbox signals, applies them as the new selection
// and patches the recomputed views.
func (h *SSEHandlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	s, r, err := h.sessions.Resolve(w, r)
	if err != nil {
		h.logger.Error("resolve session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	logger := observability.FromContext(r.Context(), h.logger)

	var signals filterSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		logger.Warn("read filter signals", "error", err)
		http.Error(w, "invalid signals", http.StatusBadRequest)
		return
	}

	snap := s.Apply(r.Context(), models.Selection{
		Regions:  signals.Regions,
		Products: signals.Products,
	})
	logger.Info("filter applied",
		"regions", len(signals.Regions),
		"products", len(signals.Products),
		"records", snap.KPIs.Count,
	)

	h.stream(w, r, s.Options(), snap)
}

func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, opts models.FilterOptions, snap services.Snapshot) {
	sse := datastar.NewSSE(w, r)
	logger := observability.FromContext(r.Context(), h.logger)

	fragments := []templ.Component{
		templates.Filters(opts, snap.Selection),
		templates.KPIs(snap.KPIs),
		templates.Charts(snap.Version),
		templates.CrossTab(snap.CrossTab),
		templates.SalesTable(snap.View, maxTableRows),
	}
	for _, c := range fragments {
		html, err := templates.Render(r.Context(), c)
		if err != nil {
			logger.Error("render fragment", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			logger.Warn("patch elements", "error", err)
			return
		}
	}

	signals, err := json.Marshal(map[string]any{
		"regions":    snap.Selection.Regions,
		"products":   snap.Selection.Products,
		"regionData": snap.RegionSales,
		"dailyData":  snap.DailySales,
	})
	if err != nil {
		logger.Error("marshal signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
