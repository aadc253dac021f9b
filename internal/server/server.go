package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

type Server struct {
	store       *services.SessionStore
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(store *services.SessionStore, logger *slog.Logger, templateHandlers *TemplateHandlers, secureCookies bool) *Server {
	sessions := handlers.NewSessionResolver(store, secureCookies)
	s := &Server{
		store:       store,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(store, sessions, logger),
		sseHandlers: handlers.NewSSEHandlers(sessions, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/options", s.apiHandlers.HandleOptions)
	s.mux.HandleFunc("GET /api/dashboard", s.apiHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/region-sales", s.apiHandlers.HandleRegionSales)
	s.mux.HandleFunc("GET /api/daily-sales", s.apiHandlers.HandleDailySales)
	s.mux.HandleFunc("GET /api/crosstab", s.apiHandlers.HandleCrossTab)
	s.mux.HandleFunc("GET /api/sales", s.apiHandlers.HandleSales)
	s.mux.HandleFunc("PUT /api/filter", s.apiHandlers.HandleFilter)

	// Downloads and charts
	s.mux.HandleFunc("GET /export/csv", s.apiHandlers.HandleExportCSV)
	s.mux.HandleFunc("GET /export/xlsx", s.apiHandlers.HandleExportXLSX)
	s.mux.HandleFunc("GET /charts/regions.svg", s.apiHandlers.HandleRegionChart)
	s.mux.HandleFunc("GET /charts/daily.svg", s.apiHandlers.HandleDailyChart)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
	s.mux.HandleFunc("GET /sse/filter", s.sseHandlers.HandleFilter)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
