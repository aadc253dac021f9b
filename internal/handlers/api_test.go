package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

var (
	day1 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestStore() *services.SessionStore {
	dataset := []models.Sale{
		{Region: "Norte", Product: "A", Amount: 100, Date: day1},
		{Region: "Sur", Product: "A", Amount: 200, Date: day1},
		{Region: "Norte", Product: "B", Amount: 50, Date: day2},
	}
	source := func(context.Context) ([]models.Sale, error) { return dataset, nil }
	return services.NewSessionStore(source, services.SessionStoreConfig{TTL: time.Hour, MaxSessions: 10}, testLogger())
}

func createTestAPIHandlers() (*APIHandlers, *services.SessionStore) {
	store := createTestStore()
	return NewAPIHandlers(store, NewSessionResolver(store, false), testLogger()), store
}

type envelope[T any] struct {
	Data    T    `json:"data"`
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return env
}

func sessionCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("response did not set a session cookie")
	return nil
}

func putFilter(h *APIHandlers, cookie *http.Cookie, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/filter", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.HandleFilter(w, req)
	return w
}

func TestAPIHandlers_HandleDashboard_DefaultSelection(t *testing.T) {
	h, store := createTestAPIHandlers()

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	w := httptest.NewRecorder()
	h.HandleDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != noStore {
		t.Errorf("Cache-Control = %q, want %q", cc, noStore)
	}

	c := sessionCookieFrom(t, w)
	if !c.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}

	env := decode[services.Snapshot](t, w)
	if !env.Success {
		t.Fatal("expected success envelope")
	}
	snap := env.Data
	if snap.KPIs.Total != 350 || snap.KPIs.Count != 3 {
		t.Errorf("KPIs = %+v, want total 350 over 3 records", snap.KPIs)
	}
	if diff := cmp.Diff([]string{"Norte", "Sur"}, snap.Selection.Regions); diff != "" {
		t.Errorf("default regions mismatch (-want +got):\n%s", diff)
	}
	if snap.DatasetSize != 3 {
		t.Errorf("DatasetSize = %d, want 3", snap.DatasetSize)
	}
}

func TestAPIHandlers_HandleFilter(t *testing.T) {
	h, _ := createTestAPIHandlers()

	w := putFilter(h, nil, `{"regions":["Norte"],"products":["A","B"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	cookie := sessionCookieFrom(t, w)

	snap := decode[services.Snapshot](t, w).Data
	if snap.KPIs.Total != 150 {
		t.Errorf("Total = %v, want 150", snap.KPIs.Total)
	}
	if snap.KPIs.Mean == nil || *snap.KPIs.Mean != 75 {
		t.Errorf("Mean = %v, want 75", snap.KPIs.Mean)
	}
	if snap.KPIs.Max == nil || *snap.KPIs.Max != 100 {
		t.Errorf("Max = %v, want 100", snap.KPIs.Max)
	}
	wantRegions := []models.RegionSales{{Region: "Norte", Amount: 150}}
	if diff := cmp.Diff(wantRegions, snap.RegionSales); diff != "" {
		t.Errorf("RegionSales mismatch (-want +got):\n%s", diff)
	}
	if _, ok := snap.CrossTab.Value("A", "Sur"); ok {
		t.Error("crosstab should not contain A×Sur")
	}

	// the selection sticks to the session
	req := httptest.NewRequest(http.MethodGet, "/api/kpis", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	h.HandleKPIs(w, req)

	kpis := decode[models.KPIs](t, w).Data
	if kpis.Total != 150 || kpis.Count != 2 {
		t.Errorf("KPIs after filter = %+v", kpis)
	}
}

func TestAPIHandlers_HandleFilter_EmptySelection(t *testing.T) {
	h, _ := createTestAPIHandlers()

	tests := []struct {
		name string
		body string
	}{
		{"empty regions", `{"regions":[],"products":["A"]}`},
		{"missing products", `{"regions":["Norte"]}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := putFilter(h, nil, tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
			}

			// decode into a raw map to check the null KPI values
			var raw struct {
				Data struct {
					KPIs        map[string]any `json:"kpis"`
					RegionSales []any          `json:"region_sales"`
				} `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if raw.Data.KPIs["total"] != float64(0) {
				t.Errorf("total = %v, want 0", raw.Data.KPIs["total"])
			}
			if raw.Data.KPIs["mean"] != nil || raw.Data.KPIs["max"] != nil {
				t.Errorf("mean/max should be null, got %v / %v", raw.Data.KPIs["mean"], raw.Data.KPIs["max"])
			}
			if len(raw.Data.RegionSales) != 0 {
				t.Errorf("region_sales = %v, want empty", raw.Data.RegionSales)
			}
		})
	}
}

func TestAPIHandlers_HandleFilter_BadRequest(t *testing.T) {
	h, _ := createTestAPIHandlers()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"regions":`},
		{"unknown field", `{"regions":["Norte"],"countries":["X"]}`},
		{"wrong type", `{"regions":"Norte"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := putFilter(h, nil, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			env := decode[any](t, w)
			if env.Success || env.Error == nil || env.Error.Code != "BAD_REQUEST" {
				t.Errorf("unexpected error envelope: %+v", env)
			}
		})
	}
}

func TestAPIHandlers_SessionIsolation(t *testing.T) {
	h, store := createTestAPIHandlers()

	w := putFilter(h, nil, `{"regions":["Sur"],"products":["A","B"]}`)
	first := sessionCookieFrom(t, w)

	// a second browser without the cookie starts from the full selection
	req := httptest.NewRequest(http.MethodGet, "/api/kpis", nil)
	w = httptest.NewRecorder()
	h.HandleKPIs(w, req)
	second := sessionCookieFrom(t, w)

	if first.Value == second.Value {
		t.Fatal("sessions share an id")
	}
	if kpis := decode[models.KPIs](t, w).Data; kpis.Total != 350 {
		t.Errorf("second session total = %v, want 350", kpis.Total)
	}
	if store.Len() != 2 {
		t.Errorf("store.Len() = %d, want 2", store.Len())
	}
}

func TestAPIHandlers_UnknownCookieStartsNewSession(t *testing.T) {
	h, _ := createTestAPIHandlers()

	req := httptest.NewRequest(http.MethodGet, "/api/options", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "expired"})
	w := httptest.NewRecorder()
	h.HandleOptions(w, req)

	if c := sessionCookieFrom(t, w); c.Value == "expired" {
		t.Error("expected a fresh session id")
	}

	opts := decode[models.FilterOptions](t, w).Data
	want := models.FilterOptions{Regions: []string{"Norte", "Sur"}, Products: []string{"A", "B"}}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIHandlers_Rollups(t *testing.T) {
	h, _ := createTestAPIHandlers()

	t.Run("region-sales", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleRegionSales(w, httptest.NewRequest(http.MethodGet, "/api/region-sales", nil))

		want := []models.RegionSales{{Region: "Norte", Amount: 150}, {Region: "Sur", Amount: 200}}
		if diff := cmp.Diff(want, decode[[]models.RegionSales](t, w).Data); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("daily-sales", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleDailySales(w, httptest.NewRequest(http.MethodGet, "/api/daily-sales", nil))

		want := []models.DailySales{{Date: "2023-01-01", Amount: 300}, {Date: "2023-01-02", Amount: 50}}
		if diff := cmp.Diff(want, decode[[]models.DailySales](t, w).Data); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("crosstab", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleCrossTab(w, httptest.NewRequest(http.MethodGet, "/api/crosstab", nil))

		ct := decode[models.CrossTab](t, w).Data
		if v, ok := ct.Value("A", "Sur"); !ok || v != 200 {
			t.Errorf("A×Sur = (%v, %v), want (200, true)", v, ok)
		}
		if _, ok := ct.Value("B", "Sur"); ok {
			t.Error("B×Sur should be absent")
		}
		if ct.Total() != 350 {
			t.Errorf("Total() = %v, want 350", ct.Total())
		}
	})
}

func TestAPIHandlers_HandleSales(t *testing.T) {
	h, _ := createTestAPIHandlers()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantRows   int
	}{
		{"no limit", "", http.StatusOK, 3},
		{"limit", "?limit=2", http.StatusOK, 2},
		{"zero limit", "?limit=0", http.StatusOK, 0},
		{"limit above size", "?limit=50", http.StatusOK, 3},
		{"negative limit", "?limit=-1", http.StatusBadRequest, 0},
		{"invalid limit", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleSales(w, httptest.NewRequest(http.MethodGet, "/api/sales"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				if env := decode[any](t, w); env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("unexpected error envelope: %+v", env)
				}
				return
			}
			if rows := decode[[]models.Sale](t, w).Data; len(rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h, _ := createTestAPIHandlers()

	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	health := decode[map[string]string](t, w).Data
	if health["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", health["status"])
	}
	if _, err := time.Parse(time.RFC3339, health["timestamp"]); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", health["timestamp"], err)
	}
	if health["version"] == "" {
		t.Error("missing version")
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	h, _ := createTestAPIHandlers()

	// create one session first
	h.HandleKPIs(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/kpis", nil))

	w := httptest.NewRecorder()
	h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	stats := decode[map[string]any](t, w).Data
	for _, key := range []string{"active_sessions", "sessions_created", "sessions_evicted", "session_ttl", "max_sessions"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats missing %q", key)
		}
	}
	if stats["active_sessions"] != float64(1) {
		t.Errorf("active_sessions = %v, want 1", stats["active_sessions"])
	}
}

func TestAPIHandlers_SessionSourceFailure(t *testing.T) {
	store := services.NewSessionStore(func(context.Context) ([]models.Sale, error) {
		return nil, io.ErrUnexpectedEOF
	}, services.SessionStoreConfig{}, testLogger())
	h := NewAPIHandlers(store, NewSessionResolver(store, false), testLogger())

	w := httptest.NewRecorder()
	h.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if strings.Contains(w.Body.String(), "unexpected EOF") {
		t.Error("internal cause leaked into response")
	}
	env := decode[any](t, w)
	if env.Error == nil || env.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected error envelope: %+v", env)
	}
}
