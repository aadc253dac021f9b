package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sales-dashboard/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(cfg SessionStoreConfig) *SessionStore {
	return NewSessionStore(GeneratorSource(GeneratorConfig{Seed: 42, Size: 200, StartDate: d1}), cfg, testLogger())
}

func TestNewSession_DefaultSelectsAll(t *testing.T) {
	s := NewSession("s1", scenarioDataset(), testLogger())

	want := models.Selection{Regions: []string{"Norte", "Sur"}, Products: []string{"A", "B"}}
	snap := s.Snapshot(context.Background())
	if diff := cmp.Diff(want, snap.Selection); diff != "" {
		t.Errorf("default selection mismatch (-want +got):\n%s", diff)
	}
	if snap.KPIs.Total != 350 || snap.KPIs.Count != 3 {
		t.Errorf("default KPIs = %+v, want total 350 over 3 records", snap.KPIs)
	}
	if snap.Version != 0 {
		t.Errorf("Version = %d, want 0", snap.Version)
	}
}

func TestSession_Apply(t *testing.T) {
	s := NewSession("s1", scenarioDataset(), testLogger())
	ctx := context.Background()

	snap := s.Apply(ctx, models.Selection{Regions: []string{"Norte"}, Products: []string{"A", "B"}})
	if snap.KPIs.Total != 150 {
		t.Errorf("Total = %v, want 150", snap.KPIs.Total)
	}
	if snap.Version != 1 {
		t.Errorf("Version = %d, want 1", snap.Version)
	}
	if snap.DatasetSize != 3 {
		t.Errorf("DatasetSize = %d, want 3", snap.DatasetSize)
	}

	snap = s.Apply(ctx, models.Selection{Regions: nil, Products: []string{"A"}})
	if !snap.KPIs.Empty() || snap.KPIs.Mean != nil || len(snap.RegionSales) != 0 {
		t.Errorf("empty region selection should yield empty views, got %+v", snap.KPIs)
	}

	// later reads see the last applied selection
	if again := s.Snapshot(ctx); again.Version != 2 || !again.KPIs.Empty() {
		t.Errorf("Snapshot() = version %d, empty %v", again.Version, again.KPIs.Empty())
	}
}

func TestSession_SelectionIsCopied(t *testing.T) {
	s := NewSession("s1", scenarioDataset(), testLogger())

	regions := []string{"Norte"}
	s.Apply(context.Background(), models.Selection{Regions: regions, Products: []string{"A"}})
	regions[0] = "Sur"

	if got := s.Snapshot(context.Background()).Selection.Regions; got[0] != "Norte" {
		t.Errorf("caller mutation leaked into session: %v", got)
	}
}

func TestSession_ConcurrentApply(t *testing.T) {
	s := NewSession("s1", testDataset(), testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			region := defaultRegions[i%len(defaultRegions)]
			snap := s.Apply(ctx, models.Selection{Regions: []string{region}, Products: defaultProducts})
			for _, sale := range snap.View {
				if sale.Region != region {
					t.Errorf("snapshot for %s contains %s", region, sale.Region)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if v := s.Snapshot(ctx).Version; v != 20 {
		t.Errorf("Version = %d, want 20", v)
	}
}

func TestSessionStore_Isolation(t *testing.T) {
	store := newTestStore(SessionStoreConfig{TTL: time.Hour})
	ctx := context.Background()

	a, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("sessions share an id")
	}

	a.Apply(ctx, models.Selection{Regions: []string{"Norte"}, Products: []string{"Producto A"}})

	if diff := cmp.Diff(b.Options().Regions, b.Snapshot(ctx).Selection.Regions); diff != "" {
		t.Errorf("selection in one session changed another (-want +got):\n%s", diff)
	}

	got, ok := store.Get(a.ID)
	if !ok || got != a {
		t.Error("Get() should return the created session")
	}
	if _, ok := store.Get("unknown"); ok {
		t.Error("Get() found an unknown id")
	}
}

func TestSessionStore_TTL(t *testing.T) {
	store := newTestStore(SessionStoreConfig{TTL: time.Minute})
	ctx := context.Background()

	stale, _ := store.Create(ctx)
	fresh, _ := store.Create(ctx)
	stale.lastSeen.Store(time.Now().Add(-2 * time.Minute).UnixNano())

	if n := store.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := store.Get(stale.ID); ok {
		t.Error("expired session still reachable")
	}
	if _, ok := store.Get(fresh.ID); !ok {
		t.Error("fresh session was swept")
	}

	fresh.lastSeen.Store(time.Now().Add(-2 * time.Minute).UnixNano())
	if _, ok := store.Get(fresh.ID); ok {
		t.Error("Get() should reject an expired session before the sweep runs")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestSessionStore_MaxSessions(t *testing.T) {
	store := newTestStore(SessionStoreConfig{TTL: time.Hour, MaxSessions: 2})
	ctx := context.Background()

	first, _ := store.Create(ctx)
	second, _ := store.Create(ctx)
	first.lastSeen.Store(time.Now().Add(-time.Minute).UnixNano())

	third, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
	if _, ok := store.Get(first.ID); ok {
		t.Error("least recently used session should have been evicted")
	}
	for _, s := range []*Session{second, third} {
		if _, ok := store.Get(s.ID); !ok {
			t.Errorf("session %s missing", s.ID)
		}
	}

	stats := store.Stats()
	if stats["sessions_created"] != int64(3) || stats["sessions_evicted"] != int64(1) {
		t.Errorf("Stats() = %v", stats)
	}
}

func TestSessionStore_SourceError(t *testing.T) {
	boom := errors.New("boom")
	store := NewSessionStore(func(context.Context) ([]models.Sale, error) {
		return nil, boom
	}, SessionStoreConfig{}, testLogger())

	if _, err := store.Create(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Create() error = %v, want %v", err, boom)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestSessionStore_RunStopsOnCancel(t *testing.T) {
	store := newTestStore(SessionStoreConfig{TTL: time.Millisecond, SweepInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	s, _ := store.Create(ctx)
	s.lastSeen.Store(time.Now().Add(-time.Second).UnixNano())

	done := make(chan struct{})
	go func() {
		store.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("janitor did not sweep expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
