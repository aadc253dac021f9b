package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Snapshot is every derived view of one recompute pass.
type Snapshot struct {
	Selection   models.Selection     `json:"selection"`
	KPIs        models.KPIs          `json:"kpis"`
	RegionSales []models.RegionSales `json:"region_sales"`
	DailySales  []models.DailySales  `json:"daily_sales"`
	CrossTab    models.CrossTab      `json:"crosstab"`
	View        []models.Sale        `json:"-"`
	DatasetSize int                  `json:"dataset_size"`
	Version     int64                `json:"version"`
	ComputedAt  time.Time            `json:"computed_at"`
}

// Session owns one dataset and the current filter selection. Its mutex
// serialises interactions: a recompute finishes before the next one starts.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	dataset   []models.Sale
	options   models.FilterOptions
	selection models.Selection
	version   int64
	lastSeen  atomic.Int64
	logger    *slog.Logger
}

func NewSession(id string, dataset []models.Sale, logger *slog.Logger) *Session {
	opts := Options(dataset)
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		dataset:   dataset,
		options:   opts,
		logger:    logger,
		selection: models.Selection{
			Regions:  append([]string(nil), opts.Regions...),
			Products: append([]string(nil), opts.Products...),
		},
	}
	s.touch()
	return s
}

func (s *Session) Options() models.FilterOptions {
	return s.options
}

// Apply replaces the selection and recomputes every view from scratch.
func (s *Session) Apply(ctx context.Context, sel models.Selection) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = cloneSelection(sel)
	s.version++
	return s.compute(ctx)
}

// Snapshot recomputes for the current selection.
func (s *Session) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compute(ctx)
}

func (s *Session) compute(ctx context.Context) Snapshot {
	_, span := observability.StartSpan(ctx, "pipeline.recompute")
	defer span.Log(s.logger)

	s.touch()
	view := ApplyFilter(s.dataset, s.selection.Regions, s.selection.Products)

	span.SetTag("session_id", s.ID)
	span.SetTag("view_size", strconv.Itoa(len(view)))

	return Snapshot{
		Selection:   cloneSelection(s.selection),
		KPIs:        ComputeKPIs(view),
		RegionSales: RegionSums(view),
		DailySales:  DailySums(view),
		CrossTab:    CrossTabulate(view),
		View:        view,
		DatasetSize: len(s.dataset),
		Version:     s.version,
		ComputedAt:  time.Now(),
	}
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

func cloneSelection(sel models.Selection) models.Selection {
	return models.Selection{
		Regions:  append(make([]string, 0, len(sel.Regions)), sel.Regions...),
		Products: append(make([]string, 0, len(sel.Products)), sel.Products...),
	}
}

type SessionStoreConfig struct {
	TTL           time.Duration
	MaxSessions   int
	SweepInterval time.Duration
}

// SessionStore keeps sessions by id. Sessions never share mutable state.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	source   DatasetSource
	cfg      SessionStoreConfig
	logger   *slog.Logger

	created atomic.Int64
	evicted atomic.Int64
}

func NewSessionStore(source DatasetSource, cfg SessionStoreConfig, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		source:   source,
		cfg:      cfg,
		logger:   logger,
	}
}

// Get returns a live session, or false if the id is unknown or expired.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if st.cfg.TTL > 0 && s.idleSince(time.Now()) > st.cfg.TTL {
		st.remove(id)
		return nil, false
	}
	s.touch()
	return s, true
}

// Create starts a session with a fresh dataset from the store's source.
func (st *SessionStore) Create(ctx context.Context) (*Session, error) {
	dataset, err := st.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	s := NewSession(uuid.NewString(), dataset, st.logger)

	st.mu.Lock()
	if st.cfg.MaxSessions > 0 && len(st.sessions) >= st.cfg.MaxSessions {
		st.evictOldestLocked()
	}
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.created.Add(1)
	st.logger.Debug("session created", "session_id", s.ID, "records", len(dataset))
	return s, nil
}

func (st *SessionStore) remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; ok {
		delete(st.sessions, id)
		st.evicted.Add(1)
	}
}

func (st *SessionStore) evictOldestLocked() {
	now := time.Now()
	oldestID := ""
	oldestIdle := time.Duration(-1)
	for id, s := range st.sessions {
		if idle := s.idleSince(now); idle > oldestIdle {
			oldestID, oldestIdle = id, idle
		}
	}
	if oldestID != "" {
		delete(st.sessions, oldestID)
		st.evicted.Add(1)
		st.logger.Debug("session evicted", "session_id", oldestID, "idle", oldestIdle)
	}
}

// Sweep drops every session idle for longer than the TTL and reports how many went.
func (st *SessionStore) Sweep() int {
	if st.cfg.TTL <= 0 {
		return 0
	}

	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.cfg.TTL {
			delete(st.sessions, id)
			removed++
		}
	}
	st.evicted.Add(int64(removed))
	return removed
}

// Run sweeps expired sessions until ctx is cancelled.
func (st *SessionStore) Run(ctx context.Context) {
	interval := st.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Info("expired sessions swept", "removed", n)
			}
		}
	}
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Utility method for monitoring
func (st *SessionStore) Stats() map[string]any {
	return map[string]any{
		"active_sessions":  st.Len(),
		"sessions_created": st.created.Load(),
		"sessions_evicted": st.evicted.Load(),
		"session_ttl":      st.cfg.TTL.String(),
		"max_sessions":     st.cfg.MaxSessions,
	}
}
