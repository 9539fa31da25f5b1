package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/odds-monitor/internal/domain/fixture"
	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
)

const recentlyUpdatedCap = 50

// MonitorConfig tunes the multi-fixture subscription manager.
type MonitorConfig struct {
	MaxFixtures   int
	HistoryCap    int
	RecentWindow  time.Duration
	PrimeWorkers  int
	PrimePageSize int
	Clock         func() time.Time
}

func (c MonitorConfig) normalized() MonitorConfig {
	if c.MaxFixtures <= 0 {
		c.MaxFixtures = 500
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = 500
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = 90 * time.Second
	}
	if c.PrimeWorkers <= 0 {
		c.PrimeWorkers = 8
	}
	if c.PrimePageSize <= 0 {
		c.PrimePageSize = 100
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// FixtureWithOdds is one fixture's accumulated monitor state: match metadata
// plus the merged odds of every bookmaker seen for it.
type FixtureWithOdds struct {
	Fixture    fixture.Fixture
	Bookmakers odds.Data
	LastUpdate int64
	Latency    int64
	Top        odds.TopOdds
}

// MonitorStats is a point-in-time counter snapshot.
type MonitorStats struct {
	MessagesReceived uint64
	Snapshots        uint64
	Updates          uint64
	Removals         uint64
	Evictions        uint64
	ActiveFixtures   int
	HistoryDepth     int
	LastMessageAt    int64
}

// MonitorService consumes the shared multi-fixture odds stream and keeps a
// bounded in-memory view of every fixture the upstream is pushing, plus a
// short history of fixtures that were removed or evicted.
type MonitorService struct {
	dialer  MonitorDialer
	gateway OddsGateway
	cfg     MonitorConfig
	logger  *logging.Logger
	pool    *ants.Pool

	mu       sync.Mutex
	fixtures map[int64]*FixtureWithOdds
	meta     map[int64]fixture.Fixture
	history  []FixtureWithOdds
	filter   *odds.Filter
	stats    MonitorStats

	stream     MonitorStream
	cancel     context.CancelFunc
	consumerWG sync.WaitGroup
}

func NewMonitorService(dialer MonitorDialer, gateway OddsGateway, cfg MonitorConfig, logger *logging.Logger) *MonitorService {
	if logger == nil {
		logger = logging.Default()
	}
	cfg = cfg.normalized()
	pool, _ := ants.NewPool(cfg.PrimeWorkers, ants.WithNonblocking(false))
	return &MonitorService{
		dialer:   dialer,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		fixtures: make(map[int64]*FixtureWithOdds),
		meta:     make(map[int64]fixture.Fixture),
	}
}

// Start connects the monitor stream and primes fixture metadata in the
// background. Odds updates arriving before their metadata page still get an
// entry; the names fill in once priming catches up.
func (s *MonitorService) Start(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MonitorService.Start")
	defer span.End()

	if s.dialer == nil {
		return fmt.Errorf("%w: monitor dialer not configured", ErrInvalidInput)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := s.dialer.DialMonitor(streamCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("dial monitor stream: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.cancel = cancel
	s.mu.Unlock()

	s.consumerWG.Add(1)
	go s.consume(stream)

	if s.gateway != nil {
		go s.primeFixtures(streamCtx)
	}
	return nil
}

// primeFixtures walks the collaborator's fixture listing and records the
// match metadata for each id, fanning page fetches out over the worker pool.
func (s *MonitorService) primeFixtures(ctx context.Context) {
	first, err := s.gateway.ListFixtures(ctx, 1, s.cfg.PrimePageSize)
	if err != nil {
		s.logger.Warn("fixture metadata priming failed", "page", 1, "error", err)
		return
	}
	s.recordMeta(first.Fixtures)

	var wg sync.WaitGroup
	for page := 2; page <= first.TotalPages; page++ {
		page := page
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			result, err := s.gateway.ListFixtures(ctx, page, s.cfg.PrimePageSize)
			if err != nil {
				s.logger.Warn("fixture metadata priming failed", "page", page, "error", err)
				return
			}
			s.recordMeta(result.Fixtures)
		})
		if submitErr != nil {
			wg.Done()
			s.logger.Warn("fixture metadata priming aborted", "page", page, "error", submitErr)
			break
		}
	}
	wg.Wait()
	s.logger.Info("fixture metadata primed", "pages", first.TotalPages, "total", first.Total)
}

func (s *MonitorService) recordMeta(fixtures []fixture.Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fx := range fixtures {
		if fx.ID == 0 {
			continue
		}
		s.meta[fx.ID] = fx
		if entry, ok := s.fixtures[fx.ID]; ok && entry.Fixture.HomeTeam == "" {
			entry.Fixture = fx
		}
	}
}

func (s *MonitorService) consume(stream MonitorStream) {
	defer s.consumerWG.Done()
	for msg := range stream.Messages() {
		s.Apply(msg)
	}
	if err := stream.Err(); err != nil {
		s.logger.Warn("monitor stream failed", "error", err)
	}
}

// Apply folds one stream message into the monitor state.
func (s *MonitorService) Apply(msg StreamMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.MessagesReceived++
	s.stats.LastMessageAt = s.cfg.Clock().UnixMilli()

	switch msg.Type {
	case MessageOddsSnapshot:
		s.stats.Snapshots++
		s.applyUpdateLocked(msg)
	case MessageOddsUpdate:
		s.stats.Updates++
		s.applyUpdateLocked(msg)
	case MessageOddsRemoved:
		s.stats.Removals++
		s.applyRemovalLocked(msg.FixtureID)
	}
}

func (s *MonitorService) applyUpdateLocked(msg StreamMessage) {
	if msg.FixtureID == 0 {
		return
	}
	entry, ok := s.fixtures[msg.FixtureID]
	if !ok {
		entry = &FixtureWithOdds{Fixture: fixture.Fixture{ID: msg.FixtureID}}
		if meta, known := s.meta[msg.FixtureID]; known {
			entry.Fixture = meta
		}
		s.fixtures[msg.FixtureID] = entry
	}

	entry.Bookmakers = odds.MergeData(entry.Bookmakers, msg.Bookmakers)
	entry.Top = entry.Bookmakers.Top()

	switch {
	case msg.Timestamp > 0:
		entry.LastUpdate = msg.Timestamp
	case msg.End > 0:
		entry.LastUpdate = msg.End
	default:
		entry.LastUpdate = s.cfg.Clock().UnixMilli()
	}
	if msg.Start > 0 && msg.End >= msg.Start {
		entry.Latency = msg.End - msg.Start
	}

	s.evictLocked()
}

func (s *MonitorService) applyRemovalLocked(fixtureID int64) {
	entry, ok := s.fixtures[fixtureID]
	if !ok {
		return
	}
	delete(s.fixtures, fixtureID)
	s.retireLocked(*entry)
}

// evictLocked keeps the active set within budget by retiring the fixtures
// with the oldest LastUpdate first.
func (s *MonitorService) evictLocked() {
	for len(s.fixtures) > s.cfg.MaxFixtures {
		var victimID int64
		var victim *FixtureWithOdds
		for id, entry := range s.fixtures {
			if victim == nil || entry.LastUpdate < victim.LastUpdate {
				victimID, victim = id, entry
			}
		}
		delete(s.fixtures, victimID)
		s.retireLocked(*victim)
		s.stats.Evictions++
	}
}

func (s *MonitorService) retireLocked(entry FixtureWithOdds) {
	s.history = append(s.history, entry)
	if overflow := len(s.history) - s.cfg.HistoryCap; overflow > 0 {
		s.history = append(s.history[:0], s.history[overflow:]...)
	}
}

// ApplyFilter pushes a server-side filter and hard-resets local state: every
// fixture keeps its metadata slot but loses its odds, and history is cleared.
// Anything the filter still matches will be re-sent by the upstream as fresh
// snapshots, so stale pre-filter odds never linger next to filtered ones.
func (s *MonitorService) ApplyFilter(ctx context.Context, f *odds.Filter) error {
	_, span := startUsecaseSpan(ctx, "usecase.MonitorService.ApplyFilter")
	defer span.End()

	if f == nil {
		return fmt.Errorf("%w: filter is required", ErrInvalidInput)
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("%w: monitor stream not connected", ErrStreamClosed)
	}
	if err := stream.Subscribe(f); err != nil {
		return fmt.Errorf("subscribe filter: %w", err)
	}

	s.mu.Lock()
	s.filter = f
	s.resetOddsLocked()
	s.mu.Unlock()
	return nil
}

// ClearFilter removes the server-side filter with the same hard reset.
func (s *MonitorService) ClearFilter(ctx context.Context) error {
	_, span := startUsecaseSpan(ctx, "usecase.MonitorService.ClearFilter")
	defer span.End()

	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("%w: monitor stream not connected", ErrStreamClosed)
	}
	if err := stream.RemoveFilter(); err != nil {
		return fmt.Errorf("remove filter: %w", err)
	}

	s.mu.Lock()
	s.filter = nil
	s.resetOddsLocked()
	s.mu.Unlock()
	return nil
}

func (s *MonitorService) resetOddsLocked() {
	for _, entry := range s.fixtures {
		entry.Bookmakers = nil
		entry.LastUpdate = 0
		entry.Latency = 0
		entry.Top = odds.TopOdds{}
	}
	s.history = nil
}

// Filter returns the currently applied server-side filter, if any.
func (s *MonitorService) Filter() *odds.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Lookup resolves a fixture id, preferring live state with odds, then the
// most recent historical copy, then a bare active entry.
func (s *MonitorService) Lookup(fixtureID int64) (FixtureWithOdds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, active := s.fixtures[fixtureID]
	if active && len(entry.Bookmakers) > 0 {
		return *entry, nil
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Fixture.ID == fixtureID {
			return s.history[i], nil
		}
	}
	if active {
		return *entry, nil
	}
	return FixtureWithOdds{}, fmt.Errorf("%w: fixture %d", ErrNotFound, fixtureID)
}

// ByKickoff lists fixtures that currently carry odds, soonest kickoff first.
func (s *MonitorService) ByKickoff() []FixtureWithOdds {
	s.mu.Lock()
	out := make([]FixtureWithOdds, 0, len(s.fixtures))
	for _, entry := range s.fixtures {
		if len(entry.Bookmakers) > 0 {
			out = append(out, *entry)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Fixture.KickoffAt.Equal(out[j].Fixture.KickoffAt) {
			return out[i].Fixture.KickoffAt.Before(out[j].Fixture.KickoffAt)
		}
		return out[i].Fixture.ID < out[j].Fixture.ID
	})
	return out
}

// RecentlyUpdated lists fixtures whose last update falls inside the recency
// window, newest first, capped so a busy book day stays scannable.
func (s *MonitorService) RecentlyUpdated() []FixtureWithOdds {
	cutoff := s.cfg.Clock().UnixMilli() - s.cfg.RecentWindow.Milliseconds()

	s.mu.Lock()
	out := make([]FixtureWithOdds, 0, len(s.fixtures))
	for _, entry := range s.fixtures {
		if entry.LastUpdate >= cutoff && len(entry.Bookmakers) > 0 {
			out = append(out, *entry)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastUpdate != out[j].LastUpdate {
			return out[i].LastUpdate > out[j].LastUpdate
		}
		return out[i].Fixture.ID < out[j].Fixture.ID
	})
	if len(out) > recentlyUpdatedCap {
		out = out[:recentlyUpdatedCap]
	}
	return out
}

func (s *MonitorService) Stats() MonitorStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.ActiveFixtures = len(s.fixtures)
	stats.HistoryDepth = len(s.history)
	return stats
}

// Close tears down the stream and the priming pool.
func (s *MonitorService) Close() {
	s.mu.Lock()
	stream := s.stream
	cancel := s.cancel
	s.stream = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		_ = stream.Close()
	}
	s.consumerWG.Wait()
	s.pool.Release()
}
