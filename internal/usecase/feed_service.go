package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
)

// FeedState is the lifecycle of one fixture's live feed.
type FeedState string

const (
	FeedIdle    FeedState = "idle"
	FeedLoading FeedState = "loading"
	FeedLive    FeedState = "live"
	FeedError   FeedState = "error"
)

// FeedConfig tunes one feed controller. Nothing in the logic depends on a
// specific flash or movement duration; both are deployment knobs.
type FeedConfig struct {
	FlashClearAfter   time.Duration
	MovementWindow    time.Duration
	FairOdds          bool
	ReconnectEnabled  bool
	ReconnectAttempts int
	ReconnectBackoff  time.Duration
	Clock             func() time.Time
}

func (c FeedConfig) normalized() FeedConfig {
	if c.FlashClearAfter <= 0 {
		c.FlashClearAfter = 2 * time.Second
	}
	if c.MovementWindow <= 0 {
		c.MovementWindow = 300 * time.Second
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 2 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// FeedService owns the live odds state for a single fixture at a time: the
// snapshot fetch, at most one stream connection, the accumulated merge state,
// and the flash map derived from each update.
//
// A service built without a gateway and dialer is passive: it only stores and
// diffs snapshots pushed in through SetSnapshot.
type FeedService struct {
	gateway OddsGateway
	dialer  StreamDialer
	cfg     FeedConfig
	logger  *logging.Logger

	// watchMu serializes Watch and Close so a switch is atomic: the previous
	// connection is fully torn down before the next one is dialed, and a
	// concurrent Watch can never leave an orphaned stream behind.
	watchMu sync.Mutex

	mu        sync.Mutex
	fixtureID int64
	state     FeedState
	errMsg    string
	warning   string
	data      odds.Data
	flash     odds.ChangeSet
	flashGen  uint64

	stream     Stream
	cancel     context.CancelFunc
	consumerWG sync.WaitGroup
}

func NewFeedService(gateway OddsGateway, dialer StreamDialer, cfg FeedConfig, logger *logging.Logger) *FeedService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FeedService{
		gateway: gateway,
		dialer:  dialer,
		cfg:     cfg.normalized(),
		logger:  logger,
		state:   FeedIdle,
	}
}

// NewPassiveFeed builds a controller that never touches the network.
func NewPassiveFeed(cfg FeedConfig, logger *logging.Logger) *FeedService {
	return NewFeedService(nil, nil, cfg, logger)
}

// Watch switches the controller to a fixture: tear down any prior
// connection, load the current snapshot, then subscribe to the fixture's
// stream. A fixture with no odds at all stays live with empty data and no
// stream is opened for it.
func (s *FeedService) Watch(ctx context.Context, fixtureID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedService.Watch")
	defer span.End()

	if fixtureID <= 0 {
		return fmt.Errorf("%w: fixture id must be positive", ErrInvalidInput)
	}
	if s.gateway == nil || s.dialer == nil {
		return fmt.Errorf("%w: passive feed cannot watch fixtures", ErrInvalidInput)
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	s.teardown()

	s.mu.Lock()
	s.fixtureID = fixtureID
	s.state = FeedLoading
	s.errMsg = ""
	s.warning = ""
	s.data = nil
	s.flash = nil
	s.mu.Unlock()

	books, err := s.gateway.FetchOdds(ctx, fixtureID, s.cfg.FairOdds)
	if err != nil {
		s.mu.Lock()
		s.state = FeedError
		s.errMsg = "failed to load odds"
		s.data = nil
		s.mu.Unlock()
		return fmt.Errorf("fetch odds fixture=%d: %w", fixtureID, err)
	}

	data := odds.MergeData(nil, books)
	s.mu.Lock()
	s.data = data
	s.state = FeedLive
	s.mu.Unlock()

	if len(data) == 0 {
		// Nothing priced yet; stay live showing "no odds available".
		return nil
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := s.dialer.DialFixture(streamCtx, fixtureID, s.cfg.FairOdds)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.warning = "live updates unavailable"
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "odds stream dial failed", "fixture_id", fixtureID, "error", err)
		return nil
	}

	s.mu.Lock()
	s.stream = stream
	s.cancel = cancel
	s.mu.Unlock()

	s.consumerWG.Add(1)
	go s.consume(streamCtx, fixtureID, stream)
	return nil
}

// SetSnapshot feeds an externally supplied odds snapshot (passive mode).
// The snapshot replaces stored data wholesale; the controller only diffs.
func (s *FeedService) SetSnapshot(data odds.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data == nil {
		s.state = FeedIdle
		s.data = nil
		s.flash = nil
		return
	}
	changes := odds.DetectChanges(s.data, data)
	s.data = data
	s.state = FeedLive
	if len(changes) > 0 {
		s.flash = changes
		s.scheduleFlashClearLocked()
	}
}

func (s *FeedService) consume(ctx context.Context, fixtureID int64, stream Stream) {
	defer s.consumerWG.Done()

	for {
		for msg := range stream.Messages() {
			s.applyMessage(fixtureID, msg)
		}

		err := stream.Err()
		if err == nil || ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.warning = "live updates interrupted"
		s.mu.Unlock()
		s.logger.Warn("odds stream failed", "fixture_id", fixtureID, "error", err)

		if !s.cfg.ReconnectEnabled {
			return
		}
		next, ok := s.redial(ctx, fixtureID)
		if !ok {
			return
		}
		stream = next

		s.mu.Lock()
		s.stream = stream
		s.warning = ""
		s.mu.Unlock()
	}
}

// redial retries the stream connection with linear backoff up to the
// configured attempt budget.
func (s *FeedService) redial(ctx context.Context, fixtureID int64) (Stream, bool) {
	for attempt := 1; attempt <= s.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(time.Duration(attempt) * s.cfg.ReconnectBackoff):
		}

		stream, err := s.dialer.DialFixture(ctx, fixtureID, s.cfg.FairOdds)
		if err == nil {
			s.logger.Info("odds stream reconnected", "fixture_id", fixtureID, "attempt", attempt)
			return stream, true
		}
		s.logger.Warn("odds stream reconnect failed", "fixture_id", fixtureID, "attempt", attempt, "error", err)
	}
	return nil, false
}

func (s *FeedService) applyMessage(fixtureID int64, msg StreamMessage) {
	if msg.FixtureID != 0 && msg.FixtureID != fixtureID {
		return
	}
	switch msg.Type {
	case MessageOddsUpdate, MessageOddsSnapshot:
	case MessageOddsRemoved:
		s.mu.Lock()
		s.data = odds.Data{}
		s.flash = nil
		s.mu.Unlock()
		return
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.data
	next := odds.MergeData(previous, msg.Bookmakers)
	changes := odds.DetectChanges(previous, next)
	s.data = next
	s.state = FeedLive
	if len(changes) > 0 {
		s.flash = changes
		s.scheduleFlashClearLocked()
	}
}

// scheduleFlashClearLocked arms a one-shot clear for the current flash set.
// The generation counter makes a stale timer harmless when a newer update
// re-flashed in the meantime.
func (s *FeedService) scheduleFlashClearLocked() {
	s.flashGen++
	gen := s.flashGen
	time.AfterFunc(s.cfg.FlashClearAfter, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.flashGen == gen {
			s.flash = nil
		}
	})
}

// teardown closes the active connection and waits for its consumer to stop.
// Exactly one connection exists at any time; opening a new one always goes
// through here first.
func (s *FeedService) teardown() {
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
}

// Close is the unmount path: the connection is torn down unconditionally.
func (s *FeedService) Close() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	s.teardown()
	s.mu.Lock()
	s.state = FeedIdle
	s.mu.Unlock()
}

func (s *FeedService) State() FeedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *FeedService) FixtureID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixtureID
}

func (s *FeedService) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *FeedService) Warning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warning
}

// Data returns the accumulated odds state. The map is copied; the series
// inside are never mutated after a merge, so sharing them is safe.
func (s *FeedService) Data() odds.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(odds.Data, len(s.data))
	for name, book := range s.data {
		out[name] = book
	}
	return out
}

func (s *FeedService) Flash() odds.ChangeSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(odds.ChangeSet, len(s.flash))
	for key, dir := range s.flash {
		out[key] = dir
	}
	return out
}

// Movement classifies one cell against the accumulated history.
func (s *FeedService) Movement(bookie, market, outcome string, line float64) odds.Movement {
	s.mu.Lock()
	book, ok := s.data[bookie]
	s.mu.Unlock()
	if !ok {
		return odds.MovementNone
	}
	now := s.cfg.Clock().Unix()
	window := int64(s.cfg.MovementWindow / time.Second)
	return odds.ClassifyMovement(book, market, outcome, line, now, window)
}
