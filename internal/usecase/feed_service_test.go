package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
)

func feedConfig() FeedConfig {
	return FeedConfig{
		FlashClearAfter: 30 * time.Millisecond,
		MovementWindow:  300 * time.Second,
	}
}

func TestFeedWatchLoadsSnapshotThenStreams(t *testing.T) {
	gateway := &fakeGateway{odds: map[int64][]odds.BookmakerOdds{
		42: {bookWithX12("Pinnacle", odds.X12Point{T: 100, Prices: [3]int{2100, 3400, 3600}})},
	}}
	stream := newFakeStream()
	dialer := &fakeDialer{streams: []*fakeStream{stream}}

	svc := NewFeedService(gateway, dialer, feedConfig(), logging.NewNop())
	defer svc.Close()

	require.NoError(t, svc.Watch(context.Background(), 42))
	require.Equal(t, FeedLive, svc.State())
	require.Equal(t, int64(42), svc.FixtureID())
	require.Contains(t, svc.Data(), "Pinnacle")
	require.Equal(t, 1, dialer.dials)

	stream.push(StreamMessage{
		Type:      MessageOddsUpdate,
		FixtureID: 42,
		Bookmakers: []odds.BookmakerOdds{
			bookWithX12("Pinnacle", odds.X12Point{T: 200, Prices: [3]int{2200, 3400, 3600}}),
		},
	})

	require.Eventually(t, func() bool {
		book, ok := svc.Data()["Pinnacle"]
		return ok && len(book.X12) == 2
	}, time.Second, 5*time.Millisecond, "stream update should merge into history")

	flash := svc.Flash()
	require.Equal(t, odds.DirectionUp, flash["Pinnacle:Odds 1X2:Home"])

	require.Eventually(t, func() bool {
		return len(svc.Flash()) == 0
	}, time.Second, 5*time.Millisecond, "flash should clear on its own")
}

func TestFeedWatchNoOddsSkipsStream(t *testing.T) {
	gateway := &fakeGateway{odds: map[int64][]odds.BookmakerOdds{}}
	dialer := &fakeDialer{streams: []*fakeStream{newFakeStream()}}

	svc := NewFeedService(gateway, dialer, feedConfig(), logging.NewNop())
	defer svc.Close()

	require.NoError(t, svc.Watch(context.Background(), 7))
	require.Equal(t, FeedLive, svc.State())
	require.Empty(t, svc.Data())
	require.Equal(t, 0, dialer.dials, "no stream for a fixture without odds")
}

func TestFeedWatchFetchFailure(t *testing.T) {
	gateway := &fakeGateway{oddsErr: errors.New("upstream down")}
	svc := NewFeedService(gateway, &fakeDialer{}, feedConfig(), logging.NewNop())
	defer svc.Close()

	err := svc.Watch(context.Background(), 7)
	require.Error(t, err)
	require.Equal(t, FeedError, svc.State())
	require.NotEmpty(t, svc.ErrorMessage())
	require.Empty(t, svc.Data())
}

func TestFeedWatchDialFailureKeepsSnapshot(t *testing.T) {
	gateway := &fakeGateway{odds: map[int64][]odds.BookmakerOdds{
		9: {bookWithX12("Bet365", odds.X12Point{T: 50, Prices: [3]int{1800, 3500, 4200}})},
	}}
	dialer := &fakeDialer{dialErr: errors.New("refused")}

	svc := NewFeedService(gateway, dialer, feedConfig(), logging.NewNop())
	defer svc.Close()

	require.NoError(t, svc.Watch(context.Background(), 9))
	require.Equal(t, FeedLive, svc.State())
	require.Contains(t, svc.Data(), "Bet365")
	require.NotEmpty(t, svc.Warning())
}

func TestFeedStreamErrorPreservesData(t *testing.T) {
	gateway := &fakeGateway{odds: map[int64][]odds.BookmakerOdds{
		11: {bookWithX12("Pinnacle", odds.X12Point{T: 100, Prices: [3]int{2000, 3300, 3900}})},
	}}
	stream := newFakeStream()
	dialer := &fakeDialer{streams: []*fakeStream{stream}}

	svc := NewFeedService(gateway, dialer, feedConfig(), logging.NewNop())
	defer svc.Close()

	require.NoError(t, svc.Watch(context.Background(), 11))
	stream.fail(errors.New("connection reset"))

	require.Eventually(t, func() bool {
		return svc.Warning() != ""
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, FeedLive, svc.State(), "stale data beats a blank screen")
	require.Contains(t, svc.Data(), "Pinnacle")
}

func TestFeedReconnect(t *testing.T) {
	gateway := &fakeGateway{odds: map[int64][]odds.BookmakerOdds{
		11: {bookWithX12("Pinnacle", odds.X12Point{T: 100, Prices: [3]int{2000, 3300, 3900}})},
	}}
	first := newFakeStream()
	second := newFakeStream()
	dialer := &fakeDialer{streams: []*fakeStream{first, second}}

	cfg := feedConfig()
	cfg.ReconnectEnabled = true
	cfg.ReconnectAttempts = 3
	cfg.ReconnectBackoff = time.Millisecond

	svc := NewFeedService(gateway, dialer, cfg, logging.NewNop())
	defer svc.Close()

	require.NoError(t, svc.Watch(context.Background(), 11))
	first.fail(errors.New("connection reset"))

	require.Eventually(t, func() bool {
		dialer.mu.Lock()
		defer dialer.mu.Unlock()
		return dialer.dials >= 2
	}, time.Second, 5*time.Millisecond)

	second.push(StreamMessage{
		Type:      MessageOddsUpdate,
		FixtureID: 11,
		Bookmakers: []odds.BookmakerOdds{
			bookWithX12("Pinnacle", odds.X12Point{T: 250, Prices: [3]int{2050, 3300, 3900}}),
		},
	})
	require.Eventually(t, func() bool {
		book := svc.Data()["Pinnacle"]
		return len(book.X12) == 2 && svc.Warning() == ""
	}, time.Second, 5*time.Millisecond, "reconnected stream should keep merging")
}

func TestFeedWatchSwitchTearsDownPrevious(t *testing.T) {
	gateway := &fakeGateway{odds: map[int64][]odds.BookmakerOdds{
		1: {bookWithX12("Pinnacle", odds.X12Point{T: 100, Prices: [3]int{2000, 3300, 3900}})},
		2: {bookWithX12("Bet365", odds.X12Point{T: 100, Prices: [3]int{1900, 3400, 4100}})},
	}}
	first := newFakeStream()
	closed := make(chan struct{})
	first.onClose = func() { close(closed) }
	second := newFakeStream()
	dialer := &fakeDialer{streams: []*fakeStream{first, second}}

	svc := NewFeedService(gateway, dialer, feedConfig(), logging.NewNop())
	defer svc.Close()

	require.NoError(t, svc.Watch(context.Background(), 1))
	require.NoError(t, svc.Watch(context.Background(), 2))

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("previous stream was not closed on switch")
	}
	require.NotContains(t, svc.Data(), "Pinnacle", "state from the previous fixture must not leak")
	require.Contains(t, svc.Data(), "Bet365")
}

func TestFeedConcurrentWatchKeepsOneConnection(t *testing.T) {
	gateway := &fakeGateway{odds: map[int64][]odds.BookmakerOdds{
		1: {bookWithX12("Pinnacle", odds.X12Point{T: 100, Prices: [3]int{2000, 3300, 3900}})},
		2: {bookWithX12("Bet365", odds.X12Point{T: 100, Prices: [3]int{1900, 3400, 4100}})},
	}}
	first := newFakeStream()
	second := newFakeStream()
	var closedMu sync.Mutex
	closed := 0
	first.onClose = func() { closedMu.Lock(); closed++; closedMu.Unlock() }
	second.onClose = func() { closedMu.Lock(); closed++; closedMu.Unlock() }
	dialer := &fakeDialer{streams: []*fakeStream{first, second}}

	svc := NewFeedService(gateway, dialer, feedConfig(), logging.NewNop())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Watch(context.Background(), int64(i+1))
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	dialer.mu.Lock()
	dials := dialer.dials
	dialer.mu.Unlock()
	require.Equal(t, 2, dials)

	closedMu.Lock()
	require.Equal(t, 1, closed, "the overtaken connection must be torn down, the winner kept")
	closedMu.Unlock()

	done := make(chan struct{})
	go func() { svc.Close(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked waiting on an orphaned stream")
	}
	closedMu.Lock()
	require.Equal(t, 2, closed, "Close must tear down the remaining connection")
	closedMu.Unlock()
}

func TestFeedPassiveSnapshotDiff(t *testing.T) {
	svc := NewPassiveFeed(feedConfig(), logging.NewNop())
	defer svc.Close()

	require.Error(t, svc.Watch(context.Background(), 1), "passive feed cannot watch")

	svc.SetSnapshot(odds.Data{
		"Pinnacle": bookWithX12("Pinnacle", odds.X12Point{T: 100, Prices: [3]int{2000, 3300, 3900}}),
	})
	require.Equal(t, FeedLive, svc.State())
	require.Empty(t, svc.Flash(), "first snapshot has nothing to diff against")

	svc.SetSnapshot(odds.Data{
		"Pinnacle": bookWithX12("Pinnacle", odds.X12Point{T: 200, Prices: [3]int{1950, 3300, 3900}}),
	})
	require.Equal(t, odds.DirectionDown, svc.Flash()["Pinnacle:Odds 1X2:Home"])

	svc.SetSnapshot(nil)
	require.Equal(t, FeedIdle, svc.State())
	require.Empty(t, svc.Data())
}

func TestFeedMovement(t *testing.T) {
	svc := NewPassiveFeed(FeedConfig{
		FlashClearAfter: time.Minute,
		MovementWindow:  300 * time.Second,
		Clock:           func() time.Time { return time.Unix(400, 0) },
	}, logging.NewNop())
	defer svc.Close()

	svc.SetSnapshot(odds.Data{
		"Pinnacle": bookWithX12("Pinnacle",
			odds.X12Point{T: 100, Prices: [3]int{2000, 3300, 3900}},
			odds.X12Point{T: 300, Prices: [3]int{2100, 3300, 3900}},
		),
	})

	require.Equal(t, odds.MovementUp, svc.Movement("Pinnacle", odds.Market1X2, odds.OutcomeHome, 0))
	require.Equal(t, odds.MovementNone, svc.Movement("Pinnacle", odds.Market1X2, odds.OutcomeDraw, 0))
	require.Equal(t, odds.MovementNone, svc.Movement("Unknown", odds.Market1X2, odds.OutcomeHome, 0))
}

func TestFeedRejectsBadFixtureID(t *testing.T) {
	svc := NewFeedService(&fakeGateway{}, &fakeDialer{}, feedConfig(), logging.NewNop())
	defer svc.Close()
	require.ErrorIs(t, svc.Watch(context.Background(), 0), ErrInvalidInput)
}
