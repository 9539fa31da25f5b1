package usecase

import (
	"context"
	"sync"

	"github.com/riskibarqy/odds-monitor/internal/domain/fixture"
	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
)

type fakeStream struct {
	ch      chan StreamMessage
	errMu   sync.Mutex
	err     error
	once    sync.Once
	onClose func()
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan StreamMessage, 16)}
}

func (f *fakeStream) Messages() <-chan StreamMessage { return f.ch }

func (f *fakeStream) Err() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.err
}

func (f *fakeStream) Close() error {
	f.once.Do(func() {
		close(f.ch)
		if f.onClose != nil {
			f.onClose()
		}
	})
	return nil
}

// fail ends the stream with an error, as a dropped connection would.
func (f *fakeStream) fail(err error) {
	f.errMu.Lock()
	f.err = err
	f.errMu.Unlock()
	f.once.Do(func() { close(f.ch) })
}

func (f *fakeStream) push(msg StreamMessage) { f.ch <- msg }

type fakeMonitorStream struct {
	*fakeStream
	mu         sync.Mutex
	subscribed []*odds.Filter
	removals   int
	subErr     error
}

func newFakeMonitorStream() *fakeMonitorStream {
	return &fakeMonitorStream{fakeStream: newFakeStream()}
}

func (f *fakeMonitorStream) Subscribe(filter *odds.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return f.subErr
	}
	f.subscribed = append(f.subscribed, filter)
	return nil
}

func (f *fakeMonitorStream) RemoveFilter() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals++
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	pages    map[int]FixturePage
	odds     map[int64][]odds.BookmakerOdds
	oddsErr  error
	listErr  error
	fetches  []int64
	listCall int
}

func (g *fakeGateway) ListFixtures(_ context.Context, page, _ int) (FixturePage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCall++
	if g.listErr != nil {
		return FixturePage{}, g.listErr
	}
	return g.pages[page], nil
}

func (g *fakeGateway) FetchOdds(_ context.Context, fixtureID int64, _ bool) ([]odds.BookmakerOdds, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches = append(g.fetches, fixtureID)
	if g.oddsErr != nil {
		return nil, g.oddsErr
	}
	return g.odds[fixtureID], nil
}

type fakeDialer struct {
	mu      sync.Mutex
	streams []*fakeStream
	dialErr error
	dials   int
}

func (d *fakeDialer) DialFixture(_ context.Context, _ int64, _ bool) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	if len(d.streams) == 0 {
		return nil, ErrDependencyUnavailable
	}
	stream := d.streams[0]
	if len(d.streams) > 1 {
		d.streams = d.streams[1:]
	}
	return stream, nil
}

type fakeMonitorDialer struct {
	stream  *fakeMonitorStream
	dialErr error
}

func (d *fakeMonitorDialer) DialMonitor(context.Context) (MonitorStream, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.stream, nil
}

func bookWithX12(name string, points ...odds.X12Point) odds.BookmakerOdds {
	var latest int64
	for _, p := range points {
		if p.T > latest {
			latest = p.T
		}
	}
	return odds.BookmakerOdds{
		Bookie:   name,
		Decimals: odds.DefaultDecimals,
		X12:      odds.Series[odds.X12Point](points),
		LatestT:  odds.LatestHints{X12: latest},
	}
}

func fixtureAt(id int64, home, away string) fixture.Fixture {
	return fixture.Fixture{ID: id, HomeTeam: home, AwayTeam: away, Status: fixture.StatusScheduled}
}
