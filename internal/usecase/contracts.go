package usecase

import (
	"context"

	"github.com/riskibarqy/odds-monitor/internal/domain/fixture"
	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
)

// Stream message types pushed by the odds processor.
const (
	MessageOddsSnapshot = "odds_snapshot"
	MessageOddsUpdate   = "odds_update"
	MessageOddsRemoved  = "odds_removed"
)

// StreamMessage is one parsed event from an odds stream. Start and End are
// millisecond touchpoints: when the odds left the bookmaker API and when the
// processor emitted the event; their difference is the pipeline latency.
type StreamMessage struct {
	Type       string
	FixtureID  int64
	Timestamp  int64
	Start      int64
	End        int64
	Bookmakers []odds.BookmakerOdds
}

// Stream is a live server-push connection. Messages closes when the
// connection ends; Err then reports why, nil meaning a deliberate close.
type Stream interface {
	Messages() <-chan StreamMessage
	Err() error
	Close() error
}

// MonitorStream additionally accepts filter control messages.
type MonitorStream interface {
	Stream
	Subscribe(filter *odds.Filter) error
	RemoveFilter() error
}

// FixturePage is one page of the collaborator's fixture listing.
type FixturePage struct {
	Fixtures   []fixture.Fixture
	Total      int
	TotalPages int
}

// OddsGateway is the one-shot HTTP surface of the odds platform.
type OddsGateway interface {
	ListFixtures(ctx context.Context, page, pageSize int) (FixturePage, error)
	FetchOdds(ctx context.Context, fixtureID int64, fairOdds bool) ([]odds.BookmakerOdds, error)
}

// StreamDialer opens a per-fixture odds stream.
type StreamDialer interface {
	DialFixture(ctx context.Context, fixtureID int64, fairOdds bool) (Stream, error)
}

// MonitorDialer opens the shared multi-fixture stream.
type MonitorDialer interface {
	DialMonitor(ctx context.Context) (MonitorStream, error)
}
