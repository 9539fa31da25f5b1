package stream

import (
	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/usecase"
)

// wireMessage is one server push frame, shared by the per-fixture and the
// monitor streams.
type wireMessage struct {
	Type      string               `json:"type"`
	FixtureID int64                `json:"fixture_id"`
	Timestamp int64                `json:"timestamp"`
	Start     int64                `json:"start"`
	End       int64                `json:"end"`
	Odds      []odds.BookmakerOdds `json:"odds"`
}

func decodeMessage(raw []byte) (usecase.StreamMessage, error) {
	var wire wireMessage
	if err := sonic.Unmarshal(raw, &wire); err != nil {
		return usecase.StreamMessage{}, err
	}
	return usecase.StreamMessage{
		Type:       wire.Type,
		FixtureID:  wire.FixtureID,
		Timestamp:  wire.Timestamp,
		Start:      wire.Start,
		End:        wire.End,
		Bookmakers: wire.Odds,
	}, nil
}

// controlMessage is a client-to-server frame on the monitor stream.
type controlMessage struct {
	Type   string       `json:"type"`
	Filter *odds.Filter `json:"filter,omitempty"`
}

const (
	controlSubscribe    = "subscribe"
	controlUpdateFilter = "update_filter"
	controlRemoveFilter = "remove_filter"
)
