package oddsapi

import (
	"time"

	"github.com/riskibarqy/odds-monitor/internal/domain/fixture"
	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
)

type fixturesEnvelope struct {
	Data       []fixtureItem `json:"data"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}

type fixtureItem struct {
	ID        int64  `json:"id"`
	LeagueID  int64  `json:"league_id"`
	League    string `json:"league"`
	HomeTeam  string `json:"home"`
	AwayTeam  string `json:"away"`
	KickoffAt string `json:"kickoff_at"`
	Status    string `json:"status"`
}

type oddsEnvelope struct {
	Odds []odds.BookmakerOdds `json:"odds"`
}

func mapFixture(item fixtureItem) fixture.Fixture {
	kickoff, err := time.Parse(time.RFC3339, item.KickoffAt)
	if err != nil {
		kickoff = time.Time{}
	}
	return fixture.Fixture{
		ID:        item.ID,
		LeagueID:  item.LeagueID,
		League:    item.League,
		HomeTeam:  item.HomeTeam,
		AwayTeam:  item.AwayTeam,
		KickoffAt: kickoff,
		Status:    fixture.NormalizeStatus(item.Status),
	}
}
