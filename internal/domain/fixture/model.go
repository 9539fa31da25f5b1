package fixture

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
)

// Fixture is the match metadata attached to an odds feed. Accumulated odds
// state lives separately, keyed by ID.
type Fixture struct {
	ID        int64
	LeagueID  int64
	League    string
	HomeTeam  string
	AwayTeam  string
	KickoffAt time.Time
	Status    string
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

// IsTradeable reports whether a fixture can still carry a live market.
func IsTradeable(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, StatusCancelled, StatusPostponed, "FT", "AET", "PEN", "ABANDONED":
		return false
	default:
		return true
	}
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusLive, "IN_PLAY", "HT", "1H", "2H", "ET":
		return true
	default:
		return false
	}
}
