package odds

import (
	"math"
	"sort"
)

// PredictionBookie is the synthetic source carrying the model's own prices.
// It always sorts first and never participates in top-odds computation.
const PredictionBookie = "Prediction"

const DefaultDecimals = 3

const (
	Market1X2 = "Odds 1X2"
	MarketAH  = "Asian Handicap"
	MarketOU  = "Over/Under"
)

const (
	OutcomeHome  = "Home"
	OutcomeDraw  = "Draw"
	OutcomeAway  = "Away"
	OutcomeOver  = "Over"
	OutcomeUnder = "Under"
)

// X12Point is one timestamped reading of a three-way match-result market.
// Prices are integers scaled by the bookmaker's decimals exponent.
type X12Point struct {
	T      int64  `json:"t"`
	Prices [3]int `json:"x12"`
}

func (p X12Point) Timestamp() int64 { return p.T }

// HandicapPoint carries parallel home/away price vectors indexed by line.
type HandicapPoint struct {
	T    int64 `json:"t"`
	Home []int `json:"h"`
	Away []int `json:"a"`
}

func (p HandicapPoint) Timestamp() int64 { return p.T }

// TotalsPoint carries parallel over/under price vectors indexed by line.
type TotalsPoint struct {
	T     int64 `json:"t"`
	Over  []int `json:"o"`
	Under []int `json:"u"`
}

func (p TotalsPoint) Timestamp() int64 { return p.T }

// LineSet records which handicap and total lines were active at time T.
// Line identity is by numeric value, never by array position.
type LineSet struct {
	T  int64     `json:"t"`
	AH []float64 `json:"ah"`
	OU []float64 `json:"ou"`
}

func (s LineSet) Timestamp() int64 { return s.T }

// IDSet records the bookmaker-side selection ids active at time T.
type IDSet struct {
	T   int64    `json:"t"`
	IDs []string `json:"ids"`
}

func (s IDSet) Timestamp() int64 { return s.T }

// StakeSet records per-line maximum stakes at time T.
type StakeSet struct {
	T      int64 `json:"t"`
	Stakes []int `json:"max"`
}

func (s StakeSet) Timestamp() int64 { return s.T }

// LatestHints carries the per-market latest-update timestamps the upstream
// engine stores alongside each bookmaker record.
type LatestHints struct {
	X12 int64 `json:"x12"`
	AH  int64 `json:"ah"`
	OU  int64 `json:"ou"`
}

// BookmakerOdds is the accumulated state for one bookmaker on one fixture.
// Every market field accepts either a bare object (no history yet) or a full
// historical array on the wire; both decode to a Series.
type BookmakerOdds struct {
	Bookie    string                `json:"bookie"`
	BookieID  int64                 `json:"bookie_id,omitempty"`
	Decimals  int                   `json:"decimals"`
	X12       Series[X12Point]      `json:"x12,omitempty"`
	AH        Series[HandicapPoint] `json:"ah,omitempty"`
	OU        Series[TotalsPoint]   `json:"ou,omitempty"`
	Lines     Series[LineSet]       `json:"lines,omitempty"`
	IDs       Series[IDSet]         `json:"ids,omitempty"`
	MaxStakes Series[StakeSet]      `json:"max_stakes,omitempty"`
	LatestT   LatestHints           `json:"latest_t"`
}

// Data is the full accumulated odds state for one fixture, keyed by bookmaker.
type Data map[string]BookmakerOdds

// ValidPrice reports whether a raw price represents a live outcome.
func ValidPrice(price int) bool { return price > 0 }

// SanePrice reports whether a raw price decodes to decimal odds above 1.0.
func SanePrice(price, decimals int) bool {
	return float64(price) > math.Pow10(decimalsOrDefault(decimals))
}

// DecimalPrice converts a raw scaled price to decimal odds.
func DecimalPrice(price, decimals int) float64 {
	return float64(price) / math.Pow10(decimalsOrDefault(decimals))
}

func decimalsOrDefault(decimals int) int {
	if decimals <= 0 {
		return DefaultDecimals
	}
	return decimals
}

// SortedBookies returns the display order: Prediction first, rest alphabetical.
func (d Data) SortedBookies() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == PredictionBookie {
			return true
		}
		if names[j] == PredictionBookie {
			return false
		}
		return names[i] < names[j]
	})
	return names
}

// BestPrice is the best available decimal price for one outcome.
type BestPrice struct {
	Bookie string  `json:"bookie"`
	Price  float64 `json:"price"`
}

// TopOdds summarises the best 1X2 prices across real bookmakers.
type TopOdds struct {
	Home *BestPrice `json:"home,omitempty"`
	Draw *BestPrice `json:"draw,omitempty"`
	Away *BestPrice `json:"away,omitempty"`
}

// Top computes the best current 1X2 price per outcome, excluding Prediction.
func (d Data) Top() TopOdds {
	var top TopOdds
	slots := [3]**BestPrice{&top.Home, &top.Draw, &top.Away}
	for name, book := range d {
		if name == PredictionBookie {
			continue
		}
		snap := book.Current()
		if snap.X12 == nil {
			continue
		}
		for i, slot := range slots {
			raw := snap.X12.Prices[i]
			if !ValidPrice(raw) {
				continue
			}
			price := DecimalPrice(raw, book.Decimals)
			if *slot == nil || price > (*slot).Price {
				*slot = &BestPrice{Bookie: name, Price: price}
			}
		}
	}
	return top
}
