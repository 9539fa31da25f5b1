package odds

import "sort"

// Movement classifies a cell's recent trend, distinct from the flash map.
type Movement string

const (
	MovementNone    Movement = ""
	MovementUp      Movement = "up"
	MovementDown    Movement = "down"
	MovementAdded   Movement = "added"
	MovementRemoved Movement = "removed"
)

type historyPoint struct {
	t     int64
	price int
	valid bool
}

// ClassifyMovement evaluates the full accumulated history of one
// bookmaker/market/outcome cell. line is consulted only for AH/OU markets.
// A series shorter than two points reports nothing, and so does any series
// whose latest point fell out of the recency window by now.
func ClassifyMovement(book BookmakerOdds, market, outcome string, line float64, now, recencyWindow int64) Movement {
	series := buildHistory(book, market, outcome, line)
	if len(series) < 2 {
		return MovementNone
	}

	latest := series[len(series)-1]
	if recencyWindow > 0 && latest.t < now-recencyWindow {
		return MovementNone
	}

	for i := len(series) - 2; i >= 0; i-- {
		prior := series[i]
		switch {
		case latest.valid && !prior.valid:
			return MovementAdded
		case !latest.valid && prior.valid:
			return MovementRemoved
		case latest.valid && prior.valid && latest.price != prior.price:
			if latest.price > prior.price {
				return MovementUp
			}
			return MovementDown
		}
	}
	return MovementNone
}

// buildHistory flattens one cell into a chronological validity/value series.
// AH/OU prices are re-resolved by line value at every point, against the line
// set in force at that point's timestamp.
func buildHistory(book BookmakerOdds, market, outcome string, line float64) []historyPoint {
	var out []historyPoint
	switch market {
	case Market1X2:
		idx, ok := x12OutcomeIndex(outcome)
		if !ok {
			return nil
		}
		for _, p := range book.X12 {
			price := p.Prices[idx]
			out = append(out, historyPoint{t: p.T, price: price, valid: ValidPrice(price)})
		}
	case MarketAH:
		for _, p := range book.AH {
			prices := p.Home
			if outcome == OutcomeAway {
				prices = p.Away
			}
			out = append(out, lineHistoryPoint(book, p.T, line, prices, func(s LineSet) []float64 { return s.AH }))
		}
	case MarketOU:
		for _, p := range book.OU {
			prices := p.Over
			if outcome == OutcomeUnder {
				prices = p.Under
			}
			out = append(out, lineHistoryPoint(book, p.T, line, prices, func(s LineSet) []float64 { return s.OU }))
		}
	default:
		return nil
	}

	sort.Slice(out, func(i, j int) bool { return out[i].t < out[j].t })
	return out
}

func lineHistoryPoint(book BookmakerOdds, t int64, line float64, prices []int, pick func(LineSet) []float64) historyPoint {
	point := historyPoint{t: t}
	entry, ok := lastLineSetBefore(book.Lines, t, func(s LineSet) bool { return len(pick(s)) > 0 })
	if !ok {
		return point
	}
	idx, ok := LineIndex(pick(entry), line)
	if !ok {
		return point
	}
	if price, ok := priceAt(prices, idx); ok {
		point.price = price
		point.valid = true
	}
	return point
}

func x12OutcomeIndex(outcome string) (int, bool) {
	switch outcome {
	case OutcomeHome:
		return 0, true
	case OutcomeDraw:
		return 1, true
	case OutcomeAway:
		return 2, true
	default:
		return 0, false
	}
}
