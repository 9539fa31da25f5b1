package odds

import (
	"fmt"
	"strconv"
)

// Direction is a per-cell flash direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ChangeSet maps cell keys to flash directions. Consumers clear the set after
// a short display window; the window length is presentation tuning, not a
// correctness concern.
type ChangeSet map[string]Direction

// CellKey identifies one price cell: "{bookie}:{market}:{outcome}[:{line}]".
func CellKey(bookie, market, outcome string, line *float64) string {
	if line == nil {
		return fmt.Sprintf("%s:%s:%s", bookie, market, outcome)
	}
	return fmt.Sprintf("%s:%s:%s:%s", bookie, market, outcome, FormatLine(*line))
}

// FormatLine renders a line value without trailing zeros, so 0.5 and -1.25
// round-trip into stable cell keys.
func FormatLine(line float64) string {
	return strconv.FormatFloat(line, 'f', -1, 64)
}

// DetectChanges compares the latest snapshot of every bookmaker present in
// both datasets and reports which cells moved. 1X2 outcomes are positional;
// AH/OU lines are matched by value so a shifted line array never produces a
// cross-line comparison.
func DetectChanges(previous, next Data) ChangeSet {
	changes := make(ChangeSet)
	for name, newBook := range next {
		oldBook, ok := previous[name]
		if !ok {
			continue
		}
		oldSnap := oldBook.Current()
		newSnap := newBook.Current()

		detectX12Changes(changes, name, oldSnap, newSnap)

		if oldSnap.AH != nil && newSnap.AH != nil {
			detectLineChanges(changes, name, MarketAH, OutcomeHome,
				oldSnap.Lines.AH, oldSnap.AH.Home, newSnap.Lines.AH, newSnap.AH.Home)
			detectLineChanges(changes, name, MarketAH, OutcomeAway,
				oldSnap.Lines.AH, oldSnap.AH.Away, newSnap.Lines.AH, newSnap.AH.Away)
		}
		if oldSnap.OU != nil && newSnap.OU != nil {
			detectLineChanges(changes, name, MarketOU, OutcomeOver,
				oldSnap.Lines.OU, oldSnap.OU.Over, newSnap.Lines.OU, newSnap.OU.Over)
			detectLineChanges(changes, name, MarketOU, OutcomeUnder,
				oldSnap.Lines.OU, oldSnap.OU.Under, newSnap.Lines.OU, newSnap.OU.Under)
		}
	}
	return changes
}

func detectX12Changes(changes ChangeSet, bookie string, oldSnap, newSnap Snapshot) {
	if oldSnap.X12 == nil || newSnap.X12 == nil {
		return
	}
	outcomes := [3]string{OutcomeHome, OutcomeDraw, OutcomeAway}
	for i, outcome := range outcomes {
		oldPrice := oldSnap.X12.Prices[i]
		newPrice := newSnap.X12.Prices[i]
		if oldPrice == newPrice {
			continue
		}
		changes[CellKey(bookie, Market1X2, outcome, nil)] = direction(oldPrice, newPrice)
	}
}

func detectLineChanges(changes ChangeSet, bookie, market, outcome string, oldLines []float64, oldPrices []int, newLines []float64, newPrices []int) {
	for newIdx, line := range newLines {
		oldIdx, ok := LineIndex(oldLines, line)
		if !ok {
			continue
		}
		oldPrice, oldOK := priceAt(oldPrices, oldIdx)
		newPrice, newOK := priceAt(newPrices, newIdx)
		if !oldOK || !newOK || oldPrice == newPrice {
			continue
		}
		lineCopy := line
		changes[CellKey(bookie, market, outcome, &lineCopy)] = direction(oldPrice, newPrice)
	}
}

func direction(oldPrice, newPrice int) Direction {
	if newPrice > oldPrice {
		return DirectionUp
	}
	return DirectionDown
}
