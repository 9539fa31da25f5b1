package odds

// LinePair is the resolved set of active lines backing a snapshot.
type LinePair struct {
	AH []float64 `json:"ah"`
	OU []float64 `json:"ou"`
}

// Snapshot is the authoritative current reading per market for one bookmaker,
// consumed by both rendering and change detection. A nil market pointer means
// the bookmaker has never priced that market.
type Snapshot struct {
	X12   *X12Point      `json:"x12,omitempty"`
	AH    *HandicapPoint `json:"ah,omitempty"`
	OU    *TotalsPoint   `json:"ou,omitempty"`
	Lines LinePair       `json:"lines"`
}

// Current resolves the bookmaker's current snapshot. Each market prefers the
// entry matching its latest_t hint and falls back to the chronologically last
// entry; the AH/OU fallback also triggers when the hinted entry has no price
// vectors to pair lines against.
func (b BookmakerOdds) Current() Snapshot {
	var snap Snapshot

	if p, ok := resolveCurrent(b.X12, b.LatestT.X12, func(p X12Point) bool { return true }); ok {
		snap.X12 = &p
	}
	if p, ok := resolveCurrent(b.AH, b.LatestT.AH, func(p HandicapPoint) bool {
		return len(p.Home) > 0 || len(p.Away) > 0
	}); ok {
		snap.AH = &p
	}
	if p, ok := resolveCurrent(b.OU, b.LatestT.OU, func(p TotalsPoint) bool {
		return len(p.Over) > 0 || len(p.Under) > 0
	}); ok {
		snap.OU = &p
	}

	var ahT, ouT int64 = -1, -1
	if snap.AH != nil {
		ahT = snap.AH.T
	}
	if snap.OU != nil {
		ouT = snap.OU.T
	}
	snap.Lines = b.resolveLines(ahT, ouT)
	return snap
}

func resolveCurrent[P Timestamped](series Series[P], hint int64, usable func(P) bool) (P, bool) {
	if hint != 0 {
		if p, ok := series.At(hint); ok && usable(p) {
			return p, true
		}
	}
	// The hint missed or pointed at an entry with nothing to render; take the
	// latest usable entry instead. Only a series with no usable entry at all
	// degrades to the plain last one.
	for i := len(series) - 1; i >= 0; i-- {
		if usable(series[i]) {
			return series[i], true
		}
	}
	return series.Last()
}

// resolveLines finds, per market, the latest line entry at or before that
// market's snapshot timestamp carrying a non-empty line array. A negative
// timestamp means the market is not priced; when neither market needs lines
// the plain latest entry is used.
func (b BookmakerOdds) resolveLines(ahT, ouT int64) LinePair {
	var pair LinePair
	if ahT >= 0 {
		if entry, ok := lastLineSetBefore(b.Lines, ahT, func(s LineSet) bool { return len(s.AH) > 0 }); ok {
			pair.AH = entry.AH
		}
	}
	if ouT >= 0 {
		if entry, ok := lastLineSetBefore(b.Lines, ouT, func(s LineSet) bool { return len(s.OU) > 0 }); ok {
			pair.OU = entry.OU
		}
	}
	if ahT < 0 && ouT < 0 {
		if entry, ok := b.Lines.Last(); ok {
			pair.AH = entry.AH
			pair.OU = entry.OU
		}
	}
	return pair
}

// lastLineSetBefore scans for the latest entry with timestamp <= t accepted by
// the predicate. Entries after t never win, even when nothing else matches.
func lastLineSetBefore(lines Series[LineSet], t int64, accept func(LineSet) bool) (LineSet, bool) {
	var best LineSet
	found := false
	for _, entry := range lines {
		if entry.T > t || !accept(entry) {
			continue
		}
		if !found || entry.T >= best.T {
			best = entry
			found = true
		}
	}
	return best, found
}

// LineIndex resolves a line value to its position in a line array. Position
// is re-resolved on every lookup because array order shifts between updates.
func LineIndex(lines []float64, line float64) (int, bool) {
	for i, v := range lines {
		if v == line {
			return i, true
		}
	}
	return 0, false
}

func priceAt(prices []int, idx int) (int, bool) {
	if idx < 0 || idx >= len(prices) {
		return 0, false
	}
	if !ValidPrice(prices[idx]) {
		return 0, false
	}
	return prices[idx], true
}
