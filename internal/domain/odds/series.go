package odds

import (
	"bytes"
	"sort"

	sonic "github.com/bytedance/sonic"
)

// Timestamped is any per-bookmaker reading carrying its own epoch seconds.
type Timestamped interface {
	Timestamp() int64
}

// Series is a time-ordered sequence of timestamped readings. On the wire a
// series may arrive either as a single bare object (no history yet) or as a
// full array; both decode to the same slice shape, so no caller ever needs to
// branch on the representation again.
type Series[P Timestamped] []P

var jsonNull = []byte("null")

func (s *Series[P]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var points []P
		if err := sonic.Unmarshal(data, &points); err != nil {
			return err
		}
		*s = points
		return nil
	}
	var point P
	if err := sonic.Unmarshal(data, &point); err != nil {
		return err
	}
	*s = Series[P]{point}
	return nil
}

// Last returns the chronologically last point. Inputs that went through Merge
// are sorted, but raw decoded series may not be, so scan rather than index.
func (s Series[P]) Last() (P, bool) {
	var last P
	if len(s) == 0 {
		return last, false
	}
	last = s[0]
	for _, p := range s[1:] {
		if p.Timestamp() >= last.Timestamp() {
			last = p
		}
	}
	return last, true
}

// At returns the point recorded exactly at t.
func (s Series[P]) At(t int64) (P, bool) {
	for _, p := range s {
		if p.Timestamp() == t {
			return p, true
		}
	}
	var zero P
	return zero, false
}

// Merge combines two series into one deduplicated sequence sorted ascending by
// timestamp. On a duplicate timestamp the incoming value wins; within a single
// input the later occurrence wins. Neither input is mutated.
func Merge[P Timestamped](existing, incoming Series[P]) Series[P] {
	byTime := make(map[int64]P, len(existing)+len(incoming))
	for _, p := range existing {
		byTime[p.Timestamp()] = p
	}
	for _, p := range incoming {
		byTime[p.Timestamp()] = p
	}

	merged := make(Series[P], 0, len(byTime))
	for _, p := range byTime {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp() < merged[j].Timestamp()
	})
	return merged
}

// MergeBookmaker folds an incoming record into the accumulated one, series by
// series. Scalar fields follow last-write-wins with zero meaning "not sent".
func MergeBookmaker(existing, incoming BookmakerOdds) BookmakerOdds {
	out := existing
	if incoming.Bookie != "" {
		out.Bookie = incoming.Bookie
	}
	if incoming.BookieID != 0 {
		out.BookieID = incoming.BookieID
	}
	if incoming.Decimals != 0 {
		out.Decimals = incoming.Decimals
	}
	out.X12 = Merge(existing.X12, incoming.X12)
	out.AH = Merge(existing.AH, incoming.AH)
	out.OU = Merge(existing.OU, incoming.OU)
	out.Lines = Merge(existing.Lines, incoming.Lines)
	out.IDs = Merge(existing.IDs, incoming.IDs)
	out.MaxStakes = Merge(existing.MaxStakes, incoming.MaxStakes)
	if incoming.LatestT.X12 != 0 {
		out.LatestT.X12 = incoming.LatestT.X12
	}
	if incoming.LatestT.AH != 0 {
		out.LatestT.AH = incoming.LatestT.AH
	}
	if incoming.LatestT.OU != 0 {
		out.LatestT.OU = incoming.LatestT.OU
	}
	return out
}

// MergeData folds a batch of incoming bookmaker records into accumulated
// fixture state, returning a fresh map. Bookmakers absent from the batch are
// carried over untouched; bookmakers absent from the accumulated state are
// added verbatim.
func MergeData(existing Data, incoming []BookmakerOdds) Data {
	out := make(Data, len(existing)+len(incoming))
	for name, book := range existing {
		out[name] = book
	}
	for _, in := range incoming {
		if in.Bookie == "" {
			continue
		}
		if cur, ok := out[in.Bookie]; ok {
			out[in.Bookie] = MergeBookmaker(cur, in)
		} else {
			out[in.Bookie] = in
		}
	}
	return out
}
