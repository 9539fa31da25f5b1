package odds

import "testing"

const testWindow = int64(300)

func TestClassifyMovement_UpDown(t *testing.T) {
	t.Parallel()

	book := BookmakerOdds{
		Bookie: "Pinnacle",
		X12: Series[X12Point]{
			x12(100, 250, 330, 380),
			x12(200, 260, 330, 370),
		},
	}

	if got := ClassifyMovement(book, Market1X2, OutcomeHome, 0, 210, testWindow); got != MovementUp {
		t.Fatalf("home movement = %q, want up", got)
	}
	if got := ClassifyMovement(book, Market1X2, OutcomeAway, 0, 210, testWindow); got != MovementDown {
		t.Fatalf("away movement = %q, want down", got)
	}
	if got := ClassifyMovement(book, Market1X2, OutcomeDraw, 0, 210, testWindow); got != MovementNone {
		t.Fatalf("unchanged draw movement = %q, want none", got)
	}
}

func TestClassifyMovement_StaleSeriesReportsNothing(t *testing.T) {
	t.Parallel()

	book := BookmakerOdds{
		Bookie: "Pinnacle",
		X12: Series[X12Point]{
			x12(100, 250, 330, 380),
			x12(200, 260, 330, 370),
		},
	}

	now := int64(200 + testWindow + 1)
	if got := ClassifyMovement(book, Market1X2, OutcomeHome, 0, now, testWindow); got != MovementNone {
		t.Fatalf("stale movement = %q, want none", got)
	}
}

func TestClassifyMovement_SinglePointReportsNothing(t *testing.T) {
	t.Parallel()

	book := BookmakerOdds{
		Bookie: "Pinnacle",
		X12:    Series[X12Point]{x12(100, 250, 330, 380)},
	}

	if got := ClassifyMovement(book, Market1X2, OutcomeHome, 0, 110, testWindow); got != MovementNone {
		t.Fatalf("single-point movement = %q, want none", got)
	}
}

func TestClassifyMovement_AddedAndRemoved(t *testing.T) {
	t.Parallel()

	added := BookmakerOdds{
		Bookie: "Pinnacle",
		X12: Series[X12Point]{
			x12(100, 0, 330, 380),
			x12(200, 150, 330, 380),
		},
	}
	if got := ClassifyMovement(added, Market1X2, OutcomeHome, 0, 210, testWindow); got != MovementAdded {
		t.Fatalf("movement = %q, want added", got)
	}

	removed := BookmakerOdds{
		Bookie: "Pinnacle",
		X12: Series[X12Point]{
			x12(100, 150, 330, 380),
			x12(200, 0, 330, 380),
		},
	}
	if got := ClassifyMovement(removed, Market1X2, OutcomeHome, 0, 210, testWindow); got != MovementRemoved {
		t.Fatalf("movement = %q, want removed", got)
	}
}

func TestClassifyMovement_WalksPastEqualPoints(t *testing.T) {
	t.Parallel()

	book := BookmakerOdds{
		Bookie: "Pinnacle",
		X12: Series[X12Point]{
			x12(100, 240, 330, 380),
			x12(150, 250, 330, 380),
			x12(200, 250, 330, 380),
		},
	}

	// The immediately prior point is equal; the differing one further back
	// still classifies the trend.
	if got := ClassifyMovement(book, Market1X2, OutcomeHome, 0, 210, testWindow); got != MovementUp {
		t.Fatalf("movement = %q, want up", got)
	}
}

func TestClassifyMovement_LineResolvedPerPoint(t *testing.T) {
	t.Parallel()

	book := BookmakerOdds{
		Bookie: "Pinnacle",
		AH: Series[HandicapPoint]{
			{T: 100, Home: []int{180, 190, 200}, Away: []int{220, 210, 200}},
			{T: 200, Home: []int{195, 205, 210}, Away: []int{205, 195, 190}},
		},
		Lines: Series[LineSet]{
			{T: 100, AH: []float64{0, 0.5, 1}},
			{T: 200, AH: []float64{0.5, 1, 1.5}},
		},
	}

	// Line 0.5: index 1 at t=100 (190), index 0 at t=200 (195).
	if got := ClassifyMovement(book, MarketAH, OutcomeHome, 0.5, 210, testWindow); got != MovementUp {
		t.Fatalf("line movement = %q, want up", got)
	}
	// Line 0 vanished at t=200: removed.
	if got := ClassifyMovement(book, MarketAH, OutcomeHome, 0, 210, testWindow); got != MovementRemoved {
		t.Fatalf("dropped line movement = %q, want removed", got)
	}
	// Line 1.5 appeared at t=200: added.
	if got := ClassifyMovement(book, MarketAH, OutcomeHome, 1.5, 210, testWindow); got != MovementAdded {
		t.Fatalf("new line movement = %q, want added", got)
	}
}

func TestClassifyMovement_UnknownMarketOrOutcome(t *testing.T) {
	t.Parallel()

	book := BookmakerOdds{
		Bookie: "Pinnacle",
		X12:    Series[X12Point]{x12(100, 250, 330, 380), x12(200, 260, 330, 370)},
	}

	if got := ClassifyMovement(book, "Correct Score", OutcomeHome, 0, 210, testWindow); got != MovementNone {
		t.Fatalf("unknown market movement = %q, want none", got)
	}
	if got := ClassifyMovement(book, Market1X2, "Either", 0, 210, testWindow); got != MovementNone {
		t.Fatalf("unknown outcome movement = %q, want none", got)
	}
}
