package odds

import (
	"testing"

	sonic "github.com/bytedance/sonic"
)

func x12(t int64, home, draw, away int) X12Point {
	return X12Point{T: t, Prices: [3]int{home, draw, away}}
}

func TestMerge_DeduplicatesKeepingIncoming(t *testing.T) {
	t.Parallel()

	existing := Series[X12Point]{x12(10, 200, 330, 380), x12(20, 210, 330, 370)}
	incoming := Series[X12Point]{x12(20, 250, 330, 340), x12(30, 260, 320, 330)}

	merged := Merge(existing, incoming)

	if len(merged) != 3 {
		t.Fatalf("merged length = %d, want 3", len(merged))
	}
	at20, ok := merged.At(20)
	if !ok {
		t.Fatalf("merged series missing t=20")
	}
	if at20.Prices[0] != 250 {
		t.Fatalf("duplicate timestamp kept existing value %d, want incoming 250", at20.Prices[0])
	}
}

func TestMerge_SortsUnorderedInputs(t *testing.T) {
	t.Parallel()

	existing := Series[X12Point]{x12(30, 1, 1, 1), x12(10, 2, 2, 2)}
	incoming := Series[X12Point]{x12(20, 3, 3, 3)}

	merged := Merge(existing, incoming)

	for i := 1; i < len(merged); i++ {
		if merged[i-1].T >= merged[i].T {
			t.Fatalf("merged not strictly ascending at index %d: %d >= %d", i, merged[i-1].T, merged[i].T)
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	a := Series[X12Point]{x12(10, 200, 330, 380), x12(30, 220, 320, 360)}
	b := Series[X12Point]{x12(20, 210, 330, 370)}

	once := Merge(a, b)
	twice := Merge(once, nil)

	if len(once) != len(twice) {
		t.Fatalf("re-merge changed length: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("re-merge changed point %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := Merge[X12Point](nil, nil); len(got) != 0 {
		t.Fatalf("merge of two empty series returned %d points", len(got))
	}

	only := Series[LineSet]{{T: 5, AH: []float64{0.5}}}
	if got := Merge(nil, only); len(got) != 1 || got[0].T != 5 {
		t.Fatalf("merge with one empty side = %+v, want the non-empty side", got)
	}
}

func TestSeries_UnmarshalJSON_AcceptsSingleAndArray(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want int
	}{
		{name: "single object", in: `{"t":10,"x12":[200,330,380]}`, want: 1},
		{name: "array", in: `[{"t":10,"x12":[200,330,380]},{"t":20,"x12":[210,330,370]}]`, want: 2},
		{name: "null", in: `null`, want: 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var s Series[X12Point]
			if err := sonic.Unmarshal([]byte(tc.in), &s); err != nil {
				t.Fatalf("unmarshal %q: %v", tc.in, err)
			}
			if len(s) != tc.want {
				t.Fatalf("decoded %d points, want %d", len(s), tc.want)
			}
		})
	}
}

func TestMergeData_KeepsAbsentBookmakersAndAddsNewOnes(t *testing.T) {
	t.Parallel()

	existing := Data{
		"Pinnacle": {Bookie: "Pinnacle", Decimals: 3, X12: Series[X12Point]{x12(10, 200, 330, 380)}},
		"Bet365":   {Bookie: "Bet365", Decimals: 2, X12: Series[X12Point]{x12(10, 21, 33, 38)}},
	}
	incoming := []BookmakerOdds{
		{Bookie: "Pinnacle", Decimals: 3, X12: Series[X12Point]{x12(20, 210, 330, 370)}},
		{Bookie: "Prediction", Decimals: 3, X12: Series[X12Point]{x12(20, 205, 335, 375)}},
	}

	merged := MergeData(existing, incoming)

	if len(merged) != 3 {
		t.Fatalf("merged has %d bookmakers, want 3", len(merged))
	}
	if got := len(merged["Pinnacle"].X12); got != 2 {
		t.Fatalf("Pinnacle series length = %d, want 2", got)
	}
	if got := len(merged["Bet365"].X12); got != 1 {
		t.Fatalf("untouched bookmaker series length = %d, want 1", got)
	}
	if _, ok := merged["Prediction"]; !ok {
		t.Fatalf("new bookmaker not added")
	}
	// Accumulated input stays intact; merge never mutates in place.
	if got := len(existing["Pinnacle"].X12); got != 1 {
		t.Fatalf("existing data mutated, series length = %d", got)
	}
}

func TestData_SortedBookies_PredictionFirst(t *testing.T) {
	t.Parallel()

	d := Data{
		"Pinnacle":   {},
		"Bet365":     {},
		"Prediction": {},
		"Unibet":     {},
	}

	got := d.SortedBookies()
	want := []string{"Prediction", "Bet365", "Pinnacle", "Unibet"}
	if len(got) != len(want) {
		t.Fatalf("got %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestData_Top_ExcludesPrediction(t *testing.T) {
	t.Parallel()

	d := Data{
		"Prediction": {Bookie: "Prediction", Decimals: 3, X12: Series[X12Point]{x12(10, 9000, 9000, 9000)}},
		"Pinnacle":   {Bookie: "Pinnacle", Decimals: 3, X12: Series[X12Point]{x12(10, 2500, 3300, 2800)}},
		"Bet365":     {Bookie: "Bet365", Decimals: 2, X12: Series[X12Point]{x12(10, 240, 340, 270)}},
	}

	top := d.Top()
	if top.Home == nil || top.Home.Bookie != "Pinnacle" || top.Home.Price != 2.5 {
		t.Fatalf("top home = %+v, want Pinnacle 2.5", top.Home)
	}
	if top.Draw == nil || top.Draw.Bookie != "Bet365" || top.Draw.Price != 3.4 {
		t.Fatalf("top draw = %+v, want Bet365 3.4", top.Draw)
	}
}
