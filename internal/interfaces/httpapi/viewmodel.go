package httpapi

import (
	"time"

	"github.com/riskibarqy/odds-monitor/internal/domain/fixture"
	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/usecase"
)

type fixtureDTO struct {
	ID         int64         `json:"id"`
	LeagueID   int64         `json:"leagueId,omitempty"`
	League     string        `json:"league,omitempty"`
	HomeTeam   string        `json:"homeTeam,omitempty"`
	AwayTeam   string        `json:"awayTeam,omitempty"`
	KickoffAt  string        `json:"kickoffAt,omitempty"`
	Status     string        `json:"status,omitempty"`
	Bookmakers int           `json:"bookmakers"`
	LastUpdate int64         `json:"lastUpdate,omitempty"`
	LatencyMs  int64         `json:"latencyMs,omitempty"`
	Top        *topOddsDTO   `json:"top,omitempty"`
}

type topOddsDTO struct {
	Home *bestPriceDTO `json:"home,omitempty"`
	Draw *bestPriceDTO `json:"draw,omitempty"`
	Away *bestPriceDTO `json:"away,omitempty"`
}

type bestPriceDTO struct {
	Bookie string  `json:"bookie"`
	Price  float64 `json:"price"`
}

type x12DTO struct {
	T    int64    `json:"t"`
	Home *float64 `json:"home,omitempty"`
	Draw *float64 `json:"draw,omitempty"`
	Away *float64 `json:"away,omitempty"`
}

type handicapLineDTO struct {
	Line float64  `json:"line"`
	Home *float64 `json:"home,omitempty"`
	Away *float64 `json:"away,omitempty"`
}

type totalsLineDTO struct {
	Line  float64  `json:"line"`
	Over  *float64 `json:"over,omitempty"`
	Under *float64 `json:"under,omitempty"`
}

type bookOddsDTO struct {
	Bookie   string            `json:"bookie"`
	Decimals int               `json:"decimals"`
	X12      *x12DTO           `json:"x12,omitempty"`
	AH       []handicapLineDTO `json:"ah,omitempty"`
	OU       []totalsLineDTO   `json:"ou,omitempty"`
}

type fixtureOddsDTO struct {
	Fixture fixtureDTO    `json:"fixture"`
	Books   []bookOddsDTO `json:"books"`
}

func fixtureToDTO(entry usecase.FixtureWithOdds) fixtureDTO {
	dto := fixtureDTO{
		ID:         entry.Fixture.ID,
		LeagueID:   entry.Fixture.LeagueID,
		League:     entry.Fixture.League,
		HomeTeam:   entry.Fixture.HomeTeam,
		AwayTeam:   entry.Fixture.AwayTeam,
		Status:     fixture.NormalizeStatus(entry.Fixture.Status),
		Bookmakers: len(entry.Bookmakers),
		LastUpdate: entry.LastUpdate,
		LatencyMs:  entry.Latency,
	}
	if !entry.Fixture.KickoffAt.IsZero() {
		dto.KickoffAt = entry.Fixture.KickoffAt.UTC().Format(time.RFC3339)
	}
	if top := topToDTO(entry.Top); top != nil {
		dto.Top = top
	}
	return dto
}

func topToDTO(top odds.TopOdds) *topOddsDTO {
	if top.Home == nil && top.Draw == nil && top.Away == nil {
		return nil
	}
	dto := &topOddsDTO{}
	if top.Home != nil {
		dto.Home = &bestPriceDTO{Bookie: top.Home.Bookie, Price: top.Home.Price}
	}
	if top.Draw != nil {
		dto.Draw = &bestPriceDTO{Bookie: top.Draw.Bookie, Price: top.Draw.Price}
	}
	if top.Away != nil {
		dto.Away = &bestPriceDTO{Bookie: top.Away.Bookie, Price: top.Away.Price}
	}
	return dto
}

// dataToBookDTOs renders the merged odds state: Prediction first, the rest
// alphabetical, each bookmaker's current snapshot decoded to decimal prices.
func dataToBookDTOs(data odds.Data) []bookOddsDTO {
	books := make([]bookOddsDTO, 0, len(data))
	for _, name := range data.SortedBookies() {
		books = append(books, bookToDTO(data[name]))
	}
	return books
}

func bookToDTO(book odds.BookmakerOdds) bookOddsDTO {
	dto := bookOddsDTO{Bookie: book.Bookie, Decimals: book.Decimals}
	snap := book.Current()

	if snap.X12 != nil {
		x12 := x12DTO{T: snap.X12.T}
		x12.Home = decimalOrNil(snap.X12.Prices[0], book.Decimals)
		x12.Draw = decimalOrNil(snap.X12.Prices[1], book.Decimals)
		x12.Away = decimalOrNil(snap.X12.Prices[2], book.Decimals)
		dto.X12 = &x12
	}

	if snap.AH != nil {
		for i, line := range snap.Lines.AH {
			row := handicapLineDTO{Line: line}
			if i < len(snap.AH.Home) {
				row.Home = decimalOrNil(snap.AH.Home[i], book.Decimals)
			}
			if i < len(snap.AH.Away) {
				row.Away = decimalOrNil(snap.AH.Away[i], book.Decimals)
			}
			if row.Home != nil || row.Away != nil {
				dto.AH = append(dto.AH, row)
			}
		}
	}

	if snap.OU != nil {
		for i, line := range snap.Lines.OU {
			row := totalsLineDTO{Line: line}
			if i < len(snap.OU.Over) {
				row.Over = decimalOrNil(snap.OU.Over[i], book.Decimals)
			}
			if i < len(snap.OU.Under) {
				row.Under = decimalOrNil(snap.OU.Under[i], book.Decimals)
			}
			if row.Over != nil || row.Under != nil {
				dto.OU = append(dto.OU, row)
			}
		}
	}

	return dto
}

func decimalOrNil(price, decimals int) *float64 {
	if !odds.ValidPrice(price) {
		return nil
	}
	value := odds.DecimalPrice(price, decimals)
	return &value
}
