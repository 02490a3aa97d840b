package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/richard-senior/footstats/pkg/service"
	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/util/elo"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

// BookmakerName labels the model's own prices
const BookmakerName = "Footstats Poisson"

// TeamRef names one side of a fixture
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FixtureRef is the short form of a fixture used on cards
type FixtureRef struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
	LeagueID string    `json:"league"`
	SeasonID string    `json:"season"`
	Round    string    `json:"round,omitempty"`
	Home     TeamRef   `json:"home"`
	Away     TeamRef   `json:"away"`
	Goals    *Score    `json:"goals,omitempty"`
}

// Score is a known final score
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

func fixtureRef(f *store.Fixture, home, away *store.Team) FixtureRef {
	ref := FixtureRef{
		ID:       f.ID,
		Date:     f.UTCTime,
		Status:   f.StatusShort,
		LeagueID: f.LeagueID,
		SeasonID: f.SeasonID,
		Round:    f.Round,
		Home:     TeamRef{ID: home.ID, Name: home.Name},
		Away:     TeamRef{ID: away.ID, Name: away.Name},
	}
	if f.IsFinished() {
		ref.Goals = &Score{Home: f.HomeGoals, Away: f.AwayGoals}
	}
	return ref
}

// BetValue is one priced selection, odds fixed to two decimal places
type BetValue struct {
	Value string `json:"value"`
	Odd   string `json:"odd"`
}

// Bet is one market
type Bet struct {
	ID     int        `json:"id"`
	Name   string     `json:"name"`
	Values []BetValue `json:"values"`
}

// Bookmaker groups the markets of one pricing source
type Bookmaker struct {
	Name string `json:"name"`
	Bets []Bet  `json:"bets"`
}

// OddsResponse is the bookmaker-style odds card
type OddsResponse struct {
	Fixture         FixtureRef      `json:"fixture"`
	ExpectedGoals   Expected        `json:"expectedGoals"`
	MostLikelyScore podds.Scoreline `json:"mostLikelyScore"`
	Bookmakers      []Bookmaker     `json:"bookmakers"`
}

// Expected is the pair of expected goals, to two decimal places
type Expected struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

func twoDP(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func values(outcomes []podds.PricedOutcome) []BetValue {
	out := make([]BetValue, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, BetValue{Value: o.Value, Odd: twoDP(o.Odds)})
	}
	return out
}

// NewOddsResponse formats an odds card for the wire
func NewOddsResponse(card *service.OddsCard) OddsResponse {
	odds := card.Odds

	overUnder := make([]BetValue, 0, len(odds.OverUnder))
	for _, line := range odds.OverUnder {
		overUnder = append(overUnder, BetValue{Value: line.Value, Odd: twoDP(line.Odds)})
	}

	return OddsResponse{
		Fixture:         fixtureRef(card.Fixture, card.HomeTeam, card.AwayTeam),
		ExpectedGoals:   Expected{Home: twoDP(odds.HomeExpectedGoals), Away: twoDP(odds.AwayExpectedGoals)},
		MostLikelyScore: odds.MostLikelyScore,
		Bookmakers: []Bookmaker{{
			Name: BookmakerName,
			Bets: []Bet{
				{ID: 1, Name: podds.BetMatchWinner, Values: values(odds.MatchWinner)},
				{ID: 5, Name: podds.BetGoalsOU, Values: overUnder},
				{ID: 8, Name: podds.BetBTTS, Values: values(odds.BothTeamsScore)},
			},
		}},
	}
}

// PredictionResponse is the prediction card
type PredictionResponse struct {
	Fixture     FixtureRef           `json:"fixture"`
	Predictions *elo.MatchPrediction `json:"predictions"`
}

// NewPredictionResponse formats a prediction card for the wire
func NewPredictionResponse(card *service.PredictionCard) PredictionResponse {
	return PredictionResponse{
		Fixture:     fixtureRef(card.Fixture, card.HomeTeam, card.AwayTeam),
		Predictions: card.Prediction,
	}
}
