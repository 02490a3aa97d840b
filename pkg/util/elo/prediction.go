package elo

import (
	"fmt"
	"math"
)

// WinProbabilities is the 3-way result distribution implied by two ratings
type WinProbabilities struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// PredictedGoals is the expected score line implied by two ratings
type PredictedGoals struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// Total returns the predicted number of goals in the match
func (g PredictedGoals) Total() float64 {
	return g.Home + g.Away
}

// TeamRef identifies one side of a fixture for presentation
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PredictionInput carries everything GeneratePrediction needs
type PredictionInput struct {
	Home       TeamRef
	Away       TeamRef
	HomeRating float64
	AwayRating float64
	// LeagueAverage is total goals per match. Zero uses the configured value
	LeagueAverage float64
}

// PredictedWinner names the favoured side. ID and Name are empty for a draw
type PredictedWinner struct {
	Outcome Outcome `json:"outcome"`
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name,omitempty"`
	Comment string  `json:"comment"`
}

// Percent holds the probabilities rendered as whole percentages, e.g. "45%"
type Percent struct {
	Home string `json:"home"`
	Draw string `json:"draw"`
	Away string `json:"away"`
}

// MatchPrediction is the decision output for a fixture
type MatchPrediction struct {
	Winner        PredictedWinner  `json:"winner"`
	WinOrDraw     bool             `json:"win_or_draw"`
	UnderOver     string           `json:"under_over"`
	Goals         PredictedGoals   `json:"goals"`
	Advice        string           `json:"advice"`
	Percent       Percent          `json:"percent"`
	Probabilities WinProbabilities `json:"probabilities"`
	HomeRating    float64          `json:"homeRating"`
	AwayRating    float64          `json:"awayRating"`
}

// WinProbabilities converts two ratings into home, draw and away chances.
// The draw share narrows as the rating gap widens
func (e *Engine) WinProbabilities(home, away float64) WinProbabilities {
	homeExpected := e.ExpectedScore(home, away, true)
	ratingDiff := home - away

	draw := e.cfg.DrawBase - math.Abs(ratingDiff)/e.cfg.DrawScale
	draw = math.Min(math.Max(draw, e.cfg.DrawMin), e.cfg.DrawMax)

	p := WinProbabilities{
		Home: homeExpected * (1 - draw),
		Draw: draw,
		Away: (1 - homeExpected) * (1 - draw),
	}
	total := p.Home + p.Draw + p.Away
	p.Home /= total
	p.Draw /= total
	p.Away /= total
	return p
}

// PredictGoals splits leagueAverage between the sides and shifts goals
// towards the stronger one. leagueAverage <= 0 uses the configured value
func (e *Engine) PredictGoals(home, away, leagueAverage float64) PredictedGoals {
	if leagueAverage <= 0 {
		leagueAverage = e.cfg.LeagueAverageGoals
	}
	base := leagueAverage / 2
	adjustment := (home - away) / e.cfg.GoalsPerRatingPoints * e.cfg.GoalsAdjustment

	return PredictedGoals{
		Home: e.clampGoals(base + adjustment),
		Away: e.clampGoals(base - adjustment),
	}
}

// GeneratePrediction composes win probabilities and predicted goals into a
// prediction card. The winner is the strictly most likely outcome; any tie
// at the top is reported as a draw
func (e *Engine) GeneratePrediction(in PredictionInput) *MatchPrediction {
	probs := e.WinProbabilities(in.HomeRating, in.AwayRating)
	goals := e.PredictGoals(in.HomeRating, in.AwayRating, in.LeagueAverage)

	p := &MatchPrediction{
		Probabilities: probs,
		Goals:         goals,
		WinOrDraw:     probs.Home+probs.Draw > e.cfg.WinOrDrawThreshold,
		HomeRating:    in.HomeRating,
		AwayRating:    in.AwayRating,
		Percent: Percent{
			Home: percent(probs.Home),
			Draw: percent(probs.Draw),
			Away: percent(probs.Away),
		},
	}

	line := fmt.Sprintf("%.1f", e.cfg.UnderOverLine)
	if goals.Total() > e.cfg.UnderOverLine {
		p.UnderOver = "+" + line
	} else {
		p.UnderOver = "-" + line
	}

	switch {
	case probs.Home > probs.Away && probs.Home > probs.Draw:
		p.Winner = PredictedWinner{Outcome: HomeWin, ID: in.Home.ID, Name: in.Home.Name, Comment: "Win or draw"}
		p.Advice = fmt.Sprintf("Double chance : %s or draw", displayName(in.Home, "home"))
		if !p.WinOrDraw {
			p.Advice = fmt.Sprintf("Winner : %s", displayName(in.Home, "home"))
		}
	case probs.Away > probs.Home && probs.Away > probs.Draw:
		p.Winner = PredictedWinner{Outcome: AwayWin, ID: in.Away.ID, Name: in.Away.Name, Comment: "Win or draw"}
		p.Advice = fmt.Sprintf("Double chance : %s or draw", displayName(in.Away, "away"))
	default:
		p.Winner = PredictedWinner{Outcome: Draw, Comment: "Draw likely"}
		p.Advice = "Combo Double chance : draw and " + p.UnderOver + " goals"
	}
	return p
}

func (e *Engine) clampGoals(g float64) float64 {
	return math.Min(math.Max(g, e.cfg.MinGoals), e.cfg.MaxGoals)
}

func percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}

func displayName(t TeamRef, fallback string) string {
	if t.Name != "" {
		return t.Name
	}
	return fallback
}
