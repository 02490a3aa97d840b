// Package elo maintains per-season team strength ratings and turns a pair
// of ratings into a match prediction.
//
// Every function on Engine is pure. Ordering and exactly-once application of
// match updates is the responsibility of whoever persists the ratings
package elo

import (
	"math"
	"time"
)

// Rating is the persisted strength of one team within one season
type Rating struct {
	TeamID        string    `json:"teamId"`
	SeasonID      string    `json:"seasonId"`
	Rating        float64   `json:"rating"`
	MatchesPlayed int       `json:"matchesPlayed"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// MatchResult is the final score of a concluded match
type MatchResult struct {
	HomeGoals int `json:"homeGoals"`
	AwayGoals int `json:"awayGoals"`
}

// Outcome is the ternary result of a match from the home side's perspective
type Outcome string

const (
	HomeWin Outcome = "home"
	Draw    Outcome = "draw"
	AwayWin Outcome = "away"
)

// Outcome reduces the score to home win, draw or away win
func (r MatchResult) Outcome() Outcome {
	switch {
	case r.HomeGoals > r.AwayGoals:
		return HomeWin
	case r.HomeGoals < r.AwayGoals:
		return AwayWin
	default:
		return Draw
	}
}

// ActualScores maps a result onto ELO actual scores. Margin of victory is ignored
func ActualScores(result MatchResult) (home, away float64) {
	switch result.Outcome() {
	case HomeWin:
		return 1.0, 0.0
	case AwayWin:
		return 0.0, 1.0
	default:
		return 0.5, 0.5
	}
}

// Engine applies the rating model described by its Config
type Engine struct {
	cfg Config
}

// New returns an engine for the given configuration
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// NewDefault returns an engine using DefaultConfig
func NewDefault() *Engine {
	return New(DefaultConfig())
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

/////////////////////////////////////////////////////////////////////////
////// Rating updates
/////////////////////////////////////////////////////////////////////////

// ExpectedScore is the logistic expectation of a scoring against b.
// When isHome is set a is credited with the home advantage bonus
func (e *Engine) ExpectedScore(a, b float64, isHome bool) float64 {
	if isHome {
		a += e.cfg.HomeAdvantage
	}
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// UpdateRating moves current towards the observed result and clamps it
func (e *Engine) UpdateRating(current, expected, actual, k float64) float64 {
	return e.clampRating(current + k*(actual-expected))
}

// KFactor returns the volatility for a team that has played matchesPlayed
// matches before the one being processed
func (e *Engine) KFactor(matchesPlayed int) int {
	switch {
	case matchesPlayed < e.cfg.NewTeamMatches:
		return e.cfg.NewTeamKFactor
	case matchesPlayed < e.cfg.DevelopingMatches:
		return e.cfg.DevelopingKFactor
	default:
		return e.cfg.EstablishedKFactor
	}
}

// expectations returns the home and away expected scores for one fixture.
// The home bonus is applied to the home rating from both perspectives
func (e *Engine) expectations(home, away float64) (float64, float64) {
	homeExpected := e.ExpectedScore(home, away, true)
	awayExpected := e.ExpectedScore(away, home+e.cfg.HomeAdvantage, false)
	return homeExpected, awayExpected
}

// UpdateMatchRatings returns both ratings after the match using the same K
// for each side. kFactor <= 0 selects DefaultKFactor. The update is exactly
// zero-sum apart from clamping
func (e *Engine) UpdateMatchRatings(home, away float64, result MatchResult, kFactor float64) (float64, float64) {
	if kFactor <= 0 {
		kFactor = e.cfg.DefaultKFactor
	}
	homeExpected, awayExpected := e.expectations(home, away)
	homeActual, awayActual := ActualScores(result)

	return e.UpdateRating(home, homeExpected, homeActual, kFactor),
		e.UpdateRating(away, awayExpected, awayActual, kFactor)
}

// RatingChange records the effect of one match on both participants
type RatingChange struct {
	HomeBefore float64 `json:"homeBefore"`
	HomeAfter  float64 `json:"homeAfter"`
	AwayBefore float64 `json:"awayBefore"`
	AwayAfter  float64 `json:"awayAfter"`
	HomeK      int     `json:"homeK"`
	AwayK      int     `json:"awayK"`
}

// ApplyMatch mutates both ratings for one concluded match. Each side's K is
// taken from its own match count before it is incremented. It is zero-sum
// only when both K values match and neither rating is clamped
func (e *Engine) ApplyMatch(home, away *Rating, result MatchResult, at time.Time) RatingChange {
	change := RatingChange{
		HomeBefore: home.Rating,
		AwayBefore: away.Rating,
		HomeK:      e.KFactor(home.MatchesPlayed),
		AwayK:      e.KFactor(away.MatchesPlayed),
	}

	homeExpected, awayExpected := e.expectations(home.Rating, away.Rating)
	homeActual, awayActual := ActualScores(result)

	home.Rating = e.UpdateRating(home.Rating, homeExpected, homeActual, float64(change.HomeK))
	away.Rating = e.UpdateRating(away.Rating, awayExpected, awayActual, float64(change.AwayK))
	home.MatchesPlayed++
	away.MatchesPlayed++
	home.LastUpdated = at
	away.LastUpdated = at

	change.HomeAfter = home.Rating
	change.AwayAfter = away.Rating
	return change
}

// GetOrInitializeRating returns existing untouched, or a fresh rating at
// InitialRating for the team when existing is nil
func (e *Engine) GetOrInitializeRating(existing *Rating, teamID, seasonID string) *Rating {
	if existing != nil {
		return existing
	}
	return &Rating{
		TeamID:   teamID,
		SeasonID: seasonID,
		Rating:   e.cfg.InitialRating,
	}
}

func (e *Engine) clampRating(r float64) float64 {
	return math.Min(math.Max(r, e.cfg.MinRating), e.cfg.MaxRating)
}
