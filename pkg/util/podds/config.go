package podds

import "fmt"

// === ENGINE CONSTANTS ===

const (
	// LowSampleThreshold is the match count below which a side's strength is
	// not modelled and expected goals regress fully to the league mean
	LowSampleThreshold = 3

	MinExpectedGoals = 0.2 // lower clamp for λ
	MaxExpectedGoals = 5.0 // upper clamp for λ

	MinProbability = 0.01 // lower clamp for over/under and BTTS probabilities
	MaxProbability = 0.99 // upper clamp for over/under and BTTS probabilities

	MinOdds = 1.01 // floor for any decimal odds we quote

	DefaultMatchMaxGoals     = 10 // truncation for the 1X2 double sum
	DefaultOverUnderMaxGoals = 15 // truncation for total goals markets

	DefaultGoalsPerMatch = 2.7
	DefaultHomeAdvantage = 1.3
)

// OverUnderThresholds are the total goals lines priced on every odds card.
// Each threshold is priced on both sides giving twelve lines in total
var OverUnderThresholds = []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}

// LeagueAverage carries the league calibration used when turning raw
// scoring rates into attack and defence strengths
type LeagueAverage struct {
	GoalsPerMatch float64 `json:"goalsPerMatch" yaml:"goals_per_match"` // mean total goals per match (default: 2.7)
	HomeAdvantage float64 `json:"homeAdvantage" yaml:"home_advantage"`  // multiplier applied to the home side λ (default: 1.3)
}

// DefaultLeagueAverage returns the calibration used when none is supplied
func DefaultLeagueAverage() LeagueAverage {
	return LeagueAverage{
		GoalsPerMatch: DefaultGoalsPerMatch,
		HomeAdvantage: DefaultHomeAdvantage,
	}
}

// Validate ensures the league calibration is usable
func (l LeagueAverage) Validate() error {
	if l.GoalsPerMatch <= 0 {
		return fmt.Errorf("GoalsPerMatch must be greater than 0, got: %f", l.GoalsPerMatch)
	}
	if l.HomeAdvantage <= 0 {
		return fmt.Errorf("HomeAdvantage must be greater than 0, got: %f", l.HomeAdvantage)
	}
	return nil
}

// perSide is the average goals a single team scores in a match
func (l LeagueAverage) perSide() float64 {
	return l.GoalsPerMatch / 2
}
