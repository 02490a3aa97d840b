package elo

import "fmt"

// Config contains every parameter the rating and prediction engine uses.
// A Config is built once per calling context and handed to New
type Config struct {
	// === RATING UPDATE ===
	InitialRating  float64 `yaml:"initial_rating"`   // rating given to a team with no history in a season (default: 1500)
	MinRating      float64 `yaml:"min_rating"`       // lower clamp for every update (default: 1000)
	MaxRating      float64 `yaml:"max_rating"`       // upper clamp for every update (default: 2500)
	HomeAdvantage  float64 `yaml:"home_advantage"`   // rating points added to the home side when computing expectations (default: 100)
	DefaultKFactor float64 `yaml:"default_k_factor"` // K used when none is supplied (default: 32)

	// === K-FACTOR SCHEDULE ===
	NewTeamKFactor     int `yaml:"new_team_k_factor"`    // K for teams with fewer than NewTeamMatches (default: 40)
	DevelopingKFactor  int `yaml:"developing_k_factor"`  // K for teams with fewer than DevelopingMatches (default: 32)
	EstablishedKFactor int `yaml:"established_k_factor"` // K for everyone else (default: 24)
	NewTeamMatches     int `yaml:"new_team_matches"`     // (default: 10)
	DevelopingMatches  int `yaml:"developing_matches"`   // (default: 30)

	// === DRAW HEURISTIC ===
	DrawBase  float64 `yaml:"draw_base"`  // draw probability for evenly rated teams (default: 0.30)
	DrawScale float64 `yaml:"draw_scale"` // rating difference that removes one unit of draw probability (default: 1000)
	DrawMin   float64 `yaml:"draw_min"`   // (default: 0.15)
	DrawMax   float64 `yaml:"draw_max"`   // (default: 0.35)

	// === GOALS ===
	LeagueAverageGoals   float64 `yaml:"league_average_goals"`    // total goals per match (default: 2.7)
	GoalsPerRatingPoints float64 `yaml:"goals_per_rating_points"` // rating difference per GoalsAdjustment (default: 200)
	GoalsAdjustment      float64 `yaml:"goals_adjustment"`        // (default: 0.5)
	MinGoals             float64 `yaml:"min_goals"`               // (default: 0.5)
	MaxGoals             float64 `yaml:"max_goals"`               // (default: 4.0)

	// === PREDICTION ===
	WinOrDrawThreshold float64 `yaml:"win_or_draw_threshold"` // home+draw probability above which win_or_draw is set (default: 0.6)
	UnderOverLine      float64 `yaml:"under_over_line"`       // total goals line for the under/over hint (default: 2.5)
}

// DefaultConfig returns the standard engine configuration
func DefaultConfig() Config {
	return Config{
		InitialRating:  1500,
		MinRating:      1000,
		MaxRating:      2500,
		HomeAdvantage:  100,
		DefaultKFactor: 32,

		NewTeamKFactor:     40,
		DevelopingKFactor:  32,
		EstablishedKFactor: 24,
		NewTeamMatches:     10,
		DevelopingMatches:  30,

		DrawBase:  0.30,
		DrawScale: 1000,
		DrawMin:   0.15,
		DrawMax:   0.35,

		LeagueAverageGoals:   2.7,
		GoalsPerRatingPoints: 200,
		GoalsAdjustment:      0.5,
		MinGoals:             0.5,
		MaxGoals:             4.0,

		WinOrDrawThreshold: 0.6,
		UnderOverLine:      2.5,
	}
}

// Validate ensures all configuration values are within sensible ranges
func (c Config) Validate() error {
	if c.MinRating >= c.MaxRating {
		return fmt.Errorf("MinRating must be below MaxRating, got: %f >= %f", c.MinRating, c.MaxRating)
	}
	if c.InitialRating < c.MinRating || c.InitialRating > c.MaxRating {
		return fmt.Errorf("InitialRating must be between %f and %f, got: %f", c.MinRating, c.MaxRating, c.InitialRating)
	}
	if c.DefaultKFactor <= 0 {
		return fmt.Errorf("DefaultKFactor must be positive, got: %f", c.DefaultKFactor)
	}
	if c.NewTeamKFactor <= 0 || c.DevelopingKFactor <= 0 || c.EstablishedKFactor <= 0 {
		return fmt.Errorf("K-factor schedule must be positive, got: %d/%d/%d", c.NewTeamKFactor, c.DevelopingKFactor, c.EstablishedKFactor)
	}
	if c.NewTeamMatches > c.DevelopingMatches {
		return fmt.Errorf("NewTeamMatches must not exceed DevelopingMatches, got: %d > %d", c.NewTeamMatches, c.DevelopingMatches)
	}
	if c.DrawMin < 0 || c.DrawMax > 1 || c.DrawMin > c.DrawMax {
		return fmt.Errorf("draw bounds must satisfy 0 <= DrawMin <= DrawMax <= 1, got: %f, %f", c.DrawMin, c.DrawMax)
	}
	if c.DrawScale <= 0 || c.GoalsPerRatingPoints <= 0 {
		return fmt.Errorf("DrawScale and GoalsPerRatingPoints must be positive")
	}
	if c.MinGoals > c.MaxGoals {
		return fmt.Errorf("MinGoals must not exceed MaxGoals, got: %f > %f", c.MinGoals, c.MaxGoals)
	}
	if c.LeagueAverageGoals <= 0 {
		return fmt.Errorf("LeagueAverageGoals must be positive, got: %f", c.LeagueAverageGoals)
	}
	return nil
}
