package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsOf(scored, conceded, played int) *TeamStats {
	return &TeamStats{GoalsScored: scored, GoalsConceded: conceded, MatchesPlayed: played}
}

func TestPoissonPMF(t *testing.T) {
	sum := 0.0
	for k := 0; k <= 40; k++ {
		sum += PoissonPMF(2.5, k)
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	assert.InDelta(t, 1.5*0.22313016014842982, PoissonPMF(1.5, 1), 1e-12)
	assert.Equal(t, 1.0, PoissonPMF(0, 0))
	assert.Equal(t, 0.0, PoissonPMF(0, 3))
	assert.Equal(t, 0.0, PoissonPMF(1.0, -1))
	assert.Greater(t, PoissonPMF(180, 180), 0.0)
}

func TestCalculateExpectedGoals(t *testing.T) {
	league := DefaultLeagueAverage()

	t.Run("aggregate statistics", func(t *testing.T) {
		// 1.5 scored per game against a side conceding the league rate
		home := statsOf(30, 20, 20)
		away := statsOf(20, 27, 20)
		assert.InDelta(t, 1.5*1.3, CalculateExpectedGoals(home, away, true, league), 1e-9)
		assert.InDelta(t, 1.0/1.35, CalculateExpectedGoals(away, home, false, league), 1e-9)
	})

	t.Run("venue splits are preferred", func(t *testing.T) {
		home := statsOf(30, 20, 20)
		home.Home = &VenueStats{GoalsScored: 20, GoalsConceded: 5, MatchesPlayed: 10}
		away := statsOf(20, 27, 20)
		away.Away = &VenueStats{GoalsScored: 8, GoalsConceded: 15, MatchesPlayed: 10}

		expected := (2.0 / 1.35) * (1.5 / 1.35) * 1.35 * 1.3
		assert.InDelta(t, expected, CalculateExpectedGoals(home, away, true, league), 1e-9)
	})

	t.Run("thin venue splits fall back to aggregates", func(t *testing.T) {
		home := statsOf(8, 4, 4)
		home.Home = &VenueStats{GoalsScored: 6, GoalsConceded: 2, MatchesPlayed: 2}
		home.Away = &VenueStats{GoalsScored: 2, GoalsConceded: 2, MatchesPlayed: 2}
		away := statsOf(6, 6, 4)
		away.Home = &VenueStats{GoalsScored: 4, GoalsConceded: 3, MatchesPlayed: 2}
		away.Away = &VenueStats{GoalsScored: 2, GoalsConceded: 3, MatchesPlayed: 2}

		expected := (2.0 / 1.35) * (1.5 / 1.35) * 1.35 * 1.3
		assert.InDelta(t, expected, CalculateExpectedGoals(home, away, true, league), 1e-9)
		assert.NotEqual(t, 2.7*1.3/2, CalculateExpectedGoals(home, away, true, league))
	})

	t.Run("low sample regresses to league mean", func(t *testing.T) {
		fresh := statsOf(9, 0, 0)
		established := statsOf(40, 10, 20)
		assert.InDelta(t, 2.7*1.3/2, CalculateExpectedGoals(fresh, established, true, league), 1e-12)
		assert.InDelta(t, 2.7/2, CalculateExpectedGoals(established, fresh, false, league), 1e-12)

		// two matches is still below the threshold even with extreme goals
		assert.InDelta(t, 2.7/2, CalculateExpectedGoals(statsOf(50, 0, 2), established, false, league), 1e-12)
	})

	t.Run("nil stats regress to league mean", func(t *testing.T) {
		assert.InDelta(t, 2.7*1.3/2, CalculateExpectedGoals(nil, nil, true, league), 1e-12)
	})

	t.Run("result is clamped", func(t *testing.T) {
		assert.Equal(t, MaxExpectedGoals, CalculateExpectedGoals(statsOf(100, 0, 10), statsOf(0, 100, 10), true, league))
		assert.Equal(t, MinExpectedGoals, CalculateExpectedGoals(statsOf(0, 0, 10), statsOf(0, 0, 10), false, league))

		for _, scored := range []int{0, 1, 5, 17, 60} {
			for _, conceded := range []int{0, 3, 11, 40} {
				xg := CalculateExpectedGoals(statsOf(scored, 5, 10), statsOf(5, conceded, 10), true, league)
				assert.GreaterOrEqual(t, xg, MinExpectedGoals)
				assert.LessOrEqual(t, xg, MaxExpectedGoals)
			}
		}
	})
}

func TestCalculateMatchProbabilities(t *testing.T) {
	for _, xg := range [][2]float64{{0.2, 0.2}, {1.8, 1.2}, {5.0, 0.2}, {3.3, 4.9}} {
		p := CalculateMatchProbabilities(xg[0], xg[1], 10)
		assert.InDelta(t, 1.0, p.HomeWin+p.Draw+p.AwayWin, 1e-9, "xg %v", xg)
	}

	p := CalculateMatchProbabilities(1.8, 1.2, 10)
	t.Log("1.8 v 1.2", p)
	assert.Greater(t, p.HomeWin, p.AwayWin)
	assert.Greater(t, p.Draw, 0.20)
	assert.Less(t, p.Draw, 0.28)

	// default truncation
	assert.Equal(t, p, CalculateMatchProbabilities(1.8, 1.2, 0))

	even := CalculateMatchProbabilities(1.4, 1.4, 10)
	assert.InDelta(t, even.HomeWin, even.AwayWin, 1e-12)
}

func TestMostLikelyScore(t *testing.T) {
	s := MostLikelyScore(1.8, 1.2, 10)
	assert.Equal(t, 1, s.HomeGoals)
	assert.Equal(t, 1, s.AwayGoals)
	assert.Greater(t, s.Probability, 0.0)

	s = MostLikelyScore(0.3, 0.2, 10)
	assert.Equal(t, Scoreline{HomeGoals: 0, AwayGoals: 0, Probability: s.Probability}, s)
}

func TestCalculateOverUnderProbabilities(t *testing.T) {
	ou := CalculateOverUnderProbabilities(1.8, 1.2, 2.5, 15)
	// e^-3 * (1 + 3 + 4.5)
	assert.InDelta(t, 0.42319008112684353, ou.Under, 1e-9)
	assert.InDelta(t, 1-ou.Under, ou.Over, 1e-12)

	low := CalculateOverUnderProbabilities(0.1, 0.1, 5.5, 15)
	assert.Equal(t, MaxProbability, low.Under)
	assert.Equal(t, MinProbability, low.Over)

	high := CalculateOverUnderProbabilities(5.0, 5.0, 0.5, 15)
	assert.Equal(t, MaxProbability, high.Over)
	assert.Equal(t, MinProbability, high.Under)
}

func TestCalculateBTTSProbability(t *testing.T) {
	low := CalculateBTTSProbability(0.1, 0.1)
	assert.Equal(t, MinProbability, low.Yes)
	assert.Equal(t, MaxProbability, low.No)

	b := CalculateBTTSProbability(1.5, 1.5)
	expected := (1 - PoissonPMF(1.5, 0)) * (1 - PoissonPMF(1.5, 0))
	assert.InDelta(t, expected, b.Yes, 1e-12)
	assert.InDelta(t, 1-expected, b.No, 1e-12)
}

func TestProbabilityToOdds(t *testing.T) {
	assert.InDelta(t, 2.0, ProbabilityToOdds(0.5), 1e-12)
	assert.InDelta(t, 4.0, ProbabilityToOdds(0.25), 1e-12)
	for _, p := range []float64{0.01, 0.33, 0.7, 0.9} {
		assert.InDelta(t, 1/p, ProbabilityToOdds(p), 1e-9)
	}
	assert.Equal(t, MinOdds, ProbabilityToOdds(0))
	assert.Equal(t, MinOdds, ProbabilityToOdds(1))
	assert.Equal(t, MinOdds, ProbabilityToOdds(-0.2))
	assert.Equal(t, MinOdds, ProbabilityToOdds(1.5))
	assert.Equal(t, MinOdds, ProbabilityToOdds(0.995))
}

func TestGenerateMatchOdds(t *testing.T) {
	home := statsOf(40, 15, 20)
	away := statsOf(20, 30, 20)

	odds := GenerateMatchOdds(home, away, nil)
	require.NotNil(t, odds)

	require.Len(t, odds.MatchWinner, 3)
	require.Len(t, odds.OverUnder, 12)
	require.Len(t, odds.BothTeamsScore, 2)

	assert.Equal(t, "Home", odds.MatchWinner[0].Value)
	assert.Less(t, odds.MatchWinner[0].Odds, odds.MatchWinner[2].Odds)
	assert.Equal(t, "Over 0.5", odds.OverUnder[0].Value)
	assert.Equal(t, "Under 5.5", odds.OverUnder[11].Value)
	assert.Equal(t, 5.5, odds.OverUnder[11].Threshold)

	for _, line := range odds.OverUnder {
		assert.GreaterOrEqual(t, line.Odds, MinOdds)
	}

	league := DefaultLeagueAverage()
	assert.Equal(t, odds, GenerateMatchOdds(home, away, &league))

	// an empty history prices at the league mean
	fresh := GenerateMatchOdds(NewTeamStats(), NewTeamStats(), nil)
	assert.InDelta(t, 1.755, fresh.HomeExpectedGoals, 1e-9)
	assert.InDelta(t, 1.35, fresh.AwayExpectedGoals, 1e-9)
}

func TestTeamStatsAddResult(t *testing.T) {
	ts := NewTeamStats()
	ts.AddResult(2, 1, true)
	ts.AddResult(0, 3, false)
	ts.AddResult(-1, -1, true)

	assert.Equal(t, 2, ts.MatchesPlayed)
	assert.Equal(t, 2, ts.GoalsScored)
	assert.Equal(t, 4, ts.GoalsConceded)
	assert.Equal(t, VenueStats{GoalsScored: 2, GoalsConceded: 1, MatchesPlayed: 1}, *ts.Home)
	assert.Equal(t, VenueStats{GoalsScored: 0, GoalsConceded: 3, MatchesPlayed: 1}, *ts.Away)

	agg := &TeamStats{}
	agg.AddResult(1, 1, true)
	assert.Nil(t, agg.Home)
	assert.Equal(t, 1, agg.MatchesPlayed)
}

func TestLeagueAverageValidate(t *testing.T) {
	assert.NoError(t, DefaultLeagueAverage().Validate())
	assert.Error(t, LeagueAverage{GoalsPerMatch: 0, HomeAdvantage: 1.3}.Validate())
	assert.Error(t, LeagueAverage{GoalsPerMatch: 2.7, HomeAdvantage: -1}.Validate())
}

func TestEvaluatePrediction(t *testing.T) {
	odds := GenerateOddsFromExpectedGoals(1.8, 1.2)

	assert.Nil(t, EvaluatePrediction("f1", odds, -1, -1))
	assert.Nil(t, EvaluatePrediction("f1", nil, 1, 0))

	hit := EvaluatePrediction("f1", odds, 1, 1)
	require.NotNil(t, hit)
	assert.True(t, hit.ExactScoreCorrect)
	assert.False(t, hit.ResultCorrect)

	win := EvaluatePrediction("f2", odds, 3, 0)
	require.NotNil(t, win)
	assert.True(t, win.ResultCorrect)
	assert.Equal(t, 3, win.GoalDifferenceError)
	assert.Less(t, win.BrierScore, hit.BrierScore)

	agg := EvaluateAll([]*PredictionAccuracy{hit, nil, win})
	require.NotNil(t, agg)
	assert.Equal(t, 2, agg.TotalMatches)
	assert.InDelta(t, 50.0, agg.ResultAccuracy, 1e-9)
	assert.InDelta(t, 50.0, agg.ExactScoreAccuracy, 1e-9)

	assert.Nil(t, EvaluateAll(nil))
}
