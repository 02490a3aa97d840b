package podds

// PredictionAccuracy holds accuracy metrics for a single fixture's odds card
// compared against the final score
type PredictionAccuracy struct {
	FixtureID           string  `json:"fixtureId"`
	ActualHomeGoals     int     `json:"actualHomeGoals"`
	ActualAwayGoals     int     `json:"actualAwayGoals"`
	PredictedHomeGoals  int     `json:"predictedHomeGoals"`
	PredictedAwayGoals  int     `json:"predictedAwayGoals"`
	ExactScoreCorrect   bool    `json:"exactScoreCorrect"`
	ResultCorrect       bool    `json:"resultCorrect"`
	GoalDifferenceError int     `json:"goalDifferenceError"`
	TotalGoalsError     int     `json:"totalGoalsError"`
	BrierScore          float64 `json:"brierScore"`
}

// AggregateAccuracy holds accuracy statistics across many fixtures
type AggregateAccuracy struct {
	TotalMatches           int     `json:"totalMatches"`
	ExactScoreAccuracy     float64 `json:"exactScoreAccuracy"` // Percentage
	ResultAccuracy         float64 `json:"resultAccuracy"`     // Percentage
	AverageGoalDiffError   float64 `json:"averageGoalDiffError"`
	AverageTotalGoalsError float64 `json:"averageTotalGoalsError"`
	MeanBrierScore         float64 `json:"meanBrierScore"`
}

// EvaluatePrediction compares an odds card with the final score.
// Returns nil when the fixture has no result yet (negative goals)
func EvaluatePrediction(fixtureID string, odds *DetailedOdds, homeGoals, awayGoals int) *PredictionAccuracy {
	if odds == nil || homeGoals < 0 || awayGoals < 0 {
		return nil
	}

	accuracy := &PredictionAccuracy{
		FixtureID:          fixtureID,
		ActualHomeGoals:    homeGoals,
		ActualAwayGoals:    awayGoals,
		PredictedHomeGoals: odds.MostLikelyScore.HomeGoals,
		PredictedAwayGoals: odds.MostLikelyScore.AwayGoals,
	}

	accuracy.ExactScoreCorrect = homeGoals == accuracy.PredictedHomeGoals && awayGoals == accuracy.PredictedAwayGoals

	actual := GetMatchResult(homeGoals, awayGoals)
	accuracy.ResultCorrect = actual == favouredResult(odds.Probabilities)

	accuracy.GoalDifferenceError = abs((homeGoals - awayGoals) - (accuracy.PredictedHomeGoals - accuracy.PredictedAwayGoals))
	accuracy.TotalGoalsError = abs((homeGoals + awayGoals) - (accuracy.PredictedHomeGoals + accuracy.PredictedAwayGoals))

	var oh, od, oa float64
	switch actual {
	case "H":
		oh = 1
	case "A":
		oa = 1
	default:
		od = 1
	}
	p := odds.Probabilities
	accuracy.BrierScore = sq(p.HomeWin-oh) + sq(p.Draw-od) + sq(p.AwayWin-oa)

	return accuracy
}

// EvaluateAll aggregates individual accuracies, ignoring nils.
// Returns nil when there is nothing to aggregate
func EvaluateAll(accuracies []*PredictionAccuracy) *AggregateAccuracy {
	aggregate := &AggregateAccuracy{}

	var exactScoreCount, resultCorrectCount int
	var totalGoalDiffError, totalGoalsError int
	var totalBrier float64

	for _, acc := range accuracies {
		if acc == nil {
			continue
		}
		aggregate.TotalMatches++
		if acc.ExactScoreCorrect {
			exactScoreCount++
		}
		if acc.ResultCorrect {
			resultCorrectCount++
		}
		totalGoalDiffError += acc.GoalDifferenceError
		totalGoalsError += acc.TotalGoalsError
		totalBrier += acc.BrierScore
	}

	if aggregate.TotalMatches == 0 {
		return nil
	}

	n := float64(aggregate.TotalMatches)
	aggregate.ExactScoreAccuracy = float64(exactScoreCount) / n * 100
	aggregate.ResultAccuracy = float64(resultCorrectCount) / n * 100
	aggregate.AverageGoalDiffError = float64(totalGoalDiffError) / n
	aggregate.AverageTotalGoalsError = float64(totalGoalsError) / n
	aggregate.MeanBrierScore = totalBrier / n
	return aggregate
}

// GetMatchResult returns "H" for home win, "D" for draw, "A" for away win
func GetMatchResult(homeGoals, awayGoals int) string {
	if homeGoals > awayGoals {
		return "H"
	} else if homeGoals < awayGoals {
		return "A"
	}
	return "D"
}

// favouredResult picks the strictly most likely outcome, draw on ties
func favouredResult(p MatchProbabilities) string {
	if p.HomeWin > p.Draw && p.HomeWin > p.AwayWin {
		return "H"
	}
	if p.AwayWin > p.Draw && p.AwayWin > p.HomeWin {
		return "A"
	}
	return "D"
}

func sq(x float64) float64 { return x * x }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
