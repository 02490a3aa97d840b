package podds

import "strconv"

// Bet names used on the odds card
const (
	BetMatchWinner = "Match Winner"
	BetGoalsOU     = "Goals Over/Under"
	BetBTTS        = "Both Teams Score"
)

// PricedOutcome is a single selectable outcome with its model probability
// and the fair decimal odds derived from it
type PricedOutcome struct {
	Value       string  `json:"value"`
	Probability float64 `json:"probability"`
	Odds        float64 `json:"odd"`
}

// OverUnderLine is one side of a total goals threshold
type OverUnderLine struct {
	Threshold float64 `json:"threshold"`
	PricedOutcome
}

// DetailedOdds is the full odds card for a fixture
type DetailedOdds struct {
	HomeExpectedGoals float64 `json:"homeExpectedGoals"`
	AwayExpectedGoals float64 `json:"awayExpectedGoals"`

	Probabilities   MatchProbabilities `json:"probabilities"`
	MatchWinner     []PricedOutcome    `json:"matchWinner"`
	OverUnder       []OverUnderLine    `json:"overUnder"`
	BothTeamsScore  []PricedOutcome    `json:"bothTeamsScore"`
	MostLikelyScore Scoreline          `json:"mostLikelyScore"`
}

// GenerateMatchOdds builds the odds card for home vs away. A nil league uses
// DefaultLeagueAverage
func GenerateMatchOdds(homeStats, awayStats *TeamStats, league *LeagueAverage) *DetailedOdds {
	avg := DefaultLeagueAverage()
	if league != nil {
		avg = *league
	}

	homeXG := CalculateExpectedGoals(homeStats, awayStats, true, avg)
	awayXG := CalculateExpectedGoals(awayStats, homeStats, false, avg)
	return GenerateOddsFromExpectedGoals(homeXG, awayXG)
}

// GenerateOddsFromExpectedGoals builds the odds card from already known λ values
func GenerateOddsFromExpectedGoals(homeXG, awayXG float64) *DetailedOdds {
	probs := CalculateMatchProbabilities(homeXG, awayXG, DefaultMatchMaxGoals)
	btts := CalculateBTTSProbability(homeXG, awayXG)

	ret := &DetailedOdds{
		HomeExpectedGoals: homeXG,
		AwayExpectedGoals: awayXG,
		Probabilities:     probs,
		MatchWinner: []PricedOutcome{
			price("Home", probs.HomeWin),
			price("Draw", probs.Draw),
			price("Away", probs.AwayWin),
		},
		BothTeamsScore: []PricedOutcome{
			price("Yes", btts.Yes),
			price("No", btts.No),
		},
		MostLikelyScore: MostLikelyScore(homeXG, awayXG, DefaultMatchMaxGoals),
	}

	for _, threshold := range OverUnderThresholds {
		ou := CalculateOverUnderProbabilities(homeXG, awayXG, threshold, DefaultOverUnderMaxGoals)
		ret.OverUnder = append(ret.OverUnder,
			OverUnderLine{Threshold: threshold, PricedOutcome: price(overUnderLabel("Over", threshold), ou.Over)},
			OverUnderLine{Threshold: threshold, PricedOutcome: price(overUnderLabel("Under", threshold), ou.Under)},
		)
	}
	return ret
}

func price(value string, p float64) PricedOutcome {
	return PricedOutcome{Value: value, Probability: p, Odds: ProbabilityToOdds(p)}
}

func overUnderLabel(side string, threshold float64) string {
	return side + " " + formatThreshold(threshold)
}

// formatThreshold renders goal lines as "2.5"
func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', 1, 64)
}
