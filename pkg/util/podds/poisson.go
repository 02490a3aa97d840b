package podds

import "math"

// MatchProbabilities holds the 3-way result distribution for a fixture.
// The three values always sum to 1
type MatchProbabilities struct {
	HomeWin float64 `json:"homeWin"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"awayWin"`
}

// OverUnder holds total goals probabilities either side of a threshold
type OverUnder struct {
	Threshold float64 `json:"threshold"`
	Over      float64 `json:"over"`
	Under     float64 `json:"under"`
}

// BTTS holds the both-teams-to-score probabilities
type BTTS struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// Scoreline is a single correct score and its probability
type Scoreline struct {
	HomeGoals   int     `json:"homeGoals"`
	AwayGoals   int     `json:"awayGoals"`
	Probability float64 `json:"probability"`
}

// factorials up to 170! which is the largest that fits in a float64
var factorials = func() []float64 {
	f := make([]float64, 171)
	f[0] = 1
	for i := 1; i < len(f); i++ {
		f[i] = f[i-1] * float64(i)
	}
	return f
}()

// PoissonPMF returns P(k; λ) = λ^k e^-λ / k!
func PoissonPMF(lambda float64, k int) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	if k < len(factorials) {
		return math.Pow(lambda, float64(k)) * math.Exp(-lambda) / factorials[k]
	}
	lg, _ := math.Lgamma(float64(k + 1))
	return math.Exp(float64(k)*math.Log(lambda) - lambda - lg)
}

/////////////////////////////////////////////////////////////////////////
////// Expected Goals
/////////////////////////////////////////////////////////////////////////

// CalculateExpectedGoals returns the λ for one side of a fixture.
// team is the side being modelled and opponent the side it plays against.
// Venue splits are used once they hold LowSampleThreshold matches, otherwise
// the aggregate totals. When either side still has fewer than
// LowSampleThreshold matches the league mean is returned. The result is always clamped to [MinExpectedGoals, MaxExpectedGoals]
func CalculateExpectedGoals(team, opponent *TeamStats, isHome bool, league LeagueAverage) float64 {
	if league.GoalsPerMatch <= 0 {
		league.GoalsPerMatch = DefaultGoalsPerMatch
	}
	homeFactor := 1.0
	if isHome {
		homeFactor = league.HomeAdvantage
		if homeFactor <= 0 {
			homeFactor = DefaultHomeAdvantage
		}
	}

	if team == nil || opponent == nil {
		return clamp(league.GoalsPerMatch*homeFactor/2, MinExpectedGoals, MaxExpectedGoals)
	}

	scored, played := team.attack(isHome)
	conceded, opponentPlayed := opponent.defence(!isHome)

	if played < LowSampleThreshold || opponentPlayed < LowSampleThreshold {
		return clamp(league.GoalsPerMatch*homeFactor/2, MinExpectedGoals, MaxExpectedGoals)
	}

	perSide := league.perSide()
	attackStrength := (float64(scored) / float64(played)) / perSide
	defenseStrength := (float64(conceded) / float64(opponentPlayed)) / perSide

	expectedGoals := attackStrength * defenseStrength * perSide * homeFactor
	return clamp(expectedGoals, MinExpectedGoals, MaxExpectedGoals)
}

/////////////////////////////////////////////////////////////////////////
////// Markets
/////////////////////////////////////////////////////////////////////////

// CalculateMatchProbabilities sums the independent Poisson joint distribution
// over 0..maxGoals for each side and renormalises the result so that the
// truncated tail does not leak probability. maxGoals <= 0 uses the default of 10
func CalculateMatchProbabilities(homeXG, awayXG float64, maxGoals int) MatchProbabilities {
	if maxGoals <= 0 {
		maxGoals = DefaultMatchMaxGoals
	}
	matrix := ScoreMatrix(homeXG, awayXG, maxGoals)

	var homeWin, draw, awayWin float64
	for h := range matrix {
		for a := range matrix[h] {
			if h > a {
				homeWin += matrix[h][a]
			} else if h == a {
				draw += matrix[h][a]
			} else {
				awayWin += matrix[h][a]
			}
		}
	}

	total := homeWin + draw + awayWin
	if total <= 0 || math.IsNaN(total) {
		return MatchProbabilities{HomeWin: 1.0 / 3, Draw: 1.0 / 3, AwayWin: 1.0 / 3}
	}
	return MatchProbabilities{
		HomeWin: homeWin / total,
		Draw:    draw / total,
		AwayWin: awayWin / total,
	}
}

// ScoreMatrix returns matrix[h][a] = P(home scores h) * P(away scores a)
// for 0 <= h,a <= maxGoals
func ScoreMatrix(homeXG, awayXG float64, maxGoals int) [][]float64 {
	if maxGoals < 0 {
		maxGoals = 0
	}
	homeProbs := make([]float64, maxGoals+1)
	awayProbs := make([]float64, maxGoals+1)
	for k := 0; k <= maxGoals; k++ {
		homeProbs[k] = PoissonPMF(homeXG, k)
		awayProbs[k] = PoissonPMF(awayXG, k)
	}

	matrix := make([][]float64, maxGoals+1)
	for h := range matrix {
		matrix[h] = make([]float64, maxGoals+1)
		for a := range matrix[h] {
			matrix[h][a] = homeProbs[h] * awayProbs[a]
		}
	}
	return matrix
}

// MostLikelyScore returns the single most probable correct score
func MostLikelyScore(homeXG, awayXG float64, maxGoals int) Scoreline {
	if maxGoals <= 0 {
		maxGoals = DefaultMatchMaxGoals
	}
	best := Scoreline{}
	for h, row := range ScoreMatrix(homeXG, awayXG, maxGoals) {
		for a, p := range row {
			if p > best.Probability {
				best = Scoreline{HomeGoals: h, AwayGoals: a, Probability: p}
			}
		}
	}
	return best
}

// CalculateOverUnderProbabilities prices total goals either side of threshold
// using a single Poisson on the combined λ. Under sums k = 0..floor(threshold)
func CalculateOverUnderProbabilities(homeXG, awayXG, threshold float64, maxGoals int) OverUnder {
	if maxGoals <= 0 {
		maxGoals = DefaultOverUnderMaxGoals
	}
	totalXG := homeXG + awayXG

	limit := int(math.Floor(threshold))
	if limit > maxGoals {
		limit = maxGoals
	}

	under := 0.0
	for k := 0; k <= limit; k++ {
		under += PoissonPMF(totalXG, k)
	}
	over := 1 - under

	return OverUnder{
		Threshold: threshold,
		Over:      clamp(over, MinProbability, MaxProbability),
		Under:     clamp(under, MinProbability, MaxProbability),
	}
}

// CalculateBTTSProbability assumes the two scoring processes are independent
func CalculateBTTSProbability(homeXG, awayXG float64) BTTS {
	yes := (1 - PoissonPMF(homeXG, 0)) * (1 - PoissonPMF(awayXG, 0))
	no := 1 - yes
	return BTTS{
		Yes: clamp(yes, MinProbability, MaxProbability),
		No:  clamp(no, MinProbability, MaxProbability),
	}
}

// ProbabilityToOdds converts a probability into fair decimal odds.
// Anything outside (0,1) or any price shorter than MinOdds comes back as MinOdds
func ProbabilityToOdds(probability float64) float64 {
	if probability <= 0 || probability >= 1 || math.IsNaN(probability) {
		return MinOdds
	}
	return math.Max(1/probability, MinOdds)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
