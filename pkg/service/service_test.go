package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/util/elo"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

const seasonID = "pl-2024"

type testEnv struct {
	svc   *Service
	store *store.Store
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	league, err := st.GetOrCreateLeague(ctx, "PL", "Premier League", "England")
	require.NoError(t, err)
	_, err = st.GetOrCreateSeason(ctx, league.ID, 2024)
	require.NoError(t, err)

	svc := New(st, elo.NewDefault(), podds.DefaultLeagueAverage(), metrics.New())
	return &testEnv{svc: svc, store: st}
}

func day(d int) time.Time {
	return time.Date(2024, time.August, 1, 15, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

// fixture stores a fixture; negative goals leave it unplayed
func (e *testEnv) fixture(t *testing.T, id, home, away string, hg, ag int, at time.Time) {
	t.Helper()
	ctx := context.Background()
	h, err := e.store.GetOrCreateTeam(ctx, home, "")
	require.NoError(t, err)
	a, err := e.store.GetOrCreateTeam(ctx, away, "")
	require.NoError(t, err)

	status := store.StatusFinished
	if hg < 0 {
		status = store.StatusNotStarted
	}
	_, err = e.store.UpsertFixture(ctx, &store.Fixture{
		ID:          id,
		UTCTime:     at,
		StatusShort: status,
		LeagueID:    "pl",
		SeasonID:    seasonID,
		HomeTeamID:  h.ID,
		AwayTeamID:  a.ID,
		HomeGoals:   hg,
		AwayGoals:   ag,
	})
	require.NoError(t, err)
}

func TestFixtureOdds(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", -1, -1, day(1))

	card, err := env.svc.FixtureOdds(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Arsenal", card.HomeTeam.Name)
	assert.Equal(t, "Chelsea", card.AwayTeam.Name)

	// No history on either side falls back to the league mean
	assert.InDelta(t, 2.7*1.3/2, card.Odds.HomeExpectedGoals, 1e-9)
	assert.InDelta(t, 2.7/2, card.Odds.AwayExpectedGoals, 1e-9)
	assert.Len(t, card.Odds.MatchWinner, 3)
	assert.Len(t, card.Odds.OverUnder, 12)
	assert.Len(t, card.Odds.BothTeamsScore, 2)

	_, err = env.svc.FixtureOdds(ctx, "nope")
	assert.True(t, errors.Is(err, ErrFixtureNotFound))
}

func TestFixtureOddsUsesResultsBeforeKickOff(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		env.fixture(t, id+"1", "Arsenal", "Spurs", 4, 0, day(i*7))
		env.fixture(t, id+"2", "Everton", "Chelsea", 3, 1, day(i*7))
	}
	env.fixture(t, "next", "Arsenal", "Chelsea", -1, -1, day(30))
	// Played after "next" and must not leak into its price
	env.fixture(t, "later", "Arsenal", "Spurs", 0, 5, day(40))

	card, err := env.svc.FixtureOdds(ctx, "next")
	require.NoError(t, err)
	assert.InDelta(t, podds.MaxExpectedGoals, card.Odds.HomeExpectedGoals, 1e-9)
	assert.InDelta(t, podds.MinExpectedGoals, card.Odds.AwayExpectedGoals, 1e-9)
	assert.Greater(t, card.Odds.Probabilities.HomeWin, card.Odds.Probabilities.AwayWin)
}

func TestFixturePrediction(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", -1, -1, day(1))

	card, err := env.svc.FixturePrediction(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, card.Prediction.HomeRating)
	assert.Equal(t, 1500.0, card.Prediction.AwayRating)
	assert.Greater(t, card.Prediction.Probabilities.Home, card.Prediction.Probabilities.Away)

	// Defaults are not persisted
	r, err := env.store.Rating(ctx, "arsenal", seasonID)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = env.svc.FixturePrediction(ctx, "nope")
	assert.True(t, errors.Is(err, ErrFixtureNotFound))
}

func TestProcessFinishedFixtures(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", 2, 0, day(1))
	env.fixture(t, "f2", "Chelsea", "Everton", 1, 1, day(8))
	env.fixture(t, "f3", "Everton", "Arsenal", -1, -1, day(15))

	n, err := env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	table, err := env.svc.SeasonRatings(ctx, seasonID)
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.Equal(t, 1, table[0].Position)
	assert.Equal(t, "Arsenal", table[0].TeamName)
	played := 0
	for _, row := range table {
		played += row.MatchesPlayed
	}
	assert.Equal(t, 4, played)

	card, err := env.svc.FixturePrediction(ctx, "f3")
	require.NoError(t, err)
	assert.Equal(t, table[0].Rating, card.Prediction.AwayRating)
}

func TestOutOfOrderResultRebuildsSeason(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "late", "Arsenal", "Chelsea", 2, 0, day(10))

	n, err := env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	env.fixture(t, "early", "Arsenal", "Everton", 0, 1, day(3))

	n, err = env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	history, err := env.store.RatingHistory(ctx, "arsenal", seasonID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "early", history[0].FixtureID)
	assert.Equal(t, 1500.0, history[0].Before)
	assert.InDelta(t, history[0].After, history[1].Before, 1e-9)
}

func TestCorrectedScoreRebuildsSeason(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", 2, 0, day(1))

	_, err := env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)

	env.fixture(t, "f1", "Arsenal", "Chelsea", 0, 2, day(1))
	n, err := env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := env.store.Rating(ctx, "arsenal", seasonID)
	require.NoError(t, err)
	assert.Less(t, r.Rating, 1500.0)
	assert.Equal(t, 1, r.MatchesPlayed)
}

func TestConcurrentProcessingAppliesEachFixtureOnce(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	teams := []string{"Arsenal", "Chelsea", "Everton", "Spurs"}
	for i := 0; i < 12; i++ {
		env.fixture(t, "f"+string(rune('a'+i)), teams[i%4], teams[(i+1)%4], i%3, (i+1)%2, day(i))
	}

	var wg sync.WaitGroup
	counts := make([]int, 4)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			n, err := env.svc.ProcessFinishedFixtures(ctx)
			assert.NoError(t, err)
			counts[g] = n
		}(g)
	}
	wg.Wait()

	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 12, total)

	ratings, err := env.store.SeasonRatings(ctx, seasonID)
	require.NoError(t, err)
	played := 0
	for _, r := range ratings {
		played += r.MatchesPlayed
	}
	assert.Equal(t, 24, played)
}

func TestRebuildSeasonRatings(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", 2, 0, day(1))
	env.fixture(t, "f2", "Chelsea", "Arsenal", 3, 1, day(8))

	_, err := env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)
	before, err := env.store.SeasonRatings(ctx, seasonID)
	require.NoError(t, err)

	n, err := env.svc.RebuildSeasonRatings(ctx, seasonID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := env.store.SeasonRatings(ctx, seasonID)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.InDelta(t, before[i].Rating, after[i].Rating, 1e-9)
	}

	_, err = env.svc.RebuildSeasonRatings(ctx, "nope-1999")
	assert.True(t, errors.Is(err, ErrSeasonNotFound))
	_, err = env.svc.SeasonRatings(ctx, "nope-1999")
	assert.True(t, errors.Is(err, ErrSeasonNotFound))
}

func TestBacktest(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", 2, 0, day(1))
	env.fixture(t, "f2", "Chelsea", "Everton", 1, 1, day(8))
	env.fixture(t, "f3", "Everton", "Arsenal", 0, 3, day(15))
	env.fixture(t, "f4", "Arsenal", "Everton", -1, -1, day(22))

	report, err := env.svc.Backtest(ctx, seasonID)
	require.NoError(t, err)
	assert.Equal(t, seasonID, report.SeasonID)
	require.Len(t, report.Fixtures, 3)
	assert.Equal(t, 3, report.Summary.TotalMatches)
	assert.Equal(t, "f1", report.Fixtures[0].FixtureID)

	_, err = env.svc.Backtest(ctx, "nope-1999")
	assert.True(t, errors.Is(err, ErrSeasonNotFound))
}

func TestStatusAndUpcoming(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", 2, 0, day(1))
	env.fixture(t, "f2", "Chelsea", "Everton", -1, -1, day(5))
	env.svc.now = func() time.Time { return day(2) }

	status, err := env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, status.Seasons, 1)
	assert.Equal(t, 1, status.PendingFixtures)
	assert.Empty(t, status.Ingestions)

	upcoming, err := env.svc.UpcomingFixtures(ctx, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "f2", upcoming[0].ID)
}

func TestOddsFromStats(t *testing.T) {
	env := newEnv(t)
	home := &podds.TeamStats{GoalsScored: 30, GoalsConceded: 10, MatchesPlayed: 15}
	away := &podds.TeamStats{GoalsScored: 12, GoalsConceded: 25, MatchesPlayed: 15}

	odds := env.svc.OddsFromStats(home, away)
	assert.Greater(t, odds.HomeExpectedGoals, odds.AwayExpectedGoals)
}

func TestMatchup(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.fixture(t, "f1", "Arsenal", "Chelsea", 3, 0, day(1))
	env.fixture(t, "f2", "Chelsea", "Arsenal", 0, 2, day(8))
	env.svc.now = func() time.Time { return day(30) }
	_, err := env.svc.ProcessFinishedFixtures(ctx)
	require.NoError(t, err)

	card, err := env.svc.Matchup(ctx, seasonID, "Arsenal FC", "chelsea")
	require.NoError(t, err)
	assert.Equal(t, "arsenal", card.HomeTeam.ID)
	assert.Equal(t, "chelsea", card.AwayTeam.ID)
	assert.Greater(t, card.Odds.HomeExpectedGoals, card.Odds.AwayExpectedGoals)
	assert.Equal(t, elo.HomeWin, card.Prediction.Winner.Outcome)

	_, err = env.svc.Matchup(ctx, seasonID, "Arsenal", "Nobody")
	assert.True(t, errors.Is(err, ErrTeamNotFound))
	_, err = env.svc.Matchup(ctx, seasonID, "Arsenal", "Arsenal")
	assert.True(t, errors.Is(err, ErrInvalidMatchup))
	_, err = env.svc.Matchup(ctx, "nope-1999", "Arsenal", "Chelsea")
	assert.True(t, errors.Is(err, ErrSeasonNotFound))
}
