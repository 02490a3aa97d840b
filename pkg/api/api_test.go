package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/service"
	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/util/elo"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

var twoPlaces = regexp.MustCompile(`^\d+\.\d{2}$`)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	league, err := st.GetOrCreateLeague(ctx, "PL", "Premier League", "England")
	require.NoError(t, err)
	season, err := st.GetOrCreateSeason(ctx, league.ID, 2024)
	require.NoError(t, err)
	home, err := st.GetOrCreateTeam(ctx, "Arsenal", "")
	require.NoError(t, err)
	away, err := st.GetOrCreateTeam(ctx, "Chelsea", "")
	require.NoError(t, err)

	for id, goals := range map[string]int{"f0": 2, "f1": store.NoGoals} {
		status := store.StatusFinished
		at := time.Date(2024, time.August, 20, 15, 0, 0, 0, time.UTC)
		if goals < 0 {
			status = store.StatusNotStarted
			at = at.AddDate(0, 1, 0)
		}
		_, err = st.UpsertFixture(ctx, &store.Fixture{
			ID:          id,
			UTCTime:     at,
			StatusShort: status,
			LeagueID:    league.ID,
			SeasonID:    season.ID,
			HomeTeamID:  home.ID,
			AwayTeamID:  away.ID,
			HomeGoals:   goals,
			AwayGoals:   goals,
		})
		require.NoError(t, err)
	}

	m := metrics.New()
	svc := service.New(st, elo.NewDefault(), podds.DefaultLeagueAverage(), m)
	return NewAPIHandler(svc, m, 5*time.Second).SetupRoutes()
}

type testEnvelope struct {
	Get        string            `json:"get"`
	Parameters map[string]string `json:"parameters"`
	Errors     []string          `json:"errors"`
	Results    int               `json:"results"`
	Response   json.RawMessage   `json:"response"`
}

func get(t *testing.T, h http.Handler, url string) (int, testEnvelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, env
}

func TestOddsEndpoint(t *testing.T) {
	h := newTestRouter(t)

	code, env := get(t, h, "/odds?fixture=f1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "odds", env.Get)
	assert.Equal(t, map[string]string{"fixture": "f1"}, env.Parameters)
	assert.Empty(t, env.Errors)
	assert.Equal(t, 1, env.Results)

	var cards []OddsResponse
	require.NoError(t, json.Unmarshal(env.Response, &cards))
	require.Len(t, cards, 1)
	card := cards[0]
	assert.Equal(t, "f1", card.Fixture.ID)
	assert.Equal(t, "Arsenal", card.Fixture.Home.Name)
	assert.Nil(t, card.Fixture.Goals)
	assert.Regexp(t, twoPlaces, card.ExpectedGoals.Home)

	require.Len(t, card.Bookmakers, 1)
	bets := card.Bookmakers[0].Bets
	require.Len(t, bets, 3)
	assert.Equal(t, podds.BetMatchWinner, bets[0].Name)
	assert.Len(t, bets[0].Values, 3)
	assert.Len(t, bets[1].Values, 12)
	assert.Equal(t, "Over 0.5", bets[1].Values[0].Value)
	assert.Len(t, bets[2].Values, 2)
	for _, bet := range bets {
		for _, v := range bet.Values {
			assert.Regexp(t, twoPlaces, v.Odd, v.Value)
		}
	}
}

func TestErrorStatusCodes(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		url  string
		code int
	}{
		{"/odds", http.StatusBadRequest},
		{"/odds?fixture=missing", http.StatusNotFound},
		{"/predictions?fixture=missing", http.StatusNotFound},
		{"/ratings?season=xx-1999", http.StatusNotFound},
		{"/fixtures?days=soon", http.StatusBadRequest},
		{"/matchup?season=pl-2024&home=Arsenal&away=Arsenal", http.StatusBadRequest},
		{"/matchup?season=pl-2024&home=Arsenal&away=Nobody", http.StatusNotFound},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		code, env := get(t, h, tt.url)
		assert.Equal(t, tt.code, code, tt.url)
		assert.NotEmpty(t, env.Errors, tt.url)
		assert.Zero(t, env.Results, tt.url)
	}
}

func TestPredictionEndpoint(t *testing.T) {
	h := newTestRouter(t)

	code, env := get(t, h, "/predictions?fixture=f1")
	require.Equal(t, http.StatusOK, code)

	var cards []PredictionResponse
	require.NoError(t, json.Unmarshal(env.Response, &cards))
	require.Len(t, cards, 1)
	p := cards[0].Predictions
	require.NotNil(t, p)
	assert.NotEmpty(t, p.Percent.Home)
	assert.InDelta(t, 1.0, p.Probabilities.Home+p.Probabilities.Draw+p.Probabilities.Away, 1e-9)
}

func TestListEndpoints(t *testing.T) {
	h := newTestRouter(t)

	code, env := get(t, h, "/ratings?season=pl-2024")
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, env.Results, "nothing rated yet")

	code, env = get(t, h, "/status")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Results)
	var status []service.Status
	require.NoError(t, json.Unmarshal(env.Response, &status))
	assert.Equal(t, 1, status[0].PendingFixtures)

	code, env = get(t, h, "/backtest?season=pl-2024")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Results)

	code, env = get(t, h, "/matchup?season=pl-2024&home=Arsenal&away=Chelsea")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Results)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	get(t, h, "/odds?fixture=f1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `footstats_request_duration_seconds_count{code="200",route="/odds",surface="http"} 1`)
	assert.Contains(t, rec.Body.String(), `footstats_odds_cards_total{status="ok"} 1`)
}
