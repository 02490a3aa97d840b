package footballdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/store"
)

var testNow = time.Date(2024, time.October, 1, 12, 0, 0, 0, time.UTC)

const matchesJSON = `{"matches":[
 {"id":101,"utcDate":"2024-09-28T14:00:00Z","status":"FINISHED","matchday":6,"venue":"Emirates Stadium",
  "area":{"name":"England"},"competition":{"name":"Premier League","code":"PL"},
  "season":{"startDate":"2024-08-16"},
  "homeTeam":{"id":57,"name":"Arsenal FC","shortName":"Arsenal"},
  "awayTeam":{"id":61,"name":"Chelsea FC","shortName":"Chelsea"},
  "score":{"fullTime":{"home":2,"away":1},"halfTime":{"home":1,"away":0}},
  "referees":[{"name":"Michael Oliver"}]},
 {"id":102,"utcDate":"2024-10-05T14:00:00Z","status":"TIMED","matchday":7,
  "area":{"name":"England"},"competition":{"name":"Premier League","code":"PL"},
  "homeTeam":{"id":61,"name":"Chelsea FC","shortName":"Chelsea"},
  "awayTeam":{"id":57,"name":"Arsenal FC","shortName":"Arsenal"},
  "score":{"fullTime":{"home":null,"away":null},"halfTime":{"home":null,"away":null}},
  "referees":[]}
]}`

func decodeMatches(t *testing.T) []APIMatch {
	t.Helper()
	var resp matchesResponse
	require.NoError(t, json.Unmarshal([]byte(matchesJSON), &resp))
	return resp.Matches
}

type fakeSource struct {
	matches  []APIMatch
	err      error
	from, to time.Time
}

func (f *fakeSource) FetchMatches(_ context.Context, from, to time.Time) ([]APIMatch, error) {
	f.from, f.to = from, to
	return f.matches, f.err
}

type fakeRatings struct{ calls int }

func (f *fakeRatings) ProcessFinishedFixtures(context.Context) (int, error) {
	f.calls++
	return 0, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	st.SetClock(func() time.Time { return testNow })
	require.NoError(t, st.Migrate(ctx))
	return st
}

func newTestIngester(t *testing.T, src MatchSource) (*Ingester, *store.Store, *fakeRatings) {
	st := newTestStore(t)
	ratings := &fakeRatings{}
	ing := NewIngester(st, src, ratings, metrics.New())
	ing.SetClock(func() time.Time { return testNow })
	return ing, st, ratings
}

func allFixtures(t *testing.T, st *store.Store) []*store.Fixture {
	t.Helper()
	fixtures, err := store.FindWhere[store.Fixture](context.Background(), st, "1 = 1 ORDER BY utc_time, id")
	require.NoError(t, err)
	return fixtures
}

func TestMapStatusShort(t *testing.T) {
	tests := map[string]string{
		"SCHEDULED": "NS",
		"TIMED":     "NS",
		"IN_PLAY":   "LIVE",
		"PAUSED":    "HT",
		"FINISHED":  "FT",
		"POSTPONED": "PST",
		"SUSPENDED": "SUSP",
		"CANCELLED": "CANC",
		"AWARDED":   "TBD",
		"":          "TBD",
	}
	for in, want := range tests {
		assert.Equal(t, want, MapStatusShort(in), in)
	}
}

func TestNormalize(t *testing.T) {
	matches := decodeMatches(t)
	require.Len(t, matches, 2)

	played := Normalize(matches[0])
	assert.Equal(t, "fd-101", played.ID)
	assert.Equal(t, time.Date(2024, time.September, 28, 14, 0, 0, 0, time.UTC), played.Date)
	assert.Equal(t, "FT", played.StatusShort)
	assert.Equal(t, "Arsenal FC", played.HomeTeamName)
	assert.Equal(t, "Chelsea", played.AwayShortName)
	assert.Equal(t, 2, played.GoalsHome)
	assert.Equal(t, 1, played.GoalsAway)
	assert.Equal(t, 1, played.HalftimeHome)
	assert.Equal(t, 0, played.HalftimeAway)
	assert.Equal(t, 2024, played.Season)
	assert.Equal(t, "6", played.Round)
	assert.Equal(t, "Michael Oliver", played.Referee)
	assert.Equal(t, "PL", played.LeagueCode)

	upcoming := Normalize(matches[1])
	assert.Equal(t, "NS", upcoming.StatusShort)
	assert.Equal(t, store.NoGoals, upcoming.GoalsHome)
	assert.Equal(t, store.NoGoals, upcoming.HalftimeAway)
	assert.Equal(t, 2024, upcoming.Season, "season derived from the date")
	assert.Empty(t, upcoming.Referee)
}

func TestSeasonYear(t *testing.T) {
	assert.Equal(t, 2024, SeasonYear(time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2023, SeasonYear(time.Date(2024, time.May, 19, 0, 0, 0, 0, time.UTC)))
}

func TestClientFetchMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/matches", r.URL.Path)
		assert.Equal(t, "2024-09-24", r.URL.Query().Get("dateFrom"))
		assert.Equal(t, "2024-10-15", r.URL.Query().Get("dateTo"))
		assert.Equal(t, "token", r.Header.Get("X-Auth-Token"))
		fmt.Fprint(w, matchesJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v4/", "token", 600, nil, metrics.New())
	matches, err := c.FetchMatches(context.Background(),
		time.Date(2024, time.September, 24, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestClientRejectsMissingMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errorCode":403,"message":"restricted"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 600, nil, nil)
	_, err := c.FetchMatches(context.Background(), testNow, testNow)
	assert.ErrorContains(t, err, "no matches data")
}

func TestIngest(t *testing.T) {
	src := &fakeSource{matches: decodeMatches(t)}
	ing, st, ratings := newTestIngester(t, src)
	ctx := context.Background()

	log, err := ing.Ingest(ctx, 7, 14)
	require.NoError(t, err)
	assert.Equal(t, store.IngestionSuccess, log.Status)
	assert.Equal(t, 2, log.RecordsProcessed)
	assert.Zero(t, log.RecordsFailed)
	assert.Equal(t, 1, ratings.calls)
	assert.Equal(t, time.Date(2024, time.September, 24, 0, 0, 0, 0, time.UTC), src.from)
	assert.Equal(t, time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC), src.to)

	fixtures := allFixtures(t, st)
	require.Len(t, fixtures, 2)
	assert.Equal(t, "fd-101", fixtures[0].ID)
	assert.Equal(t, "pl-2024", fixtures[0].SeasonID)
	assert.Equal(t, "arsenal", fixtures[0].HomeTeamID)
	assert.Equal(t, "chelsea", fixtures[0].AwayTeamID)
	assert.True(t, fixtures[0].IsFinished())
	assert.False(t, fixtures[1].IsFinished())

	// a second run updates rather than duplicates
	_, err = ing.Ingest(ctx, 7, 14)
	require.NoError(t, err)
	assert.Len(t, allFixtures(t, st), 2)

	runs, err := st.RecentIngestions(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestIngestSkipsBadRecords(t *testing.T) {
	var matches []APIMatch
	for n := 0; n < 12; n++ {
		m := decodeMatches(t)[1]
		m.ID = 200 + n
		m.HomeTeam.Name = fmt.Sprintf("Home %d", n)
		m.AwayTeam.Name = fmt.Sprintf("Away %d", n)
		if n == 4 {
			m.AwayTeam.Name = ""
		}
		matches = append(matches, m)
	}
	ing, st, _ := newTestIngester(t, &fakeSource{matches: matches})

	log, err := ing.Ingest(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, store.IngestionSuccess, log.Status)
	assert.Equal(t, 11, log.RecordsProcessed)
	assert.Equal(t, 1, log.RecordsFailed)
	assert.Len(t, allFixtures(t, st), 11)
}

func TestIngestFailure(t *testing.T) {
	ing, st, ratings := newTestIngester(t, &fakeSource{err: errors.New("upstream down")})

	log, err := ing.Ingest(context.Background(), 1, 1)
	require.Error(t, err)
	require.NotNil(t, log)
	assert.Equal(t, store.IngestionFailure, log.Status)
	assert.Equal(t, "upstream down", log.ErrorMessage)
	assert.Zero(t, ratings.calls)

	runs, err := st.RecentIngestions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.IngestionFailure, runs[0].Status)
}

const resultsCSV = `Div,Date,Time,HomeTeam,AwayTeam,FTHG,FTAG,FTR,HTHG,HTAG,HTR,Referee
E0,16/08/2024,20:00,Man United,Fulham,1,0,H,0,0,D,R Jones
E0,17/08/24,15:00,Arsenal,Wolves,2,0,H,1,0,H,J Gillett
E0,32/13/2024,15:00,Everton,Brighton,0,3,A,0,1,A,S Hooper
,,,,,,,,,,,
`

func TestParseCSV(t *testing.T) {
	league := CSVLeague{Code: "PL", Name: "Premier League", Country: "England"}
	matches, bad, err := ParseCSV(strings.NewReader(resultsCSV), league)
	require.NoError(t, err)
	assert.Equal(t, 1, bad)
	require.Len(t, matches, 2)

	first := matches[0]
	assert.Equal(t, "csv-pl-20240816-man-united-fulham", first.ID)
	assert.Equal(t, time.Date(2024, time.August, 16, 19, 0, 0, 0, time.UTC), first.Date, "BST kick off")
	assert.Equal(t, "FT", first.StatusShort)
	assert.Equal(t, 1, first.GoalsHome)
	assert.Equal(t, 0, first.GoalsAway)
	assert.Equal(t, 2024, first.Season)
	assert.Equal(t, "R Jones", first.Referee)

	assert.Equal(t, time.Date(2024, time.August, 17, 14, 0, 0, 0, time.UTC), matches[1].Date)
}

func TestParseCSVByteOrderMark(t *testing.T) {
	input := "\uFEFFDate,Time,HomeTeam,AwayTeam,FTHG,FTAG\n" +
		"16/08/2024,20:00,Man United,Fulham,1,0\n" +
		"17/08/2024,15:00,Arsenal,Wolves,2,0\n"
	matches, bad, err := ParseCSV(strings.NewReader(input), CSVLeague{Code: "PL", Name: "Premier League"})
	require.NoError(t, err)
	assert.Zero(t, bad)
	require.Len(t, matches, 2)
	assert.Equal(t, time.Date(2024, time.August, 16, 19, 0, 0, 0, time.UTC), matches[0].Date)
	assert.Equal(t, "Arsenal", matches[1].HomeTeamName)
	assert.Equal(t, 2, matches[1].GoalsHome)
}

func TestParseCSVRequiresColumns(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("Div,Date\nE0,16/08/2024\n"), CSVLeague{Code: "PL"})
	assert.ErrorContains(t, err, "HomeTeam")
}

func TestImportCSVMergesWithAPIFixtures(t *testing.T) {
	src := &fakeSource{matches: decodeMatches(t)[:1]}
	ing, st, ratings := newTestIngester(t, src)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, 7, 14)
	require.NoError(t, err)

	csvData := "Date,Time,HomeTeam,AwayTeam,FTHG,FTAG\n28/09/2024,15:00,Arsenal,Chelsea,2,1\n21/09/2024,15:00,Chelsea,Arsenal,0,0\n"
	log, err := ing.ImportCSV(ctx, strings.NewReader(csvData), CSVLeague{Code: "PL", Name: "Premier League"})
	require.NoError(t, err)
	assert.Equal(t, 2, log.RecordsProcessed)
	assert.Equal(t, 2, ratings.calls)

	fixtures := allFixtures(t, st)
	require.Len(t, fixtures, 2)
	ids := []string{fixtures[0].ID, fixtures[1].ID}
	assert.Contains(t, ids, "fd-101")
	assert.Contains(t, ids, "csv-pl-20240921-chelsea-arsenal")
}
