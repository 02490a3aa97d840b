// Package service answers odds and prediction requests for stored fixtures
// and keeps the ELO ratings in step with concluded results.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/util/elo"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

var (
	ErrFixtureNotFound = errors.New("fixture not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrSeasonNotFound  = errors.New("season not found")
	ErrInvalidMatchup  = errors.New("invalid matchup")
)

// Service composes the store with both engines. Reads may run concurrently;
// rating writes are serialised
type Service struct {
	store   *store.Store
	engine  *elo.Engine
	league  podds.LeagueAverage
	metrics *metrics.Metrics
	now     func() time.Time

	mu sync.Mutex // single rating writer
}

func New(st *store.Store, engine *elo.Engine, league podds.LeagueAverage, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		engine:  engine,
		league:  league,
		metrics: m,
		now:     time.Now,
	}
}

func (s *Service) Store() *store.Store {
	return s.store
}

// OddsCard is the Poisson odds for one fixture with its teams
type OddsCard struct {
	Fixture  *store.Fixture      `json:"fixture"`
	HomeTeam *store.Team         `json:"homeTeam"`
	AwayTeam *store.Team         `json:"awayTeam"`
	Odds     *podds.DetailedOdds `json:"odds"`
}

// PredictionCard is the ELO prediction for one fixture with its teams
type PredictionCard struct {
	Fixture    *store.Fixture       `json:"fixture"`
	HomeTeam   *store.Team          `json:"homeTeam"`
	AwayTeam   *store.Team          `json:"awayTeam"`
	Prediction *elo.MatchPrediction `json:"prediction"`
}

func (s *Service) loadFixture(ctx context.Context, fixtureID string) (*store.Fixture, *store.Team, *store.Team, error) {
	f, err := s.store.Fixture(ctx, fixtureID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrFixtureNotFound, fixtureID)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	home, err := s.team(ctx, f.HomeTeamID)
	if err != nil {
		return nil, nil, nil, err
	}
	away, err := s.team(ctx, f.AwayTeamID)
	if err != nil {
		return nil, nil, nil, err
	}
	return f, home, away, nil
}

func (s *Service) team(ctx context.Context, id string) (*store.Team, error) {
	t, err := s.store.Team(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, id)
	}
	return t, err
}

// FixtureOdds prices a fixture from both teams' season record up to kick-off
func (s *Service) FixtureOdds(ctx context.Context, fixtureID string) (*OddsCard, error) {
	f, home, away, err := s.loadFixture(ctx, fixtureID)
	if err != nil {
		s.metrics.RecordOddsCard(statusOf(err))
		return nil, err
	}

	homeStats, err := s.store.TeamStats(ctx, f.HomeTeamID, f.SeasonID, f.UTCTime)
	if err != nil {
		s.metrics.RecordOddsCard("error")
		return nil, err
	}
	awayStats, err := s.store.TeamStats(ctx, f.AwayTeamID, f.SeasonID, f.UTCTime)
	if err != nil {
		s.metrics.RecordOddsCard("error")
		return nil, err
	}

	odds := podds.GenerateMatchOdds(homeStats, awayStats, &s.league)
	s.metrics.RecordOddsCard("ok")
	logger.Debug("Generated odds", f.ID, odds.HomeExpectedGoals, odds.AwayExpectedGoals)

	return &OddsCard{Fixture: f, HomeTeam: home, AwayTeam: away, Odds: odds}, nil
}

// OddsFromStats prices a match between two ad-hoc scoring records
func (s *Service) OddsFromStats(home, away *podds.TeamStats) *podds.DetailedOdds {
	return podds.GenerateMatchOdds(home, away, &s.league)
}

// FixturePrediction builds the ELO prediction for a fixture. Teams without a
// stored rating are treated as new, without persisting anything
func (s *Service) FixturePrediction(ctx context.Context, fixtureID string) (*PredictionCard, error) {
	f, home, away, err := s.loadFixture(ctx, fixtureID)
	if err != nil {
		return nil, err
	}

	homeRating, err := s.store.Rating(ctx, f.HomeTeamID, f.SeasonID)
	if err != nil {
		return nil, err
	}
	awayRating, err := s.store.Rating(ctx, f.AwayTeamID, f.SeasonID)
	if err != nil {
		return nil, err
	}
	homeRating = s.engine.GetOrInitializeRating(homeRating, f.HomeTeamID, f.SeasonID)
	awayRating = s.engine.GetOrInitializeRating(awayRating, f.AwayTeamID, f.SeasonID)

	prediction := s.engine.GeneratePrediction(elo.PredictionInput{
		Home:       elo.TeamRef{ID: home.ID, Name: home.Name},
		Away:       elo.TeamRef{ID: away.ID, Name: away.Name},
		HomeRating: homeRating.Rating,
		AwayRating: awayRating.Rating,
	})
	s.metrics.RecordPrediction(string(prediction.Winner.Outcome))

	return &PredictionCard{Fixture: f, HomeTeam: home, AwayTeam: away, Prediction: prediction}, nil
}

// UpcomingFixtures lists fixtures kicking off within the next days
func (s *Service) UpcomingFixtures(ctx context.Context, days int) ([]*store.Fixture, error) {
	if days <= 0 {
		days = 7
	}
	from := s.now()
	return s.store.FixturesBetween(ctx, from, from.AddDate(0, 0, days))
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, ErrFixtureNotFound), errors.Is(err, ErrTeamNotFound):
		return "not_found"
	case err != nil:
		return "error"
	}
	return "ok"
}
