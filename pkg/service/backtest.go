package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

// BacktestReport scores the Poisson model against a season's results
type BacktestReport struct {
	SeasonID string                      `json:"seasonId"`
	Summary  *podds.AggregateAccuracy    `json:"summary"`
	Fixtures []*podds.PredictionAccuracy `json:"fixtures"`
}

// Backtest prices every concluded fixture of the season using only the
// results known before it kicked off, and compares each card with the score
func (s *Service) Backtest(ctx context.Context, seasonID string) (*BacktestReport, error) {
	if _, err := s.store.Season(ctx, seasonID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
		}
		return nil, err
	}

	fixtures, err := s.store.FinishedFixtures(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	report := &BacktestReport{SeasonID: seasonID}
	for _, f := range fixtures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		homeStats, err := s.store.TeamStats(ctx, f.HomeTeamID, seasonID, f.UTCTime)
		if err != nil {
			return nil, err
		}
		awayStats, err := s.store.TeamStats(ctx, f.AwayTeamID, seasonID, f.UTCTime)
		if err != nil {
			return nil, err
		}

		odds := podds.GenerateMatchOdds(homeStats, awayStats, &s.league)
		if acc := podds.EvaluatePrediction(f.ID, odds, f.HomeGoals, f.AwayGoals); acc != nil {
			report.Fixtures = append(report.Fixtures, acc)
		}
	}

	report.Summary = podds.EvaluateAll(report.Fixtures)
	return report, nil
}
