package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/util"
	"github.com/richard-senior/footstats/pkg/util/elo"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

// MatchupCard prices a pairing that need not be scheduled, using both
// engines and everything the season holds so far
type MatchupCard struct {
	SeasonID   string               `json:"seasonId"`
	HomeTeam   *store.Team          `json:"homeTeam"`
	AwayTeam   *store.Team          `json:"awayTeam"`
	Odds       *podds.DetailedOdds  `json:"odds"`
	Prediction *elo.MatchPrediction `json:"prediction"`
}

// Matchup builds odds and a prediction for home against away in the season.
// Teams may be given by id or by name
func (s *Service) Matchup(ctx context.Context, seasonID, home, away string) (*MatchupCard, error) {
	if _, err := s.store.Season(ctx, seasonID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
		}
		return nil, err
	}

	homeTeam, err := s.team(ctx, util.TeamSlug(home))
	if err != nil {
		return nil, err
	}
	awayTeam, err := s.team(ctx, util.TeamSlug(away))
	if err != nil {
		return nil, err
	}
	if homeTeam.ID == awayTeam.ID {
		return nil, fmt.Errorf("%w: %s cannot play itself", ErrInvalidMatchup, homeTeam.ID)
	}

	homeStats, err := s.store.TeamStats(ctx, homeTeam.ID, seasonID, s.now())
	if err != nil {
		return nil, err
	}
	awayStats, err := s.store.TeamStats(ctx, awayTeam.ID, seasonID, s.now())
	if err != nil {
		return nil, err
	}

	homeRating, err := s.store.Rating(ctx, homeTeam.ID, seasonID)
	if err != nil {
		return nil, err
	}
	awayRating, err := s.store.Rating(ctx, awayTeam.ID, seasonID)
	if err != nil {
		return nil, err
	}
	homeRating = s.engine.GetOrInitializeRating(homeRating, homeTeam.ID, seasonID)
	awayRating = s.engine.GetOrInitializeRating(awayRating, awayTeam.ID, seasonID)

	return &MatchupCard{
		SeasonID: seasonID,
		HomeTeam: homeTeam,
		AwayTeam: awayTeam,
		Odds:     podds.GenerateMatchOdds(homeStats, awayStats, &s.league),
		Prediction: s.engine.GeneratePrediction(elo.PredictionInput{
			Home:       elo.TeamRef{ID: homeTeam.ID, Name: homeTeam.Name},
			Away:       elo.TeamRef{ID: awayTeam.ID, Name: awayTeam.Name},
			HomeRating: homeRating.Rating,
			AwayRating: awayRating.Rating,
		}),
	}, nil
}
