package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/store"
)

// ProcessFinishedFixtures applies every concluded, unrated fixture to the
// ratings in the order the fixtures were played. A season whose new results
// arrived out of order, or whose rated results were corrected, is rebuilt
// from scratch instead. Returns the number of fixtures applied
func (s *Service) ProcessFinishedFixtures(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.store.PendingEloFixtures(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to load pending fixtures: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var order []string
	bySeason := make(map[string][]*store.Fixture)
	for _, f := range pending {
		if _, seen := bySeason[f.SeasonID]; !seen {
			order = append(order, f.SeasonID)
		}
		bySeason[f.SeasonID] = append(bySeason[f.SeasonID], f)
	}

	applied := 0
	for _, seasonID := range order {
		fixtures := bySeason[seasonID]

		rebuild, err := s.needsRebuild(ctx, seasonID, fixtures)
		if err != nil {
			return applied, err
		}

		if rebuild {
			logger.Warn("Out of order results, rebuilding season ratings", seasonID)
			n, err := s.rebuildLocked(ctx, seasonID)
			applied += n
			if err != nil {
				return applied, err
			}
			continue
		}

		for _, f := range fixtures {
			ok, err := s.apply(ctx, f.ID, "incremental")
			if err != nil {
				return applied, err
			}
			if ok {
				applied++
			}
		}
	}

	logger.Info("Applied fixtures to ratings", applied)
	return applied, nil
}

// needsRebuild reports whether applying fixtures incrementally would give
// a different result to replaying the season in kick-off order
func (s *Service) needsRebuild(ctx context.Context, seasonID string, fixtures []*store.Fixture) (bool, error) {
	latest, ok, err := s.store.LatestProcessedFixtureTime(ctx, seasonID)
	if err != nil {
		return false, err
	}
	for _, f := range fixtures {
		if ok && f.UTCTime.Before(latest) {
			return true, nil
		}
		rated, err := s.store.HasRatingHistory(ctx, f.ID)
		if err != nil {
			return false, err
		}
		if rated {
			return true, nil
		}
	}
	return false, nil
}

// RebuildSeasonRatings discards the season's ratings and replays every
// concluded fixture in order
func (s *Service) RebuildSeasonRatings(ctx context.Context, seasonID string) (int, error) {
	if _, err := s.store.Season(ctx, seasonID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
		}
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx, seasonID)
}

func (s *Service) rebuildLocked(ctx context.Context, seasonID string) (int, error) {
	start := time.Now()
	if err := s.store.ResetSeasonRatings(ctx, seasonID); err != nil {
		return 0, err
	}

	fixtures, err := s.store.FinishedFixtures(ctx, seasonID)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, f := range fixtures {
		ok, err := s.apply(ctx, f.ID, "rebuild")
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}

	logger.Info("Rebuilt season ratings", seasonID, applied, time.Since(start).String())
	return applied, nil
}

func (s *Service) apply(ctx context.Context, fixtureID, mode string) (bool, error) {
	change, err := s.store.ApplyFixtureRatings(ctx, s.engine, fixtureID)
	if err != nil {
		return false, err
	}
	if change == nil {
		return false, nil
	}
	s.metrics.RecordEloUpdate(mode, change.HomeAfter-change.HomeBefore)
	return true, nil
}

// TeamRating is one row of a season's rating table
type TeamRating struct {
	Position      int       `json:"position"`
	TeamID        string    `json:"teamId"`
	TeamName      string    `json:"teamName"`
	Rating        float64   `json:"rating"`
	MatchesPlayed int       `json:"matchesPlayed"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// SeasonRatings returns the season's rating table, strongest first
func (s *Service) SeasonRatings(ctx context.Context, seasonID string) ([]TeamRating, error) {
	if _, err := s.store.Season(ctx, seasonID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
		}
		return nil, err
	}

	ratings, err := s.store.SeasonRatings(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	table := make([]TeamRating, 0, len(ratings))
	for i, r := range ratings {
		name := r.TeamID
		if t, err := s.store.Team(ctx, r.TeamID); err == nil {
			name = t.Name
		}
		table = append(table, TeamRating{
			Position:      i + 1,
			TeamID:        r.TeamID,
			TeamName:      name,
			Rating:        r.Rating,
			MatchesPlayed: r.MatchesPlayed,
			LastUpdated:   r.LastUpdated,
		})
	}
	return table, nil
}
