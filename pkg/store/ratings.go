package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richard-senior/footstats/pkg/util/elo"
)

// Rating returns the stored rating of a team in a season, or nil when the
// team has not been rated yet
func (s *Store) Rating(ctx context.Context, teamID, seasonID string) (*elo.Rating, error) {
	return s.rating(ctx, teamID, seasonID, "")
}

func (s *Store) rating(ctx context.Context, teamID, seasonID, suffix string) (*elo.Rating, error) {
	row := &EloRating{TeamID: teamID, SeasonID: seasonID}
	err := s.findByPrimaryKey(ctx, row, suffix)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.ToRating(), nil
}

func (s *Store) SaveRating(ctx context.Context, r *elo.Rating) error {
	row := fromRating(r)
	row.LastUpdated = dbTime(row.LastUpdated)
	return s.Save(ctx, row)
}

// SeasonRatings lists the season's ratings, strongest first
func (s *Store) SeasonRatings(ctx context.Context, seasonID string) ([]*elo.Rating, error) {
	rows, err := FindWhere[EloRating](ctx, s, "season_id = ? ORDER BY rating DESC, team_id", seasonID)
	if err != nil {
		return nil, err
	}
	out := make([]*elo.Rating, len(rows))
	for i, r := range rows {
		out[i] = r.ToRating()
	}
	return out, nil
}

// PendingEloFixtures returns concluded fixtures not yet applied to ratings
// in the order they were played. An empty seasonID covers every season
func (s *Store) PendingEloFixtures(ctx context.Context, seasonID string) ([]*Fixture, error) {
	clause := finishedClause + " AND elo_processed = ?"
	args := []any{false}
	if seasonID != "" {
		clause += " AND season_id = ?"
		args = append(args, seasonID)
	}
	return FindWhere[Fixture](ctx, s, clause+" ORDER BY utc_time, id", args...)
}

// LatestProcessedFixtureTime returns the kick-off of the most recent fixture
// applied to the season's ratings. ok is false when none has been applied
func (s *Store) LatestProcessedFixtureTime(ctx context.Context, seasonID string) (time.Time, bool, error) {
	rows, err := FindWhere[Fixture](ctx, s, "season_id = ? AND elo_processed = ? ORDER BY utc_time DESC LIMIT 1", seasonID, true)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(rows) == 0 {
		return time.Time{}, false, nil
	}
	return rows[0].UTCTime, true, nil
}

// HasRatingHistory reports whether the fixture has moved ratings before
func (s *Store) HasRatingHistory(ctx context.Context, fixtureID string) (bool, error) {
	rows, err := FindWhere[EloHistory](ctx, s, "fixture_id = ?", fixtureID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// RatingHistory returns a team's rating movements in a season, oldest first
func (s *Store) RatingHistory(ctx context.Context, teamID, seasonID string) ([]*EloHistory, error) {
	return FindWhere[EloHistory](ctx, s,
		"team_id = ? AND season_id = ? ORDER BY played_at, fixture_id", teamID, seasonID)
}

// ResetSeasonRatings discards every rating and rating movement of the season
// and marks its fixtures as unrated
func (s *Store) ResetSeasonRatings(ctx context.Context, seasonID string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.exec(ctx, "DELETE FROM elo_history WHERE season_id = ?", seasonID); err != nil {
			return fmt.Errorf("failed to clear rating history: %w", err)
		}
		if _, err := tx.exec(ctx, "DELETE FROM elo_ratings WHERE season_id = ?", seasonID); err != nil {
			return fmt.Errorf("failed to clear ratings: %w", err)
		}
		if _, err := tx.exec(ctx, "UPDATE fixtures SET elo_processed = ? WHERE season_id = ?", false, seasonID); err != nil {
			return fmt.Errorf("failed to reset fixtures: %w", err)
		}
		return nil
	})
}

// ApplyFixtureRatings applies one concluded fixture to both teams' season
// ratings. The reads, the rating writes, the history and the processed flag
// all happen in one transaction, so a fixture is applied at most once.
// Returns nil when the fixture is unfinished or already applied
func (s *Store) ApplyFixtureRatings(ctx context.Context, engine *elo.Engine, fixtureID string) (*elo.RatingChange, error) {
	var change *elo.RatingChange
	err := s.WithTx(ctx, func(tx *Store) error {
		lock := tx.dialect.ForUpdate()

		f := &Fixture{ID: fixtureID}
		if err := tx.findByPrimaryKey(ctx, f, lock); err != nil {
			return err
		}
		if f.EloProcessed || !f.IsFinished() {
			return nil
		}

		home, err := tx.rating(ctx, f.HomeTeamID, f.SeasonID, lock)
		if err != nil {
			return err
		}
		away, err := tx.rating(ctx, f.AwayTeamID, f.SeasonID, lock)
		if err != nil {
			return err
		}
		home = engine.GetOrInitializeRating(home, f.HomeTeamID, f.SeasonID)
		away = engine.GetOrInitializeRating(away, f.AwayTeamID, f.SeasonID)

		c := engine.ApplyMatch(home, away, f.Result(), f.UTCTime)

		if err := tx.SaveRating(ctx, home); err != nil {
			return err
		}
		if err := tx.SaveRating(ctx, away); err != nil {
			return err
		}

		now := tx.stamp()
		history := []*EloHistory{
			{FixtureID: f.ID, TeamID: f.HomeTeamID, SeasonID: f.SeasonID, PlayedAt: f.UTCTime, Before: c.HomeBefore, After: c.HomeAfter, KFactor: c.HomeK, CreatedAt: now},
			{FixtureID: f.ID, TeamID: f.AwayTeamID, SeasonID: f.SeasonID, PlayedAt: f.UTCTime, Before: c.AwayBefore, After: c.AwayAfter, KFactor: c.AwayK, CreatedAt: now},
		}
		for _, h := range history {
			if err := tx.Save(ctx, h); err != nil {
				return err
			}
		}

		f.EloProcessed = true
		f.UpdatedAt = now
		if err := tx.Save(ctx, f); err != nil {
			return err
		}
		change = &c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply ratings for fixture %s: %w", fixtureID, err)
	}
	return change, nil
}
