package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/util"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

const finishedClause = "status_short IN ('FT', 'AET', 'PEN') AND home_goals >= 0 AND away_goals >= 0"

// Migrate creates every table and index that does not yet exist
func (s *Store) Migrate(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Store) error {
		for _, t := range Tables() {
			if err := tx.CreateTable(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// dbTime normalises a time for storage and comparison
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (s *Store) stamp() time.Time {
	return dbTime(s.now())
}

// GetOrCreateLeague returns the league keyed by code (or name when there is
// no code), creating it on first sight
func (s *Store) GetOrCreateLeague(ctx context.Context, code, name, country string) (*League, error) {
	key := code
	if key == "" {
		key = name
	}
	id := util.Slugify(key)
	if id == "" {
		return nil, fmt.Errorf("league needs a code or a name")
	}

	league := &League{ID: id}
	err := s.FindByPrimaryKey(ctx, league)
	if err == nil {
		return league, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	league = &League{ID: id, Name: name, Code: code, Country: country, CreatedAt: s.stamp()}
	if league.Name == "" {
		league.Name = code
	}
	if err := s.Save(ctx, league); err != nil {
		return nil, err
	}
	logger.Info("Created league", id)
	return league, nil
}

// GetOrCreateTeam resolves a team by the slug of its name
func (s *Store) GetOrCreateTeam(ctx context.Context, name, shortName string) (*Team, error) {
	id := util.TeamSlug(name)
	if id == "" {
		return nil, fmt.Errorf("team name %q has no usable characters", name)
	}

	team := &Team{ID: id}
	err := s.FindByPrimaryKey(ctx, team)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.stamp()
	team = &Team{ID: id, Name: name, ShortName: shortName, CreatedAt: now, UpdatedAt: now}
	if team.ShortName == "" {
		team.ShortName = name
	}
	if err := s.Save(ctx, team); err != nil {
		return nil, err
	}
	logger.Debug("Created team", id)
	return team, nil
}

// SeasonID builds the key of a league's season starting in year
func SeasonID(leagueID string, year int) string {
	return fmt.Sprintf("%s-%d", leagueID, year)
}

// GetOrCreateSeason returns the season starting in year. New seasons run
// from 1 August to 31 May
func (s *Store) GetOrCreateSeason(ctx context.Context, leagueID string, year int) (*Season, error) {
	season := &Season{ID: SeasonID(leagueID, year)}
	err := s.FindByPrimaryKey(ctx, season)
	if err == nil {
		return season, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	start := time.Date(year, time.August, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.May, 31, 23, 59, 59, 0, time.UTC)
	now := s.now()
	season = &Season{
		ID:        SeasonID(leagueID, year),
		LeagueID:  leagueID,
		Year:      year,
		StartDate: start,
		EndDate:   end,
		Current:   !now.Before(start) && !now.After(end),
	}
	if err := s.Save(ctx, season); err != nil {
		return nil, err
	}
	logger.Info("Created season", season.ID)
	return season, nil
}

func (s *Store) Season(ctx context.Context, id string) (*Season, error) {
	season := &Season{ID: id}
	if err := s.FindByPrimaryKey(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

// Seasons lists every season, newest first
func (s *Store) Seasons(ctx context.Context) ([]*Season, error) {
	return FindWhere[Season](ctx, s, "1 = 1 ORDER BY year DESC, id")
}

func (s *Store) Team(ctx context.Context, id string) (*Team, error) {
	team := &Team{ID: id}
	if err := s.FindByPrimaryKey(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *Store) Fixture(ctx context.Context, id string) (*Fixture, error) {
	f := &Fixture{ID: id}
	if err := s.FindByPrimaryKey(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// FixtureByTeams finds the season's fixture between home and away, or nil.
// A league season meets each pairing at each venue once
func (s *Store) FixtureByTeams(ctx context.Context, seasonID, homeTeamID, awayTeamID string) (*Fixture, error) {
	found, err := FindWhere[Fixture](ctx, s, "season_id = ? AND home_team_id = ? AND away_team_id = ? ORDER BY utc_time LIMIT 1",
		seasonID, homeTeamID, awayTeamID)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// UpsertFixture writes f, reporting whether it was new. The rating state of
// an existing fixture is carried over unless its final score changed, in
// which case the fixture is queued for rating again
func (s *Store) UpsertFixture(ctx context.Context, f *Fixture) (bool, error) {
	created := false
	err := s.WithTx(ctx, func(tx *Store) error {
		existing := &Fixture{ID: f.ID}
		err := tx.findByPrimaryKey(ctx, existing, tx.dialect.ForUpdate())
		switch {
		case errors.Is(err, ErrNotFound):
			created = true
			f.CreatedAt = tx.stamp()
			f.EloProcessed = false
		case err != nil:
			return err
		default:
			f.CreatedAt = existing.CreatedAt
			f.EloProcessed = existing.EloProcessed
			if existing.EloProcessed && (existing.HomeGoals != f.HomeGoals || existing.AwayGoals != f.AwayGoals || !f.IsFinished()) {
				logger.Warn("Result changed after rating, fixture will be re-rated", f.ID)
				f.EloProcessed = false
			}
		}
		f.UpdatedAt = tx.stamp()
		return tx.Save(ctx, f)
	})
	return created, err
}

// FinishedFixtures returns every concluded fixture of the season in the
// order it was played
func (s *Store) FinishedFixtures(ctx context.Context, seasonID string) ([]*Fixture, error) {
	return FindWhere[Fixture](ctx, s, "season_id = ? AND "+finishedClause+" ORDER BY utc_time, id", seasonID)
}

// FixturesBetween returns fixtures kicking off in [from, to), earliest first
func (s *Store) FixturesBetween(ctx context.Context, from, to time.Time) ([]*Fixture, error) {
	return FindWhere[Fixture](ctx, s, "utc_time >= ? AND utc_time < ? ORDER BY utc_time, id", dbTime(from), dbTime(to))
}

// TeamStats aggregates the team's concluded fixtures in the season into
// scoring totals, split by venue. A non-zero before limits the fixtures to
// those that kicked off earlier
func (s *Store) TeamStats(ctx context.Context, teamID, seasonID string, before time.Time) (*podds.TeamStats, error) {
	clause := "season_id = ? AND (home_team_id = ? OR away_team_id = ?) AND " + finishedClause
	args := []any{seasonID, teamID, teamID}
	if !before.IsZero() {
		clause += " AND utc_time < ?"
		args = append(args, dbTime(before))
	}

	fixtures, err := FindWhere[Fixture](ctx, s, clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures for %s: %w", teamID, err)
	}

	stats := podds.NewTeamStats()
	for _, f := range fixtures {
		if f.HomeTeamID == teamID {
			stats.AddResult(f.HomeGoals, f.AwayGoals, true)
		} else {
			stats.AddResult(f.AwayGoals, f.HomeGoals, false)
		}
	}
	return stats, nil
}
