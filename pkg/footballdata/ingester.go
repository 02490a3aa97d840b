package footballdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/store"
)

// ProgressEvery is how many records pass between progress writes
const ProgressEvery = 10

// RatingsUpdater rates fixtures that finished since the last run
type RatingsUpdater interface {
	ProcessFinishedFixtures(ctx context.Context) (int, error)
}

// Ingester writes matches from a source into the store
type Ingester struct {
	store   *store.Store
	source  MatchSource
	ratings RatingsUpdater
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewIngester creates an ingester. source and ratings may be nil; without a
// source only CSV imports work
func NewIngester(st *store.Store, source MatchSource, ratings RatingsUpdater, m *metrics.Metrics) *Ingester {
	return &Ingester{store: st, source: source, ratings: ratings, metrics: m, now: time.Now}
}

// SetClock replaces the ingester's time source
func (i *Ingester) SetClock(now func() time.Time) {
	i.now = now
}

// Ingest fetches fixtures from daysBack days ago to daysForward days ahead,
// stores them, then brings ratings up to date
func (i *Ingester) Ingest(ctx context.Context, daysBack, daysForward int) (*store.IngestionLog, error) {
	if i.source == nil {
		return nil, errors.New("no match source configured")
	}
	today := i.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -daysBack)
	to := today.AddDate(0, 0, daysForward)

	return i.run(ctx, Source, "fixtures", func(log *store.IngestionLog) error {
		matches, err := i.source.FetchMatches(ctx, from, to)
		if err != nil {
			return err
		}
		logger.Info("Received matches", len(matches))

		normalized := make([]NormalizedMatch, 0, len(matches))
		for _, m := range matches {
			normalized = append(normalized, Normalize(m))
		}
		return i.saveAll(ctx, log, normalized)
	})
}

// run wraps fn in an ingestion log and updates ratings once it succeeds
func (i *Ingester) run(ctx context.Context, source, kind string, fn func(*store.IngestionLog) error) (*store.IngestionLog, error) {
	started := i.now()
	log, err := i.store.StartIngestion(ctx, source, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to start ingestion log: %w", err)
	}

	runErr := fn(log)
	if runErr != nil {
		logger.Error("Ingestion failed", source, runErr)
	}
	if err := i.store.CompleteIngestion(ctx, log, runErr); err != nil {
		logger.Error("Failed to complete ingestion log", log.ID, err)
	}
	i.metrics.RecordIngestion(source, log.Status, log.RecordsProcessed, log.RecordsFailed, i.now().Sub(started))
	if runErr != nil {
		return log, runErr
	}

	logger.Info("Ingestion complete", source, "processed", log.RecordsProcessed, "failed", log.RecordsFailed)
	if i.ratings != nil {
		n, err := i.ratings.ProcessFinishedFixtures(ctx)
		if err != nil {
			logger.Warn("Rating update after ingestion failed", err)
		} else if n > 0 {
			logger.Info("Rated fixtures", n)
		}
	}
	return log, nil
}

// saveAll stores each match. A bad record is counted and skipped
func (i *Ingester) saveAll(ctx context.Context, log *store.IngestionLog, matches []NormalizedMatch) error {
	for n, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := SaveMatch(ctx, i.store, m); err != nil {
			logger.Error("Error processing match", m.ID, err)
			log.RecordsFailed++
		} else {
			log.RecordsProcessed++
		}
		if (n+1)%ProgressEvery == 0 {
			if err := i.store.UpdateIngestionProgress(ctx, log); err != nil {
				logger.Warn("Failed to update ingestion progress", err)
			}
		}
	}
	return nil
}

// SaveMatch resolves the match's league, season and teams and upserts the
// fixture. A fixture already stored for the same pairing in the season keeps
// its id so a match imported from two sources is held once
func SaveMatch(ctx context.Context, st *store.Store, m NormalizedMatch) error {
	if m.HomeTeamName == "" || m.AwayTeamName == "" {
		return fmt.Errorf("match %s is missing a team", m.ID)
	}
	if m.LeagueCode == "" && m.LeagueName == "" {
		return fmt.Errorf("match %s has no competition", m.ID)
	}

	league, err := st.GetOrCreateLeague(ctx, m.LeagueCode, m.LeagueName, m.Country)
	if err != nil {
		return err
	}
	season, err := st.GetOrCreateSeason(ctx, league.ID, m.Season)
	if err != nil {
		return err
	}
	home, err := st.GetOrCreateTeam(ctx, m.HomeTeamName, m.HomeShortName)
	if err != nil {
		return err
	}
	away, err := st.GetOrCreateTeam(ctx, m.AwayTeamName, m.AwayShortName)
	if err != nil {
		return err
	}
	if home.ID == away.ID {
		return fmt.Errorf("match %s has %s playing itself", m.ID, home.ID)
	}

	id := m.ID
	if existing, err := st.FixtureByTeams(ctx, season.ID, home.ID, away.ID); err != nil {
		return err
	} else if existing != nil {
		id = existing.ID
	}

	f := &store.Fixture{
		ID:           id,
		Source:       m.Source,
		UTCTime:      m.Date,
		StatusShort:  m.StatusShort,
		StatusLong:   m.StatusLong,
		LeagueID:     league.ID,
		SeasonID:     season.ID,
		Round:        m.Round,
		HomeTeamID:   home.ID,
		AwayTeamID:   away.ID,
		HomeGoals:    m.GoalsHome,
		AwayGoals:    m.GoalsAway,
		HalftimeHome: m.HalftimeHome,
		HalftimeAway: m.HalftimeAway,
		Referee:      m.Referee,
		Venue:        m.Venue,
	}
	created, err := st.UpsertFixture(ctx, f)
	if err != nil {
		return err
	}
	if created {
		logger.Debug("Created fixture", f.ID, home.Name, "v", away.Name)
	}
	return nil
}
