package store

import (
	"time"

	"github.com/richard-senior/footstats/pkg/util/elo"
)

// Short status codes for fixtures
const (
	StatusNotStarted = "NS"
	StatusLive       = "LIVE"
	StatusHalfTime   = "HT"
	StatusFinished   = "FT"
	StatusExtraTime  = "AET"
	StatusPenalties  = "PEN"
	StatusPostponed  = "PST"
	StatusSuspended  = "SUSP"
	StatusCancelled  = "CANC"
	StatusTBD        = "TBD"
)

// NoGoals marks a score that is not yet known
const NoGoals = -1

var (
	_ Persistable = (*League)(nil)
	_ Persistable = (*Team)(nil)
	_ Persistable = (*Season)(nil)
	_ Persistable = (*Fixture)(nil)
	_ Persistable = (*EloRating)(nil)
	_ Persistable = (*EloHistory)(nil)
	_ Persistable = (*IngestionLog)(nil)
)

// Tables lists every entity in creation order
func Tables() []Persistable {
	return []Persistable{
		&League{}, &Team{}, &Season{}, &Fixture{}, &EloRating{}, &EloHistory{}, &IngestionLog{},
	}
}

type League struct {
	ID        string    `json:"id" column:"id" dbtype:"TEXT" primary:"true"`
	Name      string    `json:"name" column:"name" dbtype:"TEXT NOT NULL"`
	Code      string    `json:"code" column:"code" dbtype:"TEXT" index:"true"`
	Country   string    `json:"country" column:"country" dbtype:"TEXT"`
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

func (l *League) GetTableName() string { return "leagues" }

type Team struct {
	ID        string    `json:"id" column:"id" dbtype:"TEXT" primary:"true"`
	Name      string    `json:"name" column:"name" dbtype:"TEXT NOT NULL" index:"true"`
	ShortName string    `json:"shortName" column:"short_name" dbtype:"TEXT"`
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updatedAt" column:"updated_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

func (t *Team) GetTableName() string { return "teams" }

// Season is one league's campaign, keyed "<league>-<start year>"
type Season struct {
	ID        string    `json:"id" column:"id" dbtype:"TEXT" primary:"true"`
	LeagueID  string    `json:"leagueId" column:"league_id" dbtype:"TEXT NOT NULL" index:"true" fk:"leagues.id"`
	Year      int       `json:"year" column:"year" dbtype:"INTEGER NOT NULL"`
	StartDate time.Time `json:"startDate" column:"start_date" dbtype:"DATETIME"`
	EndDate   time.Time `json:"endDate" column:"end_date" dbtype:"DATETIME"`
	Current   bool      `json:"current" column:"current" dbtype:"BOOLEAN DEFAULT FALSE"`
}

func (s *Season) GetTableName() string { return "seasons" }

// Fixture is a scheduled or concluded match. Goals are NoGoals until known
type Fixture struct {
	ID           string    `json:"id" column:"id" dbtype:"TEXT" primary:"true"`
	Source       string    `json:"source" column:"source" dbtype:"TEXT"`
	UTCTime      time.Time `json:"utcTime" column:"utc_time" dbtype:"DATETIME" index:"true"`
	StatusShort  string    `json:"statusShort" column:"status_short" dbtype:"TEXT" index:"true"`
	StatusLong   string    `json:"statusLong" column:"status_long" dbtype:"TEXT"`
	LeagueID     string    `json:"leagueId" column:"league_id" dbtype:"TEXT NOT NULL" fk:"leagues.id"`
	SeasonID     string    `json:"seasonId" column:"season_id" dbtype:"TEXT NOT NULL" index:"true" fk:"seasons.id"`
	Round        string    `json:"round" column:"round" dbtype:"TEXT"`
	HomeTeamID   string    `json:"homeTeamId" column:"home_team_id" dbtype:"TEXT NOT NULL" index:"true" fk:"teams.id"`
	AwayTeamID   string    `json:"awayTeamId" column:"away_team_id" dbtype:"TEXT NOT NULL" index:"true" fk:"teams.id"`
	HomeGoals    int       `json:"homeGoals" column:"home_goals" dbtype:"INTEGER DEFAULT -1"`
	AwayGoals    int       `json:"awayGoals" column:"away_goals" dbtype:"INTEGER DEFAULT -1"`
	HalftimeHome int       `json:"halftimeHome" column:"halftime_home" dbtype:"INTEGER DEFAULT -1"`
	HalftimeAway int       `json:"halftimeAway" column:"halftime_away" dbtype:"INTEGER DEFAULT -1"`
	Referee      string    `json:"referee,omitempty" column:"referee" dbtype:"TEXT"`
	Venue        string    `json:"venue,omitempty" column:"venue" dbtype:"TEXT"`
	EloProcessed bool      `json:"eloProcessed" column:"elo_processed" dbtype:"BOOLEAN DEFAULT FALSE" index:"true"`
	CreatedAt    time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updatedAt" column:"updated_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

func (f *Fixture) GetTableName() string { return "fixtures" }

// BeforeSave normalises times so that text comparisons in SQLite order correctly
func (f *Fixture) BeforeSave() error {
	f.UTCTime = f.UTCTime.UTC().Truncate(time.Second)
	return nil
}

// IsFinished reports whether the fixture has concluded with a known score
func (f *Fixture) IsFinished() bool {
	switch f.StatusShort {
	case StatusFinished, StatusExtraTime, StatusPenalties:
		return f.HomeGoals >= 0 && f.AwayGoals >= 0
	}
	return false
}

// Result returns the final score for the rating engine
func (f *Fixture) Result() elo.MatchResult {
	return elo.MatchResult{HomeGoals: f.HomeGoals, AwayGoals: f.AwayGoals}
}

// EloRating is a team's rating within one season
type EloRating struct {
	TeamID        string    `json:"teamId" column:"team_id" dbtype:"TEXT" primary:"true" fk:"teams.id"`
	SeasonID      string    `json:"seasonId" column:"season_id" dbtype:"TEXT" primary:"true" index:"true" fk:"seasons.id"`
	Rating        float64   `json:"rating" column:"rating" dbtype:"REAL NOT NULL"`
	MatchesPlayed int       `json:"matchesPlayed" column:"matches_played" dbtype:"INTEGER DEFAULT 0"`
	LastUpdated   time.Time `json:"lastUpdated" column:"last_updated" dbtype:"DATETIME"`
}

func (r *EloRating) GetTableName() string { return "elo_ratings" }

func (r *EloRating) ToRating() *elo.Rating {
	return &elo.Rating{
		TeamID:        r.TeamID,
		SeasonID:      r.SeasonID,
		Rating:        r.Rating,
		MatchesPlayed: r.MatchesPlayed,
		LastUpdated:   r.LastUpdated,
	}
}

func fromRating(r *elo.Rating) *EloRating {
	return &EloRating{
		TeamID:        r.TeamID,
		SeasonID:      r.SeasonID,
		Rating:        r.Rating,
		MatchesPlayed: r.MatchesPlayed,
		LastUpdated:   r.LastUpdated.UTC(),
	}
}

// EloHistory records the rating movement one fixture caused for one team
type EloHistory struct {
	FixtureID string    `json:"fixtureId" column:"fixture_id" dbtype:"TEXT" primary:"true" fk:"fixtures.id"`
	TeamID    string    `json:"teamId" column:"team_id" dbtype:"TEXT" primary:"true" index:"true"`
	SeasonID  string    `json:"seasonId" column:"season_id" dbtype:"TEXT NOT NULL" index:"true"`
	PlayedAt  time.Time `json:"playedAt" column:"played_at" dbtype:"DATETIME"`
	Before    float64   `json:"before" column:"rating_before" dbtype:"REAL NOT NULL"`
	After     float64   `json:"after" column:"rating_after" dbtype:"REAL NOT NULL"`
	KFactor   int       `json:"kFactor" column:"k_factor" dbtype:"INTEGER"`
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

func (h *EloHistory) GetTableName() string { return "elo_history" }

// Ingestion run states
const (
	IngestionRunning = "running"
	IngestionSuccess = "success"
	IngestionFailure = "failure"
)

// IngestionLog tracks one run of a data source import
type IngestionLog struct {
	ID               string    `json:"id" column:"id" dbtype:"TEXT" primary:"true"`
	Source           string    `json:"source" column:"source" dbtype:"TEXT NOT NULL" index:"true"`
	Type             string    `json:"type" column:"type" dbtype:"TEXT"`
	Status           string    `json:"status" column:"status" dbtype:"TEXT NOT NULL"`
	StartedAt        time.Time `json:"startedAt" column:"started_at" dbtype:"DATETIME" index:"true"`
	CompletedAt      time.Time `json:"completedAt" column:"completed_at" dbtype:"DATETIME"`
	RecordsProcessed int       `json:"recordsProcessed" column:"records_processed" dbtype:"INTEGER DEFAULT 0"`
	RecordsFailed    int       `json:"recordsFailed" column:"records_failed" dbtype:"INTEGER DEFAULT 0"`
	ErrorMessage     string    `json:"errorMessage,omitempty" column:"error_message" dbtype:"TEXT"`
	DurationMs       int64     `json:"durationMs" column:"duration_ms" dbtype:"INTEGER DEFAULT 0"`
}

func (l *IngestionLog) GetTableName() string { return "ingestion_log" }
