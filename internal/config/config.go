package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/util/elo"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

// Defaults for configuration values.
const (
	DefaultDatabaseDriver     = "sqlite"
	DefaultDatabaseDSN        = "footstats.db"
	DefaultFootballDataURL    = "https://api.football-data.org/v4"
	DefaultRequestsPerMinute  = 10
	DefaultDaysBack           = 7
	DefaultDaysForward        = 14
	DefaultSyncSchedule       = "0 */6 * * *"
	DefaultHTTPAddr           = ":8080"
	DefaultHTTPRequestTimeout = 30 * time.Second
	DefaultLogLevel           = "INFO"
	DefaultLogOutput          = "c"
)

// Config holds all application configuration.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	FootballData FootballDataConfig `yaml:"football_data"`
	Engine       EngineConfig       `yaml:"engine"`
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection string for postgres
}

type FootballDataConfig struct {
	BaseURL           string `yaml:"base_url"`
	Token             string `yaml:"token"`
	RequestsPerMinute int    `yaml:"requests_per_minute"` // free tier allows 10
	DaysBack          int    `yaml:"days_back"`
	DaysForward       int    `yaml:"days_forward"`
	Schedule          string `yaml:"schedule"` // cron expression for the sync job
}

type EngineConfig struct {
	League podds.LeagueAverage `yaml:"league"`
	Elo    elo.Config          `yaml:"elo"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level        string `yaml:"level"`
	Output       string `yaml:"output"` // c, f or b
	File         string `yaml:"file"`
	ShowDateTime bool   `yaml:"show_date_time"`
}

// Default returns a fully populated configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DefaultDatabaseDriver,
			DSN:    DefaultDatabaseDSN,
		},
		FootballData: FootballDataConfig{
			BaseURL:           DefaultFootballDataURL,
			RequestsPerMinute: DefaultRequestsPerMinute,
			DaysBack:          DefaultDaysBack,
			DaysForward:       DefaultDaysForward,
			Schedule:          DefaultSyncSchedule,
		},
		Engine: EngineConfig{
			League: podds.DefaultLeagueAverage(),
			Elo:    elo.DefaultConfig(),
		},
		HTTP: HTTPConfig{
			Addr:           DefaultHTTPAddr,
			RequestTimeout: DefaultHTTPRequestTimeout,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Output: DefaultLogOutput,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then the environment (and .env file if present), and validates it
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	} else if dsn := postgresDSNFromParts(); dsn != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.DSN = dsn
	}

	if v := os.Getenv("FOOTBALL_DATA_TOKEN"); v != "" {
		cfg.FootballData.Token = v
	}
	if v := os.Getenv("FOOTBALL_DATA_URL"); v != "" {
		cfg.FootballData.BaseURL = v
	}
	if v := os.Getenv("FOOTBALL_DATA_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FootballData.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("SYNC_DAYS_BACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FootballData.DaysBack = n
		}
	}
	if v := os.Getenv("SYNC_DAYS_FORWARD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FootballData.DaysForward = n
		}
	}
	if v := os.Getenv("SYNC_SCHEDULE"); v != "" {
		cfg.FootballData.Schedule = v
	}

	if v := os.Getenv("LEAGUE_GOALS_PER_MATCH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.League.GoalsPerMatch = f
			cfg.Engine.Elo.LeagueAverageGoals = f
		}
	}
	if v := os.Getenv("LEAGUE_HOME_ADVANTAGE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.League.HomeAdvantage = f
		}
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Addr = ":" + v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		cfg.Log.Output = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// postgresDSNFromParts builds a connection URL from DB_HOST, DB_PORT,
// DB_NAME, DB_USER and DB_PASSWORD. Empty when DB_HOST is unset
func postgresDSNFromParts() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	name := os.Getenv("DB_NAME")
	if name == "" {
		name = "footstats"
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	if user := os.Getenv("DB_USER"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DB_PASSWORD"))
	}
	return u.String()
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.FootballData.RequestsPerMinute <= 0 {
		return fmt.Errorf("FOOTBALL_DATA_RPM must be positive, got %d", cfg.FootballData.RequestsPerMinute)
	}
	if cfg.FootballData.DaysBack < 0 || cfg.FootballData.DaysForward < 0 {
		return fmt.Errorf("sync window must be non-negative, got %d/%d", cfg.FootballData.DaysBack, cfg.FootballData.DaysForward)
	}
	if err := cfg.Engine.League.Validate(); err != nil {
		return fmt.Errorf("engine.league: %w", err)
	}
	if err := cfg.Engine.Elo.Validate(); err != nil {
		return fmt.Errorf("engine.elo: %w", err)
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if !strings.Contains("cfb", cfg.Log.Output) || len(cfg.Log.Output) != 1 {
		return fmt.Errorf("LOG_OUTPUT must be one of c, f or b, got %q", cfg.Log.Output)
	}
	return nil
}
