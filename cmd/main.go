package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/richard-senior/footstats/internal/config"
	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/api"
	"github.com/richard-senior/footstats/pkg/footballdata"
	"github.com/richard-senior/footstats/pkg/server"
	"github.com/richard-senior/footstats/pkg/service"
	"github.com/richard-senior/footstats/pkg/store"
	"github.com/richard-senior/footstats/pkg/tools"
	"github.com/richard-senior/footstats/pkg/transport"
	"github.com/richard-senior/footstats/pkg/util/elo"
)

var version = "dev"

const usage = `usage: footstats [command] [flags]

commands:
  serve        answer MCP requests on stdin/stdout (default)
  http         serve the REST API
  ingest       fetch recent and upcoming fixtures from football-data.org
  import-csv   load a football-data.co.uk results file
  rebuild-elo  replay a season's ratings from scratch
  backtest     score the odds model against a season's results
`

// app is everything the commands share
type app struct {
	cfg      *config.Config
	store    *store.Store
	metrics  *metrics.Metrics
	svc      *service.Service
	ingester *footballdata.Ingester
	// client is nil without an API token
	client *footballdata.Client
}

// command registers its flags and returns the function that runs it once
// they are parsed
type command func(fs *flag.FlagSet) func(ctx context.Context, a *app) error

var commands = map[string]command{
	"serve":       serveCommand,
	"http":        httpCommand,
	"ingest":      ingestCommand,
	"import-csv":  importCSVCommand,
	"rebuild-elo": rebuildEloCommand,
	"backtest":    backtestCommand,
}

func main() {
	name, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("FOOTSTATS_CONFIG"), "YAML config file")
	run := cmd(fs)
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "footstats:", err)
		os.Exit(1)
	}
	err = run(ctx, a)
	a.store.Close()
	if err != nil {
		logger.Error("Command failed", name, err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, _ := logger.ParseLevel(cfg.Log.Level)
	logger.SetLevel(level)
	logger.SetShowDateTime(cfg.Log.ShowDateTime)
	if err := logger.SetLogOutput(rune(cfg.Log.Output[0]), cfg.Log.File); err != nil {
		return nil, err
	}
	logger.Info("Starting footstats", version)

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	m := metrics.New()
	svc := service.New(st, elo.New(cfg.Engine.Elo), cfg.Engine.League, m)

	a := &app{cfg: cfg, store: st, metrics: m, svc: svc}
	var source footballdata.MatchSource
	if cfg.FootballData.Token != "" {
		a.client = footballdata.NewClient(cfg.FootballData.BaseURL, cfg.FootballData.Token,
			cfg.FootballData.RequestsPerMinute, nil, m)
		source = a.client
	} else {
		logger.Warn("FOOTBALL_DATA_TOKEN not set, API ingestion disabled")
	}
	a.ingester = footballdata.NewIngester(st, source, svc, m)
	return a, nil
}

// schedule starts the sync job when there is something to sync from
func (a *app) schedule(ctx context.Context) func() {
	if a.client == nil || a.cfg.FootballData.Schedule == "" {
		return func() {}
	}
	fd := a.cfg.FootballData
	c, err := footballdata.Schedule(ctx, fd.Schedule, a.ingester, fd.DaysBack, fd.DaysForward)
	if err != nil {
		logger.Error("Sync disabled", err)
		return func() {}
	}
	return func() { <-c.Stop().Done() }
}

func serveCommand(*flag.FlagSet) func(context.Context, *app) error {
	return func(ctx context.Context, a *app) error {
		stopSync := a.schedule(ctx)
		defer stopSync()

		fd := a.cfg.FootballData
		var ing *footballdata.Ingester
		if a.client != nil {
			ing = a.ingester
		}

		s := server.New(transport.NewStdioTransport(), version)
		s.SetMetrics(a.metrics)
		s.RegisterTools(tools.New(a.svc, ing, fd.DaysBack, fd.DaysForward).Registrations())
		return s.Start(ctx)
	}
}

func httpCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	addr := fs.String("addr", "", "listen address (default from config)")
	return func(ctx context.Context, a *app) error {
		stopSync := a.schedule(ctx)
		defer stopSync()

		if *addr == "" {
			*addr = a.cfg.HTTP.Addr
		}
		h := api.NewAPIHandler(a.svc, a.metrics, a.cfg.HTTP.RequestTimeout)
		srv := &http.Server{
			Addr:              *addr,
			Handler:           h.SetupRoutes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errChan := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", srv.Addr)
			errChan <- srv.ListenAndServe()
		}()

		select {
		case err := <-errChan:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	}
}

func ingestCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	back := fs.Int("days-back", -1, "days before today to fetch (default from config)")
	forward := fs.Int("days-forward", -1, "days after today to fetch (default from config)")
	return func(ctx context.Context, a *app) error {
		if a.client == nil {
			return errors.New("FOOTBALL_DATA_TOKEN is required to ingest")
		}
		if *back < 0 {
			*back = a.cfg.FootballData.DaysBack
		}
		if *forward < 0 {
			*forward = a.cfg.FootballData.DaysForward
		}

		log, err := a.ingester.Ingest(ctx, *back, *forward)
		if log != nil {
			printJSON(log)
		}
		return err
	}
}

func importCSVCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	code := fs.String("league", "", "league code, e.g. PL")
	name := fs.String("name", "", "league name, defaults to the code")
	country := fs.String("country", "England", "league country")
	season := fs.Int("season", 0, "year the season started, 0 to derive it from each date")
	return func(ctx context.Context, a *app) error {
		if *code == "" {
			return errors.New("-league is required")
		}
		files := fs.Args()
		if len(files) == 0 {
			return errors.New("no CSV files given")
		}
		if *name == "" {
			*name = *code
		}
		league := footballdata.CSVLeague{Code: *code, Name: *name, Country: *country, Season: *season}

		for _, path := range files {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			log, err := a.ingester.ImportCSV(ctx, f, league)
			f.Close()
			if log != nil {
				printJSON(log)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	}
}

func rebuildEloCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	season := fs.String("season", "", "season id, e.g. pl-2024 (default every season)")
	return func(ctx context.Context, a *app) error {
		seasons := []string{*season}
		if *season == "" {
			all, err := a.store.Seasons(ctx)
			if err != nil {
				return err
			}
			seasons = seasons[:0]
			for _, s := range all {
				seasons = append(seasons, s.ID)
			}
		}

		for _, id := range seasons {
			n, err := a.svc.RebuildSeasonRatings(ctx, id)
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			logger.Info("Season rebuilt", id, n)
		}
		return nil
	}
}

func backtestCommand(fs *flag.FlagSet) func(context.Context, *app) error {
	season := fs.String("season", "", "season id, e.g. pl-2024")
	return func(ctx context.Context, a *app) error {
		if *season == "" {
			return errors.New("-season is required")
		}
		report, err := a.svc.Backtest(ctx, *season)
		if err != nil {
			return err
		}
		printJSON(report)
		return nil
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Error("Failed to write output", err)
	}
}
