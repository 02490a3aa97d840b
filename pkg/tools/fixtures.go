package tools

import (
	"context"
	"errors"

	"github.com/richard-senior/footstats/pkg/protocol"
)

func UpcomingFixturesTool() protocol.Tool {
	return protocol.Tool{
		Name:        "upcoming_fixtures",
		Description: "Lists fixtures kicking off over the next few days with their ids",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"days": {
					Type:        "integer",
					Description: "How many days ahead to look. Defaults to 7",
				},
			},
			Required: []string{},
		},
	}
}

func (f *Footstats) HandleUpcomingFixtures(ctx context.Context, args map[string]any) (any, error) {
	days, err := intArg(args, "days", 7)
	if err != nil {
		return nil, err
	}
	fixtures, err := f.svc.UpcomingFixtures(ctx, days)
	if err != nil {
		return nil, err
	}
	return map[string]any{"days": days, "fixtures": fixtures}, nil
}

func IngestFixturesTool() protocol.Tool {
	return protocol.Tool{
		Name: "ingest_fixtures",
		Description: `
		Fetches fixtures and results from football-data.org around today, stores them
		and brings the ELO ratings up to date.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"days_back": {
					Type:        "integer",
					Description: "Days of past results to fetch",
				},
				"days_forward": {
					Type:        "integer",
					Description: "Days of upcoming fixtures to fetch",
				},
			},
			Required: []string{},
		},
	}
}

func (f *Footstats) HandleIngestFixtures(ctx context.Context, args map[string]any) (any, error) {
	if f.ingester == nil {
		return nil, errors.New("ingestion is not configured")
	}
	back, err := intArg(args, "days_back", f.daysBack)
	if err != nil {
		return nil, err
	}
	forward, err := intArg(args, "days_forward", f.daysForward)
	if err != nil {
		return nil, err
	}
	return f.ingester.Ingest(ctx, back, forward)
}

func BacktestTool() protocol.Tool {
	return protocol.Tool{
		Name: "backtest",
		Description: `
		Scores the Poisson odds model against a season's results, pricing each match
		only from what was known before kick-off.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"season_id": {
					Type:        "string",
					Description: "The season to evaluate",
				},
			},
			Required: []string{"season_id"},
		},
	}
}

func (f *Footstats) HandleBacktest(ctx context.Context, args map[string]any) (any, error) {
	season, err := stringArg(args, "season_id")
	if err != nil {
		return nil, err
	}
	report, err := f.svc.Backtest(ctx, season)
	if err != nil {
		return nil, err
	}
	// the per-fixture rows are too long for a chat reply
	return map[string]any{"seasonId": report.SeasonID, "summary": report.Summary}, nil
}

func StatusTool() protocol.Tool {
	return protocol.Tool{
		Name:        "status",
		Description: "Lists known seasons, fixtures awaiting rating and recent ingestion runs",
		InputSchema: protocol.InputSchema{
			Type:     "object",
			Required: []string{},
		},
	}
}

func (f *Footstats) HandleStatus(ctx context.Context, _ map[string]any) (any, error) {
	return f.svc.Status(ctx)
}
