// Package tools exposes the footstats service as MCP tools.
package tools

import (
	"context"
	"fmt"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/footballdata"
	"github.com/richard-senior/footstats/pkg/protocol"
	"github.com/richard-senior/footstats/pkg/service"
	"github.com/richard-senior/footstats/pkg/util"
)

// Handler runs a tool against its call arguments
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Registration pairs a tool description with the handler that runs it
type Registration struct {
	Tool    protocol.Tool
	Handler Handler
}

// Footstats holds what the tools need to answer. The ingester may be nil,
// in which case ingest_fixtures is not offered
type Footstats struct {
	svc         *service.Service
	ingester    *footballdata.Ingester
	daysBack    int
	daysForward int
}

// New creates the tool set. daysBack and daysForward are the default sync
// window for ingest_fixtures
func New(svc *service.Service, ingester *footballdata.Ingester, daysBack, daysForward int) *Footstats {
	return &Footstats{svc: svc, ingester: ingester, daysBack: daysBack, daysForward: daysForward}
}

// Registrations lists every tool on offer
func (f *Footstats) Registrations() []Registration {
	regs := []Registration{
		{FixtureOddsTool(), f.HandleFixtureOdds},
		{FixturePredictionTool(), f.HandleFixturePrediction},
		{MatchupTool(), f.HandleMatchup},
		{ExpectedGoalsTool(), f.HandleExpectedGoals},
		{SeasonRatingsTool(), f.HandleSeasonRatings},
		{RebuildRatingsTool(), f.HandleRebuildRatings},
		{UpcomingFixturesTool(), f.HandleUpcomingFixtures},
		{BacktestTool(), f.HandleBacktest},
		{StatusTool(), f.HandleStatus},
	}
	if f.ingester != nil {
		regs = append(regs, Registration{IngestFixturesTool(), f.HandleIngestFixtures})
	} else {
		logger.Debug("No ingester configured, ingest_fixtures disabled")
	}
	return regs
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("no %s parameter was sent", name)
	}
	s, err := util.GetAsString(v)
	if err != nil || s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", name)
	}
	return s, nil
}

func intArg(args map[string]any, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	n, err := util.GetAsInteger(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return n, nil
}

func requiredIntArg(args map[string]any, name string) (int, error) {
	if v, ok := args[name]; !ok || v == nil {
		return 0, fmt.Errorf("no %s parameter was sent", name)
	}
	return intArg(args, name, 0)
}
