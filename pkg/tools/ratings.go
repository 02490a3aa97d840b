package tools

import (
	"context"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/protocol"
)

func FixturePredictionTool() protocol.Tool {
	return protocol.Tool{
		Name: "fixture_prediction",
		Description: `
		Predicts a stored fixture from both teams' ELO ratings. Returns win, draw and
		loss probabilities, the favoured side, predicted goals and the rating gap.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"fixture_id": {
					Type:        "string",
					Description: "The id of the fixture, as listed by upcoming_fixtures",
				},
			},
			Required: []string{"fixture_id"},
		},
	}
}

func (f *Footstats) HandleFixturePrediction(ctx context.Context, args map[string]any) (any, error) {
	id, err := stringArg(args, "fixture_id")
	if err != nil {
		return nil, err
	}
	logger.Info("Handling fixture_prediction", id)
	return f.svc.FixturePrediction(ctx, id)
}

func SeasonRatingsTool() protocol.Tool {
	return protocol.Tool{
		Name:        "season_ratings",
		Description: "Lists a season's ELO rating table, strongest team first",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"season_id": {
					Type:        "string",
					Description: "The season, such as pl-2024. The status tool lists known seasons",
				},
			},
			Required: []string{"season_id"},
		},
	}
}

func (f *Footstats) HandleSeasonRatings(ctx context.Context, args map[string]any) (any, error) {
	season, err := stringArg(args, "season_id")
	if err != nil {
		return nil, err
	}
	table, err := f.svc.SeasonRatings(ctx, season)
	if err != nil {
		return nil, err
	}
	return map[string]any{"seasonId": season, "ratings": table}, nil
}

func RebuildRatingsTool() protocol.Tool {
	return protocol.Tool{
		Name:        "rebuild_ratings",
		Description: "Discards a season's ELO ratings and replays every result in order",
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"season_id": {
					Type:        "string",
					Description: "The season to rebuild",
				},
			},
			Required: []string{"season_id"},
		},
	}
}

func (f *Footstats) HandleRebuildRatings(ctx context.Context, args map[string]any) (any, error) {
	season, err := stringArg(args, "season_id")
	if err != nil {
		return nil, err
	}
	n, err := f.svc.RebuildSeasonRatings(ctx, season)
	if err != nil {
		return nil, err
	}
	return map[string]any{"seasonId": season, "fixturesApplied": n}, nil
}
