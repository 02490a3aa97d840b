package tools

import (
	"context"
	"fmt"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/pkg/protocol"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

func FixtureOddsTool() protocol.Tool {
	return protocol.Tool{
		Name: "fixture_odds",
		Description: `
		Prices a stored fixture with a Poisson model built from both teams' results
		earlier in the season. Returns expected goals, fair decimal odds for home win,
		draw and away win, over/under lines from 0.5 to 5.5, both teams to score and
		the most likely scorelines.
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

func (f *Footstats) HandleFixtureOdds(ctx context.Context, args map[string]any) (any, error) {
	id, err := stringArg(args, "fixture_id")
	if err != nil {
		return nil, err
	}
	logger.Info("Handling fixture_odds", id)
	return f.svc.FixtureOdds(ctx, id)
}

func MatchupTool() protocol.Tool {
	return protocol.Tool{
		Name: "matchup_odds",
		Description: `
		Prices a match between any two teams of a season, whether or not it is scheduled,
		using the season's results so far and current ELO ratings.
		`,
		InputSchema: protocol.InputSchema{
			Type: "object",
			Properties: map[string]protocol.ToolProperty{
				"season_id": {
					Type:        "string",
					Description: "The season, such as pl-2024",
				},
				"home_team": {
					Type:        "string",
					Description: "Name or id of the home side, such as 'Arsenal' or 'man-united'",
				},
				"away_team": {
					Type:        "string",
					Description: "Name or id of the away side",
				},
			},
			Required: []string{"season_id", "home_team", "away_team"},
		},
	}
}

func (f *Footstats) HandleMatchup(ctx context.Context, args map[string]any) (any, error) {
	season, err := stringArg(args, "season_id")
	if err != nil {
		return nil, err
	}
	home, err := stringArg(args, "home_team")
	if err != nil {
		return nil, err
	}
	away, err := stringArg(args, "away_team")
	if err != nil {
		return nil, err
	}
	return f.svc.Matchup(ctx, season, home, away)
}

func ExpectedGoalsTool() protocol.Tool {
	props := map[string]protocol.ToolProperty{}
	for _, side := range []string{"home", "away"} {
		props[side+"_scored"] = protocol.ToolProperty{Type: "integer", Description: fmt.Sprintf("Goals scored by the %s side", side)}
		props[side+"_conceded"] = protocol.ToolProperty{Type: "integer", Description: fmt.Sprintf("Goals conceded by the %s side", side)}
		props[side+"_played"] = protocol.ToolProperty{Type: "integer", Description: fmt.Sprintf("Matches played by the %s side", side)}
	}
	return protocol.Tool{
		Name:        "expected_goals",
		Description: "Prices a match from raw season totals rather than stored results",
		InputSchema: protocol.InputSchema{
			Type:       "object",
			Properties: props,
			Required: []string{
				"home_scored", "home_conceded", "home_played",
				"away_scored", "away_conceded", "away_played",
			},
		},
	}
}

func (f *Footstats) HandleExpectedGoals(_ context.Context, args map[string]any) (any, error) {
	stats := map[string]*podds.TeamStats{}
	for _, side := range []string{"home", "away"} {
		scored, err := requiredIntArg(args, side+"_scored")
		if err != nil {
			return nil, err
		}
		conceded, err := requiredIntArg(args, side+"_conceded")
		if err != nil {
			return nil, err
		}
		played, err := requiredIntArg(args, side+"_played")
		if err != nil {
			return nil, err
		}
		stats[side] = &podds.TeamStats{GoalsScored: scored, GoalsConceded: conceded, MatchesPlayed: played}
	}
	return f.svc.OddsFromStats(stats["home"], stats["away"]), nil
}
