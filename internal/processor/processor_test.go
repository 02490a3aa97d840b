package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/footstats/pkg/protocol"
	"github.com/richard-senior/footstats/pkg/server"
	"github.com/richard-senior/footstats/pkg/service"
	"github.com/richard-senior/footstats/pkg/tools"
	"github.com/richard-senior/footstats/pkg/transport"
	"github.com/richard-senior/footstats/pkg/util/elo"
	"github.com/richard-senior/footstats/pkg/util/podds"
)

func newServer() *server.Server {
	s := server.New(transport.NewStreamTransport(strings.NewReader(""), &bytes.Buffer{}), "test")
	// expected_goals never touches the store
	svc := service.New(nil, elo.NewDefault(), podds.DefaultLeagueAverage(), nil)
	s.RegisterTools(tools.New(svc, nil, 7, 14).Registrations())
	return s
}

func TestParseQuery(t *testing.T) {
	name, args, err := ParseQuery("  fixture_odds fixture_id=fd-101 ")
	require.NoError(t, err)
	assert.Equal(t, "fixture_odds", name)
	assert.Equal(t, map[string]any{"fixture_id": "fd-101"}, args)

	_, _, err = ParseQuery("")
	assert.Error(t, err)
	_, _, err = ParseQuery("fixture_odds fd-101")
	assert.Error(t, err)
}

func TestProcessShorthand(t *testing.T) {
	in := `{"query":"expected_goals home_scored=30 home_conceded=10 home_played=15 away_scored=12 away_conceded=25 away_played=15","requestId":"cli-1"}`
	out, err := ProcessRequest(context.Background(), newServer(), []byte(in))
	require.NoError(t, err)

	resp, err := protocol.ParseJsonRpcResponse(out)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Equal(t, "cli-1", resp.ID)

	var result protocol.ToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "homeExpectedGoals")
}

func TestProcessJSONRPC(t *testing.T) {
	ctx := context.Background()
	srv := newServer()

	out, err := ProcessRequest(ctx, srv, []byte(`{"jsonrpc":"2.0","id":3,"method":"ping"}`))
	require.NoError(t, err)
	resp, err := protocol.ParseJsonRpcResponse(out)
	require.NoError(t, err)
	assert.Equal(t, float64(3), resp.ID)

	out, err = ProcessRequest(ctx, srv, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = ProcessRequest(ctx, srv, []byte(`not json`))
	require.NoError(t, err)
	resp, err = protocol.ParseJsonRpcResponse(out)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrParse, resp.Error.Code)
}
