package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/footstats/pkg/protocol"
)

const payload = `{"matches":[]}`

func TestGetJSONDecodesContentEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Auth-Token"))
		var buf bytes.Buffer
		switch r.URL.Path {
		case "/gzip":
			gz := gzip.NewWriter(&buf)
			gz.Write([]byte(payload))
			gz.Close()
			w.Header().Set("Content-Encoding", "gzip")
		case "/br":
			br := brotli.NewWriter(&buf)
			br.Write([]byte(payload))
			br.Close()
			w.Header().Set("Content-Encoding", "br")
		default:
			buf.WriteString(payload)
		}
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	client := NewHTTPClient(5 * time.Second)
	headers := map[string]string{"X-Auth-Token": "secret"}
	for _, path := range []string{"/gzip", "/br", "/plain"} {
		data, code, err := GetJSON(context.Background(), client, srv.URL+path, headers)
		require.NoError(t, err, path)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, payload, string(data), path)
	}
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, code, err := GetJSON(context.Background(), NewHTTPClient(0), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, code)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Body, "slow down")
}

func TestStreamTransport(t *testing.T) {
	in := strings.NewReader(`
{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}
{"jsonrpc":"2.0","id":2,"method":"tools/call",
 "params":{"name":"fixture_odds","arguments":{"fixture":"a \"quoted\" {id}"}}}
`)
	var out bytes.Buffer
	tr := NewStreamTransport(in, &out)

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "tools/list", req.Method)

	req, err = tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "tools/call", req.Method)
	assert.Contains(t, string(req.Params), `a \"quoted\" {id}`)

	_, err = tr.ReadRequest()
	assert.ErrorIs(t, err, io.EOF)

	resp, err := protocol.NewJsonRpcResponse(map[string]int{"n": 1}, 2)
	require.NoError(t, err)
	require.NoError(t, tr.WriteResponse(resp))
	assert.Equal(t, `{"jsonrpc":"2.0","result":{"n":1},"id":2}`+"\n", out.String())
}
