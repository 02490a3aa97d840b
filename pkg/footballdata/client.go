// Package footballdata imports fixtures and results from football-data.org
// and from football-data.co.uk CSV files.
package footballdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/transport"
)

// Source is the name recorded against API imports
const Source = "football-data.org"

// MatchSource supplies matches for a date range
type MatchSource interface {
	FetchMatches(ctx context.Context, from, to time.Time) ([]APIMatch, error)
}

// Client talks to the football-data.org v4 API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// NewClient creates a client allowing requestsPerMinute calls. A nil
// httpClient uses transport.NewHTTPClient
func NewClient(baseURL, token string, requestsPerMinute int, httpClient *http.Client, m *metrics.Metrics) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(30 * time.Second)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		metrics: m,
	}
}

type matchesResponse struct {
	Matches []APIMatch `json:"matches"`
}

// FetchMatches returns every match between from and to inclusive
func (c *Client) FetchMatches(ctx context.Context, from, to time.Time) ([]APIMatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("dateFrom", from.Format(time.DateOnly))
	q.Set("dateTo", to.Format(time.DateOnly))
	endpoint := c.baseURL + "/matches?" + q.Encode()

	headers := map[string]string{}
	if c.token != "" {
		headers["X-Auth-Token"] = c.token
	}

	logger.Info("Fetching matches", from.Format(time.DateOnly), to.Format(time.DateOnly))
	data, code, err := transport.GetJSON(ctx, c.http, endpoint, headers)
	if code != 0 {
		c.metrics.RecordUpstream(Source, code)
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching matches: %w", err)
	}

	var resp matchesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}
	if resp.Matches == nil {
		return nil, fmt.Errorf("no matches data received from API")
	}
	return resp.Matches, nil
}
