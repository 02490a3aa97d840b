// Package api serves odds, predictions and ratings over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/richard-senior/footstats/internal/logger"
	"github.com/richard-senior/footstats/internal/metrics"
	"github.com/richard-senior/footstats/pkg/service"
)

// Envelope wraps every response
type Envelope struct {
	Get        string            `json:"get"`
	Parameters map[string]string `json:"parameters"`
	Errors     []string          `json:"errors"`
	Results    int               `json:"results"`
	Response   any               `json:"response"`
}

// errBadRequest marks a problem with the caller's parameters
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(format string, v ...any) error {
	return errBadRequest{msg: fmt.Sprintf(format, v...)}
}

// APIHandler handles HTTP requests for the footstats service
type APIHandler struct {
	svc     *service.Service
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewAPIHandler creates a new API handler. A zero timeout leaves requests
// unbounded
func NewAPIHandler(svc *service.Service, m *metrics.Metrics, timeout time.Duration) *APIHandler {
	return &APIHandler{svc: svc, metrics: m, timeout: timeout}
}

type endpoint func(r *http.Request) (any, error)

// SetupRoutes configures the HTTP routes
func (h *APIHandler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.instrument)

	r.Handle("/odds", h.serve("odds", h.handleOdds)).Methods("GET")
	r.Handle("/predictions", h.serve("predictions", h.handlePredictions)).Methods("GET")
	r.Handle("/matchup", h.serve("matchup", h.handleMatchup)).Methods("GET")
	r.Handle("/ratings", h.serve("ratings", h.handleRatings)).Methods("GET")
	r.Handle("/fixtures", h.serve("fixtures", h.handleFixtures)).Methods("GET")
	r.Handle("/backtest", h.serve("backtest", h.handleBacktest)).Methods("GET")
	r.Handle("/status", h.serve("status", h.handleStatus)).Methods("GET")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, &Envelope{
			Get:        r.URL.Path,
			Parameters: params(r),
			Errors:     []string{"no such endpoint"},
		})
	})
	return r
}

// serve runs fn and wraps its result, or its error, in an Envelope
func (h *APIHandler) serve(name string, fn endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.timeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
			defer cancel()
			r = r.WithContext(ctx)
		}

		env := &Envelope{Get: name, Parameters: params(r), Errors: []string{}}
		result, err := fn(r)
		if err != nil {
			code := statusFor(err)
			if code == http.StatusInternalServerError {
				logger.Error("Request failed", r.URL.String(), err)
			}
			env.Errors = append(env.Errors, err.Error())
			env.Response = []any{}
			writeEnvelope(w, code, env)
			return
		}

		env.Response = result
		env.Results = count(result)
		writeEnvelope(w, http.StatusOK, env)
	})
}

func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case errors.As(err, &bad), errors.Is(err, service.ErrInvalidMatchup):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrFixtureNotFound),
		errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, service.ErrSeasonNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func params(r *http.Request) map[string]string {
	out := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func count(result any) int {
	switch v := result.(type) {
	case nil:
		return 0
	case []any:
		return len(v)
	}
	return 1
}

func writeEnvelope(w http.ResponseWriter, code int, env *Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Warn("Failed to write response", err)
	}
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records the latency of every routed request
func (h *APIHandler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.RecordRequest("http", route, rec.code, time.Since(start))
		logger.Debug("HTTP", r.Method, route, rec.code)
	})
}

func requiredQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", badRequest("the %s parameter is required", name)
	}
	return v, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("the %s parameter must be a non-negative integer", name)
	}
	return n, nil
}

func (h *APIHandler) handleOdds(r *http.Request) (any, error) {
	id, err := requiredQuery(r, "fixture")
	if err != nil {
		return nil, err
	}
	card, err := h.svc.FixtureOdds(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return []any{NewOddsResponse(card)}, nil
}

func (h *APIHandler) handlePredictions(r *http.Request) (any, error) {
	id, err := requiredQuery(r, "fixture")
	if err != nil {
		return nil, err
	}
	card, err := h.svc.FixturePrediction(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return []any{NewPredictionResponse(card)}, nil
}

func (h *APIHandler) handleMatchup(r *http.Request) (any, error) {
	season, err := requiredQuery(r, "season")
	if err != nil {
		return nil, err
	}
	home, err := requiredQuery(r, "home")
	if err != nil {
		return nil, err
	}
	away, err := requiredQuery(r, "away")
	if err != nil {
		return nil, err
	}
	card, err := h.svc.Matchup(r.Context(), season, home, away)
	if err != nil {
		return nil, err
	}
	return []any{card}, nil
}

func (h *APIHandler) handleRatings(r *http.Request) (any, error) {
	season, err := requiredQuery(r, "season")
	if err != nil {
		return nil, err
	}
	table, err := h.svc.SeasonRatings(r.Context(), season)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(table))
	for i := range table {
		out[i] = table[i]
	}
	return out, nil
}

func (h *APIHandler) handleFixtures(r *http.Request) (any, error) {
	days, err := intQuery(r, "days", 7)
	if err != nil {
		return nil, err
	}
	fixtures, err := h.svc.UpcomingFixtures(r.Context(), days)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(fixtures))
	for i, f := range fixtures {
		out[i] = f
	}
	return out, nil
}

func (h *APIHandler) handleBacktest(r *http.Request) (any, error) {
	season, err := requiredQuery(r, "season")
	if err != nil {
		return nil, err
	}
	report, err := h.svc.Backtest(r.Context(), season)
	if err != nil {
		return nil, err
	}
	return []any{report}, nil
}

func (h *APIHandler) handleStatus(r *http.Request) (any, error) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		return nil, err
	}
	return []any{status}, nil
}
