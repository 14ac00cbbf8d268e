// Package api serves indicator computations over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tathienbao/quant-ta/internal/metrics"
	"github.com/tathienbao/quant-ta/internal/observer"
	"github.com/tathienbao/quant-ta/internal/persistence"
	"github.com/tathienbao/quant-ta/internal/types"
	"github.com/tathienbao/quant-ta/pkg/indicator"
)

// Config holds API settings.
type Config struct {
	RateLimitPerSecond float64
	Burst              int
	MaxBars            int
	Defaults           indicator.Params
}

// DefaultConfig returns default API settings.
func DefaultConfig() Config {
	return Config{
		RateLimitPerSecond: 10,
		Burst:              10,
		MaxBars:            100_000,
		Defaults:           indicator.DefaultParams(),
	}
}

// ComputeRequest is the body of POST /v1/indicators. Series that an
// indicator does not read may be omitted.
type ComputeRequest struct {
	Indicators []string  `json:"indicators"`
	Period     int       `json:"period,omitempty"`
	Alpha      float64   `json:"alpha,omitempty"`
	Open       []float64 `json:"open,omitempty"`
	High       []float64 `json:"high,omitempty"`
	Low        []float64 `json:"low,omitempty"`
	Close      []float64 `json:"close"`
	Volume     []float64 `json:"volume,omitempty"`
}

// SeriesResponse is one computed indicator. Undefined positions encode
// as null.
type SeriesResponse struct {
	Indicator string           `json:"indicator"`
	Values    indicator.Output `json:"values"`
	Defined   int              `json:"defined"`
}

// ComputeResponse is the body of a successful computation.
type ComputeResponse struct {
	Bars    int              `json:"bars"`
	Period  int              `json:"period"`
	Alpha   float64          `json:"alpha"`
	Results []SeriesResponse `json:"results"`
}

// RunResponse describes a persisted run.
type RunResponse struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	CreatedAt  time.Time `json:"created_at"`
	Bars       int       `json:"bars"`
	Period     int       `json:"period"`
	Alpha      float64   `json:"alpha"`
	Indicators []string  `json:"indicators"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the compute API.
type Handler struct {
	cfg        Config
	calculator *observer.Calculator
	repo       persistence.Repository
	limiter    *rate.Limiter
	recorder   *metrics.Recorder
	logger     *slog.Logger
	mux        *http.ServeMux
}

// NewHandler creates the API handler. repo may be nil, in which case the
// run endpoints answer 503.
func NewHandler(cfg Config, calculator *observer.Calculator, repo persistence.Repository, recorder *metrics.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	h := &Handler{
		cfg:        cfg,
		calculator: calculator,
		repo:       repo,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.Burst),
		recorder:   recorder,
		logger:     logger,
		mux:        http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/indicators", h.handleCompute)
	h.mux.HandleFunc("GET /v1/runs", h.handleListRuns)
	h.mux.HandleFunc("GET /v1/runs/{id}", h.handleGetRun)
	h.mux.HandleFunc("GET /v1/runs/{id}/{indicator}", h.handleGetSeries)

	return h
}

// ServeHTTP applies rate limiting, then routes the request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		h.recorder.RecordRateLimited()
		w.Header().Set("Retry-After", "1")
		h.writeError(w, http.StatusTooManyRequests, types.ErrRateLimitExceeded)
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes())

	var req ComputeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, types.ErrRequestTooLarge)
			return
		}
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	kinds, err := parseKinds(req.Indicators, h.calculator.Config().Indicators)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	in := indicator.Inputs{
		Open:   req.Open,
		High:   req.High,
		Low:    req.Low,
		Close:  req.Close,
		Volume: req.Volume,
	}
	if longest(in) > h.cfg.MaxBars {
		h.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%w: more than %d bars", types.ErrRequestTooLarge, h.cfg.MaxBars))
		return
	}

	params := h.cfg.Defaults
	if req.Period != 0 {
		params.Period = req.Period
	}
	if req.Alpha != 0 {
		params.Alpha = req.Alpha
	}

	series, err := h.calculator.Compute(r.Context(), in, kinds, params)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	resp := ComputeResponse{
		Bars:    in.Len(),
		Period:  params.Period,
		Alpha:   params.Alpha,
		Results: make([]SeriesResponse, len(series)),
	}
	for i, s := range series {
		resp.Results[i] = SeriesResponse{
			Indicator: s.Kind.String(),
			Values:    s.Values,
			Defined:   s.Values.Defined(),
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("persistence disabled"))
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", s))
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), r.URL.Query().Get("symbol"), limit)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	resp := make([]RunResponse, len(runs))
	for i, run := range runs {
		resp[i] = toRunResponse(run)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("persistence disabled"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid run id: %w", err))
		return
	}

	run, err := h.repo.GetRun(r.Context(), id)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRunResponse(*run))
}

func (h *Handler) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("persistence disabled"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid run id: %w", err))
		return
	}
	kind, err := indicator.ParseKind(r.PathValue("indicator"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	series, err := h.repo.GetSeries(r.Context(), id, kind)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, SeriesResponse{
		Indicator: series.Kind.String(),
		Values:    series.Values,
		Defined:   series.Values.Defined(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	h.recorder.RecordAPIRequest(code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		h.logger.Error("api request failed", "code", code, "err", err)
		h.recorder.RecordError("api")
	} else {
		h.logger.Debug("api request rejected", "code", code, "err", err)
	}
	h.writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

// maxBodyBytes bounds a request carrying five series of MaxBars numbers.
func (h *Handler) maxBodyBytes() int64 {
	const perBar, slack = 5 * 32, 4096
	n := int64(h.cfg.MaxBars)
	if n > (math.MaxInt64-slack)/perBar {
		return math.MaxInt64
	}
	return n*perBar + slack
}

// statusFor maps engine and store errors to response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, indicator.ErrUnknownIndicator), errors.Is(err, types.ErrInvalidSymbol):
		return http.StatusBadRequest
	case errors.Is(err, indicator.ErrInvalidPeriod),
		errors.Is(err, indicator.ErrInvalidAlpha),
		errors.Is(err, indicator.ErrLengthMismatch),
		errors.Is(err, indicator.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrRunNotFound), errors.Is(err, types.ErrSeriesNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// parseKinds resolves requested indicator names, falling back to defaults
// when none are given.
func parseKinds(names []string, defaults []indicator.Kind) ([]indicator.Kind, error) {
	if len(names) == 0 {
		return defaults, nil
	}
	kinds := make([]indicator.Kind, 0, len(names))
	for _, name := range names {
		k, err := indicator.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func longest(in indicator.Inputs) int {
	n := 0
	for _, s := range [][]float64{in.Open, in.High, in.Low, in.Close, in.Volume} {
		if len(s) > n {
			n = len(s)
		}
	}
	return n
}

func toRunResponse(run persistence.Run) RunResponse {
	names := make([]string, len(run.Indicators))
	for i, k := range run.Indicators {
		names[i] = k.String()
	}
	return RunResponse{
		ID:         run.ID.String(),
		Symbol:     run.Symbol,
		CreatedAt:  run.CreatedAt,
		Bars:       run.Bars,
		Period:     run.Params.Period,
		Alpha:      run.Params.Alpha,
		Indicators: names,
	}
}
