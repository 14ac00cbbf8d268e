package observer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tathienbao/quant-ta/internal/metrics"
	"github.com/tathienbao/quant-ta/internal/types"
	"github.com/tathienbao/quant-ta/pkg/indicator"
)

// CalculatorConfig holds configuration for the indicator calculator.
type CalculatorConfig struct {
	Indicators []indicator.Kind
	Params     indicator.Params
}

// DefaultCalculatorConfig runs every indicator with default parameters.
func DefaultCalculatorConfig() CalculatorConfig {
	return CalculatorConfig{
		Indicators: indicator.Kinds(),
		Params:     indicator.DefaultParams(),
	}
}

// IndicatorSeries is one computed indicator.
type IndicatorSeries struct {
	Kind   indicator.Kind
	Params indicator.Params
	Values indicator.Output
}

// Result holds every indicator computed over one bar history.
type Result struct {
	Symbol     string
	Timestamps []time.Time
	Series     []IndicatorSeries
}

// Lookup returns the series for kind, if it was computed.
func (r *Result) Lookup(kind indicator.Kind) (IndicatorSeries, bool) {
	for _, s := range r.Series {
		if s.Kind == kind {
			return s, true
		}
	}
	return IndicatorSeries{}, false
}

// Calculator runs a configured set of indicators over bar histories.
// It holds no per-series state, so one Calculator may serve concurrent
// callers.
type Calculator struct {
	cfg      CalculatorConfig
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewCalculator creates a new indicator calculator.
func NewCalculator(cfg CalculatorConfig, recorder *metrics.Recorder, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	return &Calculator{
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
	}
}

// Config returns the calculator configuration.
func (c *Calculator) Config() CalculatorConfig {
	return c.cfg
}

// Run validates the bars and computes every configured indicator.
func (c *Calculator) Run(ctx context.Context, bars types.Bars) (*Result, error) {
	if err := bars.Validate(); err != nil {
		return nil, fmt.Errorf("validate bars: %w", err)
	}

	series, err := c.Compute(ctx, bars.Inputs(), c.cfg.Indicators, c.cfg.Params)
	if err != nil {
		return nil, err
	}

	return &Result{
		Symbol:     bars[0].Symbol,
		Timestamps: bars.Timestamps(),
		Series:     series,
	}, nil
}

// Compute runs the given indicators over aligned inputs. Indicators run
// concurrently on the shared read-only inputs; results keep the order of
// kinds. The first failing indicator in that order determines the error.
func (c *Calculator) Compute(ctx context.Context, in indicator.Inputs, kinds []indicator.Kind, params indicator.Params) ([]IndicatorSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series := make([]IndicatorSeries, len(kinds))
	errs := make([]error, len(kinds))

	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind indicator.Kind) {
			defer wg.Done()
			series[i], errs[i] = c.computeOne(kind, in, params)
		}(i, kind)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("compute %s: %w", kinds[i], err)
		}
	}
	return series, nil
}

func (c *Calculator) computeOne(kind indicator.Kind, in indicator.Inputs, params indicator.Params) (IndicatorSeries, error) {
	timer := metrics.NewTimer()
	out, err := indicator.Compute(kind, in, params)
	elapsed := timer.Elapsed()

	if err != nil {
		c.recorder.RecordComputation(kind.String(), elapsed, 0, err)
		c.logger.Warn("indicator failed", "indicator", kind.String(), "err", err)
		return IndicatorSeries{}, err
	}

	undefined := undefinedAfterWarmUp(out, params.Period)
	c.recorder.RecordComputation(kind.String(), elapsed, undefined, nil)
	c.logger.Debug("indicator computed",
		"indicator", kind.String(),
		"period", params.Period,
		"bars", len(out),
		"defined", out.Defined(),
		"undefined", undefined,
		"elapsed", elapsed,
	)

	return IndicatorSeries{Kind: kind, Params: params, Values: out}, nil
}

// undefinedAfterWarmUp counts positions a domain error left undefined.
func undefinedAfterWarmUp(out indicator.Output, period int) int {
	if period >= len(out) {
		return 0
	}
	n := 0
	for _, v := range out[period:] {
		if !v.Valid {
			n++
		}
	}
	return n
}
