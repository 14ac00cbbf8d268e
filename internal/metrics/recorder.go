package metrics

import (
	"strconv"
	"time"
)

// Recorder provides methods for recording metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordComputation records one indicator run. undefined counts positions
// past warm-up that came out undefined.
func (r *Recorder) RecordComputation(indicator string, duration time.Duration, undefined int, err error) {
	if err != nil {
		ComputationsTotal.WithLabelValues(indicator, "error").Inc()
		return
	}
	ComputationsTotal.WithLabelValues(indicator, "ok").Inc()
	ComputationLatency.WithLabelValues(indicator).Observe(duration.Seconds())
	if undefined > 0 {
		UndefinedValuesTotal.WithLabelValues(indicator).Add(float64(undefined))
	}
}

// RecordBarsLoaded records a parsed data file.
func (r *Recorder) RecordBarsLoaded(bars, skipped int) {
	BarsLoaded.Add(float64(bars))
	RowsSkipped.Add(float64(skipped))
}

// RecordRunPersisted records a run saved to the result store.
func (r *Recorder) RecordRunPersisted() {
	RunsPersisted.Inc()
}

// RecordAPIRequest records a compute API response code.
func (r *Recorder) RecordAPIRequest(code int) {
	APIRequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func (r *Recorder) RecordRateLimited() {
	APIRateLimited.Inc()
}

// RecordError records an error.
func (r *Recorder) RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// Timer is a helper for measuring latency.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed duration.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
