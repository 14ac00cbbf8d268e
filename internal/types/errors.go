package types

import "errors"

// Sentinel errors for the indicator service.
var (
	// Data errors
	ErrInvalidPrice    = errors.New("invalid price value")
	ErrInvalidData     = errors.New("invalid market data")
	ErrDataUnavailable = errors.New("market data unavailable")

	// Persistence errors
	ErrRunNotFound    = errors.New("run not found")
	ErrSeriesNotFound = errors.New("series not found")

	// Request errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrRequestTooLarge   = errors.New("request too large")

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidSymbol = errors.New("invalid symbol")
)
