// Package persistence provides storage for computed indicator runs.
package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tathienbao/quant-ta/internal/observer"
	"github.com/tathienbao/quant-ta/pkg/indicator"
)

// Repository defines the interface for run persistence.
type Repository interface {
	// Run operations
	SaveRun(ctx context.Context, result *observer.Result) (*Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error

	// Series operations
	GetSeries(ctx context.Context, id uuid.UUID, kind indicator.Kind) (*Series, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Run represents one persisted calculator run.
type Run struct {
	ID         uuid.UUID
	Symbol     string
	CreatedAt  time.Time
	Bars       int
	Params     indicator.Params
	Indicators []indicator.Kind
}

// Series represents one persisted indicator output, aligned with the bar
// timestamps of its run.
type Series struct {
	RunID      uuid.UUID
	Kind       indicator.Kind
	Timestamps []time.Time
	Values     indicator.Output
}
