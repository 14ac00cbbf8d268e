package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tathienbao/quant-ta/internal/observer"
	"github.com/tathienbao/quant-ta/internal/types"
	"github.com/tathienbao/quant-ta/pkg/indicator"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite repository.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db, now: time.Now}

	// Run migrations
	if err := repo.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

// Migrate runs database migrations.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			bars INTEGER NOT NULL,
			period INTEGER NOT NULL,
			alpha REAL NOT NULL,
			indicators TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS indicator_values (
			run_id TEXT NOT NULL,
			indicator TEXT NOT NULL,
			position INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			value REAL,
			PRIMARY KEY (run_id, indicator, position)
		)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// SaveRun stores a calculator result under a fresh run id. Undefined
// positions are stored as NULL.
func (r *SQLiteRepository) SaveRun(ctx context.Context, result *observer.Result) (*Run, error) {
	if result == nil {
		return nil, fmt.Errorf("save run: %w", types.ErrDataUnavailable)
	}

	run := &Run{
		ID:        uuid.New(),
		Symbol:    result.Symbol,
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
		Bars:      len(result.Timestamps),
	}
	for _, s := range result.Series {
		if len(s.Values) != len(result.Timestamps) {
			return nil, fmt.Errorf("save run: %s has %d values for %d bars: %w",
				s.Kind, len(s.Values), len(result.Timestamps), types.ErrInvalidData)
		}
		run.Indicators = append(run.Indicators, s.Kind)
	}
	if len(result.Series) > 0 {
		run.Params = result.Series[0].Params
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, symbol, created_at, bars, period, alpha, indicators) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.Symbol,
		run.CreatedAt,
		run.Bars,
		run.Params.Period,
		run.Params.Alpha,
		joinKinds(run.Indicators),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO indicator_values (run_id, indicator, position, timestamp, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare values: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range result.Series {
		for i, v := range s.Values {
			value := sql.NullFloat64{Float64: v.Float64, Valid: v.Valid}
			if _, err := stmt.ExecContext(ctx, run.ID.String(), s.Kind.String(), i, result.Timestamps[i], value); err != nil {
				return nil, fmt.Errorf("insert %s value %d: %w", s.Kind, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}

	return run, nil
}

// GetRun returns the run with the given id.
func (r *SQLiteRepository) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `SELECT id, symbol, created_at, bars, period, alpha, indicators FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs first. An empty symbol lists runs
// for every symbol; a non-positive limit lists them all.
func (r *SQLiteRepository) ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error) {
	query := `SELECT id, symbol, created_at, bars, period, alpha, indicators FROM runs`
	var args []interface{}

	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetSeries returns one indicator output of a run.
func (r *SQLiteRepository) GetSeries(ctx context.Context, id uuid.UUID, kind indicator.Kind) (*Series, error) {
	run, err := r.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT timestamp, value FROM indicator_values
		WHERE run_id = ? AND indicator = ? ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, id.String(), kind.String())
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer func() { _ = rows.Close() }()

	series := &Series{
		RunID:      run.ID,
		Kind:       kind,
		Timestamps: make([]time.Time, 0, run.Bars),
		Values:     make(indicator.Output, 0, run.Bars),
	}
	for rows.Next() {
		var ts time.Time
		var value sql.NullFloat64

		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		series.Timestamps = append(series.Timestamps, ts.UTC())
		series.Values = append(series.Values, indicator.Value{Float64: value.Float64, Valid: value.Valid})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(series.Values) == 0 {
		return nil, fmt.Errorf("%w: %s in run %s", types.ErrSeriesNotFound, kind, id)
	}

	return series, nil
}

// DeleteRun removes a run and its values.
func (r *SQLiteRepository) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrRunNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM indicator_values WHERE run_id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete values: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var id, kinds string

	if err := row.Scan(&id, &run.Symbol, &run.CreatedAt, &run.Bars, &run.Params.Period, &run.Params.Alpha, &kinds); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id %q: %w", id, err)
	}
	run.ID = parsed
	run.CreatedAt = run.CreatedAt.UTC()

	run.Indicators, err = splitKinds(kinds)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func joinKinds(kinds []indicator.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}

func splitKinds(s string) ([]indicator.Kind, error) {
	if s == "" {
		return nil, nil
	}
	var kinds []indicator.Kind
	for _, name := range strings.Split(s, ",") {
		k, err := indicator.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("stored indicators: %w", err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
