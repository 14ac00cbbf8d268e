package persistence

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tathienbao/quant-ta/internal/observer"
	"github.com/tathienbao/quant-ta/internal/types"
	"github.com/tathienbao/quant-ta/pkg/indicator"
)

func setupTestDB(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "quant-ta-test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func sampleResult(symbol string) *observer.Result {
	start := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	params := indicator.Params{Period: 2, Alpha: 0.2}

	return &observer.Result{
		Symbol: symbol,
		Timestamps: []time.Time{
			start,
			start.Add(5 * time.Minute),
			start.Add(10 * time.Minute),
			start.Add(15 * time.Minute),
		},
		Series: []observer.IndicatorSeries{
			{
				Kind:   indicator.KindRSI,
				Params: params,
				Values: indicator.Output{{}, {}, indicator.Some(62.5), {}},
			},
			{
				Kind:   indicator.KindATR,
				Params: params,
				Values: indicator.Output{{}, {}, indicator.Some(0.0125), indicator.Some(0.02)},
			},
		},
	}
}

func TestSQLiteRepository_SaveAndGetRun(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	saved, err := repo.SaveRun(ctx, sampleResult("MES"))
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Fatal("expected run id")
	}

	run, err := repo.GetRun(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}

	if run.Symbol != "MES" {
		t.Errorf("symbol = %s, want MES", run.Symbol)
	}
	if run.Bars != 4 {
		t.Errorf("bars = %d, want 4", run.Bars)
	}
	if run.Params.Period != 2 || run.Params.Alpha != 0.2 {
		t.Errorf("params = %+v", run.Params)
	}
	if len(run.Indicators) != 2 || run.Indicators[0] != indicator.KindRSI || run.Indicators[1] != indicator.KindATR {
		t.Errorf("indicators = %v", run.Indicators)
	}
	if !run.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("created_at = %s, want %s", run.CreatedAt, saved.CreatedAt)
	}
}

func TestSQLiteRepository_GetSeries_PreservesUndefined(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	result := sampleResult("MES")

	saved, err := repo.SaveRun(ctx, result)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	series, err := repo.GetSeries(ctx, saved.ID, indicator.KindRSI)
	if err != nil {
		t.Fatalf("get series: %v", err)
	}

	want := result.Series[0].Values
	if len(series.Values) != len(want) {
		t.Fatalf("len = %d, want %d", len(series.Values), len(want))
	}
	for i := range want {
		got := series.Values[i]
		if got.Valid != want[i].Valid {
			t.Errorf("position %d: valid = %v, want %v", i, got.Valid, want[i].Valid)
			continue
		}
		if got.Valid && math.Abs(got.Float64-want[i].Float64) > 1e-12 {
			t.Errorf("position %d: %v, want %v", i, got.Float64, want[i].Float64)
		}
	}
	for i, ts := range series.Timestamps {
		if !ts.Equal(result.Timestamps[i]) {
			t.Errorf("timestamp %d = %s, want %s", i, ts, result.Timestamps[i])
		}
	}
}

func TestSQLiteRepository_GetSeries_NotStored(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	saved, err := repo.SaveRun(ctx, sampleResult("MES"))
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	_, err = repo.GetSeries(ctx, saved.ID, indicator.KindADX)
	if !errors.Is(err, types.ErrSeriesNotFound) {
		t.Errorf("err = %v, want ErrSeriesNotFound", err)
	}

	_, err = repo.GetSeries(ctx, uuid.New(), indicator.KindRSI)
	if !errors.Is(err, types.ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteRepository_GetRun_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetRun(context.Background(), uuid.New())
	if !errors.Is(err, types.ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteRepository_ListRuns(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	var ids []uuid.UUID
	for _, symbol := range []string{"MES", "MGC", "MES"} {
		run, err := repo.SaveRun(ctx, sampleResult(symbol))
		if err != nil {
			t.Fatalf("save run: %v", err)
		}
		ids = append(ids, run.ID)
	}

	all, err := repo.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("runs = %d, want 3", len(all))
	}
	if all[0].ID != ids[2] {
		t.Errorf("newest run = %s, want %s", all[0].ID, ids[2])
	}

	mes, err := repo.ListRuns(ctx, "MES", 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(mes) != 2 {
		t.Errorf("MES runs = %d, want 2", len(mes))
	}

	limited, err := repo.ListRuns(ctx, "", 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited runs = %d, want 1", len(limited))
	}
}

func TestSQLiteRepository_DeleteRun(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	saved, err := repo.SaveRun(ctx, sampleResult("MES"))
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	if err := repo.DeleteRun(ctx, saved.ID); err != nil {
		t.Fatalf("delete run: %v", err)
	}

	if _, err := repo.GetRun(ctx, saved.ID); !errors.Is(err, types.ErrRunNotFound) {
		t.Errorf("get after delete: err = %v, want ErrRunNotFound", err)
	}

	var n int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indicator_values WHERE run_id = ?`, saved.ID.String()).Scan(&n); err != nil {
		t.Fatalf("count values: %v", err)
	}
	if n != 0 {
		t.Errorf("values left = %d, want 0", n)
	}

	if err := repo.DeleteRun(ctx, saved.ID); !errors.Is(err, types.ErrRunNotFound) {
		t.Errorf("second delete: err = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteRepository_SaveRun_Invalid(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	if _, err := repo.SaveRun(ctx, nil); !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("nil result: err = %v, want ErrDataUnavailable", err)
	}

	result := sampleResult("MES")
	result.Series[1].Values = result.Series[1].Values[:2]
	if _, err := repo.SaveRun(ctx, result); !errors.Is(err, types.ErrInvalidData) {
		t.Errorf("misaligned: err = %v, want ErrInvalidData", err)
	}

	runs, err := repo.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs = %d, want 0 after failed saves", len(runs))
	}
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	saved, err := repo.SaveRun(ctx, sampleResult("MES"))
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	_ = repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen repository: %v", err)
	}
	defer func() { _ = repo.Close() }()

	if _, err := repo.GetRun(ctx, saved.ID); err != nil {
		t.Errorf("get run after reopen: %v", err)
	}
}

func TestSplitKinds(t *testing.T) {
	kinds, err := splitKinds(joinKinds([]indicator.Kind{indicator.KindMFI, indicator.KindBollinger}))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != indicator.KindMFI || kinds[1] != indicator.KindBollinger {
		t.Errorf("kinds = %v", kinds)
	}

	if _, err := splitKinds("rsi,macd"); err == nil {
		t.Error("expected error for unknown stored indicator")
	}
}
