// Package main is the entry point for the quant-ta indicator service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tathienbao/quant-ta/internal/api"
	"github.com/tathienbao/quant-ta/internal/config"
	"github.com/tathienbao/quant-ta/internal/metrics"
	"github.com/tathienbao/quant-ta/internal/observer"
	"github.com/tathienbao/quant-ta/internal/persistence"
	"github.com/tathienbao/quant-ta/internal/ui"
	"github.com/tathienbao/quant-ta/pkg/indicator"
)

// Version information (set by build flags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse command
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	case "compute":
		cmdCompute(os.Args[2:])
	case "show":
		cmdShow(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`quant-ta - Technical Indicators over OHLCV Bars

Usage:
  quant-ta <command> [options]

Commands:
  compute    Compute indicators over a CSV file of bars
  show       Show persisted runs and their indicator values
  serve      Start the compute API and metrics server
  validate   Validate configuration file
  version    Show version information
  help       Show this help message

Indicators:
  rsi, bollinger, mfi, cmf, atr, adx

Examples:
  quant-ta compute --data data/MES_5m.csv --symbol MES --indicators rsi,adx
  quant-ta compute --config config.yaml --db results.db
  quant-ta show --db results.db --list
  quant-ta show --db results.db --id <run-id> --indicator atr
  quant-ta serve --config config.yaml
  quant-ta validate --config config.yaml

Use "quant-ta <command> --help" for more information about a command.`)
}

func cmdVersion() {
	fmt.Printf("quant-ta version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}

// loadConfig loads path, or the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func textLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Indicators: %s\n", kindList(cfg.Kinds()))
	fmt.Printf("  Period: %d\n", cfg.Indicators.Period)
	fmt.Printf("  ADX alpha: %.3f\n", cfg.Indicators.Alpha)
	if cfg.Data.CSVPath != "" {
		fmt.Printf("  Data: %s (%s)\n", cfg.Data.CSVPath, cfg.Data.Symbol)
	}
	if cfg.Persistence.Enabled {
		fmt.Printf("  Result store: %s\n", cfg.Persistence.Path)
	}
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: :%d%s\n", cfg.Metrics.Port, cfg.Metrics.Path)
	} else {
		fmt.Printf("  Metrics: disabled (health on :%d)\n", cfg.Metrics.Port)
	}
	fmt.Printf("  API rate limit: %.1f req/s (burst %d)\n", cfg.Server.RateLimitPerSecond, cfg.Server.Burst)
}

func cmdCompute(args []string) {
	fs := flag.NewFlagSet("compute", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (defaults when empty)")
	dataPath := fs.String("data", "", "Path to CSV data file")
	symbol := fs.String("symbol", "", "Symbol of the bars")
	indicators := fs.String("indicators", "", "Comma separated indicators (default: all)")
	period := fs.Int("period", 0, "Lookback period")
	alpha := fs.Float64("alpha", 0, "ADX smoothing factor")
	dbPath := fs.String("db", "", "Persist the run to this SQLite file")
	rows := fs.Int("rows", 10, "Number of trailing rows to print (0 prints all)")
	verbose := fs.Bool("verbose", false, "Verbose output")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file
	if *dataPath != "" {
		cfg.Data.CSVPath = *dataPath
	}
	if *symbol != "" {
		cfg.Data.Symbol = *symbol
	}
	if *indicators != "" {
		cfg.Indicators.Enabled = strings.Split(*indicators, ",")
	}
	if *period != 0 {
		cfg.Indicators.Period = *period
	}
	if *alpha != 0 {
		cfg.Indicators.Alpha = *alpha
	}
	if *dbPath != "" {
		cfg.Persistence.Enabled = true
		cfg.Persistence.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Data.CSVPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --data is required")
		fs.Usage()
		os.Exit(1)
	}

	level := cfg.LogLevel()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := textLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()

	bars, skipped, err := observer.LoadCSV(cfg.Data.CSVPath, cfg.Data.Symbol)
	if err != nil {
		logger.Error("failed to load data", "path", cfg.Data.CSVPath, "err", err)
		os.Exit(1)
	}
	recorder.RecordBarsLoaded(len(bars), skipped)
	if skipped > 0 {
		logger.Warn("skipped malformed rows", "path", cfg.Data.CSVPath, "skipped", skipped)
	}

	logger.Info("computing indicators",
		"symbol", cfg.Data.Symbol,
		"bars", len(bars),
		"indicators", kindList(cfg.Kinds()),
		"period", cfg.Indicators.Period,
	)

	calc := observer.NewCalculator(cfg.ToCalculatorConfig(), recorder, logger)
	result, err := calc.Run(ctx, bars)
	if err != nil {
		logger.Error("computation failed", "err", err)
		os.Exit(1)
	}

	ui.NewTable(os.Stdout).Render(result, *rows)

	if !cfg.Persistence.Enabled {
		return
	}

	repo, err := persistence.NewSQLiteRepository(cfg.Persistence.Path)
	if err != nil {
		logger.Error("failed to open result store", "path", cfg.Persistence.Path, "err", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close() }()

	run, err := repo.SaveRun(ctx, result)
	if err != nil {
		logger.Error("failed to persist run", "err", err)
		os.Exit(1)
	}
	recorder.RecordRunPersisted()

	fmt.Printf("\nRun saved: %s\n", run.ID)
}

func cmdShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (defaults when empty)")
	dbPath := fs.String("db", "", "SQLite result store (overrides config)")
	list := fs.Bool("list", false, "List stored runs")
	symbol := fs.String("symbol", "", "Filter listed runs by symbol")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	id := fs.String("id", "", "Run id to show")
	name := fs.String("indicator", "", "Indicator to print (default: all in run)")
	deleteRun := fs.Bool("delete", false, "Delete the run given by --id")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := textLogger(cfg.LogLevel())

	path := cfg.Persistence.Path
	if *dbPath != "" {
		path = *dbPath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: --db is required")
		fs.Usage()
		os.Exit(1)
	}

	repo, err := persistence.NewSQLiteRepository(path)
	if err != nil {
		logger.Error("failed to open result store", "path", path, "err", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close() }()

	ctx := context.Background()

	if *list || *id == "" {
		runs, err := repo.ListRuns(ctx, *symbol, *limit)
		if err != nil {
			logger.Error("failed to list runs", "err", err)
			os.Exit(1)
		}
		fmt.Printf("%-36s  %-8s  %-19s  %6s  %6s  %s\n", "id", "symbol", "created", "bars", "period", "indicators")
		for _, run := range runs {
			fmt.Printf("%-36s  %-8s  %-19s  %6d  %6d  %s\n",
				run.ID, run.Symbol, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Bars, run.Params.Period, kindList(run.Indicators))
		}
		return
	}

	runID, err := uuid.Parse(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid run id: %v\n", err)
		os.Exit(1)
	}

	if *deleteRun {
		if err := repo.DeleteRun(ctx, runID); err != nil {
			logger.Error("failed to delete run", "id", runID, "err", err)
			os.Exit(1)
		}
		fmt.Printf("Run deleted: %s\n", runID)
		return
	}

	run, err := repo.GetRun(ctx, runID)
	if err != nil {
		logger.Error("failed to load run", "id", runID, "err", err)
		os.Exit(1)
	}

	kinds := run.Indicators
	if *name != "" {
		kind, err := indicator.ParseKind(*name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		kinds = []indicator.Kind{kind}
	}

	result := &observer.Result{Symbol: run.Symbol}
	for _, kind := range kinds {
		series, err := repo.GetSeries(ctx, runID, kind)
		if err != nil {
			logger.Error("failed to load series", "id", runID, "indicator", kind.String(), "err", err)
			os.Exit(1)
		}
		result.Timestamps = series.Timestamps
		result.Series = append(result.Series, observer.IndicatorSeries{
			Kind:   kind,
			Params: run.Params,
			Values: series.Values,
		})
	}

	fmt.Printf("Run %s (period %d, alpha %.3f, created %s)\n",
		run.ID, run.Params.Period, run.Params.Alpha, run.CreatedAt.Format(time.RFC3339))
	ui.NewTable(os.Stdout).Render(result, 0)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	_ = fs.Parse(args)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("quant-ta starting",
		"version", Version,
		"indicators", kindList(cfg.Kinds()),
		"period", cfg.Indicators.Period,
	)
	metrics.SetBuildInfo(Version, GitCommit, BuildTime)

	recorder := metrics.NewRecorder()
	calc := observer.NewCalculator(cfg.ToCalculatorConfig(), recorder, logger)

	var repo *persistence.SQLiteRepository
	if cfg.Persistence.Enabled {
		repo, err = persistence.NewSQLiteRepository(cfg.Persistence.Path)
		if err != nil {
			slog.Error("failed to open result store", "path", cfg.Persistence.Path, "err", err)
			os.Exit(1)
		}
	}

	server := metrics.NewServer(cfg.ToServerConfig(), logger)
	var handler *api.Handler
	if repo != nil {
		handler = api.NewHandler(cfg.ToAPIConfig(), calc, repo, recorder, logger)
		server.RegisterHealthCheck("result_store", func() metrics.Check {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, err := repo.ListRuns(checkCtx, "", 1); err != nil {
				return metrics.Check{Status: "unhealthy", Message: err.Error()}
			}
			return metrics.Check{Status: "healthy"}
		})
	} else {
		handler = api.NewHandler(cfg.ToAPIConfig(), calc, nil, recorder, logger)
	}
	server.Handle("/v1/", handler)

	if err := server.Start(); err != nil {
		slog.Error("failed to start server", "err", err)
		os.Exit(1)
	}

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeout(),
	)
	defer cancel()

	if err := shutdown(shutdownCtx, cfg, server, repo); err != nil {
		slog.Error("shutdown error", "err", err)
	}

	slog.Info("quant-ta shutdown complete")
}

func shutdown(ctx context.Context, cfg *config.Config, server *metrics.Server, repo *persistence.SQLiteRepository) error {
	slog.Info("starting graceful shutdown",
		"timeout", cfg.ShutdownTimeout(),
	)

	// Shutdown steps with timeout check
	steps := []struct {
		name string
		fn   func() error
	}{
		{"stop http server", func() error {
			return server.Shutdown(ctx)
		}},
		{"close result store", func() error {
			if repo == nil {
				return nil
			}
			return repo.Close()
		}},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shutdown timeout during: %s", step.name)
		default:
			slog.Debug("shutdown step", "step", step.name)
			if err := step.fn(); err != nil {
				slog.Warn("shutdown step failed", "step", step.name, "err", err)
			}
		}
	}

	return nil
}

func kindList(kinds []indicator.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}
