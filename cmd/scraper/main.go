package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-vessels/checkpoint"
	"github.com/aluiziolira/go-scrape-vessels/config"
	"github.com/aluiziolira/go-scrape-vessels/dataset"
	"github.com/aluiziolira/go-scrape-vessels/models"
	"github.com/aluiziolira/go-scrape-vessels/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()
	batchDefault := defaultCfg.BatchSize
	if value, ok, err := config.EnvInt("SCRAPER_BATCH_SIZE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_BATCH_SIZE: %v\n", err)
		os.Exit(1)
	} else if ok {
		batchDefault = value
	}
	parallelDefault := defaultCfg.Parallelism
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PARALLEL: %v\n", err)
		os.Exit(1)
	} else if ok {
		parallelDefault = value
	}
	dataDirDefault := defaultCfg.DataDir
	if value, ok := config.EnvString("SCRAPER_DATA_DIR"); ok {
		dataDirDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	endpoint := flag.String("endpoint", defaultCfg.EndpointURL, "SOAP endpoint URL")
	methodsFile := flag.String("methods-file", "", "JSON file overriding the SOAP method templates")
	dataDir := flag.String("data-dir", dataDirDefault, "Directory holding the compiled dataset files")
	stateFile := flag.String("state-file", defaultCfg.StateFile, "Checkpoint state file path")
	categories := flag.String("categories", joinCategories(defaultCfg.Categories), "Comma-separated category order")
	batchSize := flag.Int("batch-size", batchDefault, "Ids per batch (checkpoint granularity)")
	target := flag.Int("target", 0, "Ids to process this invocation (0 = all remaining)")
	parallelism := flag.Int("parallel", parallelDefault, "Concurrent requests per batch")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-request timeout (seconds)")
	delayMs := flag.Int("delay", 0, "Delay between requests (milliseconds)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.EndpointURL = *endpoint
	cfg.MethodsFile = *methodsFile
	cfg.DataDir = *dataDir
	cfg.StateFile = *stateFile
	cfg.Categories = splitCategories(*categories)
	cfg.BatchSize = *batchSize
	cfg.TargetCount = *target
	cfg.Parallelism = *parallelism
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("endpoint", cfg.EndpointURL),
		slog.String("data_dir", cfg.DataDir),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Int("workers", cfg.Parallelism),
	)

	metrics := scraper.NewMetrics()
	client, err := scraper.NewClient(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetch client", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing the in-flight batch")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	orch := scraper.NewOrchestrator(
		cfg,
		client,
		dataset.NewStore(cfg.DataDir),
		checkpoint.NewStore(cfg.StateFile),
		metrics,
	)

	report, err := orch.Run(ctx)
	if err != nil {
		slog.Error("scrape failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(report, cfg.DataDir)
}

func joinCategories(cats []models.Category) string {
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = string(cat)
	}
	return strings.Join(names, ",")
}

func splitCategories(raw string) []models.Category {
	parts := strings.Split(raw, ",")
	cats := make([]models.Category, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		cats = append(cats, models.Category(part))
	}
	return cats
}

func printSummary(report *models.ScrapeReport, dataDir string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Scrape run finished (phase: %s)\n", report.Phase)

	fmt.Printf("  New rows:      %d\n", report.TotalRows())
	for cat, rows := range report.RowsAdded {
		fmt.Printf("    %-12s %d\n", cat+":", rows)
	}
	fmt.Printf("  Batches run:   %d\n", report.BatchesRun)
	fmt.Printf("  Retry passes:  %d\n", report.RetriesCompleted)
	failed := 0
	for _, n := range report.FailedCounts {
		failed += n
	}
	fmt.Printf("  Failed ids:    %d\n", failed)
	for cat, n := range report.FailedCounts {
		fmt.Printf("    %-12s %d\n", cat+":", n)
	}
	fmt.Printf("  Duration:      %v\n", report.EndTime.Sub(report.StartTime).Round(time.Millisecond))
	fmt.Printf("  Data dir:      %s\n", dataDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
