package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futures-tick-lab/internal/config"
	"futures-tick-lab/internal/domain"
	"futures-tick-lab/internal/importer"
	"futures-tick-lab/internal/normalize"
	"futures-tick-lab/internal/observability"
	"futures-tick-lab/internal/reporting"
	"futures-tick-lab/internal/storage"
	chstore "futures-tick-lab/internal/storage/clickhouse"
	"futures-tick-lab/internal/storage/memory"
	"futures-tick-lab/internal/storage/migrations"
	pgstore "futures-tick-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	path := flag.String("path", "", "CSV file or directory of CSV files to import")
	kind := flag.String("kind", "tick", "Record kind: tick or bar")
	interval := flag.String("interval", "1m", "Bar interval: 1m, 1h or d (bar imports only)")
	exchange := flag.String("exchange", "", "Exchange code stamped on imported records (CFFEX, SHFE, DCE, CZCE)")
	batchSize := flag.Int("batch-size", 0, "Records per storage write")
	noSkip := flag.Bool("no-skip", false, "Write duplicates of already stored records instead of skipping them")
	mappingPath := flag.String("mapping", "", "JSON column mapping override file")
	configPath := flag.String("config", "", "YAML configuration file")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of a database")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	summaryCSV := flag.String("summary-csv", "", "Write the per-file summary as CSV to this path")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[import] ", log.LstdFlags|log.Lshortfile)

	if *path == "" {
		logger.Fatal("--path is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}
	applyFlags(cfg, *exchange, *batchSize, *noSkip, *clickhouseDSN, *postgresDSN, *useMemory, *metricsAddr)

	metrics := observability.NewMetrics("")

	// Start metrics server if enabled
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, stopping after the current batch...", sig)
		cancel()

		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	stats, err := run(ctx, logger, metrics, cfg, *path, importer.Kind(*kind), domain.Interval(*interval), *mappingPath)
	if stats != nil {
		fmt.Print(reporting.RenderSummary(stats))
		if *summaryCSV != "" {
			if werr := os.WriteFile(*summaryCSV, []byte(reporting.RenderCSV(stats)), 0o644); werr != nil {
				logger.Printf("Write summary csv: %v", werr)
			} else {
				logger.Printf("Wrote per-file summary to %s", *summaryCSV)
			}
		}
	}
	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}
	if stats != nil && stats.FilesFailed == len(stats.Files) && len(stats.Files) > 0 {
		logger.Fatal("Every file failed")
	}
}

// loadConfig reads the YAML file when given, otherwise built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadAndValidate(path)
}

// applyFlags lets command line flags override file settings.
func applyFlags(cfg *config.Config, exchange string, batchSize int, noSkip bool, clickhouseDSN, postgresDSN string, useMemory bool, metricsAddr string) {
	if exchange != "" {
		cfg.Exchange = exchange
	}
	if batchSize > 0 {
		cfg.Import.BatchSize = batchSize
	}
	if noSkip {
		skip := false
		cfg.Import.SkipExisting = &skip
	}
	if clickhouseDSN != "" {
		cfg.Storage.Backend = "clickhouse"
		cfg.Storage.ClickhouseDSN = clickhouseDSN
	}
	if postgresDSN != "" {
		cfg.Storage.Backend = "postgres"
		cfg.Storage.PostgresDSN = postgresDSN
	}
	if useMemory {
		cfg.Storage.Backend = "memory"
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
}

func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, cfg *config.Config, path string, kind importer.Kind, interval domain.Interval, mappingPath string) (*importer.Stats, error) {
	if kind != importer.KindTick && kind != importer.KindBar {
		return nil, fmt.Errorf("--kind must be tick or bar, got %q", kind)
	}
	if kind == importer.KindBar {
		switch interval {
		case domain.IntervalMinute, domain.IntervalHour, domain.IntervalDaily:
		default:
			return nil, fmt.Errorf("--interval must be 1m, 1h or d, got %q", interval)
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone.Location)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone.Location, err)
	}

	mapping := defaultMapping(kind)
	if mappingPath != "" {
		override, err := normalize.LoadMappingOverride(mappingPath)
		if err != nil {
			return nil, err
		}
		mapping = mapping.Merge(override)
	}

	// Create stores (use interfaces)
	var tickStore storage.TickStore = memory.NewTickStore()
	var barStore storage.BarStore = memory.NewBarStore()

	switch cfg.Storage.Backend {
	case "clickhouse":
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		tickStore = chstore.NewTickStore(conn)
		barStore = chstore.NewBarStore(conn)
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		tickStore = pgstore.NewTickStore(pool)
		barStore = pgstore.NewBarStore(pool)
	}
	logger.Printf("Using %s storage", cfg.Storage.Backend)

	persister := importer.NewBatchPersister(tickStore, barStore, logger, metrics)
	coordinator := importer.NewCoordinator(
		persister,
		mapping,
		normalize.NewTimestampNormalizer(loc),
		cfg.Exchange,
		interval,
		importer.Options{BatchSize: cfg.Import.BatchSize, SkipExisting: *cfg.Import.SkipExisting},
		logger,
		metrics,
	)

	logger.Printf("Importing %s data from %s", kind, path)
	return coordinator.Run(ctx, path, kind)
}

func defaultMapping(kind importer.Kind) normalize.ColumnMapping {
	if kind == importer.KindBar {
		return normalize.DefaultBarMapping()
	}
	return normalize.DefaultTickMapping()
}
