package main

import (
	"context"
	"encoding/json"
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

	"github.com/hylin/bookcrawl/config"
	"github.com/hylin/bookcrawl/models"
	"github.com/hylin/bookcrawl/parser"
	"github.com/hylin/bookcrawl/pipeline"
	"github.com/hylin/bookcrawl/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()

	targetsDefault := defaultCfg.TargetsFile
	if value, ok := config.EnvString("CRAWLER_TARGETS"); ok {
		targetsDefault = value
	}
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("CRAWLER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("CRAWLER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	cacheDefault := defaultCfg.CacheSize
	if value, ok, err := config.EnvInt("CRAWLER_CACHE_SIZE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid CRAWLER_CACHE_SIZE: %v\n", err)
		os.Exit(1)
	} else if ok {
		cacheDefault = value
	}

	targetsFile := flag.String("targets", targetsDefault, "Crawl target list (YAML)")
	categoriesFile := flag.String("categories", "", "Category tree JSON to expand into listing targets")
	outputDir := flag.String("output", outputDefault, "Output directory")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	delayMs := flag.Int("delay", int(defaultCfg.Delay/time.Millisecond), "Minimum delay between requests (milliseconds)")
	randomDelayMs := flag.Int("random-delay", int(defaultCfg.RandomDelay/time.Millisecond), "Random jitter added to delay (milliseconds)")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-request timeout (seconds)")
	cacheSize := flag.Int("cache-size", cacheDefault, "Page cache entries (0 disables)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	genCategories := flag.String("gen-categories", "", "Fetch a sublist page and write its category tree as JSON, then exit")
	genCategoriesOut := flag.String("gen-categories-out", "categories.json", "Output path for -gen-categories")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.TargetsFile = *targetsFile
	cfg.CategoriesFile = *categoriesFile
	cfg.OutputDir = *outputDir
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.RandomDelay = time.Duration(*randomDelayMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.CacheSize = *cacheSize
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if *genCategories != "" {
		if err := generateCategories(cfg, *genCategories, *genCategoriesOut); err != nil {
			slog.Error("category generation failed", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("category tree written", slog.String("path", *genCategoriesOut))
		return
	}

	targets, err := loadTargets(cfg)
	if err != nil {
		slog.Error("invalid target list", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting crawl",
		slog.Int("targets", len(targets)),
		slog.String("output", cfg.OutputDir),
		slog.String("format", cfg.OutputFormat),
	)

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputDir)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	c, err := scraper.NewCrawler(cfg, writer)
	if err != nil {
		slog.Error("initialising crawler", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current target")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(c.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	summary, err := c.Run(ctx, targets)
	if err != nil {
		slog.Error("crawl failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(summary, cfg.OutputDir)
}

// generateCategories fetches the bookstore sublist page and writes its
// category tree as JSON, ready for the -categories flag of a later run.
func generateCategories(cfg *config.Config, url, out string) error {
	fetcher, err := scraper.NewPageFetcher(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+cfg.Delay+cfg.RandomDelay)
	defer cancel()
	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	doc, err := parser.NewDocument(body)
	if err != nil {
		return err
	}

	tree := parser.ParseCategoryTree(doc)
	if len(tree) == 0 {
		return fmt.Errorf("no categories found at %s", url)
	}

	raw, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, raw, 0o644)
}

func loadTargets(cfg *config.Config) ([]models.Target, error) {
	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return nil, err
	}
	if cfg.CategoriesFile != "" {
		expanded, err := config.LoadCategoryTargets(cfg.CategoriesFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, expanded...)
	}
	return targets, nil
}

func createWriter(format, dir string) (pipeline.Writer, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(dir)
	case "csv":
		return pipeline.NewCSVWriter(dir)
	case "dual":
		return pipeline.NewDualWriter(dir)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(summary *models.RunSummary, outputDir string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")

	fmt.Printf("  Targets:        %d (%d completed, %d failed)\n",
		summary.TargetCount, summary.Completed, len(summary.FailedTargets))
	fmt.Printf("  Pages:          %d\n", summary.PageCount)
	fmt.Printf("  Records:        %d\n", summary.BookCount)
	fmt.Printf("  Dropped items:  %d\n", summary.DroppedItems)
	if len(summary.ErrorsByType) > 0 {
		fmt.Printf("  Error types:    %v\n", summary.ErrorsByType)
	}
	for _, failed := range summary.FailedTargets {
		fmt.Printf("  Failed:         %s (%s) %s\n", failed.Name, failed.Stage, failed.Error)
	}
	if summary.Canceled {
		fmt.Println("  Run canceled before all targets were attempted")
	}
	fmt.Printf("  Duration:       %v\n", summary.EndTime.Sub(summary.StartTime))
	fmt.Printf("  Output dir:     %s\n", outputDir)
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
