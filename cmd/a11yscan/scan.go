package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/crawler"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/log"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/probe"
	"github.com/nao1215/a11yscan/internal/report"
	"github.com/nao1215/a11yscan/internal/runner"
	"github.com/nao1215/a11yscan/internal/webdriver"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [target-url]...",
		Short: "Evaluate web page accessibility across a matrix of engines and viewports",
		Long: `Evaluate one or more web pages for accessibility issues.

Every target is checked in each combination of rendering engine and
viewport (an environment variant). The checks themselves run as probes:
static markup analysis, viewport-specific layout rules, language
declaration checks, and optional external services (WAVE, the W3C
markup validator).

Engines whose WebDriver endpoint is unreachable are dropped from the
matrix with a warning. A probe failure never stops the run; it is
recorded as part of the result for its cell.`,
		Example: `  a11yscan scan https://example.com/
  a11yscan scan -e chrome,firefox -w mobile,desktop https://example.com/
  a11yscan scan --crawl -d 2 https://example.com/
  a11yscan scan -f targets.txt -j -o report.json`,
		RunE: runScanCmd,
	}

	cmd.Flags().StringSliceP("engines", "e", []string{string(model.EngineChrome)}, "Rendering engines to test (chrome, firefox, edge, safari)")
	cmd.Flags().StringSliceP("viewports", "w", []string{model.ViewportMobile, model.ViewportTablet, model.ViewportDesktop}, "Viewports to test (mobile, tablet, desktop, or WIDTHxHEIGHT)")
	cmd.Flags().StringSliceP("probes", "p", nil, "Probes to run (default: all available probes)")
	cmd.Flags().IntP("max-workers", "n", config.DefaultMaxWorkers, "Maximum number of cells evaluated concurrently")
	cmd.Flags().DurationP("cell-timeout", "T", config.DefaultCellTimeout, "Deadline for a single matrix cell")
	cmd.Flags().DurationP("timeout", "t", 0, "Deadline for the whole run (0 = no deadline)")
	cmd.Flags().Bool("crawl", false, "Discover additional same-host pages from each target")
	cmd.Flags().IntP("crawl-depth", "d", config.DefaultCrawlDepth, "Maximum link depth during discovery")
	cmd.Flags().Int("crawl-max-pages", config.DefaultCrawlMaxPages, "Maximum pages discovered per seed target")
	cmd.Flags().StringP("target-file", "f", "", "File with target URLs, one per line")
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: ./.a11yscan, ~/.a11yscan)")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolP("json", "j", false, "Output report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output report in Markdown format")
	cmd.Flags().String("wave-key", "", "WAVE API key (enables the wave probe)")
	cmd.Flags().Bool("no-db", false, "Do not record this run in the run history database")
	cmd.Flags().String("fail-on", "", "Exit with an error when findings at or above this severity exist (info, minor, moderate, serious, critical)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, letting in-flight cells finish")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag reads the persistent verbose flag. The flag is declared
// on the root command, so look it up there when the local lookup fails.
func getVerboseFlag(cmd *cobra.Command) (bool, error) {
	if flag := cmd.Flags().Lookup("verbose"); flag != nil {
		return cmd.Flags().GetBool("verbose")
	}
	return cmd.Root().PersistentFlags().GetBool("verbose")
}

// buildConfig assembles the run configuration from three layers:
// built-in defaults, then the configuration file, then command line
// flags. A flag only overrides the file when the user actually set it.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path := config.FindConfigFile(configPath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := file.ApplyTo(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
		}
	} else if configPath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	if cmd.Flags().Changed("engines") {
		if cfg.Engines, err = cmd.Flags().GetStringSlice("engines"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("viewports") {
		if cfg.Viewports, err = cmd.Flags().GetStringSlice("viewports"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("probes") {
		if cfg.Probes, err = cmd.Flags().GetStringSlice("probes"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("max-workers") {
		if cfg.MaxWorkers, err = cmd.Flags().GetInt("max-workers"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("cell-timeout") {
		if cfg.CellTimeout, err = cmd.Flags().GetDuration("cell-timeout"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("timeout") {
		if cfg.RunTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("crawl") {
		if cfg.Crawl, err = cmd.Flags().GetBool("crawl"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("crawl-depth") {
		if cfg.CrawlDepth, err = cmd.Flags().GetInt("crawl-depth"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("crawl-max-pages") {
		if cfg.CrawlMaxPages, err = cmd.Flags().GetInt("crawl-max-pages"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("wave-key") {
		if cfg.WaveAPIKey, err = cmd.Flags().GetString("wave-key"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("fail-on") {
		if cfg.FailOn, err = cmd.Flags().GetString("fail-on"); err != nil {
			return nil, err
		}
	}

	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.TargetFile, err = cmd.Flags().GetString("target-file"); err != nil {
		return nil, err
	}
	if cfg.Verbose, err = getVerboseFlag(cmd); err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	if noDB {
		cfg.SaveToDB = false
	}

	cfg.Targets = append(cfg.Targets, args...)
	if cfg.TargetFile != "" {
		fileTargets, err := loadTargetFile(cfg.TargetFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read target file: %w", err)
		}
		cfg.Targets = append(cfg.Targets, fileTargets...)
	}

	return cfg, nil
}

// loadTargetFile reads a newline separated list of target URLs.
// Blank lines and lines starting with '#' are skipped.
func loadTargetFile(path string) ([]string, error) {
	file, err := os.Open(path) //nolint:gosec // User-provided target list path is intentional
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck // Read-only file, close error carries no information

	var targets []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	return targets, scanner.Err()
}

// runScan executes the full evaluation: target expansion, engine
// availability checks, matrix scheduling, persistence, and reporting.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	targets, err := parseTargets(cfg.Targets)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	if cfg.Crawl {
		targets, err = expandTargets(ctx, cfg, httpClient, logger, targets)
		if err != nil {
			return err
		}
	}

	manager, liveEngines, err := buildEngineManager(ctx, cfg, logger)
	if err != nil {
		return err
	}

	variants, err := model.BuildVariants(liveEngines, cfg.Viewports)
	if err != nil {
		return err
	}

	selections := buildProbeSelections(cfg, httpClient, logger)

	var db *database.ResultDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open run history database: %w", err)
		}
		defer db.Close() //nolint:errcheck // Close error after a finished run carries no information
	}

	runID := uuid.NewString()
	if db != nil {
		if err := db.CreateRun(ctx, runID, len(targets), len(variants)); err != nil {
			return fmt.Errorf("failed to record run start: %w", err)
		}
	}

	cellRunner := runner.NewCellRunner(manager,
		runner.WithCellTimeout(cfg.CellTimeout),
		runner.WithCellLogger(logger),
	)

	opts := []runner.SchedulerOption{
		runner.WithMaxWorkers(cfg.MaxWorkers),
		runner.WithSchedulerLogger(logger),
	}
	if db != nil {
		// SaveCell must survive run cancellation: a canceled run still
		// persists the cells it finished. The callback fires from worker
		// goroutines, so writes are serialized here.
		saveCtx := context.WithoutCancel(ctx)
		var mu sync.Mutex
		opts = append(opts, runner.WithCellCallback(func(result *model.CellResult) {
			mu.Lock()
			defer mu.Unlock()
			if err := db.SaveCell(saveCtx, runID, result); err != nil {
				logger.Warn("failed to save cell result",
					"target", result.Target.String(),
					"variant", result.Variant.Key(),
					"error", err)
			}
		}))
	}
	scheduler := runner.NewMatrixScheduler(cellRunner, opts...)

	fmt.Printf("Evaluating %d targets across %d variants (%d cells, concurrency: %d)...\n",
		len(targets), len(variants), len(targets)*len(variants), cfg.MaxWorkers)
	startTime := time.Now()

	matrix, err := scheduler.RunMatrix(ctx, runID, targets, variants, selections)
	if err != nil {
		return err
	}

	fmt.Printf("Run completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	aggregate := model.Fold(matrix)

	if db != nil {
		if err := db.FinalizeRun(context.WithoutCancel(ctx), runID, matrix.Len(), aggregate.Global); err != nil {
			logger.Warn("failed to finalize run record", "run", runID, "error", err)
		}
	}

	if err := outputReport(cfg, aggregate); err != nil {
		return err
	}

	if cfg.FailOn != "" {
		threshold, err := model.ParseSeverity(cfg.FailOn)
		if err != nil {
			return fmt.Errorf("invalid fail-on severity: %w", err)
		}
		if n := aggregate.Global.AtOrAbove(threshold); n > 0 {
			return fmt.Errorf("found %d findings at or above %s severity", n, threshold)
		}
	}
	return nil
}

// parseTargets normalizes raw target URLs and removes duplicates while
// preserving order.
func parseTargets(raw []string) ([]model.Target, error) {
	targets := make([]model.Target, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		target, err := model.NewTarget(r)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", r, err)
		}
		if seen[target.String()] {
			continue
		}
		seen[target.String()] = true
		targets = append(targets, target)
	}
	return targets, nil
}

// expandTargets discovers additional same-host pages from each seed.
func expandTargets(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger, seeds []model.Target) ([]model.Target, error) {
	spider := crawler.NewSpider(client,
		crawler.WithMaxDepth(cfg.CrawlDepth),
		crawler.WithMaxPages(cfg.CrawlMaxPages),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithSpiderUserAgent(cfg.UserAgent),
		crawler.WithSpiderMaxBodySize(cfg.MaxBodySize),
		crawler.WithSpiderLogger(logger),
	)

	fmt.Printf("Discovering pages from %d seed targets (depth: %d)...\n", len(seeds), cfg.CrawlDepth)
	expanded, err := spider.Expand(ctx, seeds)
	if err != nil {
		return nil, fmt.Errorf("target discovery failed: %w", err)
	}
	fmt.Printf("Discovered %d targets\n", len(expanded))
	return expanded, nil
}

// buildEngineManager registers a WebDriver provider for every configured
// engine and probes each endpoint once. Unreachable engines are dropped
// from the run with a warning; the run proceeds on the engines that
// answered. It returns the manager and the engines that are live, in
// configuration order.
func buildEngineManager(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Manager, []string, error) {
	manager := engine.NewManager(engine.WithLogger(logger))

	for _, name := range cfg.Engines {
		kind, err := model.ParseEngineKind(name)
		if err != nil {
			return nil, nil, err
		}
		endpoint, ok := cfg.WebDriverEndpoints[string(kind)]
		if !ok || endpoint == "" {
			return nil, nil, fmt.Errorf("no WebDriver endpoint configured for engine %q", name)
		}
		provider, err := webdriver.NewProvider(kind, endpoint, cfg.RequestTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid WebDriver endpoint for engine %q: %w", name, err)
		}
		manager.Register(provider)
	}

	availability := manager.CheckProviders(ctx)
	live := make([]string, 0, len(cfg.Engines))
	seen := make(map[model.EngineKind]bool, len(cfg.Engines))
	for _, name := range cfg.Engines {
		kind, err := model.ParseEngineKind(name)
		if err != nil {
			return nil, nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true

		if checkErr := availability[kind]; checkErr != nil {
			logger.Warn("rendering engine unavailable, dropped from matrix",
				"engine", string(kind), "error", checkErr)
			fmt.Fprintf(os.Stderr, "Warning: %s WebDriver endpoint is unreachable, engine dropped from this run\n", kind)
			continue
		}
		live = append(live, string(kind))
	}

	if len(live) == 0 {
		return nil, nil, fmt.Errorf("%w: no rendering engine is reachable (start a WebDriver endpoint or adjust the webdriver section of the configuration)", runner.ErrRunAborted)
	}
	return manager, live, nil
}

// buildProbeSelections resolves the configured probe IDs against the
// registry. An empty configuration selects every registered probe.
func buildProbeSelections(cfg *config.Config, client *http.Client, logger *slog.Logger) []probe.Selection {
	registry := probe.DefaultRegistry()

	ids := cfg.Probes
	if len(ids) == 0 {
		ids = registry.IDs()
	}

	return registry.Resolve(ids, &probe.Config{
		HTTPClient:        client,
		UserAgent:         cfg.UserAgent,
		MaxBodySize:       cfg.MaxBodySize,
		WaveAPIKey:        cfg.WaveAPIKey,
		WaveEndpoint:      cfg.WaveEndpoint,
		ValidatorEndpoint: cfg.ValidatorEndpoint,
		Logger:            logger,
	})
}

// outputReport writes the aggregate report in the configured format to
// the configured destination (a file, or stdout by default).
func outputReport(cfg *config.Config, aggregate *model.AggregateReport) error {
	var output *os.File
	switch {
	case cfg.ReportFile != "":
		if dir := filepath.Dir(cfg.ReportFile); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		file, err := os.OpenFile(cfg.ReportFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				slog.Warn("failed to close report file", "path", cfg.ReportFile, "error", closeErr)
			}
		}()
		output = file
	default:
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewTextWriter(output,
			report.WithColor(cfg.ReportFile == ""),
			report.WithVerbose(cfg.Verbose),
		)
	}

	if _, err := writer.Write(aggregate); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if cfg.ReportFile != "" {
		fmt.Printf("Report saved to: %s\n", cfg.ReportFile)
	}
	return nil
}
