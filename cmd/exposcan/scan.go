package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/exposcan/internal/classify"
	"github.com/nao1215/exposcan/internal/config"
	"github.com/nao1215/exposcan/internal/crawler"
	"github.com/nao1215/exposcan/internal/database"
	"github.com/nao1215/exposcan/internal/dedup"
	"github.com/nao1215/exposcan/internal/findings"
	"github.com/nao1215/exposcan/internal/gate"
	applog "github.com/nao1215/exposcan/internal/log"
	"github.com/nao1215/exposcan/internal/model"
	"github.com/nao1215/exposcan/internal/progress"
	"github.com/nao1215/exposcan/internal/report"
	"github.com/nao1215/exposcan/internal/shutdown"
	"github.com/nao1215/exposcan/internal/target"
)

// errNoTargetsFile is returned when the prompt yields an empty path.
var errNoTargetsFile = errors.New("no targets file given")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [targets-file]",
		Short: "Scan websites for exposed sensitive files",
		Long: `Scan reads seed URLs from a targets file, one per line, and crawls them.

Every URL is normalized and classified by its path. URLs that look
sensitive (.env, .pem, .sql, /backup/, .git/ and so on) are reported and
never fetched. Other URLs are fetched, and links found on seed pages are
followed up to the maximum depth.

When no targets file is given, the path is read from standard input.
Press Ctrl+C once to stop scheduling new requests and let in-flight
requests finish, twice to abort them. A report is written either way.

Examples:
  # Scan the sites listed in targets.txt and write a CSV report
  exposcan scan targets.txt

  # Write a Markdown report into ./reports
  exposcan scan -f markdown -o reports targets.txt

  # Be gentle: 30 requests in flight, at most 10 starts per second
  exposcan scan -n 30 -r 10 targets.txt

  # Use a custom policy file
  exposcan scan -c policy.yaml targets.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Policy file path (default: .exposcan.yaml in current or XDG config directory)")

	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl depth; seeds are depth 0")
	cmd.Flags().Int("link-depth", config.DefaultLinkDepth,
		"Deepest level whose pages are parsed for links")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each request and each child subtree")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		fmt.Sprintf("Requests in flight (clamped into [%d, %d])", config.MinConcurrency, config.MaxConcurrency))
	cmd.Flags().Float64P("rate", "r", 0,
		"Maximum request starts per second (0 = unlimited)")

	cmd.Flags().StringP("output-dir", "o", ".",
		"Directory the report file is written to")
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: "+strings.Join(config.Formats, ", "))

	cmd.Flags().Bool("no-history", false,
		"Do not save the run to the history database")
	cmd.Flags().Bool("no-progress", false,
		"Do not show the live progress line")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logFormat, err := applog.ParseFormat(getLogFormatFlag(cmd))
	if err != nil {
		return err
	}
	logger := applog.New(cmd.ErrOrStderr(), cfg.Verbose, logFormat)
	slog.SetDefault(logger)

	if cfg.ClampConcurrency() {
		logger.Warn("concurrency clamped",
			"concurrency", cfg.Concurrency,
			"min", config.MinConcurrency,
			"max", config.MaxConcurrency,
		)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	path, err := targetsFilePath(cmd, args)
	if err != nil {
		return err
	}

	seeds, err := readSeeds(path)
	if err != nil {
		return err
	}

	run := &scanRun{
		cfg:     cfg,
		logger:  logger,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}

	rep, err := run.execute(cmd.Context(), seeds)
	if err != nil {
		return err
	}

	return run.finish(cmd.Context(), rep)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormatFlag retrieves the log format from the command or its parent.
// It is empty when no parent defines the flag.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return ""
		}
	}
	return format
}

// buildConfig layers defaults, the policy file and explicitly set flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; a missing file found by search is fine.
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy file %s: %w", path, err)
		}
		file.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	flags := cmd.Flags()
	if flags.Changed("depth") {
		if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("link-depth") {
		if cfg.LinkDepth, err = flags.GetInt("link-depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("format") {
		format, err := flags.GetString("format")
		if err != nil {
			return nil, err
		}
		cfg.Format = strings.ToLower(strings.TrimSpace(format))
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	noProgress, err := flags.GetBool("no-progress")
	if err != nil {
		return nil, err
	}
	cfg.ShowProgress = !noProgress

	return cfg, nil
}

// targetsFilePath returns the positional argument or prompts for a path.
func targetsFilePath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return cleanPath(args[0]), nil
	}

	fmt.Fprint(cmd.OutOrStdout(), "Path to targets file: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read targets file path: %w", err)
	}

	path := cleanPath(line)
	if path == "" {
		return "", errNoTargetsFile
	}
	return path, nil
}

// cleanPath trims whitespace and the quotes a terminal adds to
// dragged-in paths.
func cleanPath(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"' `)
}

// readSeeds returns the non-blank lines of the targets file.
func readSeeds(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // the targets file is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()

	seeds, err := parseSeeds(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file %s: %w", path, err)
	}
	return seeds, nil
}

func parseSeeds(r io.Reader) ([]string, error) {
	var seeds []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seeds = append(seeds, line)
	}
	return seeds, scanner.Err()
}

// scanRun wires the crawl components for one run.
type scanRun struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer

	// fetcher replaces the HTTP fetcher when set.
	fetcher crawler.Fetcher

	// signals are relayed to the shutdown controller.
	signals []os.Signal
}

// execute crawls the seeds and assembles the run report. Only setup
// problems are returned as errors; an interrupted run still yields a report.
func (r *scanRun) execute(ctx context.Context, seeds []string) (*model.RunReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := r.cfg
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)

	agg := findings.New(findings.WithFindingHook(func(f model.Finding) {
		logger.Info("sensitive resource", "url", f.URL, "reason", f.Reason, "depth", f.Depth)
	}))

	ctrl := shutdown.New()
	if len(r.signals) > 0 {
		stop := ctrl.Watch(ctx, cancel, logger, r.signals...)
		defer stop()
	}

	deps, err := r.dependencies(agg, ctrl)
	if err != nil {
		return nil, err
	}

	scheduler := crawler.NewScheduler(deps,
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithLinkDepth(cfg.LinkDepth),
		crawler.WithRequestTimeout(cfg.RequestTimeout),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithLogger(logger),
	)

	logger.Info("starting scan",
		"seeds", len(seeds),
		"max_depth", cfg.MaxDepth,
		"concurrency", cfg.Concurrency,
		"rate_limit", cfg.RateLimit,
	)

	reporter := progress.New(r.errOut, agg,
		progress.WithEnabled(cfg.ShowProgress && progress.IsTerminal(r.errOut)))
	reporter.Start()
	err = scheduler.Run(ctx, seeds)
	reporter.Stop()
	if err != nil {
		return nil, err
	}

	stats := agg.Snapshot()
	logger.Info("scan finished",
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"findings", stats.Findings,
		"interrupted", ctrl.Tripped(),
	)

	return model.NewRunReport(runID, len(seeds), stats, agg.Findings(), ctrl.Tripped()), nil
}

// dependencies builds the scheduler collaborators from the configuration.
func (r *scanRun) dependencies(agg *findings.Aggregator, ctrl *shutdown.Controller) (crawler.Dependencies, error) {
	cfg := r.cfg

	classifier, err := classify.New(
		classify.WithExtensions(cfg.SensitiveExtensions...),
		classify.WithPathPatterns(cfg.SensitivePathPatterns...),
		classify.WithIgnoreExtensions(cfg.IgnoreExtensions...),
	)
	if err != nil {
		return crawler.Dependencies{}, fmt.Errorf("configuration error: %w", err)
	}

	g, err := gate.New(int64(cfg.Concurrency), gate.WithRateLimit(cfg.RateLimit))
	if err != nil {
		return crawler.Dependencies{}, fmt.Errorf("configuration error: %w", err)
	}

	fetcher := r.fetcher
	if fetcher == nil {
		opts := []crawler.FetcherOption{crawler.WithFetchTimeout(cfg.RequestTimeout)}
		if len(cfg.UserAgents) > 0 {
			opts = append(opts, crawler.WithUserAgents(cfg.UserAgents...))
		}
		hf := crawler.NewHTTPFetcher(opts...)
		r.logger.Debug("http fetcher ready", "user_agent", hf.UserAgent())
		fetcher = hf
	}

	return crawler.Dependencies{
		Normalizer: target.NewNormalizer(target.WithForbiddenPorts(cfg.ForbiddenPorts...)),
		Classifier: classifier,
		Dedup:      dedup.New(dedup.WithCapacity(cfg.DedupCapacity), dedup.WithErrorRate(cfg.DedupErrorRate)),
		Gate:       g,
		Fetcher:    fetcher,
		Links:      crawler.NewParser(),
		Aggregator: agg,
		Shutdown:   ctrl,
	}, nil
}

// finish writes the report file, prints the summary and saves the run to
// the history database. A report write failure is returned after the
// findings have been printed; a history failure is only logged.
func (r *scanRun) finish(ctx context.Context, rep *model.RunReport) error {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := report.ParseFormat(r.cfg.Format)
	if err != nil {
		return err
	}

	path, writeErr := report.WriteFile(r.cfg.OutputDir, format, rep, getVersion())

	summary := report.NewSimpleWriter(r.out, report.WithFindings(writeErr != nil))
	if _, err := summary.Write(rep); err != nil {
		r.logger.Warn("failed to print summary", "error", err)
	}

	r.saveHistory(ctx, rep)

	if writeErr != nil {
		return writeErr
	}
	fmt.Fprintf(r.out, "Report saved to %s\n", path)
	return nil
}

func (r *scanRun) saveHistory(ctx context.Context, rep *model.RunReport) {
	if !r.cfg.SaveHistory {
		return
	}

	db, err := database.Open(r.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		r.logger.Warn("failed to open history database", "dir", r.cfg.DBDir, "error", err)
		return
	}
	defer db.Close()

	// The run may have been cancelled; the save must still complete.
	if err := db.SaveRun(context.WithoutCancel(ctx), rep); err != nil {
		r.logger.Warn("failed to save run history", "run_id", rep.RunID, "error", err)
		return
	}
	r.logger.Debug("run saved to history", "run_id", rep.RunID, "db", db.Path())
}
