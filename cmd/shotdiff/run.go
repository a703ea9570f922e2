package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/shotdiff/internal/aggregate"
	"github.com/nao1215/shotdiff/internal/capture"
	"github.com/nao1215/shotdiff/internal/config"
	"github.com/nao1215/shotdiff/internal/database"
	"github.com/nao1215/shotdiff/internal/log"
	"github.com/nao1215/shotdiff/internal/model"
	"github.com/nao1215/shotdiff/internal/pipeline"
	"github.com/nao1215/shotdiff/internal/report"
	"github.com/spf13/cobra"
)

// ErrVisualRegression is returned by run --fail-on-diff when a page failed or errored.
var ErrVisualRegression = errors.New("visual regression detected")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture and compare every configured page",
		Long: `Run captures each configured page from the reference and the candidate
environment for every device, compares the screenshots and writes one report
per device into the output directory:

  <output>/visual_comparison_report_<device>.html
  <output>/screenshots/<device>/<env>/<page>.png
  <output>/screenshots/<device>/diff/<page>.png

A page passes when at least 95% of its pixels match. A page whose navigation
does not settle in time is captured anyway; a page that cannot be captured or
decoded is reported as an error. Failing pages are listed first.

Examples:
  # Compare using .shotdiff from the current or home directory
  shotdiff run

  # Only the mobile device, with Markdown and JSON reports for CI
  shotdiff run -d mobile --markdown --json

  # Exit with status 1 when any page fails
  shotdiff run --fail-on-diff`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .shotdiff in current or home directory)")
	cmd.Flags().StringSliceP("device", "d", nil,
		"Device to run, may be repeated (default: every configured device)")
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Output directory for screenshots and reports")

	cmd.Flags().DurationP("timeout", "t", config.DefaultRunTimeout,
		"Timeout for the whole run; pages not reached are reported as not run")
	cmd.Flags().Duration("settle-timeout", config.DefaultSettleTimeout,
		"Time a page may keep loading before it is captured anyway")
	cmd.Flags().Duration("capture-timeout", config.DefaultCaptureTimeout,
		"Timeout for loading and capturing one page")
	cmd.Flags().Duration("navigation-interval", config.DefaultNavigationInterval,
		"Minimum time between two navigations of one browser")

	cmd.Flags().BoolP("markdown", "m", false, "Also write a Markdown report")
	cmd.Flags().BoolP("json", "j", false, "Also write a JSON report")
	cmd.Flags().Bool("composite", false,
		"Write a side-by-side image (reference | candidate | diff) per page")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of devices compared at once (one browser each)")

	cmd.Flags().Bool("no-history", false, "Do not save the run to the history database")
	cmd.Flags().Bool("fail-on-diff", false, "Exit with an error when any page fails or errors")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	browsers, err := chromeFactory(cfg, logger)
	if err != nil {
		return err
	}
	return runComparison(ctx, cfg, browsers, cmd.OutOrStdout(), logger)
}

// buildConfig creates a Config from defaults, the environment, the
// configuration file and the command flags, in increasing precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	env, err := config.LoadEnv(".env")
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)

	flags := cmd.Flags()
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		if cfg.File, err = config.LoadConfigFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if cfg.Devices, err = flags.GetStringSlice("device"); err != nil {
		return nil, err
	}
	// output and timeout may also come from the environment; only an explicit flag overrides it
	if flags.Changed("output") {
		if cfg.OutputDir, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.RunTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if cfg.SettleTimeout, err = flags.GetDuration("settle-timeout"); err != nil {
		return nil, err
	}
	if cfg.CaptureTimeout, err = flags.GetDuration("capture-timeout"); err != nil {
		return nil, err
	}
	if cfg.NavigationInterval, err = flags.GetDuration("navigation-interval"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.Composite, err = flags.GetBool("composite"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	if cfg.FailOnDiff, err = flags.GetBool("fail-on-diff"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// chromeFactory opens one Chrome tab per device session.
func chromeFactory(cfg *config.Config, logger *slog.Logger) (pipeline.BrowserFactory, error) {
	headers, err := cfg.File.HostHeaders()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, device model.Device) (capture.Browser, func() error, error) {
		b, err := capture.NewChromeBrowser(ctx, capture.ChromeOptions{
			ExecPath:  cfg.ChromePath,
			RemoteURL: cfg.RemoteURL,
			Headless:  cfg.Headless,
			Width:     device.Width,
			Height:    device.Height,
			Scale:     device.Scale,
			Mobile:    device.Mobile,
			UserAgent: cfg.File.UserAgent(device.Name),
			Headers:   headers,
		}, logger.With("device", device.Name))
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}, nil
}

// openHistory opens the PostgreSQL database when a URL is configured and the
// SQLite database in DBDir otherwise.
func openHistory(ctx context.Context, cfg *config.Config) (*database.RunDB, error) {
	if cfg.DatabaseURL != "" {
		return database.OpenURL(ctx, cfg.DatabaseURL)
	}
	return database.Open(cfg.DBDir, database.DefaultOptions())
}

// runComparison runs every selected device, writes the reports as each
// device finishes and saves the runs to history.
func runComparison(ctx context.Context, cfg *config.Config, browsers pipeline.BrowserFactory, out io.Writer, logger *slog.Logger) error {
	devices, err := cfg.SelectedDevices()
	if err != nil {
		return err
	}
	targets := cfg.File.Targets()

	var db *database.RunDB
	if cfg.SaveHistory {
		if db, err = openHistory(ctx, cfg); err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Debug("history database opened", "location", db.Location())
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	engine := pipeline.NewEngine(browsers, pipeline.EngineConfig{
		Width:  config.DefaultWidth,
		Height: config.DefaultHeight,
		CaptureOptions: []capture.Option{
			capture.WithSettleTimeout(cfg.SettleTimeout),
			capture.WithCaptureTimeout(cfg.CaptureTimeout),
			capture.WithNavigationInterval(cfg.NavigationInterval),
		},
		Composite:       cfg.Composite,
		CompositeFactor: cfg.CompositeFactor,
	}, logger)

	sessions := make([]pipeline.Session, 0, len(devices))
	for _, d := range devices {
		sessions = append(sessions, pipeline.Session{
			Device:  d,
			Layout:  model.NewLayout(cfg.OutputDir, d.Name, cfg.File.Reference, cfg.File.Candidate),
			Targets: targets,
		})
	}

	fmt.Fprintf(out, "Comparing %d page(s) on %d device(s): %s vs %s\n\n",
		len(targets), len(sessions), cfg.File.Candidate, cfg.File.Reference)
	startTime := time.Now()

	var (
		mu        sync.Mutex
		failures  int
		reportErr error
	)
	bp := pipeline.NewBatchProcessor(engine.RunSession,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)
	bp.ProcessBatch(ctx, sessions, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		layout := sessions[index].Layout
		failures += aggregate.Summarize(run.Results).Failures()

		if _, err := report.NewSimpleWriter(out, layout, report.WithVerbose(cfg.Verbose)).Write(run); err != nil {
			logger.Error("failed to print summary", "device", run.Device.Name, "error", err)
		}

		paths, err := report.WriteFiles(run, layout, report.Formats{
			Markdown: cfg.MarkdownReport,
			JSON:     cfg.JSONReport,
		})
		if err != nil {
			logger.Error("failed to write report", "device", run.Device.Name, "error", err)
			reportErr = errors.Join(reportErr, fmt.Errorf("device %s: %w", run.Device.Name, err))
		}
		for _, p := range paths {
			fmt.Fprintf(out, "Report: %s\n", p)
		}
		fmt.Fprintln(out)

		if db != nil {
			// a run cut short by its deadline is still recorded
			if _, err := db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
				logger.Error("failed to save run", "device", run.Device.Name, "error", err)
			} else {
				logger.Debug("run saved to history", "device", run.Device.Name, "id", run.ID)
			}
		}
	})

	fmt.Fprintf(out, "Finished in %s\n", time.Since(startTime).Round(time.Millisecond))

	if reportErr != nil {
		return reportErr
	}
	if cfg.FailOnDiff && failures > 0 {
		return fmt.Errorf("%w: %d page(s) failed or errored", ErrVisualRegression, failures)
	}
	return nil
}
