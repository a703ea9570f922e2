package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/shotdiff/internal/aggregate"
	"github.com/nao1215/shotdiff/internal/config"
	"github.com/nao1215/shotdiff/internal/database"
	"github.com/nao1215/shotdiff/internal/model"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02 15:04:05"

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	device    string
	listRuns  bool
	withRunID int64
	limit     int
	json      bool
	markdown  bool
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Compare a run with earlier runs",
		Long: `History reads the runs saved by 'shotdiff run' and compares the latest run
of a device with the one before it (or with a run chosen by ID). It lists:
- Pages that regressed (passed before, fail or error now)
- Pages that recovered
- Score changes of pages compared in both runs
- Pages added to or removed from the configuration

Examples:
  # Compare the latest two runs (device may be omitted when only one exists)
  shotdiff history --device desktop

  # List saved runs
  shotdiff history --runs

  # Compare the latest run with run 12
  shotdiff history --device desktop --with-run-id 12

  # Markdown output for a pull request comment
  shotdiff history --device mobile --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("device", "d", "", "Device whose runs are compared")
	cmd.Flags().BoolP("runs", "r", false, "List saved runs instead of comparing")
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with this run (use --runs to see IDs)")
	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs listed by --runs (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.device, err = flags.GetString("device"); err != nil {
		return err
	}
	if opts.listRuns, err = flags.GetBool("runs"); err != nil {
		return err
	}
	if opts.withRunID, err = flags.GetInt64("with-run-id"); err != nil {
		return err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return errors.New("--json and --markdown cannot be used together")
	}

	cfg := config.NewConfig()
	env, err := config.LoadEnv(".env")
	if err != nil {
		return err
	}
	env.Apply(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openHistory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	return runHistory(ctx, db, opts, cmd.OutOrStdout())
}

func runHistory(ctx context.Context, db *database.RunDB, opts historyOptions, out io.Writer) error {
	if opts.listRuns {
		return listRuns(ctx, db, opts.device, opts.limit, out)
	}

	device, err := resolveDevice(ctx, db, opts.device)
	if err != nil {
		return err
	}

	latest, err := db.LatestRuns(ctx, device, 2)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("no runs found for device %s", device)
	}

	current := latest[0]
	var previous *model.Run
	switch {
	case opts.withRunID > 0:
		previous, err = db.GetRun(ctx, opts.withRunID)
		if err != nil {
			return err
		}
		if previous.Device.Name != device {
			return fmt.Errorf("run %d belongs to device %s, not %s", previous.ID, previous.Device.Name, device)
		}
		if previous.ID == current.ID {
			return fmt.Errorf("run %d is the latest run; choose an earlier one", previous.ID)
		}
	case len(latest) < 2:
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(latest))
	default:
		previous = latest[1]
	}

	comparison := aggregate.CompareRuns(previous, current)
	switch {
	case opts.json:
		return writeComparisonJSON(out, comparison)
	case opts.markdown:
		return writeComparisonMarkdown(out, comparison)
	default:
		writeComparisonText(out, comparison)
		return nil
	}
}

// resolveDevice returns device, or the only device with runs when device is empty.
func resolveDevice(ctx context.Context, db *database.RunDB, device string) (string, error) {
	if device != "" {
		return device, nil
	}
	devices, err := db.ListDevices(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return "", errors.New("no runs found in the history database (run 'shotdiff run' first)")
	case 1:
		return devices[0], nil
	default:
		return "", fmt.Errorf("runs exist for several devices (%s): choose one with --device", strings.Join(devices, ", "))
	}
}

func listRuns(ctx context.Context, db *database.RunDB, device string, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, device, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'shotdiff run' to compare your environments.")
		return nil
	}

	fmt.Fprintf(out, "Saved runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %-20s  %s\n", "ID", "Date", "Device", "Environments", "Pass/Fail/Error")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))
	for _, r := range runs {
		counts := fmt.Sprintf("%d/%d/%d", r.Summary.Pass, r.Summary.Fail, r.Summary.Error)
		if r.TimedOut {
			counts += " (timed out)"
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-10s  %-20s  %s\n",
			r.ID,
			r.StartedAt.Local().Format(dateLayout),
			r.Device,
			r.Candidate+" vs "+r.Reference,
			counts,
		)
	}
	fmt.Fprintln(out, "\nUse 'shotdiff history --device <name>' to compare the latest two runs.")
	return nil
}

func writeComparisonJSON(out io.Writer, c *aggregate.RunComparison) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

func writeComparisonText(out io.Writer, c *aggregate.RunComparison) {
	fmt.Fprintf(out, "Run comparison: %s\n", c.Device)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nStatus: %s\n", comparisonStatus(c))

	fmt.Fprintf(out, "\nPrevious run: #%-5d %s  %s\n", c.Previous.ID,
		c.Previous.StartedAt.Local().Format(dateLayout), formatSummary(c.Previous.Summary))
	fmt.Fprintf(out, "Current run:  #%-5d %s  %s\n", c.Current.ID,
		c.Current.StartedAt.Local().Format(dateLayout), formatSummary(c.Current.Summary))

	sections := []struct {
		title  string
		marker string
		pages  []aggregate.PageChange
	}{
		{"Regressed", "[-]", c.Regressed},
		{"Recovered", "[+]", c.Recovered},
		{"Score changes", "[~]", c.Changed},
	}
	for _, s := range sections {
		if len(s.pages) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s (%d):\n", s.title, len(s.pages))
		for _, p := range s.pages {
			fmt.Fprintf(out, "  %s %s  %s\n", s.marker, p.Path, formatChange(p))
		}
	}

	if len(c.Added) > 0 {
		fmt.Fprintf(out, "\nNew pages: %s\n", strings.Join(c.Added, ", "))
	}
	if len(c.Removed) > 0 {
		fmt.Fprintf(out, "\nRemoved pages: %s\n", strings.Join(c.Removed, ", "))
	}
	fmt.Fprintf(out, "\nUnchanged: %d page(s)\n", c.Unchanged)
}

func writeComparisonMarkdown(out io.Writer, c *aggregate.RunComparison) error {
	md := markdown.NewMarkdown(out)
	md.H1("Run comparison: " + c.Device)
	md.PlainText("")
	md.PlainTextf("**Status:** %s", comparisonStatus(c))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Run", "ID", "Date", "Pass", "Fail", "Error"},
		Rows: [][]string{
			summaryRow("Previous", c.Previous),
			summaryRow("Current", c.Current),
		},
	})
	md.PlainText("")

	if c.HasRegressions() {
		md.Warningf("%d page(s) regressed since run #%d.", len(c.Regressed), c.Previous.ID)
		md.PlainText("")
	}

	changes := make([]aggregate.PageChange, 0, len(c.Regressed)+len(c.Recovered)+len(c.Changed))
	changes = append(changes, c.Regressed...)
	changes = append(changes, c.Recovered...)
	changes = append(changes, c.Changed...)
	if len(changes) > 0 {
		md.H2("Changed pages")
		md.PlainText("")
		rows := make([][]string, 0, len(changes))
		for _, p := range changes {
			rows = append(rows, []string{
				"`" + p.Path + "`",
				p.Change,
				p.Previous.Label(),
				p.Current.Label(),
				formatDelta(p.Delta),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Change", "Previous", "Current", "Delta"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(c.Added) > 0 {
		md.H2("New pages")
		md.BulletList(c.Added...)
		md.PlainText("")
	}
	if len(c.Removed) > 0 {
		md.H2("Removed pages")
		md.BulletList(c.Removed...)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainTextf("*%d page(s) unchanged*", c.Unchanged)
	return md.Build()
}

func comparisonStatus(c *aggregate.RunComparison) string {
	switch {
	case c.HasRegressions():
		return fmt.Sprintf("REGRESSED (%d page(s) got worse)", len(c.Regressed))
	case len(c.Recovered) > 0:
		return fmt.Sprintf("IMPROVED (%d page(s) recovered)", len(c.Recovered))
	default:
		return "UNCHANGED"
	}
}

func summaryRow(name string, info aggregate.RunInfo) []string {
	return []string{
		name,
		fmt.Sprintf("#%d", info.ID),
		info.StartedAt.Local().Format(dateLayout),
		fmt.Sprint(info.Summary.Pass),
		fmt.Sprint(info.Summary.Fail),
		fmt.Sprint(info.Summary.Error),
	}
}

func formatSummary(s aggregate.Summary) string {
	return fmt.Sprintf("pass %d  fail %d  error %d", s.Pass, s.Fail, s.Error)
}

func formatChange(p aggregate.PageChange) string {
	s := p.Previous.Label() + " -> " + p.Current.Label()
	if p.Delta != nil {
		s += " (" + formatDelta(p.Delta) + ")"
	}
	return s
}

// formatDelta formats a score delta with its sign, or "-" when there is none.
func formatDelta(delta *float64) string {
	if delta == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f", *delta)
}
