package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/artistscan/internal/config"
	"github.com/nao1215/artistscan/internal/database"
	"github.com/nao1215/artistscan/internal/report"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewStatsCmd creates the stats command.
// This command shows the run history stored in the database.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [run-id]",
		Short: "Show crawl run history",
		Long: `Stats lists previous crawl runs recorded in the state database, newest
first, together with the number of artists in the visited set.

Pass a run ID to see the per-endpoint request counts of a single run.

Examples:
  # List the last 20 runs
  artistscan stats

  # List every run
  artistscan stats --limit 0

  # Show one run as JSON
  artistscan stats --json 3f2b6c1e-4e0f-4c1a-9d59-0c3e8f2b7a10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatsCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Number of runs to list (0 lists every run)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", "",
		"Directory of the state database (default: XDG data directory)")

	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		return showRun(ctx, out, db, args[0], jsonOutput)
	}
	return listRuns(ctx, out, db, limit, jsonOutput)
}

// runView is the JSON shape of a stored run.
type runView struct {
	ID              string         `json:"id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	DurationSeconds float64        `json:"duration_seconds"`
	Fresh           bool           `json:"fresh"`
	Target          int            `json:"target"`
	Workers         int            `json:"workers"`
	Emitted         int            `json:"emitted"`
	Requests        int            `json:"requests"`
	Retries         int            `json:"retries"`
	Abandoned       int            `json:"abandoned"`
	StopReason      string         `json:"stop_reason"`
	KindRequests    map[string]int `json:"kind_requests,omitempty"`
}

func newRunView(r *database.RunRecord) runView {
	return runView{
		ID:              r.ID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		DurationSeconds: r.Duration().Seconds(),
		Fresh:           r.Fresh,
		Target:          r.Target,
		Workers:         r.Workers,
		Emitted:         r.Emitted,
		Requests:        r.Requests,
		Retries:         r.Retries,
		Abandoned:       r.Abandoned,
		StopReason:      r.StopReason,
		KindRequests:    r.KindRequests,
	}
}

// listRuns prints the most recent runs and the visited set size.
func listRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	visited, err := db.CountVisited(ctx)
	if err != nil {
		return fmt.Errorf("failed to count visited artists: %w", err)
	}

	if jsonOutput {
		views := make([]runView, 0, len(runs))
		for i := range runs {
			views = append(views, newRunView(&runs[i]))
		}
		return encodeJSON(out, struct {
			Visited int       `json:"visited"`
			Runs    []runView `json:"runs"`
		}{Visited: visited, Runs: views})
	}

	if _, err := report.WriteHistory(out, runs); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nVisited set (sqlite): %d artists\n", visited)
	return nil
}

// showRun prints a single run in detail.
func showRun(ctx context.Context, out io.Writer, db *database.CrawlDB, id string, jsonOutput bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	if jsonOutput {
		return encodeJSON(out, newRunView(run))
	}

	fmt.Fprintf(out, "Run ID:      %s\n", run.ID)
	fmt.Fprintf(out, "Started:     %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Duration:    %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "Stop reason: %s\n", run.StopReason)
	fmt.Fprintf(out, "Fresh:       %t\n", run.Fresh)
	fmt.Fprintf(out, "Target:      %d\n", run.Target)
	fmt.Fprintf(out, "Workers:     %d\n", run.Workers)
	fmt.Fprintf(out, "Artists:     %d\n", run.Emitted)
	fmt.Fprintf(out, "Requests:    %d (retries: %d, abandoned: %d)\n", run.Requests, run.Retries, run.Abandoned)

	if len(run.KindRequests) > 0 {
		fmt.Fprintln(out, "\nRequests by endpoint:")
		kinds := make([]string, 0, len(run.KindRequests))
		for k := range run.KindRequests {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(out, "  %-20s %d\n", k, run.KindRequests[k])
		}
	}
	return nil
}

func encodeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
