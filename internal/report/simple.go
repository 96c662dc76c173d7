package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/artistscan/internal/database"
)

// SimpleWriter outputs human-readable run summaries.
// This format is designed for terminal display at the end of a crawl.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose adds the per-kind table.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per endpoint kind breakdown.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        ARTISTSCAN RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Run ID:       %s\n", summary.RunID)
	fmt.Fprintf(&sb, "Output:       %s\n", summary.Output)
	fmt.Fprintf(&sb, "Started:      %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration:     %s\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Stop reason:  %s\n", summary.StopReason)
	fmt.Fprintf(&sb, "Mode:         %s\n", modeText(summary.Fresh))
	fmt.Fprintf(&sb, "Target:       %s\n", targetText(summary.Target))
	fmt.Fprintf(&sb, "Workers:      %d\n", summary.Workers)
	sb.WriteString("\n")

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nCOUNTERS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "  ARTISTS:      %d\n", summary.Emitted)
	fmt.Fprintf(&sb, "  REQUESTS:     %d\n", summary.Requests)
	fmt.Fprintf(&sb, "  RETRIES:      %d\n", summary.Retries)
	fmt.Fprintf(&sb, "  RATE LIMITED: %d\n", summary.RateLimited)
	fmt.Fprintf(&sb, "  ABANDONED:    %d\n", summary.Abandoned)
	fmt.Fprintf(&sb, "  FAILED:       %d\n", summary.Failed)
	fmt.Fprintf(&sb, "  DUPLICATES:   %d\n", summary.Duplicates)
	fmt.Fprintf(&sb, "  BATCHES:      %d flushed on drain\n", summary.Flushed)
	sb.WriteString("\n")

	if w.verbose {
		w.writeKinds(&sb, summary)
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeKinds(sb *strings.Builder, summary *Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nENDPOINTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  %-20s %-10s %9s %9s %9s\n", "KIND", "TIER", "REQUESTS", "ABANDONED", "AVG SCORE")
	for _, k := range summary.Kinds {
		fmt.Fprintf(sb, "  %-20s %-10s %9d %9d %9.2f\n", k.Kind, k.Tier, k.Requests, k.Abandoned, k.AverageScore)
	}
	sb.WriteString("\n")
}

// WriteHistory prints stored runs, newest first, as a plain text table.
func WriteHistory(output io.Writer, runs []database.RunRecord) (int, error) {
	var sb strings.Builder

	if len(runs) == 0 {
		sb.WriteString("No crawl runs recorded.\n")
		return output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-36s  %-19s  %-5s  %8s  %8s  %8s  %-14s\n",
		"RUN ID", "STARTED", "FRESH", "ARTISTS", "REQUESTS", "DURATION", "STOP REASON")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-36s  %-19s  %-5t  %8d  %8d  %8s  %-14s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Fresh,
			r.Emitted,
			r.Requests,
			r.Duration().Round(time.Second),
			r.StopReason,
		)
	}
	return output.Write([]byte(sb.String()))
}

func modeText(fresh bool) string {
	if fresh {
		return "fresh"
	}
	return "resume"
}

func targetText(target int) string {
	if target <= 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d artists", target)
}
