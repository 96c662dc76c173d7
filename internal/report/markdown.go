package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/artistscan/internal/crawler"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation. It gives us tables, mermaid charts and GitHub-flavored alerts
// without hand-escaping.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounters(md, summary)
	w.writeKinds(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Artistscan Run Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.RunID + "`"},
			{"Output", "`" + s.Output + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"Mode", modeText(s.Fresh)},
			{"Target", targetText(s.Target)},
			{"Workers", strconv.Itoa(s.Workers)},
			{"Stop Reason", s.StopReason},
		},
	})
	md.PlainText("")

	w.writeAlert(md, s)
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.StopReason == string(crawler.StopError):
		md.Cautionf("The run stopped on an unrecoverable error after %d artists. Output may be incomplete.", s.Emitted)
	case s.StopReason == string(crawler.StopCanceled):
		md.Warningf("The run was interrupted after %d artists. Resume it without --fresh to continue.", s.Emitted)
	case s.Abandoned > 0:
		md.Importantf("%d task(s) were abandoned after failures.", s.Abandoned)
	case s.StopReason == string(crawler.StopTarget):
		md.Tip("Target reached: " + formatInt(s.Emitted) + " unique artists.")
	default:
		md.Note("Crawl drained: " + formatInt(s.Emitted) + " unique artists.")
	}
	md.PlainText("")
}

// writeCounters writes the run counters table.
func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, s *Summary) {
	md.H2("Counters")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Artists emitted", formatInt(s.Emitted)},
			{"Requests", formatInt(s.Requests)},
			{"Retries", formatInt(s.Retries)},
			{"Rate limited", formatInt(s.RateLimited)},
			{"Abandoned tasks", formatInt(s.Abandoned)},
			{"Failed tasks", formatInt(s.Failed)},
			{"Duplicate records", formatInt(s.Duplicates)},
			{"Batches flushed on drain", strconv.Itoa(s.Flushed)},
		},
	})
	md.PlainText("")
}

// writeKinds writes the per endpoint kind table and a request pie chart.
func (w *MarkdownWriter) writeKinds(md *markdown.Markdown, s *Summary) {
	md.H2("Endpoints")
	md.PlainText("")

	if len(s.Kinds) == 0 {
		md.PlainText("No endpoint statistics recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(s.Kinds))
	for _, k := range s.Kinds {
		rows = append(rows, []string{
			k.Kind,
			k.Tier,
			formatInt(k.Requests),
			formatInt(k.Abandoned),
			strconv.Itoa(k.Samples),
			strconv.FormatFloat(k.AverageScore, 'f', 2, 64),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Tier", "Requests", "Abandoned", "Samples", "Avg Score"},
		Rows:   rows,
	})
	md.PlainText("")

	busiest := s.busiestKinds()
	if len(busiest) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Requests by Endpoint"),
		piechart.WithShowData(true),
	)
	for _, k := range busiest {
		chart.LabelAndIntValue(k.Kind, uint64(k.Requests)) //nolint:gosec // request counts are never negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Summary generated by [artistscan](https://github.com/nao1215/artistscan)*")
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
