// Package report writes crawl output and run summaries.
//
// CSVWriter is the output sink of a crawl: it receives each unique artist
// record once and appends it to a CSV file. The summary writers render the
// statistics of a finished run:
//   - SimpleWriter: human-readable text output for terminal display
//   - JSONWriter: structured JSON output for tool integration
//   - MarkdownWriter: a Markdown document with tables and a request chart
//
// Design decision: We separate the summary data (Summary) from the writers
// so that new output formats can be added without touching the crawler.
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
