package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/nao1215/artistscan/internal/model"
)

// DefaultFlushEvery is the number of rows buffered before a flush.
const DefaultFlushEvery = 100

// GenreSeparator joins the genre labels of one record into a single column.
const GenreSeparator = ";"

// csvHeader is the column layout of the artist output file.
var csvHeader = []string{"id", "name", "popularity", "genres"}

// ErrWriterClosed is returned by Emit after Close.
var ErrWriterClosed = errors.New("csv writer is closed")

// CSVWriter is the output sink of a crawl. It writes one row per artist.
//
// Design decision: We use encoding/csv because quoting rules for names with
// commas, quotes and newlines are subtle, and the standard writer already
// handles them. Rows are buffered and flushed every flushEvery rows so a
// crash loses at most one buffer.
type CSVWriter struct {
	mu         sync.Mutex
	w          *csv.Writer
	closer     io.Closer
	flushEvery int
	pending    int
	rows       int
	closed     bool
}

// CSVOption configures a CSVWriter.
type CSVOption func(*CSVWriter)

// WithFlushEvery sets how many rows are buffered between flushes.
// Values below 1 flush after every row.
func WithFlushEvery(n int) CSVOption {
	return func(w *CSVWriter) {
		if n < 1 {
			n = 1
		}
		w.flushEvery = n
	}
}

// OpenCSV opens the artist output file at path.
// When fresh is true the file is truncated and a header is written.
// Otherwise rows are appended, and the header is written only if the file
// is new or empty.
func OpenCSV(path string, fresh bool, opts ...CSVOption) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if fresh {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	f, err := os.OpenFile(filepath.Clean(path), flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat output file: %w", err)
	}

	w := newCSVWriter(f, f, opts...)
	if info.Size() == 0 {
		if err := w.writeHeader(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return w, nil
}

// NewCSVWriter creates a CSVWriter on an arbitrary writer. The header is
// written immediately when writeHeader is true.
func NewCSVWriter(out io.Writer, writeHeader bool, opts ...CSVOption) (*CSVWriter, error) {
	var closer io.Closer
	if c, ok := out.(io.Closer); ok {
		closer = c
	}
	w := newCSVWriter(out, closer, opts...)
	if writeHeader {
		if err := w.writeHeader(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func newCSVWriter(out io.Writer, closer io.Closer, opts ...CSVOption) *CSVWriter {
	w := &CSVWriter{
		w:          csv.NewWriter(out),
		closer:     closer,
		flushEvery: DefaultFlushEvery,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *CSVWriter) writeHeader() error {
	if err := w.w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	return nil
}

// Emit writes one artist row. It is safe for concurrent use.
func (w *CSVWriter) Emit(artist model.Artist) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	if err := w.w.Write(artistRow(artist)); err != nil {
		return fmt.Errorf("failed to write artist %s: %w", artist.ID, err)
	}
	w.rows++
	w.pending++

	if w.pending >= w.flushEvery {
		return w.flushLocked()
	}
	return nil
}

// Flush writes buffered rows to the underlying writer.
func (w *CSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.flushLocked()
}

func (w *CSVWriter) flushLocked() error {
	w.w.Flush()
	w.pending = 0
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv output: %w", err)
	}
	return nil
}

// Rows returns the number of rows written since the writer was created.
func (w *CSVWriter) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close flushes buffered rows and closes the underlying file.
// Calling Close more than once is a no-op.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.flushLocked()
	if w.closer == nil {
		return flushErr
	}
	if err := w.closer.Close(); err != nil && flushErr == nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return flushErr
}

// ReadArtistIDs returns the ids already written to the output file at path.
// A missing file yields no ids. The header row is skipped.
func ReadArtistIDs(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var ids []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read output file: %w", err)
		}
		if len(record) == 0 || record[0] == "" || record[0] == csvHeader[0] {
			continue
		}
		ids = append(ids, record[0])
	}
	return ids, nil
}

func artistRow(a model.Artist) []string {
	return []string{
		a.ID,
		a.Name,
		strconv.Itoa(a.Popularity),
		strings.Join(a.Genres, GenreSeparator),
	}
}
