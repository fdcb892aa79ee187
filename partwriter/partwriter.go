// Package partwriter renders split parts and persists them as numbered SQL
// files, one file at a time.
//
// A rendered part is the header, verbatim, followed by one blank line and then
// the part's statements. A statement whose last line has no line break gets
// one. An empty part holds a single [Placeholder] comment instead.
package partwriter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ladzaretti/sqlsplit/spliterrors"
	"github.com/ladzaretti/sqlsplit/splitter"
	"github.com/ladzaretti/sqlsplit/sqltext"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	// DefaultPrefix is the file name prefix of written parts.
	DefaultPrefix = "V35_Migrate_Street_Mapping_Part_"

	// Ext is the extension of written parts.
	Ext = ".sql"

	// Placeholder is written in place of statements for an empty part.
	Placeholder = "-- (no statements in this part)"

	defaultPerm    os.FileMode = 0o644
	defaultBufSize             = 64 * 1024
)

type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return "write " + e.Path + ": " + e.Err.Error() }

func (e *WriteError) Unwrap() error { return e.Err }

// PartReport describes one rendered part.
type PartReport struct {
	Number     int
	Path       string
	Statements int
	Bytes      int64
}

type Writer struct {
	dir    string
	prefix string

	bufSize int
	dryRun  bool

	logger *zap.Logger
}

type Opt func(*Writer)

// WithDryRun renders parts without creating any file.
func WithDryRun(enabled bool) Opt {
	return func(w *Writer) {
		w.dryRun = enabled
	}
}

// WithLogger sets the logger used for debug events. A nil logger is ignored.
func WithLogger(l *zap.Logger) Opt {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Writer that places parts named <prefix><n>.sql under dir.
func New(dir, prefix string, opts ...Opt) (*Writer, error) {
	if len(prefix) == 0 {
		return nil, spliterrors.ErrEmptyPrefix
	}

	if strings.ContainsAny(prefix, `/\`) {
		return nil, fmt.Errorf("prefix %q must not contain path separators", prefix)
	}

	w := &Writer{
		dir:     dir,
		prefix:  prefix,
		bufSize: defaultBufSize,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Path returns the output path of the part with the given 1-based number.
func (w *Writer) Path(number int) string {
	return filepath.Join(w.dir, w.prefix+strconv.Itoa(number)+Ext)
}

// WriteAll writes every part of res in order. The context is checked before
// each part; a cancelled run leaves already written parts in place.
func (w *Writer) WriteAll(ctx context.Context, res *splitter.Result) ([]PartReport, error) {
	reports := make([]PartReport, 0, len(res.Parts))

	for _, p := range res.Parts {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		r, err := w.Write(res.Header, p)
		if err != nil {
			return reports, err
		}

		reports = append(reports, r)
	}

	return reports, nil
}

// Write renders a single part to its file. The file is closed before Write
// returns.
func (w *Writer) Write(header []sqltext.Line, p splitter.Part) (PartReport, error) {
	r := PartReport{
		Number:     p.Number,
		Path:       w.Path(p.Number),
		Statements: len(p.Statements),
	}

	n, err := w.write(r.Path, header, p)
	if err != nil {
		return r, &WriteError{Path: r.Path, Err: err}
	}

	r.Bytes = n

	w.logger.Debug("rendered part",
		zap.Int("part", p.Number),
		zap.String("path", r.Path),
		zap.Int("statements", r.Statements),
		zap.String("size", humanize.Bytes(uint64(n))), //nolint:gosec // n is non-negative
		zap.Bool("dry_run", w.dryRun))

	return r, nil
}

func (w *Writer) write(path string, header []sqltext.Line, p splitter.Part) (n int64, retErr error) {
	if w.dryRun {
		return Render(io.Discard, header, p)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultPerm)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()

	bw := bufio.NewWriterSize(f, w.bufSize)

	n, err = Render(bw, header, p)
	if err != nil {
		return n, err
	}

	return n, bw.Flush()
}

// Render writes the textual form of a part to dst and returns the number of
// bytes written.
func Render(dst io.Writer, header []sqltext.Line, p splitter.Part) (int64, error) {
	cw := &countingWriter{w: dst}

	if _, err := sqltext.WriteLines(cw, header); err != nil {
		return cw.n, err
	}

	if _, err := io.WriteString(cw, sqltext.Newline); err != nil {
		return cw.n, err
	}

	if p.Empty() {
		_, err := io.WriteString(cw, Placeholder+sqltext.Newline)
		return cw.n, err
	}

	for _, s := range p.Statements {
		if _, err := sqltext.WriteLines(cw, s.Lines); err != nil {
			return cw.n, err
		}

		if !s.Terminated() {
			if _, err := io.WriteString(cw, sqltext.Newline); err != nil {
				return cw.n, err
			}
		}
	}

	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
