// Package splitter divides a SQL migration script into a header and a list of
// INSERT statements, and partitions the statements into a fixed number of
// contiguous, evenly sized parts.
//
// A statement ends at the first line whose right-trimmed content ends with
// the terminator sequence (");" by default). The terminator is matched
// textually: a ");" inside a string literal or comment also ends the
// statement.
package splitter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ladzaretti/sqlsplit/spliterrors"
	"github.com/ladzaretti/sqlsplit/sqltext"
	"github.com/ladzaretti/sqlsplit/util"

	"go.uber.org/zap"
)

const (
	// DefaultStartMarker marks the first body line, matched case-insensitively.
	DefaultStartMarker = "INSERT INTO"

	// DefaultTerminator closes a statement when found at the end of a line.
	DefaultTerminator = ");"

	// DefaultPartCount is the number of parts produced when none is configured.
	DefaultPartCount = 10
)

// Statement is a run of consecutive body lines forming one SQL statement.
type Statement struct {
	Lines []sqltext.Line
}

// Raw returns the statement text exactly as read.
func (s Statement) Raw() string {
	return sqltext.Join(s.Lines)
}

// Terminated reports whether the statement's last line ends with a line break.
func (s Statement) Terminated() bool {
	return len(s.Lines) > 0 && s.Lines[len(s.Lines)-1].Terminated()
}

// Part is one output group. Number is 1-based.
type Part struct {
	Number     int
	Statements []Statement
}

// Empty reports whether the part holds no statements.
func (p Part) Empty() bool {
	return len(p.Statements) == 0
}

// Result is the outcome of splitting a document.
type Result struct {
	Header     []sqltext.Line
	Statements []Statement
	PerPart    int
	Parts      []Part

	// Unterminated is set when the body ended before the last statement
	// reached the terminator.
	Unterminated bool
}

// Total returns the number of statements found in the body.
func (r *Result) Total() int {
	return len(r.Statements)
}

type Splitter struct {
	startMarker string
	terminator  string
	partCount   int

	logger *zap.Logger
}

type Opt func(*Splitter)

// WithStartMarker overrides [DefaultStartMarker].
func WithStartMarker(marker string) Opt {
	return func(s *Splitter) {
		s.startMarker = marker
	}
}

// WithTerminator overrides [DefaultTerminator].
func WithTerminator(terminator string) Opt {
	return func(s *Splitter) {
		s.terminator = terminator
	}
}

// WithPartCount overrides [DefaultPartCount].
func WithPartCount(n int) Opt {
	return func(s *Splitter) {
		s.partCount = n
	}
}

// WithLogger sets the logger used for debug events. A nil logger is ignored.
func WithLogger(l *zap.Logger) Opt {
	return func(s *Splitter) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Splitter with the given options applied over the defaults.
func New(opts ...Opt) *Splitter {
	s := &Splitter{
		startMarker: DefaultStartMarker,
		terminator:  DefaultTerminator,
		partCount:   DefaultPartCount,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// PartCount returns the configured number of parts.
func (s *Splitter) PartCount() int {
	return s.partCount
}

// Split locates the header/body boundary of doc, segments the body into
// statements and partitions them.
//
// It returns [spliterrors.ErrNoStatementsFound] if no line contains the start marker.
func (s *Splitter) Split(doc *sqltext.Document) (*Result, error) {
	if s.partCount < 1 {
		return nil, fmt.Errorf("%w: got %d", spliterrors.ErrInvalidPartCount, s.partCount)
	}

	idx, ok := s.Boundary(doc.Lines)
	if !ok {
		return nil, spliterrors.ErrNoStatementsFound
	}

	s.logger.Debug("found body start",
		zap.String("input", doc.Name),
		zap.Int("line", idx+1),
		zap.Int("header_lines", idx))

	stmts := s.Segment(doc.Lines[idx:])

	perPart, parts, err := Partition(stmts, s.partCount)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("segmented body",
		zap.Int("statements", len(stmts)),
		zap.Int("parts", len(parts)),
		zap.Int("per_part", perPart))

	last := stmts[len(stmts)-1].Lines

	return &Result{
		Header:       doc.Lines[:idx],
		Statements:   stmts,
		PerPart:      perPart,
		Parts:        parts,
		Unterminated: !s.closes(last[len(last)-1]),
	}, nil
}

// Boundary returns the index of the first line containing the start marker.
func (s *Splitter) Boundary(lines []sqltext.Line) (int, bool) {
	marker := strings.ToUpper(s.startMarker)

	for i, l := range lines {
		if strings.Contains(strings.ToUpper(l.Content), marker) {
			return i, true
		}
	}

	return -1, false
}

// Segment groups body lines into statements. Lines left over after the last
// terminator form a final statement.
func (s *Splitter) Segment(body []sqltext.Line) []Statement {
	var (
		stmts []Statement
		start int
	)

	for i, l := range body {
		if s.closes(l) {
			stmts = append(stmts, Statement{Lines: body[start : i+1 : i+1]})
			start = i + 1
		}
	}

	if start < len(body) {
		stmts = append(stmts, Statement{Lines: body[start:len(body):len(body)]})
	}

	return stmts
}

func (s *Splitter) closes(l sqltext.Line) bool {
	return strings.HasSuffix(strings.TrimRightFunc(l.Content, unicode.IsSpace), s.terminator)
}

// Partition distributes stmts over n parts of ceil(len(stmts)/n) statements
// each, in order. Trailing parts may be empty.
func Partition(stmts []Statement, n int) (perPart int, parts []Part, err error) {
	if n < 1 {
		return 0, nil, fmt.Errorf("%w: got %d", spliterrors.ErrInvalidPartCount, n)
	}

	perPart = util.CeilDiv(len(stmts), n)
	parts = make([]Part, n)

	for p := range n {
		parts[p] = Part{
			Number:     p + 1,
			Statements: util.Window(stmts, p*perPart, (p+1)*perPart),
		}
	}

	return perPart, parts, nil
}
