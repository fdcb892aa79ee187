package partwriter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ladzaretti/sqlsplit/checksum"
	"github.com/ladzaretti/sqlsplit/spliterrors"
	"github.com/ladzaretti/sqlsplit/splitter"
	"github.com/ladzaretti/sqlsplit/sqltext"
)

// Verify reads back every written part of res and checks that, taken in part
// order, they carry exactly the statements of res.
//
// Each part must start with the header and the blank separator line. The rest
// is re-segmented with s and compared against the expected statements through
// their [checksum.Digest].
func (w *Writer) Verify(s *splitter.Splitter, res *splitter.Result) (checksum.Digest, error) {
	want, got := checksum.New(), checksum.New()

	for _, p := range res.Parts {
		path := w.Path(p.Number)

		raw, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return checksum.Digest{}, err
		}

		stmts, err := parsePart(s, res.Header, raw, p.Empty())
		if err != nil {
			return checksum.Digest{}, fmt.Errorf("%w: %s: %w", spliterrors.ErrVerifyMismatch, path, err)
		}

		want.Add(p.Statements...)
		got.Add(stmts...)

		if want.Sum() != got.Sum() {
			return checksum.Digest{}, fmt.Errorf("%w: %s: statements differ", spliterrors.ErrVerifyMismatch, path)
		}
	}

	if want.Count() != res.Total() {
		return checksum.Digest{}, fmt.Errorf("%w: %d of %d statements written",
			spliterrors.ErrVerifyMismatch, want.Count(), res.Total())
	}

	return got.Sum(), nil
}

// parsePart strips the header and separator from a written part and returns
// its statements.
//
// The prefix is matched on raw bytes: a header ending in a lone "\r" followed
// by the separator would otherwise re-read as one "\r\n" line.
func parsePart(s *splitter.Splitter, header []sqltext.Line, raw []byte, empty bool) ([]splitter.Statement, error) {
	prefix := sqltext.Join(header) + sqltext.Newline

	body, ok := bytes.CutPrefix(raw, []byte(prefix))
	if !ok {
		return nil, errors.New("part does not start with the header and a blank line")
	}

	if empty {
		if string(body) != Placeholder+sqltext.Newline {
			return nil, errors.New("empty part without placeholder")
		}

		return nil, nil
	}

	return s.Segment(sqltext.Parse("part", body).Lines), nil
}
