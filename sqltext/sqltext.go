// Package sqltext loads SQL script text as a sequence of lines, keeping each
// line's content apart from the terminator that ended it.
//
// Writing every line back as Content+Terminator reproduces the input byte for
// byte, whatever mix of "\n", "\r\n" and "\r" it used.
package sqltext

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Newline is the terminator used for lines synthesized by this codebase.
const Newline = "\n"

// Line is a single line of text.
type Line struct {
	Content    string // Content is the line text without its terminator.
	Terminator string // Terminator is "\n", "\r\n", "\r", or "" for an unterminated last line.
}

// Raw returns the line exactly as it appeared in the input.
func (l Line) Raw() string {
	return l.Content + l.Terminator
}

// Terminated reports whether the line ended with a line break.
func (l Line) Terminated() bool {
	return len(l.Terminator) > 0
}

// Document is the ordered, read-only sequence of lines of one input.
type Document struct {
	Name  string // Name identifies the source, usually its path.
	Lines []Line
}

// Len returns the number of lines in the document.
func (d *Document) Len() int {
	return len(d.Lines)
}

// Size returns the document size in bytes.
func (d *Document) Size() int {
	n := 0
	for _, l := range d.Lines {
		n += len(l.Content) + len(l.Terminator)
	}

	return n
}

// Parse splits b into lines.
func Parse(name string, b []byte) *Document {
	d := &Document{Name: name}

	for len(b) > 0 {
		i := bytes.IndexAny(b, "\r\n")
		if i < 0 {
			d.Lines = append(d.Lines, Line{Content: string(b)})
			break
		}

		n := 1
		if b[i] == '\r' && i+1 < len(b) && b[i+1] == '\n' {
			n = 2
		}

		d.Lines = append(d.Lines, Line{
			Content:    string(b[:i]),
			Terminator: string(b[i : i+n]),
		})

		b = b[i+n:]
	}

	return d
}

// Read reads r to EOF and parses it.
func Read(name string, r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return Parse(name, b), nil
}

// ReadFile loads the file at path.
func ReadFile(path string) (*Document, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return Parse(path, b), nil
}

// Join concatenates the raw form of lines.
func Join(lines []Line) string {
	var sb strings.Builder

	for _, l := range lines {
		sb.WriteString(l.Content)
		sb.WriteString(l.Terminator)
	}

	return sb.String()
}

// WriteLines writes the raw form of lines to w.
func WriteLines(w io.Writer, lines []Line) (int64, error) {
	var total int64

	for _, l := range lines {
		n, err := io.WriteString(w, l.Raw())
		total += int64(n)

		if err != nil {
			return total, err
		}
	}

	return total, nil
}
