package input

import (
	"io"
	"os"

	"github.com/ladzaretti/sqlsplit/spliterrors"
	"github.com/ladzaretti/sqlsplit/sqltext"

	"golang.org/x/term"
)

// StdinPath is the input argument that selects standard input.
const StdinPath = "-"

// isTerminalFunc reports whether a file descriptor refers to a terminal.
var isTerminalFunc = term.IsTerminal

// SetDefaultIsTerminal overrides isTerminalFunc for testing.
func SetDefaultIsTerminal(f func(fd int) bool) {
	isTerminalFunc = f
}

// ResetIsTerminal restores the default terminal check.
func ResetIsTerminal() {
	isTerminalFunc = term.IsTerminal
}

// Stdin is the subset of a standard input stream needed to read a document.
type Stdin interface {
	io.Reader

	Fd() uintptr
	Stat() (os.FileInfo, error)
}

func IsPipedOrRedirected(fi os.FileInfo) bool {
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// IsInteractive reports whether in is attached to a terminal.
func IsInteractive(in Stdin) (bool, error) {
	fi, err := in.Stat()
	if err != nil {
		return false, err
	}

	//nolint:gosec // file descriptors fit in an int.
	return !IsPipedOrRedirected(fi) || isTerminalFunc(int(in.Fd())), nil
}

// ReadDocument loads the document named by path, or reads it from stdin
// when path is [StdinPath].
//
// Reading from an interactive stdin fails with [spliterrors.ErrInputIsTerminal].
func ReadDocument(path string, stdin Stdin) (*sqltext.Document, error) {
	if path != StdinPath {
		return sqltext.ReadFile(path)
	}

	interactive, err := IsInteractive(stdin)
	if err != nil {
		return nil, err
	}

	if interactive {
		return nil, spliterrors.ErrInputIsTerminal
	}

	return sqltext.Read("stdin", stdin)
}
