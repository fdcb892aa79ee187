package cli_test

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ladzaretti/sqlsplit/cli"
	"github.com/ladzaretti/sqlsplit/clierror"
	"github.com/ladzaretti/sqlsplit/genericclioptions"
	"github.com/ladzaretti/sqlsplit/input"

	gocmp "github.com/google/go-cmp/cmp"
)

const testPrefix = "Part_"

type splitEnv struct {
	dir        string
	inputPath  string
	configPath string
}

// setupSplitEnv creates a temp dir holding the input file and, when config
// is not empty, a config file with the given extension.
func setupSplitEnv(t *testing.T, content string, config string, configExt string) splitEnv {
	t.Helper()

	dir := t.TempDir()

	// never pick up the config of the user running the tests.
	t.Setenv("SQLSPLIT_CONFIG_PATH", filepath.Join(dir, "missing.toml"))

	env := splitEnv{
		dir:       dir,
		inputPath: filepath.Join(dir, "V35__Migrate_Street_Mapping.sql"),
	}

	if err := os.WriteFile(env.inputPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write input file: %v", err)
	}

	if len(config) > 0 {
		env.configPath = filepath.Join(dir, ".sqlsplit"+configExt)
		if err := os.WriteFile(env.configPath, []byte(config), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
	}

	return env
}

// setupIOStreams creates IOStreams with a mocked stdin.
func setupIOStreams(t *testing.T, in []byte, stdinInfoFn func(string, int) os.FileInfo) (ioStreams *genericclioptions.IOStreams, out *bytes.Buffer, errOut *bytes.Buffer) {
	t.Helper()

	var (
		buf       = bytes.NewReader(in)
		stdinInfo = stdinInfoFn("stdin", len(in))
	)

	stdinReader := genericclioptions.NewTestFdReader(buf, 0, stdinInfo)

	ioStreams, _, out, errOut = genericclioptions.NewTestIOStreams(stdinReader)

	clierror.SetErrorHandler(clierror.PrintErrHandler)
	clierror.SetErrWriter(ioStreams.ErrOut)
	input.SetDefaultIsTerminal(func(int) bool { return false })

	t.Cleanup(func() {
		clierror.ResetErrorHandler()
		clierror.ResetErrWriter()
		input.ResetIsTerminal()
	})

	return
}

func newTTYFileInfo(name string, size int) os.FileInfo {
	return genericclioptions.NewMockFileInfo(name, int64(size), os.ModeCharDevice, false, time.Now())
}

func newNonTTYFileInfo(name string, size int) os.FileInfo {
	return genericclioptions.NewMockFileInfo(name, int64(size), 0, false, time.Now())
}

func inserts(n int) string {
	var sb strings.Builder
	for i := range n {
		fmt.Fprintf(&sb, "INSERT INTO street_mapping (id, name) VALUES (%d, 'street %d');\n", i, i)
	}

	return sb.String()
}

// partFiles returns the names of the files in dir starting with prefix, in
// part order.
func partFiles(t *testing.T, dir string, prefix string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}

	var names []string

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}

	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}

		return names[i] < names[j]
	})

	return names
}

// summary renders the expected success output for the given part sizes.
func summary(dir string, prefix string, sizes []int, perPart int) string {
	var sb strings.Builder

	sb.WriteString("Split complete. Created parts:\n")

	total := 0

	for i, n := range sizes {
		fmt.Fprintf(&sb, " - %s: %d statements\n", filepath.Join(dir, fmt.Sprintf("%s%d.sql", prefix, i+1)), n)
		total += n
	}

	fmt.Fprintf(&sb, "Total statements: %d; per part approx: %d\n", total, perPart)

	return sb.String()
}

type commandTestCase struct {
	name        string
	input       string
	config      string
	configExt   string
	stdinData   []byte
	stdinInfoFn func(string, int) os.FileInfo
	args        func(env splitEnv) []string
	wantErrorIs error
	wantErrorAs any
	wantOutput  func(env splitEnv) string
	wantStderr  string

	// ignoreStderr skips the stderr check for messages embedding temp paths.
	ignoreStderr bool
	wantParts    []string // wantParts lists the expected part file contents in order.
	partsPrefix  string
}

func (tt *commandTestCase) run(t *testing.T) {
	t.Helper()

	env := setupSplitEnv(t, tt.input, tt.config, cmp.Or(tt.configExt, ".toml"))

	stdinInfoFn := tt.stdinInfoFn
	if stdinInfoFn == nil {
		stdinInfoFn = newTTYFileInfo
	}

	ioStreams, out, errOut := setupIOStreams(t, tt.stdinData, stdinInfoFn)

	cmd := cli.NewDefaultSplitCommand(ioStreams, tt.args(env))
	gotError := cmd.Execute()

	switch {
	case tt.wantErrorIs != nil:
		if !errors.Is(gotError, tt.wantErrorIs) {
			t.Errorf("want error %v, got %v", tt.wantErrorIs, gotError)
		}
	case tt.wantErrorAs != nil:
		if gotError == nil || !errors.As(gotError, tt.wantErrorAs) {
			t.Errorf("want error of type %T, got %T (%v)", tt.wantErrorAs, gotError, gotError)
		}
	case gotError != nil:
		t.Errorf("unexpected error: %v\nstderr: %s", gotError, errOut.String())
	}

	if gotStderr := errOut.String(); !tt.ignoreStderr && gotStderr != tt.wantStderr {
		t.Errorf("want stderr output: %q, got %q", tt.wantStderr, gotStderr)
	}

	if tt.wantOutput != nil {
		if diff := gocmp.Diff(tt.wantOutput(env), out.String()); diff != "" {
			t.Errorf("unexpected stdout output (-want +got):\n%s", diff)
		}
	}

	prefix := cmp.Or(tt.partsPrefix, testPrefix)
	files := partFiles(t, env.dir, prefix)

	got := make([]string, 0, len(files))

	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(env.dir, name))
		if err != nil {
			t.Fatalf("failed to read part %s: %v", name, err)
		}

		got = append(got, string(b))
	}

	if len(tt.wantParts) == 0 && len(got) == 0 {
		return
	}

	if diff := gocmp.Diff(tt.wantParts, got); diff != "" {
		t.Errorf("part contents mismatch (-want +got):\n%s", diff)
	}
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}

	return out
}
