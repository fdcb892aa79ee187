package partwriter_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ladzaretti/sqlsplit/partwriter"
	"github.com/ladzaretti/sqlsplit/spliterrors"
	"github.com/ladzaretti/sqlsplit/splitter"
	"github.com/ladzaretti/sqlsplit/sqltext"

	gocmp "github.com/google/go-cmp/cmp"
)

func mustSplit(t *testing.T, s *splitter.Splitter, input string) *splitter.Result {
	t.Helper()

	res, err := s.Split(sqltext.Parse("test.sql", []byte(input)))
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	return res
}

func mustWriter(t *testing.T, dir string, opts ...partwriter.Opt) *partwriter.Writer {
	t.Helper()

	w, err := partwriter.New(dir, "Part_", opts...)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	return w
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}

	return string(b)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		parts int
		want  []string
	}{
		{
			name:  "header blank line statements",
			input: "-- header\nINSERT INTO t VALUES (1);\nINSERT INTO t VALUES (2);\n",
			parts: 1,
			want: []string{
				"-- header\n\nINSERT INTO t VALUES (1);\nINSERT INTO t VALUES (2);\n",
			},
		},
		{
			name:  "empty part placeholder",
			input: "-- header\nINSERT INTO t VALUES (1);\n",
			parts: 2,
			want: []string{
				"-- header\n\nINSERT INTO t VALUES (1);\n",
				"-- header\n\n-- (no statements in this part)\n",
			},
		},
		{
			name:  "unterminated last statement gets one newline",
			input: "-- header\nINSERT INTO t VALUES (1);\nINSERT INTO t VALUES (2);",
			parts: 2,
			want: []string{
				"-- header\n\nINSERT INTO t VALUES (1);\n",
				"-- header\n\nINSERT INTO t VALUES (2);\n",
			},
		},
		{
			name:  "crlf preserved",
			input: "-- header\r\nINSERT INTO t VALUES\r\n(1);\r\n",
			parts: 1,
			want: []string{
				"-- header\r\n\nINSERT INTO t VALUES\r\n(1);\r\n",
			},
		},
		{
			name:  "no header",
			input: "INSERT INTO t VALUES (1);\n",
			parts: 1,
			want: []string{
				"\nINSERT INTO t VALUES (1);\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustSplit(t, splitter.New(splitter.WithPartCount(tt.parts)), tt.input)

			got := make([]string, 0, len(res.Parts))

			for _, p := range res.Parts {
				var buf bytes.Buffer

				n, err := partwriter.Render(&buf, res.Header, p)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if n != int64(buf.Len()) {
					t.Errorf("Render reported %d bytes, wrote %d", n, buf.Len())
				}

				got = append(got, buf.String())
			}

			if diff := gocmp.Diff(tt.want, got); diff != "" {
				t.Errorf("unexpected rendering (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriter_WriteAll(t *testing.T) {
	dir := t.TempDir()
	input := "-- header\n" + strings.Repeat("INSERT INTO t VALUES (1);\n", 3)

	res := mustSplit(t, splitter.New(), input)
	w := mustWriter(t, dir)

	reports, err := w.WriteAll(t.Context(), res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(reports); got != splitter.DefaultPartCount {
		t.Fatalf("got %d reports, want %d", got, splitter.DefaultPartCount)
	}

	for i, r := range reports {
		wantPath := filepath.Join(dir, fmt.Sprintf("Part_%d.sql", i+1))
		if r.Path != wantPath || r.Number != i+1 {
			t.Errorf("report %d: got number %d path %q, want %d %q", i, r.Number, r.Path, i+1, wantPath)
		}

		content := readFile(t, r.Path)

		want := "-- header\n\n-- (no statements in this part)\n"
		wantCount := 0

		if i < 3 {
			want, wantCount = "-- header\n\nINSERT INTO t VALUES (1);\n", 1
		}

		if content != want {
			t.Errorf("part %d content = %q, want %q", i+1, content, want)
		}

		if r.Statements != wantCount || r.Bytes != int64(len(content)) {
			t.Errorf("part %d report = %+v, want %d statements and %d bytes", i+1, r, wantCount, len(content))
		}
	}
}

func TestWriter_LeavesOtherFiles(t *testing.T) {
	dir := t.TempDir()

	other := filepath.Join(dir, "keep.sql")
	if err := os.WriteFile(other, []byte("keep"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	stale := filepath.Join(dir, "Part_1.sql")
	if err := os.WriteFile(stale, []byte("stale content that is longer than the part"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	res := mustSplit(t, splitter.New(splitter.WithPartCount(1)), "INSERT INTO t VALUES (1);\n")

	if _, err := mustWriter(t, dir).WriteAll(t.Context(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := readFile(t, other); got != "keep" {
		t.Errorf("unrelated file modified: %q", got)
	}

	if got, want := readFile(t, stale), "\nINSERT INTO t VALUES (1);\n"; got != want {
		t.Errorf("existing part not truncated: got %q, want %q", got, want)
	}
}

func TestWriter_DryRun(t *testing.T) {
	dir := t.TempDir()
	res := mustSplit(t, splitter.New(splitter.WithPartCount(3)), "-- h\nINSERT INTO t VALUES (1);\n")

	reports, err := mustWriter(t, dir, partwriter.WithDryRun(true)).WriteAll(t.Context(), res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(reports); got != 3 {
		t.Errorf("got %d reports, want 3", got)
	}

	if got, want := reports[0].Bytes, int64(len("-- h\n\nINSERT INTO t VALUES (1);\n")); got != want {
		t.Errorf("dry run bytes = %d, want %d", got, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("dry run created %d files", len(entries))
	}
}

func TestWriter_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	res := mustSplit(t, splitter.New(splitter.WithPartCount(1)), "INSERT INTO t VALUES (1);\n")

	_, err := mustWriter(t, dir).WriteAll(t.Context(), res)

	var writeErr *partwriter.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("want *WriteError, got %T (%v)", err, err)
	}

	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want wrapped ErrNotExist, got %v", err)
	}
}

func TestWriter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res := mustSplit(t, splitter.New(), "INSERT INTO t VALUES (1);\n")

	reports, err := mustWriter(t, t.TempDir()).WriteAll(ctx, res)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}

	if len(reports) != 0 {
		t.Errorf("got %d reports after cancellation", len(reports))
	}
}

func TestNew_InvalidPrefix(t *testing.T) {
	if _, err := partwriter.New(".", ""); !errors.Is(err, spliterrors.ErrEmptyPrefix) {
		t.Errorf("want ErrEmptyPrefix, got %v", err)
	}

	if _, err := partwriter.New(".", "a/b_"); err == nil {
		t.Error("want error for prefix with separator, got nil")
	}
}

func TestWriter_Verify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		parts int
	}{
		{
			name: "mixed line endings",
			input: "-- header\r\nSET x = 1;\r\n" +
				"INSERT INTO t VALUES\n  (1),\n  (2);\n" +
				strings.Repeat("INSERT INTO t VALUES (3);\n", 6) +
				"INSERT INTO t VALUES (4);",
			parts: 4,
		},
		{
			name:  "carriage return only",
			input: "-- header\rINSERT INTO t VALUES (1);\rINSERT INTO t VALUES (2);\r",
			parts: 2,
		},
		{
			name:  "carriage return only with empty parts",
			input: "-- header\rSET x = 1;\rINSERT INTO t VALUES (1);\r",
			parts: 3,
		},
		{
			name:  "no header",
			input: "INSERT INTO t VALUES (1);\nINSERT INTO t VALUES (2)",
			parts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := splitter.New(splitter.WithPartCount(tt.parts))
			res := mustSplit(t, s, tt.input)
			w := mustWriter(t, t.TempDir())

			if _, err := w.WriteAll(t.Context(), res); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if _, err := w.Verify(s, res); err != nil {
				t.Fatalf("verify failed on fresh output: %v", err)
			}

			tampered := w.Path(res.Parts[0].Number)
			if err := os.WriteFile(tampered, []byte(sqltext.Join(res.Header)+"\nINSERT INTO t VALUES (9);\n"), 0o600); err != nil {
				t.Fatalf("failed to tamper part: %v", err)
			}

			if _, err := w.Verify(s, res); !errors.Is(err, spliterrors.ErrVerifyMismatch) {
				t.Errorf("want ErrVerifyMismatch after tampering, got %v", err)
			}
		})
	}
}

func TestWriter_VerifyHeaderChanged(t *testing.T) {
	s := splitter.New(splitter.WithPartCount(1))
	res := mustSplit(t, s, "-- header\rINSERT INTO t VALUES (1);\r")
	w := mustWriter(t, t.TempDir())

	if _, err := w.WriteAll(t.Context(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(w.Path(1), []byte("-- other\r\nINSERT INTO t VALUES (1);\r"), 0o600); err != nil {
		t.Fatalf("failed to tamper part: %v", err)
	}

	if _, err := w.Verify(s, res); !errors.Is(err, spliterrors.ErrVerifyMismatch) {
		t.Errorf("want ErrVerifyMismatch, got %v", err)
	}
}

func TestWriter_VerifyMissingPlaceholder(t *testing.T) {
	s := splitter.New(splitter.WithPartCount(2))
	res := mustSplit(t, s, "INSERT INTO t VALUES (1);\n")
	w := mustWriter(t, t.TempDir())

	if _, err := w.WriteAll(t.Context(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(w.Path(2), []byte("\n"), 0o600); err != nil {
		t.Fatalf("failed to tamper part: %v", err)
	}

	if _, err := w.Verify(s, res); !errors.Is(err, spliterrors.ErrVerifyMismatch) {
		t.Errorf("want ErrVerifyMismatch, got %v", err)
	}
}
