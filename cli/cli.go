package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ladzaretti/sqlsplit/clierror"
	"github.com/ladzaretti/sqlsplit/genericclioptions"
	"github.com/ladzaretti/sqlsplit/input"
	"github.com/ladzaretti/sqlsplit/partwriter"
	"github.com/ladzaretti/sqlsplit/spliterrors"
	"github.com/ladzaretti/sqlsplit/splitter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// splitFlags holds the raw values of the root command flags.
// They only override the config file when explicitly set.
type splitFlags struct {
	outputDir string
	prefix    string
	parts     int
	dryRun    bool
	verify    bool
}

type SplitOptions struct {
	*genericclioptions.StdioOptions

	configPath string
	flags      splitFlags
	flagSet    *pflag.FlagSet

	resolved ResolvedConfig
}

var _ genericclioptions.CmdOptions = &SplitOptions{}

// NewSplitOptions initializes the options struct.
func NewSplitOptions(stdio *genericclioptions.StdioOptions) *SplitOptions {
	return &SplitOptions{
		StdioOptions: stdio,
	}
}

// Complete loads the config file and resolves the effective configuration.
func (o *SplitOptions) Complete() error {
	if err := o.StdioOptions.Complete(); err != nil {
		return err
	}

	c, err := LoadFileConfig(o.configPath)
	if err != nil {
		return err
	}

	if len(c.path) > 0 {
		o.Debugf("loaded config file %q\n", c.path)
	}

	o.resolved = c.Resolve()
	o.applyFlags()

	o.Debugf("resolved config: %+v\n", o.resolved)

	return nil
}

// applyFlags overrides resolved settings with explicitly set flags.
func (o *SplitOptions) applyFlags() {
	changed := func(name string) bool {
		return o.flagSet != nil && o.flagSet.Changed(name)
	}

	if changed("output-dir") {
		o.resolved.OutputDir = o.flags.outputDir
	}

	if changed("prefix") {
		o.resolved.Prefix = o.flags.prefix
	}

	if changed("parts") {
		o.resolved.PartCount = o.flags.parts
	}
}

func (o *SplitOptions) Validate() error {
	if o.resolved.PartCount < 1 {
		return fmt.Errorf("%w: got %d", spliterrors.ErrInvalidPartCount, o.resolved.PartCount)
	}

	if len(o.resolved.Prefix) == 0 {
		return spliterrors.ErrEmptyPrefix
	}

	if o.flags.dryRun && o.flags.verify {
		return errors.New("--verify cannot be combined with --dry-run")
	}

	return nil
}

// Run splits the input named by args[0] and writes or reports its parts.
func (o *SplitOptions) Run(ctx context.Context, args ...string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one input path, got %d", len(args))
	}

	o.resolved.InputPath = args[0]

	if len(o.resolved.OutputDir) == 0 {
		o.resolved.OutputDir = defaultOutputDir(o.resolved.InputPath)
	}

	if !o.flags.dryRun {
		if err := checkDir(o.resolved.OutputDir); err != nil {
			return err
		}
	}

	doc, err := input.ReadDocument(o.resolved.InputPath, o.In)
	if err != nil {
		return err
	}

	o.Debugf("read %d lines (%s) from %s\n", doc.Len(), humanize.Bytes(uint64(doc.Size())), doc.Name) //nolint:gosec // sizes are non-negative

	s := splitter.New(
		splitter.WithStartMarker(o.resolved.StartMarker),
		splitter.WithTerminator(o.resolved.Terminator),
		splitter.WithPartCount(o.resolved.PartCount),
		splitter.WithLogger(o.Logger),
	)

	res, err := s.Split(doc)
	if err != nil {
		return err
	}

	if res.Unterminated {
		o.Warnf("last statement does not end with %q; keeping it as the final statement\n", o.resolved.Terminator)
	}

	w, err := partwriter.New(o.resolved.OutputDir, o.resolved.Prefix,
		partwriter.WithDryRun(o.flags.dryRun),
		partwriter.WithLogger(o.Logger),
	)
	if err != nil {
		return err
	}

	reports, err := w.WriteAll(ctx, res)
	if err != nil {
		return err
	}

	o.printSummary(reports, res)

	if !o.flags.verify {
		return nil
	}

	digest, err := w.Verify(s, res)
	if err != nil {
		return err
	}

	o.Printf("Verified %d statements across %d parts (blake2b %s)\n", res.Total(), len(reports), digest.Short())

	return nil
}

func (o *SplitOptions) printSummary(reports []partwriter.PartReport, res *splitter.Result) {
	if o.flags.dryRun {
		o.Printf("Dry run; no files written. Planned parts:\n")
	} else {
		o.Printf("Split complete. Created parts:\n")
	}

	for _, r := range reports {
		o.Printf(" - %s: %d statements\n", r.Path, r.Statements)
	}

	o.Printf("Total statements: %d; per part approx: %d\n", res.Total(), res.PerPart)
}

// defaultOutputDir returns the directory of the input file,
// or the working directory when reading from stdin.
func defaultOutputDir(inputPath string) string {
	if inputPath == input.StdinPath {
		return "."
	}

	return filepath.Dir(inputPath)
}

func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	if !fi.IsDir() {
		return fmt.Errorf("output dir: %s is not a directory", dir)
	}

	return nil
}

// NewDefaultSplitCommand creates the `sqlsplit` command with its sub-commands.
func NewDefaultSplitCommand(iostreams *genericclioptions.IOStreams, args []string) *cobra.Command {
	stdio := &genericclioptions.StdioOptions{IOStreams: iostreams}
	o := NewSplitOptions(stdio)

	cmd := &cobra.Command{
		Use:   "sqlsplit [flags] <input.sql | ->",
		Short: "Split a large SQL migration into evenly sized parts",
		Long: fmt.Sprintf(`sqlsplit splits one SQL migration file made of a header followed by many
INSERT INTO statements into a fixed number of part files.

Every line before the first INSERT INTO forms the header, which is copied to
the top of each part. A statement ends at a line ending with ');'. Statements
are distributed in order, ceil(total/parts) per part; trailing parts may be
empty. Parts are named <prefix><n>.sql and written next to the input unless
--output-dir is given. Use '-' to read the migration from stdin.

Environment Variables:
    %s: overrides the default config path: "~/%s".`, envConfigPathKey, defaultConfigName),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.flagSet = cmd.Flags()
			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	cmd.SetArgs(args)
	cmd.SetOut(iostreams.Out)
	cmd.SetErr(iostreams.ErrOut)

	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "", "",
		fmt.Sprintf("configuration file path (default: ~/%s)", defaultConfigName))

	cmd.Flags().StringVarP(&o.flags.outputDir, "output-dir", "o", "", "directory receiving the parts (default: the input's directory)")
	cmd.Flags().StringVarP(&o.flags.prefix, "prefix", "p", partwriter.DefaultPrefix, "file name prefix of each part")
	cmd.Flags().IntVarP(&o.flags.parts, "parts", "n", splitter.DefaultPartCount, "number of parts to produce")
	cmd.Flags().BoolVarP(&o.flags.dryRun, "dry-run", "", false, "report the planned parts without writing any file")
	cmd.Flags().BoolVarP(&o.flags.verify, "verify", "", false, "read the written parts back and check they reproduce every statement")

	cmd.AddCommand(NewCmdConfig(stdio, func() string { return o.configPath }))
	cmd.AddCommand(newVersionCommand(stdio))

	return cmd
}
