package main

import (
	"os"

	"github.com/ladzaretti/sqlsplit/cli"
	"github.com/ladzaretti/sqlsplit/clierror"
	"github.com/ladzaretti/sqlsplit/genericclioptions"
)

func main() {
	os.Exit(run(genericclioptions.NewDefaultIOStreams(), os.Args[1:]))
}

// run executes the command and returns the process exit code.
func run(iostreams *genericclioptions.IOStreams, args []string) int {
	cmd := cli.NewDefaultSplitCommand(iostreams, args)

	if err := cmd.Execute(); err != nil {
		// errors raised by commands were already reported through clierror;
		// this reports argument and flag parsing errors.
		_ = clierror.Check(err)
		return clierror.DefaultErrorExitCode
	}

	return 0
}
