package cli

import (
	"errors"

	"github.com/ladzaretti/sqlsplit/clierror"
	"github.com/ladzaretti/sqlsplit/genericclioptions"

	"github.com/spf13/cobra"
)

// Version is the release version, set at build time through
// -ldflags "-X github.com/ladzaretti/sqlsplit/cli.Version=...".
var Version = "dev"

func newVersionCommand(stdio *genericclioptions.StdioOptions) *cobra.Command {
	cmd := cobra.Command{
		Use:                "version",
		Short:              "Show version",
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return clierror.Check(func() error {
				if len(args) > 0 {
					return errors.New("version: command takes no arguments")
				}

				stdio.Printf("%s\n", Version)

				return nil
			}())
		},
	}

	genericclioptions.MarkAllFlagsHidden(&cmd)

	return &cmd
}
