package genericclioptions

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// MarkFlagsHidden hides the named flags from the help output of sub.
func MarkFlagsHidden(sub *cobra.Command, hidden ...string) {
	f := sub.HelpFunc()
	sub.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		for _, n := range hidden {
			flag := cmd.Flags().Lookup(n)
			if flag != nil {
				flag.Hidden = true
			}
		}

		f(cmd, args)
	})
}

// MarkAllFlagsHidden hides every flag, including inherited ones,
// from the help output of sub.
func MarkAllFlagsHidden(sub *cobra.Command) {
	f := sub.HelpFunc()
	sub.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		cmd.Flags().VisitAll(func(flag *pflag.Flag) { flag.Hidden = true })
		cmd.InheritedFlags().VisitAll(func(flag *pflag.Flag) { flag.Hidden = true })

		f(cmd, args)
	})
}

// RejectDisallowedFlags returns an error if any of the named flags was set.
func RejectDisallowedFlags(cmd *cobra.Command, disallowed ...string) error {
	for _, name := range disallowed {
		if cmd.Flags().Changed(name) {
			return fmt.Errorf("flag --%s is not allowed with '%s' command", name, cmd.Name())
		}
	}

	return nil
}
