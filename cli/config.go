package cli

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ladzaretti/sqlsplit/clierror"
	"github.com/ladzaretti/sqlsplit/genericclioptions"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

type ConfigOptions struct {
	*genericclioptions.StdioOptions

	userPath   string        // userPath is the config file path explicitly provided with --file, if any.
	globalPath func() string // globalPath returns the value of the root --config flag.

	config *FileConfig
}

var _ genericclioptions.CmdOptions = &ConfigOptions{}

// NewConfigOptions initializes the options struct.
func NewConfigOptions(stdio *genericclioptions.StdioOptions, globalPath func() string) *ConfigOptions {
	return &ConfigOptions{
		StdioOptions: stdio,
		globalPath:   globalPath,
	}
}

// path returns the config path requested on the command line, if any.
func (o *ConfigOptions) path() string {
	return cmp.Or(o.userPath, o.globalPath())
}

func (o *ConfigOptions) Complete() error {
	if err := o.StdioOptions.Complete(); err != nil {
		return err
	}

	c, err := LoadFileConfig(o.path())
	if err != nil {
		return err
	}

	o.config = c

	return nil
}

func (*ConfigOptions) Validate() error {
	return nil
}

func (o *ConfigOptions) Run(context.Context, ...string) error {
	out := struct {
		Path     string         `json:"path,omitempty"`
		Parsed   *FileConfig    `json:"parsed_config"`   //nolint:tagliatelle
		Resolved ResolvedConfig `json:"resolved_config"` //nolint:tagliatelle
	}{
		Path:     o.config.path,
		Parsed:   o.config,
		Resolved: o.config.Resolve(),
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	o.Printf("%s\n", b)

	return nil
}

// NewCmdConfig creates the cobra config command tree.
func NewCmdConfig(stdio *genericclioptions.StdioOptions, globalPath func() string) *cobra.Command {
	o := NewConfigOptions(stdio, globalPath)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Resolve and inspect the active sqlsplit configuration (subcommands available)",
		Long: fmt.Sprintf(`Resolve and display the active sqlsplit configuration as JSON.

The output holds the parsed config file and the configuration resolved from it
and the built-in defaults. Command-line flags of a split run apply on top.

If --file is not provided, the default config path (~/%s) is used.`, defaultConfigName),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.PersistentFlags().StringVarP(&o.userPath, "file", "f", "",
		fmt.Sprintf("path to the configuration file (default: ~/%s)", defaultConfigName))

	cmd.AddCommand(newGenerateConfigCmd(stdio))
	cmd.AddCommand(newValidateConfigCmd(o))

	return cmd
}

type generateConfigOptions struct {
	*genericclioptions.StdioOptions
}

var _ genericclioptions.CmdOptions = &generateConfigOptions{}

// newGenerateConfigOptions initializes the options struct.
func newGenerateConfigOptions(stdio *genericclioptions.StdioOptions) *generateConfigOptions {
	return &generateConfigOptions{
		StdioOptions: stdio,
	}
}

func (*generateConfigOptions) Complete() error {
	return nil
}

func (*generateConfigOptions) Validate() error {
	return nil
}

func (o *generateConfigOptions) Run(context.Context, ...string) error {
	out, err := toml.Marshal(defaultFileConfig())
	if err != nil {
		return err
	}

	o.Printf("%s", out)

	return nil
}

// newGenerateConfigCmd creates the 'generate' subcommand for generating default config.
func newGenerateConfigCmd(stdio *genericclioptions.StdioOptions) *cobra.Command {
	hiddenFlags := []string{"file", "config"}
	o := newGenerateConfigOptions(stdio)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a default config file",
		Long: `Outputs the default configuration in TOML format to stdout.

Every setting is commented out; uncomment the ones to override.
This command does not accept any arguments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := genericclioptions.RejectDisallowedFlags(cmd, hiddenFlags...); err != nil {
				return clierror.Check(err)
			}

			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	genericclioptions.MarkFlagsHidden(cmd, hiddenFlags...)

	return cmd
}

type validateConfigOptions struct {
	*ConfigOptions
}

var _ genericclioptions.CmdOptions = &validateConfigOptions{}

func (o *validateConfigOptions) Run(context.Context, ...string) error {
	if len(o.config.path) == 0 {
		o.Printf("No config file found; nothing to validate.\n")
		return nil
	}

	o.Printf("%s: OK\n", o.config.path)

	return nil
}

// newValidateConfigCmd creates the 'validate' subcommand for validating the config file.
func newValidateConfigCmd(parent *ConfigOptions) *cobra.Command {
	o := &validateConfigOptions{ConfigOptions: parent}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check config validity",
		Long: fmt.Sprintf(`Loads the configuration file and checks for common errors.

If --file is not provided, the default config path (~/%s) is used.`, defaultConfigName),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	return cmd
}
