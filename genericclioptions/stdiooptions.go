package genericclioptions

import (
	"github.com/ladzaretti/sqlsplit/clierror"

	"go.uber.org/zap"
)

// StdioOptions provides the shared I/O streams and logger,
// intended to be embedded in option structs.
type StdioOptions struct {
	*IOStreams

	Logger *zap.Logger
}

var _ BaseOptions = &StdioOptions{}

// Complete builds the logger from the verbosity setting.
func (o *StdioOptions) Complete() error {
	if o.Logger == nil {
		o.Logger = NewLogger(o.ErrOut, o.Verbose)
	}

	clierror.DebugMode(o.Verbose)

	return nil
}

func (*StdioOptions) Validate() error {
	return nil
}
