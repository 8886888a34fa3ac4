// Package cli implements sheetctl, the command line editor for keyed
// spreadsheet files. Every command opens the file, applies one operation
// and, for mutations, writes the file back before exiting.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/JonMunkholm/sheetedit/internal/logging"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	File        string
	KeyColumn   string
	Output      string // "table" | "json" | "yaml"
	Verbose     bool
	LockTimeout time.Duration
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"table", "json", "yaml"}

// NewRootCommand creates the root command for sheetctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sheetctl",
		Short: "Edit keyed spreadsheet files",
		Long: `sheetctl queries and edits .xlsx and .csv files whose records are
identified by a unique key column. Changes are written back to the file
and read again before the command reports success.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidOutput(opts.Output) {
				return usageError(fmt.Errorf("invalid output %q: must be one of %v", opts.Output, ValidOutputs))
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			// Logs go to stderr so stdout stays machine readable
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, "text"))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.File, "file", "f", "", "spreadsheet to work on (.xlsx or .csv)")
	cmd.PersistentFlags().StringVarP(&opts.KeyColumn, "key-column", "k", defaultKeyColumn(), "unique key column")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "table", "output format (table|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().DurationVar(&opts.LockTimeout, "lock-timeout", core.DefaultLockTimeout, "how long to wait for the file lock")
	cmd.MarkPersistentFlagRequired("file")

	cmd.AddCommand(NewColumnsCommand(opts))
	cmd.AddCommand(NewValuesCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewWhereCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))

	return cmd
}

// defaultKeyColumn honours STORE_KEY_COLUMN like the server does.
func defaultKeyColumn() string {
	if v := os.Getenv("STORE_KEY_COLUMN"); v != "" {
		return v
	}
	return core.DefaultKeyColumn
}

func isValidOutput(format string) bool {
	for _, f := range ValidOutputs {
		if f == format {
			return true
		}
	}
	return false
}
