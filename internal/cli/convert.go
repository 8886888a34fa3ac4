package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/JonMunkholm/sheetedit/internal/codec"
	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/spf13/cobra"
)

// ConvertResult is the output of the convert command.
type ConvertResult struct {
	Output  string `json:"output" yaml:"output"`
	Format  string `json:"format" yaml:"format"`
	Records int    `json:"records" yaml:"records"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(opts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "convert <output-file>",
		Short: "Write the spreadsheet in another format",
		Long: `Write the spreadsheet to output-file, in the format given by its
extension (.xlsx or .csv). The file is read back to check it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0]
			target, err := codec.ForFile(out)
			if err != nil {
				return err
			}
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				return convert(ctx, ws, opts, target, out, force)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output-file if it exists")
	return cmd
}

func convert(ctx context.Context, ws *workspace, opts *RootOptions, target core.Codec, out string, force bool) error {
	src, err := filepath.Abs(opts.File)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	if src == dst {
		return usageError(fmt.Errorf("output file is the input file"))
	}
	if !force && fileExists(dst) {
		return usageError(fmt.Errorf("%s exists; use --force to overwrite", out))
	}

	sess, err := ws.svc.Session(ws.session)
	if err != nil {
		return err
	}
	p := &core.Persister{LockTimeout: opts.LockTimeout}
	written, err := p.CommitAndReload(sess.Store.Table(), dst, target)
	if err != nil {
		return err
	}

	return ws.printer.Result(
		ConvertResult{Output: out, Format: target.Name(), Records: written.Len()},
		fmt.Sprintf("wrote %d record(s) to %s", written.Len(), out),
	)
}
