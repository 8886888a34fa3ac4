package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/sheetedit/internal/codec"
	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/spf13/cobra"
)

// workspace is one opened spreadsheet, edited in place.
type workspace struct {
	svc     *core.Service
	session string
	columns []string
	printer *Printer
	release func()
}

func openWorkspace(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*workspace, error) {
	if opts.File == "" {
		return nil, usageError(fmt.Errorf("--file is required"))
	}
	abs, err := filepath.Abs(opts.File)
	if err != nil {
		return nil, err
	}

	// The lock is held from the read to the last commit so that another
	// sheetctl cannot write the file in between.
	persister := &core.Persister{LockTimeout: opts.LockTimeout}
	release, err := persister.Hold(abs)
	if err != nil {
		return nil, err
	}

	svc, err := core.NewService(core.ServiceOptions{
		DataDir:   filepath.Dir(abs),
		KeyColumn: opts.KeyColumn,
		Codecs:    codec.ForFile,
		Persister: persister,
	})
	if err != nil {
		release()
		return nil, err
	}

	sess, err := svc.Open(ctx, "", abs)
	if err != nil {
		release()
		return nil, fmt.Errorf("open %s: %w", opts.File, err)
	}

	return &workspace{
		svc:     svc,
		session: sess.ID,
		columns: sess.Store.Table().Columns(),
		printer: &Printer{Format: opts.Output, Writer: cmd.OutOrStdout()},
		release: release,
	}, nil
}

// withWorkspace opens the file named by --file and calls fn with it.
func withWorkspace(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, ws *workspace) error) error {
	ctx := cmd.Context()
	ws, err := openWorkspace(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer ws.release()
	defer ws.svc.Close(ctx, ws.session)
	return fn(ctx, ws)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
