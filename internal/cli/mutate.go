package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/spf13/cobra"
)

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "add --set COLUMN=VALUE...",
		Short: "Add a record",
		Long: `Add a record. The key column must be set and unused; columns that
are not set are stored empty.

  sheetctl -f clients.csv add --set "CODE LOCAL=A4" --set NOM=Brest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				if err := ws.svc.Add(ctx, ws.session, rec); err != nil {
					return err
				}
				stored, err := ws.svc.Get(ws.session, rec[ws.svc.KeyColumn()])
				if err != nil {
					return err
				}
				return ws.printer.Record(ws.columns, stored)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "COLUMN=VALUE to store (repeatable)")
	cmd.MarkFlagRequired("set")
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "update <key> --set COLUMN=VALUE...",
		Short: "Change fields of a record",
		Long: `Change fields of the record with the given key. Columns that are not
set keep their value. Setting the key column renames the record; the new
key must not be empty or used by another record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				key := args[0]
				if err := ws.svc.Update(ctx, ws.session, key, updates); err != nil {
					return err
				}
				if newKey, ok := updates[ws.svc.KeyColumn()]; ok {
					key = newKey
				}
				stored, err := ws.svc.Get(ws.session, key)
				if err != nil {
					return err
				}
				return ws.printer.Record(ws.columns, stored)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "COLUMN=VALUE to change (repeatable)")
	cmd.MarkFlagRequired("set")
	return cmd
}

// DeleteResult is the output of the delete command.
type DeleteResult struct {
	Key     string `json:"key" yaml:"key"`
	Deleted int    `json:"deleted" yaml:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete every record with a key",
		Long:  "Delete every record with the given key. A key that is not present is not an error.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				n, err := ws.svc.Delete(ctx, ws.session, args[0])
				if err != nil {
					return err
				}
				return ws.printer.Result(DeleteResult{Key: args[0], Deleted: n},
					fmt.Sprintf("deleted %d record(s)", n))
			})
		},
	}
}

// parseAssignments turns COLUMN=VALUE arguments into a record. The value
// may be empty and may contain '='.
func parseAssignments(sets []string) (core.Record, error) {
	rec := make(core.Record, len(sets))
	for _, s := range sets {
		col, val, ok := strings.Cut(s, "=")
		if !ok || col == "" {
			return nil, usageError(fmt.Errorf("invalid --set %q: want COLUMN=VALUE", s))
		}
		if _, dup := rec[col]; dup {
			return nil, usageError(fmt.Errorf("column %q set twice", col))
		}
		rec[col] = val
	}
	return rec, nil
}
