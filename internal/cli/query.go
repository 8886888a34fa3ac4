package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the columns in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				return ws.printer.List(ws.columns)
			})
		},
	}
}

// NewValuesCommand creates the values command.
func NewValuesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "values <column>",
		Short: "List the distinct values of a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				values, err := ws.svc.DistinctValues(ws.session, args[0])
				if err != nil {
					return err
				}
				return ws.printer.List(values)
			})
		},
	}
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <column> <value>",
		Short: "Show the records whose column equals value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				view, err := ws.svc.Filter(ws.session, args[0], args[1])
				if err != nil {
					return err
				}
				return ws.printer.Records(view.Columns, view.Records)
			})
		},
	}
}

// NewWhereCommand creates the where command.
func NewWhereCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "where <expression>",
		Short: "Show the records matching an expression",
		Long: `Show the records for which a boolean expression holds.

Columns are variables named after the column with spaces and dashes
replaced by underscores; row["NAME"] reaches any column by its name.

  sheetctl -f clients.xlsx where 'STATUT == "actif" && CODE_LOCAL startsWith "A"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				view, err := ws.svc.Where(ws.session, args[0])
				if err != nil {
					return err
				}
				return ws.printer.Records(view.Columns, view.Records)
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, opts, func(ctx context.Context, ws *workspace) error {
				rec, err := ws.svc.Get(ws.session, args[0])
				if err != nil {
					return err
				}
				return ws.printer.Record(ws.columns, rec)
			})
		},
	}
}

