package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table to <dir>/<TABLE>.jsonl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				store := svc.Store()
				if err := sqlite.ExportJSONL(ctx, store.DB(), store.Registry(), args[0]); err != nil {
					return err
				}
				if !a.flags.jsonMode {
					fmt.Fprintln(cmd.OutOrStdout(), "exported to", args[0])
				}
				return nil
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Replace tables with the rows in <dir>/<TABLE>.jsonl",
		Long: `Import loads every <TABLE>.jsonl file found in <dir> in one transaction.
A table with a file is replaced by the file's rows; tables without one are
left alone. Malformed lines and rows that violate a constraint are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				store := svc.Store()
				stats, err := sqlite.ImportJSONL(ctx, store.DB(), store.Registry(), args[0])
				if err != nil {
					return err
				}
				if err := svc.RebuildSearchIndex(ctx); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TABLE\tIMPORTED\tSKIPPED")
				for _, s := range stats {
					fmt.Fprintf(tw, "%s\t%d\t%d\n", s.Table, s.Imported, s.Skipped)
				}
				return tw.Flush()
			})
		},
	}
}
