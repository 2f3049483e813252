package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/library"
)

type statusView struct {
	Store   string               `json:"store"`
	Version int                  `json:"version"`
	Tables  []library.TableCount `json:"tables"`
	Pending int                  `json:"pending_isbns"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the store location, schema version and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				counts, err := svc.Counts(ctx)
				if err != nil {
					return err
				}
				pending, err := svc.PendingScannedIsbns(ctx)
				if err != nil {
					return err
				}
				st := statusView{
					Store:   svc.Store().Path(),
					Version: svc.Store().Version(),
					Tables:  counts,
					Pending: len(pending),
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), st)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "store\t%s\n", st.Store)
				fmt.Fprintf(tw, "schema\t%d\n", st.Version)
				for _, c := range st.Tables {
					fmt.Fprintf(tw, "%s\t%d\n", c.Table, c.Rows)
				}
				fmt.Fprintf(tw, "pending isbns\t%d\n", st.Pending)
				return tw.Flush()
			})
		},
	}
}
