package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

type scannedView struct {
	ID               int64      `json:"id"`
	ISBN             string     `json:"isbn"`
	ScanDate         *time.Time `json:"scan_date,omitempty"`
	LookedUp         bool       `json:"looked_up"`
	SearchSuccessful *bool      `json:"search_successful,omitempty"`
}

func scannedViewOf(s *types.ScannedIsbn) scannedView {
	v := scannedView{
		ISBN:             str(s.ISBN),
		ScanDate:         s.ScanDate,
		LookedUp:         s.LookedUp != nil && *s.LookedUp,
		SearchSuccessful: s.SearchSuccessful,
	}
	if s.ID != nil {
		v.ID = *s.ID
	}
	return v
}

func newIsbnCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isbn",
		Short: "Manage the queue of scanned ISBNs awaiting lookup",
	}
	cmd.AddCommand(newIsbnAddCmd(a), newIsbnListCmd(a), newIsbnClearCmd(a))
	return cmd
}

func newIsbnAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <isbn>...",
		Short: "Queue ISBNs for lookup",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				var added []scannedView
				for _, code := range args {
					s, err := svc.SaveScannedIsbn(ctx, code)
					if err != nil {
						return err
					}
					added = append(added, scannedViewOf(s))
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), added)
				}
				for _, v := range added {
					fmt.Fprintln(cmd.OutOrStdout(), v.ISBN)
				}
				return nil
			})
		},
	}
}

func newIsbnListCmd(a *app) *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued ISBNs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				list := svc.ScannedIsbns
				if pending {
					list = svc.PendingScannedIsbns
				}
				scanned, err := list(ctx)
				if err != nil {
					return err
				}
				views := make([]scannedView, len(scanned))
				for i, s := range scanned {
					views[i] = scannedViewOf(s)
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), views)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tISBN\tSCANNED\tSTATUS")
				for _, v := range views {
					scanned := ""
					if v.ScanDate != nil {
						scanned = v.ScanDate.Format(dateLayout)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, v.ISBN, scanned, lookupStatus(v))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only ISBNs not yet looked up")
	return cmd
}

func lookupStatus(v scannedView) string {
	switch {
	case !v.LookedUp:
		return "pending"
	case v.SearchSuccessful != nil && *v.SearchSuccessful:
		return "found"
	default:
		return "not found"
	}
}

func newIsbnClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued ISBN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				return svc.DeleteAllScannedIsbns(ctx)
			})
		},
	}
}
