package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

var groupers = map[string]func([]*types.BookInfo) []library.Group{
	"author":   library.GroupByAuthor,
	"series":   library.GroupBySeries,
	"location": library.GroupByLocation,
	"letter":   library.GroupByFirstLetter,
}

type groupView struct {
	Label string     `json:"label"`
	Books []bookView `json:"books"`
}

func newGroupCmd(a *app) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "group",
		Short: "List books grouped by author, series, location or first letter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			group, ok := groupers[by]
			if !ok {
				return fmt.Errorf("%w: --by %q (valid: author, series, location, letter)", errUsage, by)
			}
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				books, err := svc.ListBookInfo(ctx)
				if err != nil {
					return err
				}
				groups := group(books)
				if a.flags.jsonMode {
					views := make([]groupView, len(groups))
					for i, g := range groups {
						views[i] = groupView{Label: g.Label, Books: viewsOf(g.Books)}
					}
					return printJSON(cmd.OutOrStdout(), views)
				}

				w := cmd.OutOrStdout()
				idx := library.NewSectionIndex(groups)
				if sections := idx.Sections(); len(sections) > 0 {
					fmt.Fprintf(w, "[%s]\n", strings.Join(sections, " "))
				}
				for _, g := range groups {
					label := g.Label
					if label == "" {
						label = "(none)"
					}
					fmt.Fprintln(w, label)
					for _, b := range g.Books {
						fmt.Fprintf(w, "  %d  %s\n", *b.ID, str(b.Title))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "author", "grouping: author, series, location or letter")
	return cmd
}
