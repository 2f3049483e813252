package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/library"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize shelf storage",
		Long:  "Create the configuration and data directories, then create or upgrade the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				store := svc.Store()
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"config":  a.configDir,
						"store":   store.Path(),
						"version": store.Version(),
					})
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, "Shelf initialized successfully")
				fmt.Fprintln(w, "  config: ", a.configDir)
				fmt.Fprintln(w, "  store:  ", store.Path())
				fmt.Fprintln(w, "  schema: ", store.Version())
				return nil
			})
		},
	}
}
