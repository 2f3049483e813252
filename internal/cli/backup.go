package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/backup"
	"github.com/mesh-intelligence/shelf/internal/library"
)

func newBackupCmd(a *app) *cobra.Command {
	var schedule bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the store into the backup directory",
		Long: `Copy the store to <backup_dir>/shelf.sqlite. With --schedule, keep running
and take a backup on the backup_schedule cron spec from config.yaml until
interrupted.

A backup is skipped while a bulk ISBN lookup runs. Only lookups running in
the same process are seen; a lookup in another shelf process does not
hold back a backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.backupDir()
			if err != nil {
				return fmt.Errorf("resolve backup dir: %w", err)
			}
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				s := backup.NewScheduler(svc.Store(), dir, a.coord, a.logger)
				if !schedule {
					path, err := s.RunNow(ctx)
					if err != nil {
						return err
					}
					if a.flags.jsonMode {
						return printJSON(cmd.OutOrStdout(), map[string]string{"path": path})
					}
					fmt.Fprintln(cmd.OutOrStdout(), path)
					return nil
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := s.Start(a.settings.BackupSchedule); err != nil {
					return fmt.Errorf("%w: %w", errUsage, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backing up to %s on %q\n", dir, a.settings.BackupSchedule)
				<-ctx.Done()
				s.Stop()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&schedule, "schedule", false, "run backups on the configured schedule until interrupted")
	return cmd
}
