// Package cli implements the shelf command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/internal/state"
	"github.com/mesh-intelligence/shelf/pkg/shelf"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks malformed arguments.
var errUsage = errors.New("usage")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// processFlags coordinates the bulk lookup and the backup scheduler of every
// command tree built in this process.
var processFlags = &state.Flags{}

// app is the state shared by one command tree.
type app struct {
	flags     rootFlags
	configDir string
	settings  settings
	logger    *slog.Logger
	coord     *state.Flags
}

// NewRootCmd creates the top-level "shelf" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(processFlags)
}

func newRootCmd(coord *state.Flags) *cobra.Command {
	a := &app{logger: slog.Default(), coord: coord}
	root := &cobra.Command{
		Use:     "shelf",
		Short:   "Shelf catalogues a personal book library",
		Long:    "Shelf keeps a catalogue of books, authors, series and locations in a local\nSQLite store, with backups and JSONL export.",
		Version: shelf.Version,
		// Errors are printed once by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newBookCmd(a))
	root.AddCommand(newGroupCmd(a))
	root.AddCommand(newIsbnCmd(a))
	root.AddCommand(newBackupCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newImportCmd(a))
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "shelf:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode maps errors the user can fix to exitUserError.
func exitCode(err error) int {
	for _, target := range []error{
		errUsage,
		types.ErrNotFound,
		types.ErrInvalidISBN,
		types.ErrInvalidName,
		types.ErrConstraint,
		types.ErrDowngrade,
		types.ErrNoStore,
	} {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// load reads config.yaml and installs the logger.
func (a *app) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	s, err := loadSettings(dir)
	if err != nil {
		return err
	}
	level, err := parseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	a.configDir, a.settings = dir, s
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.settings.DataDir)
}

func (a *app) backupDir() (string, error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return "", err
	}
	return paths.ResolveBackupDir(a.settings.BackupDir, dataDir)
}

// openLibrary opens the store in the resolved data directory. The caller
// must close svc.Store().
func (a *app) openLibrary(ctx context.Context) (*library.Service, error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
	}
	svc, err := shelf.Open(ctx, cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return svc, nil
}

// withLibrary opens the library, runs fn and closes the store.
func (a *app) withLibrary(cmd *cobra.Command, fn func(ctx context.Context, svc *library.Service) error) error {
	ctx := cmd.Context()
	svc, err := a.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer svc.Store().Close()
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, arg)
	}
	return id, nil
}
