// Package shelf opens a catalogue store with every book model registered
// and returns the library service over it.
//
// Example:
//
//	svc, err := shelf.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: dir,
//	}, nil)
//	defer svc.Store().Close()
package shelf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Open opens or creates the store described by cfg, migrating it to the
// current schema. A nil logger uses slog.Default(). The caller closes the
// store through Service.Store().
func Open(ctx context.Context, cfg types.Config, logger *slog.Logger) (*library.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg, err := library.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("building registry: %w", err)
	}
	store, err := sqlite.Open(ctx, cfg, reg, sqlite.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	svc, err := library.New(ctx, store, library.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, err
	}
	return svc, nil
}
