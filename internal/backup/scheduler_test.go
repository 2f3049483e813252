package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/internal/state"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

type countingBackuper struct {
	calls atomic.Int32
	err   error
}

func (c *countingBackuper) Backup(ctx context.Context, dir string) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return filepath.Join(dir, sqlite.BackupFileName), nil
}

// --- RunNow ---

func TestRunNow_CopiesStore(t *testing.T) {
	ctx := context.Background()
	reg, err := library.NewRegistry()
	require.NoError(t, err)
	store, err := sqlite.Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}, reg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc, err := library.New(context.Background(), store)
	require.NoError(t, err)
	_, err = svc.SaveBookInfo(ctx, types.NewBookInfo(types.NewBook("Backed up")))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "backups")
	s := NewScheduler(store, dir, &state.Flags{}, nil)
	path, err := s.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, sqlite.BackupFileName), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	last, lastErr := s.Last()
	assert.Equal(t, path, last)
	assert.NoError(t, lastErr)
}

func TestRunNow_SkippedDuringBulkLookup(t *testing.T) {
	var flags state.Flags
	flags.SetBulkRunning(true)
	b := &countingBackuper{}

	_, err := NewScheduler(b, t.TempDir(), &flags, nil).RunNow(context.Background())
	assert.ErrorIs(t, err, ErrSkipped)
	assert.Zero(t, b.calls.Load())
}

func TestRunNow_ReportsFailure(t *testing.T) {
	b := &countingBackuper{err: types.ErrNoStore}
	s := NewScheduler(b, t.TempDir(), nil, nil)

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, types.ErrNoStore)
	_, lastErr := s.Last()
	assert.True(t, errors.Is(lastErr, types.ErrNoStore))
}

// --- Start / Stop ---

func TestStart_InvalidSpec(t *testing.T) {
	s := NewScheduler(&countingBackuper{}, t.TempDir(), nil, nil)
	err := s.Start("every tuesday")
	assert.Error(t, err)
	s.Stop()
}

func TestStart_Twice(t *testing.T) {
	s := NewScheduler(&countingBackuper{}, t.TempDir(), nil, nil)
	require.NoError(t, s.Start("@daily"))
	defer s.Stop()
	assert.Error(t, s.Start("@daily"))
}

func TestStart_RunsOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron tick")
	}
	b := &countingBackuper{}
	s := NewScheduler(b, t.TempDir(), &state.Flags{}, nil)
	require.NoError(t, s.Start("@every 1s"))

	assert.Eventually(t, func() bool { return b.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()

	n := b.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, n, b.calls.Load(), "no backups after Stop")
}
