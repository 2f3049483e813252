// Package backup runs store backups on a cron schedule.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mesh-intelligence/shelf/internal/state"
)

// ErrSkipped is returned by RunNow while a bulk lookup holds the store.
var ErrSkipped = errors.New("backup skipped: bulk lookup running")

// Backuper copies the store into a directory and returns the written path.
// *sqlite.Store implements it.
type Backuper interface {
	Backup(ctx context.Context, dir string) (string, error)
}

// Scheduler backs the store up into dir, either on demand or on a cron spec.
type Scheduler struct {
	store  Backuper
	dir    string
	flags  *state.Flags
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	lastErr error
	last    string
}

// NewScheduler returns a stopped Scheduler. A nil logger uses slog.Default().
func NewScheduler(store Backuper, dir string, flags *state.Flags, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, dir: dir, flags: flags, logger: logger}
}

// RunNow takes one backup. It returns ErrSkipped while a bulk lookup runs.
func (s *Scheduler) RunNow(ctx context.Context) (string, error) {
	if s.flags != nil && s.flags.BulkRunning() {
		s.logger.Info("backup skipped", "reason", "bulk lookup running")
		return "", ErrSkipped
	}
	path, err := s.store.Backup(ctx, s.dir)

	s.mu.Lock()
	s.last, s.lastErr = path, err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("backup failed", "dir", s.dir, "error", err)
		return "", err
	}
	s.logger.Info("backup written", "path", path)
	return path, nil
}

// Last returns the path and error of the most recent backup attempt.
func (s *Scheduler) Last() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// Start schedules backups on spec, a standard five-field cron expression or
// a descriptor such as "@daily" or "@every 6h". Overlapping runs are skipped.
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("backup scheduler already started")
	}

	log := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(spec, func() {
		_, _ = s.RunNow(ctx)
	}); err != nil {
		cancel()
		return fmt.Errorf("parsing backup schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron, s.cancel = c, cancel
	s.logger.Info("backup scheduler started", "schedule", spec, "dir", s.dir)
	return nil
}

// Stop halts the schedule and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	cancel()
	s.logger.Info("backup scheduler stopped")
}

// cronLogger routes cron's logging to slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
