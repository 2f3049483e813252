// Package lookup runs the bulk search over the scanned ISBN queue: each
// pending code is searched with a Searcher and the result saved, one code
// per transaction.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mesh-intelligence/shelf/internal/state"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// MaxConnectionErrors is how many consecutive connection failures end a run.
const MaxConnectionErrors = 5

// ErrConnection marks a search failure caused by the network. Searchers wrap
// it, or return a net.Error, so the runner can tell transient failures from
// fatal ones.
var ErrConnection = errors.New("search provider unreachable")

// Searcher looks up a book by ISBN. A nil result with a nil error means the
// provider has no match.
type Searcher interface {
	Search(ctx context.Context, isbn string) (*types.BookInfo, error)
}

// Queue is the scanned ISBN queue the runner drains. *library.Service
// implements it.
type Queue interface {
	PendingScannedIsbns(ctx context.Context) ([]*types.ScannedIsbn, error)
	MarkScannedIsbnLookedUp(ctx context.Context, id int64, successful bool) error
	SaveLookupResult(ctx context.Context, info *types.BookInfo, scannedID int64) (int64, error)
}

// Report summarizes one run.
type Report struct {
	RunID     string `json:"run_id"`
	Pending   int    `json:"pending"`
	LookedUp  int    `json:"looked_up"`
	Found     int    `json:"found"`
	NotFound  int    `json:"not_found"`
	Failed    int    `json:"failed"`
	Cancelled bool   `json:"cancelled"`
	// Unreachable is set when the run stopped after MaxConnectionErrors
	// consecutive connection failures.
	Unreachable bool `json:"unreachable"`
}

// Runner drains the queue. At most one run is active per Runner.
type Runner struct {
	queue    Queue
	searcher Searcher
	flags    *state.Flags
	logger   *slog.Logger
	gate     *semaphore.Weighted
}

// NewRunner returns a Runner. flags receives the bulk-running state and
// reload requests; a nil logger uses slog.Default().
func NewRunner(q Queue, s Searcher, flags *state.Flags, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		queue:    q,
		searcher: s,
		flags:    flags,
		logger:   logger,
		gate:     semaphore.NewWeighted(1),
	}
}

// Run looks up every pending code. Cancelling ctx stops the run between
// codes; codes already processed stay saved. A search error that is not a
// connection failure, or a failed save, stops the run and is returned with
// the report so far. Returns types.ErrAlreadyRunning when another run is
// active.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if !r.gate.TryAcquire(1) {
		return Report{}, types.ErrAlreadyRunning
	}
	defer r.gate.Release(1)

	r.flags.SetBulkRunning(true)
	defer r.flags.SetBulkRunning(false)

	report := Report{RunID: uuid.Must(uuid.NewV7()).String()}
	log := r.logger.With("run_id", report.RunID)

	pending, err := r.queue.PendingScannedIsbns(ctx)
	if err != nil {
		return report, fmt.Errorf("listing pending ISBNs: %w", err)
	}
	report.Pending = len(pending)
	log.Info("bulk lookup started", "pending", report.Pending)

	// Results in hand are saved even when ctx is cancelled mid-search.
	saveCtx := context.WithoutCancel(ctx)
	connErrors := 0
	for _, sci := range pending {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if report.Unreachable {
			break
		}

		code := *sci.ISBN
		info, err := r.searcher.Search(ctx, code)
		switch {
		case err != nil && ctx.Err() != nil:
			report.Cancelled = true
		case err != nil && isConnectionError(err):
			connErrors++
			report.Failed++
			log.Warn("search failed", "isbn", code, "consecutive", connErrors, "error", err)
			report.Unreachable = connErrors >= MaxConnectionErrors
			continue
		case err != nil:
			log.Error("search failed, stopping", "isbn", code, "error", err)
			return report, fmt.Errorf("searching %s: %w", code, err)
		case info == nil:
			if err := r.queue.MarkScannedIsbnLookedUp(saveCtx, *sci.ID, false); err != nil {
				return report, fmt.Errorf("marking %s: %w", code, err)
			}
			report.NotFound++
			log.Debug("no match", "isbn", code)
		default:
			if _, err := r.queue.SaveLookupResult(saveCtx, info, *sci.ID); err != nil {
				return report, fmt.Errorf("saving result for %s: %w", code, err)
			}
			report.Found++
			r.flags.RequestReload()
			log.Debug("match saved", "isbn", code, "title", derefTitle(info))
		}
		if report.Cancelled {
			break
		}
		report.LookedUp++
		connErrors = 0
	}

	log.Info("bulk lookup finished",
		"looked_up", report.LookedUp, "found", report.Found, "not_found", report.NotFound,
		"failed", report.Failed, "cancelled", report.Cancelled, "unreachable", report.Unreachable)
	return report, nil
}

// Running reports whether a bulk lookup is in progress.
func (r *Runner) Running() bool { return r.flags.BulkRunning() }

func isConnectionError(err error) bool {
	if errors.Is(err, ErrConnection) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func derefTitle(info *types.BookInfo) string {
	if info.Title == nil {
		return ""
	}
	return *info.Title
}
