package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/internal/state"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

var (
	codeA = "9780306406157"
	codeB = "9780140449136"
	codeC = "9780547773742"
)

// fakeSearcher answers from a script. Calls are recorded in order.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string]*types.BookInfo
	errs    map[string]error
	hook    func(call int)
	calls   []string
}

func (f *fakeSearcher) Search(ctx context.Context, code string) (*types.BookInfo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	n := len(f.calls)
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err := f.errs[code]; err != nil {
		return nil, err
	}
	return f.results[code], nil
}

func newLibrary(t *testing.T) *library.Service {
	t.Helper()
	reg, err := library.NewRegistry()
	require.NoError(t, err)
	store, err := sqlite.Open(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: types.MemoryDataDir}, reg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	svc, err := library.New(context.Background(), store)
	require.NoError(t, err)
	return svc
}

func queue(t *testing.T, svc *library.Service, codes ...string) {
	t.Helper()
	for _, c := range codes {
		_, err := svc.SaveScannedIsbn(context.Background(), c)
		require.NoError(t, err)
	}
}

func found(title string) *types.BookInfo {
	return types.NewBookInfo(types.NewBook(title))
}

func dnsError() error {
	return &net.DNSError{Err: "no such host", Name: "books.example.com", IsNotFound: true}
}

func TestRun_FoundAndNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newLibrary(t)
	queue(t, svc, codeA, codeB)

	var flags state.Flags
	searcher := &fakeSearcher{results: map[string]*types.BookInfo{codeA: found("Found it")}}
	report, err := NewRunner(svc, searcher, &flags, nil).Run(ctx)
	require.NoError(t, err)

	parsed, err := uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, 2, report.Pending)
	assert.Equal(t, 2, report.LookedUp)
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 1, report.NotFound)
	assert.False(t, report.Cancelled)

	assert.False(t, flags.BulkRunning())
	assert.True(t, flags.ConsumeReload())

	pending, err := svc.PendingScannedIsbns(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	books, err := svc.ListBookInfo(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Found it", *books[0].Title)
}

func TestRun_StopsAfterConsecutiveConnectionErrors(t *testing.T) {
	ctx := context.Background()
	svc := newLibrary(t)

	var codes []string
	errs := make(map[string]error)
	for i := range MaxConnectionErrors + 2 {
		code, err := isbn13(978030640000 + int64(i))
		require.NoError(t, err)
		codes = append(codes, code)
		errs[code] = fmt.Errorf("fetching: %w", dnsError())
	}
	queue(t, svc, codes...)

	searcher := &fakeSearcher{errs: errs}
	report, err := NewRunner(svc, searcher, &state.Flags{}, nil).Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.Unreachable)
	assert.Equal(t, MaxConnectionErrors, report.Failed)
	assert.Zero(t, report.LookedUp)
	assert.Len(t, searcher.calls, MaxConnectionErrors)

	pending, err := svc.PendingScannedIsbns(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, len(codes))
}

func TestRun_SuccessResetsConnectionErrors(t *testing.T) {
	ctx := context.Background()
	svc := newLibrary(t)

	var codes []string
	errs := make(map[string]error)
	for i := range 2*MaxConnectionErrors - 1 {
		code, err := isbn13(978030640100 + int64(i))
		require.NoError(t, err)
		codes = append(codes, code)
		if i != MaxConnectionErrors-1 {
			errs[code] = ErrConnection
		}
	}
	queue(t, svc, codes...)

	report, err := NewRunner(svc, &fakeSearcher{errs: errs}, &state.Flags{}, nil).Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.Unreachable)
	assert.Equal(t, 2*MaxConnectionErrors-2, report.Failed)
	assert.Equal(t, 1, report.NotFound)
}

func TestRun_CancelBetweenCodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := newLibrary(t)
	queue(t, svc, codeA, codeB, codeC)

	searcher := &fakeSearcher{
		results: map[string]*types.BookInfo{codeA: found("First")},
		hook: func(call int) {
			if call == 1 {
				cancel()
			}
		},
	}
	report, err := NewRunner(svc, searcher, &state.Flags{}, nil).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 1, report.Found)
	assert.Len(t, searcher.calls, 1)

	pending, err := svc.PendingScannedIsbns(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestRun_OtherErrorStops(t *testing.T) {
	svc := newLibrary(t)
	queue(t, svc, codeA, codeB)

	errQuota := errors.New("quota exceeded")
	searcher := &fakeSearcher{errs: map[string]error{codeA: errQuota}}
	report, err := NewRunner(svc, searcher, &state.Flags{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, errQuota)
	assert.Zero(t, report.LookedUp)
	assert.Len(t, searcher.calls, 1)
}

func TestRun_InvalidResultStops(t *testing.T) {
	svc := newLibrary(t)
	queue(t, svc, codeA)

	bad := found("Bad code")
	bad.ISBN13 = types.Ptr("9780306406158")
	searcher := &fakeSearcher{results: map[string]*types.BookInfo{codeA: bad}}
	_, err := NewRunner(svc, searcher, &state.Flags{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, types.ErrInvalidISBN)
}

func TestRun_OneAtATime(t *testing.T) {
	svc := newLibrary(t)
	queue(t, svc, codeA)

	started := make(chan struct{})
	release := make(chan struct{})
	searcher := &fakeSearcher{hook: func(int) {
		close(started)
		<-release
	}}
	var flags state.Flags
	runner := NewRunner(svc, searcher, &flags, nil)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background())
		done <- err
	}()

	<-started
	assert.True(t, runner.Running())
	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, types.ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, runner.Running())
}

// isbn13 completes a 12-digit prefix with its check digit.
func isbn13(prefix int64) (string, error) {
	body := fmt.Sprintf("%012d", prefix)
	sum := 0
	for i, c := range body {
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	code := fmt.Sprintf("%s%d", body, (10-sum%10)%10)
	if len(code) != 13 {
		return "", fmt.Errorf("bad prefix %d", prefix)
	}
	return code, nil
}
