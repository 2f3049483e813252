package library

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/shelf/internal/isbn"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// SaveScannedIsbn queues code for a bulk lookup. Scanning a queued code again
// only refreshes its scan date.
func (s *Service) SaveScannedIsbn(ctx context.Context, code string) (*types.ScannedIsbn, error) {
	n, err := isbn.Parse(code)
	if err != nil {
		return nil, err
	}

	var saved *types.ScannedIsbn
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		sci, ok, err := s.scanned.GetByCriteria(ctx, tx, &types.ScannedIsbn{ISBN: &n})
		if err != nil {
			return err
		}
		if !ok {
			sci = &types.ScannedIsbn{ISBN: &n}
		}
		sci.ScanDate = types.Ptr(s.now())
		if _, err := s.scanned.Save(ctx, tx, sci); err != nil {
			return err
		}
		saved = sci
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ScannedIsbns returns the whole queue in scan order.
func (s *Service) ScannedIsbns(ctx context.Context) ([]*types.ScannedIsbn, error) {
	return s.scanned.GetAll(ctx, s.store.DB())
}

// PendingScannedIsbns returns the queued codes not looked up yet.
func (s *Service) PendingScannedIsbns(ctx context.Context) ([]*types.ScannedIsbn, error) {
	return s.scanned.GetAllByCriteria(ctx, s.store.DB(), &types.ScannedIsbn{LookedUp: types.Ptr(false)})
}

// MarkScannedIsbnLookedUp records that a lookup ran for a queued code and
// whether it found a book.
func (s *Service) MarkScannedIsbnLookedUp(ctx context.Context, id int64, successful bool) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		return s.markLookedUp(ctx, tx, id, successful)
	})
}

func (s *Service) markLookedUp(ctx context.Context, tx *sql.Tx, id int64, successful bool) error {
	sci, ok, err := s.scanned.Get(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("scanned ISBN %d: %w", id, types.ErrNotFound)
	}
	sci.LookedUp = types.Ptr(true)
	sci.SearchSuccessful = &successful
	return s.scanned.Update(ctx, tx, sci)
}

// SaveLookupResult saves the book found for a queued code and marks the code
// as successfully looked up, in one transaction.
func (s *Service) SaveLookupResult(ctx context.Context, info *types.BookInfo, scannedID int64) (int64, error) {
	var id int64
	before := idsOf(info)
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if id, err = s.saveBookInfo(ctx, tx, info); err != nil {
			return err
		}
		return s.markLookedUp(ctx, tx, scannedID, true)
	})
	if err != nil {
		before.restore(info)
		return 0, err
	}
	return id, nil
}

// DeleteAllScannedIsbns empties the queue.
func (s *Service) DeleteAllScannedIsbns(ctx context.Context) error {
	return s.scanned.DeleteAll(ctx, s.store.DB())
}
