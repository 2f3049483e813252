package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// SearchTable is the full-text index over book titles, subtitles, author
// names and descriptions. Its rowid is the book id. It is not a registered
// model, so exports and imports leave it out and RebuildSearchIndex fills it
// again.
const SearchTable = "BOOK_FTS"

var (
	createSearchSQL = "CREATE VIRTUAL TABLE IF NOT EXISTS " + SearchTable +
		" USING fts5(TITLE, SUBTITLE, AUTHORS, DESCRIPTION)"

	insertSearchSQL = "INSERT INTO " + SearchTable +
		" (rowid, TITLE, SUBTITLE, AUTHORS, DESCRIPTION) VALUES (?, ?, ?, ?, ?)"

	deleteSearchSQL = "DELETE FROM " + SearchTable + " WHERE rowid = ?"

	rebuildSearchSQL = fmt.Sprintf(`INSERT INTO %s (rowid, TITLE, SUBTITLE, AUTHORS, DESCRIPTION)
SELECT b.%s, b.%s, b.%s,
	(SELECT group_concat(a.%s, ', ') FROM %s l JOIN %s a ON a.%s = l.%s WHERE l.%s = b.%s),
	b.%s
FROM %s b`,
		SearchTable,
		types.BookColID, types.BookColTitle, types.BookColSubtitle,
		types.AuthorColName, types.BookAuthorTable, types.AuthorTable, types.AuthorColID,
		types.BookAuthorColAuthorID, types.BookAuthorColBookID, types.BookColID,
		types.BookColDescription,
		types.BookTable)

	staleSearchSQL = fmt.Sprintf("SELECT (SELECT count(*) FROM %s) != (SELECT count(*) FROM %s)",
		types.BookTable, SearchTable)

	matchSearchSQL = "SELECT rowid FROM " + SearchTable + " WHERE " + SearchTable + " MATCH ? ORDER BY rank"
)

// ensureSearchIndex creates the search table and fills it when its row
// count no longer matches the book table, as after an import.
func (s *Service) ensureSearchIndex(ctx context.Context) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createSearchSQL); err != nil {
			return fmt.Errorf("creating %s: %w", SearchTable, err)
		}
		var stale bool
		if err := tx.QueryRowContext(ctx, staleSearchSQL).Scan(&stale); err != nil {
			return fmt.Errorf("checking %s: %w", SearchTable, err)
		}
		if !stale {
			return nil
		}
		s.logger.Info("rebuilding search index")
		return rebuildSearch(ctx, tx)
	})
}

// RebuildSearchIndex refills the search table from the book and author
// tables.
func (s *Service) RebuildSearchIndex(ctx context.Context) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		return rebuildSearch(ctx, tx)
	})
}

func rebuildSearch(ctx context.Context, h sqlite.Handle) error {
	if _, err := h.ExecContext(ctx, "DELETE FROM "+SearchTable); err != nil {
		return fmt.Errorf("clearing %s: %w", SearchTable, err)
	}
	if _, err := h.ExecContext(ctx, rebuildSearchSQL); err != nil {
		return fmt.Errorf("filling %s: %w", SearchTable, err)
	}
	return nil
}

// indexBook replaces the search row of book id with the text of info.
func indexBook(ctx context.Context, h sqlite.Handle, id int64, info *types.BookInfo) error {
	if err := unindexBook(ctx, h, id); err != nil {
		return err
	}
	var authors any
	if names := info.AuthorNames(); len(names) > 0 {
		authors = strings.Join(names, ", ")
	}
	_, err := h.ExecContext(ctx, insertSearchSQL, id,
		types.Val(info.Title), types.Val(info.Subtitle), authors, types.Val(info.Description))
	if err != nil {
		return fmt.Errorf("indexing book %d: %w", id, err)
	}
	return nil
}

func unindexBook(ctx context.Context, h sqlite.Handle, id int64) error {
	if _, err := h.ExecContext(ctx, deleteSearchSQL, id); err != nil {
		return fmt.Errorf("unindexing book %d: %w", id, err)
	}
	return nil
}

// SearchBooks returns the books whose title, subtitle, authors or
// description contain every term of query, best match first. Terms match
// word prefixes and are taken literally. A blank query matches nothing.
func (s *Service) SearchBooks(ctx context.Context, query string) ([]*types.BookInfo, error) {
	match := matchExpr(query)
	if match == "" {
		return []*types.BookInfo{}, nil
	}

	h := s.store.DB()
	rows, err := h.QueryContext(ctx, matchSearchSQL, match)
	if err != nil {
		return nil, fmt.Errorf("searching books: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("searching books: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("searching books: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching books: %w", err)
	}

	books, err := s.books.GetAllWhereIn(ctx, h, types.BookColID, sqlite.Int64s(ids))
	if err != nil {
		return nil, err
	}
	return s.listInfos(ctx, h, inLinkOrder(ids, books))
}

// matchExpr turns free text into an FTS5 query: each whitespace-separated
// term becomes a quoted prefix match and all terms must match.
func matchExpr(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}
