package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Handle is the connection a broker call runs against. *sql.DB, *sql.Tx and
// *sql.Conn all satisfy it. Brokers never begin or end transactions; callers
// that need atomicity across calls pass a *sql.Tx.
type Handle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ModelOf constrains PT to be a pointer to T that implements types.Model.
type ModelOf[T any] interface {
	*T
	types.Model
}

// whereInChunk bounds the number of parameters bound by one IN (...) query.
const whereInChunk = 500

// Broker performs CRUD for one model type. It keeps only its schema and the
// statements derived from it, so a single Broker is safe for concurrent use.
type Broker[T any, PT ModelOf[T]] struct {
	schema     *Schema
	selectList string
	updateSQL  string
	deleteSQL  string
	getSQL     string
}

// NewBroker builds the schema for PT and prepares the fixed statements.
func NewBroker[T any, PT ModelOf[T]]() (*Broker[T, PT], error) {
	s, err := NewSchema(PT(new(T)))
	if err != nil {
		return nil, err
	}
	return newBroker[T, PT](s), nil
}

func newBroker[T any, PT ModelOf[T]](s *Schema) *Broker[T, PT] {
	pk := s.PrimaryKey().Name
	var sets []string
	for i, c := range s.columns {
		if i == s.pk {
			continue
		}
		sets = append(sets, c.Name+" = ?")
	}
	selectList := strings.Join(s.ColumnNames(), ", ")
	return &Broker[T, PT]{
		schema:     s,
		selectList: selectList,
		updateSQL:  fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", s.table, strings.Join(sets, ", "), pk),
		deleteSQL:  fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.table, pk),
		getSQL:     fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", selectList, s.table, pk),
	}
}

// Schema returns the broker's schema descriptor.
func (b *Broker[T, PT]) Schema() *Schema { return b.schema }

// Insert writes m as a new row and stores the assigned id back into m.
// A nil value for a column with a declared default is left to the default.
func (b *Broker[T, PT]) Insert(ctx context.Context, h Handle, m PT) (int64, error) {
	vals := m.Values()
	var cols []string
	var args []any
	for i, c := range b.schema.columns {
		if i == b.schema.pk {
			continue
		}
		if vals[i] == nil && c.Default != "" {
			continue
		}
		cols = append(cols, c.Name)
		args = append(args, vals[i])
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", b.schema.table)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			b.schema.table, strings.Join(cols, ", "), placeholders(len(cols)))
	}

	res, err := h.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapWrite("inserting into", b.schema.table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading id for %s: %w", b.schema.table, err)
	}
	m.SetPrimaryKey(id)
	return id, nil
}

// Update rewrites every non-key column of the row identified by m's primary
// key. Returns types.ErrNoPrimaryKey when m has not been inserted.
func (b *Broker[T, PT]) Update(ctx context.Context, h Handle, m PT) error {
	id := m.PrimaryKey()
	if id == nil {
		return fmt.Errorf("updating %s: %w", b.schema.table, types.ErrNoPrimaryKey)
	}
	vals := m.Values()
	args := make([]any, 0, len(vals))
	for i, v := range vals {
		if i == b.schema.pk {
			continue
		}
		args = append(args, v)
	}
	args = append(args, *id)
	if _, err := h.ExecContext(ctx, b.updateSQL, args...); err != nil {
		return wrapWrite("updating", b.schema.table, err)
	}
	return nil
}

// Save inserts m when it has no primary key and updates it otherwise.
// Returns the row id.
func (b *Broker[T, PT]) Save(ctx context.Context, h Handle, m PT) (int64, error) {
	if id := m.PrimaryKey(); id != nil {
		return *id, b.Update(ctx, h, m)
	}
	return b.Insert(ctx, h, m)
}

// Delete removes the row with the given id. Deleting a missing row is not
// an error.
func (b *Broker[T, PT]) Delete(ctx context.Context, h Handle, id int64) error {
	if _, err := h.ExecContext(ctx, b.deleteSQL, id); err != nil {
		return wrapWrite("deleting from", b.schema.table, err)
	}
	return nil
}

// DeleteAll empties the table.
func (b *Broker[T, PT]) DeleteAll(ctx context.Context, h Handle) error {
	if _, err := h.ExecContext(ctx, "DELETE FROM "+b.schema.table); err != nil {
		return wrapWrite("clearing", b.schema.table, err)
	}
	return nil
}

// Get returns the row with the given id. ok is false when no row matches.
func (b *Broker[T, PT]) Get(ctx context.Context, h Handle, id int64) (PT, bool, error) {
	rows, err := h.QueryContext(ctx, b.getSQL, id)
	if err != nil {
		return nil, false, fmt.Errorf("getting %s %d: %w", b.schema.table, id, err)
	}
	list, err := b.scanAll(rows, b.schema.ColumnNames())
	if err != nil {
		return nil, false, err
	}
	if len(list) == 0 {
		return nil, false, nil
	}
	return list[0], true, nil
}

// GetAll returns every row. Select restricts the columns read (the others
// stay nil); OrderBy sorts ascending by the listed columns. Rows that tie on
// every sort column come back in primary key order.
func (b *Broker[T, PT]) GetAll(ctx context.Context, h Handle, opts ...QueryOption) ([]PT, error) {
	var q queryOptions
	for _, opt := range opts {
		opt(&q)
	}
	cols := q.columns
	if len(cols) == 0 {
		cols = b.schema.ColumnNames()
	}
	if err := b.schema.checkColumns(cols); err != nil {
		return nil, err
	}
	if err := b.schema.checkColumns(q.orderBy); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), b.schema.table, b.orderClause(q.orderBy))
	rows, err := h.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", b.schema.table, err)
	}
	return b.scanAll(rows, cols)
}

// GetAllWhereIn returns the rows whose column value is one of values, in
// primary key order. An empty values slice returns an empty result without
// querying.
func (b *Broker[T, PT]) GetAllWhereIn(ctx context.Context, h Handle, column string, values []any) ([]PT, error) {
	if len(values) == 0 {
		return []PT{}, nil
	}
	if err := b.schema.checkColumns([]string{column}); err != nil {
		return nil, err
	}

	values = distinct(values)
	results := []PT{}
	for chunk := range slices.Chunk(values, whereInChunk) {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s) ORDER BY %s",
			b.selectList, b.schema.table, column, placeholders(len(chunk)), b.schema.PrimaryKey().Name)
		rows, err := h.QueryContext(ctx, query, chunk...)
		if err != nil {
			return nil, fmt.Errorf("listing %s by %s: %w", b.schema.table, column, err)
		}
		list, err := b.scanAll(rows, b.schema.ColumnNames())
		if err != nil {
			return nil, err
		}
		results = append(results, list...)
	}
	if len(values) > whereInChunk {
		slices.SortFunc(results, func(x, y PT) int {
			return compareIDs(x.PrimaryKey(), y.PrimaryKey())
		})
	}
	return results, nil
}

// distinct drops repeated values and keeps first-seen order. Values that
// cannot be map keys are kept as they are.
func distinct(values []any) []any {
	seen := make(map[any]struct{}, len(values))
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil && !reflect.TypeOf(v).Comparable() {
			out = append(out, v)
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// GetByCriteria returns the single row matching the non-nil fields of
// criteria. ok is false when nothing matches; more than one match returns
// types.ErrMultipleRows.
func (b *Broker[T, PT]) GetByCriteria(ctx context.Context, h Handle, criteria PT) (PT, bool, error) {
	where, args := b.where(criteria)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT 2",
		b.selectList, b.schema.table, where, b.schema.PrimaryKey().Name)
	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying %s: %w", b.schema.table, err)
	}
	list, err := b.scanAll(rows, b.schema.ColumnNames())
	if err != nil {
		return nil, false, err
	}
	switch len(list) {
	case 0:
		return nil, false, nil
	case 1:
		return list[0], true, nil
	default:
		return nil, false, fmt.Errorf("querying %s: %w", b.schema.table, types.ErrMultipleRows)
	}
}

// GetAllByCriteria returns every row matching the non-nil fields of
// criteria, in primary key order. Criteria with no fields set match all rows.
func (b *Broker[T, PT]) GetAllByCriteria(ctx context.Context, h Handle, criteria PT) ([]PT, error) {
	where, args := b.where(criteria)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		b.selectList, b.schema.table, where, b.schema.PrimaryKey().Name)
	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", b.schema.table, err)
	}
	return b.scanAll(rows, b.schema.ColumnNames())
}

// Count returns the number of rows matching criteria. A nil criteria counts
// the whole table.
func (b *Broker[T, PT]) Count(ctx context.Context, h Handle, criteria PT) (int64, error) {
	var where string
	var args []any
	if criteria != nil {
		where, args = b.where(criteria)
	}
	var n int64
	err := h.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.schema.table, where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", b.schema.table, err)
	}
	return n, nil
}

// where builds an equality-AND clause over the non-nil values of criteria.
func (b *Broker[T, PT]) where(criteria PT) (string, []any) {
	vals := criteria.Values()
	var conds []string
	var args []any
	for i, c := range b.schema.columns {
		if vals[i] == nil {
			continue
		}
		conds = append(conds, c.Name+" = ?")
		args = append(args, vals[i])
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (b *Broker[T, PT]) orderClause(orderBy []string) string {
	pk := b.schema.PrimaryKey().Name
	terms := make([]string, 0, len(orderBy)+1)
	for _, col := range orderBy {
		terms = append(terms, col+" ASC")
	}
	if !slices.Contains(orderBy, pk) {
		terms = append(terms, pk+" ASC")
	}
	return strings.Join(terms, ", ")
}

// scanAll reads every row into a fresh model, binding cols through
// ScanTarget. It closes rows.
func (b *Broker[T, PT]) scanAll(rows *sql.Rows, cols []string) ([]PT, error) {
	defer rows.Close()

	results := []PT{}
	for rows.Next() {
		m := PT(new(T))
		dest := make([]any, len(cols))
		for i, col := range cols {
			dest[i] = m.ScanTarget(col)
			if dest[i] == nil {
				return nil, fmt.Errorf("%w: %s.%s has no scan target", types.ErrInvalidSchema, b.schema.table, col)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", b.schema.table, err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.schema.table, err)
	}
	return results, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func compareIDs(x, y *int64) int {
	switch {
	case x == nil && y == nil:
		return 0
	case x == nil:
		return -1
	case y == nil:
		return 1
	case *x < *y:
		return -1
	case *x > *y:
		return 1
	}
	return 0
}

// Int64s converts ids into the []any expected by GetAllWhereIn.
func Int64s(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
