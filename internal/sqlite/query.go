package sqlite

// QueryOption adjusts a GetAll query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	columns []string
	orderBy []string
}

// Select restricts GetAll to the named columns. Fields for other columns are
// left nil on the returned models.
func Select(columns ...string) QueryOption {
	return func(q *queryOptions) { q.columns = append(q.columns, columns...) }
}

// OrderBy sorts GetAll ascending by the named columns in the order given.
func OrderBy(columns ...string) QueryOption {
	return func(q *queryOptions) { q.orderBy = append(q.orderBy, columns...) }
}
