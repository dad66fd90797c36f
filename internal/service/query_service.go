package service

import (
	"csv-cli/internal/store"
)

// QueryService provides row retrieval operations
type QueryService struct {
	store store.TableStore
}

// QueryOptions contains options for paginated row queries
type QueryOptions struct {
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	Columns []string `json:"columns,omitempty"`
}

// FilterOptions contains options for column predicate filters
type FilterOptions struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  string `json:"value"`
	Limit  int    `json:"limit"`
}

// NewQueryService creates a new QueryService instance
func NewQueryService(ts store.TableStore) *QueryService {
	return &QueryService{store: ts}
}

// Head returns the first n rows of a table
func (s *QueryService) Head(name string, n int) (*store.ResultSet, error) {
	return s.store.Head(name, n)
}

// Tail returns the last n rows of a table
func (s *QueryService) Tail(name string, n int) (*store.ResultSet, error) {
	return s.store.Tail(name, n)
}

// Query performs a paginated scan with optional column projection
func (s *QueryService) Query(name string, opts QueryOptions) (*store.ResultSet, error) {
	return s.store.Scan(name, store.ScanOptions{
		Offset:  opts.Offset,
		Limit:   opts.Limit,
		Columns: opts.Columns,
	})
}

// Filter returns rows matching a column predicate
func (s *QueryService) Filter(name string, opts FilterOptions) (*store.ResultSet, error) {
	op := store.FilterOp(opts.Op)
	if opts.Op == "" {
		op = store.FilterOpEq
	}
	return s.store.Filter(name, store.FilterOptions{
		Column: opts.Column,
		Op:     op,
		Value:  opts.Value,
		Limit:  opts.Limit,
	})
}

// AppendRow appends a row to a table. Fails in read-only mode.
func (s *QueryService) AppendRow(name string, values map[string]string) error {
	return s.store.AppendRow(name, values)
}
