package service

import (
	"time"

	"csv-cli/internal/store"
)

// SearchService provides fuzzy search and JSONPath record queries
type SearchService struct {
	store store.TableStore
}

// SearchOptions contains options for search operations
type SearchOptions struct {
	Pattern       string   `json:"pattern"`
	Columns       []string `json:"columns,omitempty"`
	UseRegex      bool     `json:"use_regex"`
	CaseSensitive bool     `json:"case_sensitive"`
	Limit         int      `json:"limit"`
}

// SearchResult contains the results of a search operation
type SearchResult struct {
	ResultSet *store.ResultSet `json:"result_set"`
	QueryTime string           `json:"query_time"`
}

// PathQueryResult contains the results of a JSONPath record query
type PathQueryResult struct {
	ResultSet *store.ResultSet `json:"result_set"`
	Expr      string           `json:"expr"`
	Value     string           `json:"value,omitempty"`
}

// NewSearchService creates a new SearchService instance
func NewSearchService(ts store.TableStore) *SearchService {
	return &SearchService{store: ts}
}

// Search performs a pattern search across table cells
func (s *SearchService) Search(name string, opts SearchOptions) (*SearchResult, error) {
	start := time.Now()
	rs, err := s.store.Search(name, store.SearchOptions{
		Pattern:       opts.Pattern,
		Columns:       opts.Columns,
		UseRegex:      opts.UseRegex,
		CaseSensitive: opts.CaseSensitive,
		Limit:         opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		ResultSet: rs,
		QueryTime: time.Since(start).String(),
	}, nil
}

// PathQuery filters rows with a JSONPath expression over typed row records
func (s *SearchService) PathQuery(name, expr, value string, limit int) (*PathQueryResult, error) {
	rs, err := s.store.QueryByPath(name, expr, value, limit)
	if err != nil {
		return nil, err
	}
	return &PathQueryResult{
		ResultSet: rs,
		Expr:      expr,
		Value:     value,
	}, nil
}
