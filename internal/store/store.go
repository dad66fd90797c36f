// Package store implements a read-mostly table store over a workspace
// directory of CSV files. Each file is exposed as a named table with an
// inferred per-column type, similar to how a database exposes its tables.
package store

import (
	"errors"
	"time"
)

// Specific error types for better error handling
var (
	ErrTableNotFound   = errors.New("table not found")
	ErrNotAFile        = errors.New("path is not a regular file")
	ErrColumnNotFound  = errors.New("column not found")
	ErrEmptyTable      = errors.New("table is empty")
	ErrReadOnlyMode    = errors.New("operation not allowed in read-only mode")
	ErrStoreClosed     = errors.New("store is closed")
	ErrInvalidOperator = errors.New("invalid filter operator")
	ErrOutsideRoot     = errors.New("path escapes the workspace directory")
)

// ColumnType represents the inferred data type of a CSV column
type ColumnType string

const (
	ColumnTypeString    ColumnType = "String"
	ColumnTypeInteger   ColumnType = "Integer"
	ColumnTypeFloat     ColumnType = "Float"
	ColumnTypeBoolean   ColumnType = "Boolean"
	ColumnTypeTimestamp ColumnType = "Timestamp"
	ColumnTypeJSON      ColumnType = "JSON"
	ColumnTypeEmpty     ColumnType = "Empty"
)

// IsNumeric reports whether values of this type can be aggregated numerically.
func (t ColumnType) IsNumeric() bool {
	return t == ColumnTypeInteger || t == ColumnTypeFloat
}

// Column describes a single table column
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// TableInfo contains metadata about a table
type TableInfo struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Columns     []Column  `json:"columns"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	FileSize    int64     `json:"file_size"`
	ModTime     time.Time `json:"mod_time"`
}

// ScanOptions contains options for row scans
type ScanOptions struct {
	Offset  int      // Number of rows to skip
	Limit   int      // Maximum number of rows to return (0 = store default)
	Columns []string // Column projection (empty = all columns)
}

// FilterOp is a comparison operator for row filters
type FilterOp string

const (
	FilterOpEq       FilterOp = "eq"
	FilterOpNe       FilterOp = "ne"
	FilterOpGt       FilterOp = "gt"
	FilterOpGe       FilterOp = "ge"
	FilterOpLt       FilterOp = "lt"
	FilterOpLe       FilterOp = "le"
	FilterOpContains FilterOp = "contains"
)

// FilterOptions contains options for filtering rows by a column predicate
type FilterOptions struct {
	Column string
	Op     FilterOp
	Value  string
	Limit  int
}

// SearchOptions contains options for fuzzy row search
type SearchOptions struct {
	Pattern       string   // Pattern to search for
	Columns       []string // Columns to search in (empty = all)
	UseRegex      bool     // Whether to compile Pattern as a regex
	CaseSensitive bool     // Whether matching is case sensitive
	Limit         int      // Maximum number of matching rows
}

// ResultSet is a page of rows returned by a query operation
type ResultSet struct {
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	Count      int        `json:"count"`
	HasMore    bool       `json:"has_more"`
	NextOffset int        `json:"next_offset"`
}

// Records converts the rows into column-keyed maps.
func (rs *ResultSet) Records() []map[string]string {
	records := make([]map[string]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		record := make(map[string]string, len(rs.Columns))
		for i, col := range rs.Columns {
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		records = append(records, record)
	}
	return records
}

// ColumnStats contains statistics for a single column
type ColumnStats struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	Count         int        `json:"count"`
	EmptyCount    int        `json:"empty_count"`
	DistinctCount int        `json:"distinct_count"`
	Min           *float64   `json:"min,omitempty"`
	Max           *float64   `json:"max,omitempty"`
	Mean          *float64   `json:"mean,omitempty"`
	Sum           *float64   `json:"sum,omitempty"`
	MinLength     int        `json:"min_length"`
	MaxLength     int        `json:"max_length"`
	SampleValues  []string   `json:"sample_values"`
}

// TableStats contains statistics for an entire table
type TableStats struct {
	Name             string             `json:"name"`
	RowCount         int                `json:"row_count"`
	ColumnCount      int                `json:"column_count"`
	FileSize         int64              `json:"file_size"`
	ModTime          time.Time          `json:"mod_time"`
	Columns          []ColumnStats      `json:"columns"`
	TypeDistribution map[ColumnType]int `json:"type_distribution"`
	LastUpdated      time.Time          `json:"last_updated"`
}

// TableStore is the interface all front ends (CLI, REPL, MCP tools, agent)
// use to access CSV tables.
type TableStore interface {
	ListTables() ([]TableInfo, error)
	Describe(name string) (*TableInfo, error)
	Head(name string, n int) (*ResultSet, error)
	Tail(name string, n int) (*ResultSet, error)
	Scan(name string, opts ScanOptions) (*ResultSet, error)
	Filter(name string, opts FilterOptions) (*ResultSet, error)
	Search(name string, opts SearchOptions) (*ResultSet, error)
	QueryByPath(name, expr, value string, limit int) (*ResultSet, error)
	ColumnStats(name, column string) (*ColumnStats, error)
	TableStats(name string) (*TableStats, error)
	AppendRow(name string, values map[string]string) error
	Reload(name string) error
	IsReadOnly() bool
	Dir() string
	Close()
}
