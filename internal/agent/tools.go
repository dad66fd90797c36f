package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"csv-cli/internal/store"
)

// ToolInput represents the input structure for tools
type ToolInput struct {
	Args map[string]interface{} `json:"args"`
}

// parseToolInput parses the input string into structured data
func parseToolInput(input string) (*ToolInput, error) {
	var toolInput ToolInput
	if err := json.Unmarshal([]byte(input), &toolInput); err != nil {
		// If JSON parsing fails, treat the whole input as a single value
		toolInput.Args = map[string]interface{}{
			"input": strings.TrimSpace(input),
		}
	}
	if toolInput.Args == nil {
		toolInput.Args = map[string]interface{}{}
	}
	return &toolInput, nil
}

// getString extracts string value from args
func getString(args map[string]interface{}, key string) string {
	if val, ok := args[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// getInt extracts int value from args
func getInt(args map[string]interface{}, key string) int {
	if val, ok := args[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return 0
}

// getBool extracts bool value from args
func getBool(args map[string]interface{}, key string) bool {
	if val, ok := args[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// ListTablesTool implements tools.Tool interface for listing tables
type ListTablesTool struct {
	store store.TableStore
}

func NewListTablesTool(ts store.TableStore) *ListTablesTool {
	return &ListTablesTool{store: ts}
}

func (t *ListTablesTool) Call(ctx context.Context, input string) (string, error) {
	tables, err := t.store.ListTables()
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}

	result := map[string]interface{}{
		"tables": tables,
		"count":  len(tables),
	}

	resultBytes, _ := json.Marshal(result)
	return string(resultBytes), nil
}

func (t *ListTablesTool) Name() string {
	return "list_tables"
}

func (t *ListTablesTool) Description() string {
	return `List all CSV tables in the workspace.
Args: none
Returns: JSON {tables, count} where each table has name, row_count, and columns`
}

// DescribeTableTool implements tools.Tool interface for describing a table
type DescribeTableTool struct {
	store store.TableStore
}

func NewDescribeTableTool(ts store.TableStore) *DescribeTableTool {
	return &DescribeTableTool{store: ts}
}

func (t *DescribeTableTool) Call(ctx context.Context, input string) (string, error) {
	toolInput, err := parseToolInput(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}

	table := getString(toolInput.Args, "table")
	if table == "" {
		table = getString(toolInput.Args, "input")
	}
	if table == "" {
		return "", fmt.Errorf("table parameter is required")
	}

	info, err := t.store.Describe(table)
	if err != nil {
		return "", fmt.Errorf("failed to describe table: %w", err)
	}

	resultBytes, _ := json.Marshal(info)
	return string(resultBytes), nil
}

func (t *DescribeTableTool) Name() string {
	return "describe_table"
}

func (t *DescribeTableTool) Description() string {
	return `Describe the schema of a CSV table.
Args:
  - table (string, required)
Returns: JSON {name, path, columns, row_count, column_count}`
}

// QueryRowsTool implements tools.Tool interface for paging through rows
type QueryRowsTool struct {
	store store.TableStore
}

func NewQueryRowsTool(ts store.TableStore) *QueryRowsTool {
	return &QueryRowsTool{store: ts}
}

func (t *QueryRowsTool) Call(ctx context.Context, input string) (string, error) {
	toolInput, err := parseToolInput(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}

	table := getString(toolInput.Args, "table")
	if table == "" {
		return "", fmt.Errorf("table parameter is required")
	}

	limit := getInt(toolInput.Args, "limit")
	if limit <= 0 {
		limit = 10
	}

	rs, err := t.store.Scan(table, store.ScanOptions{
		Offset: getInt(toolInput.Args, "offset"),
		Limit:  limit,
	})
	if err != nil {
		return "", fmt.Errorf("failed to query rows: %w", err)
	}

	result := map[string]interface{}{
		"rows":     rs.Records(),
		"count":    rs.Count,
		"has_more": rs.HasMore,
		"table":    table,
	}

	resultBytes, _ := json.Marshal(result)
	return string(resultBytes), nil
}

func (t *QueryRowsTool) Name() string {
	return "query_rows"
}

func (t *QueryRowsTool) Description() string {
	return `Get a page of rows from a CSV table.
Args:
  - table (string, required)
  - offset (int, optional, default: 0)
  - limit (int, optional, default: 10)
Returns: JSON {rows, count, has_more, table}`
}

// FilterRowsTool implements tools.Tool interface for filtering rows
type FilterRowsTool struct {
	store store.TableStore
}

func NewFilterRowsTool(ts store.TableStore) *FilterRowsTool {
	return &FilterRowsTool{store: ts}
}

func (t *FilterRowsTool) Call(ctx context.Context, input string) (string, error) {
	toolInput, err := parseToolInput(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}

	table := getString(toolInput.Args, "table")
	column := getString(toolInput.Args, "column")
	value := getString(toolInput.Args, "value")
	if table == "" || column == "" || value == "" {
		return "", fmt.Errorf("table, column and value parameters are required")
	}

	op := getString(toolInput.Args, "op")
	if op == "" {
		op = "eq"
	}

	limit := getInt(toolInput.Args, "limit")
	if limit <= 0 {
		limit = 20
	}

	rs, err := t.store.Filter(table, store.FilterOptions{
		Column: column,
		Op:     store.FilterOp(op),
		Value:  value,
		Limit:  limit,
	})
	if err != nil {
		return "", fmt.Errorf("failed to filter rows: %w", err)
	}

	result := map[string]interface{}{
		"rows":   rs.Records(),
		"count":  rs.Count,
		"table":  table,
		"column": column,
		"op":     op,
		"value":  value,
	}

	resultBytes, _ := json.Marshal(result)
	return string(resultBytes), nil
}

func (t *FilterRowsTool) Name() string {
	return "filter_rows"
}

func (t *FilterRowsTool) Description() string {
	return `Filter rows of a CSV table by a column predicate.
Args:
  - table (string, required)
  - column (string, required)
  - op (string, optional, one of eq/ne/gt/ge/lt/le/contains, default: "eq")
  - value (string, required)
  - limit (int, optional, default: 20)
Returns: JSON {rows, count, table, column, op, value}`
}

// SearchRowsTool implements tools.Tool interface for fuzzy row search
type SearchRowsTool struct {
	store store.TableStore
}

func NewSearchRowsTool(ts store.TableStore) *SearchRowsTool {
	return &SearchRowsTool{store: ts}
}

func (t *SearchRowsTool) Call(ctx context.Context, input string) (string, error) {
	toolInput, err := parseToolInput(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}

	table := getString(toolInput.Args, "table")
	pattern := getString(toolInput.Args, "pattern")
	if table == "" || pattern == "" {
		return "", fmt.Errorf("table and pattern parameters are required")
	}

	limit := getInt(toolInput.Args, "limit")
	if limit <= 0 {
		limit = 20
	}

	rs, err := t.store.Search(table, store.SearchOptions{
		Pattern:       pattern,
		UseRegex:      getBool(toolInput.Args, "use_regex"),
		CaseSensitive: getBool(toolInput.Args, "case_sensitive"),
		Limit:         limit,
	})
	if err != nil {
		return "", fmt.Errorf("failed to search rows: %w", err)
	}

	result := map[string]interface{}{
		"rows":    rs.Records(),
		"count":   rs.Count,
		"table":   table,
		"pattern": pattern,
	}

	resultBytes, _ := json.Marshal(result)
	return string(resultBytes), nil
}

func (t *SearchRowsTool) Name() string {
	return "search_rows"
}

func (t *SearchRowsTool) Description() string {
	return `Search CSV table cells for a pattern.
Args:
  - table (string, required)
  - pattern (string, required)
  - use_regex (bool, optional, default: false)
  - case_sensitive (bool, optional, default: false)
  - limit (int, optional, default: 20)
Returns: JSON {rows, count, table, pattern}`
}

// ColumnStatsTool implements tools.Tool interface for column statistics
type ColumnStatsTool struct {
	store store.TableStore
}

func NewColumnStatsTool(ts store.TableStore) *ColumnStatsTool {
	return &ColumnStatsTool{store: ts}
}

func (t *ColumnStatsTool) Call(ctx context.Context, input string) (string, error) {
	toolInput, err := parseToolInput(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse input: %w", err)
	}

	table := getString(toolInput.Args, "table")
	if table == "" {
		return "", fmt.Errorf("table parameter is required")
	}

	column := getString(toolInput.Args, "column")
	if column == "" {
		// No column given, fall back to whole-table statistics
		stats, err := t.store.TableStats(table)
		if err != nil {
			return "", fmt.Errorf("failed to get table stats: %w", err)
		}
		resultBytes, _ := json.Marshal(stats)
		return string(resultBytes), nil
	}

	stats, err := t.store.ColumnStats(table, column)
	if err != nil {
		return "", fmt.Errorf("failed to get column stats: %w", err)
	}

	resultBytes, _ := json.Marshal(stats)
	return string(resultBytes), nil
}

func (t *ColumnStatsTool) Name() string {
	return "column_stats"
}

func (t *ColumnStatsTool) Description() string {
	return `Get statistics for a CSV table or one of its columns.
Args:
  - table (string, required)
  - column (string, optional, omit for whole-table statistics)
Returns: JSON with counts, distinct values, and numeric min/max/mean/sum`
}
