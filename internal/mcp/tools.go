package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"csv-cli/internal/service"
	"csv-cli/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolManager manages MCP tools for CSV workspace operations
type ToolManager struct {
	store   store.TableStore
	config  *Config
	catalog *service.CatalogService
	query   *service.QueryService
	search  *service.SearchService
	stats   *service.StatsService
	export  *service.ExportService
}

// NewToolManager creates a new tool manager
func NewToolManager(ts store.TableStore, config *Config) *ToolManager {
	return &ToolManager{
		store:   ts,
		config:  config,
		catalog: service.NewCatalogService(ts),
		query:   service.NewQueryService(ts),
		search:  service.NewSearchService(ts),
		stats:   service.NewStatsService(ts),
		export:  service.NewExportService(ts),
	}
}

// addTool registers a tool unless it is disabled by configuration
func (tm *ToolManager) addTool(s *server.MCPServer, tool mcp.Tool, handler server.ToolHandlerFunc) {
	if !tm.config.IsToolEnabled(tool.Name) {
		return
	}
	s.AddTool(tool, handler)
}

// RegisterTools registers all available tools with the MCP server
func (tm *ToolManager) RegisterTools(s *server.MCPServer) error {
	// Health Check Tool
	healthCheckTool := mcp.NewTool("health_check",
		mcp.WithDescription("Health check endpoint"),
		mcp.WithString("ping",
			mcp.Description("Arbitrary ping payload"),
		),
	)
	tm.addTool(s, healthCheckTool, tm.handleHealthCheckTool)

	// CSV Read Tool
	readTool := mcp.NewTool("csv_read",
		mcp.WithDescription("Reads a CSV file and returns the contents. Use when analyzing CSV files or reading csv files. Returns JSON structure with file info, first rows, and statistics"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the CSV file relative to the workspace, ask the user if not clear"),
		),
	)
	tm.addTool(s, readTool, tm.handleReadTool)

	// List Tables Tool
	listTablesTool := mcp.NewTool("csv_list_tables",
		mcp.WithDescription("List all CSV tables in the workspace"),
	)
	tm.addTool(s, listTablesTool, tm.handleListTablesTool)

	// Head Tool
	headTool := mcp.NewTool("csv_head",
		mcp.WithDescription("Get the first rows of a CSV table"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name (file name without .csv)"),
		),
		mcp.WithNumber("n",
			mcp.Description("Number of rows to return (defaults to 5)"),
		),
	)
	tm.addTool(s, headTool, tm.handleHeadTool)

	// Query Tool
	queryTool := mcp.NewTool("csv_query",
		mcp.WithDescription("Get a page of rows from a CSV table with optional column projection"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of rows to skip"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of rows to return"),
		),
		mcp.WithString("columns",
			mcp.Description("Comma-separated column names to include"),
		),
	)
	tm.addTool(s, queryTool, tm.handleQueryTool)

	// Filter Tool
	filterTool := mcp.NewTool("csv_filter",
		mcp.WithDescription("Filter rows of a CSV table by a column predicate"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name"),
		),
		mcp.WithString("column",
			mcp.Required(),
			mcp.Description("Column to filter on"),
		),
		mcp.WithString("op",
			mcp.Description("Comparison operator: eq, ne, gt, ge, lt, le, contains (defaults to eq)"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Value to compare against"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of rows to return"),
		),
	)
	tm.addTool(s, filterTool, tm.handleFilterTool)

	// Search Tool
	searchTool := mcp.NewTool("csv_search",
		mcp.WithDescription("Search CSV table cells for a pattern"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name"),
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Pattern to search for"),
		),
		mcp.WithString("columns",
			mcp.Description("Comma-separated columns to search in (defaults to all)"),
		),
		mcp.WithBoolean("use_regex",
			mcp.Description("Treat pattern as a regular expression"),
		),
		mcp.WithBoolean("case_sensitive",
			mcp.Description("Match case sensitively"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of matching rows"),
		),
	)
	tm.addTool(s, searchTool, tm.handleSearchTool)

	// JSONPath Query Tool
	jsonQueryTool := mcp.NewTool("csv_json_query",
		mcp.WithDescription("Filter rows with a JSONPath expression evaluated against each row record"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("JSONPath expression, e.g. $.age or $.payload.status"),
		),
		mcp.WithString("value",
			mcp.Description("Optional value the resolved expression must equal"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of matching rows"),
		),
	)
	tm.addTool(s, jsonQueryTool, tm.handleJSONQueryTool)

	// Column Stats Tool
	columnStatsTool := mcp.NewTool("csv_column_stats",
		mcp.WithDescription("Get statistics for a single column of a CSV table"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name"),
		),
		mcp.WithString("column",
			mcp.Required(),
			mcp.Description("Column name"),
		),
	)
	tm.addTool(s, columnStatsTool, tm.handleColumnStatsTool)

	// Table Stats Tool
	tableStatsTool := mcp.NewTool("csv_table_stats",
		mcp.WithDescription("Get statistics for all columns of a CSV table"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name"),
		),
	)
	tm.addTool(s, tableStatsTool, tm.handleTableStatsTool)

	// Export Tool
	exportTool := mcp.NewTool("csv_export",
		mcp.WithDescription("Export CSV table data to a file in CSV or JSON format"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name to export"),
		),
		mcp.WithString("output_file",
			mcp.Required(),
			mcp.Description("Output file path"),
		),
		mcp.WithString("format",
			mcp.Description("Export format: csv or json (defaults to csv)"),
		),
		mcp.WithString("columns",
			mcp.Description("Comma-separated columns to export"),
		),
	)
	tm.addTool(s, exportTool, tm.handleExportTool)

	// Append Row Tool (only if not read-only)
	if !tm.config.ReadOnly {
		appendRowTool := mcp.NewTool("csv_append_row",
			mcp.WithDescription("Append a row to a CSV table"),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Table name"),
			),
			mcp.WithString("values",
				mcp.Required(),
				mcp.Description("JSON object mapping column names to cell values"),
			),
		)
		tm.addTool(s, appendRowTool, tm.handleAppendRowTool)
	}

	return nil
}

// Tool handlers

func (tm *ToolManager) handleHealthCheckTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("Health is Ok!"), nil
}

// readEnvelope is the response shape of the csv_read tool. Errors are
// reported inside the envelope so the caller always receives valid JSON.
type readEnvelope struct {
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	FileInfo   map[string]interface{} `json:"file_info,omitempty"`
	Preview    map[string]interface{} `json:"preview,omitempty"`
	Statistics map[string]interface{} `json:"statistics,omitempty"`
}

func (tm *ToolManager) handleReadTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := tm.catalog.Describe(filePath)
	if err != nil {
		return readError(filePath, err), nil
	}

	preview, err := tm.query.Head(filePath, tm.config.PreviewRows)
	if err != nil {
		return readError(filePath, err), nil
	}

	numericStats, err := tm.stats.GetNumericSummaries(filePath)
	if err != nil && !errors.Is(err, store.ErrEmptyTable) {
		return readError(filePath, err), nil
	}

	columns := make([]string, 0, len(info.Columns))
	for _, col := range info.Columns {
		columns = append(columns, col.Name)
	}

	envelope := readEnvelope{
		Success: true,
		FileInfo: map[string]interface{}{
			"path":         filePath,
			"column_count": info.ColumnCount,
			"row_count":    info.RowCount,
			"columns":      columns,
		},
		Preview: map[string]interface{}{
			fmt.Sprintf("first_%d_rows", tm.config.PreviewRows): typedRecords(info, preview),
		},
		Statistics: map[string]interface{}{
			"numeric_columns": numericStats,
		},
	}

	jsonData, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return readError(filePath, err), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// readError maps store errors to the csv_read error envelope
func readError(filePath string, err error) *mcp.CallToolResult {
	var msg string
	switch {
	case errors.Is(err, store.ErrTableNotFound):
		msg = fmt.Sprintf("File '%s' does not exist", filePath)
	case errors.Is(err, store.ErrNotAFile):
		msg = fmt.Sprintf("File '%s' is not a file", filePath)
	default:
		msg = fmt.Sprintf("Error reading file '%s': %v", filePath, err)
	}
	jsonData, _ := json.Marshal(readEnvelope{Success: false, Error: msg})
	return mcp.NewToolResultText(string(jsonData))
}

// typedRecords converts preview rows to records with JSON-native values so
// numeric cells serialize as numbers rather than strings.
func typedRecords(info *store.TableInfo, rs *store.ResultSet) []map[string]interface{} {
	types := make(map[string]store.ColumnType, len(info.Columns))
	for _, col := range info.Columns {
		types[col.Name] = col.Type
	}

	records := make([]map[string]interface{}, 0, len(rs.Rows))
	for _, record := range rs.Records() {
		typed := make(map[string]interface{}, len(record))
		for name, v := range record {
			switch types[name] {
			case store.ColumnTypeInteger:
				if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
					typed[name] = i
					continue
				}
			case store.ColumnTypeFloat:
				if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					typed[name] = f
					continue
				}
			case store.ColumnTypeBoolean:
				if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v))); err == nil {
					typed[name] = b
					continue
				}
			}
			typed[name] = v
		}
		records = append(records, typed)
	}
	return records
}

func (tm *ToolManager) handleListTablesTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	listing, err := tm.catalog.ListTables()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tables: %v", err)), nil
	}

	if listing.Count == 0 {
		return mcp.NewToolResultText("No CSV tables found in workspace"), nil
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("CSV tables in %s (%d total):\n", listing.Dir, listing.Count))
	for _, t := range listing.Tables {
		output.WriteString(fmt.Sprintf("- %s (%d rows, %d columns)\n", t.Name, t.RowCount, t.ColumnCount))
	}

	return mcp.NewToolResultText(output.String()), nil
}

func (tm *ToolManager) handleHeadTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n := int(request.GetFloat("n", 0))

	rs, err := tm.query.Head(table, n)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read head of table '%s': %v", table, err)), nil
	}

	return resultSetText(fmt.Sprintf("First %d rows of '%s'", rs.Count, table), rs), nil
}

func (tm *ToolManager) handleQueryTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := service.QueryOptions{
		Offset:  int(request.GetFloat("offset", 0)),
		Limit:   int(request.GetFloat("limit", 0)),
		Columns: splitColumns(request.GetString("columns", "")),
	}

	rs, err := tm.query.Query(table, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query table '%s': %v", table, err)), nil
	}

	header := fmt.Sprintf("Rows %d-%d of '%s'", opts.Offset, opts.Offset+rs.Count, table)
	if rs.HasMore {
		header += fmt.Sprintf(" (more rows available, next offset %d)", rs.NextOffset)
	}
	return resultSetText(header, rs), nil
}

func (tm *ToolManager) handleFilterTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := request.RequireString("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := service.FilterOptions{
		Column: column,
		Op:     request.GetString("op", "eq"),
		Value:  value,
		Limit:  int(request.GetFloat("limit", 0)),
	}

	rs, err := tm.query.Filter(table, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to filter table '%s': %v", table, err)), nil
	}

	if rs.Count == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No rows match %s %s %s", column, opts.Op, value)), nil
	}
	return resultSetText(fmt.Sprintf("Rows of '%s' where %s %s %s (%d results)", table, column, opts.Op, value, rs.Count), rs), nil
}

func (tm *ToolManager) handleSearchTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pattern, err := request.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := service.SearchOptions{
		Pattern:       pattern,
		Columns:       splitColumns(request.GetString("columns", "")),
		UseRegex:      request.GetBool("use_regex", false),
		CaseSensitive: request.GetBool("case_sensitive", false),
		Limit:         int(request.GetFloat("limit", 0)),
	}

	result, err := tm.search.Search(table, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search table '%s': %v", table, err)), nil
	}

	if result.ResultSet.Count == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No rows match pattern '%s'", pattern)), nil
	}
	header := fmt.Sprintf("Search results for '%s' in '%s' (%d results, %s)",
		pattern, table, result.ResultSet.Count, result.QueryTime)
	return resultSetText(header, result.ResultSet), nil
}

func (tm *ToolManager) handleJSONQueryTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	value := request.GetString("value", "")
	limit := int(request.GetFloat("limit", 0))

	result, err := tm.search.PathQuery(table, path, value, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query table '%s' with path '%s': %v", table, path, err)), nil
	}

	if result.ResultSet.Count == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No rows match path '%s'", path)), nil
	}
	return resultSetText(fmt.Sprintf("Rows of '%s' matching %s (%d results)", table, path, result.ResultSet.Count), result.ResultSet), nil
}

func (tm *ToolManager) handleColumnStatsTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := request.RequireString("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stats, err := tm.stats.GetColumnStats(table, column)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get stats for column '%s' of table '%s': %v", column, table, err)), nil
	}

	jsonData, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (tm *ToolManager) handleTableStatsTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stats, err := tm.stats.GetTableStats(table)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get stats for table '%s': %v", table, err)), nil
	}

	jsonData, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (tm *ToolManager) handleExportTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputFile, err := request.RequireString("output_file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format := request.GetString("format", "csv")
	if format != "csv" && format != "json" {
		return mcp.NewToolResultError(fmt.Sprintf("Unsupported export format '%s' (expected csv or json)", format)), nil
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create output file '%s': %v", outputFile, err)), nil
	}
	defer f.Close()

	result, err := tm.export.Export(f, service.ExportOptions{
		Table:   table,
		Format:  format,
		Columns: splitColumns(request.GetString("columns", "")),
		Header:  true,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to export table '%s' to '%s': %v", table, outputFile, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Successfully exported %d rows of table '%s' to '%s'", result.RecordCount, table, outputFile)), nil
}

func (tm *ToolManager) handleAppendRowTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if tm.config.ReadOnly {
		return mcp.NewToolResultError("Write operations are not allowed in read-only mode"), nil
	}

	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	valuesJSON, err := request.RequireString("values")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid values object: %v", err)), nil
	}

	if err := tm.query.AppendRow(table, values); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to append row to table '%s': %v", table, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Successfully appended row to table '%s'", table)), nil
}

// splitColumns parses a comma-separated column list argument
func splitColumns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cols = append(cols, trimmed)
		}
	}
	return cols
}

// resultSetText renders a result set as a readable text block
func resultSetText(header string, rs *store.ResultSet) *mcp.CallToolResult {
	var output strings.Builder
	output.WriteString(header)
	output.WriteString("\n")
	output.WriteString(strings.Join(rs.Columns, " | "))
	output.WriteString("\n")
	for _, row := range rs.Rows {
		output.WriteString(strings.Join(row, " | "))
		output.WriteString("\n")
	}
	return mcp.NewToolResultText(output.String())
}
