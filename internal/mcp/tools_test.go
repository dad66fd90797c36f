package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"csv-cli/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// mockTableStore implements a mock workspace for testing
type mockTableStore struct {
	tables   map[string]*mockTable
	readOnly bool
	listErr  error
}

type mockTable struct {
	columns []store.Column
	rows    [][]string
}

func newMockTableStore() *mockTableStore {
	return &mockTableStore{
		tables: map[string]*mockTable{
			"users": {
				columns: []store.Column{
					{Name: "id", Type: store.ColumnTypeInteger},
					{Name: "name", Type: store.ColumnTypeString},
					{Name: "age", Type: store.ColumnTypeInteger},
				},
				rows: [][]string{
					{"1", "Alice", "30"},
					{"2", "Bob", "25"},
				},
			},
		},
	}
}

func (m *mockTableStore) columnNames(t *mockTable) []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

func (m *mockTableStore) info(name string, t *mockTable) store.TableInfo {
	return store.TableInfo{
		Name:        name,
		Columns:     t.columns,
		RowCount:    len(t.rows),
		ColumnCount: len(t.columns),
	}
}

func (m *mockTableStore) ListTables() ([]store.TableInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var infos []store.TableInfo
	for name, t := range m.tables {
		infos = append(infos, m.info(name, t))
	}
	return infos, nil
}

func (m *mockTableStore) Describe(name string) (*store.TableInfo, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, store.ErrTableNotFound
	}
	info := m.info(name, t)
	return &info, nil
}

func (m *mockTableStore) Head(name string, n int) (*store.ResultSet, error) {
	return m.Scan(name, store.ScanOptions{Limit: n})
}

func (m *mockTableStore) Tail(name string, n int) (*store.ResultSet, error) {
	return m.Scan(name, store.ScanOptions{Limit: n})
}

func (m *mockTableStore) Scan(name string, opts store.ScanOptions) (*store.ResultSet, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, store.ErrTableNotFound
	}
	limit := opts.Limit
	if limit <= 0 || limit > len(t.rows) {
		limit = len(t.rows)
	}
	rows := t.rows[:limit]
	return &store.ResultSet{
		Columns: m.columnNames(t),
		Rows:    rows,
		Count:   len(rows),
	}, nil
}

func (m *mockTableStore) Filter(name string, opts store.FilterOptions) (*store.ResultSet, error) {
	return m.Scan(name, store.ScanOptions{})
}

func (m *mockTableStore) Search(name string, opts store.SearchOptions) (*store.ResultSet, error) {
	return m.Scan(name, store.ScanOptions{})
}

func (m *mockTableStore) QueryByPath(name, expr, value string, limit int) (*store.ResultSet, error) {
	return m.Scan(name, store.ScanOptions{})
}

func (m *mockTableStore) ColumnStats(name, column string) (*store.ColumnStats, error) {
	if _, ok := m.tables[name]; !ok {
		return nil, store.ErrTableNotFound
	}
	return &store.ColumnStats{Name: column}, nil
}

func (m *mockTableStore) TableStats(name string) (*store.TableStats, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, store.ErrTableNotFound
	}
	mean, min, max := 27.5, 25.0, 30.0
	return &store.TableStats{
		Name:     name,
		RowCount: len(t.rows),
		Columns: []store.ColumnStats{
			{Name: "id", Type: store.ColumnTypeInteger},
			{Name: "name", Type: store.ColumnTypeString},
			{Name: "age", Type: store.ColumnTypeInteger, Mean: &mean, Min: &min, Max: &max},
		},
	}, nil
}

func (m *mockTableStore) AppendRow(name string, values map[string]string) error {
	if m.readOnly {
		return store.ErrReadOnlyMode
	}
	t, ok := m.tables[name]
	if !ok {
		return store.ErrTableNotFound
	}
	row := make([]string, len(t.columns))
	for i, c := range t.columns {
		row[i] = values[c.Name]
	}
	t.rows = append(t.rows, row)
	return nil
}

func (m *mockTableStore) Reload(name string) error { return nil }
func (m *mockTableStore) IsReadOnly() bool         { return m.readOnly }
func (m *mockTableStore) Dir() string              { return "/workspace" }
func (m *mockTableStore) Close()                   {}

func newToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestNewToolManager(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())
	if tm == nil {
		t.Fatal("Expected tool manager")
	}
}

func TestToolManagerRegisterTools(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))

	if err := tm.RegisterTools(s); err != nil {
		t.Fatalf("RegisterTools failed: %v", err)
	}
}

func TestHealthCheckTool(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())

	result, err := tm.handleHealthCheckTool(context.Background(), newToolRequest(nil))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := resultText(t, result); got != "Health is Ok!" {
		t.Errorf("Unexpected health check response: %q", got)
	}
}

func TestReadToolEnvelope(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())

	result, err := tm.handleReadTool(context.Background(), newToolRequest(map[string]any{
		"file_path": "users",
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(t, result)), &envelope); err != nil {
		t.Fatalf("Invalid JSON envelope: %v", err)
	}

	if envelope["success"] != true {
		t.Errorf("Expected success=true, got %v", envelope["success"])
	}

	fileInfo := envelope["file_info"].(map[string]interface{})
	if fileInfo["path"] != "users" {
		t.Errorf("Unexpected path: %v", fileInfo["path"])
	}
	if fileInfo["column_count"].(float64) != 3 || fileInfo["row_count"].(float64) != 2 {
		t.Errorf("Unexpected counts: %v", fileInfo)
	}

	preview := envelope["preview"].(map[string]interface{})
	rows := preview["first_5_rows"].([]interface{})
	if len(rows) != 2 {
		t.Fatalf("Expected 2 preview rows, got %d", len(rows))
	}
	first := rows[0].(map[string]interface{})
	// Numeric columns serialize as numbers, not strings
	if first["age"].(float64) != 30 {
		t.Errorf("Expected numeric age 30, got %v (%T)", first["age"], first["age"])
	}
	if first["name"] != "Alice" {
		t.Errorf("Expected name Alice, got %v", first["name"])
	}

	stats := envelope["statistics"].(map[string]interface{})
	numeric := stats["numeric_columns"].(map[string]interface{})
	age := numeric["age"].(map[string]interface{})
	if age["mean"].(float64) != 27.5 {
		t.Errorf("Expected mean 27.5, got %v", age["mean"])
	}
}

func TestReadToolMissingFileEnvelope(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())

	result, err := tm.handleReadTool(context.Background(), newToolRequest(map[string]any{
		"file_path": "missing",
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(t, result)), &envelope); err != nil {
		t.Fatalf("Invalid JSON envelope: %v", err)
	}
	if envelope["success"] != false {
		t.Errorf("Expected success=false, got %v", envelope["success"])
	}
	if envelope["error"] != "File 'missing' does not exist" {
		t.Errorf("Unexpected error message: %v", envelope["error"])
	}
}

func TestListTablesTool(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())

	result, err := tm.handleListTablesTool(context.Background(), newToolRequest(nil))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "users (2 rows, 3 columns)") {
		t.Errorf("Unexpected listing: %q", text)
	}
}

func TestHeadTool(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())

	result, err := tm.handleHeadTool(context.Background(), newToolRequest(map[string]any{
		"table": "users",
		"n":     float64(1),
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Alice") {
		t.Errorf("Expected first row in output: %q", text)
	}
}

func TestHeadToolMissingTable(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())

	result, err := tm.handleHeadTool(context.Background(), newToolRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Expected no transport error, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for missing table argument")
	}
}

func TestAppendRowTool(t *testing.T) {
	ms := newMockTableStore()
	tm := NewToolManager(ms, DefaultConfig())

	result, err := tm.handleAppendRowTool(context.Background(), newToolRequest(map[string]any{
		"table":  "users",
		"values": `{"id":"3","name":"Carol","age":"35"}`,
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected error result: %s", resultText(t, result))
	}
	if len(ms.tables["users"].rows) != 3 {
		t.Errorf("Expected row to be appended, got %d rows", len(ms.tables["users"].rows))
	}
}

func TestAppendRowToolReadOnly(t *testing.T) {
	ms := newMockTableStore()
	ms.readOnly = true
	cfg := DefaultConfig()
	cfg.ReadOnly = true
	tm := NewToolManager(ms, cfg)

	result, err := tm.handleAppendRowTool(context.Background(), newToolRequest(map[string]any{
		"table":  "users",
		"values": `{"id":"3"}`,
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result in read-only mode")
	}
}

func TestExportToolRejectsUnknownFormat(t *testing.T) {
	tm := NewToolManager(newMockTableStore(), DefaultConfig())

	result, err := tm.handleExportTool(context.Background(), newToolRequest(map[string]any{
		"table":       "users",
		"output_file": t.TempDir() + "/out.xml",
		"format":      "xml",
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for unsupported format")
	}
}

func TestSplitColumns(t *testing.T) {
	if cols := splitColumns(""); cols != nil {
		t.Errorf("Expected nil for empty input, got %v", cols)
	}
	cols := splitColumns("a, b ,c,")
	if len(cols) != 3 || cols[1] != "b" {
		t.Errorf("Unexpected columns: %v", cols)
	}
}
