package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const usersCSV = `id,name,age,active,profile
1,Alice,30,true,"{""city"":""Berlin"",""tier"":1}"
2,Bob,25,false,"{""city"":""Paris"",""tier"":2}"
3,Carol,35,true,"{""city"":""Berlin"",""tier"":1}"
4,Dave,40,true,"{""city"":""Oslo"",""tier"":3}"
`

const pricesCSV = `sku,price
a,1.5
b,2.5
c,3.0
`

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users.csv"), []byte(usersCSV), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "prices.csv"), []byte(pricesCSV), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	ws, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open workspace: %v", err)
	}
	return ws
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("Expected error for missing directory")
	}
}

func TestOpenNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.csv")
	if err := os.WriteFile(file, []byte("a,b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(file); err == nil {
		t.Fatal("Expected error for non-directory path")
	}
}

func TestListTables(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	tables, err := ws.ListTables()
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("Expected 2 tables, got %d", len(tables))
	}
	// Sorted by name
	if tables[0].Name != "prices" || tables[1].Name != "users" {
		t.Errorf("Unexpected table order: %s, %s", tables[0].Name, tables[1].Name)
	}
	if tables[1].RowCount != 4 {
		t.Errorf("Expected 4 rows in users, got %d", tables[1].RowCount)
	}
}

func TestDescribeTypeInference(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	info, err := ws.Describe("users")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.ColumnCount != 5 {
		t.Fatalf("Expected 5 columns, got %d", info.ColumnCount)
	}

	wantTypes := map[string]ColumnType{
		"id":      ColumnTypeInteger,
		"name":    ColumnTypeString,
		"age":     ColumnTypeInteger,
		"active":  ColumnTypeBoolean,
		"profile": ColumnTypeJSON,
	}
	for _, col := range info.Columns {
		if wantTypes[col.Name] != col.Type {
			t.Errorf("Column %s: expected type %s, got %s", col.Name, wantTypes[col.Name], col.Type)
		}
	}
}

func TestDescribeMixedNumericColumn(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	info, err := ws.Describe("prices")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.Columns[1].Type != ColumnTypeFloat {
		t.Errorf("Expected price column to be Float, got %s", info.Columns[1].Type)
	}
}

func TestDescribeNotFound(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	_, err := ws.Describe("missing")
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestDescribeAcceptsExtension(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	info, err := ws.Describe("users.csv")
	if err != nil {
		t.Fatalf("Describe with extension failed: %v", err)
	}
	if info.RowCount != 4 {
		t.Errorf("Expected 4 rows, got %d", info.RowCount)
	}
}

func TestResolvePathEscape(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	_, err := ws.Describe("../users")
	if !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("Expected ErrOutsideRoot, got %v", err)
	}
}

func TestHeadAndTail(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	head, err := ws.Head("users", 2)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if head.Count != 2 || head.Rows[0][1] != "Alice" {
		t.Errorf("Unexpected head result: %+v", head.Rows)
	}
	if !head.HasMore {
		t.Error("Expected HasMore for partial head")
	}

	tail, err := ws.Tail("users", 2)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if tail.Count != 2 || tail.Rows[1][1] != "Dave" {
		t.Errorf("Unexpected tail result: %+v", tail.Rows)
	}
}

func TestScanPagination(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	rs, err := ws.Scan("users", ScanOptions{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if rs.Count != 2 || rs.Rows[0][1] != "Bob" {
		t.Errorf("Unexpected page: %+v", rs.Rows)
	}
	if !rs.HasMore || rs.NextOffset != 3 {
		t.Errorf("Expected HasMore with NextOffset 3, got %v/%d", rs.HasMore, rs.NextOffset)
	}

	rs, err = ws.Scan("users", ScanOptions{Offset: 3, Limit: 10})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if rs.Count != 1 || rs.HasMore {
		t.Errorf("Expected final page of 1 row, got %d (hasMore=%v)", rs.Count, rs.HasMore)
	}
}

func TestScanColumnProjection(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	rs, err := ws.Scan("users", ScanOptions{Columns: []string{"name", "age"}})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(rs.Columns) != 2 || rs.Columns[0] != "name" {
		t.Errorf("Unexpected projection: %v", rs.Columns)
	}
	if rs.Rows[0][0] != "Alice" || rs.Rows[0][1] != "30" {
		t.Errorf("Unexpected projected row: %v", rs.Rows[0])
	}

	_, err = ws.Scan("users", ScanOptions{Columns: []string{"nope"}})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound, got %v", err)
	}
}

func TestFilterNumericComparison(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	rs, err := ws.Filter("users", FilterOptions{Column: "age", Op: FilterOpGt, Value: "28"})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if rs.Count != 3 {
		t.Errorf("Expected 3 rows with age > 28, got %d", rs.Count)
	}

	rs, err = ws.Filter("users", FilterOptions{Column: "name", Op: FilterOpContains, Value: "ali"})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if rs.Count != 1 || rs.Rows[0][1] != "Alice" {
		t.Errorf("Unexpected contains result: %+v", rs.Rows)
	}
}

func TestFilterInvalidOperator(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	_, err := ws.Filter("users", FilterOptions{Column: "age", Op: "between", Value: "1"})
	if !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("Expected ErrInvalidOperator, got %v", err)
	}
}

func TestSearchSubstringAndRegex(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	rs, err := ws.Search("users", SearchOptions{Pattern: "berlin"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if rs.Count != 2 {
		t.Errorf("Expected 2 case-insensitive matches, got %d", rs.Count)
	}

	rs, err = ws.Search("users", SearchOptions{Pattern: "berlin", CaseSensitive: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if rs.Count != 0 {
		t.Errorf("Expected 0 case-sensitive matches, got %d", rs.Count)
	}

	rs, err = ws.Search("users", SearchOptions{Pattern: "^(Alice|Bob)$", UseRegex: true, Columns: []string{"name"}})
	if err != nil {
		t.Fatalf("Regex search failed: %v", err)
	}
	if rs.Count != 2 {
		t.Errorf("Expected 2 regex matches, got %d", rs.Count)
	}

	_, err = ws.Search("users", SearchOptions{Pattern: "([", UseRegex: true})
	if err == nil {
		t.Error("Expected error for invalid regex")
	}
}

func TestQueryByPath(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	// Top-level column match, numeric-aware
	rs, err := ws.QueryByPath("users", "age", "30", 0)
	if err != nil {
		t.Fatalf("QueryByPath failed: %v", err)
	}
	if rs.Count != 1 || rs.Rows[0][1] != "Alice" {
		t.Errorf("Unexpected result: %+v", rs.Rows)
	}

	// Nested JSON cell traversal
	rs, err = ws.QueryByPath("users", "$.profile.city", "Berlin", 0)
	if err != nil {
		t.Fatalf("QueryByPath failed: %v", err)
	}
	if rs.Count != 2 {
		t.Errorf("Expected 2 rows for Berlin, got %d", rs.Count)
	}

	// No value filter: keep every row where the path resolves
	rs, err = ws.QueryByPath("users", "$.profile.tier", "", 0)
	if err != nil {
		t.Fatalf("QueryByPath failed: %v", err)
	}
	if rs.Count != 4 {
		t.Errorf("Expected 4 rows, got %d", rs.Count)
	}
}

func TestColumnStats(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	stats, err := ws.ColumnStats("users", "age")
	if err != nil {
		t.Fatalf("ColumnStats failed: %v", err)
	}
	if stats.Count != 4 || stats.EmptyCount != 0 || stats.DistinctCount != 4 {
		t.Errorf("Unexpected counts: %+v", stats)
	}
	if stats.Mean == nil || *stats.Mean != 32.5 {
		t.Errorf("Expected mean 32.5, got %v", stats.Mean)
	}
	if stats.Min == nil || *stats.Min != 25 || stats.Max == nil || *stats.Max != 40 {
		t.Errorf("Unexpected min/max: %v/%v", stats.Min, stats.Max)
	}

	_, err = ws.ColumnStats("users", "nope")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound, got %v", err)
	}
}

func TestColumnStatsNonNumeric(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	stats, err := ws.ColumnStats("users", "name")
	if err != nil {
		t.Fatalf("ColumnStats failed: %v", err)
	}
	if stats.Mean != nil || stats.Min != nil {
		t.Errorf("Expected no numeric stats for string column: %+v", stats)
	}
	if stats.MinLength != 3 || stats.MaxLength != 5 {
		t.Errorf("Unexpected length stats: %d/%d", stats.MinLength, stats.MaxLength)
	}
}

func TestTableStats(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	stats, err := ws.TableStats("users")
	if err != nil {
		t.Fatalf("TableStats failed: %v", err)
	}
	if stats.RowCount != 4 || stats.ColumnCount != 5 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TypeDistribution[ColumnTypeInteger] != 2 {
		t.Errorf("Expected 2 integer columns, got %d", stats.TypeDistribution[ColumnTypeInteger])
	}
}

func TestTableStatsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.csv"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	ws, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	_, err = ws.TableStats("empty")
	if !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", err)
	}
}

func TestAppendRow(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	err := ws.AppendRow("users", map[string]string{
		"id": "5", "name": "Eve", "age": "28", "active": "false",
	})
	if err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}

	info, err := ws.Describe("users")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.RowCount != 5 {
		t.Errorf("Expected 5 rows after append, got %d", info.RowCount)
	}

	tail, err := ws.Tail("users", 1)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if tail.Rows[0][1] != "Eve" {
		t.Errorf("Expected appended row, got %v", tail.Rows[0])
	}
	// Missing column defaults to empty
	if tail.Rows[0][4] != "" {
		t.Errorf("Expected empty profile cell, got %q", tail.Rows[0][4])
	}
}

func TestAppendRowNoTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "people.csv"), []byte("id,name\n1,Alice"), 0644); err != nil {
		t.Fatal(err)
	}
	ws, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	err = ws.AppendRow("people", map[string]string{"id": "2", "name": "Bob"})
	if err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}

	info, err := ws.Describe("people")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.RowCount != 2 {
		t.Fatalf("Expected 2 rows after append, got %d", info.RowCount)
	}

	rs, err := ws.Head("people", 10)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if rs.Rows[0][1] != "Alice" || rs.Rows[1][1] != "Bob" {
		t.Errorf("Appending must not merge into the unterminated last row: %+v", rs.Rows)
	}
}

func TestAppendRowUnknownColumn(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	err := ws.AppendRow("users", map[string]string{"nope": "x"})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound, got %v", err)
	}
}

func TestAppendRowReadOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users.csv"), []byte(usersCSV), 0644); err != nil {
		t.Fatal(err)
	}
	ws, err := OpenReadOnly(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	if !ws.IsReadOnly() {
		t.Error("Expected read-only workspace")
	}
	err = ws.AppendRow("users", map[string]string{"id": "9"})
	if !errors.Is(err, ErrReadOnlyMode) {
		t.Errorf("Expected ErrReadOnlyMode, got %v", err)
	}
}

func TestReload(t *testing.T) {
	ws := newTestWorkspace(t)
	defer ws.Close()

	if _, err := ws.Describe("users"); err != nil {
		t.Fatal(err)
	}

	// Rewrite the file behind the cache
	path := filepath.Join(ws.Dir(), "users.csv")
	if err := os.WriteFile(path, []byte("id,name\n1,Zed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Reload("users"); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	info, err := ws.Describe("users")
	if err != nil {
		t.Fatal(err)
	}
	if info.RowCount != 1 || info.ColumnCount != 2 {
		t.Errorf("Expected reloaded table, got %+v", info)
	}
}

func TestClosedStore(t *testing.T) {
	ws := newTestWorkspace(t)
	ws.Close()

	if _, err := ws.ListTables(); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
}

func TestRaggedRowsArePadded(t *testing.T) {
	dir := t.TempDir()
	csv := "a,b,c\n1,2\n3,4,5,6\n"
	if err := os.WriteFile(filepath.Join(dir, "ragged.csv"), []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	ws, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	rs, err := ws.Head("ragged", 10)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	records := rs.Records()
	if records[0]["c"] != "" {
		t.Errorf("Expected short row padded with empty string, got %q", records[0]["c"])
	}
}
