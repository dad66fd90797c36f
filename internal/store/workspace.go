package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"csv-cli/internal/util"

	"github.com/oliveagle/jsonpath"
)

const (
	// DefaultScanLimit bounds unpaginated scans
	DefaultScanLimit = 100
	// typeInferenceSampleRows bounds how many rows are examined per column
	typeInferenceSampleRows = 1000
	maxSampleValues         = 5
)

// table is a parsed CSV file held in the workspace cache.
type table struct {
	info    TableInfo
	header  []string
	rows    [][]string
	modTime time.Time
	size    int64
}

// Workspace is a TableStore backed by a directory of CSV files. Parsed
// tables are cached and invalidated by file modtime and size.
type Workspace struct {
	dir      string
	readOnly bool
	mu       sync.RWMutex
	cache    map[string]*table
	closed   bool
}

// Open opens a workspace directory in read-write mode.
func Open(dir string) (*Workspace, error) {
	return OpenWithOptions(dir, false)
}

// OpenReadOnly opens a workspace directory in read-only mode.
func OpenReadOnly(dir string) (*Workspace, error) {
	return OpenWithOptions(dir, true)
}

func OpenWithOptions(dir string, readOnly bool) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workspace directory '%s' does not exist", dir)
		}
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("workspace path '%s' is not a directory", dir)
	}
	return &Workspace{
		dir:      abs,
		readOnly: readOnly,
		cache:    make(map[string]*table),
	}, nil
}

func (w *Workspace) IsReadOnly() bool { return w.readOnly }

func (w *Workspace) Dir() string { return w.dir }

func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cache = nil
	w.closed = true
}

// resolvePath maps a table name to a CSV file path inside the workspace.
// Accepts "users", "users.csv" and relative sub-paths; rejects anything
// resolving outside the workspace directory.
func (w *Workspace) resolvePath(name string) (string, error) {
	if name == "" {
		return "", ErrTableNotFound
	}
	file := name
	if filepath.Ext(file) == "" {
		file += ".csv"
	}
	path := filepath.Join(w.dir, filepath.Clean(file))
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return path, nil
}

// tableName converts a workspace-relative file path to the table name.
func tableName(rel string) string {
	return strings.TrimSuffix(filepath.ToSlash(rel), ".csv")
}

func (w *Workspace) ListTables() ([]TableInfo, error) {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	w.mu.RUnlock()

	var infos []TableInfo
	err := filepath.Walk(w.dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		rel, err := filepath.Rel(w.dir, path)
		if err != nil {
			return err
		}
		t, err := w.load(tableName(rel))
		if err != nil {
			// Unparseable files are listed with zero columns rather than
			// failing the whole listing
			infos = append(infos, TableInfo{
				Name:    tableName(rel),
				Path:    path,
				ModTime: fi.ModTime(),
			})
			return nil
		}
		infos = append(infos, t.info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (w *Workspace) Describe(name string) (*TableInfo, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}
	info := t.info
	return &info, nil
}

// load returns the cached table, reparsing the file when it changed on disk.
func (w *Workspace) load(name string) (*table, error) {
	path, err := w.resolvePath(name)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: '%s' does not exist", ErrTableNotFound, name)
		}
		return nil, err
	}
	if fi.IsDir() || !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: '%s'", ErrNotAFile, name)
	}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	cached, ok := w.cache[path]
	w.mu.RUnlock()
	if ok && cached.modTime.Equal(fi.ModTime()) && cached.size == fi.Size() {
		return cached, nil
	}

	t, err := parseFile(name, path, fi)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrStoreClosed
	}
	w.cache[path] = t
	w.mu.Unlock()
	return t, nil
}

func parseFile(name, path string, fi os.FileInfo) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", name, err)
	}

	t := &table{
		modTime: fi.ModTime(),
		size:    fi.Size(),
	}
	if len(records) > 0 {
		t.header = records[0]
		t.rows = records[1:]
	}

	types := inferColumnTypes(t.header, t.rows)
	columns := make([]Column, len(t.header))
	for i, h := range t.header {
		columns[i] = Column{Name: h, Type: types[i]}
	}

	t.info = TableInfo{
		Name:        name,
		Path:        path,
		Columns:     columns,
		RowCount:    len(t.rows),
		ColumnCount: len(t.header),
		FileSize:    fi.Size(),
		ModTime:     fi.ModTime(),
	}
	return t, nil
}

// inferColumnTypes determines a column type from a bounded sample of rows.
// Mixed integer/float columns unify to float; a column with any other type
// mix degrades to string.
func inferColumnTypes(header []string, rows [][]string) []ColumnType {
	types := make([]ColumnType, len(header))
	sample := rows
	if len(sample) > typeInferenceSampleRows {
		sample = sample[:typeInferenceSampleRows]
	}

	for col := range header {
		counts := make(map[util.ValueType]int)
		nonEmpty := 0
		for _, row := range sample {
			vt := util.DetectValueType(cell(row, col))
			if vt == util.ValueTypeEmpty {
				continue
			}
			counts[vt]++
			nonEmpty++
		}

		if nonEmpty == 0 {
			types[col] = ColumnTypeEmpty
			continue
		}

		// Integer and float mix is still numeric
		if counts[util.ValueTypeInteger]+counts[util.ValueTypeFloat] == nonEmpty {
			if counts[util.ValueTypeFloat] > 0 {
				types[col] = ColumnTypeFloat
			} else {
				types[col] = ColumnTypeInteger
			}
			continue
		}

		var dominant util.ValueType
		for vt, n := range counts {
			if n == nonEmpty {
				dominant = vt
			}
		}
		switch dominant {
		case util.ValueTypeBoolean:
			types[col] = ColumnTypeBoolean
		case util.ValueTypeTimestamp:
			types[col] = ColumnTypeTimestamp
		case util.ValueTypeJSON:
			types[col] = ColumnTypeJSON
		default:
			types[col] = ColumnTypeString
		}
	}
	return types
}

// cell returns the value at column i, padding short rows with "".
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func (w *Workspace) Head(name string, n int) (*ResultSet, error) {
	if n <= 0 {
		n = 5
	}
	return w.Scan(name, ScanOptions{Limit: n})
}

func (w *Workspace) Tail(name string, n int) (*ResultSet, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 5
	}
	offset := len(t.rows) - n
	if offset < 0 {
		offset = 0
	}
	return w.Scan(name, ScanOptions{Offset: offset, Limit: n})
}

func (w *Workspace) Scan(name string, opts ScanOptions) (*ResultSet, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}

	cols, idx, err := projectColumns(t.header, opts.Columns)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(t.rows) {
		offset = len(t.rows)
	}

	end := offset + limit
	if end > len(t.rows) {
		end = len(t.rows)
	}

	rows := make([][]string, 0, end-offset)
	for _, row := range t.rows[offset:end] {
		rows = append(rows, projectRow(row, idx))
	}

	return &ResultSet{
		Columns:    cols,
		Rows:       rows,
		Count:      len(rows),
		HasMore:    end < len(t.rows),
		NextOffset: end,
	}, nil
}

// projectColumns resolves a column projection to header names and indexes.
func projectColumns(header, requested []string) ([]string, []int, error) {
	if len(requested) == 0 {
		idx := make([]int, len(header))
		for i := range header {
			idx[i] = i
		}
		return header, idx, nil
	}
	cols := make([]string, 0, len(requested))
	idx := make([]int, 0, len(requested))
	for _, want := range requested {
		found := -1
		for i, h := range header {
			if h == want {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, nil, fmt.Errorf("%w: '%s'", ErrColumnNotFound, want)
		}
		cols = append(cols, header[found])
		idx = append(idx, found)
	}
	return cols, idx, nil
}

func projectRow(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = cell(row, j)
	}
	return out
}

func (w *Workspace) Filter(name string, opts FilterOptions) (*ResultSet, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}

	colIdx := -1
	for i, h := range t.header {
		if h == opts.Column {
			colIdx = i
			break
		}
	}
	if colIdx < 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrColumnNotFound, opts.Column)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	var rows [][]string
	hasMore := false
	for _, row := range t.rows {
		ok, err := matchFilter(cell(row, colIdx), opts.Op, opts.Value)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(rows) >= limit {
			hasMore = true
			break
		}
		rows = append(rows, row)
	}

	return &ResultSet{
		Columns: t.header,
		Rows:    rows,
		Count:   len(rows),
		HasMore: hasMore,
	}, nil
}

// matchFilter applies the comparison operator. When both sides parse as
// numbers the comparison is numeric, otherwise lexicographic.
func matchFilter(cellValue string, op FilterOp, value string) (bool, error) {
	cellNum, cellOK := util.ParseNumeric(cellValue)
	valNum, valOK := util.ParseNumeric(value)
	numeric := cellOK && valOK

	switch op {
	case FilterOpEq, "":
		if numeric {
			return cellNum == valNum, nil
		}
		return cellValue == value, nil
	case FilterOpNe:
		if numeric {
			return cellNum != valNum, nil
		}
		return cellValue != value, nil
	case FilterOpGt:
		if numeric {
			return cellNum > valNum, nil
		}
		return cellValue > value, nil
	case FilterOpGe:
		if numeric {
			return cellNum >= valNum, nil
		}
		return cellValue >= value, nil
	case FilterOpLt:
		if numeric {
			return cellNum < valNum, nil
		}
		return cellValue < value, nil
	case FilterOpLe:
		if numeric {
			return cellNum <= valNum, nil
		}
		return cellValue <= value, nil
	case FilterOpContains:
		return strings.Contains(strings.ToLower(cellValue), strings.ToLower(value)), nil
	default:
		return false, fmt.Errorf("%w: '%s'", ErrInvalidOperator, op)
	}
}

func (w *Workspace) Search(name string, opts SearchOptions) (*ResultSet, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}

	_, idx, err := projectColumns(t.header, opts.Columns)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	var re *regexp.Regexp
	if opts.UseRegex {
		expr := opts.Pattern
		if !opts.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err = regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid search pattern: %w", err)
		}
	}

	needle := opts.Pattern
	if !opts.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	var rows [][]string
	hasMore := false
	for _, row := range t.rows {
		matched := false
		for _, j := range idx {
			v := cell(row, j)
			if re != nil {
				matched = re.MatchString(v)
			} else {
				if !opts.CaseSensitive {
					v = strings.ToLower(v)
				}
				matched = strings.Contains(v, needle)
			}
			if matched {
				break
			}
		}
		if !matched {
			continue
		}
		if len(rows) >= limit {
			hasMore = true
			break
		}
		rows = append(rows, row)
	}

	return &ResultSet{
		Columns: t.header,
		Rows:    rows,
		Count:   len(rows),
		HasMore: hasMore,
	}, nil
}

// QueryByPath evaluates a JSONPath expression against each row record and
// keeps rows where the expression resolves. With a non-empty value the
// resolved result must also equal it (numeric-aware comparison).
func (w *Workspace) QueryByPath(name, expr, value string, limit int) (*ResultSet, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}

	if expr == "" {
		return nil, fmt.Errorf("jsonpath expression is required")
	}
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	var rows [][]string
	hasMore := false
	for _, row := range t.rows {
		record := typedRecord(t, row)
		res, err := jsonpath.JsonPathLookup(record, expr)
		if err != nil || res == nil {
			continue
		}
		if value != "" && !looseEquals(res, value) {
			continue
		}
		if len(rows) >= limit {
			hasMore = true
			break
		}
		rows = append(rows, row)
	}

	return &ResultSet{
		Columns: t.header,
		Rows:    rows,
		Count:   len(rows),
		HasMore: hasMore,
	}, nil
}

// typedRecord converts a row to a map with JSON-typed values so JSONPath
// expressions can traverse into JSON cells and compare numbers.
func typedRecord(t *table, row []string) map[string]interface{} {
	record := make(map[string]interface{}, len(t.header))
	for i, h := range t.header {
		v := cell(row, i)
		switch t.info.Columns[i].Type {
		case ColumnTypeInteger, ColumnTypeFloat:
			if f, ok := util.ParseNumeric(v); ok {
				record[h] = f
				continue
			}
		case ColumnTypeBoolean:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes":
				record[h] = true
				continue
			case "false", "no":
				record[h] = false
				continue
			}
		case ColumnTypeJSON:
			var nested interface{}
			if json.Unmarshal([]byte(v), &nested) == nil {
				record[h] = nested
				continue
			}
		}
		record[h] = v
	}
	return record
}

// looseEquals compares a JSONPath result against a string input the way a
// user would expect: numerically when possible, then stringly.
func looseEquals(res interface{}, value string) bool {
	switch v := res.(type) {
	case string:
		return v == value
	case float64:
		if num, ok := util.ParseNumeric(value); ok {
			return v == num
		}
	case bool:
		return (v && value == "true") || (!v && value == "false")
	case nil:
		return value == "null"
	}
	return fmt.Sprintf("%v", res) == value
}

func (w *Workspace) ColumnStats(name, column string) (*ColumnStats, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}
	colIdx := -1
	for i, h := range t.header {
		if h == column {
			colIdx = i
			break
		}
	}
	if colIdx < 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrColumnNotFound, column)
	}
	stats := columnStats(t, colIdx)
	return &stats, nil
}

func columnStats(t *table, colIdx int) ColumnStats {
	stats := ColumnStats{
		Name: t.header[colIdx],
		Type: t.info.Columns[colIdx].Type,
	}

	distinct := make(map[string]struct{})
	var sum float64
	numCount := 0
	first := true

	for _, row := range t.rows {
		v := cell(row, colIdx)
		stats.Count++
		if strings.TrimSpace(v) == "" {
			stats.EmptyCount++
			continue
		}
		if _, seen := distinct[v]; !seen {
			distinct[v] = struct{}{}
			if len(stats.SampleValues) < maxSampleValues {
				stats.SampleValues = append(stats.SampleValues, v)
			}
		}
		if first || len(v) < stats.MinLength {
			stats.MinLength = len(v)
		}
		if len(v) > stats.MaxLength {
			stats.MaxLength = len(v)
		}
		first = false

		if f, ok := util.ParseNumeric(v); ok {
			if stats.Min == nil || f < *stats.Min {
				f := f
				stats.Min = &f
			}
			if stats.Max == nil || f > *stats.Max {
				f := f
				stats.Max = &f
			}
			sum += f
			numCount++
		}
	}

	stats.DistinctCount = len(distinct)
	if numCount > 0 && stats.Type.IsNumeric() {
		s := sum
		mean := sum / float64(numCount)
		stats.Sum = &s
		stats.Mean = &mean
	} else {
		// Non-numeric columns keep only min/max length and distinct counts
		stats.Min = nil
		stats.Max = nil
	}
	return stats
}

func (w *Workspace) TableStats(name string) (*TableStats, error) {
	t, err := w.load(name)
	if err != nil {
		return nil, err
	}
	if len(t.header) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrEmptyTable, name)
	}

	stats := &TableStats{
		Name:             t.info.Name,
		RowCount:         t.info.RowCount,
		ColumnCount:      t.info.ColumnCount,
		FileSize:         t.info.FileSize,
		ModTime:          t.info.ModTime,
		TypeDistribution: make(map[ColumnType]int),
		LastUpdated:      time.Now(),
	}
	for i := range t.header {
		stats.Columns = append(stats.Columns, columnStats(t, i))
		stats.TypeDistribution[t.info.Columns[i].Type]++
	}
	return stats, nil
}

func (w *Workspace) AppendRow(name string, values map[string]string) error {
	if w.readOnly {
		return ErrReadOnlyMode
	}
	t, err := w.load(name)
	if err != nil {
		return err
	}
	if len(t.header) == 0 {
		return fmt.Errorf("%w: '%s'", ErrEmptyTable, name)
	}

	for col := range values {
		if _, _, err := projectColumns(t.header, []string{col}); err != nil {
			return err
		}
	}

	row := make([]string, len(t.header))
	for i, h := range t.header {
		row[i] = values[h]
	}

	f, err := os.OpenFile(t.info.Path, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	// A file whose last line is unterminated would merge the new row into it
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, fi.Size()-1); err != nil {
			return err
		}
		if last[0] != '\n' {
			if _, err := f.WriteAt([]byte("\n"), fi.Size()); err != nil {
				return err
			}
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(row); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	// Drop the cached parse so the next read picks up the new row even if
	// the filesystem modtime granularity hides the change
	w.mu.Lock()
	delete(w.cache, t.info.Path)
	w.mu.Unlock()
	return nil
}

func (w *Workspace) Reload(name string) error {
	path, err := w.resolvePath(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	delete(w.cache, path)
	w.mu.Unlock()
	_, err = w.load(name)
	return err
}
