package service

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"unicode/utf8"

	"csv-cli/internal/store"
)

// ExportService provides data export operations
type ExportService struct {
	store store.TableStore
}

// ExportOptions contains options for export operations
type ExportOptions struct {
	Table     string   `json:"table"`               // Table to export
	Format    string   `json:"format"`              // "csv" or "json"
	Columns   []string `json:"columns,omitempty"`   // Optional column projection
	Separator string   `json:"separator,omitempty"` // CSV separator (default ",")
	Header    bool     `json:"header"`              // Include header row in CSV
	Pretty    bool     `json:"pretty"`              // Pretty-print JSON
	Limit     int      `json:"limit"`               // Maximum rows (0 = all)
}

// ExportResult contains the result of an export operation
type ExportResult struct {
	RecordCount int `json:"record_count"`
}

// NewExportService creates a new ExportService instance
func NewExportService(ts store.TableStore) *ExportService {
	return &ExportService{store: ts}
}

// Export writes table rows to w in the requested format
func (s *ExportService) Export(w io.Writer, opts ExportOptions) (*ExportResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		info, err := s.store.Describe(opts.Table)
		if err != nil {
			return nil, err
		}
		limit = info.RowCount
	}

	rs, err := s.store.Scan(opts.Table, store.ScanOptions{
		Limit:   limit,
		Columns: opts.Columns,
	})
	if err != nil {
		return nil, err
	}

	if opts.Format == "json" {
		return s.exportJSON(w, rs, opts.Pretty)
	}
	return s.exportCSV(w, rs, opts)
}

func (s *ExportService) exportCSV(w io.Writer, rs *store.ResultSet, opts ExportOptions) (*ExportResult, error) {
	writer := csv.NewWriter(w)
	if opts.Separator != "" {
		// The separator may be a multi-byte rune, so decode instead of
		// taking the first byte
		sep, _ := utf8.DecodeRuneInString(opts.Separator)
		writer.Comma = sep
	}
	defer writer.Flush()

	if opts.Header {
		if err := writer.Write(rs.Columns); err != nil {
			return nil, err
		}
	}

	for _, row := range rs.Rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return &ExportResult{RecordCount: len(rs.Rows)}, nil
}

func (s *ExportService) exportJSON(w io.Writer, rs *store.ResultSet, pretty bool) (*ExportResult, error) {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(rs.Records()); err != nil {
		return nil, err
	}
	return &ExportResult{RecordCount: len(rs.Rows)}, nil
}
