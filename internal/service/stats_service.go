package service

import (
	"csv-cli/internal/store"
)

// StatsService provides table and column statistics operations
type StatsService struct {
	store store.TableStore
}

// WorkspaceStats contains statistics across the whole workspace
type WorkspaceStats struct {
	Tables        []store.TableStats `json:"tables"`
	TableCount    int                `json:"table_count"`
	TotalRowCount int                `json:"total_row_count"`
	TotalFileSize int64              `json:"total_file_size"`
}

// NewStatsService creates a new StatsService instance
func NewStatsService(ts store.TableStore) *StatsService {
	return &StatsService{store: ts}
}

// GetTableStats retrieves statistics for a single table
func (s *StatsService) GetTableStats(name string) (*store.TableStats, error) {
	return s.store.TableStats(name)
}

// GetColumnStats retrieves statistics for a single column
func (s *StatsService) GetColumnStats(name, column string) (*store.ColumnStats, error) {
	return s.store.ColumnStats(name, column)
}

// GetWorkspaceStats aggregates statistics across all tables. Tables that
// fail to parse are skipped, matching how a partial workspace should still
// be inspectable.
func (s *StatsService) GetWorkspaceStats() (*WorkspaceStats, error) {
	tables, err := s.store.ListTables()
	if err != nil {
		return nil, err
	}

	stats := &WorkspaceStats{}
	for _, info := range tables {
		ts, err := s.store.TableStats(info.Name)
		if err != nil {
			continue
		}
		stats.Tables = append(stats.Tables, *ts)
		stats.TotalRowCount += ts.RowCount
		stats.TotalFileSize += ts.FileSize
	}
	stats.TableCount = len(stats.Tables)
	return stats, nil
}

// NumericColumnSummary mirrors the summary block of the csv_read tool:
// mean/min/max for every numeric column of the table.
type NumericColumnSummary struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// GetNumericSummaries returns per-column numeric summaries keyed by column name
func (s *StatsService) GetNumericSummaries(name string) (map[string]NumericColumnSummary, error) {
	tableStats, err := s.store.TableStats(name)
	if err != nil {
		return nil, err
	}
	summaries := make(map[string]NumericColumnSummary)
	for _, col := range tableStats.Columns {
		if !col.Type.IsNumeric() || col.Mean == nil || col.Min == nil || col.Max == nil {
			continue
		}
		summaries[col.Name] = NumericColumnSummary{
			Mean: *col.Mean,
			Min:  *col.Min,
			Max:  *col.Max,
		}
	}
	return summaries, nil
}
