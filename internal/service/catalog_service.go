package service

import (
	"csv-cli/internal/store"
)

// CatalogService provides table discovery and metadata operations
type CatalogService struct {
	store store.TableStore
}

// TableListing contains the tables of a workspace
type TableListing struct {
	Tables []store.TableInfo `json:"tables"`
	Count  int               `json:"count"`
	Dir    string            `json:"dir"`
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(ts store.TableStore) *CatalogService {
	return &CatalogService{store: ts}
}

// ListTables lists all CSV tables in the workspace
func (s *CatalogService) ListTables() (*TableListing, error) {
	tables, err := s.store.ListTables()
	if err != nil {
		return nil, err
	}
	return &TableListing{
		Tables: tables,
		Count:  len(tables),
		Dir:    s.store.Dir(),
	}, nil
}

// Describe returns metadata for a single table
func (s *CatalogService) Describe(name string) (*store.TableInfo, error) {
	return s.store.Describe(name)
}

// Reload drops any cached parse of the table and reparses the file
func (s *CatalogService) Reload(name string) error {
	return s.store.Reload(name)
}
