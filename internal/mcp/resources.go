package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"csv-cli/internal/service"
	"csv-cli/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ResourceManager manages MCP resources for CSV workspace operations
type ResourceManager struct {
	store   store.TableStore
	config  *Config
	catalog *service.CatalogService
	query   *service.QueryService
	stats   *service.StatsService
}

// NewResourceManager creates a new resource manager
func NewResourceManager(ts store.TableStore, config *Config) *ResourceManager {
	return &ResourceManager{
		store:   ts,
		config:  config,
		catalog: service.NewCatalogService(ts),
		query:   service.NewQueryService(ts),
		stats:   service.NewStatsService(ts),
	}
}

// RegisterResources registers all available resources with the MCP server
func (rm *ResourceManager) RegisterResources(s *server.MCPServer) error {
	if !rm.config.EnableResources {
		return nil
	}

	// Tables resource - lists all CSV tables in the workspace
	tablesResource := mcp.NewResource(
		"csv://tables",
		"CSV Tables",
		mcp.WithResourceDescription("List of all CSV tables in the workspace"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(tablesResource, rm.handleTablesResource)

	// Table Data resource - preview rows from a specific table
	tableDataResource := mcp.NewResource(
		"csv://table/{name}",
		"CSV Table Data",
		mcp.WithResourceDescription("Preview rows from a specific CSV table"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(tableDataResource, rm.handleTableDataResource)

	// Table Stats resource
	tableStatsResource := mcp.NewResource(
		"csv://table/{name}/stats",
		"CSV Table Statistics",
		mcp.WithResourceDescription("Per-column statistics for a specific CSV table"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(tableStatsResource, rm.handleTableStatsResource)

	// Greeting resource
	greetingResource := mcp.NewResource(
		"greeting://{name}",
		"Greeting",
		mcp.WithResourceDescription("Get a personalized greeting"),
		mcp.WithMIMEType("text/plain"),
	)
	s.AddResource(greetingResource, rm.handleGreetingResource)

	return nil
}

// Resource handlers

func (rm *ResourceManager) handleTablesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	listing, err := rm.catalog.ListTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	response := map[string]interface{}{
		"tables":    listing.Tables,
		"count":     listing.Count,
		"dir":       listing.Dir,
		"read_only": rm.store.IsReadOnly(),
	}

	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal table list: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func (rm *ResourceManager) handleTableDataResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := rm.extractPathParam(req.Params.URI, "name")
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	info, err := rm.catalog.Describe(name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table '%s': %w", name, err)
	}

	previewRows := rm.config.PreviewRows
	if previewRows <= 0 {
		previewRows = 5
	}
	preview, err := rm.query.Head(name, previewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to read table '%s': %w", name, err)
	}

	response := map[string]interface{}{
		"table":     info,
		"preview":   preview.Records(),
		"read_only": rm.store.IsReadOnly(),
	}

	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal table data: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func (rm *ResourceManager) handleTableStatsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := rm.extractPathParam(req.Params.URI, "name")
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	tableStats, err := rm.stats.GetTableStats(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for table '%s': %w", name, err)
	}

	jsonData, err := json.Marshal(tableStats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal table stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func (rm *ResourceManager) handleGreetingResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := rm.extractPathParam(req.Params.URI, "greeting_name")
	if name == "" {
		return nil, fmt.Errorf("greeting name is required")
	}

	decodedName, err := url.QueryUnescape(name)
	if err != nil {
		return nil, fmt.Errorf("failed to decode name: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Hello %s!", decodedName),
		},
	}, nil
}

// Helper method to extract path parameters from URI
func (rm *ResourceManager) extractPathParam(uri, paramName string) string {
	parts := strings.Split(uri, "/")

	switch paramName {
	case "name":
		// For csv://table/{name} and csv://table/{name}/stats. Table names
		// may span several path segments (sub-directory tables) and carry
		// URL-escaped characters.
		if len(parts) >= 4 && parts[0] == "csv:" && parts[2] == "table" {
			segments := parts[3:]
			if len(segments) > 1 && segments[len(segments)-1] == "stats" {
				segments = segments[:len(segments)-1]
			}
			name, err := url.QueryUnescape(strings.Join(segments, "/"))
			if err != nil {
				return ""
			}
			return name
		}
	case "greeting_name":
		// For greeting://{name}
		if len(parts) >= 3 && parts[0] == "greeting:" {
			return parts[2]
		}
	}

	return ""
}
