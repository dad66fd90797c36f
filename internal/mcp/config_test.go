package mcp

import (
	"testing"

	"csv-cli/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "csv-reader-server" {
		t.Errorf("Unexpected server name: %s", cfg.Name)
	}
	if cfg.Transport.Type != "stdio" {
		t.Errorf("Unexpected transport type: %s", cfg.Transport.Type)
	}
	if cfg.PreviewRows != 5 {
		t.Errorf("Unexpected preview rows: %d", cfg.PreviewRows)
	}
	if !cfg.EnableAllTools || !cfg.EnableResources || !cfg.EnablePrompts {
		t.Error("Expected all capabilities enabled by default")
	}
}

func TestIsToolEnabledAllToolsWithDisabledList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisabledTools = []string{"csv_export"}

	if !cfg.IsToolEnabled("csv_read") {
		t.Error("Expected csv_read to be enabled")
	}
	if cfg.IsToolEnabled("csv_export") {
		t.Error("Expected csv_export to be disabled")
	}
}

func TestIsToolEnabledWhitelist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAllTools = false
	cfg.EnabledTools = []string{"csv_read", "health_check"}

	if !cfg.IsToolEnabled("csv_read") || !cfg.IsToolEnabled("health_check") {
		t.Error("Expected whitelisted tools to be enabled")
	}
	if cfg.IsToolEnabled("csv_append_row") {
		t.Error("Expected non-whitelisted tool to be disabled")
	}
}

func TestNewConfigFromUnified(t *testing.T) {
	unified := config.DefaultConfig()
	unified.Workspace.Dir = "/data/csv"
	unified.Workspace.ReadOnly = true
	unified.Workspace.MaxPreviewRows = 0

	cfg := NewConfigFromUnified(unified)

	if cfg.WorkspaceDir != "/data/csv" {
		t.Errorf("Unexpected workspace dir: %s", cfg.WorkspaceDir)
	}
	if !cfg.ReadOnly {
		t.Error("Expected read-only mode")
	}
	// MCP server name overrides the application name
	if cfg.Name != "csv-reader-server" {
		t.Errorf("Unexpected server name: %s", cfg.Name)
	}
	if cfg.PreviewRows != 5 {
		t.Errorf("Expected preview rows to default to 5, got %d", cfg.PreviewRows)
	}
	// MCP server section disabled falls back to stdio transport
	if cfg.Transport.Type != "stdio" {
		t.Errorf("Unexpected transport type: %s", cfg.Transport.Type)
	}
}

func TestNewConfigFromUnifiedToolLists(t *testing.T) {
	unified := config.DefaultConfig()
	unified.MCPServer.Tools.Enabled = []string{"csv_read"}
	unified.MCPServer.Tools.Disabled = []string{"csv_export"}

	cfg := NewConfigFromUnified(unified)

	if cfg.EnableAllTools {
		t.Error("Expected whitelist mode when enabled list is set")
	}
	if !cfg.IsToolEnabled("csv_read") {
		t.Error("Expected csv_read to be enabled")
	}
	if cfg.IsToolEnabled("csv_head") {
		t.Error("Expected csv_head to be disabled in whitelist mode")
	}
}
