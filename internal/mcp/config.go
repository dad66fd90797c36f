package mcp

import (
	"time"

	"csv-cli/internal/config"
)

// Config holds the configuration for the MCP server
type Config struct {
	// Server information
	Name        string
	Version     string
	Description string

	// Workspace configuration
	WorkspaceDir string
	ReadOnly     bool

	// Transport configuration
	Transport TransportConfig

	// Tool configuration
	EnableAllTools bool
	EnabledTools   []string
	DisabledTools  []string

	// Resource and prompt configuration
	EnableResources bool
	EnablePrompts   bool

	// Preview size used by csv_read and table resources
	PreviewRows int

	// Logging configuration
	LogLevel string
}

// TransportConfig defines the transport layer configuration
type TransportConfig struct {
	Type       string // stdio, tcp, unix
	Host       string
	Port       int
	SocketPath string
	Timeout    time.Duration
}

// NewConfigFromUnified creates a server Config from the unified config
func NewConfigFromUnified(cfg *config.Config) *Config {
	serverConfig := &Config{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Description:     "MCP server for CSV workspace analysis",
		WorkspaceDir:    cfg.Workspace.Dir,
		ReadOnly:        cfg.Workspace.ReadOnly,
		EnableAllTools:  true,
		EnableResources: true,
		EnablePrompts:   true,
		PreviewRows:     cfg.Workspace.MaxPreviewRows,
		LogLevel:        cfg.LogLevel,
	}
	if serverConfig.PreviewRows <= 0 {
		serverConfig.PreviewRows = 5
	}

	if cfg.MCPServer != nil {
		if cfg.MCPServer.Name != "" {
			serverConfig.Name = cfg.MCPServer.Name
		}
		if cfg.MCPServer.Description != "" {
			serverConfig.Description = cfg.MCPServer.Description
		}
		if len(cfg.MCPServer.Tools.Enabled) > 0 {
			serverConfig.EnableAllTools = false
			serverConfig.EnabledTools = cfg.MCPServer.Tools.Enabled
		}
		serverConfig.DisabledTools = cfg.MCPServer.Tools.Disabled
	}

	if cfg.MCPServer != nil && cfg.MCPServer.Enabled {
		serverConfig.Transport = TransportConfig{
			Type:       cfg.MCPServer.Transport.Type,
			Host:       cfg.MCPServer.Transport.Host,
			Port:       cfg.MCPServer.Transport.Port,
			SocketPath: cfg.MCPServer.Transport.SocketPath,
			Timeout:    30 * time.Second,
		}
	} else {
		serverConfig.Transport = TransportConfig{
			Type:    "stdio",
			Timeout: 30 * time.Second,
		}
	}

	return serverConfig
}

// DefaultConfig returns a default server configuration for testing
func DefaultConfig() *Config {
	return &Config{
		Name:         "csv-reader-server",
		Version:      "1.0.0",
		Description:  "MCP server for CSV workspace analysis",
		WorkspaceDir: "./data",
		ReadOnly:     false,
		Transport: TransportConfig{
			Type:    "stdio",
			Timeout: 30 * time.Second,
		},
		EnableAllTools:  true,
		EnableResources: true,
		EnablePrompts:   true,
		PreviewRows:     5,
		LogLevel:        "info",
	}
}

// IsToolEnabled checks if a tool is enabled based on configuration
func (c *Config) IsToolEnabled(toolName string) bool {
	if c.EnableAllTools {
		for _, disabled := range c.DisabledTools {
			if disabled == toolName {
				return false
			}
		}
		return true
	}

	for _, enabled := range c.EnabledTools {
		if enabled == toolName {
			return true
		}
	}

	return false
}
