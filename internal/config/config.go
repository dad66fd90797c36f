package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Application information
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	// Workspace configuration
	Workspace WorkspaceConfig `yaml:"workspace" json:"workspace"`

	// MCP Server configuration (this tool as MCP server)
	MCPServer *MCPServerConfig `yaml:"mcp_server,omitempty" json:"mcp_server,omitempty"`

	// Natural-language agent configuration
	Agent *AgentConfig `yaml:"agent,omitempty" json:"agent,omitempty"`

	// Logging configuration
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// WorkspaceConfig holds CSV workspace configuration
type WorkspaceConfig struct {
	Dir            string `yaml:"dir" json:"dir"`
	ReadOnly       bool   `yaml:"read_only" json:"read_only"`
	MaxPreviewRows int    `yaml:"max_preview_rows" json:"max_preview_rows"`
	MaxScanLimit   int    `yaml:"max_scan_limit" json:"max_scan_limit"`
}

// MCPServerConfig holds MCP server configuration
type MCPServerConfig struct {
	Enabled     bool            `yaml:"enabled" json:"enabled"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Transport   TransportConfig `yaml:"transport" json:"transport"`
	Tools       ToolsConfig     `yaml:"tools,omitempty" json:"tools,omitempty"`
}

// TransportConfig holds transport configuration for the MCP server
type TransportConfig struct {
	Type       string `yaml:"type" json:"type"`
	Host       string `yaml:"host,omitempty" json:"host,omitempty"`
	Port       int    `yaml:"port,omitempty" json:"port,omitempty"`
	SocketPath string `yaml:"socket_path,omitempty" json:"socket_path,omitempty"`
}

// ToolsConfig holds tool enable/disable lists for the MCP server
type ToolsConfig struct {
	Enabled  []string `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Disabled []string `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// AgentConfig holds natural-language agent configuration
type AgentConfig struct {
	Enabled        bool                `yaml:"enabled" json:"enabled"`
	Provider       string              `yaml:"provider" json:"provider"` // openai, ollama, googleai
	Model          string              `yaml:"model" json:"model"`
	APIKeyEnv      string              `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
	BaseURL        string              `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	TimeoutSeconds int                 `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxIterations  int                 `yaml:"max_iterations" json:"max_iterations"`
	EnableMemory   bool                `yaml:"enable_memory" json:"enable_memory"`
	MemorySize     int                 `yaml:"memory_size" json:"memory_size"`
	CacheSize      int                 `yaml:"cache_size" json:"cache_size"`
	Security       AgentSecurityConfig `yaml:"security" json:"security"`
}

// AgentSecurityConfig holds security policies for the agent
type AgentSecurityConfig struct {
	ReadOnlyMode       bool     `yaml:"read_only_mode" json:"read_only_mode"`
	MaxQueryComplexity int      `yaml:"max_query_complexity" json:"max_query_complexity"`
	AllowedOperations  []string `yaml:"allowed_operations" json:"allowed_operations"`
}

// Timeout returns the agent query timeout as a duration
func (a *AgentConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:    "csv-cli",
		Version: "1.0.0",
		Workspace: WorkspaceConfig{
			Dir:            "./data",
			ReadOnly:       false,
			MaxPreviewRows: 5,
			MaxScanLimit:   1000,
		},
		MCPServer: &MCPServerConfig{
			Enabled: false,
			Name:    "csv-reader-server",
			Transport: TransportConfig{
				Type: "stdio",
			},
		},
		Agent: &AgentConfig{
			Enabled:        false,
			Provider:       "openai",
			Model:          "gpt-4",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 60,
			MaxIterations:  5,
			EnableMemory:   true,
			MemorySize:     50,
			CacheSize:      100,
			Security: AgentSecurityConfig{
				ReadOnlyMode:       true,
				MaxQueryComplexity: 50,
				AllowedOperations: []string{
					"list", "describe", "head", "query", "filter", "search", "stats",
				},
			},
		},
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from a file, merged over defaults
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	ext := filepath.Ext(configPath)

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, configPath string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	ext := filepath.Ext(configPath)
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML config: %w", err)
		}
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if c.Version == "" {
		return fmt.Errorf("application version is required")
	}
	if c.Workspace.Dir == "" {
		return fmt.Errorf("workspace directory is required")
	}
	if c.Workspace.MaxPreviewRows < 0 {
		return fmt.Errorf("max_preview_rows must not be negative")
	}

	if c.MCPServer != nil && c.MCPServer.Enabled {
		if c.MCPServer.Name == "" {
			return fmt.Errorf("MCP server name is required")
		}
		switch c.MCPServer.Transport.Type {
		case "", "stdio":
		case "tcp", "unix":
		default:
			return fmt.Errorf("unsupported transport type: %s", c.MCPServer.Transport.Type)
		}
	}

	if c.Agent != nil && c.Agent.Enabled {
		switch c.Agent.Provider {
		case "openai", "ollama", "googleai":
		default:
			return fmt.Errorf("unsupported agent provider: %s", c.Agent.Provider)
		}
		if c.Agent.Model == "" {
			return fmt.Errorf("agent model is required")
		}
	}

	return nil
}
