package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"csv-cli/internal/config"
	csvmcp "csv-cli/internal/mcp"
	"csv-cli/internal/store"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	// Command line flags
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		dir        = flag.String("dir", "", "Path to CSV workspace directory")
		readOnly   = flag.Bool("readonly", false, "Open workspace in read-only mode")
		transport  = flag.String("transport", "stdio", "Transport type (stdio, tcp, unix)")
		host       = flag.String("host", "localhost", "Host for TCP transport")
		port       = flag.Int("port", 8080, "Port for TCP transport")
		socketPath = flag.String("socket", "/tmp/csv-mcp.sock", "Unix socket path")
	)
	flag.Parse()

	// Load or create default configuration
	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Override config with command line flags
	if *dir != "" {
		cfg.Workspace.Dir = *dir
	}
	if *readOnly {
		cfg.Workspace.ReadOnly = true
	}
	if *transport != "stdio" && cfg.MCPServer != nil {
		cfg.MCPServer.Transport.Type = *transport
		cfg.MCPServer.Transport.Host = *host
		cfg.MCPServer.Transport.Port = *port
		cfg.MCPServer.Transport.SocketPath = *socketPath
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Workspace.Dir == "" {
		log.Fatal("Workspace directory is required")
	}

	// Convert to server config
	serverConfig := csvmcp.NewConfigFromUnified(cfg)

	// Open workspace
	var ts store.TableStore
	if cfg.Workspace.ReadOnly {
		ts, err = store.OpenReadOnly(cfg.Workspace.Dir)
	} else {
		ts, err = store.Open(cfg.Workspace.Dir)
	}
	if err != nil {
		log.Fatalf("Failed to open workspace: %v", err)
	}
	defer ts.Close()

	log.Printf("Opened CSV workspace at: %s (read-only: %v)", ts.Dir(), cfg.Workspace.ReadOnly)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		serverConfig.Name,
		serverConfig.Version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)

	// Create and register tool manager
	toolManager := csvmcp.NewToolManager(ts, serverConfig)
	if err := toolManager.RegisterTools(mcpServer); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	// Create and register prompt manager
	promptManager := csvmcp.NewPromptManager(ts, serverConfig)
	if err := promptManager.RegisterPrompts(mcpServer); err != nil {
		log.Fatalf("Failed to register prompts: %v", err)
	}

	// Create and register resource manager
	resourceManager := csvmcp.NewResourceManager(ts, serverConfig)
	if err := resourceManager.RegisterResources(mcpServer); err != nil {
		log.Fatalf("Failed to register resources: %v", err)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		// For stdio mode, the server handles shutdown internally
	}()

	log.Printf("Starting MCP server with %s transport...", serverConfig.Transport.Type)

	switch serverConfig.Transport.Type {
	case "stdio":
		if err := server.ServeStdio(mcpServer); err != nil {
			log.Fatalf("STDIO server error: %v", err)
		}
	case "tcp", "unix":
		// Other transport types fall back to stdio for now
		log.Printf("Transport type %s not fully implemented, falling back to stdio", serverConfig.Transport.Type)
		if err := server.ServeStdio(mcpServer); err != nil {
			log.Fatalf("STDIO server error: %v", err)
		}
	default:
		log.Fatalf("Unknown transport type: %s", serverConfig.Transport.Type)
	}

	log.Println("MCP server shutdown complete")
}
