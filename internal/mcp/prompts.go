package mcp

import (
	"context"
	"fmt"
	"strings"

	"csv-cli/internal/service"
	"csv-cli/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// PromptManager manages MCP prompts for CSV workspace operations
type PromptManager struct {
	store   store.TableStore
	config  *Config
	catalog *service.CatalogService
	stats   *service.StatsService
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(ts store.TableStore, config *Config) *PromptManager {
	return &PromptManager{
		store:   ts,
		config:  config,
		catalog: service.NewCatalogService(ts),
		stats:   service.NewStatsService(ts),
	}
}

// RegisterPrompts registers all available prompts with the MCP server
func (pm *PromptManager) RegisterPrompts(s *server.MCPServer) error {
	if !pm.config.EnablePrompts {
		return nil
	}

	// Data Analysis Prompt
	dataAnalysisPrompt := mcp.NewPrompt("csv_data_analysis",
		mcp.WithPromptDescription("Generate analysis prompts for CSV data exploration"),
		mcp.WithArgument("table", mcp.ArgumentDescription("Table to analyze")),
		mcp.WithArgument("analysis_type", mcp.ArgumentDescription("Type of analysis (overview, quality, statistics)")),
	)
	s.AddPrompt(dataAnalysisPrompt, pm.handleDataAnalysisPrompt)

	// Query Generation Prompt
	queryGenerationPrompt := mcp.NewPrompt("csv_query_generator",
		mcp.WithPromptDescription("Generate prompts for creating CSV queries"),
		mcp.WithArgument("operation", mcp.ArgumentDescription("Operation type (head, filter, search, stats)")),
		mcp.WithArgument("table", mcp.ArgumentDescription("Target table")),
		mcp.WithArgument("use_case", mcp.ArgumentDescription("Specific use case or goal")),
	)
	s.AddPrompt(queryGenerationPrompt, pm.handleQueryGenerationPrompt)

	return nil
}

// Prompt handlers

func (pm *PromptManager) handleDataAnalysisPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	table := pm.getStringArg(req.Params.Arguments, "table", "")
	analysisType := pm.getStringArg(req.Params.Arguments, "analysis_type", "overview")

	// A failed listing degrades the prompt instead of aborting it
	var tableNames []string
	tableExists := false
	listing, listErr := pm.catalog.ListTables()
	if listErr == nil {
		tableNames = make([]string, 0, len(listing.Tables))
		for _, t := range listing.Tables {
			tableNames = append(tableNames, t.Name)
			if t.Name == table {
				tableExists = true
			}
		}
	}

	var prompt strings.Builder

	switch analysisType {
	case "overview":
		prompt.WriteString(fmt.Sprintf("Please analyze the CSV table '%s'.\n\n", table))

		if tableExists {
			prompt.WriteString("Available information:\n")
			prompt.WriteString(fmt.Sprintf("- Workspace directory: %s\n", pm.config.WorkspaceDir))
			prompt.WriteString(fmt.Sprintf("- Read-only mode: %v\n", pm.store.IsReadOnly()))
			prompt.WriteString(fmt.Sprintf("- Tables: %v\n", tableNames))

			if info, err := pm.catalog.Describe(table); err == nil {
				prompt.WriteString(fmt.Sprintf("- Row count: %d\n", info.RowCount))
				prompt.WriteString(fmt.Sprintf("- Columns: %v\n", columnNames(info)))
			}
		} else if listErr == nil {
			prompt.WriteString(fmt.Sprintf("Note: Table '%s' does not exist. Available tables: %v\n", table, tableNames))
		}

		prompt.WriteString("\nPlease provide:\n")
		prompt.WriteString("1. Data structure analysis\n")
		prompt.WriteString("2. Column naming conventions and types\n")
		prompt.WriteString("3. Value formats and distributions\n")
		prompt.WriteString("4. Potential data quality issues\n")
		prompt.WriteString("5. Recommendations for usage\n")

	case "quality":
		prompt.WriteString(fmt.Sprintf("Assess the data quality of CSV table '%s'.\n\n", table))

		if stats, err := pm.stats.GetTableStats(table); err == nil {
			prompt.WriteString("Column summary:\n")
			for _, col := range stats.Columns {
				prompt.WriteString(fmt.Sprintf("- %s (%s): %d values, %d empty, %d distinct\n",
					col.Name, col.Type, col.Count, col.EmptyCount, col.DistinctCount))
			}
			prompt.WriteString("\n")
		}

		prompt.WriteString("Please examine:\n")
		prompt.WriteString("1. Missing or empty values per column\n")
		prompt.WriteString("2. Inconsistent formats within columns\n")
		prompt.WriteString("3. Outliers and suspicious values\n")
		prompt.WriteString("4. Duplicate rows\n")
		prompt.WriteString("5. Suggested cleanup steps\n")

	case "statistics":
		prompt.WriteString(fmt.Sprintf("Generate statistical analysis for CSV table '%s'.\n\n", table))

		if summaries, err := pm.stats.GetNumericSummaries(table); err == nil && len(summaries) > 0 {
			prompt.WriteString("Numeric column summaries:\n")
			for name, s := range summaries {
				prompt.WriteString(fmt.Sprintf("- %s: mean=%.4g min=%.4g max=%.4g\n", name, s.Mean, s.Min, s.Max))
			}
			prompt.WriteString("\n")
		}

		prompt.WriteString("Please provide:\n")
		prompt.WriteString("1. Distribution analysis for numeric columns\n")
		prompt.WriteString("2. Frequency analysis for categorical columns\n")
		prompt.WriteString("3. Correlations worth investigating\n")
		prompt.WriteString("4. Notable trends or anomalies\n")

	default:
		prompt.WriteString(fmt.Sprintf("Please analyze the CSV table '%s' with focus on: %s\n", table, analysisType))
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Data analysis prompt for table '%s' (%s)", table, analysisType),
		Messages: []mcp.PromptMessage{
			{
				Role:    "user",
				Content: mcp.NewTextContent(prompt.String()),
			},
		},
	}, nil
}

func (pm *PromptManager) handleQueryGenerationPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	operation := pm.getStringArg(req.Params.Arguments, "operation", "head")
	table := pm.getStringArg(req.Params.Arguments, "table", "")
	useCase := pm.getStringArg(req.Params.Arguments, "use_case", "general data exploration")

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Help me build a CSV workspace query for the following use case: %s\n\n", useCase))
	prompt.WriteString(fmt.Sprintf("Target table: %s\n", table))
	prompt.WriteString(fmt.Sprintf("Operation type: %s\n\n", operation))

	if info, err := pm.catalog.Describe(table); err == nil {
		prompt.WriteString(fmt.Sprintf("The table has %d rows and columns: %v\n\n", info.RowCount, columnNames(info)))
	}

	switch operation {
	case "head":
		prompt.WriteString("Available tool: csv_head with arguments table and n.\n")
		prompt.WriteString("Suggest how many rows to preview and which columns to inspect first.\n")
	case "filter":
		prompt.WriteString("Available tool: csv_filter with arguments table, column, op (eq, ne, gt, ge, lt, le, contains), and value.\n")
		prompt.WriteString("Suggest concrete filter predicates that serve the use case.\n")
	case "search":
		prompt.WriteString("Available tool: csv_search with arguments table, pattern, columns, use_regex, and case_sensitive.\n")
		prompt.WriteString("Suggest search patterns, including regular expressions where appropriate.\n")
	case "stats":
		prompt.WriteString("Available tools: csv_table_stats and csv_column_stats.\n")
		prompt.WriteString("Suggest which columns deserve statistical inspection and why.\n")
	default:
		prompt.WriteString(fmt.Sprintf("Suggest an appropriate query strategy for operation '%s'.\n", operation))
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Query generation prompt for %s on table '%s'", operation, table),
		Messages: []mcp.PromptMessage{
			{
				Role:    "user",
				Content: mcp.NewTextContent(prompt.String()),
			},
		},
	}, nil
}

// Helper method to get string arguments with defaults
func (pm *PromptManager) getStringArg(args map[string]string, key, defaultValue string) string {
	if val, ok := args[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

func columnNames(info *store.TableInfo) []string {
	names := make([]string, 0, len(info.Columns))
	for _, col := range info.Columns {
		names = append(names, col.Name)
	}
	return names
}
