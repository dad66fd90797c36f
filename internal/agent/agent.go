// Package agent provides a natural-language agent over the CSV workspace
// using langchaingo tool calling.
package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"csv-cli/internal/config"
	"csv-cli/internal/store"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/tools"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeTool       ErrorType = "tool_error"
	ErrorTypeLLM        ErrorType = "llm_error"
	ErrorTypeValidation ErrorType = "validation_error"
)

// WorkspaceAgent interface defines the contract for the CSV workspace agent
type WorkspaceAgent interface {
	// Initialize sets up the agent with configuration
	Initialize(ctx context.Context, cfg *config.AgentConfig) error

	// ProcessQuery processes a natural language query and returns results
	ProcessQuery(ctx context.Context, query string) (*QueryResult, error)

	// GetCapabilities returns the list of available capabilities
	GetCapabilities() []string

	// Close cleans up resources
	Close() error
}

// ExecutorInterface contains only the Call method for easy mocking
type ExecutorInterface interface {
	Call(ctx context.Context, inputs map[string]any, opts ...chains.ChainCallOption) (map[string]any, error)
}

// Agent implements the WorkspaceAgent interface using langchaingo
type Agent struct {
	config     *config.AgentConfig
	llm        llms.Model
	executor   ExecutorInterface
	tools      []tools.Tool
	store      store.TableStore
	memory     *ConversationMemory
	security   *SecurityManager
	queryCache *QueryCache
}

// QueryResult represents the result of a query execution
type QueryResult struct {
	Success       bool          `json:"success"`
	Data          interface{}   `json:"data,omitempty"`
	Error         string        `json:"error,omitempty"`
	ErrorType     ErrorType     `json:"error_type,omitempty"`
	Explanation   string        `json:"explanation,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
	ToolsUsed     []string      `json:"tools_used,omitempty"`
}

// NewAgent creates a new workspace agent instance
func NewAgent(ts store.TableStore) *Agent {
	return &Agent{store: ts}
}

// Initialize sets up the agent with configuration
func (a *Agent) Initialize(ctx context.Context, cfg *config.AgentConfig) error {
	a.config = cfg

	var err error
	a.llm, err = a.initializeLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %w", err)
	}

	if cfg.EnableMemory {
		a.memory = NewConversationMemory(cfg.MemorySize)
	}

	a.security = NewSecurityManager(&cfg.Security)

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 100
	}
	a.queryCache = NewQueryCache(cacheSize)

	a.tools = a.createWorkspaceTools()

	a.executor, err = a.initializeExecutor()
	if err != nil {
		return fmt.Errorf("failed to initialize agent executor: %w", err)
	}

	return nil
}

// initializeExecutor initializes the langchaingo agent executor
func (a *Agent) initializeExecutor() (ExecutorInterface, error) {
	maxIterations := a.config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 5
	}

	return agents.Initialize(
		a.llm,
		a.tools,
		agents.ZeroShotReactDescription,
		agents.WithMaxIterations(maxIterations),
		agents.WithReturnIntermediateSteps(),
	)
}

// createWorkspaceTools creates all workspace tools with the standard tools.Tool interface
func (a *Agent) createWorkspaceTools() []tools.Tool {
	return []tools.Tool{
		NewListTablesTool(a.store),
		NewDescribeTableTool(a.store),
		NewQueryRowsTool(a.store),
		NewFilterRowsTool(a.store),
		NewSearchRowsTool(a.store),
		NewColumnStatsTool(a.store),
	}
}

// ProcessQuery processes a natural language query using the agent
func (a *Agent) ProcessQuery(ctx context.Context, query string) (*QueryResult, error) {
	startTime := time.Now()

	if !a.security.ValidateQuery(query) {
		return &QueryResult{
			Success:       false,
			Error:         "Query was rejected by the security policy",
			ErrorType:     ErrorTypeValidation,
			ExecutionTime: time.Since(startTime),
		}, nil
	}

	// Check cache first
	if cached := a.queryCache.Get(query); cached != nil {
		cached.ExecutionTime = time.Since(startTime)
		return cached, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, a.config.Timeout())
	defer cancel()

	inputs := a.buildInputs(timeoutCtx, query)

	outputs, err := a.executor.Call(timeoutCtx, inputs)
	if err != nil {
		return a.handleExecutionError(err, time.Since(startTime)), nil
	}

	output, _ := outputs["output"].(string)

	result := &QueryResult{
		Success:       true,
		Data:          output,
		Explanation:   output,
		ExecutionTime: time.Since(startTime),
		ToolsUsed:     a.extractToolsUsed(outputs["intermediateSteps"]),
	}

	if a.memory != nil {
		a.saveToMemory(ctx, inputs, outputs)
	}

	a.queryCache.Set(query, result)
	return result, nil
}

// buildInputs builds the input map for the executor, enriched with history
func (a *Agent) buildInputs(ctx context.Context, query string) map[string]any {
	inputs := map[string]any{
		"input": a.buildEnhancedQuery(query),
	}

	if a.memory != nil {
		if memoryVars, err := a.memory.LoadMemoryVariables(ctx, inputs); err == nil {
			if history, ok := memoryVars["history"].(string); ok && history != "" {
				inputs["input"] = fmt.Sprintf("Conversation history:\n%s\n\n%s", history, inputs["input"])
			}
		}
	}

	return inputs
}

// buildEnhancedQuery enhances the user query with workspace context
func (a *Agent) buildEnhancedQuery(query string) string {
	return fmt.Sprintf(`You are a CSV workspace assistant. Use your available tools to answer the user's question.

[Tool selection examples]
User question: What tables are available?
Should choose tool: list_tables

User question: Show the first rows of orders
Should choose tool: query_rows, params table="orders"

User question: Which users are older than 30?
Should choose tool: filter_rows, params table="users", column="age", op="gt", value="30"

[Important]
- Please understand the user's question as a whole. Do not split the input into individual words for separate processing.
- Only select the most appropriate tool and parameters based on the overall meaning of the question.

User question: %s

Please use the appropriate tool to answer this question and provide a clear explanation.`, query)
}

func (a *Agent) extractToolsUsed(intermediateSteps interface{}) []string {
	var toolsUsed []string
	if steps, ok := intermediateSteps.([]interface{}); ok {
		for _, step := range steps {
			stepStr := fmt.Sprintf("%v", step)
			for _, tool := range a.tools {
				if strings.Contains(stepStr, tool.Name()) {
					toolsUsed = append(toolsUsed, tool.Name())
					break
				}
			}
		}
	}
	return toolsUsed
}

func (a *Agent) handleExecutionError(err error, executionTime time.Duration) *QueryResult {
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return &QueryResult{
			Success:       false,
			Error:         fmt.Sprintf("Query timed out after %v. Try a simpler query or increase timeout.", a.config.Timeout()),
			ErrorType:     ErrorTypeTimeout,
			ExecutionTime: executionTime,
		}
	}

	errorType := ErrorTypeLLM
	if strings.Contains(err.Error(), "tool") {
		errorType = ErrorTypeTool
	}

	return &QueryResult{
		Success:       false,
		Error:         fmt.Sprintf("Query execution failed: %v", err),
		ErrorType:     errorType,
		ExecutionTime: executionTime,
	}
}

func (a *Agent) saveToMemory(ctx context.Context, inputs, outputs map[string]any) {
	memoryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.memory.SaveContext(memoryCtx, inputs, outputs); err != nil {
		fmt.Printf("Warning: Failed to save to memory: %v\n", err)
	}
}

// GetCapabilities returns the list of available capabilities
func (a *Agent) GetCapabilities() []string {
	capabilities := make([]string, len(a.tools))
	for i, tool := range a.tools {
		capabilities[i] = tool.Name()
	}
	return capabilities
}

// Close cleans up resources
func (a *Agent) Close() error {
	return nil
}

// GetMemory returns the conversation memory, nil when disabled
func (a *Agent) GetMemory() *ConversationMemory {
	return a.memory
}

// ClearMemory clears the conversation history
func (a *Agent) ClearMemory(ctx context.Context) error {
	if a.memory == nil {
		return fmt.Errorf("memory is not enabled")
	}
	return a.memory.Clear(ctx)
}

// initializeLLM initializes the appropriate LLM based on configuration
func (a *Agent) initializeLLM(cfg *config.AgentConfig) (llms.Model, error) {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		openaiOptions := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(apiKey),
		}
		if cfg.BaseURL != "" {
			openaiOptions = append(openaiOptions, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(openaiOptions...)
	case "googleai", "google":
		return googleai.New(
			context.Background(),
			googleai.WithAPIKey(apiKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "ollama":
		options := []ollama.Option{
			ollama.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			options = append(options, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(options...)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
