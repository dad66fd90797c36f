package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// ConversationMemory implements the langchaingo schema.Memory contract for
// storing conversation history.
type ConversationMemory struct {
	history        []ConversationTurn
	maxSize        int
	returnMessages bool
	mutex          sync.RWMutex
}

// ConversationTurn represents a single turn in the conversation
type ConversationTurn struct {
	UserQuery     string        `json:"user_query"`
	AgentResponse string        `json:"agent_response"`
	Timestamp     time.Time     `json:"timestamp"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

// MemoryStats summarizes the state of the conversation memory
type MemoryStats struct {
	TurnCount  int       `json:"turn_count"`
	MaxSize    int       `json:"max_size"`
	OldestTurn time.Time `json:"oldest_turn,omitempty"`
	NewestTurn time.Time `json:"newest_turn,omitempty"`
}

// NewConversationMemory creates a new conversation memory instance
func NewConversationMemory(maxSize int) *ConversationMemory {
	if maxSize <= 0 {
		maxSize = 100
	}

	return &ConversationMemory{
		history: make([]ConversationTurn, 0, maxSize),
		maxSize: maxSize,
	}
}

// SetReturnMessages switches between chat-message and string history formats
func (cm *ConversationMemory) SetReturnMessages(returnMessages bool) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.returnMessages = returnMessages
}

// MemoryVariables returns the memory variables this memory adds to chain inputs
func (cm *ConversationMemory) MemoryVariables() []string {
	return []string{"history", "chat_history"}
}

// LoadMemoryVariables returns key-value pairs given the text input to the chain
func (cm *ConversationMemory) LoadMemoryVariables(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	memoryVars := make(map[string]any)

	if cm.returnMessages {
		memoryVars["chat_history"] = cm.getChatMessages()
	} else {
		memoryVars["history"] = cm.getFormattedHistory()
	}

	return memoryVars, nil
}

// SaveContext saves the inputs and outputs of this chain to memory
func (cm *ConversationMemory) SaveContext(ctx context.Context, inputs, outputs map[string]any) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	userQuery := extractStringFromMap(inputs, "input", "user_input", "query")
	agentResponse := extractStringFromMap(outputs, "output", "text", "response")

	if userQuery == "" && agentResponse == "" {
		return nil // Nothing to save
	}

	turn := ConversationTurn{
		UserQuery:     userQuery,
		AgentResponse: agentResponse,
		Timestamp:     time.Now(),
	}

	if executionTime, ok := outputs["execution_time"].(time.Duration); ok {
		turn.ExecutionTime = executionTime
	}

	cm.history = append(cm.history, turn)

	// Sliding window
	if len(cm.history) > cm.maxSize {
		cm.history = cm.history[len(cm.history)-cm.maxSize:]
	}

	return nil
}

// Clear removes all stored states
func (cm *ConversationMemory) Clear(ctx context.Context) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.history = cm.history[:0]
	return nil
}

// getChatMessages converts history to chat messages format
func (cm *ConversationMemory) getChatMessages() []llms.ChatMessage {
	messages := make([]llms.ChatMessage, 0, len(cm.history)*2)

	for _, turn := range cm.history {
		if turn.UserQuery != "" {
			messages = append(messages, llms.HumanChatMessage{Content: turn.UserQuery})
		}
		if turn.AgentResponse != "" {
			messages = append(messages, llms.AIChatMessage{Content: turn.AgentResponse})
		}
	}

	return messages
}

// getFormattedHistory returns history as a formatted string
func (cm *ConversationMemory) getFormattedHistory() string {
	if len(cm.history) == 0 {
		return ""
	}

	var formatted string
	for i, turn := range cm.history {
		if i > 0 {
			formatted += "\n\n"
		}

		if turn.UserQuery != "" {
			formatted += fmt.Sprintf("Human: %s", turn.UserQuery)
		}
		if turn.AgentResponse != "" {
			if turn.UserQuery != "" {
				formatted += "\n"
			}
			formatted += fmt.Sprintf("Assistant: %s", turn.AgentResponse)
		}
	}

	return formatted
}

// GetHistory returns a copy of the conversation history
func (cm *ConversationMemory) GetHistory() []ConversationTurn {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	historyCopy := make([]ConversationTurn, len(cm.history))
	copy(historyCopy, cm.history)
	return historyCopy
}

// GetRecentHistory returns the last N conversation turns
func (cm *ConversationMemory) GetRecentHistory(n int) []ConversationTurn {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if n <= 0 || len(cm.history) == 0 {
		return []ConversationTurn{}
	}

	start := len(cm.history) - n
	if start < 0 {
		start = 0
	}

	recent := make([]ConversationTurn, len(cm.history)-start)
	copy(recent, cm.history[start:])
	return recent
}

// GetStats returns memory usage statistics
func (cm *ConversationMemory) GetStats() MemoryStats {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	stats := MemoryStats{
		TurnCount: len(cm.history),
		MaxSize:   cm.maxSize,
	}
	if len(cm.history) > 0 {
		stats.OldestTurn = cm.history[0].Timestamp
		stats.NewestTurn = cm.history[len(cm.history)-1].Timestamp
	}
	return stats
}

// extractStringFromMap returns the first non-empty string among the keys
func extractStringFromMap(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if val, ok := m[key]; ok {
			if str, ok := val.(string); ok && str != "" {
				return str
			}
		}
	}
	return ""
}
