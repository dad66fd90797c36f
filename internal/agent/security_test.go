package agent

import (
	"testing"
	"time"

	"csv-cli/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecurityConfig() *config.AgentSecurityConfig {
	return &config.AgentSecurityConfig{
		ReadOnlyMode:       true,
		MaxQueryComplexity: 50,
		AllowedOperations: []string{
			"list", "describe", "head", "query", "filter", "search", "stats",
		},
	}
}

func TestNewSecurityManager(t *testing.T) {
	sm := NewSecurityManager(testSecurityConfig())

	require.NotNil(t, sm)
	assert.True(t, sm.IsOperationAllowed("list"))
	assert.True(t, sm.IsOperationAllowed("SEARCH"))
	assert.False(t, sm.IsOperationAllowed("export"))
	assert.NotEmpty(t, sm.dangerousPatterns)
}

func TestValidateQueryAllowsReadQueries(t *testing.T) {
	sm := NewSecurityManager(testSecurityConfig())

	assert.True(t, sm.ValidateQuery("list all tables"))
	assert.True(t, sm.ValidateQuery("describe the users table"))
	assert.True(t, sm.ValidateQuery("search for alice in users"))
}

func TestValidateQueryBlocksWritesInReadOnlyMode(t *testing.T) {
	sm := NewSecurityManager(testSecurityConfig())

	assert.False(t, sm.ValidateQuery("append a new row to users"))
	assert.False(t, sm.ValidateQuery("delete everything from prices"))
	assert.False(t, sm.ValidateQuery("overwrite the users table"))
}

func TestValidateQueryAllowsWritesWhenNotReadOnly(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.ReadOnlyMode = false
	cfg.AllowedOperations = append(cfg.AllowedOperations, "append")
	sm := NewSecurityManager(cfg)

	assert.True(t, sm.ValidateQuery("append a row to users"))
}

func TestValidateQueryBlocksDangerousPatterns(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.ReadOnlyMode = false
	sm := NewSecurityManager(cfg)

	assert.False(t, sm.ValidateQuery("drop table users"))
	assert.False(t, sm.ValidateQuery("read ../../etc/passwd"))
	assert.False(t, sm.ValidateQuery("set password=hunter2"))
	assert.False(t, sm.ValidateQuery("rm -rf the workspace"))
}

func TestValidateQueryBlocksDisallowedOperations(t *testing.T) {
	sm := NewSecurityManager(testSecurityConfig())

	// export is not in the allowed operations list
	assert.False(t, sm.ValidateQuery("export users to a file"))
}

func TestValidateQueryComplexityBudget(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.MaxQueryComplexity = 6
	sm := NewSecurityManager(cfg)

	// search costs 3 (base 1 + search 2)
	assert.True(t, sm.ValidateQuery("search users for alice"))
	assert.True(t, sm.ValidateQuery("search users for bob"))
	assert.False(t, sm.ValidateQuery("search users for carol"))
}

func TestValidateQueryComplexityResets(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.MaxQueryComplexity = 3
	sm := NewSecurityManager(cfg)

	assert.True(t, sm.ValidateQuery("search users for alice"))
	assert.False(t, sm.ValidateQuery("search users for bob"))

	// Budget resets after the window passes
	sm.lastResetTime = time.Now().Add(-2 * time.Minute)
	assert.True(t, sm.ValidateQuery("search users for bob"))
}

func TestGetSecurityReport(t *testing.T) {
	sm := NewSecurityManager(testSecurityConfig())

	report := sm.GetSecurityReport()
	assert.Equal(t, true, report["read_only_mode"])
	assert.Equal(t, 50, report["max_query_complexity"])
	assert.NotZero(t, report["dangerous_patterns"])
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, parseInt("42"))
	assert.Equal(t, 10, parseInt("10x"))
	assert.Equal(t, 0, parseInt("abc"))
	assert.Equal(t, 0, parseInt(""))
}
