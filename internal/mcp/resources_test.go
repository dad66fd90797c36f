package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func newResourceRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func TestExtractPathParam(t *testing.T) {
	rm := NewResourceManager(newMockTableStore(), DefaultConfig())

	cases := []struct {
		uri   string
		param string
		want  string
	}{
		{"csv://table/users", "name", "users"},
		{"csv://table/users/stats", "name", "users"},
		{"csv://table/nested/users", "name", "nested/users"},
		{"csv://table/nested/users/stats", "name", "nested/users"},
		{"csv://table/my%20table", "name", "my table"},
		{"csv://table/stats", "name", "stats"},
		{"csv://tables", "name", ""},
		{"greeting://World", "greeting_name", "World"},
		{"csv://table/users", "greeting_name", ""},
	}
	for _, tc := range cases {
		if got := rm.extractPathParam(tc.uri, tc.param); got != tc.want {
			t.Errorf("extractPathParam(%q, %q) = %q, want %q", tc.uri, tc.param, got, tc.want)
		}
	}
}

func TestTableDataResourceNestedName(t *testing.T) {
	ms := newMockTableStore()
	ms.tables["nested/users"] = ms.tables["users"]
	rm := NewResourceManager(ms, DefaultConfig())

	contents, err := rm.handleTableDataResource(context.Background(), newResourceRequest("csv://table/nested/users"))
	if err != nil {
		t.Fatalf("handleTableDataResource failed: %v", err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected text resource contents, got %T", contents[0])
	}
	if !strings.Contains(text.Text, "nested/users") {
		t.Errorf("Expected nested table in response: %s", text.Text)
	}
}

func TestTableStatsResourceByURI(t *testing.T) {
	rm := NewResourceManager(newMockTableStore(), DefaultConfig())

	contents, err := rm.handleTableStatsResource(context.Background(), newResourceRequest("csv://table/users/stats"))
	if err != nil {
		t.Fatalf("handleTableStatsResource failed: %v", err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected text resource contents, got %T", contents[0])
	}
	if !strings.Contains(text.Text, "\"age\"") {
		t.Errorf("Expected column stats in response: %s", text.Text)
	}
}

func TestGreetingResourceUnescapesName(t *testing.T) {
	rm := NewResourceManager(newMockTableStore(), DefaultConfig())

	contents, err := rm.handleGreetingResource(context.Background(), newResourceRequest("greeting://Csv%20Fan"))
	if err != nil {
		t.Fatalf("handleGreetingResource failed: %v", err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected text resource contents, got %T", contents[0])
	}
	if text.Text != "Hello Csv Fan!" {
		t.Errorf("Unexpected greeting: %s", text.Text)
	}
}
