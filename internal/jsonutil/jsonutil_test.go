package jsonutil

import (
	"strings"
	"testing"
)

func TestPrettyPrint(t *testing.T) {
	out := PrettyPrint(`{"b":2,"a":1}`)
	if !strings.Contains(out, "\n  \"a\": 1") {
		t.Errorf("Expected indented output, got %q", out)
	}

	// Non-JSON values pass through unchanged
	if out := PrettyPrint("not json"); out != "not json" {
		t.Errorf("Expected passthrough, got %q", out)
	}
}

func TestPrettyPrintWithNestedExpansion(t *testing.T) {
	out := PrettyPrintWithNestedExpansion(`{"payload": "{\"city\": \"Berlin\"}"}`)
	if !strings.Contains(out, `"city": "Berlin"`) {
		t.Errorf("Expected nested JSON string to be expanded, got %q", out)
	}
	if strings.Contains(out, `\"city\"`) {
		t.Errorf("Expected no escaped nested JSON left, got %q", out)
	}
}

func TestPrettyPrintWithNestedExpansionArrays(t *testing.T) {
	out := PrettyPrintWithNestedExpansion(`{"items": ["[1,2]", "plain"]}`)
	if !strings.Contains(out, "1,") {
		t.Errorf("Expected nested array expansion, got %q", out)
	}
	if !strings.Contains(out, `"plain"`) {
		t.Errorf("Plain strings should survive expansion, got %q", out)
	}
}

func TestMarshalRecord(t *testing.T) {
	record := map[string]interface{}{"name": "Alice", "age": "30"}

	out, err := MarshalRecord(record, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.Contains(out, "\n") {
		t.Errorf("Compact output should be single-line, got %q", out)
	}

	out, err = MarshalRecord(record, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "\n  ") {
		t.Errorf("Pretty output should be indented, got %q", out)
	}
}

func TestIsJSONString(t *testing.T) {
	if !isJSONString(`{"a": 1}`) || !isJSONString(`[1]`) {
		t.Error("Objects and arrays should be detected")
	}
	if isJSONString("") || isJSONString("plain") || isJSONString(`"quoted"`) {
		t.Error("Non-container values should not be detected")
	}
}
