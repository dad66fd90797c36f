// Package jsonutil provides utility functions for JSON processing with nested expansion support.
package jsonutil

import (
	"encoding/json"
	"strings"
)

// PrettyPrint formats a JSON document with two-space indentation. Values that
// are not valid JSON are returned unchanged.
func PrettyPrint(value string) string {
	var jsonData interface{}
	if err := json.Unmarshal([]byte(value), &jsonData); err != nil {
		return value
	}
	prettyJSON, err := json.MarshalIndent(jsonData, "", "  ")
	if err != nil {
		return value
	}
	return string(prettyJSON)
}

// PrettyPrintWithNestedExpansion formats JSON with recursive nested JSON
// string expansion. CSV cells often carry JSON documents whose string fields
// are themselves serialized JSON; those are expanded in place while keeping
// proper indentation.
func PrettyPrintWithNestedExpansion(value string) string {
	var jsonData interface{}
	if err := json.Unmarshal([]byte(value), &jsonData); err != nil {
		return value
	}

	expandedData := expandNestedJSON(jsonData)

	prettyJSON, err := json.MarshalIndent(expandedData, "", "  ")
	if err != nil {
		return value
	}
	return string(prettyJSON)
}

// MarshalRecord serializes a row record, optionally pretty-printed.
func MarshalRecord(record map[string]interface{}, pretty bool) (string, error) {
	if pretty {
		data, err := json.MarshalIndent(record, "", "  ")
		return string(data), err
	}
	data, err := json.Marshal(record)
	return string(data), err
}

// expandNestedJSON recursively expands JSON strings within the data structure.
func expandNestedJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for key, val := range v {
			result[key] = expandNestedJSON(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = expandNestedJSON(val)
		}
		return result
	case string:
		if isJSONString(v) {
			var nestedData interface{}
			if err := json.Unmarshal([]byte(v), &nestedData); err == nil {
				return expandNestedJSON(nestedData)
			}
		}
		return v
	default:
		return v
	}
}

// isJSONString checks if a string appears to be a JSON object or array.
func isJSONString(s string) bool {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 0 {
		return false
	}
	return (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
}
