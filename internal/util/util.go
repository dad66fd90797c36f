package util

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ValueType represents the detected type of a single CSV cell value.
type ValueType string

const (
	ValueTypeJSON      ValueType = "JSON"
	ValueTypeInteger   ValueType = "Integer"
	ValueTypeFloat     ValueType = "Float"
	ValueTypeBoolean   ValueType = "Boolean"
	ValueTypeTimestamp ValueType = "Timestamp"
	ValueTypeString    ValueType = "String"
	ValueTypeEmpty     ValueType = "Empty"
)

// DetectValueType analyzes a cell value and determines its most likely type.
func DetectValueType(value string) ValueType {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return ValueTypeEmpty
	}

	// Check for JSON
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var jsonData interface{}
		if json.Unmarshal([]byte(trimmed), &jsonData) == nil {
			return ValueTypeJSON
		}
	}

	switch strings.ToLower(trimmed) {
	case "true", "false", "yes", "no":
		return ValueTypeBoolean
	}

	// Integers that fall into plausible unix timestamp ranges are reported
	// as timestamps so that exported event logs get useful column types
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if _, ok := ParseUnixTimestamp(i); ok {
			return ValueTypeTimestamp
		}
		return ValueTypeInteger
	}

	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return ValueTypeFloat
	}

	if _, ok := ParseTimeString(trimmed); ok {
		return ValueTypeTimestamp
	}

	return ValueTypeString
}

// ParseUnixTimestamp interprets an integer as a unix timestamp. The unit is
// guessed from magnitude: seconds (years 1973-2033), then milliseconds,
// microseconds and nanoseconds. Returns false outside every plausible range.
func ParseUnixTimestamp(v int64) (time.Time, bool) {
	switch {
	case v > 1e8 && v < 2e9:
		return time.Unix(v, 0).UTC(), true
	case v > 1e11 && v < 2e12:
		return time.UnixMilli(v).UTC(), true
	case v > 1e14 && v < 2e15:
		return time.UnixMicro(v).UTC(), true
	case v > 1e17 && v < 2e18:
		return time.Unix(0, v).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeString parses common date/time layouts found in CSV exports.
func ParseTimeString(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumeric parses a cell as a float64, tolerating surrounding whitespace
// and thousands separators.
func ParseNumeric(value string) (float64, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
