package util

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	ansiHighlight = "\033[1;33m"
	ansiReset     = "\033[0m"
)

// HighlightMatches wraps every occurrence of pattern in text with ANSI color
// codes for terminal display. With useRegex the pattern is compiled as a
// regular expression; invalid patterns return the text unchanged.
func HighlightMatches(text, pattern string, useRegex, caseSensitive bool) string {
	if pattern == "" {
		return text
	}

	if useRegex {
		expr := pattern
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return text
		}
		return re.ReplaceAllStringFunc(text, func(m string) string {
			return ansiHighlight + m + ansiReset
		})
	}

	var out strings.Builder
	pos := 0
	for {
		var start, end int
		if caseSensitive {
			idx := strings.Index(text[pos:], pattern)
			if idx < 0 {
				break
			}
			start, end = pos+idx, pos+idx+len(pattern)
		} else {
			i, j := indexFold(text[pos:], pattern)
			if i < 0 {
				break
			}
			start, end = pos+i, pos+j
		}
		out.WriteString(text[pos:start])
		out.WriteString(ansiHighlight)
		out.WriteString(text[start:end])
		out.WriteString(ansiReset)
		pos = end
	}
	out.WriteString(text[pos:])
	return out.String()
}

// indexFold finds the first case-insensitive occurrence of needle in s and
// returns its byte offsets in s, or (-1, -1). Offsets always refer to s
// itself: Unicode case mapping can change rune width, so offsets into a
// lower-cased copy would not be safe.
func indexFold(s, needle string) (int, int) {
	for i := 0; i < len(s); {
		if n := foldPrefixLen(s[i:], needle); n >= 0 {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// foldPrefixLen reports how many bytes at the start of s case-fold to
// needle, or -1 when they do not.
func foldPrefixLen(s, needle string) int {
	n := 0
	for _, nr := range needle {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return -1
		}
		if r != nr && unicode.ToLower(r) != unicode.ToLower(nr) {
			return -1
		}
		n += size
	}
	return n
}

// StripHighlight removes the ANSI codes added by HighlightMatches.
func StripHighlight(text string) string {
	text = strings.ReplaceAll(text, ansiHighlight, "")
	return strings.ReplaceAll(text, ansiReset, "")
}
