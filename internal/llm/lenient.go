package llm

import (
	"fmt"
	"strings"
)

// FirstJSONObject extracts the first balanced JSON object embedded in s.
// Models wrap payloads in prose or markdown fences; this scans for the first
// '{' and returns the substring up to its matching '}', tracking string
// literals and escapes so braces inside strings don't unbalance the scan.
// All parse-tolerance lives here so the degraded-summary fallback has a
// single call site to guard.
func FirstJSONObject(s string) ([]byte, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return []byte(s[start : i+1]), nil
			}
		}
	}
	return nil, fmt.Errorf("unbalanced JSON object in response")
}
