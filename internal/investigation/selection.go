package investigation

import "strings"

// Selection is the parsed form of a comma-separated list of 1-based indices.
type Selection struct {
	// Indices holds the zero-based positions to close, in input order.
	Indices []int
	// Return is set when a 0 was seen; indices after it are dropped.
	Return bool
}

// ParseSelection interprets user input such as "1,3,0,5" against a list of
// n items. Tokens that are not plain digits or fall outside 1..n are ignored.
// A 0 stops processing of the remaining tokens.
func ParseSelection(input string, n int) Selection {
	var sel Selection

	for _, tok := range strings.Split(input, ",") {
		idx, ok := parseDigits(strings.TrimSpace(tok))
		if !ok {
			continue
		}
		if idx == 0 {
			sel.Return = true
			break
		}
		if idx >= 1 && idx <= n {
			sel.Indices = append(sel.Indices, idx-1)
		}
	}

	return sel
}

// parseDigits accepts only ASCII digit strings, so "+1" and "-1" are
// rejected. Values too large to matter are clamped rather than overflowing.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}

	v := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		if v < 1<<30 {
			v = v*10 + int(r-'0')
		}
	}
	return v, true
}
