package util

import "strings"

// NormalizeSymbol canonicalizes a ticker symbol: trimmed, uppercased.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
