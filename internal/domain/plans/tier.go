package plans

import "strings"

// Lookup parses a plan key coming from a form or provider metadata.
func Lookup(raw string) (Key, bool) {
	switch k := Key(strings.ToLower(strings.TrimSpace(raw))); k {
	case Free, Pro, Enterprise:
		return k, true
	default:
		return "", false
	}
}

// Rank orders plans from cheapest to most expensive.
func Rank(k Key) int {
	switch k {
	case Pro:
		return 1
	case Enterprise:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether plan k includes everything in min.
func AtLeast(k, min Key) bool {
	return Rank(k) >= Rank(min)
}
