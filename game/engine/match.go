package engine

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize trims surrounding whitespace and applies full Unicode case folding
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Matches reports whether guess equals the answer or one of its aliases
// after normalization. There is no partial or fuzzy matching.
func Matches(guess, answer string, aliases []string) bool {
	g := Normalize(guess)
	if g == "" {
		return false
	}
	if g == Normalize(answer) {
		return true
	}
	for _, alias := range aliases {
		if g == Normalize(alias) {
			return true
		}
	}
	return false
}
