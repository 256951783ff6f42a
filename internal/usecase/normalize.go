package usecase

import "strings"

// Normalize collapses every run of Unicode whitespace to a single space and
// trims both ends. It is idempotent.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
