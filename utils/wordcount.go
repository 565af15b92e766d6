package utils

import "strings"

// WordCount counts whitespace-separated words in the canonical plain text.
func WordCount(content string) int {
	return len(strings.Fields(content))
}
