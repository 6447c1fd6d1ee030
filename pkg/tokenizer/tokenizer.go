package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken approximates BPE tokenizers on Spanish and English prose.
const charsPerToken = 4

// Estimate returns a rough token count for text, used when a backend
// reports no usage figures.
func Estimate(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return max(utf8.RuneCountInString(text)/charsPerToken, 1)
}

// EstimateMessages sums Estimate over every message body.
func EstimateMessages(contents ...string) int {
	total := 0
	for _, c := range contents {
		total += Estimate(c)
	}
	return total
}
