// Package budget estimates token counts and trims conversation history so the
// agent prompt fits the context window of the configured chat model. The
// backends tokenize differently, so a character heuristic is used:
// 1 token ≈ 4 characters of French prose.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	charsPerToken = 4

	// DefaultMaxContextTokens is the input budget used when MODEL_MAX_CONTEXT
	// is unset. It fits 8k-context local models with room for the answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	n := utf8.RuneCountInString(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages sums role and content estimates plus a per-message
// overhead of 4 tokens.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory drops the oldest history messages until fixed + history fits
// within maxTokens. fixed (system prompt and current question) is never
// trimmed; when fixed alone exceeds the budget the result is empty.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}

// TruncateRunes returns s cut to at most n characters followed by "..." when
// it is longer than n; otherwise s unchanged.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
