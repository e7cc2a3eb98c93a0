package engine

import (
	"strings"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

const (
	defaultTokenBudget = 6000
	charsPerToken      = 4
)

// trimHistory drops the oldest non-system messages until history fits
// within budget tokens (estimated at 4 characters per token). The system
// message, when present, is never dropped.
func trimHistory(history []model.Message, budget int) []model.Message {
	if budget <= 0 {
		budget = defaultTokenBudget
	}
	maxChars := budget * charsPerToken

	if historyChars(history) <= maxChars {
		return history
	}

	var system []model.Message
	var rest []model.Message
	for _, m := range history {
		if m.Role == model.MessageSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	kept := append([]model.Message{}, rest...)
	for len(kept) > 0 && historyChars(append(system, kept...)) > maxChars {
		kept = kept[1:]
	}

	return append(system, kept...)
}

func historyChars(history []model.Message) int {
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	return total
}

// renderTranscript flattens history into a plain-text transcript suitable
// for folding into a single-shot prompt, since the underlying LLM client
// call takes one system message and one user prompt rather than an
// arbitrary message list.
func renderTranscript(history []model.Message) string {
	var b strings.Builder
	for _, m := range history {
		if m.Role == model.MessageSystem {
			continue
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
