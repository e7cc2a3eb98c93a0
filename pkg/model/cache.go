package model

import "strings"

// CacheKey builds the `nl2sql:{client}:{normalized_question}` key. Question
// normalization is lowercase + trim.
func CacheKey(clientID, question string) string {
	return "nl2sql:" + clientID + ":" + strings.ToLower(strings.TrimSpace(question))
}
