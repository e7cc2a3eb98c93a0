// Package sqlguard implements the SQL validator half of C10: statement
// post-processing for raw LLM output, whole-word destructive-keyword
// rejection, and a libinjection-backed heuristic second line of defense.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/schema-intel/pkg/apperrors"
)

var destructiveKeywords = map[string]bool{
	"drop": true, "delete": true, "truncate": true, "alter": true,
	"update": true, "create": true, "insert": true,
}

var codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n?|```\\s*$")

const maxErrorLen = 200

// Sanitize applies the LLM-output post-processing rules: strip surrounding
// code fences and language tags, ensure a trailing semicolon, reject
// multi-statement bodies.
func Sanitize(raw string) (string, error) {
	cleaned := codeFencePattern.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, ";")

	if strings.Contains(cleaned, ";") {
		return "", apperrors.New(apperrors.KindSQLUnsafe, "multi-statement SQL bodies are rejected")
	}
	if cleaned == "" {
		return "", apperrors.New(apperrors.KindSQLUnsafe, "empty SQL statement")
	}
	return cleaned + ";", nil
}

// Validate rejects any statement whose lowercased form contains a whole-word
// destructive keyword, or that libinjection flags as a SQL-injection
// pattern. Both paths return the same sql_unsafe error kind so the caller
// never has to branch between them.
func Validate(sql string) error {
	for _, token := range tokenize(sql) {
		if destructiveKeywords[token] {
			return apperrors.New(apperrors.KindSQLUnsafe, fmt.Sprintf("statement contains a blocked keyword: %s", token))
		}
	}
	if injected, _ := libinjection.IsSQLi(sql); injected {
		return apperrors.New(apperrors.KindSQLUnsafe, "statement matches a known SQL-injection pattern")
	}
	return nil
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// tokenize splits sql into lowercased word tokens, so a column or table
// named e.g. "updated_at" never matches the bare keyword "update".
func tokenize(sql string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(sql), -1)
	return matches
}

// SafetyAlert is the fixed blocking string returned instead of a dataframe
// when Validate rejects a statement.
const SafetyAlert = "This query was blocked by the safety validator and was not executed."
