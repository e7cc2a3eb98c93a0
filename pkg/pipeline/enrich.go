package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/artifact"
	"github.com/ekaya-inc/schema-intel/pkg/llm"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

const (
	enrichTemperature = 0.3
	enrichMaxTokens   = 500
	enrichMaxColumns  = 10
)

// CallTracker records one API-call outcome for the cross-cutting tracker
// (C12); pkg/tracker implements it.
type CallTracker interface {
	Record(ctx context.Context, caller, model string, promptTokens, completionTokens int, callErr error)
}

// Enrich runs the LLM enricher (C6): for every table, synthesize a
// description prompt from its shape and ask the configured LLM for a short
// narrative. The layer is rewritten atomically to checkpointPath after each
// table, so a restart resumes instead of re-enriching tables that already
// carry a description.
func Enrich(ctx context.Context, client llm.LLMClient, tracker CallTracker, layer model.SemanticLayer, checkpointPath string, logger *zap.Logger) model.SemanticLayer {
	names := make([]string, 0, len(layer.Tables))
	for name := range layer.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := layer.Tables[name]
		if entry.Description != "" {
			continue
		}
		if ctx.Err() != nil {
			logger.Warn("enrichment cancelled", zap.Error(ctx.Err()))
			break
		}

		description, source, err := enrichTable(ctx, client, tracker, name, entry)
		entry.Description = description
		entry.DescriptionGeneratedAt = time.Now().UTC().Format(time.RFC3339)
		entry.DescriptionSource = source
		layer.Tables[name] = entry

		if err != nil {
			logger.Warn("table enrichment failed", zap.String("table", name), zap.Error(err))
		}

		if checkpointPath != "" {
			if err := artifact.SaveAtomic(checkpointPath, layer); err != nil {
				logger.Error("enrichment checkpoint write failed", zap.String("table", name), zap.Error(err))
			}
		}
	}

	return ReassembleSummary(layer)
}

func enrichTable(ctx context.Context, client llm.LLMClient, tracker CallTracker, name string, entry model.TableEntry) (description, source string, err error) {
	prompt := buildEnrichmentPrompt(name, entry)
	result, genErr := client.GenerateResponse(ctx, prompt, enrichmentSystemMessage, enrichTemperature, enrichMaxTokens, false)

	if tracker != nil {
		var promptTokens, completionTokens int
		if result != nil {
			promptTokens, completionTokens = result.PromptTokens, result.CompletionTokens
		}
		tracker.Record(ctx, "schema_enricher", client.GetModel(), promptTokens, completionTokens, genErr)
	}

	if genErr != nil {
		return fmt.Sprintf("[Error generating description: %s]", genErr.Error()), "", genErr
	}
	return strings.TrimSpace(result.Content), client.GetModel(), nil
}

const enrichmentSystemMessage = "You write concise, factual one-paragraph descriptions of database tables for data analysts. Describe what the table represents and how it likely relates to the rest of the schema. Do not speculate beyond the given facts."

func buildEnrichmentPrompt(name string, entry model.TableEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", name)
	fmt.Fprintf(&b, "Row count: %d\n", entry.RowCount)
	if len(entry.PrimaryKey) > 0 {
		fmt.Fprintf(&b, "Primary key: %s\n", strings.Join(entry.PrimaryKey, ", "))
	}

	b.WriteString("Columns:\n")
	cols := entry.Columns
	if len(cols) > enrichMaxColumns {
		cols = cols[:enrichMaxColumns]
	}
	for _, c := range cols {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.SQLType)
	}

	if patterns := notablePatterns(entry); patterns != "" {
		fmt.Fprintf(&b, "Notable patterns: %s\n", patterns)
	}

	return b.String()
}

func notablePatterns(entry model.TableEntry) string {
	var notes []string
	for col, profile := range entry.ColumnProfiles {
		switch profile.Patterns.IDPattern {
		case model.IDPatternUUID:
			notes = append(notes, col+" looks like a UUID identifier")
		case model.IDPatternPrefixed:
			notes = append(notes, col+" looks like a prefixed identifier code")
		}
		if profile.Patterns.Email {
			notes = append(notes, col+" contains email addresses")
		}
		if profile.Patterns.IsBinary {
			notes = append(notes, col+" is binary-valued")
		}
	}
	sort.Strings(notes)
	return strings.Join(notes, "; ")
}
