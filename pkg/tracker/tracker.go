// Package tracker implements the API-call tracker (C12): an append-only
// recorder of every LLM call made by the enricher (C6) and the
// conversational engine (C9), persisted to a JSON-lines record file and a
// CSV, with cost computed from a per-model pricing table.
package tracker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
)

// Record is one API call's outcome.
type Record struct {
	Timestamp        time.Time `json:"timestamp"`
	CallerContext    string    `json:"caller_context"`
	Model            string    `json:"model"`
	InputTokens      int       `json:"input_tokens"`
	OutputTokens     int       `json:"output_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	CostUSD          float64   `json:"cost_usd"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
}

// Summary aggregates tracked calls: totals, success rate, and per-model
// breakdowns, all derivable from the record file alone.
type Summary struct {
	TotalCalls    int                    `json:"total_calls"`
	Successful    int                    `json:"successful"`
	Failed        int                    `json:"failed"`
	SuccessRate   float64                `json:"success_rate"`
	TotalCostUSD  float64                `json:"total_cost_usd"`
	InputTokens   int                    `json:"input_tokens"`
	OutputTokens  int                    `json:"output_tokens"`
	ByModel       map[string]ModelStats  `json:"by_model"`
}

// ModelStats is one model's slice of the summary.
type ModelStats struct {
	Calls        int     `json:"calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Tracker appends call records to disk and keeps an in-memory running
// summary. A tracking failure (disk full, permission error) is logged and
// swallowed: Record never returns an error and never blocks a caller on
// I/O failure.
type Tracker struct {
	mu      sync.Mutex
	dir     string
	pricing map[string]ModelPricing
	defCost float64
	logger  *zap.Logger

	recordsPath string
	costPath    string
	summary     Summary
}

// ModelPricing is USD cost per 1000 tokens for one model, input and output
// priced separately since providers typically charge more for output.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// New builds a Tracker backed by cfg.RecordsDir, loading any pricing table
// override and replaying existing records to seed the running summary.
func New(cfg config.TrackerConfig, pricing map[string]ModelPricing, logger *zap.Logger) (*Tracker, error) {
	if err := os.MkdirAll(cfg.RecordsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tracker records dir: %w", err)
	}

	t := &Tracker{
		dir:         cfg.RecordsDir,
		pricing:     pricing,
		defCost:     cfg.DefaultCostPer1K,
		logger:      logger.Named("tracker"),
		recordsPath: filepath.Join(cfg.RecordsDir, "api_calls.jsonl"),
		costPath:    filepath.Join(cfg.RecordsDir, "api_costs.csv"),
		summary:     Summary{ByModel: make(map[string]ModelStats)},
	}
	if err := t.ensureCSVHeader(); err != nil {
		return nil, err
	}
	if err := t.replay(); err != nil {
		logger.Warn("tracker failed to replay existing records", zap.Error(err))
	}
	return t, nil
}

func (t *Tracker) ensureCSVHeader() error {
	if _, err := os.Stat(t.costPath); err == nil {
		return nil
	}
	f, err := os.Create(t.costPath)
	if err != nil {
		return fmt.Errorf("create tracker cost csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	return w.Write([]string{"timestamp", "caller_context", "model", "input_tokens", "output_tokens", "latency_ms", "cost_usd", "success", "error"})
}

func (t *Tracker) replay() error {
	data, err := os.ReadFile(t.recordsPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range splitLines(data) {
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		t.applyLocked(rec)
	}
	return nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

// Record implements pipeline.CallTracker and engine.CallTracker, both
// structurally: one call, its token usage, and its outcome. Failures to
// persist are logged but never returned.
func (t *Tracker) Record(ctx context.Context, caller, model string, promptTokens, completionTokens int, callErr error) {
	t.RecordLatency(ctx, caller, model, promptTokens, completionTokens, 0, callErr)
}

// RecordLatency is Record plus an explicit call latency, used by callers
// that measure their own round-trip time (the engine wraps this; Record is
// the minimal interface C6/C9 depend on).
func (t *Tracker) RecordLatency(_ context.Context, caller, model string, promptTokens, completionTokens int, latency time.Duration, callErr error) {
	rec := Record{
		Timestamp:    time.Now().UTC(),
		CallerContext: caller,
		Model:        model,
		InputTokens:  promptTokens,
		OutputTokens: completionTokens,
		LatencyMs:    latency.Milliseconds(),
		Success:      callErr == nil,
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	rec.CostUSD = t.cost(model, promptTokens, completionTokens)

	t.mu.Lock()
	t.applyLocked(rec)
	t.mu.Unlock()

	if err := t.appendJSONL(rec); err != nil {
		t.logger.Warn("tracker failed to append jsonl record", zap.Error(err))
	}
	if err := t.appendCSV(rec); err != nil {
		t.logger.Warn("tracker failed to append csv record", zap.Error(err))
	}
}

func (t *Tracker) cost(model string, inputTokens, outputTokens int) float64 {
	if p, ok := t.pricing[model]; ok {
		return (float64(inputTokens)/1000)*p.InputPer1K + (float64(outputTokens)/1000)*p.OutputPer1K
	}
	return (float64(inputTokens+outputTokens) / 1000) * t.defCost
}

func (t *Tracker) applyLocked(rec Record) {
	t.summary.TotalCalls++
	if rec.Success {
		t.summary.Successful++
	} else {
		t.summary.Failed++
	}
	t.summary.TotalCostUSD += rec.CostUSD
	t.summary.InputTokens += rec.InputTokens
	t.summary.OutputTokens += rec.OutputTokens
	if t.summary.TotalCalls > 0 {
		t.summary.SuccessRate = float64(t.summary.Successful) / float64(t.summary.TotalCalls)
	}

	stats := t.summary.ByModel[rec.Model]
	stats.Calls++
	stats.InputTokens += rec.InputTokens
	stats.OutputTokens += rec.OutputTokens
	stats.CostUSD += rec.CostUSD
	t.summary.ByModel[rec.Model] = stats
}

func (t *Tracker) appendJSONL(rec Record) error {
	f, err := os.OpenFile(t.recordsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

func (t *Tracker) appendCSV(rec Record) error {
	f, err := os.OpenFile(t.costPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	return w.Write([]string{
		rec.Timestamp.Format(time.RFC3339),
		rec.CallerContext,
		rec.Model,
		fmt.Sprintf("%d", rec.InputTokens),
		fmt.Sprintf("%d", rec.OutputTokens),
		fmt.Sprintf("%d", rec.LatencyMs),
		fmt.Sprintf("%.6f", rec.CostUSD),
		fmt.Sprintf("%t", rec.Success),
		rec.Error,
	})
}

// Summary returns a snapshot of the running aggregate, for the metrics
// endpoint.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	byModel := make(map[string]ModelStats, len(t.summary.ByModel))
	for k, v := range t.summary.ByModel {
		byModel[k] = v
	}
	s := t.summary
	s.ByModel = byModel
	return s
}
