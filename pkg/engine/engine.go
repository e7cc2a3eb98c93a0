// Package engine implements the conversational engine (C9): natural
// language in, optionally-SQL-backed structured response out, dispatched
// across the Conversational agent (JSON-mode planner) and the engine agents
// (NetworkX/Neo4j backed, raw-SQL single-shot).
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/apperrors"
	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/llm"
	"github.com/ekaya-inc/schema-intel/pkg/model"
	"github.com/ekaya-inc/schema-intel/pkg/schemacontext"
)

// CallTracker records one LLM call outcome for the cross-cutting tracker
// (C12); a *tracker.Tracker satisfies this structurally, same shape as
// pipeline.CallTracker.
type CallTracker interface {
	Record(ctx context.Context, caller, model string, promptTokens, completionTokens int, callErr error)
}

// ResultCache is the subset of pkg/engine/cache.Cache the engine depends
// on.
type ResultCache interface {
	Get(ctx context.Context, key string) (model.ChatResponse, bool)
	Set(ctx context.Context, key string, resp model.ChatResponse)
}

// ClientDatabases resolves a client id to its configured database
// connection parameters; ClientRegistry, holding configs loaded by
// pkg/config.LoadClientConfig, is the implementation in this package.
type ClientDatabases interface {
	Resolve(clientID string) (driver string, params datasource.ConnParams, err error)
}

// Engine wires the schema context, LLM, SQL validator/executor, cache, and
// tracker together into the single chat(request) -> response operation.
type Engine struct {
	llmCfg      *config.LLMConfig
	graphReader schemacontext.GraphReader
	cache       ResultCache
	tracker     CallTracker
	conns       *datasource.ConnectionManager
	clients     ClientDatabases
	logger      *zap.Logger
	tokenBudget int
}

// New builds an Engine. tokenBudget is the history trim budget in tokens;
// pass 0 for the spec default (~6000).
func New(llmCfg *config.LLMConfig, graphReader schemacontext.GraphReader, cache ResultCache, tracker CallTracker, conns *datasource.ConnectionManager, clients ClientDatabases, tokenBudget int, logger *zap.Logger) *Engine {
	return &Engine{
		llmCfg:      llmCfg,
		graphReader: graphReader,
		cache:       cache,
		tracker:     tracker,
		conns:       conns,
		clients:     clients,
		tokenBudget: tokenBudget,
		logger:      logger.Named("engine"),
	}
}

const plannerJSONDoc = `Reply with strict JSON of the shape {"mode": "summary_only"|"sql_only"|"sql_and_summary", "summary": string, "sql": string}. Use "summary_only" when no query is needed and just answer in "summary". Use "sql_only" or "sql_and_summary" when a SQL SELECT against the schema below answers the question; put the statement in "sql". Never include DDL or write statements.`

// Chat is the engine's single operation: chat(request) -> response.
func (e *Engine) Chat(ctx context.Context, req model.ChatRequest) model.ChatResponse {
	history := trimHistory(req.History, e.tokenBudget)
	fullHistory := append(append([]model.Message{}, req.History...), model.Message{Role: model.MessageUser, Content: req.UserMessage})

	switch req.AgentName {
	case model.AgentConversational:
		return e.conversationalChat(ctx, req, history, fullHistory)
	default:
		return e.engineAgentChat(ctx, req, history, fullHistory)
	}
}

type plannerResult struct {
	Mode    string `json:"mode"`
	Summary string `json:"summary"`
	SQL     string `json:"sql"`
}

func (e *Engine) conversationalChat(ctx context.Context, req model.ChatRequest, history, fullHistory []model.Message) model.ChatResponse {
	cacheKey := model.CacheKey(req.ClientID, req.UserMessage)
	if cached, ok := e.cache.Get(ctx, cacheKey); ok {
		cached.FullHistory = fullHistory
		return cached
	}

	contextStr, err := schemacontext.Build(ctx, e.graphReader, req.ClientID)
	if err != nil {
		e.logger.Warn("schema context build failed", zap.String("client_id", req.ClientID), zap.Error(err))
	}
	systemMessage := contextStr + "\n\n" + plannerJSONDoc

	client, err := llm.NewClientFor(e.llmCfg, req.ModelName, e.logger)
	if err != nil {
		return model.ChatResponse{Mode: model.ModeSummaryOnly, Error: string(apperrors.KindLLMUnavailable), Summary: "the planner is unavailable", FullHistory: fullHistory}
	}

	prompt := renderTranscript(history) + "user: " + req.UserMessage
	result, genErr := client.GenerateResponse(ctx, prompt, systemMessage, 0, defaultTokenBudget, true)
	if e.tracker != nil {
		e.recordCall(ctx, "conversational_planner", client, result, genErr)
	}
	if genErr != nil {
		return model.ChatResponse{Mode: model.ModeSummaryOnly, Error: string(apperrors.KindLLMUnavailable), Summary: "the planner could not be reached", FullHistory: fullHistory}
	}

	plan, err := llm.ParseJSONResponse[plannerResult](result.Content)
	if err != nil {
		return model.ChatResponse{Mode: model.ModeSummaryOnly, Error: string(apperrors.KindLLMMalformed), Summary: "the planner returned a malformed response", FullHistory: fullHistory}
	}

	resp := model.ChatResponse{
		Mode:        model.ResponseMode(plan.Mode),
		Summary:     plan.Summary,
		SQL:         plan.SQL,
		FullHistory: fullHistory,
	}

	if plan.SQL != "" {
		if resp.Mode == model.ModeSummaryOnly {
			resp.Mode = model.ModeSQLAndSummary
		}

		executor, execErr := e.executorFor(ctx, req.ClientID)
		if execErr != nil {
			resp.Mode = model.ModeSummaryOnly
			resp.Error = string(apperrors.KindDBUnavailable)
			resp.Summary = execErr.Error()
			return resp
		}

		result := executeSQL(ctx, executor, plan.SQL)
		switch {
		case result.Blocked != "":
			resp.Mode = model.ModeSummaryOnly
			resp.Error = string(result.Kind)
			resp.Summary = result.Blocked
		case result.DriverError != "":
			resp.Mode = model.ModeSummaryOnly
			resp.Error = string(result.Kind)
			resp.Summary = "the query failed: " + result.DriverError
		case result.Dataframe != nil:
			resp.Dataframe = result.Dataframe
			resp.ChartSuggestion = chartHint(result.Dataframe)
			if resp.Mode == model.ModeSQLAndSummary {
				resp.Summary = e.narrativeSummary(ctx, client, req.UserMessage, result.Dataframe)
			}
		}
	}

	if resp.Error == "" && resp.Dataframe != nil {
		e.cache.Set(ctx, cacheKey, resp)
	}
	return resp
}

func (e *Engine) narrativeSummary(ctx context.Context, client llm.LLMClient, question string, df *model.Dataframe) string {
	prompt := fmt.Sprintf("The user asked: %q\nThe query returned %d row(s) with columns: %s.\nWrite one short, data-aware sentence summarizing the result.", question, len(df.Rows), strings.Join(df.Columns, ", "))
	result, err := client.GenerateResponse(ctx, prompt, "You summarize SQL query results for a business user in one sentence.", 0.1, 200, false)
	if e.tracker != nil {
		e.recordCall(ctx, "conversational_narrative", client, result, err)
	}
	if err != nil {
		return fmt.Sprintf("Returned %d row(s).", len(df.Rows))
	}
	return strings.TrimSpace(result.Content)
}

const engineAgentSystemPrompt = `Reply with a single raw SQL SELECT statement that answers the question, and nothing else: no explanation, no code fences, no DDL or write statements.`

func (e *Engine) engineAgentChat(ctx context.Context, req model.ChatRequest, history, fullHistory []model.Message) model.ChatResponse {
	contextStr, err := schemacontext.Build(ctx, e.graphReader, req.ClientID)
	if err != nil {
		e.logger.Warn("schema context build failed", zap.String("client_id", req.ClientID), zap.Error(err))
	}
	systemMessage := contextStr + "\n\n" + engineAgentSystemPrompt

	client, err := llm.NewClientFor(e.llmCfg, req.ModelName, e.logger)
	if err != nil {
		return model.ChatResponse{Mode: model.ModeSummaryOnly, Error: string(apperrors.KindLLMUnavailable), Summary: "the engine agent is unavailable", FullHistory: fullHistory}
	}

	prompt := renderTranscript(history) + "user: " + req.UserMessage
	result, genErr := client.GenerateResponse(ctx, prompt, systemMessage, 0, defaultTokenBudget, false)
	if e.tracker != nil {
		e.recordCall(ctx, "engine_agent", client, result, genErr)
	}
	if genErr != nil {
		return model.ChatResponse{Mode: model.ModeSummaryOnly, Error: string(apperrors.KindLLMUnavailable), Summary: "the engine agent could not be reached", FullHistory: fullHistory}
	}

	resp := model.ChatResponse{Mode: model.ModeSQLOnly, SQL: strings.TrimSpace(result.Content), FullHistory: fullHistory}

	executor, execErr := e.executorFor(ctx, req.ClientID)
	if execErr != nil {
		resp.Mode = model.ModeSummaryOnly
		resp.Error = string(apperrors.KindDBUnavailable)
		resp.Summary = execErr.Error()
		return resp
	}

	execution := executeSQL(ctx, executor, resp.SQL)
	switch {
	case execution.Blocked != "":
		resp.Mode = model.ModeSummaryOnly
		resp.Error = string(execution.Kind)
		resp.Summary = execution.Blocked
	case execution.DriverError != "":
		resp.Mode = model.ModeSummaryOnly
		resp.Error = string(execution.Kind)
		resp.Summary = "the query failed: " + execution.DriverError
	case execution.Dataframe != nil:
		resp.Mode = model.ModeSQLAndSummary
		resp.Dataframe = execution.Dataframe
		resp.ChartSuggestion = chartHint(execution.Dataframe)
		resp.Summary = fmt.Sprintf("Query returned %d row(s).", len(execution.Dataframe.Rows))
	}
	return resp
}

func (e *Engine) executorFor(ctx context.Context, clientID string) (datasource.QueryExecutor, error) {
	driver, params, err := e.clients.Resolve(clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve client %s: %w", clientID, err)
	}
	adapter, err := e.conns.GetOrCreate(ctx, clientID, driver, params)
	if err != nil {
		return nil, fmt.Errorf("connect client %s: %w", clientID, err)
	}
	return adapter, nil
}

func (e *Engine) recordCall(ctx context.Context, caller string, client llm.LLMClient, result *llm.GenerateResponseResult, callErr error) {
	var promptTokens, completionTokens int
	if result != nil {
		promptTokens, completionTokens = result.PromptTokens, result.CompletionTokens
	}
	e.tracker.Record(ctx, caller, client.GetModel(), promptTokens, completionTokens, callErr)
}
