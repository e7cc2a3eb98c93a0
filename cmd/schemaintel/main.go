// Command schemaintel is the batch ingestion and conversational-serving
// entrypoint: "schemaintel ingest <client.yaml>..." runs the pipeline for
// one or more clients; "schemaintel serve <client.yaml>..." starts an HTTP
// server exposing the conversational engine (C9), a client/model discovery
// endpoint, and a tracker metrics endpoint.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/database"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	_ "github.com/ekaya-inc/schema-intel/pkg/datasource/mssql"
	_ "github.com/ekaya-inc/schema-intel/pkg/datasource/postgres"
	"github.com/ekaya-inc/schema-intel/pkg/engine"
	enginecache "github.com/ekaya-inc/schema-intel/pkg/engine/cache"
	"github.com/ekaya-inc/schema-intel/pkg/graph/neo4jstore"
	"github.com/ekaya-inc/schema-intel/pkg/llm"
	"github.com/ekaya-inc/schema-intel/pkg/model"
	"github.com/ekaya-inc/schema-intel/pkg/pipeline"
	"github.com/ekaya-inc/schema-intel/pkg/runledger"
	"github.com/ekaya-inc/schema-intel/pkg/tracker"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Exit codes per the batch-tool contract.
const (
	exitOK               = 0
	exitMisconfiguration = 1
	exitDependencyDown   = 2
	exitPartialFailure   = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: schemaintel <ingest|serve> <client.yaml>...")
		return exitMisconfiguration
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitMisconfiguration
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return exitMisconfiguration
	}
	defer func() { _ = logger.Sync() }()

	clients := engine.NewClientRegistry()
	for _, path := range os.Args[2:] {
		clientCfg, err := config.LoadClientConfig(path)
		if err != nil {
			logger.Error("failed to load client config", zap.String("path", path), zap.Error(err))
			return exitMisconfiguration
		}
		clients.Add(clientCfg)
	}

	switch os.Args[1] {
	case "ingest":
		return runIngest(cfg, clients, logger)
	case "serve":
		return runServe(cfg, clients, logger)
	default:
		fmt.Fprintln(os.Stderr, "usage: schemaintel <ingest|serve> <client.yaml>...")
		return exitMisconfiguration
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runIngest(cfg *config.Config, clients *engine.ClientRegistry, logger *zap.Logger) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	llmClient, err := llm.NewDefaultClient(&cfg.LLM, logger)
	if err != nil {
		logger.Error("llm client unavailable", zap.Error(err))
		return exitDependencyDown
	}

	apiTracker, err := tracker.New(cfg.Tracker, nil, logger)
	if err != nil {
		logger.Error("tracker unavailable", zap.Error(err))
		return exitDependencyDown
	}

	graphStore, err := neo4jstore.NewStore(cfg.Neo4j, logger)
	if err != nil {
		logger.Warn("graph store unavailable, ingestion will skip queryable persistence", zap.Error(err))
		graphStore = nil
	}
	if graphStore != nil {
		defer func() { _ = graphStore.Close(ctx) }()
	}

	partial := false
	for _, clientID := range clients.ClientIDs() {
		driver, params, err := clients.Resolve(clientID)
		if err != nil {
			logger.Error("client config invalid", zap.String("client_id", clientID), zap.Error(err))
			partial = true
			continue
		}

		factory := datasource.GetFactory(driver)
		if factory == nil {
			logger.Error("datasource driver not compiled in", zap.String("driver", driver))
			partial = true
			continue
		}
		adapter, err := factory(ctx, params)
		if err != nil {
			logger.Error("failed to connect to client database", zap.String("client_id", clientID), zap.Error(err))
			partial = true
			continue
		}

		var store pipeline.GraphStore
		if graphStore != nil {
			store = graphStore
		}

		_, err = pipeline.Run(ctx, clientID, adapter, defaultSchemaName(driver), llmClient, apiTracker, store, cfg.ArtifactsDir, cfg.Pipeline, logger)
		_ = adapter.Close()
		if err != nil {
			logger.Error("ingestion failed", zap.String("client_id", clientID), zap.Error(err))
			partial = true
		}
	}

	if partial {
		return exitPartialFailure
	}
	return exitOK
}

func defaultSchemaName(driver string) string {
	if driver == "mssql" {
		return "dbo"
	}
	return "public"
}

func runServe(cfg *config.Config, clients *engine.ClientRegistry, logger *zap.Logger) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphStore, err := neo4jstore.NewStore(cfg.Neo4j, logger)
	if err != nil {
		logger.Error("graph store unavailable", zap.Error(err))
		return exitDependencyDown
	}
	defer func() { _ = graphStore.Close(ctx) }()

	resultCache, err := enginecache.New(cfg.Redis, logger)
	if err != nil {
		logger.Error("result cache unavailable", zap.Error(err))
		return exitDependencyDown
	}

	apiTracker, err := tracker.New(cfg.Tracker, nil, logger)
	if err != nil {
		logger.Error("tracker unavailable", zap.Error(err))
		return exitDependencyDown
	}

	ledger, ledgerPool, err := connectLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		logger.Warn("run ledger unavailable, proceeding without run bookkeeping", zap.Error(err))
	}
	if ledgerPool != nil {
		defer ledgerPool.Close()
	}
	_ = ledger

	conns := datasource.NewConnectionManager(datasource.DefaultConnectionTTL, logger)
	defer conns.Close()

	eng := engine.New(&cfg.LLM, graphStore, resultCache, apiTracker, conns, clients, 0, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", chatHandler(eng, logger))
	mux.HandleFunc("GET /api/discovery", discoveryHandler(clients, &cfg.LLM))
	mux.HandleFunc("GET /api/metrics", metricsHandler(apiTracker))

	srv := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving conversational engine", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", zap.Error(err))
		return exitDependencyDown
	}
	return exitOK
}

func connectLedger(ctx context.Context, cfg config.LedgerConfig, logger *zap.Logger) (*runledger.Ledger, *pgxpool.Pool, error) {
	migrationConn, err := sql.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger migration connection: %w", err)
	}
	defer migrationConn.Close()

	if err := database.RunMigrations(migrationConn, cfg.MigrationsPath); err != nil {
		return nil, nil, fmt.Errorf("run ledger migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{URL: cfg.ConnectionString()})
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger pool: %w", err)
	}
	return runledger.New(db.Pool), db.Pool, nil
}

func chatHandler(eng *engine.Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(model.ChatResponse{Mode: model.ModeSummaryOnly, Error: "malformed request body"})
			return
		}

		resp := eng.Chat(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("failed to encode chat response", zap.Error(err))
		}
	}
}

func discoveryHandler(clients *engine.ClientRegistry, llmCfg *config.LLMConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"client_ids":    clients.ClientIDs(),
			"agent_types":   []model.AgentKind{model.AgentConversational, model.AgentNeo4jEngine, model.AgentNetworkXEngine},
			"default_model": llmCfg.DefaultModel,
		})
	}
}

func metricsHandler(t *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(t.Summary())
	}
}
