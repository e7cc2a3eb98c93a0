// Package pipeline implements the offline ingestion pipeline: metadata
// reading (C1), data profiling (C2), relationship detection (C3),
// fingerprinting (C4), semantic assembly (C5), and LLM enrichment (C6).
// Graph building (C7) lives in pkg/graph; Run wires every phase together
// and persists the artifact set named in §6.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/artifact"
	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/graph"
	"github.com/ekaya-inc/schema-intel/pkg/llm"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// GraphStore is the queryable graph store's write side, satisfied by
// pkg/graph/neo4jstore.Store.
type GraphStore interface {
	Upsert(ctx context.Context, kg model.KnowledgeGraph) error
}

// Result is everything the pipeline produced for one client, for callers
// that want the in-memory artifacts rather than re-reading them from disk.
type Result struct {
	Schema        model.RawSchema
	Profile       model.SchemaProfile
	Relationships model.RelationshipSet
	Fingerprints  model.FingerprintSet
	Layer         model.SemanticLayer
	Graph         model.KnowledgeGraph
}

// Run executes the full ingestion pipeline (C1-C7) for one client, in
// order, persisting every intermediate artifact atomically before the next
// phase begins (strict happens-before between phases). Tables within C2
// run across a bounded worker pool; the pipeline itself is single-threaded
// per client, matching §5's scheduling model — call Run concurrently
// across clients, never concurrently for the same client.
func Run(ctx context.Context, clientID string, adapter datasource.Adapter, schemaName string, llmClient llm.LLMClient, tracker CallTracker, graphStore GraphStore, artifactsDir string, cfg config.PipelineConfig, logger *zap.Logger) (Result, error) {
	dir := filepath.Join(artifactsDir, clientID)
	now := time.Now()
	log := logger.With(zap.String("client_id", clientID))

	log.Info("extracting schema metadata")
	schema, err := Extract(ctx, adapter, now, log)
	if err != nil {
		return Result{}, fmt.Errorf("extract schema for %s: %w", clientID, err)
	}
	if err := artifact.SaveAtomic(filepath.Join(dir, "01_schema_graph.json"), schema); err != nil {
		return Result{}, fmt.Errorf("save schema artifact: %w", err)
	}

	log.Info("profiling table data")
	profile := ProfileTables(ctx, adapter, schemaName, schema, cfg.BatchSize, cfg.WorkerPoolSize, log)
	if err := artifact.SaveAtomic(filepath.Join(dir, "02_data_profile.json"), profile); err != nil {
		return Result{}, fmt.Errorf("save profile artifact: %w", err)
	}

	log.Info("detecting relationships")
	relationships := DetectRelationships(ctx, adapter, schemaName, schema, profile, log)
	if err := artifact.SaveAtomic(filepath.Join(dir, "03_relationships_complete.json"), relationships); err != nil {
		return Result{}, fmt.Errorf("save relationships artifact: %w", err)
	}

	log.Info("fingerprinting tables")
	fingerprints := Fingerprint(schema, relationships)
	if err := artifact.SaveAtomic(filepath.Join(dir, "04_fingerprints.json"), fingerprints); err != nil {
		return Result{}, fmt.Errorf("save fingerprints artifact: %w", err)
	}

	log.Info("assembling semantic layer")
	layer := Assemble(clientID, schema, profile, fingerprints, relationships, now)
	layerPath := filepath.Join(dir, "semantic_layer_complete.json")
	if err := artifact.SaveAtomic(layerPath, layer); err != nil {
		return Result{}, fmt.Errorf("save semantic layer artifact: %w", err)
	}

	if llmClient != nil {
		log.Info("enriching tables with LLM descriptions")
		layer = Enrich(ctx, llmClient, tracker, layer, layerPath, log)
	}

	log.Info("building knowledge graph")
	kg := graph.Build(layer, now)
	if err := graph.SavePortable(dir, kg); err != nil {
		return Result{}, fmt.Errorf("save portable graph: %w", err)
	}

	if graphStore != nil {
		log.Info("loading knowledge graph into queryable store")
		if err := graphStore.Upsert(ctx, kg); err != nil {
			return Result{}, fmt.Errorf("upsert knowledge graph for %s: %w", clientID, err)
		}
	}

	return Result{
		Schema:        schema,
		Profile:       profile,
		Relationships: relationships,
		Fingerprints:  fingerprints,
		Layer:         layer,
		Graph:         kg,
	}, nil
}
