// Package neo4jstore is the queryable-graph half of the graph builder's
// (C7) dual persistence: it loads a KnowledgeGraph into Neo4j with
// idempotent upserts keyed by (client_id, name) on tables and
// (client_id, table, name) on columns, and exposes a purge-by-client
// operation for reset.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// Store wraps a Neo4j driver session factory for one configured server.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore opens a Neo4j driver connection using the engine's Neo4j config.
func NewStore(cfg config.Neo4jConfig, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("open neo4j driver: %w", err)
	}
	return &Store{driver: driver, logger: logger.Named("graph.neo4j")}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Upsert loads kg into the store, idempotently: every node and edge is
// MERGEd on its natural key, so re-running a client's ingestion never
// duplicates nodes.
func (s *Store) Upsert(ctx context.Context, kg model.KnowledgeGraph) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := upsertClient(ctx, tx, kg); err != nil {
			return nil, err
		}
		for _, d := range kg.Domains {
			if err := upsertDomain(ctx, tx, d); err != nil {
				return nil, err
			}
		}
		for _, t := range kg.Tables {
			if err := upsertTable(ctx, tx, t); err != nil {
				return nil, err
			}
		}
		for _, c := range kg.Columns {
			if err := upsertColumn(ctx, tx, c); err != nil {
				return nil, err
			}
		}
		for _, e := range kg.Edges {
			if err := upsertEdge(ctx, tx, e); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("upsert knowledge graph for client %s: %w", kg.ClientID, err)
	}
	return nil
}

func upsertClient(ctx context.Context, tx neo4j.ManagedTransaction, kg model.KnowledgeGraph) error {
	_, err := tx.Run(ctx, `MERGE (c:Client {client_id: $client_id})`, map[string]any{"client_id": kg.ClientID})
	return err
}

func upsertDomain(ctx context.Context, tx neo4j.ManagedTransaction, d model.DomainNode) error {
	_, err := tx.Run(ctx, `
		MATCH (c:Client {client_id: $client_id})
		MERGE (dm:Domain {client_id: $client_id, name: $domain})
		MERGE (c)-[:HAS_DOMAIN]->(dm)
	`, map[string]any{"client_id": d.ClientID, "domain": string(d.Domain)})
	return err
}

func upsertTable(ctx context.Context, tx neo4j.ManagedTransaction, t model.TableNode) error {
	_, err := tx.Run(ctx, `
		MATCH (dm:Domain {client_id: $client_id, name: $domain})
		MERGE (tbl:Table {client_id: $client_id, name: $name})
		SET tbl.role = $role, tbl.row_count = $row_count,
		    tbl.data_quality_score = $score, tbl.has_temporal = $has_temporal,
		    tbl.has_geospatial = $has_geospatial
		MERGE (dm)-[:CONTAINS]->(tbl)
	`, map[string]any{
		"client_id": t.ClientID, "domain": string(t.Domain), "name": t.Name,
		"role": string(t.Role), "row_count": t.RowCount,
		"score": t.DataQualityScore, "has_temporal": t.HasTemporal, "has_geospatial": t.HasGeospatial,
	})
	return err
}

func upsertColumn(ctx context.Context, tx neo4j.ManagedTransaction, c model.ColumnNode) error {
	_, err := tx.Run(ctx, `
		MATCH (tbl:Table {client_id: $client_id, name: $table})
		MERGE (col:Column {client_id: $client_id, table: $table, name: $name})
		SET col.sql_type = $sql_type, col.column_role = $role
		MERGE (tbl)-[:HAS_COLUMN]->(col)
	`, map[string]any{
		"client_id": c.ClientID, "table": c.Table, "name": c.Name,
		"sql_type": c.SQLType, "role": string(c.Role),
	})
	return err
}

func upsertEdge(ctx context.Context, tx neo4j.ManagedTransaction, e model.RelationshipEdge) error {
	_, err := tx.Run(ctx, `
		MATCH (s:Table {client_id: $client_id, name: $source_table})
		MATCH (t:Table {client_id: $client_id, name: $target_table})
		MERGE (s)-[rel:FOREIGN_KEY {source_column: $source_column, target_column: $target_column}]->(t)
		SET rel.cardinality = $cardinality, rel.semantic_role = $semantic_role,
		    rel.confidence = $confidence, rel.evidence = $evidence
	`, map[string]any{
		"client_id": e.ClientID, "source_table": e.SourceTable, "source_column": e.SourceColumn,
		"target_table": e.TargetTable, "target_column": e.TargetColumn,
		"cardinality": string(e.Cardinality), "semantic_role": string(e.SemanticRole),
		"confidence": e.Confidence, "evidence": e.Evidence,
	})
	return err
}

// PurgeClient deletes every node and edge belonging to clientID, for a
// clean re-ingestion.
func (s *Store) PurgeClient(ctx context.Context, clientID string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (n {client_id: $client_id})
			DETACH DELETE n
		`, map[string]any{"client_id": clientID})
	})
	if err != nil {
		return fmt.Errorf("purge client %s: %w", clientID, err)
	}
	return nil
}

// Columns returns every column of table for the client, used by the schema
// context builder (C8).
func (s *Store) Columns(ctx context.Context, clientID, table string) ([]model.ColumnNode, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (col:Column {client_id: $client_id, table: $table})
			RETURN col.name AS name, col.sql_type AS sql_type, col.column_role AS role
			ORDER BY col.name
		`, map[string]any{"client_id": clientID, "table": table})
		if err != nil {
			return nil, err
		}
		var cols []model.ColumnNode
		for records.Next(ctx) {
			rec := records.Record()
			name, _ := rec.Get("name")
			sqlType, _ := rec.Get("sql_type")
			role, _ := rec.Get("role")
			cols = append(cols, model.ColumnNode{
				ClientID: clientID, Table: table,
				Name:    name.(string),
				SQLType: sqlType.(string),
				Role:    model.ColumnRole(role.(string)),
			})
		}
		return cols, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list columns for %s.%s: %w", clientID, table, err)
	}
	return result.([]model.ColumnNode), nil
}

// Tables returns every table node for the client, used by the schema
// context builder (C8).
func (s *Store) Tables(ctx context.Context, clientID string) ([]model.TableNode, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (tbl:Table {client_id: $client_id})
			RETURN tbl.name AS name, tbl.role AS role, tbl.row_count AS row_count,
			       tbl.data_quality_score AS score, tbl.has_temporal AS has_temporal,
			       tbl.has_geospatial AS has_geospatial
			ORDER BY tbl.name
		`, map[string]any{"client_id": clientID})
		if err != nil {
			return nil, err
		}
		var tables []model.TableNode
		for records.Next(ctx) {
			rec := records.Record()
			name, _ := rec.Get("name")
			role, _ := rec.Get("role")
			rowCount, _ := rec.Get("row_count")
			score, _ := rec.Get("score")
			hasTemporal, _ := rec.Get("has_temporal")
			hasGeospatial, _ := rec.Get("has_geospatial")
			tables = append(tables, model.TableNode{
				ClientID:         clientID,
				Name:             name.(string),
				Role:             model.Role(role.(string)),
				RowCount:         rowCount.(int64),
				DataQualityScore: score.(float64),
				HasTemporal:      hasTemporal.(bool),
				HasGeospatial:    hasGeospatial.(bool),
			})
		}
		return tables, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list tables for %s: %w", clientID, err)
	}
	return result.([]model.TableNode), nil
}

// OutgoingEdges returns every relationship edge with table as its source.
func (s *Store) OutgoingEdges(ctx context.Context, clientID, table string) ([]model.RelationshipEdge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (s:Table {client_id: $client_id, name: $table})-[rel:FOREIGN_KEY]->(t:Table)
			RETURN rel.source_column AS source_column, t.name AS target_table,
			       rel.target_column AS target_column, rel.cardinality AS cardinality,
			       rel.semantic_role AS semantic_role, rel.confidence AS confidence,
			       rel.evidence AS evidence
			ORDER BY t.name
		`, map[string]any{"client_id": clientID, "table": table})
		if err != nil {
			return nil, err
		}
		var edges []model.RelationshipEdge
		for records.Next(ctx) {
			rec := records.Record()
			sourceColumn, _ := rec.Get("source_column")
			targetTable, _ := rec.Get("target_table")
			targetColumn, _ := rec.Get("target_column")
			cardinality, _ := rec.Get("cardinality")
			semanticRole, _ := rec.Get("semantic_role")
			confidence, _ := rec.Get("confidence")
			evidence, _ := rec.Get("evidence")
			edges = append(edges, model.RelationshipEdge{
				ClientID:     clientID,
				SourceTable:  table,
				SourceColumn: sourceColumn.(string),
				TargetTable:  targetTable.(string),
				TargetColumn: targetColumn.(string),
				Type:         "foreign_key",
				Cardinality:  model.EdgeCardinality(cardinality.(string)),
				SemanticRole: model.SemanticRole(semanticRole.(string)),
				Confidence:   confidence.(float64),
				Evidence:     evidence.(string),
			})
		}
		return edges, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list outgoing edges for %s.%s: %w", clientID, table, err)
	}
	return result.([]model.RelationshipEdge), nil
}
