// Package schemacontext builds the bounded, deterministic text block (C8)
// that the conversational engine (C9) pins into its system prompt: one
// TABLE block per table, with columns and outgoing joins.
package schemacontext

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

const maxColumnsPerTable = 20

// GraphReader is the subset of the queryable graph store that the schema
// context builder needs; pkg/graph/neo4jstore.Store implements it.
type GraphReader interface {
	Tables(ctx context.Context, clientID string) ([]model.TableNode, error)
	Columns(ctx context.Context, clientID, table string) ([]model.ColumnNode, error)
	OutgoingEdges(ctx context.Context, clientID, table string) ([]model.RelationshipEdge, error)
}

// Build reads every table and column for client from the queryable graph
// and renders one deterministic block per table.
func Build(ctx context.Context, reader GraphReader, clientID string) (string, error) {
	tables, err := reader.Tables(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("list tables for %s: %w", clientID, err)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		if err := renderTable(ctx, &b, reader, clientID, t.Name); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func renderTable(ctx context.Context, b *strings.Builder, reader GraphReader, clientID, table string) error {
	columns, err := reader.Columns(ctx, clientID, table)
	if err != nil {
		return fmt.Errorf("list columns for %s.%s: %w", clientID, table, err)
	}
	edges, err := reader.OutgoingEdges(ctx, clientID, table)
	if err != nil {
		return fmt.Errorf("list outgoing edges for %s.%s: %w", clientID, table, err)
	}

	fmt.Fprintf(b, "TABLE %s:\n", table)

	shown := columns
	extra := 0
	if len(shown) > maxColumnsPerTable {
		extra = len(shown) - maxColumnsPerTable
		shown = shown[:maxColumnsPerTable]
	}
	cols := make([]string, len(shown))
	for i, c := range shown {
		cols[i] = fmt.Sprintf("%s (%s)", c.Name, c.SQLType)
	}
	b.WriteString("  Columns: " + strings.Join(cols, ", "))
	if extra > 0 {
		fmt.Fprintf(b, ", … +%d more", extra)
	}
	b.WriteString("\n")

	if len(edges) > 0 {
		joins := make([]string, len(edges))
		for i, e := range edges {
			joins[i] = fmt.Sprintf("%s(%s)", e.TargetTable, e.TargetColumn)
		}
		b.WriteString("  Joins to: " + strings.Join(joins, ", ") + "\n")
	}
	return nil
}
