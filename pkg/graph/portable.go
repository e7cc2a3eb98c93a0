package graph

import (
	"fmt"
	"path/filepath"

	"github.com/ekaya-inc/schema-intel/pkg/artifact"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// SavePortable writes the client's complete knowledge graph as one
// atomically-replaced file under dir, named "knowledge_graph_enhanced.json"
// per §6, plus the derived "knowledge_graph_summary.json".
func SavePortable(dir string, kg model.KnowledgeGraph) error {
	if err := artifact.SaveAtomic(filepath.Join(dir, "knowledge_graph_enhanced.json"), kg); err != nil {
		return fmt.Errorf("save portable graph: %w", err)
	}
	if err := artifact.SaveAtomic(filepath.Join(dir, "knowledge_graph_summary.json"), Summarize(kg)); err != nil {
		return fmt.Errorf("save graph summary: %w", err)
	}
	return nil
}

// LoadPortable reads a previously-saved knowledge graph for the client.
func LoadPortable(dir string) (model.KnowledgeGraph, error) {
	var kg model.KnowledgeGraph
	err := artifact.Load(filepath.Join(dir, "knowledge_graph_enhanced.json"), &kg)
	return kg, err
}
