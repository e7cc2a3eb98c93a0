package pipeline

import (
	"time"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// Assemble runs the semantic assembler (C5): a deterministic merge of the raw
// schema, data profile, fingerprints, and relationships into one
// client-keyed SemanticLayer. All summary fields are recomputed here, never
// carried over from an earlier layer.
func Assemble(clientID string, schema model.RawSchema, profile model.SchemaProfile, fingerprints model.FingerprintSet, relationships model.RelationshipSet, generatedAt time.Time) model.SemanticLayer {
	tables := make(map[string]model.TableEntry, len(schema.Tables))

	for name, table := range schema.Tables {
		entry := model.TableEntry{
			RowCount:            table.RowCount,
			RowCountWarning:     table.RowCountWarning,
			PrimaryKey:          table.PrimaryKey,
			Columns:             table.Columns,
			ExplicitForeignKeys: table.ExplicitForeignKeys,
			Indexes:             table.Indexes,
			ColumnProfiles:      profile[name],
		}

		if fp, ok := fingerprints[name]; ok {
			entry.Role = fp.Role
			entry.RiskProfile = fp.RiskProfile
			entry.RedlineComments = fp.RedlineComments
			entry.ClusterID = fp.ClusterID
			entry.HasTemporal = fp.HasTemporal
			entry.HasGeospatial = fp.HasGeospatial
		} else {
			entry.Role = model.RoleUnknown
			entry.RiskProfile = model.RiskLow
			entry.ClusterID = "orphan"
		}

		tables[name] = entry
	}

	for _, r := range relationships.Relationships {
		if entry, ok := tables[r.SourceTable]; ok {
			entry.OutgoingRelationships = append(entry.OutgoingRelationships, r)
			tables[r.SourceTable] = entry
		}
		if entry, ok := tables[r.TargetTable]; ok {
			entry.IncomingRelationships = append(entry.IncomingRelationships, r)
			tables[r.TargetTable] = entry
		}
	}

	return model.SemanticLayer{
		ClientID:    clientID,
		Version:     1,
		GeneratedAt: generatedAt.Format(time.RFC3339),
		Tables:      tables,
		Summary:     summarize(tables, relationships),
	}
}

func summarize(tables map[string]model.TableEntry, relationships model.RelationshipSet) model.SemanticSummary {
	var s model.SemanticSummary
	s.TableCount = len(tables)
	s.RelationshipCount = relationships.Summary.Total

	for _, entry := range tables {
		switch entry.Role {
		case model.RoleHub:
			s.HubCount++
		case model.RoleDimension:
			s.DimensionCount++
		case model.RoleDetail:
			s.DetailCount++
		default:
			s.UnknownCount++
		}
		if entry.RiskProfile == model.RiskHigh {
			s.HighRiskCount++
		}
		if entry.ClusterID == "orphan" {
			s.OrphanClusterCount++
		}
		if entry.HasTemporal {
			s.TemporalCount++
		}
		if entry.HasGeospatial {
			s.GeospatialCount++
		}
	}
	return s
}

// ReassembleSummary recomputes only the summary block of an existing layer,
// used after the LLM enricher (C6) mutates per-table descriptions without
// touching structural fields.
func ReassembleSummary(layer model.SemanticLayer) model.SemanticLayer {
	layer.Summary = model.SemanticSummary{
		TableCount:        len(layer.Tables),
		RelationshipCount: layer.Summary.RelationshipCount,
	}
	for _, entry := range layer.Tables {
		switch entry.Role {
		case model.RoleHub:
			layer.Summary.HubCount++
		case model.RoleDimension:
			layer.Summary.DimensionCount++
		case model.RoleDetail:
			layer.Summary.DetailCount++
		default:
			layer.Summary.UnknownCount++
		}
		if entry.RiskProfile == model.RiskHigh {
			layer.Summary.HighRiskCount++
		}
		if entry.ClusterID == "orphan" {
			layer.Summary.OrphanClusterCount++
		}
		if entry.HasTemporal {
			layer.Summary.TemporalCount++
		}
		if entry.HasGeospatial {
			layer.Summary.GeospatialCount++
		}
	}
	return layer
}
