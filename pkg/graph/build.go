// Package graph implements the graph builder (C7): it classifies a
// SemanticLayer's tables into business domains, derives layer-0..5 nodes and
// the single foreign-key edge layer, and hands the result to both a portable
// on-disk dump and a queryable graph-store loader.
package graph

import (
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/inflection"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

var domainKeywords = []struct {
	keyword string
	domain  model.Domain
}{
	{"incident", model.DomainIncidentTracking},
	{"corrective", model.DomainEHSCompliance},
	{"facility", model.DomainFacilityOperations},
	{"employee", model.DomainPersonnelManagement},
}

// Build runs the graph builder (C7) over an enriched SemanticLayer.
func Build(layer model.SemanticLayer, generatedAt time.Time) model.KnowledgeGraph {
	kg := model.KnowledgeGraph{
		ClientID:    layer.ClientID,
		GeneratedAt: generatedAt.Format(time.RFC3339),
		Client:      model.ClientNode{ClientID: layer.ClientID},
	}

	tableNames := sortedKeys(layer.Tables)
	domainByTable := make(map[string]model.Domain, len(tableNames))
	domains := make(map[model.Domain]bool)

	for _, name := range tableNames {
		d := classifyDomain(name)
		domainByTable[name] = d
		domains[d] = true
	}

	for _, d := range sortedDomains(domains) {
		kg.Domains = append(kg.Domains, model.DomainNode{ClientID: layer.ClientID, Domain: d})
		kg.Entities = append(kg.Entities, model.EntityNode{ClientID: layer.ClientID, Domain: d, Name: string(d) + "_entities"})
	}

	for _, name := range tableNames {
		entry := layer.Tables[name]
		domain := domainByTable[name]
		score := dataQualityScore(entry)

		kg.Tables = append(kg.Tables, model.TableNode{
			ClientID:         layer.ClientID,
			Name:             name,
			Domain:           domain,
			Role:             entry.Role,
			RowCount:         entry.RowCount,
			DataQualityScore: score,
			HasTemporal:      entry.HasTemporal,
			HasGeospatial:    entry.HasGeospatial,
		})
		kg.Metrics = append(kg.Metrics, model.MetricNode{ClientID: layer.ClientID, Table: name, Score: score})

		outgoing := make(map[string]bool, len(entry.OutgoingRelationships))
		for _, r := range entry.OutgoingRelationships {
			outgoing[r.SourceColumn] = true
		}
		for _, col := range entry.Columns {
			kg.Columns = append(kg.Columns, model.ColumnNode{
				ClientID: layer.ClientID,
				Table:    name,
				Name:     col.Name,
				SQLType:  col.SQLType,
				Role:     classifyColumnRole(col, entry, outgoing[col.Name]),
			})
		}

		for _, r := range entry.OutgoingRelationships {
			target := layer.Tables[r.TargetTable]
			kg.Edges = append(kg.Edges, model.RelationshipEdge{
				ClientID:     layer.ClientID,
				SourceTable:  r.SourceTable,
				SourceColumn: r.SourceColumn,
				TargetTable:  r.TargetTable,
				TargetColumn: r.TargetColumn,
				Type:         "foreign_key",
				Cardinality:  edgeCardinality(entry, r.SourceColumn, target, r.TargetColumn),
				SemanticRole: semanticRole(r.SourceTable, target),
				Confidence:   r.Confidence,
				Evidence:     r.Evidence,
			})
		}
	}

	sort.Slice(kg.Edges, func(i, j int) bool {
		a, b := kg.Edges[i], kg.Edges[j]
		if a.SourceTable != b.SourceTable {
			return a.SourceTable < b.SourceTable
		}
		if a.SourceColumn != b.SourceColumn {
			return a.SourceColumn < b.SourceColumn
		}
		if a.TargetTable != b.TargetTable {
			return a.TargetTable < b.TargetTable
		}
		return a.TargetColumn < b.TargetColumn
	})

	return kg
}

// Summarize derives the `knowledge_graph_summary.json` artifact from a built
// graph: layer counts plus one compact line per table.
func Summarize(kg model.KnowledgeGraph) model.GraphSummary {
	s := model.GraphSummary{
		DomainCount: len(kg.Domains),
		EntityCount: len(kg.Entities),
		TableCount:  len(kg.Tables),
		ColumnCount: len(kg.Columns),
		EdgeCount:   len(kg.Edges),
		Tables:      make(map[string]model.TableSummary, len(kg.Tables)),
	}
	columnCounts := make(map[string]int, len(kg.Tables))
	for _, c := range kg.Columns {
		columnCounts[c.Table]++
	}
	for _, t := range kg.Tables {
		s.Tables[t.Name] = model.TableSummary{
			Role:             t.Role,
			RowCount:         t.RowCount,
			DataQualityScore: t.DataQualityScore,
			ColumnCount:      columnCounts[t.Name],
		}
	}
	return s
}

func classifyDomain(tableName string) model.Domain {
	lower := strings.ToLower(tableName)
	singular := inflection.Singular(lower)
	for _, dk := range domainKeywords {
		if strings.Contains(lower, dk.keyword) || strings.Contains(singular, dk.keyword) {
			return dk.domain
		}
	}
	return model.DomainGeneral
}

// dataQualityScore is the mean over columns of
// 0.5*(1-null_pct/100) + 0.3*(distinct_pct/100 if is_key else 1) + 0.2*(0.95 if distinct_pct<5 else 1).
func dataQualityScore(entry model.TableEntry) float64 {
	if len(entry.Columns) == 0 {
		return 0
	}
	isKey := keySet(entry)

	var total float64
	for _, col := range entry.Columns {
		profile, ok := entry.ColumnProfiles[col.Name]
		if !ok {
			continue
		}
		var distinctPct float64
		if entry.RowCount > 0 {
			if dp := entry.DistinctPct(col.Name); dp != nil {
				distinctPct = *dp
			}
		}

		term1 := 0.5 * (1 - profile.NullPct/100)
		var term2 float64
		if isKey[col.Name] {
			term2 = 0.3 * (distinctPct / 100)
		} else {
			term2 = 0.3
		}
		var term3 float64
		if distinctPct < 5 {
			term3 = 0.2 * 0.95
		} else {
			term3 = 0.2
		}
		total += term1 + term2 + term3
	}
	return total / float64(len(entry.Columns))
}

func keySet(entry model.TableEntry) map[string]bool {
	keys := make(map[string]bool)
	for _, c := range entry.PrimaryKey {
		keys[c] = true
	}
	return keys
}

func classifyColumnRole(col model.Column, entry model.TableEntry, isOutgoingFK bool) model.ColumnRole {
	lower := strings.ToLower(col.Name)
	switch {
	case containsString(entry.PrimaryKey, col.Name):
		return model.ColumnRolePrimaryKey
	case isOutgoingFK:
		return model.ColumnRoleForeignKey
	case matchesAny(lower, temporalKeywords):
		return model.ColumnRoleTemporal
	case matchesAny(lower, geospatialKeywords):
		return model.ColumnRoleGeospatial
	case strings.Contains(lower, "status") || strings.Contains(lower, "state"):
		return model.ColumnRoleStatus
	case strings.Contains(lower, "created_by") || strings.Contains(lower, "updated_by") || strings.Contains(lower, "deleted"):
		return model.ColumnRoleAudit
	}
	if profile, ok := entry.ColumnProfiles[col.Name]; ok && profile.Numeric != nil {
		return model.ColumnRoleMeasure
	}
	if isTextType(col.SQLType) {
		return model.ColumnRoleText
	}
	return model.ColumnRoleAttribute
}

func isTextType(sqlType string) bool {
	lower := strings.ToLower(sqlType)
	return strings.Contains(lower, "char") || strings.Contains(lower, "text")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// edgeCardinality: M:1 if the source column is not a key and the target
// column is a key, else 1:M.
func edgeCardinality(source model.TableEntry, sourceColumn string, target model.TableEntry, targetColumn string) model.EdgeCardinality {
	sourceIsKey := containsString(source.PrimaryKey, sourceColumn)
	targetIsKey := containsString(target.PrimaryKey, targetColumn)
	if !sourceIsKey && targetIsKey {
		return model.EdgeManyToOne
	}
	return model.EdgeOneToMany
}

func semanticRole(sourceTable string, target model.TableEntry) model.SemanticRole {
	lower := strings.ToLower(sourceTable)
	switch {
	case strings.Contains(lower, "detail"):
		return model.SemanticRoleDetailToHeader
	case target.Role == model.RoleDimension:
		return model.SemanticRoleChildToParent
	default:
		return model.SemanticRoleReference
	}
}

func sortedKeys(m map[string]model.TableEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDomains(m map[model.Domain]bool) []model.Domain {
	keys := make([]model.Domain, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func matchesAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

var (
	temporalKeywords   = []string{"date", "time", "timestamp", "created", "modified", "updated"}
	geospatialKeywords = []string{"location", "geo", "latitude", "longitude", "coords", "address"}
)
