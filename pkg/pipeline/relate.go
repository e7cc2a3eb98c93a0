package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

const (
	inclusionThreshold     = 0.90
	inclusionFKMaxDistinct = 1000
	inclusionPKSampleCap   = 1000
)

var (
	namingIDSuffix   = regexp.MustCompile(`^(.+)_id$`)
	namingCamelID    = regexp.MustCompile(`^(.+)Id$`)
	namingCodeSuffix = regexp.MustCompile(`^(.+)_code$`)
)

// DetectRelationships runs the relationship detector (C3): three independent
// producers emit candidate edges, then a stable union keyed by
// (source_table, source_column, target_table, target_column) keeps the
// highest-confidence record for any key more than one producer agrees on.
// The operation is order-independent and never creates self-loops.
func DetectRelationships(ctx context.Context, reader datasource.TableReader, schemaName string, schema model.RawSchema, profile model.SchemaProfile, logger *zap.Logger) model.RelationshipSet {
	candidates := explicitRelationships(schema)
	candidates = append(candidates, namingRelationships(schema, profile)...)
	candidates = append(candidates, inclusionRelationships(ctx, reader, schemaName, schema, profile, logger)...)

	var noSelfLoops []model.Relationship
	for _, r := range candidates {
		if r.SourceTable == r.TargetTable {
			continue
		}
		noSelfLoops = append(noSelfLoops, r)
	}

	return mergeRelationships(noSelfLoops)
}

func explicitRelationships(schema model.RawSchema) []model.Relationship {
	var out []model.Relationship
	for tableName, table := range schema.Tables {
		for _, fk := range table.ExplicitForeignKeys {
			for i, col := range fk.Columns {
				if i >= len(fk.ReferredColumns) {
					continue
				}
				out = append(out, model.Relationship{
					SourceTable:  tableName,
					SourceColumn: col,
					TargetTable:  fk.ReferredTable,
					TargetColumn: fk.ReferredColumns[i],
					Type:         model.RelationshipExplicit,
					Confidence:   model.ConfidenceExplicit,
					Evidence:     "foreign_key_constraint",
				})
			}
		}
	}
	return out
}

// namingRelationships matches columns named "<name>_id", "<name>Id", or
// "<name>_code" where <name> is a known table with an id-like primary key: a
// single-column PK named id/key/code, or one whose distinct/row_count ratio
// exceeds 0.95.
func namingRelationships(schema model.RawSchema, profile model.SchemaProfile) []model.Relationship {
	var out []model.Relationship
	for sourceTable, table := range schema.Tables {
		for _, col := range table.Columns {
			stem, pattern, ok := namingStem(col.Name)
			if !ok {
				continue
			}
			for _, candidateName := range []string{stem, inflection.Singular(stem), inflection.Plural(stem)} {
				targetTable, ok := schema.Tables[candidateName]
				if !ok || candidateName == sourceTable {
					continue
				}
				targetCol, ok := idLikePK(candidateName, targetTable, profile)
				if !ok {
					continue
				}
				out = append(out, model.Relationship{
					SourceTable:  sourceTable,
					SourceColumn: col.Name,
					TargetTable:  candidateName,
					TargetColumn: targetCol,
					Type:         model.RelationshipNaming,
					Confidence:   model.ConfidenceNaming,
					Evidence:     "naming_pattern_" + pattern,
				})
				break
			}
		}
	}
	return out
}

func namingStem(column string) (stem, pattern string, ok bool) {
	if m := namingIDSuffix.FindStringSubmatch(column); m != nil {
		return m[1], `_id$`, true
	}
	if m := namingCamelID.FindStringSubmatch(column); m != nil {
		return m[1], `Id$`, true
	}
	if m := namingCodeSuffix.FindStringSubmatch(column); m != nil {
		return m[1], `_code$`, true
	}
	return "", "", false
}

func idLikePK(tableName string, table model.Table, profile model.SchemaProfile) (string, bool) {
	if len(table.PrimaryKey) != 1 {
		return "", false
	}
	pk := table.PrimaryKey[0]
	lower := strings.ToLower(pk)
	if lower == "id" || lower == "key" || lower == "code" {
		return pk, true
	}
	if tp, ok := profile[tableName]; ok {
		if cp, ok := tp[pk]; ok && table.RowCount > 0 {
			if float64(cp.DistinctCount)/float64(table.RowCount) > 0.95 {
				return pk, true
			}
		}
	}
	return "", false
}

// inclusionRelationships pairs every column with distinct_count < 1000
// against every other table's single-column primary key, computing
// |distinct(fk) ∩ distinct(pk_sample_up_to_1000)| / |distinct(fk)|. Null
// values are excluded from both sets.
func inclusionRelationships(ctx context.Context, reader datasource.TableReader, schemaName string, schema model.RawSchema, profile model.SchemaProfile, logger *zap.Logger) []model.Relationship {
	pkColumn := make(map[string]string, len(schema.Tables))
	for name, table := range schema.Tables {
		if len(table.PrimaryKey) == 1 {
			pkColumn[name] = table.PrimaryKey[0]
		}
	}
	if len(pkColumn) == 0 {
		return nil
	}

	pkSamples := make(map[string]map[string]struct{}, len(pkColumn))
	for table, col := range pkColumn {
		sample, err := columnSample(ctx, reader, schemaName, table, col, inclusionPKSampleCap)
		if err != nil {
			logger.Warn("inclusion pk sample failed", zap.String("table", table), zap.Error(err))
			continue
		}
		pkSamples[table] = sample
	}

	var out []model.Relationship
	for sourceTable, table := range schema.Tables {
		tableProfile := profile[sourceTable]
		for _, col := range table.Columns {
			cp, ok := tableProfile[col.Name]
			if !ok || cp.DistinctCount == 0 || cp.DistinctCount >= inclusionFKMaxDistinct {
				continue
			}
			var fkValues map[string]struct{}
			for targetTable, pkSample := range pkSamples {
				if targetTable == sourceTable && col.Name == pkColumn[sourceTable] {
					continue
				}
				if fkValues == nil {
					var err error
					fkValues, err = columnDistinctSet(ctx, reader, schemaName, sourceTable, col.Name)
					if err != nil {
						logger.Warn("inclusion fk scan failed", zap.String("table", sourceTable), zap.String("column", col.Name), zap.Error(err))
						break
					}
				}
				if len(fkValues) == 0 {
					continue
				}
				var matched int
				for v := range fkValues {
					if _, ok := pkSample[v]; ok {
						matched++
					}
				}
				ratio := float64(matched) / float64(len(fkValues))
				if ratio >= inclusionThreshold {
					out = append(out, model.Relationship{
						SourceTable:  sourceTable,
						SourceColumn: col.Name,
						TargetTable:  targetTable,
						TargetColumn: pkColumn[targetTable],
						Type:         model.RelationshipInclusion,
						Confidence:   roundTo(ratio, 4),
						Evidence:     fmt.Sprintf("value_overlap_%.0f", ratio*100) + "pct",
					})
				}
			}
		}
	}
	return out
}

var errSampleFull = errors.New("sample cap reached")

// columnSample collects up to cap distinct non-null values of column,
// stopping the scan early once the cap is reached.
func columnSample(ctx context.Context, reader datasource.TableReader, schemaName, table, column string, limit int) (map[string]struct{}, error) {
	set := make(map[string]struct{}, limit)
	err := reader.StreamTable(ctx, datasource.TableRef{Schema: schemaName, Name: table}, 50000, func(batch datasource.RowBatch) error {
		idx := columnIndex(batch.Columns, column)
		if idx == -1 {
			return nil
		}
		for _, row := range batch.Rows {
			if idx >= len(row) || row[idx] == nil {
				continue
			}
			set[stringify(row[idx])] = struct{}{}
			if len(set) >= limit {
				return errSampleFull
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errSampleFull) {
		return nil, err
	}
	return set, nil
}

func columnDistinctSet(ctx context.Context, reader datasource.TableReader, schemaName, table, column string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	err := reader.StreamTable(ctx, datasource.TableRef{Schema: schemaName, Name: table}, 50000, func(batch datasource.RowBatch) error {
		idx := columnIndex(batch.Columns, column)
		if idx == -1 {
			return nil
		}
		for _, row := range batch.Rows {
			if idx >= len(row) || row[idx] == nil {
				continue
			}
			set[stringify(row[idx])] = struct{}{}
		}
		return nil
	})
	return set, err
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

// mergeRelationships de-duplicates by (source_table, source_column,
// target_table, target_column), keeping the highest-confidence record for
// each key, and recomputes the summary counts and adjacency index.
func mergeRelationships(candidates []model.Relationship) model.RelationshipSet {
	best := make(map[[4]string]model.Relationship, len(candidates))
	for _, r := range candidates {
		key := r.Key()
		if existing, ok := best[key]; !ok || r.Confidence > existing.Confidence {
			best[key] = r
		}
	}

	relationships := make([]model.Relationship, 0, len(best))
	for _, r := range best {
		relationships = append(relationships, r)
	}
	sort.Slice(relationships, func(i, j int) bool {
		a, b := relationships[i], relationships[j]
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

	edgesBySource := make(map[string][]model.Relationship)
	summary := model.RelationshipSummary{Total: len(relationships)}
	for _, r := range relationships {
		edgesBySource[r.SourceTable] = append(edgesBySource[r.SourceTable], r)
		switch r.Type {
		case model.RelationshipExplicit:
			summary.ExplicitCount++
		case model.RelationshipNaming:
			summary.NamingCount++
		case model.RelationshipInclusion:
			summary.InclusionCount++
		}
	}

	return model.RelationshipSet{
		Relationships: relationships,
		EdgesBySource: edgesBySource,
		Summary:       summary,
	}
}
