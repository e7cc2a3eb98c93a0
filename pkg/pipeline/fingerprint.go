package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

var (
	riskKeywords = []string{"redline", "osha", "violation", "critical", "danger", "incident", "safety"}

	temporalKeywords   = []string{"date", "time", "timestamp", "created", "modified", "updated"}
	geospatialKeywords = []string{"location", "geo", "latitude", "longitude", "coords", "address"}
)

// Fingerprint runs the fingerprinter (C4): per-table role derivation, risk
// detection, temporal/geospatial flags, and BFS connected-component
// clustering over the undirected relationship graph.
func Fingerprint(schema model.RawSchema, relationships model.RelationshipSet) model.FingerprintSet {
	incoming := make(map[string]int, len(schema.Tables))
	outgoing := make(map[string]int, len(schema.Tables))
	adjacency := make(map[string]map[string]struct{}, len(schema.Tables))
	for name := range schema.Tables {
		adjacency[name] = make(map[string]struct{})
	}
	for _, r := range relationships.Relationships {
		outgoing[r.SourceTable]++
		incoming[r.TargetTable]++
		if r.SourceTable != r.TargetTable {
			if adjacency[r.SourceTable] != nil {
				adjacency[r.SourceTable][r.TargetTable] = struct{}{}
			}
			if adjacency[r.TargetTable] != nil {
				adjacency[r.TargetTable][r.SourceTable] = struct{}{}
			}
		}
	}

	clusters := clusterTables(schema, adjacency)

	result := make(model.FingerprintSet, len(schema.Tables))
	for name, table := range schema.Tables {
		fp := model.Fingerprint{
			Role:      deriveRole(name, incoming[name], outgoing[name]),
			ClusterID: clusters[name],
		}
		fp.RiskProfile, fp.RedlineComments = deriveRisk(table)
		fp.HasTemporal = hasKeyword(table, temporalKeywords)
		fp.HasGeospatial = hasKeyword(table, geospatialKeywords)
		result[name] = fp
	}
	return result
}

// deriveRole applies the fingerprinter's ordered role rule. "fact" is an
// internal fifth bucket normalized to hub/dimension before it leaves this
// function, per the four-valued external contract.
func deriveRole(name string, incoming, outgoing int) model.Role {
	lower := strings.ToLower(name)
	containsIncident := strings.Contains(lower, "incident")

	switch {
	case incoming == 0 && outgoing == 0:
		return model.RoleUnknown
	case incoming == 0 && outgoing > 0 && containsIncident:
		return model.RoleHub
	case incoming == 0 && outgoing > 0:
		return model.RoleDimension
	case incoming > 0 && outgoing == 0:
		return model.RoleDetail
	case incoming > 0 && outgoing > 0 && strings.HasSuffix(lower, "_details"):
		return model.RoleDetail
	default:
		// "fact": incoming>0 and outgoing>0, no "_details" suffix.
		if containsIncident {
			return model.RoleHub
		}
		return model.RoleDimension
	}
}

func deriveRisk(table model.Table) (model.RiskProfile, []string) {
	var comments []string
	for _, col := range table.Columns {
		if col.Comment == "" {
			continue
		}
		if matchesAny(col.Comment, riskKeywords) {
			comments = append(comments, col.Comment)
		}
	}
	if len(comments) > 0 {
		return model.RiskHigh, comments
	}
	return model.RiskLow, nil
}

func hasKeyword(table model.Table, keywords []string) bool {
	for _, col := range table.Columns {
		if matchesAny(col.Name, keywords) {
			return true
		}
	}
	return false
}

func matchesAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// clusterTables partitions every table into a connected component of the
// undirected relationship graph via BFS with a visited set (no recursion, so
// cyclic structures cannot overflow the stack). Tables with no edges at all
// form singleton "orphan" clusters.
func clusterTables(schema model.RawSchema, adjacency map[string]map[string]struct{}) map[string]string {
	names := make([]string, 0, len(schema.Tables))
	for name := range schema.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool, len(names))
	result := make(map[string]string, len(names))
	clusterIndex := 0

	for _, root := range names {
		if visited[root] {
			continue
		}
		queue := []string{root}
		visited[root] = true
		var members []string

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			members = append(members, current)

			neighbors := make([]string, 0, len(adjacency[current]))
			for n := range adjacency[current] {
				neighbors = append(neighbors, n)
			}
			sort.Strings(neighbors)
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}

		var clusterID string
		if len(members) == 1 {
			clusterID = "orphan"
		} else {
			clusterID = clusterLabel(clusterIndex)
			clusterIndex++
		}
		for _, m := range members {
			result[m] = clusterID
		}
	}
	return result
}

func clusterLabel(i int) string {
	return "cluster_" + strconv.Itoa(i)
}
