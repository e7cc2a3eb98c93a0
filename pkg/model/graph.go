package model

// Domain is the enumerated business-domain tag assigned by the graph
// builder from table-name keywords.
type Domain string

const (
	DomainIncidentTracking    Domain = "incident_tracking"
	DomainEHSCompliance       Domain = "ehs_compliance"
	DomainFacilityOperations  Domain = "facility_operations"
	DomainPersonnelManagement Domain = "personnel_management"
	DomainGeneral             Domain = "general"
)

// ColumnRole classifies a column node at graph layer 4.
type ColumnRole string

const (
	ColumnRolePrimaryKey ColumnRole = "primary_key"
	ColumnRoleForeignKey ColumnRole = "foreign_key"
	ColumnRoleTemporal   ColumnRole = "temporal"
	ColumnRoleGeospatial ColumnRole = "geospatial"
	ColumnRoleStatus     ColumnRole = "status"
	ColumnRoleAudit      ColumnRole = "audit"
	ColumnRoleMeasure    ColumnRole = "measure"
	ColumnRoleText       ColumnRole = "text"
	ColumnRoleAttribute  ColumnRole = "attribute"
)

// EdgeCardinality is the foreign-key edge cardinality computed by the graph
// builder (distinct from model.Cardinality, which describes the raw
// catalog FK).
type EdgeCardinality string

const (
	EdgeManyToOne EdgeCardinality = "M:1"
	EdgeOneToMany EdgeCardinality = "1:M"
)

// SemanticRole classifies the business meaning of a relationship edge.
type SemanticRole string

const (
	SemanticRoleDetailToHeader SemanticRole = "detail_to_header"
	SemanticRoleChildToParent  SemanticRole = "child_to_parent"
	SemanticRoleReference      SemanticRole = "reference"
)

// ClientNode is the single layer-0 root node per client.
type ClientNode struct {
	ClientID string `json:"client_id"`
}

// DomainNode is a layer-1 node: one per business domain observed in the
// client's schema.
type DomainNode struct {
	ClientID string `json:"client_id"`
	Domain   Domain `json:"domain"`
}

// EntityNode is a layer-2 node aggregating the tables of one domain.
type EntityNode struct {
	ClientID string `json:"client_id"`
	Domain   Domain `json:"domain"`
	Name     string `json:"name"`
}

// TableNode is a layer-3 node; node id is the table name.
type TableNode struct {
	ClientID        string  `json:"client_id"`
	Name            string  `json:"name"`
	Domain          Domain  `json:"domain"`
	Role            Role    `json:"role"`
	RowCount        int64   `json:"row_count"`
	DataQualityScore float64 `json:"data_quality_score"`
	HasTemporal     bool    `json:"has_temporal"`
	HasGeospatial   bool    `json:"has_geospatial"`
}

// ColumnNode is a layer-4 node; node id is "table:column".
type ColumnNode struct {
	ClientID string     `json:"client_id"`
	Table    string     `json:"table"`
	Name     string     `json:"name"`
	SQLType  string     `json:"sql_type"`
	Role     ColumnRole `json:"column_role"`
}

// MetricNode is a layer-5 node: one per-table data quality score.
type MetricNode struct {
	ClientID string  `json:"client_id"`
	Table    string  `json:"table"`
	Score    float64 `json:"score"`
}

// RelationshipEdge is the single typed edge layer, table -> table.
type RelationshipEdge struct {
	ClientID     string          `json:"client_id"`
	SourceTable  string          `json:"source_table"`
	SourceColumn string          `json:"source_column"`
	TargetTable  string          `json:"target_table"`
	TargetColumn string          `json:"target_column"`
	Type         string          `json:"type"` // always "foreign_key"
	Cardinality  EdgeCardinality `json:"cardinality"`
	SemanticRole SemanticRole    `json:"semantic_role"`
	Confidence   float64         `json:"confidence"`
	Evidence     string          `json:"evidence"`
}

// KnowledgeGraph is the complete typed graph for one client, in a form
// suitable for a deterministic portable dump. Slices are kept sorted by id
// so two builds from identical inputs produce byte-identical JSON.
type KnowledgeGraph struct {
	ClientID    string             `json:"client_id"`
	GeneratedAt string             `json:"generated_at"`
	Client      ClientNode         `json:"client"`
	Domains     []DomainNode       `json:"domains"`
	Entities    []EntityNode       `json:"entities"`
	Tables      []TableNode        `json:"tables"`
	Columns     []ColumnNode       `json:"columns"`
	Metrics     []MetricNode       `json:"metrics"`
	Edges       []RelationshipEdge `json:"edges"`
}

// GraphSummary is the `knowledge_graph_summary.json` artifact: layer counts and
// per-table summaries.
type GraphSummary struct {
	DomainCount int                    `json:"domain_count"`
	EntityCount int                    `json:"entity_count"`
	TableCount  int                    `json:"table_count"`
	ColumnCount int                    `json:"column_count"`
	EdgeCount   int                    `json:"edge_count"`
	Tables      map[string]TableSummary `json:"tables"`
}

// TableSummary is the compact per-table line in GraphSummary.
type TableSummary struct {
	Role             Role    `json:"role"`
	RowCount         int64   `json:"row_count"`
	DataQualityScore float64 `json:"data_quality_score"`
	ColumnCount      int     `json:"column_count"`
}
