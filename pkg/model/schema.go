// Package model declares the typed records that cross every stage boundary
// of the ingestion pipeline and the conversational engine. Every artifact
// persisted to disk or to the graph store is one of these types, marshaled
// as JSON; there are no dynamic maps on the wire.
package model

// Column is an ordered column declaration as read from the catalog.
type Column struct {
	Name     string  `json:"name"`
	SQLType  string  `json:"sql_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Comment  string  `json:"comment,omitempty"`
}

// Cardinality classifies a foreign key by whether its column set matches a
// unique constraint on the referrer.
type Cardinality string

const (
	CardinalityOneToOne Cardinality = "1:1"
	CardinalityOneToMany Cardinality = "1:n"
)

// ForeignKey is an explicit FK constraint read from the catalog.
type ForeignKey struct {
	Columns         []string    `json:"columns"`
	ReferredTable   string      `json:"referred_table"`
	ReferredColumns []string    `json:"referred_columns"`
	Cardinality     Cardinality `json:"cardinality"`
}

// Index is a secondary index declaration; not load-bearing for any
// invariant but kept for completeness of the raw catalog dump.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Table is the raw catalog entry for one base table.
type Table struct {
	RowCount           int64        `json:"row_count"`
	RowCountWarning    string       `json:"row_count_warning,omitempty"`
	PrimaryKey         []string     `json:"primary_key"`
	Columns            []Column     `json:"columns"`
	ExplicitForeignKeys []ForeignKey `json:"explicit_foreign_keys"`
	Indexes            []Index      `json:"indexes"`
	UniqueConstraints  [][]string   `json:"unique_constraints,omitempty"`
}

// RawSchema is the output of the metadata reader: a mapping from table name
// to its catalog entry.
type RawSchema struct {
	GeneratedAt string           `json:"generated_at"`
	Tables      map[string]Table `json:"tables"`
}

// ColumnNames returns the declared column names of table t, in declaration
// order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether t declares a column named name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
