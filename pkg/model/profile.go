package model

// IDPattern classifies the shape of identifier-like string values.
type IDPattern string

const (
	IDPatternNone      IDPattern = ""
	IDPatternNumericID IDPattern = "numeric_id"
	IDPatternUUID      IDPattern = "uuid"
	IDPatternPrefixed  IDPattern = "prefixed_id"
)

// DatePattern classifies the shape of date-like string values.
type DatePattern string

const (
	DatePatternNone    DatePattern = ""
	DatePatternISO8601 DatePattern = "ISO_8601"
	DatePatternUS      DatePattern = "US_DATE"
	DatePatternEU      DatePattern = "EU_DATE"
)

// Patterns summarizes the shape of a column's non-null values.
type Patterns struct {
	IDPattern   IDPattern   `json:"id_pattern"`
	DatePattern DatePattern `json:"date_pattern"`
	Email       bool        `json:"email_pattern"`
	EnumLike    bool        `json:"enum_like"`
	IsBinary    bool        `json:"is_binary"`
}

// Anomalies summarizes per-column data-quality signals.
type Anomalies struct {
	HasOutliers   bool    `json:"has_outliers"`
	OutlierCount  int     `json:"outlier_count"`
	DuplicateRate float64 `json:"duplicate_rate"`
	TypeMismatch  bool    `json:"type_mismatch"`
}

// ValueCount is one (value, count) pair in a top-values list.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// NumericStats holds descriptive statistics computed over numeric-coerced
// values; populated only for numeric columns.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// ColumnProfile is the per-(table,column) output of the data profiler.
type ColumnProfile struct {
	TotalRows        int64         `json:"total_rows"`
	NullCount        int64         `json:"null_count"`
	NullPct          float64       `json:"null_pct"`
	DistinctCount    int64         `json:"distinct_count"`
	DataType         string        `json:"data_type"`
	Numeric          *NumericStats `json:"numeric,omitempty"`
	TopValues        []ValueCount  `json:"top_values,omitempty"`
	CardinalityRatio float64       `json:"cardinality_ratio,omitempty"`
	SampleValues     []string      `json:"sample_values,omitempty"`
	Patterns         Patterns      `json:"patterns"`
	Anomalies        Anomalies     `json:"anomalies"`
	Error            string        `json:"error,omitempty"`
}

// TableProfile maps column name to its profile.
type TableProfile map[string]ColumnProfile

// SchemaProfile maps table name to its per-column profiles; the on-disk
// form of `02_data_profile.json`.
type SchemaProfile map[string]TableProfile
