package engine

import (
	"time"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// chartHint applies the conversational engine's simple chart-suggestion
// rule to a dataframe's column shape: one categorical + one numeric ⇒ bar;
// two numerics ⇒ scatter; temporal + numeric ⇒ line; else none.
func chartHint(df *model.Dataframe) model.ChartSuggestion {
	if df == nil || len(df.Columns) == 0 || len(df.Rows) == 0 {
		return model.ChartNone
	}

	var numeric, temporal, categorical int
	for _, col := range df.Columns {
		switch columnKind(df, col) {
		case kindNumeric:
			numeric++
		case kindTemporal:
			temporal++
		default:
			categorical++
		}
	}

	switch {
	case categorical == 1 && numeric == 1:
		return model.ChartBar
	case numeric >= 2:
		return model.ChartScatter
	case temporal >= 1 && numeric >= 1:
		return model.ChartLine
	default:
		return model.ChartNone
	}
}

type columnValueKind int

const (
	kindCategorical columnValueKind = iota
	kindNumeric
	kindTemporal
)

// columnKind inspects the first non-nil value of col across df's rows to
// classify it. The dataframe carries no catalog type information, only raw
// decoded values, so classification is by Go value shape.
func columnKind(df *model.Dataframe, col string) columnValueKind {
	for _, row := range df.Rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case int, int32, int64, float32, float64:
			return kindNumeric
		case time.Time:
			return kindTemporal
		case string:
			if looksTemporal(val) {
				return kindTemporal
			}
			return kindCategorical
		default:
			return kindCategorical
		}
	}
	return kindCategorical
}

func looksTemporal(s string) bool {
	layouts := []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
