package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/schema-intel/pkg/model"
)

func TestChartHint_NilOrEmptyDataframeIsNone(t *testing.T) {
	assert.Equal(t, model.ChartNone, chartHint(nil))
	assert.Equal(t, model.ChartNone, chartHint(&model.Dataframe{}))
}

func TestChartHint_OneCategoricalOneNumericIsBar(t *testing.T) {
	df := &model.Dataframe{
		Columns: []string{"region", "revenue"},
		Rows: []map[string]any{
			{"region": "west", "revenue": 100.0},
			{"region": "east", "revenue": 200.0},
		},
	}
	assert.Equal(t, model.ChartBar, chartHint(df))
}

func TestChartHint_TwoNumericsIsScatter(t *testing.T) {
	df := &model.Dataframe{
		Columns: []string{"height", "weight"},
		Rows: []map[string]any{
			{"height": 170, "weight": 70},
		},
	}
	assert.Equal(t, model.ChartScatter, chartHint(df))
}

func TestChartHint_TemporalPlusNumericIsLine(t *testing.T) {
	df := &model.Dataframe{
		Columns: []string{"day", "count"},
		Rows: []map[string]any{
			{"day": time.Now(), "count": 5},
		},
	}
	assert.Equal(t, model.ChartLine, chartHint(df))
}

func TestChartHint_StringLooksLikeISODateIsTemporal(t *testing.T) {
	df := &model.Dataframe{
		Columns: []string{"day", "count"},
		Rows: []map[string]any{
			{"day": "2026-01-15", "count": 5},
		},
	}
	assert.Equal(t, model.ChartLine, chartHint(df))
}

func TestChartHint_ThreeCategoricalsIsNone(t *testing.T) {
	df := &model.Dataframe{
		Columns: []string{"a", "b", "c"},
		Rows: []map[string]any{
			{"a": "x", "b": "y", "c": "z"},
		},
	}
	assert.Equal(t, model.ChartNone, chartHint(df))
}
