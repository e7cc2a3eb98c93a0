package pipeline

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/schema-intel/pkg/datasource"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

var (
	numericIDPattern  = regexp.MustCompile(`^\d+$`)
	uuidPattern       = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	prefixedIDPattern = regexp.MustCompile(`^[A-Z]{2,4}-\d{3,}$`)
	isoDatePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	usDatePattern     = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}`)
	euDatePattern     = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}`)
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	numericTypeKeywords = []string{"int", "numeric", "decimal", "float", "double", "real", "serial", "money"}
)

const (
	patternSampleSize = 100
	maxSampleValues   = 10
	maxSampleLen      = 100
	lowCardinality    = 100
)

// ProfileTables runs the data profiler (C2) over every table in schema that
// has a nonzero row count, streaming each table's rows in batches of
// batchSize and computing all per-column statistics in-process. Tables are
// independent of each other, so they run across a bounded worker pool
// (poolSize, default number of cores).
func ProfileTables(ctx context.Context, reader datasource.TableReader, schemaName string, schema model.RawSchema, batchSize, poolSize int, logger *zap.Logger) model.SchemaProfile {
	if batchSize <= 0 {
		batchSize = 50000
	}
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}

	var mu sync.Mutex
	profile := make(model.SchemaProfile, len(schema.Tables))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(poolSize)

	for name, table := range schema.Tables {
		if table.RowCount == 0 {
			continue
		}
		name, table := name, table
		group.Go(func() error {
			tableProfile, err := profileTable(gctx, reader, datasource.TableRef{Schema: schemaName, Name: name}, table, batchSize)
			if err != nil {
				logger.Warn("profile table failed", zap.String("table", name), zap.Error(err))
				return nil
			}
			mu.Lock()
			profile[name] = tableProfile
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return profile
}

func profileTable(ctx context.Context, reader datasource.TableReader, ref datasource.TableRef, table model.Table, batchSize int) (model.TableProfile, error) {
	columns := make(map[string][]any, len(table.Columns))
	for _, c := range table.Columns {
		columns[c.Name] = make([]any, 0, table.RowCount)
	}

	err := reader.StreamTable(ctx, ref, batchSize, func(batch datasource.RowBatch) error {
		for _, row := range batch.Rows {
			for i, col := range batch.Columns {
				if i >= len(row) {
					continue
				}
				columns[col] = append(columns[col], row[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stream table %s: %w", ref.Name, err)
	}

	result := make(model.TableProfile, len(table.Columns))
	for _, col := range table.Columns {
		result[col.Name] = profileColumn(columns[col.Name], col.SQLType)
	}
	return result, nil
}

func profileColumn(values []any, sqlType string) (cp model.ColumnProfile) {
	defer func() {
		if r := recover(); r != nil {
			cp = model.ColumnProfile{Error: fmt.Sprintf("profiling panic: %v", r)}
		}
	}()

	cp.TotalRows = int64(len(values))
	cp.DataType = sqlType

	var nonNull []any
	for _, v := range values {
		if v == nil {
			cp.NullCount++
		} else {
			nonNull = append(nonNull, v)
		}
	}
	if cp.TotalRows > 0 {
		cp.NullPct = roundTo(100*float64(cp.NullCount)/float64(cp.TotalRows), 2)
	}

	strs := make([]string, len(nonNull))
	for i, v := range nonNull {
		strs[i] = stringify(v)
	}

	distinct := make(map[string]int64, len(strs))
	for _, s := range strs {
		distinct[s]++
	}
	cp.DistinctCount = int64(len(distinct))

	if cp.DistinctCount < lowCardinality {
		cp.TopValues = topValues(distinct)
		if cp.TotalRows > 0 {
			cp.CardinalityRatio = roundTo(float64(cp.DistinctCount)/float64(cp.TotalRows), 4)
		}
	}

	sampleN := maxSampleValues
	if len(strs) < sampleN {
		sampleN = len(strs)
	}
	cp.SampleValues = make([]string, sampleN)
	for i := 0; i < sampleN; i++ {
		cp.SampleValues[i] = truncate(strs[i], maxSampleLen)
	}

	patternSample := strs
	if len(patternSample) > patternSampleSize {
		patternSample = patternSample[:patternSampleSize]
	}
	cp.Patterns = detectPatterns(patternSample, int(cp.DistinctCount))

	numeric, numericCount := coerceNumeric(strs)
	declaredNumeric := isNumericType(sqlType)
	if len(strs) > 0 && declaredNumeric && float64(numericCount)/float64(len(strs)) >= 0.5 {
		cp.Numeric = computeNumericStats(numeric)
	}

	cp.Anomalies = computeAnomalies(numeric, len(strs), int(cp.DistinctCount), declaredNumeric, numericCount)

	return cp
}

func stringify(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func topValues(distinct map[string]int64) []model.ValueCount {
	vals := make([]model.ValueCount, 0, len(distinct))
	for v, c := range distinct {
		vals = append(vals, model.ValueCount{Value: v, Count: c})
	}
	sort.Slice(vals, func(i, j int) bool {
		if vals[i].Count != vals[j].Count {
			return vals[i].Count > vals[j].Count
		}
		return vals[i].Value < vals[j].Value
	})
	if len(vals) > maxSampleValues {
		vals = vals[:maxSampleValues]
	}
	return vals
}

func detectPatterns(sample []string, distinctCount int) model.Patterns {
	var p model.Patterns
	if distinctCount == 2 {
		p.IsBinary = true
	}
	if distinctCount > 0 && distinctCount < 20 {
		p.EnumLike = true
	}

	var numericID, uuidCount, prefixedID, iso, us, eu, email int
	for _, s := range sample {
		switch {
		case numericIDPattern.MatchString(s):
			numericID++
		case uuidPattern.MatchString(s):
			uuidCount++
		case prefixedIDPattern.MatchString(s):
			prefixedID++
		}
		switch {
		case isoDatePattern.MatchString(s):
			iso++
		case usDatePattern.MatchString(s):
			us++
		case euDatePattern.MatchString(s):
			eu++
		}
		if emailPattern.MatchString(s) {
			email++
		}
	}
	n := len(sample)
	if n > 0 {
		p.Email = email > n/2
		switch {
		case uuidCount > n/2:
			p.IDPattern = model.IDPatternUUID
		case prefixedID > n/2:
			p.IDPattern = model.IDPatternPrefixed
		case numericID > n/2:
			p.IDPattern = model.IDPatternNumericID
		}
		switch {
		case iso > n/2:
			p.DatePattern = model.DatePatternISO8601
		case us > n/2:
			p.DatePattern = model.DatePatternUS
		case eu > n/2:
			p.DatePattern = model.DatePatternEU
		}
	}
	return p
}

func isNumericType(sqlType string) bool {
	lower := strings.ToLower(sqlType)
	for _, kw := range numericTypeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// coerceNumeric attempts float64 coercion of every string value, returning
// the successfully-coerced subset and how many succeeded.
func coerceNumeric(strs []string) ([]float64, int) {
	nums := make([]float64, 0, len(strs))
	for _, s := range strs {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			nums = append(nums, f)
		}
	}
	return nums, len(nums)
}

func computeNumericStats(nums []float64) *model.NumericStats {
	if len(nums) == 0 {
		return nil
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var variance float64
	for _, v := range sorted {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(sorted))

	return &model.NumericStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   roundTo(mean, 4),
		Median: roundTo(percentile(sorted, 50), 4),
		Std:    roundTo(math.Sqrt(variance), 4),
		Q25:    roundTo(percentile(sorted, 25), 4),
		Q75:    roundTo(percentile(sorted, 75), 4),
	}
}

// percentile expects sorted ascending input and uses linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func computeAnomalies(numeric []float64, nonNullCount, distinctCount int, declaredNumeric bool, numericCount int) model.Anomalies {
	var a model.Anomalies
	if nonNullCount > 0 {
		a.DuplicateRate = roundTo(1-float64(distinctCount)/float64(nonNullCount), 4)
	}
	if declaredNumeric && nonNullCount > 0 {
		a.TypeMismatch = float64(nonNullCount-numericCount)/float64(nonNullCount) > 0.5
	}
	if len(numeric) >= 4 {
		sorted := append([]float64(nil), numeric...)
		sort.Float64s(sorted)
		q25 := percentile(sorted, 25)
		q75 := percentile(sorted, 75)
		iqr := q75 - q25
		lower := q25 - 1.5*iqr
		upper := q75 + 1.5*iqr
		for _, v := range numeric {
			if v < lower || v > upper {
				a.OutlierCount++
			}
		}
		a.HasOutliers = a.OutlierCount > 0
	}
	return a
}

func roundTo(v float64, places int) float64 {
	mul := math.Pow(10, float64(places))
	return math.Round(v*mul) / mul
}
