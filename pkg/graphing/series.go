package graphing

import (
	"sort"
	"strings"
	"time"

	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/metrics"
)

// Chart categories, in page order.
const (
	CategoryInference = "Inference"
	CategoryResources = "Resources"
	CategoryDerived   = "Derived"
)

var categoryOrder = []string{CategoryInference, CategoryResources, CategoryDerived}

// Series holds one metric across logged reports.
type Series struct {
	Name     string
	Category string
	Times    []time.Time
	Values   []float64
}

// skipColumn reports columns that are identifiers or text, not metrics.
func skipColumn(k string) bool {
	switch k {
	case "timestamp", "model", "prompt", "response", "request_id", "host":
		return true
	}
	return strings.HasSuffix(k, exporting.JSONSuffix)
}

var (
	derivedNames  = nameSet(metrics.Names())
	resourceNames = nameSet(exporting.OrderedKeys(metrics.Merge(metrics.ResourceUsage{})))
)

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func categoryOf(name string) string {
	switch {
	case derivedNames[name]:
		return CategoryDerived
	case resourceNames[name]:
		return CategoryResources
	default:
		return CategoryInference
	}
}

// sortByTime orders records by their timestamp column. Records without a
// parseable timestamp keep their relative order at the end.
func sortByTime(records []exporting.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, okI := exporting.ToTime(records[i]["timestamp"])
		tj, okJ := exporting.ToTime(records[j]["timestamp"])
		if okI != okJ {
			return okI
		}
		return ti.Before(tj)
	})
}

// BuildSeries extracts every numeric column into a series, sorted by
// category then name. Records must already be in time order.
func BuildSeries(records []exporting.Record) []*Series {
	cols := make(map[string]bool)
	for _, r := range records {
		for k, v := range r {
			if skipColumn(k) {
				continue
			}
			if _, ok := exporting.ToFloat64Ok(v); ok {
				cols[k] = true
			}
		}
	}

	seriesMap := make(map[string]*Series, len(cols))
	for col := range cols {
		seriesMap[col] = &Series{Name: col, Category: categoryOf(col)}
	}

	for i, r := range records {
		ts, ok := exporting.ToTime(r["timestamp"])
		if !ok {
			ts = time.Unix(int64(i), 0)
		}
		for col, s := range seriesMap {
			if v, ok := exporting.ToFloat64Ok(r[col]); ok {
				s.Times = append(s.Times, ts)
				s.Values = append(s.Values, v)
			}
		}
	}

	rank := make(map[string]int, len(categoryOrder))
	for i, c := range categoryOrder {
		rank[c] = i
	}

	result := make([]*Series, 0, len(seriesMap))
	for _, s := range seriesMap {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return rank[result[i].Category] < rank[result[j].Category]
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func formatName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
