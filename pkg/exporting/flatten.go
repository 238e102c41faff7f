package exporting

import (
	"encoding/json"
	"sort"
)

// JSONSuffix marks columns holding JSON-encoded lists.
const JSONSuffix = "_json"

// FlattenRecord expands nested maps into underscore-prefixed keys and
// encodes slices as JSON strings, so that every value is a scalar.
func FlattenRecord(r Record) Record {
	if r == nil {
		return nil
	}
	if isFlat(r) {
		return r
	}
	out := make(Record, len(r))
	flattenInto(out, "", r)
	return out
}

func isFlat(r Record) bool {
	for _, v := range r {
		switch v.(type) {
		case map[string]interface{}, []interface{}, []map[string]interface{}:
			return false
		}
	}
	return true
}

func flattenInto(out Record, prefix string, r Record) {
	for k, v := range r {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flattenInto(out, key, val)
		case []interface{}, []map[string]interface{}:
			data, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[key+JSONSuffix] = string(data)
		default:
			out[key] = val
		}
	}
}

// LeadingColumns are written first, in this order, when present.
var LeadingColumns = []string{"timestamp", "model", "prompt", "response"}

// OrderedKeys returns the leading columns present in r followed by the
// remaining keys sorted.
func OrderedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	lead := make(map[string]bool, len(LeadingColumns))
	for _, k := range LeadingColumns {
		if _, ok := r[k]; ok {
			keys = append(keys, k)
			lead[k] = true
		}
	}

	rest := make([]string, 0, len(r))
	for k := range r {
		if !lead[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
