package profiling

import (
	"time"

	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/metrics"
)

// Report is the outcome of one metered call, shaped as the HTTP response.
type Report struct {
	RequestID string                `json:"request_id"`
	Timestamp time.Time             `json:"timestamp"` // completion time
	Host      string                `json:"host,omitempty"`
	Model     string                `json:"model"`
	Prompt    string                `json:"prompt"`
	Response  string                `json:"model_response"`
	WallClock float64               `json:"wall_clock_s"`
	Ollama    metrics.OllamaMetrics `json:"ollama_metrics"`
	Resources metrics.ResourceUsage `json:"resource_usage"`
	Derived   metrics.Set           `json:"all_novel_metrics"`
}

// Record flattens the report into one log row. Section fields are merged at
// the top level, so every column name is unique.
func (r *Report) Record() exporting.Record {
	rec := metrics.Merge(r.Ollama, r.Resources, r.Derived.Record())
	rec["timestamp"] = r.Timestamp.Format(exporting.TimestampLayout)
	rec["model"] = r.Model
	rec["prompt"] = r.Prompt
	rec["response"] = r.Response
	rec["request_id"] = r.RequestID
	rec["wall_clock_s"] = r.WallClock
	if r.Host != "" {
		rec["host"] = r.Host
	}
	return rec
}
