// Package metrics turns model timing counters and sampled resource usage
// into the flat metric sets reported for every inference call.
package metrics

// Record is a generic map type for metric records.
type Record = map[string]interface{}

// NanosPerSecond converts model-reported durations.
const NanosPerSecond = 1e9

// Counters are the timing and token counters reported by the model server
// for one call. Missing counters are zero.
type Counters struct {
	TotalDurationNs      int64
	LoadDurationNs       int64
	PromptEvalDurationNs int64
	EvalDurationNs       int64
	EvalCount            int64
	PromptEvalCount      int64
}

// TokensPerSecond is the generation rate, 0 when no eval time was reported.
func (c Counters) TokensPerSecond() float64 {
	if c.EvalDurationNs <= 0 {
		return 0
	}
	return float64(c.EvalCount) / float64(c.EvalDurationNs) * NanosPerSecond
}

// TotalDurationS is the model-reported total duration in seconds.
func (c Counters) TotalDurationS() float64 {
	return float64(c.TotalDurationNs) / NanosPerSecond
}

// OllamaMetrics is the ollama_metrics section of a report.
type OllamaMetrics struct {
	TotalDurationNs      int64   `json:"total_duration_ns"`
	TotalDurationS       float64 `json:"total_duration_s"`
	LoadDurationNs       int64   `json:"load_duration_ns"`
	PromptEvalDurationNs int64   `json:"prompt_eval_duration_ns"`
	EvalDurationNs       int64   `json:"eval_duration_ns"`
	EvalCount            int64   `json:"eval_count"`
	PromptEvalCount      int64   `json:"prompt_eval_count"`
	TokensPerSecond      float64 `json:"tokens_per_second"`
}

// NewOllamaMetrics builds the ollama_metrics section from raw counters.
func NewOllamaMetrics(c Counters) OllamaMetrics {
	return OllamaMetrics{
		TotalDurationNs:      c.TotalDurationNs,
		TotalDurationS:       c.TotalDurationS(),
		LoadDurationNs:       c.LoadDurationNs,
		PromptEvalDurationNs: c.PromptEvalDurationNs,
		EvalDurationNs:       c.EvalDurationNs,
		EvalCount:            c.EvalCount,
		PromptEvalCount:      c.PromptEvalCount,
		TokensPerSecond:      c.TokensPerSecond(),
	}
}
