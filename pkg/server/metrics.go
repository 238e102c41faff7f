package server

import (
	"InferenceMeter/pkg/profiling"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PromptRequestsTotal counts /process_prompt calls by outcome.
	PromptRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inference_meter_prompt_requests_total",
		Help: "Total number of prompt requests by status code",
	}, []string{"code"})

	// PromptsInFlight is the number of prompts currently being metered.
	PromptsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inference_meter_prompts_in_flight",
		Help: "Number of prompts currently being metered",
	})

	// InferenceWallSeconds is the histogram of measured call durations.
	InferenceWallSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inference_meter_wall_clock_seconds",
		Help:    "Histogram of locally measured inference durations",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	})

	// TokensPerSecond is the generation rate of the last successful call.
	TokensPerSecond = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inference_meter_tokens_per_second",
		Help: "Generation rate reported for the last call",
	})

	// AvgPowerWatts is the estimated average power of the last call.
	AvgPowerWatts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inference_meter_avg_power_watts",
		Help: "Estimated average power during the last call",
	})

	// EnergyJoulesTotal accumulates estimated energy over all calls.
	EnergyJoulesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inference_meter_energy_joules_total",
		Help: "Estimated energy consumed by all metered calls",
	})

	// TokensTotal accumulates generated tokens over all calls.
	TokensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inference_meter_generated_tokens_total",
		Help: "Total number of generated tokens",
	})

	// LiveClients is the number of connected tick websocket clients.
	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inference_meter_live_clients",
		Help: "Number of connected live tick clients",
	})
)

// RecordReport updates the gauges and counters from a finished call.
func RecordReport(r *profiling.Report) {
	InferenceWallSeconds.Observe(r.WallClock)
	TokensPerSecond.Set(r.Ollama.TokensPerSecond)
	AvgPowerWatts.Set(r.Resources.AvgPowerW)
	if e := r.Derived["total_energy_j"]; e > 0 {
		EnergyJoulesTotal.Add(e)
	}
	if r.Ollama.EvalCount > 0 {
		TokensTotal.Add(float64(r.Ollama.EvalCount))
	}
}
