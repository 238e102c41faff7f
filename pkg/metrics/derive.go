package metrics

import (
	"math"
	"time"
)

// Inputs is everything a derived metric may depend on.
type Inputs struct {
	Counters  Counters
	Resources ResourceUsage
	// WallClock is the locally measured duration of the inference call.
	WallClock time.Duration
}

// Set maps derived metric names to values. Every name in Names() is present.
type Set map[string]float64

// definition is one derived metric. Formula must return 0 when its guard
// fails; non-finite results are replaced by 0 after evaluation.
type definition struct {
	Name    string
	Formula func(o *operands) float64
}

// operands caches the quantities shared by several formulas.
type operands struct {
	Inputs

	tps         float64
	totalS      float64
	wallS       float64
	energyJ     float64
	evalCount   float64
	promptCount float64
	totalNs     float64
	loadNs      float64
	promptNs    float64
	evalNs      float64
}

func newOperands(in Inputs) *operands {
	o := &operands{
		Inputs:      in,
		tps:         in.Counters.TokensPerSecond(),
		totalS:      in.Counters.TotalDurationS(),
		wallS:       in.WallClock.Seconds(),
		evalCount:   float64(in.Counters.EvalCount),
		promptCount: float64(in.Counters.PromptEvalCount),
		totalNs:     float64(in.Counters.TotalDurationNs),
		loadNs:      float64(in.Counters.LoadDurationNs),
		promptNs:    float64(in.Counters.PromptEvalDurationNs),
		evalNs:      float64(in.Counters.EvalDurationNs),
	}
	if o.wallS > 0 {
		o.energyJ = in.Resources.AvgPowerW * o.wallS
	}
	return o
}

// ratio returns num/den, or 0 when den is not positive.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// ratioBoth returns num/den only when both are positive.
func ratioBoth(num, den float64) float64 {
	if num <= 0 {
		return 0
	}
	return ratio(num, den)
}

var definitions = []definition{
	{"total_energy_j", func(o *operands) float64 { return o.energyJ }},
	{"time_per_token_s", func(o *operands) float64 { return ratio(o.totalS, o.evalCount) }},
	{"load_to_inference_ratio", func(o *operands) float64 { return ratio(o.loadNs, o.evalNs) }},
	{"memory_usage_per_token_mb", func(o *operands) float64 { return ratio(o.Resources.AvgRAMMB, o.evalCount) }},
	{"energy_per_token_j", func(o *operands) float64 { return ratio(o.energyJ, o.evalCount) }},
	{"power_spike_w", func(o *operands) float64 { return o.Resources.PeakPowerW - o.Resources.MinPowerW }},
	{"prompt_eval_ratio", func(o *operands) float64 { return ratio(o.promptNs, o.totalNs) }},
	{"time_per_prompt_eval_ns", func(o *operands) float64 { return o.promptNs }},
	{"prompt_to_generation_overhead_ratio", func(o *operands) float64 { return ratio(o.promptNs, o.evalNs) }},
	{"power_efficiency_index_tps_per_w", func(o *operands) float64 { return ratio(o.tps, o.Resources.AvgPowerW) }},
	{"cpu_stability_index", cpuStability},
	{"model_efficiency_index", func(o *operands) float64 { return ratio(o.tps, o.Resources.PeakRAMMB) }},
	{"peak_cpu_to_average_ratio", func(o *operands) float64 {
		return ratio(o.Resources.PeakCPUPercent, o.Resources.AvgCPUPercent)
	}},
	{"memory_variation_index", func(o *operands) float64 { return ratioBoth(o.Resources.MemStdDev, o.Resources.AvgRAMMB) }},
	{"peak_power_to_average_power_ratio", func(o *operands) float64 {
		return ratio(o.Resources.PeakPowerW, o.Resources.AvgPowerW)
	}},
	{"prompt_eval_tokens_per_s", func(o *operands) float64 {
		return ratioBoth(o.promptCount, o.promptNs/NanosPerSecond)
	}},
	{"eval_latency_per_token_ns", func(o *operands) float64 { return ratio(o.evalNs, o.evalCount) }},
	{"eval_memory_efficiency", func(o *operands) float64 { return ratio(o.tps, o.Resources.AvgRAMMB) }},
	{"token_production_energy_efficiency", func(o *operands) float64 {
		if o.energyJ <= 1e-9 {
			return 0
		}
		return o.evalCount / o.energyJ
	}},
	{"avg_cpu_to_power_ratio", func(o *operands) float64 { return ratio(o.Resources.AvgCPUPercent, o.Resources.AvgPowerW) }},
	{"peak_ram_to_peak_cpu_ratio", func(o *operands) float64 { return ratio(o.Resources.PeakRAMMB, o.Resources.PeakCPUPercent) }},
	{"time_weighted_power_factor", func(o *operands) float64 { return ratio(o.Resources.AvgPowerW, o.wallS) }},
	{"load_to_prompt_ratio", func(o *operands) float64 { return ratio(o.loadNs, o.promptNs) }},
	{"prompt_to_total_token_ratio", func(o *operands) float64 { return ratio(o.promptCount, o.evalCount) }},
	{"memory_to_cpu_ratio", func(o *operands) float64 { return ratio(o.Resources.PeakRAMMB, o.Resources.PeakCPUPercent) }},
	{"memory_to_power_ratio", func(o *operands) float64 { return ratio(o.Resources.AvgRAMMB, o.Resources.AvgPowerW) }},
	{"ram_usage_variation_index", func(o *operands) float64 { return ratioBoth(o.Resources.MemStdDev, o.Resources.AvgRAMMB) }},
	{"power_usage_variation_index", func(o *operands) float64 {
		return ratioBoth(o.Resources.PowerStdDev, o.Resources.AvgPowerW)
	}},
	{"sustained_inference_factor", func(o *operands) float64 {
		newTokens := o.evalCount / math.Max(1, o.promptCount+o.evalCount)
		return newTokens * ratio(o.tps, o.Resources.AvgPowerW)
	}},
	{"thermal_load_factor", func(o *operands) float64 {
		combined := (o.Resources.AvgCPUPercent + o.Resources.PeakCPUPercent) / 2
		return ratio(combined, o.Resources.AvgPowerW)
	}},
}

// cpuStability is 1 for a perfectly flat CPU trace and falls towards 0 as
// the trace varies. A call with no CPU samples scores 0.
func cpuStability(o *operands) float64 {
	if o.Resources.SampleCount == 0 {
		return 0
	}
	denom := math.Max(100, o.Resources.AvgCPUPercent)
	return math.Max(0, 1-o.Resources.CPUStdDev/denom)
}

// Names lists every derived metric in evaluation order.
func Names() []string {
	names := make([]string, len(definitions))
	for i, d := range definitions {
		names[i] = d.Name
	}
	return names
}

// Derive evaluates every definition. The result always holds every name and
// only finite values.
func Derive(in Inputs) Set {
	o := newOperands(in)
	set := make(Set, len(definitions))
	for _, d := range definitions {
		set[d.Name] = finite(d.Formula(o))
	}
	return set
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Record returns the set as a generic record.
func (s Set) Record() Record {
	r := make(Record, len(s))
	for k, v := range s {
		r[k] = v
	}
	return r
}
