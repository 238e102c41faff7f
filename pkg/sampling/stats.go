package sampling

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Kind selects one of the sampled series.
type Kind int

const (
	CPU Kind = iota
	Memory
	Power
)

func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case Memory:
		return "memory"
	case Power:
		return "power"
	default:
		return "unknown"
	}
}

// Stats summarises a series. All fields are 0 for an empty series and
// StdDev is 0 for fewer than two samples.
type Stats struct {
	Count  int
	Avg    float64
	Peak   float64
	Min    float64
	StdDev float64
}

// Summarize computes Stats over values. StdDev is the sample (n-1) standard
// deviation.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{
		Count: len(values),
		Avg:   stat.Mean(values, nil),
		Peak:  floats.Max(values),
		Min:   floats.Min(values),
	}
	if len(values) >= 2 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}
