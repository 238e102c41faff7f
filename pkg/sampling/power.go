package sampling

// PowerModel approximates board power from CPU utilisation by linear
// interpolation between an idle and a full-load draw.
type PowerModel struct {
	BaseW float64
	MaxW  float64
}

// Estimate returns the power in watts at cpuPercent utilisation. Inputs
// outside [0, 100] are clamped.
func (m PowerModel) Estimate(cpuPercent float64) float64 {
	switch {
	case cpuPercent < 0:
		cpuPercent = 0
	case cpuPercent > 100:
		cpuPercent = 100
	}
	return m.BaseW + (m.MaxW-m.BaseW)*cpuPercent/100
}
