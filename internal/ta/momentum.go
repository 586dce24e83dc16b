package ta

import "math"

// ROCSeries is the rate of change over period bars, as a fraction.
func ROCSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return nil
	}
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := period; i < len(values); i++ {
		base := values[i-period]
		if base == 0 {
			continue
		}
		out[i] = (values[i] - base) / base
	}
	return out
}

// ZScore places v relative to the window's mean in standard deviations.
// A zero-variance window yields 0.
func ZScore(window []float64, v float64) float64 {
	mean, std := MeanStd(window)
	if std == 0 {
		return 0
	}
	return (v - mean) / std
}

// VolumeZScores scores each bar's volume against the trailing window.
func VolumeZScores(volumes []float64, period int) []float64 {
	if period <= 1 || len(volumes) < period {
		return nil
	}
	out := make([]float64, len(volumes))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := period - 1; i < len(volumes); i++ {
		out[i] = ZScore(volumes[i-period+1:i+1], volumes[i])
	}
	return out
}
