package telemetry

import "gridwatch/pkg/model"

// MaxAccumCO2 is the largest accumulated CO2 across both windows, floored
// at zero. It drops when the maximal sample is evicted.
func MaxAccumCO2(series ...[]model.Sample) float64 {
	max := 0.0
	for _, samples := range series {
		for _, s := range samples {
			if s.AccumCO2Kg > max {
				max = s.AccumCO2Kg
			}
		}
	}
	return max
}
