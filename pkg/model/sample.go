package model

// Sample is a sanitized telemetry record kept in a charting window.
type Sample struct {
	Timestep               int64   `json:"timestep"`
	PowerExec              float64 `json:"power_exec"`
	PowerQueue             float64 `json:"power_queue"`
	PowerLimit             float64 `json:"power_limit"`
	TraceITPowerMW         float64 `json:"trace_it_power_mw"`
	RenewablePowerMW       float64 `json:"renewable_power_mw"`
	GridImportMW           float64 `json:"grid_import_mw"`
	BatteryPowerMW         float64 `json:"battery_power_mw"`
	FlywheelPowerMW        float64 `json:"flywheel_power_mw"`
	DataCenterTotalPowerMW float64 `json:"data_center_total_power_mw"`
	AccumCO2Kg             float64 `json:"accum_co2_kg"` // non-decreasing per source over the full stream
	InstabilityIndex       float64 `json:"instability_index"`
	GridFrequencyHz        float64 `json:"grid_frequency_hz"`
}

// StabilitySample is the narrow grid-stability record kept beside the chart window.
type StabilitySample struct {
	Timestep         int64   `json:"timestep"`
	InstabilityIndex float64 `json:"instability_index"`
	GridFrequencyHz  float64 `json:"grid_frequency_hz"`
}

// MergedRow aligns the instability index of both sources at one timestep.
// A nil side means that source has no stability sample at this timestep.
type MergedRow struct {
	Timestep int64    `json:"timestep"`
	AllJobs  *float64 `json:"allJobs"`
	RlMin    *float64 `json:"rlMin"`
}
