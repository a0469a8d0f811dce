package replay

import (
	"math"

	"gridwatch/pkg/model"
)

const (
	queueScaleJobs = 300.0
	execScaleMW    = 10.0
)

// Frame is the wire payload of one telemetry sample.
type Frame struct {
	Timestep               int64     `msgpack:"timestep"`
	Source                 string    `msgpack:"source"`
	PendingJobsState       []float64 `msgpack:"pending_jobs_state"`
	ExecutingJobsState     []float64 `msgpack:"executing_jobs_state"`
	PowerQueue             float64   `msgpack:"power_queue"`
	PowerExec              float64   `msgpack:"power_exec"`
	PowerLimit             float64   `msgpack:"power_limit"`
	TraceITPowerMW         float64   `msgpack:"trace_it_power_mw"`
	RenewablePowerMW       float64   `msgpack:"renewable_power_mw"`
	GridImportMW           float64   `msgpack:"grid_import_mw"`
	BatteryPowerMW         float64   `msgpack:"battery_power_mw"`
	FlywheelPowerMW        float64   `msgpack:"flywheel_power_mw"`
	DataCenterTotalPowerMW float64   `msgpack:"data_center_total_power_mw"`
	BatterySOC             float64   `msgpack:"battery_soc_frac"`
	FlywheelSOC            float64   `msgpack:"flywheel_soc_frac"`
	AccumCO2Kg             float64   `msgpack:"accum_co2_kg"`
	InstabilityIndex       float64   `msgpack:"instability_index"`
	GridFrequencyHz        float64   `msgpack:"grid_frequency_hz"`
}

// Complete is the end-of-stream control message.
type Complete struct {
	Complete bool `msgpack:"complete"`
}

// MapRecord normalizes queue depth and IT power into the [0,1] power
// fractions and copies the rest through.
func MapRecord(rec TraceRecord, timestep int64, src model.Source) Frame {
	freq := 60.0
	if rec.GridFrequencyHz != nil {
		freq = *rec.GridFrequencyHz
	}
	return Frame{
		Timestep:               timestep,
		Source:                 src.String(),
		PendingJobsState:       []float64{},
		ExecutingJobsState:     []float64{},
		PowerQueue:             math.Min(rec.JobsPending/queueScaleJobs, 1),
		PowerExec:              math.Min(rec.TraceITPowerMW/execScaleMW, 1),
		PowerLimit:             1,
		TraceITPowerMW:         rec.TraceITPowerMW,
		RenewablePowerMW:       rec.RenewablePowerMW,
		GridImportMW:           rec.GridImportMW,
		BatteryPowerMW:         rec.BatteryPowerMW,
		FlywheelPowerMW:        rec.FlywheelPowerMW,
		DataCenterTotalPowerMW: rec.DataCenterTotalPowerMW,
		BatterySOC:             rec.BatterySOC,
		FlywheelSOC:            rec.FlywheelSOC,
		AccumCO2Kg:             rec.AccumCO2Kg,
		InstabilityIndex:       rec.InstabilityIndex,
		GridFrequencyHz:        freq,
	}
}
