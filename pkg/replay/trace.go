// Package replay streams recorded simulation traces as msgpack telemetry
// frames over a websocket.
package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gridwatch/pkg/model"
)

// TraceRecord is one timestep of a simulation trace file.
type TraceRecord struct {
	JobsPending            float64  `json:"jobs_pending"`
	TraceITPowerMW         float64  `json:"trace_it_power_mw"`
	RenewablePowerMW       float64  `json:"renewable_power_mw"`
	GridImportMW           float64  `json:"grid_import_mw"`
	BatteryPowerMW         float64  `json:"battery_power_mw"`
	FlywheelPowerMW        float64  `json:"flywheel_power_mw"`
	DataCenterTotalPowerMW float64  `json:"data_center_total_power_mw"`
	BatterySOC             float64  `json:"battery_soc_frac"`
	FlywheelSOC            float64  `json:"flywheel_soc_frac"`
	AccumCO2Kg             float64  `json:"accum_co2_kg"`
	InstabilityIndex       float64  `json:"instability_index"`
	GridFrequencyHz        *float64 `json:"grid_frequency_hz"`

	empty bool
}

func (r *TraceRecord) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	type plain TraceRecord
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = TraceRecord(p)
	r.empty = len(fields) == 0
	return nil
}

// Trace maps timestep to record.
type Trace map[int64]TraceRecord

// LoadTrace reads a {"<timestep>": record} JSON file.
func LoadTrace(path string) (Trace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", path, err)
	}
	var raw map[string]TraceRecord
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse trace %s: %w", path, err)
	}
	out := make(Trace, len(raw))
	for k, rec := range raw {
		ts, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace %s: bad timestep %q", path, k)
		}
		out[ts] = rec
	}
	return out, nil
}

// Item is one record scheduled for streaming.
type Item struct {
	Source   model.Source
	Timestep int64
	Record   TraceRecord
}

// Merge orders both traces by timestep. At equal timesteps all_jobs comes
// first. Empty records are skipped.
func Merge(allJobs, rlMin Trace) []Item {
	seen := make(map[int64]struct{}, len(allJobs)+len(rlMin))
	for ts := range allJobs {
		seen[ts] = struct{}{}
	}
	for ts := range rlMin {
		seen[ts] = struct{}{}
	}
	steps := make([]int64, 0, len(seen))
	for ts := range seen {
		steps = append(steps, ts)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })

	items := make([]Item, 0, len(allJobs)+len(rlMin))
	for _, ts := range steps {
		if rec, ok := allJobs[ts]; ok && !rec.empty {
			items = append(items, Item{Source: model.SourceAllJobs, Timestep: ts, Record: rec})
		}
		if rec, ok := rlMin[ts]; ok && !rec.empty {
			items = append(items, Item{Source: model.SourceRlMinInstability, Timestep: ts, Record: rec})
		}
	}
	return items
}
