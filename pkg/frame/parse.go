package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gridwatch/pkg/model"
)

// Wire field names.
const (
	FieldComplete               = "complete"
	FieldSource                 = "source"
	FieldTimestep               = "timestep"
	FieldPowerExec              = "power_exec"
	FieldPowerQueue             = "power_queue"
	FieldPowerLimit             = "power_limit"
	FieldTraceITPowerMW         = "trace_it_power_mw"
	FieldRenewablePowerMW       = "renewable_power_mw"
	FieldGridImportMW           = "grid_import_mw"
	FieldBatteryPowerMW         = "battery_power_mw"
	FieldFlywheelPowerMW        = "flywheel_power_mw"
	FieldDataCenterTotalPowerMW = "data_center_total_power_mw"
	FieldAccumCO2Kg             = "accum_co2_kg"
	FieldInstabilityIndex       = "instability_index"
	FieldGridFrequencyHz        = "grid_frequency_hz"
	FieldBatterySOC             = "battery_soc_frac"
	FieldFlywheelSOC            = "flywheel_soc_frac"
)

const (
	DefaultPowerLimit      = 1.0
	DefaultGridFrequencyHz = 60.0
)

// RequiredFields must coerce to a number for a frame to be charted.
var RequiredFields = []string{
	FieldPowerExec,
	FieldPowerQueue,
	FieldTimestep,
	FieldGridImportMW,
	FieldRenewablePowerMW,
	FieldBatteryPowerMW,
	FieldFlywheelPowerMW,
}

// Parsed is the sanitized view of a RawFrame.
type Parsed struct {
	Source        model.Source
	SourceTag     string // as received; empty when missing
	SourceMissing bool

	Sample        model.Sample
	Valid         bool
	Invalid       []string // required fields that were not numeric
	TimestepValid bool

	// Stability is set when both stability fields are present and the
	// timestep is usable, whether or not the Sample is valid.
	Stability *model.StabilitySample

	BatterySOC       *float64
	FlywheelSOC      *float64
	EnergyConsumedMW *float64 // set only when the frame carries the field
}

// Parse coerces a RawFrame into a Sample. Absent or nil fields take their
// default; present values that are not numeric are NaN, which rejects the
// frame for required fields and falls back to the default otherwise.
func Parse(raw RawFrame) Parsed {
	var p Parsed
	p.Source, p.SourceTag, p.SourceMissing = parseSource(raw)

	var invalid []string
	required := func(field string, def float64) float64 {
		v := coerce(raw, field, def)
		if math.IsNaN(v) {
			invalid = append(invalid, field)
		}
		return v
	}
	optional := func(field string, def float64) float64 {
		v := coerce(raw, field, def)
		if math.IsNaN(v) {
			return def
		}
		return v
	}

	ts := coerce(raw, FieldTimestep, math.NaN())
	timestepOK := validTimestep(ts)
	if !timestepOK {
		invalid = append(invalid, FieldTimestep)
	}

	s := model.Sample{
		PowerExec:              required(FieldPowerExec, 0),
		PowerQueue:             required(FieldPowerQueue, 0),
		PowerLimit:             optional(FieldPowerLimit, DefaultPowerLimit),
		TraceITPowerMW:         optional(FieldTraceITPowerMW, 0),
		RenewablePowerMW:       required(FieldRenewablePowerMW, 0),
		GridImportMW:           required(FieldGridImportMW, 0),
		BatteryPowerMW:         required(FieldBatteryPowerMW, 0),
		FlywheelPowerMW:        required(FieldFlywheelPowerMW, 0),
		DataCenterTotalPowerMW: optional(FieldDataCenterTotalPowerMW, 0),
		AccumCO2Kg:             optional(FieldAccumCO2Kg, 0),
		InstabilityIndex:       optional(FieldInstabilityIndex, 0),
		GridFrequencyHz:        optional(FieldGridFrequencyHz, DefaultGridFrequencyHz),
	}
	if timestepOK {
		s.Timestep = int64(math.Trunc(ts))
	}
	p.Sample = s
	p.TimestepValid = timestepOK
	p.Invalid = invalid
	p.Valid = len(invalid) == 0

	_, hasIndex := raw[FieldInstabilityIndex]
	_, hasFreq := raw[FieldGridFrequencyHz]
	if hasIndex && hasFreq && timestepOK {
		p.Stability = &model.StabilitySample{
			Timestep:         s.Timestep,
			InstabilityIndex: s.InstabilityIndex,
			GridFrequencyHz:  s.GridFrequencyHz,
		}
	}

	if _, ok := raw[FieldBatterySOC]; ok {
		v := clampFraction(optional(FieldBatterySOC, 0))
		p.BatterySOC = &v
	}
	if _, ok := raw[FieldFlywheelSOC]; ok {
		v := clampFraction(optional(FieldFlywheelSOC, 0))
		p.FlywheelSOC = &v
	}
	if _, ok := raw[FieldDataCenterTotalPowerMW]; ok {
		v := s.DataCenterTotalPowerMW
		p.EnergyConsumedMW = &v
	}
	return p
}

func parseSource(raw RawFrame) (model.Source, string, bool) {
	v, ok := raw[FieldSource]
	if !ok || !truthy(v) {
		return model.SourceUnknown, "", true
	}
	tag, isString := v.(string)
	if !isString {
		tag = fmt.Sprint(v)
	}
	return model.ParseSource(tag), tag, false
}

// coerce returns def for absent or nil fields and NaN for values that are
// not numeric.
func coerce(raw RawFrame, field string, def float64) float64 {
	v, ok := raw[field]
	if !ok || v == nil {
		return def
	}
	f, ok := number(v)
	if !ok {
		return math.NaN()
	}
	return f
}

func number(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func validTimestep(ts float64) bool {
	return !math.IsNaN(ts) && ts >= math.MinInt64 && ts < math.MaxInt64
}

func clampFraction(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
