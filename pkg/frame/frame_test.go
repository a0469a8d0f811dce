package frame

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"gridwatch/pkg/model"
)

func pack(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func validFrame() map[string]interface{} {
	return map[string]interface{}{
		"source":                     "all_jobs",
		"timestep":                   12,
		"power_exec":                 0.25,
		"power_queue":                0.5,
		"power_limit":                1.0,
		"trace_it_power_mw":          2.5,
		"renewable_power_mw":         1.25,
		"grid_import_mw":             3.0,
		"battery_power_mw":           -0.5,
		"flywheel_power_mw":          0.1,
		"data_center_total_power_mw": 4.2,
		"accum_co2_kg":               1500.0,
		"instability_index":          0.07,
		"grid_frequency_hz":          59.98,
		"battery_soc_frac":           0.6,
		"flywheel_soc_frac":          0.9,
	}
}

func TestDecodeValidMap(t *testing.T) {
	raw, err := Decode(pack(t, validFrame()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["source"] != "all_jobs" {
		t.Fatalf("unexpected source %v", raw["source"])
	}
}

func TestDecodeFailures(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Fatalf("expected error for reserved msgpack code")
	}
	if _, err := Decode(pack(t, []int{1, 2, 3})); err == nil {
		t.Fatalf("expected error for array payload")
	}
	if _, err := Decode(pack(t, "hello")); err == nil {
		t.Fatalf("expected error for string payload")
	}
	if _, err := Decode(pack(t, nil)); !errors.Is(err, ErrNotMap) {
		t.Fatalf("expected ErrNotMap for nil payload, got %v", err)
	}
	trailing := append(pack(t, validFrame()), 0xc1, 0xff, 0x00)
	if _, err := Decode(trailing); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
	twoMaps := append(pack(t, validFrame()), pack(t, validFrame())...)
	if _, err := Decode(twoMaps); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes for concatenated maps, got %v", err)
	}
}

func TestDecodeStringifiesNonStringKeys(t *testing.T) {
	raw, err := Decode(pack(t, map[interface{}]interface{}{1: "one", "timestep": 3}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["1"] != "one" {
		t.Fatalf("expected integer key stringified, got %v", raw)
	}
	if _, ok := raw["timestep"]; !ok {
		t.Fatalf("string keys must be kept, got %v", raw)
	}
}

func TestIsComplete(t *testing.T) {
	cases := []struct {
		raw  RawFrame
		want bool
	}{
		{RawFrame{"complete": true}, true},
		{RawFrame{"complete": false}, false},
		{RawFrame{"complete": 1}, true},
		{RawFrame{"complete": 0}, false},
		{RawFrame{"complete": ""}, false},
		{RawFrame{"complete": "yes"}, true},
		{RawFrame{"complete": nil}, false},
		{RawFrame{"complete": math.NaN()}, false},
		{RawFrame{"complete": map[string]interface{}{}}, true},
		{RawFrame{"timestep": 1}, false},
	}
	for i, tc := range cases {
		if got := IsComplete(tc.raw); got != tc.want {
			t.Fatalf("case %d: IsComplete(%v)=%v want %v", i, tc.raw, got, tc.want)
		}
	}
}

func TestParseValidFrame(t *testing.T) {
	raw, err := Decode(pack(t, validFrame()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := Parse(raw)
	if !p.Valid {
		t.Fatalf("expected valid frame, invalid=%v", p.Invalid)
	}
	if p.Source != model.SourceAllJobs || p.SourceMissing {
		t.Fatalf("unexpected source %v missing=%v", p.Source, p.SourceMissing)
	}
	want := model.Sample{
		Timestep:               12,
		PowerExec:              0.25,
		PowerQueue:             0.5,
		PowerLimit:             1.0,
		TraceITPowerMW:         2.5,
		RenewablePowerMW:       1.25,
		GridImportMW:           3.0,
		BatteryPowerMW:         -0.5,
		FlywheelPowerMW:        0.1,
		DataCenterTotalPowerMW: 4.2,
		AccumCO2Kg:             1500,
		InstabilityIndex:       0.07,
		GridFrequencyHz:        59.98,
	}
	if p.Sample != want {
		t.Fatalf("unexpected sample\n got %+v\nwant %+v", p.Sample, want)
	}
	if p.Stability == nil || p.Stability.Timestep != 12 || p.Stability.InstabilityIndex != 0.07 {
		t.Fatalf("unexpected stability sample %+v", p.Stability)
	}
	if p.BatterySOC == nil || *p.BatterySOC != 0.6 || p.FlywheelSOC == nil || *p.FlywheelSOC != 0.9 {
		t.Fatalf("unexpected soc values %v %v", p.BatterySOC, p.FlywheelSOC)
	}
	if p.EnergyConsumedMW == nil || *p.EnergyConsumedMW != 4.2 {
		t.Fatalf("unexpected energy %v", p.EnergyConsumedMW)
	}
}

func TestParseDefaults(t *testing.T) {
	p := Parse(RawFrame{
		"source":             "rl_min_instability",
		"timestep":           int8(3),
		"power_exec":         uint16(1),
		"power_queue":        float32(0.5),
		"grid_import_mw":     "2.5",
		"renewable_power_mw": " 1 ",
		"battery_power_mw":   true,
		"flywheel_power_mw":  nil,
	})
	if !p.Valid {
		t.Fatalf("expected valid frame, invalid=%v", p.Invalid)
	}
	s := p.Sample
	if s.PowerLimit != DefaultPowerLimit || s.GridFrequencyHz != DefaultGridFrequencyHz {
		t.Fatalf("expected defaults limit=1 freq=60, got %v %v", s.PowerLimit, s.GridFrequencyHz)
	}
	if s.GridImportMW != 2.5 || s.RenewablePowerMW != 1 || s.BatteryPowerMW != 1 || s.FlywheelPowerMW != 0 {
		t.Fatalf("unexpected coercion %+v", s)
	}
	if p.Stability != nil {
		t.Fatalf("stability sample requires both fields, got %+v", p.Stability)
	}
	if p.EnergyConsumedMW != nil || p.BatterySOC != nil {
		t.Fatalf("absent indicator fields should stay nil")
	}
}

func TestParseRejectsNonNumericRequired(t *testing.T) {
	for _, field := range RequiredFields {
		f := validFrame()
		f[field] = "not-a-number"
		p := Parse(RawFrame(f))
		if p.Valid {
			t.Fatalf("field %s: expected invalid frame", field)
		}
		if !reflect.DeepEqual(p.Invalid, []string{field}) {
			t.Fatalf("field %s: unexpected invalid list %v", field, p.Invalid)
		}
		if field != FieldTimestep && !p.TimestepValid {
			t.Fatalf("field %s: timestep should still be usable", field)
		}
	}
}

func TestParseMissingTimestepIsInvalid(t *testing.T) {
	f := validFrame()
	delete(f, "timestep")
	p := Parse(RawFrame(f))
	if p.Valid || p.Invalid[0] != FieldTimestep {
		t.Fatalf("expected timestep rejection, got valid=%v invalid=%v", p.Valid, p.Invalid)
	}
	if p.TimestepValid {
		t.Fatalf("missing timestep must not be reported valid")
	}
	if p.Stability != nil {
		t.Fatalf("no stability sample without a timestep")
	}
}

func TestParseOptionalGarbageFallsBack(t *testing.T) {
	f := validFrame()
	f["power_limit"] = []interface{}{1, 2}
	f["grid_frequency_hz"] = "fast"
	f["accum_co2_kg"] = math.Inf(1)
	p := Parse(RawFrame(f))
	if !p.Valid {
		t.Fatalf("optional garbage must not reject, invalid=%v", p.Invalid)
	}
	if p.Sample.PowerLimit != 1 || p.Sample.GridFrequencyHz != 60 || p.Sample.AccumCO2Kg != 0 {
		t.Fatalf("expected defaults, got %+v", p.Sample)
	}
}

func TestParseStabilityIndependentOfValidity(t *testing.T) {
	f := validFrame()
	f["power_exec"] = "oops"
	p := Parse(RawFrame(f))
	if p.Valid {
		t.Fatalf("expected invalid sample")
	}
	if p.Stability == nil || p.Stability.Timestep != 12 {
		t.Fatalf("stability sample should still be derived, got %+v", p.Stability)
	}
}

func TestParseSourceVariants(t *testing.T) {
	f := validFrame()
	delete(f, "source")
	if p := Parse(RawFrame(f)); !p.SourceMissing || p.Source != model.SourceUnknown {
		t.Fatalf("expected missing source, got %+v", p)
	}
	f["source"] = ""
	if p := Parse(RawFrame(f)); !p.SourceMissing {
		t.Fatalf("empty source should count as missing")
	}
	f["source"] = "greedy"
	p := Parse(RawFrame(f))
	if p.SourceMissing || p.Source != model.SourceUnknown || p.SourceTag != "greedy" {
		t.Fatalf("expected unknown source tag greedy, got %+v", p)
	}
}

func TestParseTruncatesTimestepAndClampsSOC(t *testing.T) {
	f := validFrame()
	f["timestep"] = 7.9
	f["battery_soc_frac"] = 1.4
	f["flywheel_soc_frac"] = -0.2
	p := Parse(RawFrame(f))
	if p.Sample.Timestep != 7 {
		t.Fatalf("expected truncated timestep 7, got %d", p.Sample.Timestep)
	}
	if *p.BatterySOC != 1 || *p.FlywheelSOC != 0 {
		t.Fatalf("expected clamped soc, got %v %v", *p.BatterySOC, *p.FlywheelSOC)
	}
}
