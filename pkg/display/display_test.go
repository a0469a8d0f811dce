package display

import (
	"strings"
	"testing"

	"gridwatch/pkg/model"
)

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:             "0.0",
		999.94:        "999.9",
		1500:          "1.50K",
		-2500:         "-2.50K",
		12_345_678:    "12.35M",
		3_000_000_000: "3.00B",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %q want %q", in, got, want)
		}
	}
}

func TestRenderEmptySnapshot(t *testing.T) {
	out := Render(model.Snapshot{
		AllJobs: model.SeriesView{Source: model.SourceAllJobs},
		RlMin:   model.SeriesView{Source: model.SourceRlMinInstability},
	}, model.StateConnecting)
	for _, want := range []string{"Connecting", "All Jobs", "RL Min Instability", "waiting for data"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSnapshot(t *testing.T) {
	ts := int64(42)
	soc := 0.55
	one := 0.1
	snap := model.Snapshot{
		AllJobs: model.SeriesView{
			Source:  model.SourceAllJobs,
			Samples: []model.Sample{{Timestep: 41, PowerExec: 0.2, GridImportMW: 3}, {Timestep: 42, PowerExec: 0.3, AccumCO2Kg: 2500}},
		},
		RlMin:      model.SeriesView{Source: model.SourceRlMinInstability},
		Merged:     []model.MergedRow{{Timestep: 42, AllJobs: &one}},
		Indicators: model.Indicators{LatestTimestep: &ts, BatterySOC: &soc, MaxAccumCO2: 2500},
		Log:        []string{"[All Jobs] Timestep 42 | Queue 0.0000 | Exec 0.3000", "Error: decode frame: bad"},
		LogTotal:   1234,
		Counters:   model.Counters{Accepted: 1234},
	}
	out := Render(snap, model.StateCompleted)
	for _, want := range []string{"Completed", "1,234 accepted", "55.0%", "2.50K kg", "Timestep 42", "decode frame: bad", "0.100"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := sparkline([]float64{0, 1}); got != "▁█" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := sparkline([]float64{5, 5, 5}); got != "▁▁▁" {
		t.Fatalf("flat series should render at the floor, got %q", got)
	}
}
