package telemetry

import (
	"gridwatch/pkg/model"
	"gridwatch/pkg/window"
)

// Route returns the buffer pair a frame from src lands in. Unknown sources
// still chart into all_jobs but never record stability data.
func Route(src model.Source) (sampleDest model.Source, stabilityDest model.Source, recordStability bool) {
	switch src {
	case model.SourceAllJobs:
		return model.SourceAllJobs, model.SourceAllJobs, true
	case model.SourceRlMinInstability:
		return model.SourceRlMinInstability, model.SourceRlMinInstability, true
	default:
		return model.SourceAllJobs, model.SourceUnknown, false
	}
}

// Series is the buffer pair owned by one source.
type Series struct {
	Source    model.Source
	Samples   *window.Buffer[model.Sample]
	Stability *window.Buffer[model.StabilitySample]
}

func newSeries(src model.Source, capacity int) *Series {
	return &Series{
		Source:    src,
		Samples:   window.New[model.Sample](capacity),
		Stability: window.New[model.StabilitySample](capacity),
	}
}

func (s *Series) view() model.SeriesView {
	return model.SeriesView{
		Source:    s.Source,
		Samples:   s.Samples.Items(),
		Stability: s.Stability.Items(),
	}
}
