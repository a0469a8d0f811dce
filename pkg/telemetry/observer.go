package telemetry

import (
	"gridwatch/pkg/frame"
	"gridwatch/pkg/model"
)

// Observer receives pipeline measurements, typically for metrics export.
type Observer interface {
	ObserveFrame(kind frame.Kind)
	ObserveWindow(src model.Source, samples, stability int)
	ObserveMaxAccumCO2(kg float64)
}

type nopObserver struct{}

func (nopObserver) ObserveFrame(frame.Kind)              {}
func (nopObserver) ObserveWindow(model.Source, int, int) {}
func (nopObserver) ObserveMaxAccumCO2(float64)           {}
