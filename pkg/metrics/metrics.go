// Package metrics exposes aggregator and connection measurements to
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gridwatch/pkg/frame"
	"gridwatch/pkg/model"
)

const namespace = "gridwatch"

type Metrics struct {
	frames      *prometheus.CounterVec
	windowLen   *prometheus.GaugeVec
	maxAccumCO2 prometheus.Gauge
	connState   *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames processed, by outcome.",
		}, []string{"kind"}),
		windowLen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_length",
			Help:      "Entries currently held per source window.",
		}, []string{"source", "buffer"}),
		maxAccumCO2: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_accum_co2_kg",
			Help:      "Largest accumulated CO2 across both windows.",
		}),
		connState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
	}
	reg.MustRegister(m.frames, m.windowLen, m.maxAccumCO2, m.connState)

	for _, k := range frame.Kinds {
		m.frames.WithLabelValues(k.String())
	}
	m.ObserveState(model.StateConnecting)
	return m
}

func (m *Metrics) ObserveFrame(k frame.Kind) {
	m.frames.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) ObserveWindow(src model.Source, samples, stability int) {
	m.windowLen.WithLabelValues(src.String(), "samples").Set(float64(samples))
	m.windowLen.WithLabelValues(src.String(), "stability").Set(float64(stability))
}

func (m *Metrics) ObserveMaxAccumCO2(kg float64) {
	m.maxAccumCO2.Set(kg)
}

// ObserveState has the signature of a connection state hook.
func (m *Metrics) ObserveState(s model.ConnectionState) {
	for _, st := range []model.ConnectionState{
		model.StateConnecting,
		model.StateConnected,
		model.StateCompleted,
		model.StateError,
		model.StateDisconnected,
	} {
		v := 0.0
		if st == s {
			v = 1
		}
		m.connState.WithLabelValues(st.String()).Set(v)
	}
}
