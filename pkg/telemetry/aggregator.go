// Package telemetry routes sanitized frames into per-source rolling windows
// and derives the merged stability view and scale statistics from them.
package telemetry

import (
	"fmt"
	"log"
	"math"
	"sync"

	"gridwatch/pkg/eventlog"
	"gridwatch/pkg/frame"
	"gridwatch/pkg/model"
	"gridwatch/pkg/window"
)

// Outcome is the tagged result of ingesting one message.
type Outcome struct {
	Kind    frame.Kind
	Source  model.Source
	Sample  *model.Sample // set for KindAccepted
	Err     error         // set for KindRejectedDecode
	Invalid []string      // set for KindRejectedNumeric
	Warning string        // missing or unknown source
}

type Option func(*Aggregator)

// WithWindowSize sets the per-source window capacity. Non-positive values
// keep the default.
func WithWindowSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.windowSize = n
		}
	}
}

func WithEventLog(l *eventlog.Log) Option {
	return func(a *Aggregator) { a.events = l }
}

func WithObserver(o Observer) Option {
	return func(a *Aggregator) {
		if o != nil {
			a.obs = o
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// Aggregator owns the buffers, indicators and event log for one stream.
// Ingest is expected to be called from a single goroutine; reads may come
// from any goroutine.
type Aggregator struct {
	mu         sync.RWMutex
	windowSize int
	series     map[model.Source]*Series
	indicators model.Indicators
	counters   model.Counters
	completed  bool

	events *eventlog.Log
	obs    Observer
	logger *log.Logger
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		windowSize: window.DefaultCapacity,
		obs:        nopObserver{},
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.events == nil {
		a.events = eventlog.New(eventlog.DefaultCapacity, eventlog.WithLogger(a.logger))
	}
	a.series = map[model.Source]*Series{
		model.SourceAllJobs:          newSeries(model.SourceAllJobs, a.windowSize),
		model.SourceRlMinInstability: newSeries(model.SourceRlMinInstability, a.windowSize),
	}
	return a
}

// Ingest runs one message through decode, validation, routing, windowing,
// statistics and the event log.
func (a *Aggregator) Ingest(payload []byte) Outcome {
	a.mu.Lock()
	out, line := a.apply(payload)
	a.count(out.Kind)
	allJobs, rlMin := a.series[model.SourceAllJobs], a.series[model.SourceRlMinInstability]
	lens := [4]int{allJobs.Samples.Len(), allJobs.Stability.Len(), rlMin.Samples.Len(), rlMin.Stability.Len()}
	maxCO2 := a.indicators.MaxAccumCO2
	a.mu.Unlock()

	switch {
	case out.Kind == frame.KindRejectedDecode:
		a.events.Error(out.Err.Error())
	case line != "":
		a.events.Info(line)
	}

	a.obs.ObserveFrame(out.Kind)
	if out.Kind == frame.KindAccepted || out.Kind == frame.KindRejectedNumeric {
		a.obs.ObserveWindow(model.SourceAllJobs, lens[0], lens[1])
		a.obs.ObserveWindow(model.SourceRlMinInstability, lens[2], lens[3])
		a.obs.ObserveMaxAccumCO2(maxCO2)
	}
	return out
}

// HandleMessage adapts Ingest to the connection manager; it reports whether
// the message was the completion signal.
func (a *Aggregator) HandleMessage(payload []byte) bool {
	return a.Ingest(payload).Kind == frame.KindCompleted
}

func (a *Aggregator) apply(payload []byte) (Outcome, string) {
	if a.completed {
		return Outcome{Kind: frame.KindIgnored}, ""
	}
	raw, err := frame.Decode(payload)
	if err != nil {
		return Outcome{Kind: frame.KindRejectedDecode, Err: err}, ""
	}
	if frame.IsComplete(raw) {
		a.completed = true
		return Outcome{Kind: frame.KindCompleted}, ""
	}

	p := frame.Parse(raw)
	out := Outcome{Source: p.Source, Invalid: p.Invalid}
	switch {
	case p.SourceMissing:
		out.Warning = "source field missing, defaulting to all_jobs"
	case !p.Source.Known():
		out.Warning = fmt.Sprintf("unknown source %q, defaulting to all_jobs", p.SourceTag)
	}
	if out.Warning != "" {
		a.counters.Warnings++
		a.logger.Printf("warning: %s timestep=%v", out.Warning, raw[frame.FieldTimestep])
	}

	a.updateIndicators(p)

	sampleDest, stabilityDest, recordStability := Route(p.Source)
	if p.Stability != nil && recordStability {
		a.series[stabilityDest].Stability.Append(*p.Stability)
	}
	if !p.Valid {
		out.Kind = frame.KindRejectedNumeric
		return out, ""
	}

	a.series[sampleDest].Samples.Append(p.Sample)
	a.indicators.MaxAccumCO2 = MaxAccumCO2(
		a.series[model.SourceAllJobs].Samples.Items(),
		a.series[model.SourceRlMinInstability].Samples.Items(),
	)

	s := p.Sample
	out.Kind = frame.KindAccepted
	out.Sample = &s
	line := fmt.Sprintf("[%s] Timestep %d | Queue %.4f | Exec %.4f", p.Source.Label(), s.Timestep, s.PowerQueue, s.PowerExec)
	return out, line
}

// updateIndicators runs for every decoded data frame, including numerically
// rejected ones. Values that did not coerce keep their previous reading.
func (a *Aggregator) updateIndicators(p frame.Parsed) {
	s := p.Sample
	if p.TimestepValid {
		ts := s.Timestep
		a.indicators.LatestTimestep = &ts
	}
	if finite(s.PowerQueue, s.PowerExec, s.PowerLimit) {
		a.indicators.LatestPower = &model.PowerReading{
			Queue: s.PowerQueue,
			Exec:  s.PowerExec,
			Limit: s.PowerLimit,
		}
	}
	if p.Source == model.SourceRlMinInstability {
		// absent SOC fields clear the reading
		a.indicators.BatterySOC = copyFloat(p.BatterySOC)
		a.indicators.FlywheelSOC = copyFloat(p.FlywheelSOC)
	}
	if p.EnergyConsumedMW != nil {
		a.indicators.LatestEnergyConsumedMW = copyFloat(p.EnergyConsumedMW)
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (a *Aggregator) count(k frame.Kind) {
	switch k {
	case frame.KindAccepted:
		a.counters.Accepted++
	case frame.KindRejectedNumeric:
		a.counters.RejectedNumeric++
	case frame.KindRejectedDecode:
		a.counters.RejectedDecode++
	case frame.KindIgnored:
		a.counters.Ignored++
	}
}

// Snapshot copies everything the display layer renders.
func (a *Aggregator) Snapshot() model.Snapshot {
	a.mu.RLock()
	allJobs := a.series[model.SourceAllJobs].view()
	rlMin := a.series[model.SourceRlMinInstability].view()
	snap := model.Snapshot{
		AllJobs:    allJobs,
		RlMin:      rlMin,
		Merged:     MergeStability(allJobs.Stability, rlMin.Stability),
		Indicators: a.indicators,
		Counters:   a.counters,
		Completed:  a.completed,
	}
	a.mu.RUnlock()

	snap.Log = a.events.Lines()
	snap.LogTotal = a.events.Total()
	return snap
}

// Series returns a copy of one source's buffer pair.
func (a *Aggregator) Series(src model.Source) (model.SeriesView, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.series[src]
	if !ok {
		return model.SeriesView{}, false
	}
	return s.view(), true
}

// Merged recomputes the stability join from the current windows.
func (a *Aggregator) Merged() []model.MergedRow {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return MergeStability(
		a.series[model.SourceAllJobs].Stability.Items(),
		a.series[model.SourceRlMinInstability].Stability.Items(),
	)
}

func (a *Aggregator) Indicators() model.Indicators {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.indicators
}

func (a *Aggregator) Counters() model.Counters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counters
}

// Completed reports whether the end-of-stream signal was received.
func (a *Aggregator) Completed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.completed
}

func (a *Aggregator) EventLog() *eventlog.Log { return a.events }

func (a *Aggregator) WindowSize() int { return a.windowSize }
