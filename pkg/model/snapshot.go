package model

// Counters tallies frame outcomes over the lifetime of the connection.
type Counters struct {
	Accepted        uint64 `json:"accepted"`
	RejectedNumeric uint64 `json:"rejectedNumeric"`
	RejectedDecode  uint64 `json:"rejectedDecode"`
	Ignored         uint64 `json:"ignored"`
	Warnings        uint64 `json:"warnings"`
}

// SeriesView is a copy of one source's buffer pair.
type SeriesView struct {
	Source    Source            `json:"source"`
	Samples   []Sample          `json:"samples"`
	Stability []StabilitySample `json:"stability"`
}

// Snapshot is the read-only view handed to the display layer on each pass.
type Snapshot struct {
	AllJobs    SeriesView  `json:"allJobs"`
	RlMin      SeriesView  `json:"rlMin"`
	Merged     []MergedRow `json:"merged"`
	Indicators Indicators  `json:"indicators"`
	Log        []string    `json:"log"`
	LogTotal   uint64      `json:"logTotal"`
	Counters   Counters    `json:"counters"`
	Completed  bool        `json:"completed"`
}
