package model

// Source identifies the control strategy a frame was produced under.
type Source int

const (
	SourceUnknown Source = iota
	SourceAllJobs
	SourceRlMinInstability
)

// Wire tags carried in the "source" field of a frame.
const (
	WireAllJobs          = "all_jobs"
	WireRlMinInstability = "rl_min_instability"
)

// KnownSources lists the sources that own a buffer pair.
var KnownSources = []Source{SourceAllJobs, SourceRlMinInstability}

// ParseSource maps a wire tag to a Source; anything unrecognized is SourceUnknown.
func ParseSource(tag string) Source {
	switch tag {
	case WireAllJobs:
		return SourceAllJobs
	case WireRlMinInstability:
		return SourceRlMinInstability
	default:
		return SourceUnknown
	}
}

func (s Source) String() string {
	switch s {
	case SourceAllJobs:
		return WireAllJobs
	case SourceRlMinInstability:
		return WireRlMinInstability
	default:
		return "unknown"
	}
}

// Label is the human readable name used in event log lines.
func (s Source) Label() string {
	switch s {
	case SourceAllJobs:
		return "All Jobs"
	case SourceRlMinInstability:
		return "RL Min Instability"
	default:
		return "Unknown"
	}
}

// Known reports whether the source owns its own buffers.
func (s Source) Known() bool {
	return s == SourceAllJobs || s == SourceRlMinInstability
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	*s = ParseSource(string(b))
	return nil
}
