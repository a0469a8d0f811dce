package frame

// Kind tags what happened to one inbound message.
type Kind int

const (
	KindAccepted Kind = iota
	KindRejectedNumeric
	KindRejectedDecode
	KindCompleted
	KindIgnored
)

func (k Kind) String() string {
	switch k {
	case KindAccepted:
		return "accepted"
	case KindRejectedNumeric:
		return "rejected_numeric"
	case KindRejectedDecode:
		return "rejected_decode"
	case KindCompleted:
		return "completed"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Kinds lists every outcome, used to pre-create metric series.
var Kinds = []Kind{KindAccepted, KindRejectedNumeric, KindRejectedDecode, KindCompleted, KindIgnored}
