package model

import "fmt"

// ConnectionState is the coarse status surfaced to the display layer.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateCompleted
	StateError
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateCompleted:
		return "Completed"
	case StateError:
		return "Error"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s ConnectionState) Terminal() bool {
	return s == StateCompleted || s == StateError || s == StateDisconnected
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnectionState) UnmarshalText(b []byte) error {
	for st := StateConnecting; st <= StateDisconnected; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", b)
}
