// Package frame turns raw websocket payloads into sanitized telemetry records.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyPayload  = errors.New("empty payload")
	ErrNotMap        = errors.New("payload is not a map")
	ErrTrailingBytes = errors.New("trailing bytes after frame")
)

// RawFrame is an untyped decoded message. It has no guaranteed shape.
type RawFrame map[string]interface{}

// Decode unpacks exactly one MessagePack map. Non-string keys are
// stringified.
func Decode(payload []byte) (RawFrame, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	r := bytes.NewReader(payload)
	dec := msgpack.NewDecoder(r)
	var raw map[interface{}]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("decode frame: %w (%d bytes)", ErrTrailingBytes, r.Len())
	}
	if raw == nil {
		return nil, ErrNotMap
	}
	out := make(RawFrame, len(raw))
	for k, v := range raw {
		key, ok := k.(string)
		if !ok {
			key = fmt.Sprint(k)
		}
		out[key] = v
	}
	return out, nil
}

// IsComplete reports whether the frame is the end-of-stream control signal.
func IsComplete(raw RawFrame) bool {
	v, ok := raw[FieldComplete]
	if !ok {
		return false
	}
	return truthy(v)
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	default:
		if f, ok := number(v); ok {
			return f != 0
		}
		// maps, arrays and binary blobs are always truthy
		return true
	}
}
