package routing

import (
	"fmt"
	"strings"
)

// StreamMode is a tri-state override for the client's stream flag.
type StreamMode int

const (
	StreamUnset StreamMode = iota
	StreamForceOn
	StreamForceOff
)

// ParseStreamMode accepts the spellings found in routing documents and flags.
// YAML booleans arrive as "true"/"false" or, through weak decoding, "1"/"0".
func ParseStreamMode(s string) (StreamMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "unset", "~":
		return StreamUnset, nil
	case "true", "1", "on":
		return StreamForceOn, nil
	case "false", "0", "off":
		return StreamForceOff, nil
	default:
		return StreamUnset, fmt.Errorf("invalid stream mode %q: want true, false or empty", s)
	}
}

func (m StreamMode) String() string {
	switch m {
	case StreamForceOn:
		return "true"
	case StreamForceOff:
		return "false"
	default:
		return "unset"
	}
}

// ResolveStream applies the precedence route override, then global override,
// then the client's own flag.
func ResolveStream(route, global StreamMode, client bool) bool {
	switch route {
	case StreamForceOn:
		return true
	case StreamForceOff:
		return false
	}

	switch global {
	case StreamForceOn:
		return true
	case StreamForceOff:
		return false
	}

	return client
}
