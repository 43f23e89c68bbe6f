package relay

import "github.com/nulzo/model-relay/internal/routing"

// ResponseMode is how the reconciler shapes the client response.
type ResponseMode int

const (
	// ModeBuffered returns one JSON body with the model rewritten.
	ModeBuffered ResponseMode = iota
	// ModePassthrough forwards upstream bytes unchanged.
	ModePassthrough
	// ModeSynthetic turns a buffered upstream body into an event stream.
	ModeSynthetic
)

func (m ResponseMode) String() string {
	switch m {
	case ModePassthrough:
		return "passthrough"
	case ModeSynthetic:
		return "synthetic"
	default:
		return "buffered"
	}
}

// Decide picks the response mode from what was sent upstream and the route
// policy.
//
// A client that asked for a stream on a route without an override, while a
// global override forced buffering, still gets plain JSON. Only a route that
// forces streaming off gets synthetic framing.
func Decide(stream bool, route routing.Route) ResponseMode {
	if stream {
		return ModePassthrough
	}
	if route.StreamOverride == routing.StreamForceOff {
		return ModeSynthetic
	}
	return ModeBuffered
}

// Decision is the per-request routing outcome.
type Decision struct {
	Selection routing.Selection
	Stream    bool
	Mode      ResponseMode
}

func (d Decision) Route() routing.Route {
	return d.Selection.Route
}
