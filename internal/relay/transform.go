package relay

import (
	"fmt"

	"github.com/nulzo/model-relay/internal/routing"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Transformed is a request envelope after model and stream rewriting.
type Transformed struct {
	Body   []byte
	Stream bool

	// the client's original values, kept for the audit trail
	ClientModel  string
	HadModel     bool
	ClientStream bool
}

// Transform points the envelope at the route's upstream model and writes the
// resolved stream flag back into it. Every other field is left byte for byte.
// body must already be a JSON object.
func Transform(body []byte, route routing.Route, global routing.StreamMode) (Transformed, error) {
	model := gjson.GetBytes(body, "model")
	clientStream := gjson.GetBytes(body, "stream").Bool()

	out, err := sjson.SetBytes(body, "model", route.UpstreamModelID)
	if err != nil {
		return Transformed{}, fmt.Errorf("rewrite model: %w", err)
	}

	stream := routing.ResolveStream(route.StreamOverride, global, clientStream)
	out, err = sjson.SetBytes(out, "stream", stream)
	if err != nil {
		return Transformed{}, fmt.Errorf("rewrite stream: %w", err)
	}

	return Transformed{
		Body:         out,
		Stream:       stream,
		ClientModel:  model.String(),
		HadModel:     model.Exists(),
		ClientStream: clientStream,
	}, nil
}
