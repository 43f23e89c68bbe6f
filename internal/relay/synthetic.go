package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nulzo/model-relay/pkg/api"
	"github.com/tidwall/gjson"
)

const (
	syntheticID     = "chatcmpl-simulated"
	chunkObject     = "chat.completion.chunk"
	syntheticCreate = 1
	contentPath     = "choices.0.message.content"
)

var doneFrame = []byte("data: [DONE]\n\n")

var errMissingContent = errors.New("choices[0].message.content missing or not a string")

// SyntheticFrames renders a buffered completion as server-sent event frames:
// a role delta, one delta per content slice, a stop event and the [DONE]
// sentinel. A body without usable content yields one error event followed by
// the sentinel, together with the cause.
func SyntheticFrames(body []byte, model string) ([][]byte, error) {
	content, err := extractContent(body)
	if err != nil {
		return [][]byte{errorFrame(err), doneFrame}, err
	}

	slices := Chunk(content, SyntheticChunkSize)
	frames := make([][]byte, 0, len(slices)+3)

	frames = append(frames, chunkFrame(model, api.Delta{Role: "assistant"}, nil))
	for _, s := range slices {
		frames = append(frames, chunkFrame(model, api.Delta{Content: s}, nil))
	}
	stop := "stop"
	frames = append(frames, chunkFrame(model, api.Delta{}, &stop))
	frames = append(frames, doneFrame)

	return frames, nil
}

func extractContent(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", ErrInvalidUpstreamBody
	}
	content := gjson.GetBytes(body, contentPath)
	if !content.Exists() || content.Type != gjson.String {
		return "", errMissingContent
	}
	return content.Str, nil
}

func chunkFrame(model string, delta api.Delta, finish *string) []byte {
	data, _ := json.Marshal(api.ChatChunk{
		ID:      syntheticID,
		Object:  chunkObject,
		Created: syntheticCreate,
		Model:   model,
		Choices: []api.ChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finish,
		}},
	})
	return sseFrame(data)
}

func errorFrame(cause error) []byte {
	data, _ := json.Marshal(api.StreamError{
		Error: fmt.Sprintf("Failed to simulate streaming response: %v", cause),
	})
	return sseFrame(data)
}

func sseFrame(data []byte) []byte {
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, '\n', '\n')
	return frame
}
