package relay

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

const eventStream = "text/event-stream"

// Reconciler writes the client response for each ResponseMode.
type Reconciler struct {
	logger *zap.Logger
}

func NewReconciler(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

func startStream(w http.ResponseWriter, contentType string) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// Passthrough copies upstream chunks to w in arrival order, flushing each.
// It returns when the upstream ends, fails, or ctx is cancelled.
func (r *Reconciler) Passthrough(ctx context.Context, w http.ResponseWriter, res *Result) error {
	defer res.Close()

	contentType := res.ContentType
	if contentType == "" {
		contentType = eventStream
	}
	startStream(w, contentType)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-res.Chunks:
			if !ok {
				return nil
			}
			if chunk.Err != nil {
				return chunk.Err
			}
			if _, err := w.Write(chunk.Data); err != nil {
				return err
			}
			flush(w)
		}
	}
}

// Synthetic streams a buffered completion as chat.completion.chunk events.
// Malformed bodies become an in-band error event; the stream is still
// terminated with [DONE].
func (r *Reconciler) Synthetic(ctx context.Context, w http.ResponseWriter, body []byte, model string) error {
	frames, err := SyntheticFrames(body, model)
	if err != nil {
		r.logger.Error("Failed to simulate streaming response", zap.String("model", model), zap.Error(err))
	}

	startStream(w, eventStream)

	for _, frame := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := w.Write(frame); err != nil {
			return err
		}
		flush(w)
	}
	return nil
}

// RewriteModel replaces the model field of a buffered upstream body, when
// present, with the exposed model id. All other bytes are kept.
func RewriteModel(body []byte, model string) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidUpstreamBody
	}
	if !gjson.GetBytes(body, "model").Exists() {
		return body, nil
	}
	return sjson.SetBytes(body, "model", model)
}

// Buffered writes a single JSON document.
func (r *Reconciler) Buffered(w http.ResponseWriter, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(body)
	return err
}
