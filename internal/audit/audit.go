// Package audit is the debug side channel for request and response traces.
//
// Recorders are best effort: Record never returns an error and never blocks a
// request on a slow sink for longer than the sink's own write.
package audit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nulzo/model-relay/internal/requestid"
)

// Event names emitted by the relay.
const (
	EventRequestHeaders = "request_headers"
	EventRequestBody    = "request_body"
	EventModelRewrite   = "model_rewrite"
	EventStreamRewrite  = "stream_rewrite"
	EventForward        = "forward"
	EventResponseBody   = "response_body"
	EventResponseMode   = "response_mode"
)

type Entry struct {
	Time      time.Time `json:"time"`
	RequestID string    `json:"request_id,omitempty"`
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
}

type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// NewEntry stamps an entry with the current time and the request id in ctx.
func NewEntry(ctx context.Context, event string, data any) Entry {
	return Entry{
		Time:      time.Now(),
		RequestID: requestid.From(ctx),
		Event:     event,
		Data:      data,
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// Multi fans an entry out to several recorders.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Entry) {
	for _, r := range m {
		r.Record(ctx, e)
	}
}

// Memory keeps entries in process. Used by tests and the benchmark.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(_ context.Context, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Entry, len(m.entries))
	copy(cp, m.entries)
	return cp
}

// Events returns the recorded event names in order.
func (m *Memory) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		names = append(names, e.Event)
	}
	return names
}

// RedactHeaders flattens headers for logging with credentials masked.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		val := strings.Join(v, ", ")
		switch http.CanonicalHeaderKey(k) {
		case "Authorization", "Proxy-Authorization", "Cookie", "X-Api-Key":
			val = redact(val)
		}
		out[k] = val
	}
	return out
}

func redact(v string) string {
	scheme, _, found := strings.Cut(v, " ")
	if found {
		return scheme + " ***"
	}
	return "***"
}
