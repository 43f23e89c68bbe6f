package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/model-relay/internal/routing"
	"go.uber.org/zap"
)

const (
	ChatCompletionsPath = "/v1/chat/completions"

	// DefaultTimeout leaves room for slow generations.
	DefaultTimeout = 300 * time.Second

	streamBuffer   = 16
	readBufferSize = 32 * 1024
	maxErrorBody   = 1 << 20
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StreamChunk is one read from a streaming upstream body.
type StreamChunk struct {
	Data []byte
	Err  error
}

// Result is what the backend produced: either Chunks or Body is set.
type Result struct {
	Stream      bool
	ContentType string
	StatusCode  int

	// Chunks is single pass and closed by the producer.
	Chunks <-chan StreamChunk
	Body   []byte

	cancel context.CancelFunc
}

// Close releases the upstream connection. Safe to call more than once.
func (r *Result) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

type Dispatcher struct {
	client  HTTPClient
	timeout time.Duration
	logger  *zap.Logger
}

func NewDispatcher(client HTTPClient, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if client == nil {
		// no client-level timeout: streams must outlive it
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Endpoint is the upstream chat completions URL for a route.
func Endpoint(route routing.Route) string {
	return strings.TrimRight(strings.TrimSpace(route.Endpoint), "/") + ChatCompletionsPath
}

// Dispatch forwards body to the route's backend. Only Content-Type and the
// client's Authorization header are sent. In stream mode the timeout bounds
// the wait for response headers; in buffered mode it bounds the whole body.
func (d *Dispatcher) Dispatch(ctx context.Context, route routing.Route, body []byte, stream bool, authorization string) (*Result, error) {
	url := Endpoint(route)

	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(d.timeout, cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		timedOut := !timer.Stop()
		cancel()
		return nil, &TransportError{URL: url, Timeout: timedOut, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer func() {
			_ = resp.Body.Close()
		}()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		timer.Stop()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			URL:        url,
		}
	}

	contentType := resp.Header.Get("Content-Type")

	if !stream {
		defer cancel()
		defer func() {
			_ = resp.Body.Close()
		}()
		data, err := io.ReadAll(resp.Body)
		timedOut := !timer.Stop()
		if err != nil {
			return nil, &TransportError{URL: url, Timeout: timedOut, Err: fmt.Errorf("read body: %w", err)}
		}
		return &Result{
			ContentType: contentType,
			StatusCode:  resp.StatusCode,
			Body:        data,
		}, nil
	}

	timer.Stop()

	chunks := make(chan StreamChunk, streamBuffer)
	go d.pump(ctx, cancel, resp.Body, chunks)

	return &Result{
		Stream:      true,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		Chunks:      chunks,
		cancel:      cancel,
	}, nil
}

// pump copies the upstream body into out until EOF, error or cancellation.
func (d *Dispatcher) pump(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, out chan<- StreamChunk) {
	defer close(out)
	defer cancel()
	defer func() {
		_ = body.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- StreamChunk{Data: data}:
			case <-ctx.Done():
				return
			}
		}

		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Warn("Upstream stream read failed", zap.Error(err))
			}
			select {
			case out <- StreamChunk{Err: err}:
			case <-ctx.Done():
			}
			return
		}
	}
}
