package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nulzo/model-relay/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func routeTo(url string) routing.Route {
	r := testRoute
	r.Endpoint = url
	return r
}

func TestDispatch_ForwardsOnlyAllowedHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-client", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Forwarded-For"))
		assert.Empty(t, r.Header.Get("Cookie"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"model":"deepseek-chat","stream":false}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer server.Close()

	d := NewDispatcher(nil, time.Second, zap.NewNop())
	res, err := d.Dispatch(context.Background(), routeTo(server.URL+"/"), []byte(`{"model":"deepseek-chat","stream":false}`), false, "Bearer sk-client")
	require.NoError(t, err)

	assert.False(t, res.Stream)
	assert.Equal(t, `{"id":"1"}`, string(res.Body))
	assert.Equal(t, "application/json", res.ContentType)
}

func TestDispatch_OmitsMissingAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Authorization"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	d := NewDispatcher(nil, time.Second, zap.NewNop())
	_, err := d.Dispatch(context.Background(), routeTo(server.URL), []byte(`{}`), false, "")
	require.NoError(t, err)
}

func TestDispatch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	d := NewDispatcher(nil, time.Second, zap.NewNop())
	_, err := d.Dispatch(context.Background(), routeTo(server.URL), []byte(`{}`), true, "")

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
	assert.Equal(t, `{"error":{"message":"slow down","type":"rate_limit"}}`, string(upstreamErr.Body))
}

func TestDispatch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	d := NewDispatcher(nil, time.Second, zap.NewNop())
	_, err := d.Dispatch(context.Background(), routeTo(url), []byte(`{}`), false, "")

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.False(t, transportErr.Timeout)
}

func TestDispatch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	d := NewDispatcher(nil, 50*time.Millisecond, zap.NewNop())
	_, err := d.Dispatch(context.Background(), routeTo(server.URL), []byte(`{}`), false, "")

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.Timeout)
}

func TestDispatch_StreamPreservesOrder(t *testing.T) {
	parts := []string{"data: one\n\n", "data: two\n\n", "data: three\n\n"}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		for _, p := range parts {
			_, _ = w.Write([]byte(p))
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	d := NewDispatcher(nil, time.Second, zap.NewNop())
	res, err := d.Dispatch(context.Background(), routeTo(server.URL), []byte(`{}`), true, "")
	require.NoError(t, err)
	defer res.Close()

	assert.True(t, res.Stream)
	assert.Equal(t, "text/event-stream; charset=utf-8", res.ContentType)

	var (
		chunks <-chan StreamChunk = res.Chunks
		got    []byte
	)
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		got = append(got, chunk.Data...)
	}
	assert.Equal(t, "data: one\n\ndata: two\n\ndata: three\n\n", string(got))
	assert.Equal(t, []string{"data", ": on", "e"}, Chunk("data: one", 4))
}

func TestDispatch_StreamOutlivesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(150 * time.Millisecond)
		_, _ = w.Write([]byte("data: late\n\n"))
	}))
	defer server.Close()

	d := NewDispatcher(nil, 50*time.Millisecond, zap.NewNop())
	res, err := d.Dispatch(context.Background(), routeTo(server.URL), []byte(`{}`), true, "")
	require.NoError(t, err)
	defer res.Close()

	var got []byte
	for chunk := range res.Chunks {
		require.NoError(t, chunk.Err)
		got = append(got, chunk.Data...)
	}
	assert.Equal(t, "data: late\n\n", string(got))
}

func TestDispatch_CancelReleasesStream(t *testing.T) {
	upstreamDone := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(upstreamDone)
		w.Header().Set("Content-Type", "text/event-stream")
		for {
			if _, err := w.Write([]byte("data: tick\n\n")); err != nil {
				return
			}
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(nil, time.Second, zap.NewNop())
	res, err := d.Dispatch(ctx, routeTo(server.URL), []byte(`{}`), true, "")
	require.NoError(t, err)

	<-res.Chunks
	cancel()

	select {
	case <-upstreamDone:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream connection was not released after cancel")
	}

	// the producer closes the channel once it notices the cancellation
	for range res.Chunks {
	}
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://x.example.com/v1/chat/completions", Endpoint(routing.Route{Endpoint: "https://x.example.com/"}))
	assert.Equal(t, "http://localhost:8000/v1/chat/completions", Endpoint(routing.Route{Endpoint: " http://localhost:8000 "}))
}
