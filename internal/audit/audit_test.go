package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nulzo/model-relay/internal/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer sk-secret")
	h.Set("Content-Type", "application/json")
	h.Set("X-Api-Key", "raw-key")

	out := RedactHeaders(h)

	assert.Equal(t, "Bearer ***", out["Authorization"])
	assert.Equal(t, "***", out["X-Api-Key"])
	assert.Equal(t, "application/json", out["Content-Type"])
}

func TestNewEntry_CarriesRequestID(t *testing.T) {
	ctx := requestid.With(context.Background(), "req-1")
	e := NewEntry(ctx, EventForward, map[string]string{"url": "http://x"})

	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, EventForward, e.Event)
	assert.False(t, e.Time.IsZero())
}

func TestMultiAndMemory(t *testing.T) {
	a, b := &Memory{}, &Memory{}
	rec := Multi{a, Nop{}, b}

	rec.Record(context.Background(), Entry{Event: "one"})
	rec.Record(context.Background(), Entry{Event: "two"})

	assert.Equal(t, []string{"one", "two"}, a.Events())
	assert.Equal(t, a.Events(), b.Events())
	assert.Len(t, b.Entries(), 2)
}

func TestFileRecorder_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug_request.log")

	rec, err := NewFileRecorder(path)
	require.NoError(t, err)

	ctx := requestid.With(context.Background(), "req-42")
	rec.Record(ctx, NewEntry(ctx, EventRequestBody, map[string]any{"model": "gpt-4"}))
	require.NoError(t, rec.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var line map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
	assert.Equal(t, EventRequestBody, line["event"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "gpt-4", line["data"].(map[string]any)["model"])
}

func TestRedisRecorder_UnreachableServerIsSilent(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	rec := NewRedisRecorder(client, RedisOptions{Timeout: 100 * time.Millisecond}, zap.NewNop())
	defer rec.Close()

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Event: EventForward})
	})
	assert.Equal(t, "relay:audit", rec.key)
	assert.EqualValues(t, 10000, rec.maxLen)
}
