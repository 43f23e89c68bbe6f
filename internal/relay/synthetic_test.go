package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sseEvent struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int               `json:"index"`
		Delta        map[string]string `json:"delta"`
		FinishReason *string           `json:"finish_reason"`
	} `json:"choices"`
	Error string `json:"error"`
}

// parseFrames splits an SSE body into data payloads.
func parseFrames(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	for _, block := range strings.Split(body, "\n\n") {
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), "frame %q", block)
		out = append(out, strings.TrimPrefix(block, "data: "))
	}
	return out
}

func decodeEvent(t *testing.T, payload string) sseEvent {
	t.Helper()
	var ev sseEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	return ev
}

func TestSyntheticFrames_Sequence(t *testing.T) {
	body := []byte(`{"model":"upstream","choices":[{"message":{"role":"assistant","content":"abcdefgh"}}]}`)

	frames, err := SyntheticFrames(body, "gpt-4")
	require.NoError(t, err)
	payloads := parseFrames(t, string(bytes.Join(frames, nil)))
	require.Len(t, payloads, 5)

	role := decodeEvent(t, payloads[0])
	assert.Equal(t, "assistant", role.Choices[0].Delta["role"])
	assert.Nil(t, role.Choices[0].FinishReason)

	first := decodeEvent(t, payloads[1])
	second := decodeEvent(t, payloads[2])
	assert.Equal(t, "abcd", first.Choices[0].Delta["content"])
	assert.Equal(t, "efgh", second.Choices[0].Delta["content"])
	assert.Nil(t, second.Choices[0].FinishReason)

	finish := decodeEvent(t, payloads[3])
	assert.Empty(t, finish.Choices[0].Delta)
	require.NotNil(t, finish.Choices[0].FinishReason)
	assert.Equal(t, "stop", *finish.Choices[0].FinishReason)

	assert.Equal(t, "[DONE]", payloads[4])

	for _, p := range payloads[:4] {
		ev := decodeEvent(t, p)
		assert.Equal(t, "chatcmpl-simulated", ev.ID)
		assert.Equal(t, "chat.completion.chunk", ev.Object)
		assert.Equal(t, "gpt-4", ev.Model)
		assert.EqualValues(t, 1, ev.Created)
	}
}

func TestSyntheticFrames_EscapesContent(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":"say \"hi\"\n"}}]}`)

	frames, err := SyntheticFrames(body, "gpt-4")
	require.NoError(t, err)

	var rebuilt strings.Builder
	for _, p := range parseFrames(t, string(bytes.Join(frames, nil))) {
		if p == "[DONE]" {
			continue
		}
		ev := decodeEvent(t, p)
		rebuilt.WriteString(ev.Choices[0].Delta["content"])
	}
	assert.Equal(t, "say \"hi\"\n", rebuilt.String())
}

func TestSyntheticFrames_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"missing choices":    `{"id":"x"}`,
		"empty choices":      `{"choices":[]}`,
		"null content":       `{"choices":[{"message":{"content":null}}]}`,
		"not json":           `<html>bad gateway</html>`,
		"content not string": `{"choices":[{"message":{"content":[{"type":"text"}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			frames, err := SyntheticFrames([]byte(body), "gpt-4")
			assert.Error(t, err)

			payloads := parseFrames(t, string(bytes.Join(frames, nil)))
			require.Len(t, payloads, 2)
			ev := decodeEvent(t, payloads[0])
			assert.Contains(t, ev.Error, "Failed to simulate streaming response")
			assert.Equal(t, "[DONE]", payloads[1])
		})
	}
}

func TestReconciler_SyntheticWritesEventStream(t *testing.T) {
	w := httptest.NewRecorder()
	r := NewReconciler(zap.NewNop())

	err := r.Synthetic(context.Background(), w, []byte(`{"id":"x"}`), "gpt-4")
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasSuffix(w.Body.String(), "data: [DONE]\n\n"))
}

func TestReconciler_SyntheticStopsOnCancel(t *testing.T) {
	w := httptest.NewRecorder()
	r := NewReconciler(zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Synthetic(ctx, w, []byte(`{"choices":[{"message":{"content":"abcdefgh"}}]}`), "gpt-4")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

func TestRewriteModel(t *testing.T) {
	out, err := RewriteModel([]byte(`{"id":"1","model":"deepseek-chat","choices":[]}`), "gpt-4")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","model":"gpt-4","choices":[]}`, string(out))
	assert.NotContains(t, string(out), "deepseek-chat")

	out, err = RewriteModel([]byte(`{"id":"1"}`), "gpt-4")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(out), "model is only rewritten when present")

	_, err = RewriteModel([]byte(`not json`), "gpt-4")
	assert.ErrorIs(t, err, ErrInvalidUpstreamBody)
}
