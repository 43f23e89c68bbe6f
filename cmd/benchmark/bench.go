package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/nulzo/model-relay/internal/audit"
	"github.com/nulzo/model-relay/internal/config"
	"github.com/nulzo/model-relay/internal/relay"
	"github.com/nulzo/model-relay/internal/routing"
	"github.com/nulzo/model-relay/internal/server"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"
)

var (
	streamChunks = [][]byte{
		[]byte(`data: {"choices":[{"delta":{"content":"Bench"}}]}` + "\n\n"),
		[]byte(`data: {"choices":[{"delta":{"content":"mark"}}]}` + "\n\n"),
		[]byte(`data: {"choices":[{"delta":{"content":" safe"}}]}` + "\n\n"),
		[]byte(`data: {"choices":[{"delta":{"content":" response"}}]}` + "\n\n"),
	}
	streamDone = []byte("data: [DONE]\n\n")
	unaryResp  = []byte(`{"id":"bench-123","model":"bench-upstream","choices":[{"message":{"role":"assistant","content":"Hello from the benchmark backend"}}]}`)
)

func main() {
	duration := pflag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := pflag.Int("rate", 50, "Requests per second")
	stream := pflag.Bool("stream", false, "Ask for streaming responses")
	synthetic := pflag.Bool("synthetic", false, "Force the backend to buffered so streams are synthesized")
	chaos := pflag.Bool("chaos", false, "Simulate random client disconnections")
	debug := pflag.Bool("audit", false, "Record the audit trail in memory while attacking")
	pflag.Parse()

	upstream := httptest.NewServer(http.HandlerFunc(mockBackend))
	defer upstream.Close()

	route := routing.Route{
		Name:            "bench",
		Endpoint:        upstream.URL,
		ExposedModelID:  "gpt-4",
		UpstreamModelID: "bench-upstream",
		Active:          true,
	}
	if *synthetic {
		route.StreamOverride = routing.StreamForceOff
	}
	tables := routing.NewStore(routing.NewTable([]routing.Route{route}, route))

	var rec audit.Recorder = audit.Nop{}
	memory := &audit.Memory{}
	if *debug {
		rec = memory
	}

	log := zap.NewNop()
	engine := relay.NewEngine(tables, relay.NewDispatcher(nil, relay.DefaultTimeout, log), relay.Options{}, log, rec)
	cfg := &config.Config{Server: config.ServerConfig{Env: "production", HTTPMode: true}}
	relayServer := httptest.NewServer(server.New(cfg, log, server.Deps{Engine: engine, Tables: tables}).Handler())
	defer relayServer.Close()

	url := relayServer.URL + "/v1/chat/completions"

	mode := "Unary"
	switch {
	case *stream && *synthetic:
		mode = "Synthetic streaming"
	case *stream:
		mode = "Passthrough streaming"
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", mode, *duration, *rate)

	body := fmt.Sprintf(`{"model":"gpt-4","stream":%t,"messages":[{"role":"user","content":"Hello"}]}`, *stream)
	targeter := func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = url
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{"Bearer bench-key-12345"},
		}
		return nil
	}

	done := make(chan struct{})
	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: starting disrupters")
		go startChaosMonkey(url, max(5, min(50, *rate/10)), done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	if *debug {
		fmt.Printf("Audit entries:   %d\n", len(memory.Entries()))
	}
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error set (first 5 unique):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if len(seen) == 5 {
				break
			}
			if !seen[msg] {
				fmt.Println(msg)
				seen[msg] = true
			}
		}
	}
}

func startChaosMonkey(url string, concurrency int, done chan struct{}) {
	fmt.Printf("Chaos monkey: %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	payload := `{"model":"gpt-4","stream":true,"messages":[{"role":"user","content":"Chaos Request"}]}`
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}
			for {
				select {
				case <-done:
					return
				default:
				}

				timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
				req.Header.Set("Content-Type", "application/json")

				if resp, err := client.Do(req); err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
				}
				cancel()

				time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
			}
		}()
	}
	wg.Wait()
}

// mockBackend answers like an OpenAI compatible backend.
func mockBackend(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	if gjson.GetBytes(body, "stream").Bool() {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, chunk := range streamChunks {
			time.Sleep(50 * time.Millisecond)
			_, _ = w.Write(chunk)
			flusher.Flush()
		}
		_, _ = w.Write(streamDone)
		flusher.Flush()
		return
	}

	time.Sleep(10 * time.Millisecond)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(unaryResp)
}
