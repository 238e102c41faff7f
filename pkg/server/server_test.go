package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/metrics"
	"InferenceMeter/pkg/ollama"
	"InferenceMeter/pkg/profiling"
	"InferenceMeter/pkg/sampling"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProfiler struct {
	report  *profiling.Report
	err     error
	prompts []string
}

func (f *fakeProfiler) Model() string { return "test-model" }

func (f *fakeProfiler) Profile(_ context.Context, prompt string) (*profiling.Report, error) {
	f.prompts = append(f.prompts, prompt)
	return f.report, f.err
}

func testReport() *profiling.Report {
	return &profiling.Report{
		RequestID: "req-1",
		Model:     "test-model",
		Response:  "Paris",
		WallClock: 6,
		Ollama:    metrics.OllamaMetrics{EvalCount: 50, TokensPerSecond: 10},
		Resources: metrics.ResourceUsage{AvgPowerW: 4, SampleCount: 6},
		Derived:   metrics.Set{"total_energy_j": 24},
	}
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/process_prompt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestProcessPrompt(t *testing.T) {
	p := &fakeProfiler{report: testReport()}
	s := New(p, Options{})

	w := post(t, s.Handler(), `{"prompt":"What is the capital of France?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"What is the capital of France?"}, p.prompts)

	body := decode(t, w)
	assert.Equal(t, "Paris", body["model_response"])
	assert.Equal(t, "req-1", body["request_id"])
	for _, section := range []string{"ollama_metrics", "resource_usage", "all_novel_metrics"} {
		assert.IsType(t, map[string]interface{}{}, body[section], section)
	}
	ollamaSection := body["ollama_metrics"].(map[string]interface{})
	assert.Equal(t, 10.0, ollamaSection["tokens_per_second"])
}

func TestProcessPromptMissing(t *testing.T) {
	p := &fakeProfiler{report: testReport()}
	s := New(p, Options{})

	for _, body := range []string{`{}`, `{"prompt":""}`, `not json`, ``} {
		w := post(t, s.Handler(), body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Prompt is required"}`, w.Body.String())
	}
	assert.Empty(t, p.prompts)
}

func TestProcessPromptUpstreamStatus(t *testing.T) {
	p := &fakeProfiler{err: &ollama.StatusError{Code: http.StatusNotFound, Body: `{"error":"model not found"}`}}
	s := New(p, Options{})

	w := post(t, s.Handler(), `{"prompt":"hi"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "LLM API Error: 404", body["error"])
	assert.Equal(t, `{"error":"model not found"}`, body["details"])
}

func TestProcessPromptTransportError(t *testing.T) {
	p := &fakeProfiler{err: errors.New("connection refused")}
	s := New(p, Options{})

	w := post(t, s.Handler(), `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["details"], "connection refused")
}

func TestInfoHealthStaticMetrics(t *testing.T) {
	s := New(&fakeProfiler{}, Options{
		Endpoint: "http://localhost:11434/api/generate",
		Static:   exporting.Record{"hostname": "edge-01"},
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	info := decode(t, get("/info"))
	assert.Equal(t, "test-model", info["model"])
	assert.Equal(t, "http://localhost:11434/api/generate", info["endpoint"])

	assert.Equal(t, "edge-01", decode(t, get("/static"))["hostname"])

	w = get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inference_meter_prompts_in_flight")
}

func TestHubStreamsTicks(t *testing.T) {
	hub := NewHub(nil)
	s := New(&fakeProfiler{}, Options{Hub: hub})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/ticks"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish("req-9", sampling.Tick{Index: 3, CPUPercent: 42, PowerW: 4.38})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg TickMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "req-9", msg.RequestID)
	assert.Equal(t, 3, msg.Index)
	assert.Equal(t, 42.0, msg.CPUPercent)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRecordReport(t *testing.T) {
	energy := testutil.ToFloat64(EnergyJoulesTotal)
	tokens := testutil.ToFloat64(TokensTotal)

	RecordReport(testReport())
	assert.Equal(t, 10.0, testutil.ToFloat64(TokensPerSecond))
	assert.Equal(t, 4.0, testutil.ToFloat64(AvgPowerWatts))
	assert.InDelta(t, energy+24, testutil.ToFloat64(EnergyJoulesTotal), 1e-9)
	assert.InDelta(t, tokens+50, testutil.ToFloat64(TokensTotal), 1e-9)

	// An empty report leaves the totals untouched.
	RecordReport(&profiling.Report{Derived: metrics.Set{}})
	assert.InDelta(t, tokens+50, testutil.ToFloat64(TokensTotal), 1e-9)
}
