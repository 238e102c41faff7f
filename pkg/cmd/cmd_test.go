package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"InferenceMeter/pkg/config"
	"InferenceMeter/pkg/exporting"
	"InferenceMeter/pkg/graphing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type constProbe struct {
	cpu float64
	mem float64
}

func (p *constProbe) CPUPercent() (float64, error)   { return p.cpu, nil }
func (p *constProbe) MemoryUsedMB() (float64, error) { return p.mem, nil }

func fakeOllama(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, `{"error":"model not found"}`, status)
			return
		}
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"model":"qwen","response":"Paris.","done":true,
			"total_duration":6000000000,"load_duration":500000000,
			"prompt_eval_duration":300000000,"eval_duration":5000000000,
			"eval_count":50,"prompt_eval_count":10}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Endpoint = endpoint
	cfg.Interval = 5 * time.Millisecond
	cfg.OutputPath = filepath.Join(t.TempDir(), "log.jsonl")
	cfg.OutputFormat = "jsonl"
	return cfg
}

func TestRunOnce(t *testing.T) {
	srv := fakeOllama(t, http.StatusOK)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, runOnce(context.Background(), cfg, zap.NewNop(), "What is the capital of France?", &out))

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "Paris.", report["model_response"])
	assert.Equal(t, cfg.Model, report["model"])
	assert.Contains(t, report, "resource_usage")
	assert.Contains(t, report, "all_novel_metrics")

	ollama := report["ollama_metrics"].(map[string]interface{})
	assert.InDelta(t, 10.0, ollama["tokens_per_second"], 1e-9)

	records, err := exporting.LoadRecords(cfg.OutputPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "What is the capital of France?", records[0]["prompt"])
}

func TestRunOnce_UpstreamError(t *testing.T) {
	srv := fakeOllama(t, http.StatusNotFound)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	err := runOnce(context.Background(), cfg, zap.NewNop(), "hi", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM API Error: 404")
	assert.Empty(t, out.String())
}

func TestRunOnce_ReportLogFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The log directory disappears while the model is generating.
		_ = os.RemoveAll(dir)
		_, _ = w.Write([]byte(`{"model":"qwen","response":"ok","done":true,"eval_count":5,"eval_duration":1000000000}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, srv.URL)
	cfg.OutputPath = filepath.Join(dir, "log.parquet")
	cfg.OutputFormat = ""

	var out bytes.Buffer
	err := runOnce(context.Background(), cfg, zap.NewNop(), "hi", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close report log")
	assert.Contains(t, out.String(), `"model_response": "ok"`)
}

func TestRunOnce_EmptyPrompt(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1")
	assert.Error(t, runOnce(context.Background(), cfg, zap.NewNop(), "", &bytes.Buffer{}))
}

func TestProbeFactory(t *testing.T) {
	cfg := config.New()
	cfg.Probe = "bogus"
	_, err := probeFactory(cfg)
	assert.Error(t, err)

	cfg.Probe = "procfs"
	f, err := probeFactory(cfg)
	require.NoError(t, err)
	a, err := f()
	require.NoError(t, err)
	b, err := f()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestSnapshot(t *testing.T) {
	cfg := config.New()
	cfg.Interval = time.Millisecond

	static := exporting.Record{"hostname": "pi", "num_processors": 4}
	var out bytes.Buffer
	require.NoError(t, snapshot(cfg, static, &constProbe{cpu: 50, mem: 512}, zap.NewNop(), &out))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "pi", got["hostname"])
	assert.InDelta(t, 50.0, got["cpu_percent"], 1e-9)
	assert.InDelta(t, 512.0, got["memory_mb"], 1e-9)
	assert.InDelta(t, 4.7, got["power_w"], 1e-9)
	assert.Contains(t, got, "timestamp")
	assert.NotContains(t, static, "cpu_percent")
}

func benchServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/process_prompt", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"LLM API unreachable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"prompt":         body["prompt"],
			"model_response": strings.Repeat("x", 150),
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRunBench(t *testing.T) {
	srv, calls := benchServer(t)
	output := filepath.Join(t.TempDir(), "results.json")

	var out bytes.Buffer
	results, err := RunBench(context.Background(), BenchOptions{
		BaseURL: srv.URL + "/",
		Prompts: BenchPrompts[:3],
		Output:  output,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	require.Len(t, results, 2)
	assert.Equal(t, BenchPrompts[0], results[0]["prompt"])
	assert.Equal(t, BenchPrompts[2], results[1]["prompt"])
	assert.Contains(t, results[0], "elapsed_time")

	assert.Contains(t, out.String(), "Error 502")
	assert.Contains(t, out.String(), strings.Repeat("x", 100)+"...")
	assert.NotContains(t, out.String(), strings.Repeat("x", 101))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var saved []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Len(t, saved, 2)
}

func TestRunBench_Canceled(t *testing.T) {
	srv, calls := benchServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBench(ctx, BenchOptions{
		BaseURL: srv.URL,
		Prompts: BenchPrompts[:2],
		Pause:   time.Hour,
	}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestBenchPrompts(t *testing.T) {
	assert.Len(t, BenchPrompts, 10)
	assert.Equal(t, "hello", preview("hello", 100))
	assert.Equal(t, "hé", preview("héllo", 2))
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "run", "bench", "snapshot", "graph"}, names)
}

func TestRootCmd_Bench(t *testing.T) {
	srv, _ := benchServer(t)
	output := filepath.Join(t.TempDir(), "results.json")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"bench", "--url", srv.URL, "--pause", "0s", "--results", output})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Test completed. 9 results")
	assert.FileExists(t, output)
}

func TestRootCmd_Graph(t *testing.T) {
	t.Chdir(t.TempDir())

	exp, err := exporting.NewExporter("log.jsonl", "")
	require.NoError(t, err)
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		require.NoError(t, exp.Write(exporting.Record{
			"timestamp":         base.Add(time.Duration(i) * time.Minute).Format(exporting.TimestampLayout),
			"model":             "qwen",
			"tokens_per_second": float64(10 + i),
			"avg_power_w":       4.2,
		}))
	}
	require.NoError(t, exp.Close())

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"graph", "log.jsonl", "--graph-dir", "charts", "--log-level", "error"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Generated 1 file(s)")
	assert.FileExists(t, filepath.Join("charts", graphing.HTMLFileName))
}

func TestRootCmd_GraphMissingInput(t *testing.T) {
	t.Chdir(t.TempDir())

	root := NewRootCmd()
	root.SetArgs([]string{"graph", "missing.csv"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")
}
