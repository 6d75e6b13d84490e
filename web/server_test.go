package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ampdesign/circuit"
	"github.com/c360studio/ampdesign/llm"
	"github.com/c360studio/ampdesign/llm/testutil"
	"github.com/c360studio/ampdesign/pipeline"
	"github.com/c360studio/ampdesign/prompts"
	"github.com/c360studio/ampdesign/smallsignal"
	"github.com/c360studio/ampdesign/storage"
)

const csDesign = `{
  "topology": "CS",
  "component_values": {"drain_resistor": 10000, "gate_resistor": 1000000},
  "transistor_parameters": {"gm": 0.002, "rd": 50000, "Cgs": 5e-12, "Cgd": 1e-12}
}`

type stubRunner struct {
	result *pipeline.Result
	err    error
	prompt string
}

func (s *stubRunner) Run(_ context.Context, request string) (*pipeline.Result, error) {
	s.prompt = request
	return s.result, s.err
}

func newServer(t *testing.T, runner Runner, opts ...Option) *httptest.Server {
	t.Helper()
	s, err := New(runner, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// failingPipeline runs the real stages with every model call failing.
func failingPipeline(t *testing.T, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	lib, err := prompts.NewLibrary("")
	require.NoError(t, err)
	mock := &testutil.MockLLMClient{Err: llm.NewFatalError(errors.New("no model configured"))}
	return pipeline.New(mock, lib, opts...)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestIndex(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Example prompts")
	assert.Contains(t, body, "Rd = 10kΩ")

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDesign(t *testing.T) {
	srv := newServer(t, failingPipeline(t))

	resp, err := http.PostForm(srv.URL+"/design", url.Values{
		"prompt": {"Design a common source amplifier with gain 10, Rd = 10kΩ, Rg = 1MΩ, VDD = 5V"},
	})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Common Source (extracted design)")
	assert.Contains(t, body, "Voltage gain")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "voltage_gain")
	assert.Contains(t, body, "FAIL")
	assert.Contains(t, body, "No netlist was generated.")
	assert.Contains(t, body, "component-selection model call")
}

func TestDesign_Errors(t *testing.T) {
	t.Run("empty prompt", func(t *testing.T) {
		srv := newServer(t, failingPipeline(t))
		resp, err := http.PostForm(srv.URL+"/design", url.Values{"prompt": {"  "}})
		require.NoError(t, err)
		body := readBody(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Describe the amplifier you need.")
	})

	t.Run("no pipeline", func(t *testing.T) {
		srv := newServer(t, nil)
		resp, err := http.PostForm(srv.URL+"/design", url.Values{"prompt": {"gain 10"}})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		srv := newServer(t, nil)
		resp, err := http.Get(srv.URL + "/design")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestExtract(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/extract", "application/json",
		strings.NewReader(`{"text": "Design a common gate amplifier with Rd = 5kΩ"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var a circuit.Analysis
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
	assert.Equal(t, circuit.CommonGate, a.Identification.Topology)
	require.NotEmpty(t, a.Components.Resistors)
	assert.InDelta(t, 5000, a.Components.Resistors[0].Value, 1e-9)

	for _, body := range []string{`{"text": ""}`, `not json`} {
		resp, err := http.Post(srv.URL+"/api/extract", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestAnalyze(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader(csDesign))
	require.NoError(t, err)
	var res smallsignal.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, res.Report)
	assert.Empty(t, res.Error)

	resp, err = http.Post(srv.URL+"/api/analyze", "application/json",
		strings.NewReader(`{"topology": "Cascode"}`))
	require.NoError(t, err)
	res = smallsignal.Result{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, res.Report)
	assert.NotEmpty(t, res.Error)
	assert.Len(t, res.ValidTopologies, 3)

	resp, err = http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlot(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/plot.svg", "application/json", strings.NewReader(csDesign))
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "<svg")

	resp, err = http.Post(srv.URL+"/api/plot.svg", "application/json",
		strings.NewReader(`{"topology": "CS", "transistor_parameters": {"gm": 0}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRuns(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{RunID: "run-1", Revisions: 1}}
	srv := newServer(t, runner)

	resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(`{"prompt": "gain 10"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gain 10", runner.prompt)

	var got pipeline.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 1, got.Revisions)
}

func TestRuns_Errors(t *testing.T) {
	tests := []struct {
		name   string
		runner Runner
		body   string
		status int
	}{
		{"no pipeline", nil, `{"prompt": "x"}`, http.StatusServiceUnavailable},
		{"bad body", &stubRunner{}, `[`, http.StatusBadRequest},
		{"empty prompt", &stubRunner{err: pipeline.ErrEmptyRequest}, `{"prompt": ""}`, http.StatusBadRequest},
		{"timeout", &stubRunner{result: &pipeline.Result{RunID: "r"}, err: context.DeadlineExceeded}, `{"prompt": "x"}`, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.runner)
			resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRuns_BodyLimit(t *testing.T) {
	runner := &stubRunner{}
	s, err := New(runner)
	require.NoError(t, err)
	big := `{"prompt": "` + strings.Repeat("a", maxRequestBodySize) + `"}`

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(big)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, runner.prompt)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)
	srv := newServer(t, failingPipeline(t, pipeline.WithMetrics(metrics)), WithGatherer(reg))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))

	resp, err = http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(`{"prompt": "Design a source follower with Rs = 2kΩ"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `ampdesign_runs_total{outcome="degraded"} 1`)
	assert.Contains(t, body, "ampdesign_stage_duration_seconds")
}

func TestMetricsDisabled(t *testing.T) {
	srv := newServer(t, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type stubStore struct {
	runs map[string]*pipeline.Result
	err  error
}

func (s *stubStore) Get(_ context.Context, id string) (*pipeline.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.runs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

func (s *stubStore) List(context.Context) ([]storage.Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []storage.Summary
	for id, r := range s.runs {
		out = append(out, storage.Summary{RunID: id, Request: r.Request})
	}
	return out, nil
}

func TestSavedRuns(t *testing.T) {
	store := &stubStore{runs: map[string]*pipeline.Result{
		"abc": {RunID: "abc", Request: "gain 10"},
	}}
	srv := newServer(t, nil, WithRunStore(store))

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	var list []storage.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "abc", list[0].RunID)

	resp, err = http.Get(srv.URL + "/api/runs/abc")
	require.NoError(t, err)
	var got pipeline.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gain 10", got.Request)

	resp, err = http.Get(srv.URL + "/api/runs/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	store.err = errors.New("bucket gone")
	resp, err = http.Get(srv.URL + "/api/runs/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSavedRuns_NoStore(t *testing.T) {
	srv := newServer(t, nil)
	for _, path := range []string{"/api/runs", "/api/runs/abc"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}
