package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pointfit/pkg/cache"
	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
	"github.com/matzehuels/pointfit/pkg/observability"
	"github.com/matzehuels/pointfit/pkg/pipeline"
	"github.com/matzehuels/pointfit/pkg/relax"
)

var square = []constraint.Constraint{
	{From: "P1", To: "P2", Distance: 3},
	{From: "P2", To: "P3", Distance: 3},
	{From: "P3", To: "P4", Distance: 3},
	{From: "P4", To: "P1", Distance: 3},
	{From: "P1", To: "P3", Distance: 4.2426},
	{From: "P2", To: "P4", Distance: 4.2426},
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(cache.NewMemoryCache(), nil, logger)
	srv := New(runner, logger, Options{MaxConcurrent: 2})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, ts
}

func postRun(t *testing.T, ts *httptest.Server, query string, req CreateRunRequest) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/v1/runs"+query, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "build")
}

func TestCreateRunWait(t *testing.T) {
	_, ts := newTestServer(t)
	resp, data := postRun(t, ts, "?wait=true", CreateRunRequest{
		Constraints: square,
		Options:     pipeline.Options{MaxRounds: 30},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var run Run
	require.NoError(t, json.Unmarshal(data, &run))
	assert.Equal(t, StateDone, run.State)
	require.NotNil(t, run.Result)
	assert.True(t, run.Result.Status.Terminated())
	assert.Equal(t, "P1", run.Result.Hub.ID)
	assert.LessOrEqual(t, run.Result.Final.Cumulative, run.Result.Initial.Cumulative)
	assert.Len(t, run.Result.Report.Points, 4)
}

func TestCreateRunAsync(t *testing.T) {
	_, ts := newTestServer(t)
	resp, data := postRun(t, ts, "", CreateRunRequest{
		CSV:     "departure_point,arrival_point,measurement_value\nA,B,3\nB,C,4\nA,C,5\n",
		Options: pipeline.Options{MaxRounds: 25, Seed: 3},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(data))

	var accepted Run
	require.NoError(t, json.Unmarshal(data, &accepted))
	assert.Equal(t, StateQueued, accepted.State)
	assert.Equal(t, "/v1/runs/"+accepted.ID, resp.Header.Get("Location"))

	var run Run
	require.Eventually(t, func() bool {
		run = Run{}
		getJSON(t, ts.URL+"/v1/runs/"+accepted.ID, &run)
		return run.State == StateDone || run.State == StateFailed
	}, 10*time.Second, 20*time.Millisecond)
	require.Equal(t, StateDone, run.State, "error: %+v", run.Error)

	var pts PointsResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/runs/"+accepted.ID+"/points", &pts))
	assert.False(t, pts.Normalized)
	assert.Len(t, pts.Points, 3)
	assert.Equal(t, "A", pts.Points[0].ID)

	var norm PointsResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/runs/"+accepted.ID+"/points?normalized=true", &norm))
	assert.True(t, norm.Normalized)
	for _, p := range norm.Points {
		for _, v := range []float64{p.X, p.Y, p.Z} {
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestCreateRunErrors(t *testing.T) {
	_, ts := newTestServer(t)
	tests := []struct {
		name string
		req  CreateRunRequest
		code errors.Code
	}{
		{"empty", CreateRunRequest{}, errors.ErrCodeInvalidInput},
		{"self loop", CreateRunRequest{Constraints: []constraint.Constraint{{From: "A", To: "A", Distance: 1}}}, errors.ErrCodeInvalidInput},
		{"both inputs", CreateRunRequest{Constraints: square, CSV: "a,b,c\n"}, errors.ErrCodeInvalidInput},
		{"bad options", CreateRunRequest{Constraints: square, Options: pipeline.Options{ShrinkFactor: 0.5}}, errors.ErrCodeInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := postRun(t, ts, "", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]ErrorBody
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, tt.code, body["error"].Code)
		})
	}

	resp, err := http.Post(ts.URL+"/v1/runs", "application/json", bytes.NewReader([]byte(`{"nope":1}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRunNotFound(t *testing.T) {
	_, ts := newTestServer(t)
	var body map[string]ErrorBody
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/runs/unknown-run", &body))
	assert.Equal(t, errors.ErrCodeNotFound, body["error"].Code)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/runs/unknown-run/points", &body))
}

func TestGetRunFromCheckpoint(t *testing.T) {
	srv, ts := newTestServer(t)
	set := constraint.MustNew(square)
	res, err := srv.runner.Estimate(context.Background(), set, pipeline.Options{MaxRounds: 10})
	require.NoError(t, err)

	var run Run
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/runs/"+res.RunID, &run))
	assert.Equal(t, StateDone, run.State)
	require.NotNil(t, run.Result)
	assert.Equal(t, res.Final, run.Result.Final)
	assert.Equal(t, relax.StatusExhausted, run.Result.Status)
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func TestHTTPHooks(t *testing.T) {
	h := &recordingHTTPHooks{}
	observability.SetHTTPHooks(h)
	defer observability.Reset()

	_, ts := newTestServer(t)
	var body map[string]any
	getJSON(t, ts.URL+"/healthz", &body)
	getJSON(t, ts.URL+"/v1/runs/abc", &body)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []string{"GET /healthz", "GET /v1/runs/{runID}"}, h.routes)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ErrCodeInvalidOptions))
	assert.Equal(t, http.StatusNotFound, statusFor(errors.ErrCodeNotFound))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.ErrCodeStorage))
	assert.Equal(t, http.StatusInternalServerError, statusFor(""))
}
