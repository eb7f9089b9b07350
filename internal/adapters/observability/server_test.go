package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/noderun/internal/adapters/metrics"
	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"github.com/eleven-am/noderun/internal/xjson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticBreakers map[string]ports.CircuitBreakerStatus

func (s staticBreakers) BreakerStatus() map[string]ports.CircuitBreakerStatus {
	return s
}

func newTestServer(t *testing.T, breakers BreakerSource, nodeMetrics MetricsSource) *httptest.Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = true
	srv := httptest.NewServer(NewServer(cfg, breakers, nodeMetrics, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealthReportsBreakers(t *testing.T) {
	failedAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	srv := newTestServer(t, staticBreakers{
		"story-gen": {Name: "story-gen", State: domain.CircuitOpen, FailureCount: 5, LastFailureTime: failedAt, TimeUntilRecovery: 30 * time.Second},
		"gap":       {Name: "gap", State: domain.CircuitClosed},
	}, nil)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health HealthResponse
	require.NoError(t, xjson.Unmarshal(body, &health))
	assert.Equal(t, StatusDegraded, health.Status)
	assert.Equal(t, []string{"story-gen"}, health.Open)
	require.Contains(t, health.Breakers, "story-gen")
	assert.Equal(t, "OPEN", health.Breakers["story-gen"].State)
	assert.Equal(t, 5, health.Breakers["story-gen"].FailureCount)
	require.NotNil(t, health.Breakers["story-gen"].LastFailureTime)
	assert.True(t, failedAt.Equal(*health.Breakers["story-gen"].LastFailureTime))
	assert.Nil(t, health.Breakers["gap"].LastFailureTime)

	resp, _ = get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "one closed breaker keeps the runner ready")
}

func TestHealthOKWithoutOpenBreakers(t *testing.T) {
	srv := newTestServer(t, staticBreakers{"gap": {State: domain.CircuitHalfOpen}}, nil)

	_, body := get(t, srv.URL+"/health")
	var health HealthResponse
	require.NoError(t, xjson.Unmarshal(body, &health))
	assert.Equal(t, StatusOK, health.Status)
	assert.Empty(t, health.Open)

	resp, body := get(t, srv.URL+"/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live", string(body))
}

func TestReadyFailsWhenEveryBreakerIsOpen(t *testing.T) {
	srv := newTestServer(t, staticBreakers{
		"a": {State: domain.CircuitOpen},
		"b": {State: domain.CircuitOpen},
	}, nil)

	resp, body := get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "not ready", string(body))
}

type drainFlag bool

func (d drainFlag) IsDraining() bool {
	return bool(d)
}

func TestReadyFailsWhileDraining(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	server := NewServer(cfg, staticBreakers{"gap": {State: domain.CircuitClosed}}, nil, nil)
	server.SetDrainSource(drainFlag(true))
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	resp, _ := get(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, xjson.Unmarshal(body, &health))
	assert.Equal(t, StatusDraining, health.Status)
	assert.True(t, health.Draining)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector(metrics.Config{}, nil)
	collector.RecordSuccess("story-gen", 40*time.Millisecond)
	collector.RecordFailure("story-gen", 60*time.Millisecond, domain.CategoryNetwork)

	srv := newTestServer(t, staticBreakers{"story-gen": {State: domain.CircuitClosed, FailureCount: 1}}, collector)

	resp, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out MetricsResponse
	require.NoError(t, xjson.Unmarshal(body, &out))
	require.Contains(t, out.Nodes, "story-gen")
	assert.EqualValues(t, 2, out.Nodes["story-gen"].TotalExecutions)
	assert.EqualValues(t, 1, out.Nodes["story-gen"].NetworkErrors)
	assert.NotEmpty(t, out.Runtime.GoVersion)

	resp, body = get(t, srv.URL+"/metrics/prometheus")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `noderun_node_executions_total{node="story-gen"} 2`)
	assert.Contains(t, text, `noderun_node_failures_total{node="story-gen"} 1`)
	assert.Contains(t, text, `noderun_circuit_breaker_open{node="story-gen",state="CLOSED"} 0`)
	assert.Contains(t, text, `noderun_circuit_breaker_failures{node="story-gen"} 1`)
}

func TestPrometheusExposesEveryNodeUnderOneFamily(t *testing.T) {
	collector := metrics.NewCollector(metrics.Config{}, nil)
	collector.RecordSuccess("a", 10*time.Millisecond)
	collector.RecordSuccess("b", 20*time.Millisecond)

	srv := newTestServer(t, staticBreakers{
		"a": {State: domain.CircuitClosed},
		"b": {State: domain.CircuitOpen, FailureCount: 3},
	}, collector)

	resp, body := get(t, srv.URL+"/metrics/prometheus")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, strings.Count(string(body), "# HELP noderun_circuit_breaker_open "))

	expected := `
# HELP noderun_circuit_breaker_open Whether the node circuit breaker is open
# TYPE noderun_circuit_breaker_open gauge
noderun_circuit_breaker_open{node="a",state="CLOSED"} 0
noderun_circuit_breaker_open{node="b",state="OPEN"} 1
# HELP noderun_node_successes_total Node attempts that succeeded
# TYPE noderun_node_successes_total counter
noderun_node_successes_total{node="a"} 1
noderun_node_successes_total{node="b"} 1
`
	require.NoError(t, testutil.ScrapeAndCompare(srv.URL+"/metrics/prometheus", strings.NewReader(expected),
		"noderun_circuit_breaker_open", "noderun_node_successes_total"))
}

func TestRuntimeCollectorWithoutSources(t *testing.T) {
	c := newRuntimeCollector(time.Now(), nil, nil)
	assert.Equal(t, 1, testutil.CollectAndCount(c))
	assert.Equal(t, 0, testutil.CollectAndCount(c, "noderun_node_executions_total"))
}

func TestMetricsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableMetrics = false
	srv := httptest.NewServer(NewServer(cfg, nil, nil, nil).Handler())
	t.Cleanup(srv.Close)

	resp, _ := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(DefaultConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	cfg.Port = 70000
	assert.True(t, domain.IsInvalidConfig(cfg.Validate()))
}
