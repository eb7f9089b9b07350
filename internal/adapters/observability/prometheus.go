package observability

import (
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	uptimeDesc = prometheus.NewDesc(
		"noderun_uptime_seconds",
		"Time since the service started",
		nil, nil,
	)

	breakerOpenDesc = prometheus.NewDesc(
		"noderun_circuit_breaker_open",
		"Whether the node circuit breaker is open",
		[]string{"node", "state"}, nil,
	)

	breakerFailuresDesc = prometheus.NewDesc(
		"noderun_circuit_breaker_failures",
		"Consecutive failures counted by the breaker",
		[]string{"node"}, nil,
	)

	executionsDesc = prometheus.NewDesc(
		"noderun_node_executions_total",
		"Node attempts executed",
		[]string{"node"}, nil,
	)

	successesDesc = prometheus.NewDesc(
		"noderun_node_successes_total",
		"Node attempts that succeeded",
		[]string{"node"}, nil,
	)

	failuresDesc = prometheus.NewDesc(
		"noderun_node_failures_total",
		"Node attempts that failed",
		[]string{"node"}, nil,
	)

	retriesDesc = prometheus.NewDesc(
		"noderun_node_retries_total",
		"Retries scheduled",
		[]string{"node"}, nil,
	)

	rejectedDesc = prometheus.NewDesc(
		"noderun_node_rejected_total",
		"Invocations refused by an open breaker",
		[]string{"node"}, nil,
	)

	p99Desc = prometheus.NewDesc(
		"noderun_node_p99_seconds",
		"99th percentile attempt duration",
		[]string{"node"}, nil,
	)
)

// runtimeCollector exports breaker and node metrics as constant metrics read
// at scrape time.
type runtimeCollector struct {
	startTime time.Time
	breakers  BreakerSource
	metrics   MetricsSource
}

func newRuntimeCollector(startTime time.Time, breakers BreakerSource, nodeMetrics MetricsSource) *runtimeCollector {
	return &runtimeCollector{startTime: startTime, breakers: breakers, metrics: nodeMetrics}
}

func (c *runtimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- uptimeDesc
	ch <- breakerOpenDesc
	ch <- breakerFailuresDesc
	ch <- executionsDesc
	ch <- successesDesc
	ch <- failuresDesc
	ch <- retriesDesc
	ch <- rejectedDesc
	ch <- p99Desc
}

func (c *runtimeCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, time.Since(c.startTime).Seconds())

	if c.breakers != nil {
		for name, status := range c.breakers.BreakerStatus() {
			open := 0.0
			if status.State == domain.CircuitOpen {
				open = 1
			}
			ch <- prometheus.MustNewConstMetric(breakerOpenDesc, prometheus.GaugeValue, open, name, status.State.String())
			ch <- prometheus.MustNewConstMetric(breakerFailuresDesc, prometheus.GaugeValue, float64(status.FailureCount), name)
		}
	}

	if c.metrics == nil {
		return
	}
	for name, m := range c.metrics.AllNodeMetrics() {
		ch <- prometheus.MustNewConstMetric(executionsDesc, prometheus.CounterValue, float64(m.TotalExecutions), name)
		ch <- prometheus.MustNewConstMetric(successesDesc, prometheus.CounterValue, float64(m.SuccessCount), name)
		ch <- prometheus.MustNewConstMetric(failuresDesc, prometheus.CounterValue, float64(m.FailureCount), name)
		ch <- prometheus.MustNewConstMetric(retriesDesc, prometheus.CounterValue, float64(m.RetryCount), name)
		ch <- prometheus.MustNewConstMetric(rejectedDesc, prometheus.CounterValue, float64(m.RejectedCount), name)
		if m.P99 != nil {
			ch <- prometheus.MustNewConstMetric(p99Desc, prometheus.GaugeValue, m.P99.Seconds(), name)
		}
	}
}

var _ prometheus.Collector = (*runtimeCollector)(nil)
