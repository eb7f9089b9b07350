package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/xjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func TestCollectorCountsOutcomes(t *testing.T) {
	c := NewCollector(Config{}, nil)

	c.RecordAttempt(domain.AttemptRecord{NodeName: "n", Outcome: domain.OutcomeSuccess, Duration: ms(100)})
	c.RecordAttempt(domain.AttemptRecord{NodeName: "n", Outcome: domain.OutcomeFailure, Duration: ms(300), Category: domain.CategoryNetwork})
	c.RecordAttempt(domain.AttemptRecord{NodeName: "n", Outcome: domain.OutcomeTimeout, Duration: ms(200)})
	c.RecordAttempt(domain.AttemptRecord{NodeName: "n", Outcome: domain.OutcomeFailure, Duration: ms(0)})
	c.RecordAttempt(domain.AttemptRecord{NodeName: "n", Outcome: domain.OutcomeRejected})
	c.RecordRetry("n", 1)
	c.RecordRetry("n", 2)

	m := c.NodeMetrics("n")
	assert.EqualValues(t, 4, m.TotalExecutions)
	assert.EqualValues(t, 1, m.SuccessCount)
	assert.EqualValues(t, 3, m.FailureCount)
	assert.EqualValues(t, 2, m.RetryCount)
	assert.EqualValues(t, 1, m.RejectedCount)
	assert.EqualValues(t, 1, m.NetworkErrors)
	assert.EqualValues(t, 1, m.TimeoutErrors)
	assert.EqualValues(t, 1, m.OtherErrors)
	assert.Zero(t, m.ValidationErrors)
	assert.Equal(t, ms(150), m.AvgExecution)
	require.NotNil(t, m.LastExecution)
	assert.Zero(t, *m.LastExecution)
}

func TestCollectorPercentiles(t *testing.T) {
	c := NewCollector(Config{}, nil)
	for i := 1; i <= 100; i++ {
		c.RecordSuccess("n", ms(i))
	}

	m := c.NodeMetrics("n")
	require.NotNil(t, m.P50)
	assert.Equal(t, ms(50), *m.P50)
	assert.Equal(t, ms(90), *m.P90)
	assert.Equal(t, ms(99), *m.P99)
}

func TestCollectorWindowEvictsOldest(t *testing.T) {
	c := NewCollector(Config{WindowSize: 3}, nil)
	for _, d := range []int{1000, 1000, 1, 2, 3} {
		c.RecordSuccess("n", ms(d))
	}

	m := c.NodeMetrics("n")
	assert.Equal(t, ms(2), *m.P90)
	assert.Equal(t, ms(2), *m.P50)
	assert.EqualValues(t, 5, m.TotalExecutions)
}

func TestCollectorSingleSample(t *testing.T) {
	c := NewCollector(Config{}, nil)
	c.RecordSuccess("n", ms(42))

	m := c.NodeMetrics("n")
	assert.Equal(t, ms(42), *m.P50)
	assert.Equal(t, ms(42), *m.P99)
}

func TestCollectorUnknownNode(t *testing.T) {
	c := NewCollector(Config{}, nil)

	m := c.NodeMetrics("missing")
	assert.Zero(t, m.TotalExecutions)
	assert.Nil(t, m.P50)
	assert.Nil(t, m.LastExecution)
}

func TestCollectorClampsNegativeDuration(t *testing.T) {
	c := NewCollector(Config{}, nil)
	c.RecordSuccess("n", -time.Second)

	m := c.NodeMetrics("n")
	assert.Zero(t, *m.LastExecution)
	assert.Zero(t, m.AvgExecution)
}

func TestCollectorFailureRateCallback(t *testing.T) {
	rate := 0.5

	var rates []float64
	c := NewCollector(Config{
		FailureRateThreshold: &rate,
		OnFailureRate:        func(_ string, r float64) { rates = append(rates, r) },
	}, nil)

	c.RecordSuccess("n", ms(10))
	c.RecordFailure("n", ms(10), domain.CategoryOther)
	assert.Empty(t, rates, "rate equal to threshold does not fire")

	c.RecordFailure("n", ms(10), domain.CategoryOther)
	require.Len(t, rates, 1)
	assert.InDelta(t, 2.0/3.0, rates[0], 1e-9)
}

func TestCollectorLatencyCallback(t *testing.T) {
	latency := ms(100)

	var latencies []time.Duration
	c := NewCollector(Config{
		LatencyThreshold: &latency,
		OnLatency:        func(_ string, p99 time.Duration) { latencies = append(latencies, p99) },
	}, nil)

	c.RecordSuccess("n", ms(50))
	c.RecordSuccess("n", ms(200))
	assert.Empty(t, latencies)

	c.RecordSuccess("n", ms(200))
	assert.Equal(t, []time.Duration{ms(200)}, latencies)
}

func TestCollectorThresholdCallbackPanicIsContained(t *testing.T) {
	rate := 0.0
	c := NewCollector(Config{
		FailureRateThreshold: &rate,
		OnFailureRate:        func(string, float64) { panic("callback bug") },
	}, nil)

	assert.NotPanics(t, func() {
		c.RecordFailure("n", ms(1), domain.CategoryOther)
	})
	assert.EqualValues(t, 1, c.NodeMetrics("n").FailureCount)
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector(Config{}, nil)
	c.RecordSuccess("a", ms(1))
	c.RecordSuccess("b", ms(1))

	c.Reset("a")
	assert.Equal(t, []string{"b"}, c.NodeNames())

	c.Reset()
	assert.Empty(t, c.AllNodeMetrics())
}

func TestCollectorToJSON(t *testing.T) {
	c := NewCollector(Config{}, nil)
	c.RecordSuccess("story-gen", ms(5))

	data, err := c.ToJSON()
	require.NoError(t, err)

	var decoded map[string]NodeMetrics
	require.NoError(t, xjson.Unmarshal(data, &decoded))
	assert.EqualValues(t, 1, decoded["story-gen"].SuccessCount)
	assert.Equal(t, ms(5), *decoded["story-gen"].P50)
}

func TestCollectorConcurrentRecording(t *testing.T) {
	c := NewCollector(Config{WindowSize: 10}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if j%2 == 0 {
					c.RecordSuccess("n", ms(j))
				} else {
					c.RecordFailure("n", ms(j), domain.CategoryTimeout)
				}
				c.RecordRetry("n", j)
				_ = c.NodeMetrics("n")
			}
		}(i)
	}
	wg.Wait()

	m := c.NodeMetrics("n")
	assert.EqualValues(t, 1000, m.TotalExecutions)
	assert.EqualValues(t, 500, m.SuccessCount)
	assert.EqualValues(t, 500, m.TimeoutErrors)
	assert.EqualValues(t, 1000, m.RetryCount)
}

func TestConfigValidate(t *testing.T) {
	bad := 1.5
	assert.Error(t, Config{FailureRateThreshold: &bad}.Validate())
	assert.Error(t, Config{WindowSize: -1}.Validate())
	assert.NoError(t, Config{}.Validate())
}
