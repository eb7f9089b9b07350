package ports

import "github.com/eleven-am/noderun/internal/domain"

type MetricsSink = domain.MetricsSink

type NoopMetricsSink struct{}

func (NoopMetricsSink) RecordAttempt(domain.AttemptRecord) {}

func (NoopMetricsSink) RecordRetry(string, int) {}
