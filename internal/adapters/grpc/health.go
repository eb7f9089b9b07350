package grpc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const DefaultServicePrefix = "noderun.node."

// HealthReporter publishes each node's circuit breaker as a gRPC health
// service. An OPEN breaker is NOT_SERVING; CLOSED and HALF_OPEN serve.
type HealthReporter struct {
	logger *slog.Logger
	prefix string
	server *health.Server
}

func NewHealthReporter(prefix string, logger *slog.Logger) *HealthReporter {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultServicePrefix
	}
	return &HealthReporter{
		logger: ports.ComponentLogger(logger, "health-reporter"),
		prefix: prefix,
		server: health.NewServer(),
	}
}

// Server returns the health service for registration with
// grpc_health_v1.RegisterHealthServer.
func (h *HealthReporter) Server() *health.Server {
	return h.server
}

func (h *HealthReporter) ServiceName(nodeName string) string {
	return h.prefix + nodeName
}

// Track marks nodes as serving before any breaker transition is seen.
func (h *HealthReporter) Track(nodeNames ...string) {
	for _, name := range nodeNames {
		h.server.SetServingStatus(h.ServiceName(name), grpc_health_v1.HealthCheckResponse_SERVING)
	}
}

func (h *HealthReporter) OnStateChange(name string, from, to domain.CircuitState) {
	status := servingStatus(to)
	h.server.SetServingStatus(h.ServiceName(name), status)
	h.logger.Debug("service status updated",
		ports.FieldNodeName, name,
		"from", from.String(),
		"to", to.String(),
		"status", status.String())
}

func (h *HealthReporter) Status(ctx context.Context, nodeName string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	resp, err := h.server.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: h.ServiceName(nodeName)})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.GetStatus()
}

// Shutdown reports every service as NOT_SERVING and ignores later updates.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

func servingStatus(state domain.CircuitState) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if state == domain.CircuitOpen {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}

var _ ports.StateChangeListener = (*HealthReporter)(nil)
