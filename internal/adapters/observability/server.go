package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/eleven-am/noderun/internal/adapters/metrics"
	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"github.com/eleven-am/noderun/internal/xjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDraining = "draining"
)

// BreakerSource reports the breakers of one runner.
type BreakerSource interface {
	BreakerStatus() map[string]ports.CircuitBreakerStatus
}

type MetricsSource interface {
	AllNodeMetrics() map[string]metrics.NodeMetrics
}

type DrainSource interface {
	IsDraining() bool
}

type Server struct {
	config    Config
	server    *http.Server
	logger    *slog.Logger
	breakers  BreakerSource
	metrics   MetricsSource
	drain     DrainSource
	startTime time.Time
}

type BreakerHealth struct {
	State             string        `json:"state"`
	FailureCount      int           `json:"failure_count"`
	LastFailureTime   *time.Time    `json:"last_failure_time,omitempty"`
	TimeUntilRecovery time.Duration `json:"time_until_recovery"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Uptime    string                   `json:"uptime"`
	Breakers  map[string]BreakerHealth `json:"breakers,omitempty"`
	Open      []string                 `json:"open,omitempty"`
	Draining  bool                     `json:"draining,omitempty"`
}

type MetricsResponse struct {
	Timestamp time.Time                      `json:"timestamp"`
	Runtime   RuntimeMetrics                 `json:"runtime"`
	Nodes     map[string]metrics.NodeMetrics `json:"nodes"`
}

type RuntimeMetrics struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	NumGC        uint32 `json:"gc_cycles"`
}

// NewServer serves breaker health and node metrics. metrics may be nil, in
// which case /metrics reports runtime figures only.
func NewServer(config Config, breakers BreakerSource, nodeMetrics MetricsSource, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		logger:    ports.ComponentLogger(logger, "observability"),
		breakers:  breakers,
		metrics:   nodeMetrics,
		startTime: time.Now(),
	}
}

// SetDrainSource makes the server report not ready while d is draining.
// It must be called before serving.
func (s *Server) SetDrainSource(d DrainSource) {
	s.drain = d
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	if s.config.EnableMetrics {
		mux.HandleFunc("/metrics", s.handleMetrics)
		mux.Handle("/metrics/prometheus", s.prometheusHandler())
	}

	return s.withLogging(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("observability listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting observability server", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error("observability server error", ports.FieldError, err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down observability server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) health() (HealthResponse, bool) {
	response := HealthResponse{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	}
	draining := s.drain != nil && s.drain.IsDraining()
	if draining {
		response.Status = StatusDraining
		response.Draining = true
	}
	if s.breakers == nil {
		return response, !draining
	}

	statuses := s.breakers.BreakerStatus()
	response.Breakers = make(map[string]BreakerHealth, len(statuses))
	for name, status := range statuses {
		entry := BreakerHealth{
			State:             status.State.String(),
			FailureCount:      status.FailureCount,
			TimeUntilRecovery: status.TimeUntilRecovery,
		}
		if !status.LastFailureTime.IsZero() {
			last := status.LastFailureTime
			entry.LastFailureTime = &last
		}
		response.Breakers[name] = entry

		if status.State == domain.CircuitOpen {
			response.Open = append(response.Open, name)
		}
	}
	sort.Strings(response.Open)

	if len(response.Open) > 0 && !draining {
		response.Status = StatusDegraded
	}
	ready := !draining && (len(statuses) == 0 || len(response.Open) < len(statuses))
	return response, ready
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response, _ := s.health()
	s.writeJSON(w, http.StatusOK, response)
}

// handleReady fails while draining or when every known breaker is open.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if _, ready := s.health(); !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ready")
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "live")
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	response := MetricsResponse{
		Timestamp: time.Now(),
		Runtime:   collectRuntimeMetrics(),
		Nodes:     map[string]metrics.NodeMetrics{},
	}
	if s.metrics != nil {
		response.Nodes = s.metrics.AllNodeMetrics()
	}
	s.writeJSON(w, http.StatusOK, response)
}

// prometheusHandler serves the runtime collector from a private registry.
func (s *Server) prometheusHandler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(newRuntimeCollector(s.startTime, s.breakers, s.metrics))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := xjson.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", ports.FieldError, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func collectRuntimeMetrics() RuntimeMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeMetrics{
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		HeapAlloc:    m.HeapAlloc,
		NumGC:        m.NumGC,
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			ports.FieldDuration, time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
