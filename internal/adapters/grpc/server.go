package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/eleven-am/noderun/internal/domain"
	"github.com/eleven-am/noderun/internal/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type ServerConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	BindAddress      string `json:"bind_address" yaml:"bind_address"`
	BindPort         int    `json:"bind_port" yaml:"bind_port"`
	EnableReflection bool   `json:"enable_reflection" yaml:"enable_reflection"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:     false,
		BindAddress: "",
		BindPort:    9091,
	}
}

func (c ServerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BindPort < 0 || c.BindPort > 65535 {
		return domain.NewConfigError("grpc health", "bind_port", "bindPort must be between 0 and 65535")
	}
	return nil
}

// HealthServer serves a HealthReporter over gRPC so that load balancers and
// orchestrators can probe individual nodes by service name.
type HealthServer struct {
	logger   *slog.Logger
	config   ServerConfig
	reporter *HealthReporter

	mu       sync.RWMutex
	server   *grpc.Server
	listener net.Listener
}

func NewHealthServer(config ServerConfig, reporter *HealthReporter, logger *slog.Logger) *HealthServer {
	return &HealthServer{
		logger:   ports.ComponentLogger(logger, "grpc-health-server"),
		config:   config,
		reporter: reporter,
	}
}

// Addr reports the bound address once serving, or the configured one.
func (s *HealthServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return net.JoinHostPort(s.config.BindAddress, fmt.Sprint(s.config.BindPort))
}

// Start serves until ctx is cancelled, then stops gracefully.
func (s *HealthServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.BindAddress, fmt.Sprint(s.config.BindPort))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("failed to listen", ports.FieldError, err, "address", addr)
		return fmt.Errorf("grpc health listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			UnaryRecoveryInterceptor(s.logger),
			UnaryLoggingInterceptor(s.logger),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor(s.logger),
			StreamLoggingInterceptor(s.logger),
		),
	)
	grpc_health_v1.RegisterHealthServer(server, s.reporter.Server())
	if s.config.EnableReflection {
		reflection.Register(server)
	}

	s.mu.Lock()
	s.server = server
	s.listener = listener
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gRPC health server starting", "address", listener.Addr().String())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error("gRPC health server failed", ports.FieldError, err)
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping gRPC health server")
	server.GracefulStop()
	<-errCh
	s.logger.Info("gRPC health server stopped")
	return nil
}
