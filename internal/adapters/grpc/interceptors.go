package grpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/eleven-am/noderun/internal/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, logger, info.FullMethod, "unary", time.Since(start), err)
		return resp, err
	}
}

func StreamLoggingInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		logger.Debug("stream started", "method", info.FullMethod)
		err := handler(srv, ss)
		logCall(ss.Context(), logger, info.FullMethod, "stream", time.Since(start), err)
		return err
	}
}

// Health probes are frequent, so successful calls log at debug level.
func logCall(ctx context.Context, logger *slog.Logger, method, kind string, duration time.Duration, err error) {
	code := status.Code(err)
	if err != nil && code != codes.Canceled {
		logger.ErrorContext(ctx, "request failed",
			"method", method,
			"type", kind,
			ports.FieldDuration, duration,
			"code", code.String(),
			ports.FieldError, err)
		return
	}
	logger.DebugContext(ctx, "request completed",
		"method", method,
		"type", kind,
		ports.FieldDuration, duration,
		"code", code.String())
}

// UnaryRecoveryInterceptor turns a handler panic into codes.Internal.
func UnaryRecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

func StreamRecoveryInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

func recovered(logger *slog.Logger, method string, r interface{}) error {
	logger.Error("handler panicked",
		"method", method,
		"panic", r,
		"stack", string(debug.Stack()))
	return status.Errorf(codes.Internal, "internal error in %s", method)
}
