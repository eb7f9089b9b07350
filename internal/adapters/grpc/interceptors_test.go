package grpc

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

var checkInfo = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func TestUnaryRecoveryInterceptor(t *testing.T) {
	logger, buf := captureLogger()
	interceptor := UnaryRecoveryInterceptor(logger)

	resp, err := interceptor(context.Background(), nil, checkInfo, func(context.Context, interface{}) (interface{}, error) {
		panic("status map corrupted")
	})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, buf.String(), "status map corrupted")
}

func TestUnaryRecoveryInterceptorPassesThrough(t *testing.T) {
	logger, _ := captureLogger()
	interceptor := UnaryRecoveryInterceptor(logger)

	resp, err := interceptor(context.Background(), nil, checkInfo, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestUnaryLoggingInterceptorLevels(t *testing.T) {
	logger, buf := captureLogger()
	interceptor := UnaryLoggingInterceptor(logger)

	_, _ = interceptor(context.Background(), nil, checkInfo, func(context.Context, interface{}) (interface{}, error) {
		return nil, nil
	})
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.Contains(t, buf.String(), `"code":"OK"`)

	buf.Reset()
	_, err := interceptor(context.Background(), nil, checkInfo, func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"code":"NotFound"`)
}

func TestStreamRecoveryInterceptor(t *testing.T) {
	logger, _ := captureLogger()
	interceptor := StreamRecoveryInterceptor(logger)
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch", IsServerStream: true}

	err := interceptor(nil, nil, info, func(interface{}, grpc.ServerStream) error {
		panic("watch bug")
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	err = interceptor(nil, nil, info, func(interface{}, grpc.ServerStream) error {
		return errors.New("plain")
	})
	assert.EqualError(t, err, "plain")
}
