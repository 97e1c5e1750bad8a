package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RPCRecorder receives the outcome of every unary call
type RPCRecorder interface {
	ObserveRPC(method, code string, d time.Duration)
}

// LoggingInterceptor returns a gRPC unary server interceptor that logs every
// call with its status code and duration, records it on recorder (if not nil),
// and turns handler panics into status.Internal.
func LoggingInterceptor(logger *zap.Logger, recorder RPCRecorder) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			code := status.Code(err)
			elapsed := time.Since(start)

			if recorder != nil {
				recorder.ObserveRPC(info.FullMethod, code.String(), elapsed)
			}

			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("duration", elapsed),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch code {
			case codes.OK:
				logger.Info("rpc handled", fields...)
			case codes.Internal, codes.Unknown:
				logger.Error("rpc failed", fields...)
			default:
				logger.Warn("rpc rejected", fields...)
			}
		}()

		return handler(ctx, req)
	}
}
