package log

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	metadataKeyRequestID = "x-request-id"
	healthServicePrefix  = "/grpc.health.v1.Health/"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// creates a child logger with request metadata and injects it into context.
// Health probes are logged at debug level.
func UnaryServerInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		child := childLogger(ctx, logger, info.FullMethod)

		resp, err := handler(WithLogger(ctx, child), req)

		completed(child, info.FullMethod, err).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds())).
			Msg("unary call completed")

		return resp, err
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor that
// creates a child logger with request metadata and injects it into context.
func StreamServerInterceptor(logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		ctx := ss.Context()
		child := childLogger(ctx, logger, info.FullMethod)

		err := handler(srv, &wrappedStream{ServerStream: ss, ctx: WithLogger(ctx, child)})

		completed(child, info.FullMethod, err).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds())).
			Msg("stream call completed")

		return err
	}
}

func childLogger(ctx context.Context, logger zerolog.Logger, method string) zerolog.Logger {
	return logger.With().
		Str(FieldRequestID, requestIDFromMD(ctx)).
		Str(FieldGRPCMethod, method).
		Logger()
}

func completed(l zerolog.Logger, method string, err error) *zerolog.Event {
	evt := l.Info()
	if strings.HasPrefix(method, healthServicePrefix) && err == nil {
		evt = l.Debug()
	}
	return evt.Str(FieldGRPCCode, status.Code(err).String()).Err(err)
}

// wrappedStream overrides Context() to inject the child logger.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

func requestIDFromMD(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(metadataKeyRequestID); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.New().String()
}
