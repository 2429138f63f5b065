package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ipc-service/message"
)

type requestIDKey struct{}

// RequestID returns the id the Logging middleware attached to ctx, if any.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			id := uuid.NewString()
			ctx = context.WithValue(ctx, requestIDKey{}, id)

			start := time.Now()
			resp := next(ctx, req)

			fields := []zap.Field{
				zap.String("request_id", id),
				zap.String("contract", req.Contract),
				zap.String("method", req.Method),
				zap.Int("arity", len(req.Parameters)),
				zap.Duration("duration", time.Since(start)),
			}
			if !resp.Succeeded {
				logger.Warn("request failed", append(fields, zap.String("failure", resp.Failure))...)
			} else {
				logger.Debug("request served", fields...)
			}
			return resp
		}
	}
}
