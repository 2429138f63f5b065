package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"ipc-service/message"
)

// RecoverMiddleware converts a panic raised by an inner middleware into a failure Response and
// logs the stack. The dispatcher recovers its own panics; this covers everything around it.
func RecoverMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (resp *message.Response) {
			defer func() {
				if x := recover(); x != nil {
					logger.Error("run time panic",
						zap.String("contract", req.Contract),
						zap.String("method", req.Method),
						zap.Any("panic", x),
						zap.ByteString("stack", debug.Stack()))
					resp = message.Failure("%s", fmt.Sprint(x))
				}
			}()
			return next(ctx, req)
		}
	}
}
