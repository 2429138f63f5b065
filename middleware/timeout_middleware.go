package middleware

import (
	"context"
	"errors"
	"time"

	"ipc-service/message"
)

// TimeOutMiddleware bounds a call to timeout. The handler runs on the caller's goroutine, so
// the exchange is not released before the method returns; contract methods that accept a
// context.Context observe the deadline and return early. Any result produced after the
// deadline is replaced by a failure.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp := next(ctx, req)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return message.Failure("request timed out")
			}
			return resp
		}
	}
}
