// Package middleware wraps the dispatcher with cross-cutting behavior.
//
// Chain(A, B, C)(handler) produces A(B(C(handler))): A runs first on the way in and last on
// the way out. Every middleware must return a non-nil Response; failures are expressed as
// Responses with Succeeded = false, never as panics or errors.
package middleware

import (
	"context"

	"ipc-service/message"
)

// HandlerFunc has the shape of service.Dispatcher.Dispatch.
type HandlerFunc func(ctx context.Context, req *message.Request) *message.Response

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
