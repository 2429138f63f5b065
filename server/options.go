package server

import (
	"time"

	"go.uber.org/zap"

	"ipc-service/codec"
	"ipc-service/middleware"
	"ipc-service/protocol"
)

type options struct {
	codec           codec.Codec
	logger          *zap.Logger
	middlewares     []middleware.Middleware
	concurrent      bool
	exchangeTimeout time.Duration
	maxFrameSize    uint32
}

func defaultOptions() options {
	return options{
		codec:        codec.Default,
		logger:       zap.NewNop(),
		maxFrameSize: protocol.DefaultMaxFrameSize,
	}
}

// Option configures an endpoint.
type Option func(*options)

// WithCodec sets the payload serializer. Clients must use the same one.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMiddleware appends middlewares around the dispatcher, outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// WithConcurrent processes every accepted connection in its own goroutine. Requests are then
// no longer handled in arrival order.
func WithConcurrent(concurrent bool) Option {
	return func(o *options) {
		o.concurrent = concurrent
	}
}

// WithExchangeTimeout bounds a whole exchange, handshake included. Zero means no limit.
func WithExchangeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.exchangeTimeout = d
	}
}

func WithMaxFrameSize(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrameSize = n
		}
	}
}
