package client

import (
	"time"

	"go.uber.org/zap"

	"ipc-service/codec"
	"ipc-service/convert"
	"ipc-service/protocol"
)

type options struct {
	codec        codec.Codec
	converter    convert.Converter
	logger       *zap.Logger
	contract     string
	maxRetries   int
	retryDelay   time.Duration
	maxFrameSize uint32
}

// Option configures a Client.
type Option func(*options)

func defaultOptions() options {
	return options{
		codec:        codec.Default,
		converter:    convert.Default,
		logger:       zap.NewNop(),
		maxFrameSize: protocol.DefaultMaxFrameSize,
	}
}

// WithCodec sets the payload serializer. It must match the endpoint's.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithConverter replaces the converter applied to returned data.
func WithConverter(c convert.Converter) Option {
	return func(o *options) {
		if c != nil {
			o.converter = c
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

// WithContractName overrides the contract identifier sent with every request, for endpoints
// whose contract was registered under an explicit name.
func WithContractName(name string) Option {
	return func(o *options) {
		o.contract = name
	}
}

// WithRetry retries refused connections up to maxRetries times, doubling baseDelay each time.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.retryDelay = baseDelay
	}
}

func WithMaxFrameSize(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrameSize = n
		}
	}
}
