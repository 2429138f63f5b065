// Package client invokes contract methods on a remote endpoint.
//
// A call is expressed against a recording stub of the contract:
//
//	c := client.New(transport.Pipe("computingEndpoint"), sample.NewComputingStub)
//	sum, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) float32 {
//		return s.AddFloat(1.5, 2)
//	})
//
// Every call dials a fresh connection, sends one request frame, reads one response frame
// and closes the connection.
package client

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"ipc-service/convert"
	"ipc-service/message"
	"ipc-service/protocol"
	"ipc-service/service"
	"ipc-service/transport"
)

var (
	// ErrUsage reports an invocation that does not describe exactly one method call.
	ErrUsage = errors.New("client: invalid invocation")
	// ErrConversion reports returned data that cannot be turned into the expected type.
	ErrConversion = errors.New("client: conversion failed")
)

// RemoteError carries the failure message of an unsuccessful response.
type RemoteError struct {
	Contract string
	Method   string
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s.%s failed: %s", e.Contract, e.Method, e.Message)
}

// Client calls methods of contract C through one transport target.
type Client[C any] struct {
	dialer transport.Dialer
	stub   func(*Recorder) C
	opts   options
}

// New returns a client for C. stub builds the recording stub used to capture invocations.
func New[C any](dialer transport.Dialer, stub func(*Recorder) C, opts ...Option) *Client[C] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.contract == "" {
		o.contract = service.ContractName[C]()
	}
	if o.maxRetries > 0 {
		dialer = transport.Retry(dialer, o.maxRetries, o.retryDelay, o.logger)
	}
	return &Client[C]{dialer: dialer, stub: stub, opts: o}
}

// Contract returns the contract identifier sent with requests.
func (c *Client[C]) Contract() string { return c.opts.contract }

// Invoke performs the single call fn makes on the stub and discards any returned data.
func (c *Client[C]) Invoke(ctx context.Context, fn func(C)) error {
	req, err := Capture(c.opts.contract, c.stub, fn)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, req)
	return err
}

// InvokeValue performs the single call fn makes on the stub and converts the returned data
// to R.
func InvokeValue[C, R any](ctx context.Context, c *Client[C], fn func(C) R) (R, error) {
	var zero R
	if fn == nil {
		return zero, fmt.Errorf("%w: no invocation given", ErrUsage)
	}
	req, err := Capture(c.opts.contract, c.stub, func(proxy C) { fn(proxy) })
	if err != nil {
		return zero, err
	}

	data, err := c.do(ctx, req)
	if err != nil {
		return zero, err
	}
	v, ok := convert.To[R](c.opts.converter, data)
	if !ok {
		return zero, fmt.Errorf("%w: unable to convert returned value to %q", ErrConversion, reflect.TypeOf((*R)(nil)).Elem().String())
	}
	return v, nil
}

// Call invokes method with args directly, without a stub. It returns the data as decoded by
// the codec.
func (c *Client[C]) Call(ctx context.Context, method string, args ...any) (any, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: empty method name", ErrUsage)
	}
	return c.do(ctx, &message.Request{Contract: c.opts.contract, Method: method, Parameters: args})
}

func (c *Client[C]) do(ctx context.Context, req *message.Request) (any, error) {
	start := time.Now()
	resp, err := c.Send(ctx, req)
	if err != nil {
		c.opts.logger.Debug("call failed", zap.Stringer("request", req), zap.Error(err))
		return nil, err
	}
	c.opts.logger.Debug("call completed", zap.Stringer("request", req),
		zap.Bool("succeeded", resp.Succeeded), zap.Duration("duration", time.Since(start)))
	if !resp.Succeeded {
		return nil, &RemoteError{Contract: req.Contract, Method: req.Method, Message: resp.Failure}
	}
	return resp.Data, nil
}

// Send performs one raw exchange: dial, write req, read the response, close.
func (c *Client[C]) Send(ctx context.Context, req *message.Request) (*message.Response, error) {
	payload, err := c.opts.codec.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("client: connect: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	// unblock pending reads and writes when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := protocol.WriteFrame(conn, payload); err != nil {
		return nil, fmt.Errorf("client: send request: %w", ctxErr(ctx, err))
	}
	data, err := protocol.ReadFrameLimit(conn, c.opts.maxFrameSize)
	if err != nil {
		return nil, fmt.Errorf("client: receive response: %w", ctxErr(ctx, err))
	}

	var resp message.Response
	if err := c.opts.codec.Decode(data, &resp); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &resp, nil
}

// ctxErr prefers the context's error over the deadline error it caused.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return err
}
