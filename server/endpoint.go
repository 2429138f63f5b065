// Package server hosts contracts on local named pipes and TCP sockets.
//
// Each endpoint serves exactly one contract and runs its own accept loop. An exchange is one
// connection carrying one request frame and one response frame:
//
//	Accept conn → stream decorators (transform, TLS) → ReadFrame → Codec.Decode
//	  → Middleware Chain → Dispatcher → Codec.Encode → WriteFrame → close
//
// By default the loop finishes an exchange before accepting the next connection, so an endpoint
// has at most one request in flight. WithConcurrent hands each connection to its own goroutine.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ipc-service/message"
	"ipc-service/middleware"
	"ipc-service/protocol"
	"ipc-service/service"
)

var (
	ErrAlreadyListening = errors.New("server: endpoint already listening")
	ErrNotListening     = errors.New("server: endpoint not listening")
)

// State is the lifecycle position of an endpoint.
type State int32

const (
	StateCreated State = iota
	StateListening
	StateAccepting
	StateProcessing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateListening:
		return "listening"
	case StateAccepting:
		return "accepting"
	case StateProcessing:
		return "processing"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Endpoint is the transport-independent part of a pipe or TCP endpoint.
type Endpoint struct {
	name       string
	contract   *service.Contract
	opts       options
	handler    middleware.HandlerFunc
	decorators []StreamDecorator

	// transport hooks
	bind        func() (net.Listener, error)
	afterListen func(net.Listener) error
	afterStop   func()

	mu       sync.Mutex
	listener net.Listener
	state    atomic.Int32
	stopping atomic.Bool
	wg       sync.WaitGroup // in-flight exchanges in concurrent mode
}

func newEndpoint(name string, contract *service.Contract, resolver service.Resolver, bind func() (net.Listener, error), opts ...Option) *Endpoint {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	dispatcher := service.NewDispatcher(resolver, contract)

	// Build the middleware chain once at startup (not per-request)
	//   Chain(A, B, C)(handler) → A(B(C(handler)))
	return &Endpoint{
		name:     name,
		contract: contract,
		opts:     o,
		handler:  middleware.Chain(o.middlewares...)(dispatcher.Dispatch),
		bind:     bind,
	}
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string { return e.name }

// Contract returns the identifier of the served contract.
func (e *Endpoint) Contract() string { return e.contract.Name() }

// State reports the lifecycle state.
func (e *Endpoint) State() State { return State(e.state.Load()) }

// Listen binds the listening resource. It may be called once.
func (e *Endpoint) Listen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil || e.State() == StateStopped {
		return fmt.Errorf("%w: %s", ErrAlreadyListening, e.name)
	}

	ln, err := e.bind()
	if err != nil {
		return fmt.Errorf("server: endpoint %q listen: %w", e.name, err)
	}
	if e.afterListen != nil {
		if err := e.afterListen(ln); err != nil {
			ln.Close()
			return fmt.Errorf("server: endpoint %q publish: %w", e.name, err)
		}
	}

	e.listener = ln
	e.state.Store(int32(StateListening))
	e.opts.logger.Info("endpoint listening",
		zap.String("endpoint", e.name),
		zap.String("contract", e.contract.Name()),
		zap.String("addr", ln.Addr().String()),
		zap.String("codec", e.opts.codec.Type().String()))
	return nil
}

// Serve runs the accept loop until ctx is cancelled, Stop is called or accepting fails.
// Cancellation closes the listener but lets an admitted exchange finish. Serve returns nil
// after a requested stop and the accept error otherwise.
func (e *Endpoint) Serve(ctx context.Context) error {
	e.mu.Lock()
	ln := e.listener
	e.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("%w: %s", ErrNotListening, e.name)
	}

	stop := context.AfterFunc(ctx, e.Stop)
	defer stop()

	// exchanges run detached so that cancellation never interrupts one
	exchangeCtx := context.WithoutCancel(ctx)

	e.state.Store(int32(StateAccepting))
	for {
		conn, err := ln.Accept()
		if err != nil {
			ln.Close()
			e.wg.Wait()
			e.finish()
			if e.stopping.Load() {
				return nil
			}
			return fmt.Errorf("server: endpoint %q accept: %w", e.name, err)
		}

		if e.opts.concurrent {
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.serveConn(exchangeCtx, conn)
			}()
			continue
		}

		e.state.Store(int32(StateProcessing))
		e.serveConn(exchangeCtx, conn)
		e.state.CompareAndSwap(int32(StateProcessing), int32(StateAccepting))
	}
}

// ListenAndServe binds and then serves until ctx is cancelled.
func (e *Endpoint) ListenAndServe(ctx context.Context) error {
	if err := e.Listen(); err != nil {
		return err
	}
	return e.Serve(ctx)
}

// Stop closes the listener. Serve returns once the current exchange completes.
func (e *Endpoint) Stop() {
	e.stopping.Store(true)
	e.mu.Lock()
	ln := e.listener
	e.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
}

func (e *Endpoint) finish() {
	e.state.Store(int32(StateStopped))
	if e.afterStop != nil {
		e.afterStop()
	}
	e.opts.logger.Info("endpoint stopped", zap.String("endpoint", e.name))
}

// serveConn runs one exchange. Failures before a request is decoded abort the connection
// without a response.
func (e *Endpoint) serveConn(ctx context.Context, raw net.Conn) {
	defer raw.Close()
	logger := e.opts.logger.With(zap.String("endpoint", e.name), zap.String("remote", raw.RemoteAddr().String()))

	if e.opts.exchangeTimeout > 0 {
		raw.SetDeadline(time.Now().Add(e.opts.exchangeTimeout))
	}

	conn, err := Decorate(ctx, raw, e.decorators...)
	if err != nil {
		logger.Warn("connection aborted", zap.Error(err))
		return
	}
	if conn != raw {
		defer conn.Close()
	}

	payload, err := protocol.ReadFrameLimit(conn, e.opts.maxFrameSize)
	if err != nil {
		logger.Warn("connection aborted", zap.Error(err))
		return
	}

	var req message.Request
	if err := e.opts.codec.Decode(payload, &req); err != nil {
		logger.Warn("connection aborted", zap.Error(fmt.Errorf("decode request: %w", err)))
		return
	}

	resp := e.handler(ctx, &req)

	out, err := e.opts.codec.Encode(resp)
	if err != nil {
		// the result is not representable in this codec; report that instead
		logger.Warn("encode response", zap.Stringer("request", &req), zap.Error(err))
		out, err = e.opts.codec.Encode(message.Failure("encode response: %v", err))
		if err != nil {
			logger.Warn("connection aborted", zap.Error(err))
			return
		}
	}

	if err := protocol.WriteFrame(conn, out); err != nil {
		logger.Warn("write response", zap.Error(err))
	}
}
