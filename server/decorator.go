package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

// StreamDecorator wraps an accepted connection before the request is read. Returning an error
// aborts that connection only.
type StreamDecorator func(ctx context.Context, conn net.Conn) (net.Conn, error)

// Decorate applies decorators in order, each to the output of the previous one.
func Decorate(ctx context.Context, conn net.Conn, decorators ...StreamDecorator) (net.Conn, error) {
	for _, d := range decorators {
		next, err := d(ctx, conn)
		if err != nil {
			return nil, err
		}
		conn = next
	}
	return conn, nil
}

// TransformFunc replaces a plain stream with a transformed one, e.g. to inspect or throttle
// traffic.
type TransformFunc func(conn net.Conn) (net.Conn, error)

// Transform turns a TransformFunc into a decorator.
func Transform(fn TransformFunc) StreamDecorator {
	return func(_ context.Context, conn net.Conn) (net.Conn, error) {
		out, err := fn(conn)
		if err != nil {
			return nil, fmt.Errorf("transform stream: %w", err)
		}
		return out, nil
	}
}

// TLSHandshake authenticates the server with cfg. Clients are not asked for a certificate
// unless cfg says so.
func TLSHandshake(cfg *tls.Config) StreamDecorator {
	return func(ctx context.Context, conn net.Conn) (net.Conn, error) {
		tc := tls.Server(conn, cfg)
		if err := tc.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("tls handshake: %w", err)
		}
		return tc, nil
	}
}
