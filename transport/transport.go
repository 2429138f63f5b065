// Package transport opens the byte streams that frames travel on.
//
// A Dialer produces one fresh connection per call; nothing is pooled or reused. Pipes are
// local only: a unix-domain socket on unix systems and a named pipe on Windows. TCP streams
// may be wrapped in TLS, in which case the client verifies the server and presents nothing.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
)

// ErrPipeInUse reports a pipe name that another live process is serving.
var ErrPipeInUse = errors.New("transport: pipe in use")

// Dialer opens one connection to a fixed target.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (net.Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (net.Conn, error) {
	return f(ctx)
}

// PipeDialer connects to a named pipe endpoint.
type PipeDialer struct {
	Name string
}

// Pipe returns a Dialer for the pipe called name.
func Pipe(name string) *PipeDialer {
	return &PipeDialer{Name: name}
}

func (d *PipeDialer) Dial(ctx context.Context) (net.Conn, error) {
	conn, err := DialPipe(ctx, d.Name)
	if err != nil {
		return nil, fmt.Errorf("transport: dial pipe %q: %w", d.Name, err)
	}
	return conn, nil
}

// TCPDialer connects to a TCP endpoint, optionally over TLS.
type TCPDialer struct {
	Addr   string      // host:port
	TLS    *tls.Config // nil for plain TCP
	Dialer net.Dialer
}

// TCP returns a Dialer for addr. tlsConfig may be nil.
func TCP(addr string, tlsConfig *tls.Config) *TCPDialer {
	return &TCPDialer{Addr: addr, TLS: tlsConfig}
}

func (d *TCPDialer) Dial(ctx context.Context) (net.Conn, error) {
	conn, err := d.Dialer.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp %s: %w", d.Addr, err)
	}
	if d.TLS == nil {
		return conn, nil
	}

	cfg := d.TLS
	if cfg.ServerName == "" && !cfg.InsecureSkipVerify {
		cfg = cfg.Clone()
		if host, _, err := net.SplitHostPort(d.Addr); err == nil {
			cfg.ServerName = host
		}
	}

	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: tls handshake with %s: %w", d.Addr, err)
	}
	return tc, nil
}
