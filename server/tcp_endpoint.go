package server

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ipc-service/registry"
	"ipc-service/service"
)

// TCPConfig describes the socket side of a TCP endpoint.
type TCPConfig struct {
	Address string // listen address, empty for all interfaces
	Port    int    // 0 picks an ephemeral port

	TLS       *tls.Config   // server-authenticated TLS, nil for plain TCP
	Transform TransformFunc // applied before TLS

	// Registry publishes the bound address under the contract name when set.
	// AdvertiseHost replaces Address in the published address, since a wildcard listen
	// address is not routable.
	Registry      registry.Registry
	AdvertiseHost string
	TTL           int64  // lease seconds, default 10
	Weight        int    // load balancing weight
	Version       string // free-form instance version
}

// TCPEndpoint serves a contract on a TCP socket.
type TCPEndpoint struct {
	*Endpoint
	cfg       TCPConfig
	port      atomic.Int32
	published string
}

func NewTCPEndpoint(name string, cfg TCPConfig, contract *service.Contract, resolver service.Resolver, opts ...Option) *TCPEndpoint {
	t := &TCPEndpoint{cfg: cfg}
	t.Endpoint = newEndpoint(name, contract, resolver, t.bind, opts...)
	if cfg.Transform != nil {
		t.decorators = append(t.decorators, Transform(cfg.Transform))
	}
	if cfg.TLS != nil {
		t.decorators = append(t.decorators, TLSHandshake(cfg.TLS))
	}
	t.afterListen = t.publish
	t.afterStop = t.unpublish
	return t
}

// Port returns the bound port, or the configured one before Listen.
func (t *TCPEndpoint) Port() int {
	if p := t.port.Load(); p != 0 {
		return int(p)
	}
	return t.cfg.Port
}

// Addr returns the host:port clients should dial.
func (t *TCPEndpoint) Addr() string {
	host := t.cfg.AdvertiseHost
	if host == "" {
		host = t.cfg.Address
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(t.Port()))
}

// SSL reports whether connections are wrapped in TLS.
func (t *TCPEndpoint) SSL() bool { return t.cfg.TLS != nil }

func (t *TCPEndpoint) bind() (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(t.cfg.Address, strconv.Itoa(t.cfg.Port)))
}

func (t *TCPEndpoint) publish(ln net.Listener) error {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		t.port.Store(int32(addr.Port))
	}
	if t.cfg.Registry == nil {
		return nil
	}

	ttl := t.cfg.TTL
	if ttl <= 0 {
		ttl = 10
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	instance := registry.Instance{
		Endpoint: t.name,
		Addr:     t.Addr(),
		TLS:      t.SSL(),
		Weight:   t.cfg.Weight,
		Version:  t.cfg.Version,
	}
	if err := t.cfg.Registry.Register(ctx, t.contract.Name(), instance, ttl); err != nil {
		return err
	}
	t.published = instance.Addr
	return nil
}

// unpublish removes the registry entry so that clients stop picking this endpoint.
func (t *TCPEndpoint) unpublish() {
	if t.cfg.Registry == nil || t.published == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.cfg.Registry.Deregister(ctx, t.contract.Name(), t.published); err != nil {
		t.opts.logger.Warn("deregister endpoint", zap.String("endpoint", t.name), zap.Error(err))
	}
}
