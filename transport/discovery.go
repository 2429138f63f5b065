package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"ipc-service/loadbalance"
	"ipc-service/registry"
)

// DiscoveryDialer finds the TCP endpoints serving Contract in a registry and dials the one the
// balancer picks. Endpoints published with TLS are dialed with TLS, using the TLS config when
// set and the system roots otherwise.
type DiscoveryDialer struct {
	Registry registry.Registry
	Balancer loadbalance.Balancer
	Contract string
	TLS      *tls.Config
	Dialer   net.Dialer
}

// Discover returns a DiscoveryDialer using round robin.
func Discover(reg registry.Registry, contract string, tlsConfig *tls.Config) *DiscoveryDialer {
	return &DiscoveryDialer{Registry: reg, Balancer: &loadbalance.RoundRobinBalancer{}, Contract: contract, TLS: tlsConfig}
}

func (d *DiscoveryDialer) Dial(ctx context.Context) (net.Conn, error) {
	instances, err := d.Registry.Discover(ctx, d.Contract)
	if err != nil {
		return nil, fmt.Errorf("transport: discover %s: %w", d.Contract, err)
	}
	inst, err := d.Balancer.Pick(d.Contract, instances)
	if err != nil {
		return nil, fmt.Errorf("transport: pick %s: %w", d.Contract, err)
	}

	target := &TCPDialer{Addr: inst.Addr, Dialer: d.Dialer}
	if inst.TLS {
		target.TLS = d.TLS
		if target.TLS == nil {
			target.TLS = &tls.Config{}
		}
	}
	return target.Dial(ctx)
}
