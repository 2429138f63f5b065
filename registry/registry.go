// Package registry publishes TCP endpoints so that clients can find them by contract.
package registry

import (
	"context"
	"errors"
)

// ErrNoInstances is returned by Discover when nothing serves the contract.
var ErrNoInstances = errors.New("registry: no instances available")

// Instance is one reachable TCP endpoint serving a contract.
type Instance struct {
	Endpoint string `json:"endpoint"` // endpoint name
	Addr     string `json:"addr"`     // host:port a client dials
	TLS      bool   `json:"tls"`
	Weight   int    `json:"weight"` // Weight for load balancing
	Version  string `json:"version,omitempty"`
}

type Registry interface {
	Register(ctx context.Context, contract string, instance Instance, ttl int64) error
	Deregister(ctx context.Context, contract string, addr string) error
	Discover(ctx context.Context, contract string) ([]Instance, error)
}
