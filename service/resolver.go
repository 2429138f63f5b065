package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrNoImplementation = errors.New("service: no implementation registered")

// Resolver yields a live implementation of a contract when a request for it arrives.
// It is supplied by the hosting process; the dispatcher never constructs services itself.
type Resolver interface {
	Resolve(ctx context.Context, contract string) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, contract string) (any, error)

func (f ResolverFunc) Resolve(ctx context.Context, contract string) (any, error) {
	return f(ctx, contract)
}

// Provider is a Resolver backed by per-contract factories. A factory runs once per
// request, so every exchange gets its own instance unless the factory returns a shared one.
type Provider struct {
	mu        sync.RWMutex
	factories map[string]func(ctx context.Context) (any, error)
}

func NewProvider() *Provider {
	return &Provider{factories: make(map[string]func(ctx context.Context) (any, error))}
}

// Provide registers factory as the source of implementations of contract C.
func Provide[C any](p *Provider, factory func() C) {
	p.ProvideNamed(ContractName[C](), func(context.Context) (any, error) {
		return factory(), nil
	})
}

// ProvideNamed registers factory under an explicit contract identifier.
func (p *Provider) ProvideNamed(contract string, factory func(ctx context.Context) (any, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[contract] = factory
}

func (p *Provider) Resolve(ctx context.Context, contract string) (any, error) {
	p.mu.RLock()
	factory, ok := p.factories[contract]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoImplementation, contract)
	}
	return factory(ctx)
}
