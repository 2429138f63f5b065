// Package service turns a Request into a Response by invoking a contract implementation.
//
// Dispatch flow:
//
//	Request → contract registry (by identifier) → Resolver (live instance)
//	  → Lookup (method name, arity) → Handler (argument conversion + call) → Response
//
// Every failure on this path, including a panic inside the method body, becomes a Response
// with Succeeded = false. Nothing propagates to the endpoint's accept loop.
package service

import (
	"context"
	"fmt"

	"ipc-service/message"
)

// Dispatcher routes requests to the contracts it was built with.
type Dispatcher struct {
	resolver  Resolver
	contracts map[string]*Contract
}

func NewDispatcher(resolver Resolver, contracts ...*Contract) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		contracts: make(map[string]*Contract, len(contracts)),
	}
	for _, c := range contracts {
		d.contracts[c.Name()] = c
	}
	return d
}

// Dispatch never returns nil and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, req *message.Request) (resp *message.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = message.Failure("%s", panicMessage(r))
		}
	}()

	contract, ok := d.contracts[req.Contract]
	if !ok {
		return message.Failure("no implementation of contract %q found", req.Contract)
	}

	impl, err := d.resolver.Resolve(ctx, req.Contract)
	if err != nil {
		return message.Failure("no implementation of contract %q found: %v", req.Contract, err)
	}
	if !contract.Accepts(impl) {
		return message.Failure("no implementation of contract %q found: resolved %T does not implement it", req.Contract, impl)
	}

	handler, err := contract.Lookup(req.Method, len(req.Parameters))
	if err != nil {
		return message.Failure("%s", errorMessage(err))
	}

	data, err := handler(ctx, impl, req.Parameters)
	if err != nil {
		return message.Failure("%s", errorMessage(err))
	}
	return message.Success(data)
}

// errorMessage falls back to the error's type when its text is empty.
func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%T", err)
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return errorMessage(err)
	}
	if msg := fmt.Sprint(r); msg != "" {
		return msg
	}
	return fmt.Sprintf("panic: %T", r)
}
