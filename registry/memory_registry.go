package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRegistry is an in-process Registry. It ignores TTLs and suits a single host process
// or tests.
type MemoryRegistry struct {
	mu        sync.RWMutex
	instances map[string]map[string]Instance // contract → addr → instance
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{instances: make(map[string]map[string]Instance)}
}

func (r *MemoryRegistry) Register(_ context.Context, contract string, instance Instance, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byAddr, ok := r.instances[contract]
	if !ok {
		byAddr = make(map[string]Instance)
		r.instances[contract] = byAddr
	}
	byAddr[instance.Addr] = instance
	return nil
}

func (r *MemoryRegistry) Deregister(_ context.Context, contract string, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances[contract], addr)
	return nil
}

func (r *MemoryRegistry) Discover(_ context.Context, contract string) ([]Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byAddr := r.instances[contract]
	if len(byAddr) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoInstances, contract)
	}
	out := make([]Instance, 0, len(byAddr))
	for _, inst := range byAddr {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out, nil
}
