// etcd keeps one key per published endpoint:
//
//	Key:   /ipc-service/{Contract}/{Addr}
//	Value: JSON-encoded Instance
//
// Registration uses TTL-based leases: if the host process dies, the lease expires
// and the entry is removed.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const keyPrefix = "/ipc-service/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID // key → lease kept alive for it
}

// EtcdOption adjusts the etcd client configuration.
type EtcdOption func(*clientv3.Config)

// WithDialTimeout bounds how long connecting to etcd may take.
func WithDialTimeout(d time.Duration) EtcdOption {
	return func(c *clientv3.Config) { c.DialTimeout = d }
}

func clientConfig(endpoints []string, logger *zap.Logger, opts ...EtcdOption) clientv3.Config {
	cfg := clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
		Logger:      logger.Named("etcd"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string, logger *zap.Logger, opts ...EtcdOption) (*EtcdRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientConfig(endpoints, logger, opts...))
	if err != nil {
		return nil, fmt.Errorf("registry: connect etcd: %w", err)
	}
	return &EtcdRegistry{client: c, logger: logger, leases: make(map[string]clientv3.LeaseID)}, nil
}

func key(contract, addr string) string {
	return keyPrefix + contract + "/" + addr
}

// Register adds an instance to etcd with a TTL lease.
//
// Flow:
//  1. Create a lease with the given TTL (e.g., 10 seconds)
//  2. Put the key-value pair with the lease attached
//  3. Start KeepAlive to renew the lease until Deregister revokes it
func (r *EtcdRegistry) Register(ctx context.Context, contract string, instance Instance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("registry: grant lease: %w", err)
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	k := key(contract, instance.Addr)
	if _, err := r.client.Put(ctx, k, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("registry: put %s: %w", k, err)
	}

	// The keepalive outlives the registering call; revoking the lease ends it.
	ch, err := r.client.KeepAlive(context.WithoutCancel(ctx), lease.ID)
	if err != nil {
		return fmt.Errorf("registry: keepalive: %w", err)
	}
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keepalive ended", zap.String("key", k))
	}()

	r.mu.Lock()
	r.leases[k] = lease.ID
	r.mu.Unlock()
	return nil
}

// Deregister removes an instance from etcd and revokes its lease.
func (r *EtcdRegistry) Deregister(ctx context.Context, contract string, addr string) error {
	k := key(contract, addr)

	r.mu.Lock()
	id, ok := r.leases[k]
	delete(r.leases, k)
	r.mu.Unlock()

	if _, err := r.client.Delete(ctx, k); err != nil {
		return fmt.Errorf("registry: delete %s: %w", k, err)
	}
	if ok {
		if _, err := r.client.Revoke(ctx, id); err != nil {
			return fmt.Errorf("registry: revoke lease: %w", err)
		}
	}
	return nil
}

// Discover returns all currently registered instances for a contract.
func (r *EtcdRegistry) Discover(ctx context.Context, contract string) ([]Instance, error) {
	resp, err := r.client.Get(ctx, keyPrefix+contract+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("registry: discover %s: %w", contract, err)
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance Instance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn("skipping malformed registry entry", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoInstances, contract)
	}
	return instances, nil
}

// Close releases the etcd connection.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
