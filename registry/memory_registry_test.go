package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegisterAndDiscover(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	_, err := reg.Discover(ctx, "Arith")
	assert.ErrorIs(t, err, ErrNoInstances)

	require.NoError(t, reg.Register(ctx, "Arith", Instance{Addr: "127.0.0.1:8002", Weight: 5}, 10))
	require.NoError(t, reg.Register(ctx, "Arith", Instance{Addr: "127.0.0.1:8001", Weight: 10}, 10))
	require.NoError(t, reg.Register(ctx, "Other", Instance{Addr: "127.0.0.1:9000"}, 10))

	instances, err := reg.Discover(ctx, "Arith")
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, "127.0.0.1:8001", instances[0].Addr)

	require.NoError(t, reg.Deregister(ctx, "Arith", "127.0.0.1:8001"))
	instances, err = reg.Discover(ctx, "Arith")
	require.NoError(t, err)
	assert.Equal(t, []Instance{{Addr: "127.0.0.1:8002", Weight: 5}}, instances)
}
