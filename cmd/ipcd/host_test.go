package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"ipc-service/client"
	"ipc-service/config"
	"ipc-service/loadbalance"
	"ipc-service/registry"
	"ipc-service/sample"
	"ipc-service/service"
	"ipc-service/transport"
)

func TestBuildHostServesSampleContracts(t *testing.T) {
	pipe := fmt.Sprintf("ipcd-test-%d", time.Now().UnixNano())
	cfg, err := config.Parse(`
codec = "json"

[registry]
endpoints = ["unused:2379"]
advertise_host = "127.0.0.1"

[[endpoint]]
name = "computingEndpoint"
contract = "computing"
transport = "pipe"
pipe_name = "` + pipe + `"
rate_limit = 1000

[[endpoint]]
name = "systemEndpoint"
contract = "system"
transport = "tcp"
address = "127.0.0.1"
port = 0
handler_timeout = "1s"
`)
	require.NoError(t, err)

	reg := registry.NewMemoryRegistry()
	host, err := buildHost(cfg, reg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- host.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	computing := client.New(transport.Pipe(pipe), sample.NewComputingStub,
		client.WithCodec(cfg.Endpoints[0].CodecImpl()), client.WithRetry(8, 20*time.Millisecond))
	sum, err := client.InvokeValue(ctx, computing, func(s sample.ComputingService) float32 { return s.AddFloat(1, 2) })
	require.NoError(t, err)
	assert.Equal(t, float32(3), sum)

	contract := service.ContractName[sample.SystemService]()
	require.Eventually(t, func() bool {
		_, err := reg.Discover(ctx, contract)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	balancer, err := loadbalance.New("consistent_hash")
	require.NoError(t, err)
	dialer := &transport.DiscoveryDialer{Registry: reg, Balancer: balancer, Contract: contract}
	system := client.New(dialer, sample.NewSystemStub, client.WithCodec(cfg.Endpoints[1].CodecImpl()))
	text, err := client.InvokeValue(ctx, system, func(s sample.SystemService) string { return s.ConvertText("abc", sample.Reverse) })
	require.NoError(t, err)
	assert.Equal(t, "cba", text)
}

func TestBuildHostUnknownContract(t *testing.T) {
	cfg := defaultConfig()
	cfg.Endpoints[0].Contract = "billing"
	_, err := buildHost(cfg, nil, zap.NewNop())
	assert.ErrorContains(t, err, "billing")
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, defaultConfig().Validate())
}

func TestEtcdOptionsCarryDialTimeout(t *testing.T) {
	cfg, err := config.Parse(`
[registry]
endpoints = ["127.0.0.1:2379"]
dial_timeout = "1500ms"

[[endpoint]]
name = "systemEndpoint"
contract = "system"
transport = "tcp"
`)
	require.NoError(t, err)

	var etcdCfg clientv3.Config
	for _, opt := range etcdOptions(cfg.Registry) {
		opt(&etcdCfg)
	}
	assert.Equal(t, 1500*time.Millisecond, etcdCfg.DialTimeout)
}
