package client_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ipc-service/client"
	"ipc-service/codec"
	"ipc-service/internal/testcert"
	"ipc-service/middleware"
	"ipc-service/sample"
	"ipc-service/server"
	"ipc-service/service"
	"ipc-service/transport"
)

func provider() (*service.Provider, *sample.System) {
	system := &sample.System{}
	p := service.NewProvider()
	service.Provide[sample.ComputingService](p, func() sample.ComputingService { return sample.Computing{} })
	service.Provide[sample.SystemService](p, func() sample.SystemService { return system })
	return p, system
}

func pipeName() string {
	return fmt.Sprintf("client-test-%d", time.Now().UnixNano())
}

func run(t *testing.T, e interface {
	Listen() error
	Serve(context.Context) error
}) {
	t.Helper()
	require.NoError(t, e.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func computingPipe(t *testing.T, opts ...server.Option) (string, *sample.System) {
	t.Helper()
	contract, err := service.NewContract[sample.ComputingService]()
	require.NoError(t, err)
	p, system := provider()
	name := pipeName()
	run(t, server.NewPipeEndpoint("computing", name, contract, p, opts...))
	return name, system
}

func systemTCP(t *testing.T, cfg server.TCPConfig, opts ...server.Option) (*server.TCPEndpoint, *sample.System) {
	t.Helper()
	contract, err := service.NewContract[sample.SystemService]()
	require.NoError(t, err)
	p, system := provider()
	cfg.Address = "127.0.0.1"
	e := server.NewTCPEndpoint("system", cfg, contract, p, opts...)
	run(t, e)
	return e, system
}

func TestInvokeValueOverPipe(t *testing.T) {
	name, _ := computingPipe(t)
	c := client.New(transport.Pipe(name), sample.NewComputingStub)
	ctx := context.Background()

	sum, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) float32 { return s.AddFloat(1.5, 2) })
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), sum)

	data, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) int { return s.GetData(2, 3) })
	require.NoError(t, err)
	assert.Equal(t, 5, data)

	z, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) sample.Complex {
		return s.AddComplex(sample.Complex{A: 1, B: 2}, sample.Complex{A: 0.5, B: -1})
	})
	require.NoError(t, err)
	assert.Equal(t, sample.Complex{A: 1.5, B: 1}, z)
}

func TestRemoteFailureThenSuccess(t *testing.T) {
	e, _ := systemTCP(t, server.TCPConfig{})
	c := client.New(transport.TCP(e.Addr(), nil), sample.NewSystemStub)
	ctx := context.Background()

	err := c.Invoke(ctx, func(s sample.SystemService) { s.Fail("boom") })
	var remote *client.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "boom", remote.Message)
	assert.Equal(t, "Fail", remote.Method)

	text, err := client.InvokeValue(ctx, c, func(s sample.SystemService) string { return s.ConvertText("abc", sample.Upper) })
	require.NoError(t, err)
	assert.Equal(t, "ABC", text)
}

func TestInvokeVoid(t *testing.T) {
	e, system := systemTCP(t, server.TCPConfig{})
	c := client.New(transport.TCP(e.Addr(), nil), sample.NewSystemStub)

	require.NoError(t, c.Invoke(context.Background(), func(s sample.SystemService) { s.ReturnVoid() }))
	require.NoError(t, c.Invoke(context.Background(), func(s sample.SystemService) { s.ReturnVoid() }))
	assert.Equal(t, int64(2), system.VoidCalls())
}

func TestConversionFailure(t *testing.T) {
	e, _ := systemTCP(t, server.TCPConfig{})
	c := client.New(transport.TCP(e.Addr(), nil), sample.NewSystemStub)

	// the stub ignores the value fn returns; only the recorded call matters
	_, err := client.InvokeValue(context.Background(), c, func(s sample.SystemService) int {
		s.NewID()
		return 0
	})
	assert.ErrorIs(t, err, client.ErrConversion)
	assert.Contains(t, err.Error(), `"int"`)
}

func TestUsageErrorBeforeNetwork(t *testing.T) {
	var dials atomic.Int32
	d := transport.DialerFunc(func(ctx context.Context) (net.Conn, error) {
		dials.Add(1)
		return nil, errors.New("unreachable")
	})
	c := client.New(d, sample.NewComputingStub)

	err := c.Invoke(context.Background(), func(sample.ComputingService) {})
	assert.ErrorIs(t, err, client.ErrUsage)
	_, err = client.InvokeValue[sample.ComputingService, int](context.Background(), c, nil)
	assert.ErrorIs(t, err, client.ErrUsage)
	_, err = c.Call(context.Background(), "")
	assert.ErrorIs(t, err, client.ErrUsage)
	assert.Zero(t, dials.Load())
}

func TestCall(t *testing.T) {
	name, _ := computingPipe(t)
	c := client.New(transport.Pipe(name), sample.NewComputingStub)

	data, err := c.Call(context.Background(), "GetData", 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 9, data)

	_, err = c.Call(context.Background(), "GetData", 4)
	var remote *client.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, "GetData")
}

func TestNarrowingCodecs(t *testing.T) {
	for _, cdc := range []codec.Codec{&codec.JSONCodec{}, &codec.ProtoCodec{}} {
		t.Run(cdc.Type().String(), func(t *testing.T) {
			name, _ := computingPipe(t, server.WithCodec(cdc))
			c := client.New(transport.Pipe(name), sample.NewComputingStub, client.WithCodec(cdc))
			ctx := context.Background()

			data, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) int { return s.GetData(2, 3) })
			require.NoError(t, err)
			assert.Equal(t, 5, data)

			sum, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) float32 { return s.AddFloat(1.5, 2) })
			require.NoError(t, err)
			assert.Equal(t, float32(3.5), sum)

			z, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) sample.Complex {
				return s.AddComplex(sample.Complex{A: 1, B: 2}, sample.Complex{A: 3, B: 4})
			})
			require.NoError(t, err)
			assert.Equal(t, sample.Complex{A: 4, B: 6}, z)
		})
	}
}

func TestTLSEndpoint(t *testing.T) {
	pair := testcert.New(t)
	e, _ := systemTCP(t, server.TCPConfig{TLS: pair.ServerConfig()},
		server.WithMiddleware(middleware.LoggingMiddleware(zap.NewNop())))
	ctx := context.Background()

	plain := client.New(transport.TCP(e.Addr(), nil), sample.NewSystemStub)
	_, err := client.InvokeValue(ctx, plain, func(s sample.SystemService) string { return s.Echo(ctx, "hi") })
	assert.Error(t, err)

	secure := client.New(transport.TCP(e.Addr(), pair.ClientConfig()), sample.NewSystemStub)
	echo, err := client.InvokeValue(ctx, secure, func(s sample.SystemService) string { return s.Echo(ctx, "hi") })
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f-]{36}: hi$`, echo)
}

func TestRetryUntilEndpointStarts(t *testing.T) {
	contract, err := service.NewContract[sample.ComputingService]()
	require.NoError(t, err)
	p, _ := provider()
	name := pipeName()

	c := client.New(transport.Pipe(name), sample.NewComputingStub, client.WithRetry(8, 20*time.Millisecond))
	_, err = client.InvokeValue(context.Background(), client.New(transport.Pipe(name), sample.NewComputingStub),
		func(s sample.ComputingService) int { return s.GetData(1, 1) })
	require.Error(t, err, "nothing is listening yet")

	go func() {
		time.Sleep(100 * time.Millisecond)
		run(t, server.NewPipeEndpoint("late", name, contract, p))
	}()

	data, err := client.InvokeValue(context.Background(), c, func(s sample.ComputingService) int { return s.GetData(1, 1) })
	require.NoError(t, err)
	assert.Equal(t, 2, data)
}

func TestContextCancelUnblocksCall(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		// accept and never answer
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(5 * time.Second)
		}
	}()

	c := client.New(transport.TCP(ln.Addr().String(), nil), sample.NewComputingStub)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.InvokeValue(ctx, c, func(s sample.ComputingService) int { return s.GetData(1, 1) })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestContractNameOverride(t *testing.T) {
	name, _ := computingPipe(t)
	c := client.New(transport.Pipe(name), sample.NewComputingStub, client.WithContractName("IComputingService"))
	assert.Equal(t, "IComputingService", c.Contract())

	_, err := client.InvokeValue(context.Background(), c, func(s sample.ComputingService) int { return s.GetData(1, 1) })
	var remote *client.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, "IComputingService")
}
