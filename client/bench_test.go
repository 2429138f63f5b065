package client_test

import (
	"context"
	"testing"

	"ipc-service/client"
	"ipc-service/codec"
	"ipc-service/sample"
	"ipc-service/server"
	"ipc-service/service"
	"ipc-service/transport"
)

func benchEndpoint(b *testing.B, concurrent bool, cdc codec.Codec) *server.TCPEndpoint {
	contract, err := service.NewContract[sample.ComputingService]()
	if err != nil {
		b.Fatal(err)
	}
	p, _ := provider()
	e := server.NewTCPEndpoint("bench", server.TCPConfig{Address: "127.0.0.1"}, contract, p,
		server.WithConcurrent(concurrent), server.WithCodec(cdc))
	if err := e.Listen(); err != nil {
		b.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Serve(ctx)
	}()
	b.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func benchmarkSerial(b *testing.B, cdc codec.Codec) {
	e := benchEndpoint(b, false, cdc)
	c := client.New(transport.TCP(e.Addr(), nil), sample.NewComputingStub, client.WithCodec(cdc))
	ctx := context.Background()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) int { return s.GetData(1, 2) }); err != nil {
			b.Fatal(err)
		}
	}
}

// 场景1: 单 goroutine 串行调用
func BenchmarkSerialCallGob(b *testing.B)   { benchmarkSerial(b, &codec.GobCodec{}) }
func BenchmarkSerialCallJSON(b *testing.B)  { benchmarkSerial(b, &codec.JSONCodec{}) }
func BenchmarkSerialCallProto(b *testing.B) { benchmarkSerial(b, &codec.ProtoCodec{}) }

// 场景2: 多 goroutine 并发调用，endpoint 开启并发处理
func BenchmarkParallelCall(b *testing.B) {
	e := benchEndpoint(b, true, codec.Default)
	c := client.New(transport.TCP(e.Addr(), nil), sample.NewComputingStub)
	ctx := context.Background()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := client.InvokeValue(ctx, c, func(s sample.ComputingService) int { return s.GetData(1, 2) }); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
