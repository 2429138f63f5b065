package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"ipc-service/client"
	"ipc-service/codec"
	"ipc-service/loadbalance"
	"ipc-service/registry"
	"ipc-service/sample"
	"ipc-service/service"
	"ipc-service/transport"
)

// session holds what every command needs to reach the sample host.
type session struct {
	computing *client.Client[sample.ComputingService]
	system    *client.Client[sample.SystemService]
	closer    func()
}

func tlsConfig(c *cli.Context) (*tls.Config, error) {
	if !c.GlobalBool("tls") {
		return nil, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if ca := c.GlobalString("ca"); ca != "" {
		pemBytes, err := os.ReadFile(ca)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("no certificates in %s", ca)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func newSession(c *cli.Context, logger *zap.Logger) (*session, error) {
	codecType, err := codec.ParseCodecType(c.GlobalString("codec"))
	if err != nil {
		return nil, err
	}
	tlsCfg, err := tlsConfig(c)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithCodec(codec.GetCodec(codecType)),
		client.WithLogger(logger),
		client.WithRetry(c.GlobalInt("retries"), 100*time.Millisecond),
	}

	s := &session{closer: func() {}}
	s.computing = client.New(transport.Pipe(c.GlobalString("pipe")), sample.NewComputingStub, opts...)

	var systemDialer transport.Dialer = transport.TCP(c.GlobalString("addr"), tlsCfg)
	if etcd := c.GlobalString("etcd"); etcd != "" {
		reg, err := registry.NewEtcdRegistry(strings.Split(etcd, ","), logger, registry.WithDialTimeout(c.GlobalDuration("timeout")))
		if err != nil {
			return nil, err
		}
		balancer, err := loadbalance.New(c.GlobalString("balancer"))
		if err != nil {
			reg.Close()
			return nil, err
		}
		systemDialer = &transport.DiscoveryDialer{
			Registry: reg,
			Balancer: balancer,
			Contract: service.ContractName[sample.SystemService](),
			TLS:      tlsCfg,
		}
		s.closer = func() { reg.Close() }
	}
	s.system = client.New(systemDialer, sample.NewSystemStub, opts...)
	return s, nil
}
