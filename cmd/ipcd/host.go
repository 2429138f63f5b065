package main

import (
	"fmt"

	"go.uber.org/zap"

	"ipc-service/config"
	"ipc-service/middleware"
	"ipc-service/registry"
	"ipc-service/sample"
	"ipc-service/server"
	"ipc-service/service"
)

// defaultConfig mirrors the classic sample host: computing over a pipe, system over TCP.
func defaultConfig() *config.Config {
	return &config.Config{
		LogLevel: "info",
		Endpoints: []config.Endpoint{
			{Name: "computingEndpoint", Contract: "computing", Transport: config.TransportPipe, PipeName: "computingEndpoint"},
			{Name: "systemEndpoint", Contract: "system", Transport: config.TransportTCP, Address: "127.0.0.1", Port: 45684},
		},
	}
}

// contracts maps configuration contract names to built registries.
func contracts() (map[string]*service.Contract, error) {
	computing, err := service.NewContract[sample.ComputingService]()
	if err != nil {
		return nil, err
	}
	system, err := service.NewContract[sample.SystemService]()
	if err != nil {
		return nil, err
	}
	return map[string]*service.Contract{
		"computing": computing,
		"system":    system,
	}, nil
}

func resolver() service.Resolver {
	p := service.NewProvider()
	system := &sample.System{}
	service.Provide[sample.ComputingService](p, func() sample.ComputingService { return sample.Computing{} })
	service.Provide[sample.SystemService](p, func() sample.SystemService { return system })
	return p
}

// buildHost turns cfg into a runnable Host. reg may be nil.
func buildHost(cfg *config.Config, reg registry.Registry, logger *zap.Logger) (*server.Host, error) {
	known, err := contracts()
	if err != nil {
		return nil, err
	}
	res := resolver()
	host := server.NewHost(logger)

	for _, ec := range cfg.Endpoints {
		contract, ok := known[ec.Contract]
		if !ok {
			return nil, fmt.Errorf("endpoint %q: unknown contract %q", ec.Name, ec.Contract)
		}

		opts := []server.Option{
			server.WithLogger(logger),
			server.WithCodec(ec.CodecImpl()),
			server.WithConcurrent(ec.Concurrent),
			server.WithExchangeTimeout(ec.ExchangeTimeout.Duration),
			server.WithMiddleware(middlewares(ec, logger)...),
		}

		switch ec.Transport {
		case config.TransportPipe:
			host.Add(server.NewPipeEndpoint(ec.Name, ec.PipeName, contract, res, opts...))
		case config.TransportTCP:
			tlsConfig, err := ec.TLSConfig()
			if err != nil {
				return nil, err
			}
			tcp := server.TCPConfig{
				Address: ec.Address,
				Port:    ec.Port,
				TLS:     tlsConfig,
				Weight:  ec.Weight,
			}
			if reg != nil {
				tcp.Registry = reg
				if cfg.Registry != nil {
					tcp.AdvertiseHost = cfg.Registry.AdvertiseHost
					tcp.TTL = cfg.Registry.TTL
				}
			}
			host.Add(server.NewTCPEndpoint(ec.Name, tcp, contract, res, opts...))
		}
	}
	return host, nil
}

func middlewares(ec config.Endpoint, logger *zap.Logger) []middleware.Middleware {
	mws := []middleware.Middleware{
		middleware.LoggingMiddleware(logger.With(zap.String("endpoint", ec.Name))),
		middleware.RecoverMiddleware(logger),
	}
	if ec.RateLimit > 0 {
		mws = append(mws, middleware.RateLimitMiddleware(ec.RateLimit, ec.RateBurst))
	}
	if ec.HandlerTimeout.Duration > 0 {
		mws = append(mws, middleware.TimeOutMiddleware(ec.HandlerTimeout.Duration))
	}
	return mws
}

func connectRegistry(cfg *config.Config, logger *zap.Logger) (*registry.EtcdRegistry, error) {
	if cfg.Registry == nil {
		return nil, nil
	}
	return registry.NewEtcdRegistry(cfg.Registry.Endpoints, logger, etcdOptions(cfg.Registry)...)
}

func etcdOptions(rc *config.Registry) []registry.EtcdOption {
	var opts []registry.EtcdOption
	if rc.DialTimeout.Duration > 0 {
		opts = append(opts, registry.WithDialTimeout(rc.DialTimeout.Duration))
	}
	return opts
}
