package server

import (
	"net"

	"ipc-service/service"
	"ipc-service/transport"
)

// PipeEndpoint serves a contract on a local named pipe.
type PipeEndpoint struct {
	*Endpoint
	pipeName string
}

func NewPipeEndpoint(name, pipeName string, contract *service.Contract, resolver service.Resolver, opts ...Option) *PipeEndpoint {
	p := &PipeEndpoint{pipeName: pipeName}
	p.Endpoint = newEndpoint(name, contract, resolver, p.bind, opts...)
	return p
}

func (p *PipeEndpoint) PipeName() string { return p.pipeName }

func (p *PipeEndpoint) bind() (net.Listener, error) {
	return transport.ListenPipe(p.pipeName)
}
