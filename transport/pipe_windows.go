//go:build windows

package transport

import (
	"context"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"
)

const pipePrefix = `\\.\pipe\`

// PipePath maps a pipe name to its Windows named pipe path.
func PipePath(name string) string {
	if strings.HasPrefix(name, pipePrefix) {
		return name
	}
	return pipePrefix + name
}

// ListenPipe binds the pipe called name.
func ListenPipe(name string) (net.Listener, error) {
	return winio.ListenPipe(PipePath(name), nil)
}

// DialPipe connects to the pipe called name.
func DialPipe(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, PipePath(name))
}
