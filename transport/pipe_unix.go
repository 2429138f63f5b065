//go:build !windows

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// PipePath maps a pipe name to the unix-domain socket backing it. Absolute paths are used
// as they are.
func PipePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(os.TempDir(), "ipc-"+name+".sock")
}

// ListenPipe binds the pipe called name. A socket file left by an owner that exited without
// cleaning up is replaced; one that still accepts connections yields ErrPipeInUse.
func ListenPipe(name string) (net.Listener, error) {
	path := PipePath(name)
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}
	return net.Listen("unix", path)
}

func removeStaleSocket(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%w: %s", ErrPipeInUse, path)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("transport: remove stale socket %s: %w", path, err)
		}
	}
	// anything else is left for Listen to report
	return nil
}

// DialPipe connects to the pipe called name.
func DialPipe(ctx context.Context, name string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", PipePath(name))
}
