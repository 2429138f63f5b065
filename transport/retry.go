package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Retry wraps d so that connection attempts failing with a retryable error are repeated up to
// maxRetries times with exponential backoff starting at baseDelay.
func Retry(d Dialer, maxRetries int, baseDelay time.Duration, logger *zap.Logger) Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return DialerFunc(func(ctx context.Context) (net.Conn, error) {
		conn, err := d.Dial(ctx)
		for i := 0; i < maxRetries && err != nil; i++ {
			if !Retryable(err) {
				return nil, err
			}
			delay := baseDelay * time.Duration(1<<i) // Exponential backoff
			logger.Debug("retrying connection", zap.Int("attempt", i+1), zap.Duration("delay", delay), zap.Error(err))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			conn, err = d.Dial(ctx)
		}
		return conn, err
	})
}

// Retryable reports whether a dial error may succeed on a later attempt: the endpoint is not
// accepting yet, its pipe does not exist yet, or the attempt timed out.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout")
}
