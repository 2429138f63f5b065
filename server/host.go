package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner is an endpoint as seen by a Host.
type Runner interface {
	Name() string
	Listen() error
	Serve(ctx context.Context) error
	Stop()
}

// Host runs several endpoints side by side, one accept loop each.
type Host struct {
	runners []Runner
	logger  *zap.Logger
}

func NewHost(logger *zap.Logger, runners ...Runner) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{runners: runners, logger: logger}
}

func (h *Host) Add(r Runner) {
	h.runners = append(h.runners, r)
}

// Run binds every endpoint, then serves them until ctx is cancelled or one fails. A failing
// endpoint stops the others. If any endpoint cannot bind, those already bound are released.
func (h *Host) Run(ctx context.Context) error {
	for i, r := range h.runners {
		if err := r.Listen(); err != nil {
			for _, bound := range h.runners[:i] {
				bound.Stop()
			}
			return fmt.Errorf("server: host: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range h.runners {
		r := r
		g.Go(func() error {
			return r.Serve(gctx)
		})
	}
	h.logger.Info("host running", zap.Int("endpoints", len(h.runners)))
	return g.Wait()
}
