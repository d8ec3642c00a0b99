// Package run drives a service's long-running components under one
// errgroup and stops them together on SIGINT/SIGTERM.
package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Component is a named blocking Start paired with a Stop that unblocks it.
type Component struct {
	Name  string
	Start func(ctx context.Context) error
	// Stop may be nil when Start returns on context cancellation.
	Stop func(ctx context.Context) error
}

type Runner struct {
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log, ShutdownTimeout: 10 * time.Second}
}

// WithSignals runs components until a signal arrives or one of them fails,
// then stops all of them. It returns the process exit code.
func (r *Runner) WithSignals(components ...Component) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.Run(ctx, components...)
}

// Run is WithSignals with a caller-supplied context.
func (r *Runner) Run(ctx context.Context, components ...Component) int {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	for _, c := range components {
		g.Go(func() error {
			// any component returning ends the run
			defer cancel()
			r.Logger.Info("component starting", zap.String("component", c.Name))
			err := c.Start(gctx)
			if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			r.Logger.Error("component failed", zap.String("component", c.Name), zap.Error(err))
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			r.Logger.Info("shutdown signal received")
		}
		r.shutdown(components)
		return nil
	})

	if err := g.Wait(); err != nil {
		r.Logger.Error("service exited with error", zap.Error(err))
		return 1
	}
	return 0
}

func (r *Runner) shutdown(components []Component) {
	c, cancel := context.WithTimeout(context.Background(), r.ShutdownTimeout)
	defer cancel()
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		if comp.Stop == nil {
			continue
		}
		if err := comp.Stop(c); err != nil {
			r.Logger.Warn("component stop", zap.String("component", comp.Name), zap.Error(err))
		}
	}
}

func Exit(code int) {
	os.Exit(code)
}
