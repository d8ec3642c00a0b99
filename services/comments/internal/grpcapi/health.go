// Package grpcapi serves the standard gRPC health protocol for the
// comments service, driven by periodic dependency checks.
package grpcapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside "".
const ServiceName = "comments.v1.Comments"

// Check is one named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthReporter runs Checks on an interval and publishes the result to
// a grpc health server.
type HealthReporter struct {
	Health   *health.Server
	Checks   []Check
	Interval time.Duration
	Timeout  time.Duration
	Log      *zap.Logger
}

// NewServer returns a gRPC server with health and reflection registered.
func NewServer(h *health.Server, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)
	return srv
}

// CheckOnce probes every dependency and returns the first failure.
func (r *HealthReporter) CheckOnce(ctx context.Context) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	var firstErr error
	for _, c := range r.Checks {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := c.Ping(cctx)
		cancel()
		if err != nil {
			if r.Log != nil {
				r.Log.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if firstErr != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.Health.SetServingStatus("", status)
	r.Health.SetServingStatus(ServiceName, status)
	return firstErr
}

// Run checks immediately and then every Interval until ctx ends, when
// it marks the service as shutting down.
func (r *HealthReporter) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	_ = r.CheckOnce(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Health.Shutdown()
			return nil
		case <-t.C:
			_ = r.CheckOnce(ctx)
		}
	}
}
