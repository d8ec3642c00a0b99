package run

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRun_CancelStopsComponents(t *testing.T) {
	r := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	var stopped atomic.Int32
	release := make(chan struct{})
	comp := Component{
		Name: "blocking",
		Start: func(context.Context) error {
			<-release
			return http.ErrServerClosed
		},
		Stop: func(context.Context) error {
			stopped.Add(1)
			close(release)
			return nil
		},
	}

	done := make(chan int, 1)
	go func() { done <- r.Run(ctx, comp) }()
	cancel()

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not return after cancel")
	}
	if stopped.Load() != 1 {
		t.Fatalf("expected Stop to be called once, got %d", stopped.Load())
	}
}

func TestRun_FailingComponentStopsOthers(t *testing.T) {
	r := New(zap.NewNop())

	worker := Component{
		Name: "worker",
		Start: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	broken := Component{
		Name:  "broken",
		Start: func(context.Context) error { return errors.New("listen: address in use") },
	}

	code := r.Run(context.Background(), worker, broken)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
