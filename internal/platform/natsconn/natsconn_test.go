package natsconn

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

// fakeJetStream answers StreamInfo with infoErr and records AddStream calls.
type fakeJetStream struct {
	nats.JetStreamContext
	infoErr error
	addErr  error
	added   []*nats.StreamConfig
}

func (f *fakeJetStream) StreamInfo(stream string, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &nats.StreamInfo{Config: nats.StreamConfig{Name: stream}}, nil
}

func (f *fakeJetStream) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.added = append(f.added, cfg)
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestEnsureStream_Exists(t *testing.T) {
	js := &fakeJetStream{}
	if err := EnsureStream(js, "COMMENT_EVENTS", []string{"comments.>"}, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(js.added) != 0 {
		t.Fatalf("existing stream should not be re-added, got %d AddStream calls", len(js.added))
	}
}

func TestEnsureStream_CreatesMissing(t *testing.T) {
	js := &fakeJetStream{infoErr: nats.ErrStreamNotFound}
	if err := EnsureStream(js, "COMMENT_EVENTS", []string{"comments.>"}, 24*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(js.added) != 1 {
		t.Fatalf("expected one AddStream call, got %d", len(js.added))
	}
	cfg := js.added[0]
	if cfg.Name != "COMMENT_EVENTS" || cfg.Storage != nats.FileStorage || cfg.MaxAge != 24*time.Hour {
		t.Fatalf("unexpected stream config %+v", cfg)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "comments.>" {
		t.Fatalf("unexpected subjects %v", cfg.Subjects)
	}
}

func TestEnsureStream_ConcurrentCreateTolerated(t *testing.T) {
	js := &fakeJetStream{infoErr: nats.ErrStreamNotFound, addErr: nats.ErrStreamNameAlreadyInUse}
	if err := EnsureStream(js, "COMMENT_EVENTS", []string{"comments.>"}, time.Hour); err != nil {
		t.Fatalf("name already in use should be tolerated, got %v", err)
	}
}

func TestEnsureStream_Errors(t *testing.T) {
	boom := errors.New("boom")

	js := &fakeJetStream{infoErr: boom}
	if err := EnsureStream(js, "COMMENT_EVENTS", nil, time.Hour); !errors.Is(err, boom) {
		t.Fatalf("expected stream info error, got %v", err)
	}
	if len(js.added) != 0 {
		t.Fatal("AddStream should not run when StreamInfo fails unexpectedly")
	}

	js = &fakeJetStream{infoErr: nats.ErrStreamNotFound, addErr: boom}
	if err := EnsureStream(js, "COMMENT_EVENTS", nil, time.Hour); !errors.Is(err, boom) {
		t.Fatalf("expected add stream error, got %v", err)
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("NATSCONN_TEST_INT", "7")
	t.Setenv("NATSCONN_TEST_BAD_INT", "-3")
	t.Setenv("NATSCONN_TEST_DUR", "3s")
	t.Setenv("NATSCONN_TEST_BAD_DUR", "soon")

	if v := envInt("NATSCONN_TEST_NONEXISTENT", 42); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if v := envInt("NATSCONN_TEST_INT", 42); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if v := envInt("NATSCONN_TEST_BAD_INT", 42); v != 42 {
		t.Fatalf("negative value should fall back, got %d", v)
	}
	if v := envDuration("NATSCONN_TEST_DUR", 5*time.Second); v != 3*time.Second {
		t.Fatalf("expected 3s, got %s", v)
	}
	if v := envDuration("NATSCONN_TEST_BAD_DUR", 5*time.Second); v != 5*time.Second {
		t.Fatalf("unparsable duration should fall back, got %s", v)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to an unreachable server")
	}
}
