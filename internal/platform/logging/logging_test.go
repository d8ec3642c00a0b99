package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	log, err := New("debug", "comments")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug to be enabled")
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New("loud", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug to be disabled at info level")
	}
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info to be enabled")
	}
}
