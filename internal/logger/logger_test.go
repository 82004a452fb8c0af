package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate("json", "debug"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := Validate("xml", "info"); err == nil {
		t.Fatal("expected format error")
	}
	if err := Validate("console", "loud"); err == nil {
		t.Fatal("expected level error")
	}
}

func TestInit_FallsBackToInfo(t *testing.T) {
	t.Parallel()

	l, err := Init("json", "loud")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be disabled")
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be enabled")
	}
}

func TestInit_RejectsUnknownEncoding(t *testing.T) {
	t.Parallel()

	if _, err := Init("xml", "info"); err == nil {
		t.Fatal("expected error")
	}
}
