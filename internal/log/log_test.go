package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerFromContextFallsBackToDefault(t *testing.T) {
	if l := LoggerFromContext(context.Background()); l != slog.Default() {
		t.Fatalf("expected the default logger")
	}
}

func TestLoggerFromContext(t *testing.T) {
	logger := slog.Default().With(slog.String("component", "test"))
	ctx := ContextWithLogger(context.Background(), logger)
	if l := LoggerFromContext(ctx); l != logger {
		t.Fatalf("expected the logger stored in the context")
	}
}

func TestGetLogLevel(t *testing.T) {
	defer func() { Debug = false }()
	Debug = false
	if GetLogLevel() != slog.LevelInfo {
		t.Fatalf("expected info level")
	}
	Debug = true
	if GetLogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
}
