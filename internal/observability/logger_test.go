package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings from environment variables, handling case-insensitivity and whitespace.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"warning", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}

	logger.Info("test message")
	_ = logger.Sync() // best-effort; can fail on /dev/stderr in test env
}

func TestLoggerFromContext(t *testing.T) {
	if l := LoggerFromContext(context.Background()); l == nil {
		t.Fatal("LoggerFromContext() on empty context returned nil, want no-op logger")
	}

	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	LoggerFromContext(ctx).Info("scoped")
	if logs.Len() != 1 {
		t.Errorf("logged %d entries through context logger, want 1", logs.Len())
	}
}

func TestCorrelationIDFromContext(t *testing.T) {
	if id := CorrelationIDFromContext(context.Background()); id != "" {
		t.Errorf("CorrelationIDFromContext() = %q, want empty", id)
	}
	ctx := WithCorrelationID(context.Background(), "abc-123")
	if id := CorrelationIDFromContext(ctx); id != "abc-123" {
		t.Errorf("CorrelationIDFromContext() = %q, want abc-123", id)
	}
}
