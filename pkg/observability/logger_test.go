package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tenantgate/tenantgate/pkg/contextkeys"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		if buf.Len() == 0 {
			t.Fatal("Info message should be logged at Info level")
		}

		entry := decodeEntry(t, &buf)
		if entry["level"] != "INFO" {
			t.Errorf("Expected level INFO, got %v", entry["level"])
		}
		if entry["msg"] != "info message" {
			t.Errorf("Expected message 'info message', got %v", entry["msg"])
		}
	})

	t.Run("warn logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		if buf.Len() == 0 {
			t.Error("Warn message should be logged at Info level")
		}
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if buf.Len() == 0 {
			t.Error("Error message should be logged at Info level")
		}
	})

	t.Run("debug logged at debug level", func(t *testing.T) {
		var debugBuf bytes.Buffer
		NewLogger(DebugLevel, &debugBuf).Debug("debug message")
		if debugBuf.Len() == 0 {
			t.Error("Debug message should be logged at Debug level")
		}
	})
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("key", "value").Info("message")

	entry := decodeEntry(t, &buf)
	if entry["key"] != "value" {
		t.Errorf("Expected field 'key' to be 'value', got %v", entry["key"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithFields(map[string]interface{}{
		"tenant": "acme",
		"count":  3,
	}).Info("message")

	entry := decodeEntry(t, &buf)
	if entry["tenant"] != "acme" {
		t.Errorf("Expected field 'tenant' to be 'acme', got %v", entry["tenant"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("Expected field 'count' to be 3, got %v", entry["count"])
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("error recorded as field", func(t *testing.T) {
		buf.Reset()
		logger.WithError(errors.New("boom")).Error("operation failed")

		entry := decodeEntry(t, &buf)
		if entry["error"] != "boom" {
			t.Errorf("Expected field 'error' to be 'boom', got %v", entry["error"])
		}
	})

	t.Run("nil error is a no-op", func(t *testing.T) {
		buf.Reset()
		logger.WithError(nil).Info("fine")

		entry := decodeEntry(t, &buf)
		if _, ok := entry["error"]; ok {
			t.Error("Expected no 'error' field for a nil error")
		}
	})
}

func TestLogger_Formatted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Infof("hello %s", "world")

	entry := decodeEntry(t, &buf)
	if entry["msg"] != "hello world" {
		t.Errorf("Expected formatted message 'hello world', got %v", entry["msg"])
	}
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	if got := GetLogger(ctx); got != logger {
		t.Error("Expected GetLogger to return the logger stored in context")
	}
}

func TestGetLogger_Default(t *testing.T) {
	if got := GetLogger(context.Background()); got == nil {
		t.Error("Expected a default logger for an empty context")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = contextkeys.WithRequestID(ctx, "req-123")
	ctx = contextkeys.WithTenant(ctx, "acme")

	FromContext(ctx).Info("handled")

	entry := decodeEntry(t, &buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("Expected request_id 'req-123', got %v", entry["request_id"])
	}
	if entry["tenant"] != "acme" {
		t.Errorf("Expected tenant 'acme', got %v", entry["tenant"])
	}
}

func TestFromContext_NoRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	FromContext(WithLogger(context.Background(), logger)).Info("handled")

	entry := decodeEntry(t, &buf)
	if _, ok := entry["request_id"]; ok {
		t.Error("Expected no request_id field without one in context")
	}
	if _, ok := entry["tenant"]; ok {
		t.Error("Expected no tenant field without one in context")
	}
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}
