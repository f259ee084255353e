package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q", got)
	}

	ctx = WithRequestID(ctx, "01J0000000000000000000000")
	if got := RequestIDFromContext(ctx); got != "01J0000000000000000000000" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("FromContext(empty) should return slog.Default()")
	}

	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Output: &buf})
	ctx := WithRequestID(WithLogger(context.Background(), l), "req-1")

	L(ctx).Info("handled")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Errorf("output = %q, want request_id", buf.String())
	}
}
