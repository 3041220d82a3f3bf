package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRoutesLinesThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	New(base, "rod").Println("cdp event")

	out := buf.String()
	if !strings.Contains(out, "component=rod") || !strings.Contains(out, "cdp event") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "level=DEBUG") {
		t.Fatalf("expected debug level, got %q", out)
	}
}

func TestNewSuppressedAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	New(base, "rod").Println("noise")

	if buf.Len() != 0 {
		t.Fatalf("expected nothing at info level, got %q", buf.String())
	}
}

func TestNewNilBase(t *testing.T) {
	New(nil, "rod").Println("dropped")
}
