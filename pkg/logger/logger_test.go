package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestInitWithFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat(FormatJSON, &buf); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	defer func() { _ = Init() }()

	Get().Info(context.Background(), "report written", String("id", "abc"), Int("rows", 3))

	out := buf.String()
	if !strings.Contains(out, `"msg":"report written"`) {
		t.Errorf("expected json message, got %q", out)
	}
	if !strings.Contains(out, `"id":"abc"`) || !strings.Contains(out, `"rows":3`) {
		t.Errorf("expected fields in output, got %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("expected caller source in output, got %q", out)
	}

	if err := InitWithFormat("xml", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat(FormatText, &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = Init() }()

	ctx := context.Background()
	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info level, got %q", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Debug(ctx, "visible", Bool("ok", true), Duration("took", time.Second))
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug should be written at debug level, got %q", buf.String())
	}

	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	for _, lvl := range []string{"", "info", "warn", "warning", "error"} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: unexpected error %v", lvl, err)
		}
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo).Named("engine")
	l.Warn(context.Background(), "line skipped", Error(errors.New("boom")), Float64("ratio", 0.5), Any("n", 1))

	out := buf.String()
	if !strings.Contains(out, "component=engine") {
		t.Errorf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected error attribute, got %q", out)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "dropped")
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
