package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"langtagger/internal/config"
)

func TestConsoleHandlerRendersSingleLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false)).With(
		String(FieldComponent, "tagger"),
		String(FieldRunID, "abc"),
	)

	logger.Info("sidecar updated", Path("/media/Film A/movie.nfo"), Strings("tags", []string{"German", "Deutsch"}), Int("count", 2))

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", out)
	}
	if !strings.Contains(out, " INFO  tagger: sidecar updated ") {
		t.Fatalf("missing header in %q", out)
	}
	if !strings.Contains(out, `path="/media/Film A/movie.nfo"`) {
		t.Fatalf("path with spaces should be quoted: %q", out)
	}
	if !strings.Contains(out, "tags=German,Deutsch count=2") {
		t.Fatalf("missing fields in %q", out)
	}
	if strings.Contains(out, "run_id") || strings.Contains(out, "abc") {
		t.Fatalf("run id should not be rendered on console: %q", out)
	}
}

func TestConsoleHandlerGroupsAndRepeatedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false)).
		With(String("stage", "probe")).
		WithGroup("track")

	logger.Info("audio", Int("index", 1), slog.Group("tags", String("language", "ger")))
	if !strings.Contains(buf.String(), "track.index=1 track.tags.language=ger") {
		t.Fatalf("group prefixes missing: %q", buf.String())
	}

	buf.Reset()
	slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false)).
		With(String("stage", "probe")).
		Info("x", String("stage", "write"))
	if strings.Count(buf.String(), "stage=") != 1 || !strings.Contains(buf.String(), "stage=write") {
		t.Fatalf("later value should replace earlier one: %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line leaked at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "WARN") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))

	WarnWithContext(logger, "probe failed", "probe_failed",
		Error(errors.New("boom")),
		String(FieldImpact, "file skipped"),
	)

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[FieldEventType] != "probe_failed" {
		t.Fatalf("unexpected event type: %v", payload[FieldEventType])
	}
	if payload[FieldErrorHint] == nil {
		t.Fatalf("expected default hint, got %v", payload)
	}
	if payload[FieldImpact] != "file skipped" {
		t.Fatalf("explicit impact should win, got %v", payload[FieldImpact])
	}
	if payload["level"] != "warn" || payload["ts"] == nil {
		t.Fatalf("unexpected envelope: %v", payload)
	}
}

func TestTeeLoggerHonoursPerHandlerLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := TeeLogger(slog.New(infoHandler), debugHandler).With(String("k", "v"))
	logger.Debug("detail")
	logger.Info("summary")

	if strings.Contains(infoBuf.String(), "detail") {
		t.Fatalf("info handler received debug record")
	}
	if !strings.Contains(debugBuf.String(), "detail") || !strings.Contains(debugBuf.String(), "summary") {
		t.Fatalf("debug handler missing records: %q", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), `"k":"v"`) {
		t.Fatalf("attrs not propagated: %q", infoBuf.String())
	}
}

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(discardHandler); !ok {
		t.Fatal("expected discardHandler when all handlers are nil")
	}
	inner := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if newTeeHandler(nil, inner) != inner {
		t.Fatal("expected single handler returned unwrapped")
	}
}

func TestForComponentAddsRunIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))
	ctx := WithRunID(context.Background(), "run-9")

	ForComponent(ctx, base, "tagger").Info("hello")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[FieldComponent] != "tagger" || payload[FieldRunID] != "run-9" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if ForComponent(ctx, nil, "x").Enabled(ctx, slog.LevelError) {
		t.Fatal("nil logger should become a no-op logger")
	}
}

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	logger, logPath, err := NewFromConfig(&cfg, "warn", "run-1", started)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if filepath.Base(logPath) != "langtagger-20260102T030405Z.log" {
		t.Fatalf("unexpected log path %q", logPath)
	}
	logger.Info("ignored")
	logger.Warn("kept")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if strings.Contains(string(data), "ignored") {
		t.Fatalf("level override not applied: %s", data)
	}
	if !strings.Contains(string(data), `"run_id":"run-1"`) {
		t.Fatalf("run id missing from file log: %s", data)
	}
}

func TestNewFromConfigConsoleOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	var console bytes.Buffer

	logger, logPath, err := NewFromConfig(&cfg, "info", "run-2", time.Now(), ConsoleLevel("warn"), ConsoleWriter(&console))
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("file only")
	logger.Warn("both")

	if strings.Contains(console.String(), "file only") || !strings.Contains(console.String(), "both") {
		t.Fatalf("console level not applied: %q", console.String())
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(data), "file only") {
		t.Fatalf("file log should keep the configured level: %s", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "langtagger-20200101T000000Z.log")
	current := filepath.Join(dir, "langtagger-20260101T000000Z.log")
	unrelated := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, current, unrelated} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		past := time.Now().AddDate(0, 0, -90)
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes %s: %v", p, err)
		}
	}

	removed := CleanupOldLogs(NewNop(), dir, RunLogPattern, 30, current)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed")
	}
	for _, p := range []string{current, unrelated} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
	if CleanupOldLogs(NewNop(), dir, RunLogPattern, 0, "") != 0 {
		t.Fatal("zero retention must disable pruning")
	}
}
