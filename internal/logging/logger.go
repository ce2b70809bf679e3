package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"langtagger/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Path appends to a log file. When empty, Writer is used, then stderr.
	Path      string
	Writer    io.Writer
	AddSource bool
	RunID     string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))

	w := opts.Writer
	if path := strings.TrimSpace(opts.Path); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		w = file
	}
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		handler = newJSONHandler(w, level, opts.AddSource)
	case "", "console":
		handler = newConsoleHandler(w, level, opts.AddSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	logger := slog.New(handler)
	if id := strings.TrimSpace(opts.RunID); id != "" {
		logger = logger.With(String(FieldRunID, id))
	}
	return logger, nil
}

// RunLogPath returns the per-run log file path inside logDir.
func RunLogPath(logDir string, started time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("langtagger-%s.log", started.UTC().Format("20060102T150405Z")))
}

// RunOption adjusts the console side of a run logger.
type RunOption func(*runOptions)

type runOptions struct {
	consoleLevel  string
	consoleWriter io.Writer
}

// ConsoleLevel sets a console-only level, e.g. to keep a progress bar
// readable while the run log file still records the configured level.
func ConsoleLevel(level string) RunOption {
	return func(o *runOptions) { o.consoleLevel = level }
}

// ConsoleWriter redirects console output away from stderr.
func ConsoleWriter(w io.Writer) RunOption {
	return func(o *runOptions) { o.consoleWriter = w }
}

// NewFromConfig creates the run logger: console output in the configured
// format, teed as JSON into a per-run file under the log directory.
// levelOverride replaces the configured level when non-empty. The returned
// path is empty when no log directory is configured.
func NewFromConfig(cfg *config.Config, levelOverride, runID string, started time.Time, opts ...RunOption) (*slog.Logger, string, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if cfg == nil {
		logger, err := New(Options{Level: levelOverride, RunID: runID, Writer: ro.consoleWriter})
		return logger, "", err
	}

	level := cfg.Logging.Level
	if strings.TrimSpace(levelOverride) != "" {
		level = levelOverride
	}
	consoleLevel := level
	if strings.TrimSpace(ro.consoleLevel) != "" {
		consoleLevel = ro.consoleLevel
	}

	console, err := New(Options{
		Level:  consoleLevel,
		Format: cfg.Logging.Format,
		Writer: ro.consoleWriter,
		RunID:  runID,
	})
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return console, "", nil
	}

	logPath := RunLogPath(cfg.Paths.LogDir, started)
	fileLogger, err := New(Options{
		Level:     level,
		Format:    "json",
		Path:      logPath,
		AddSource: true,
		RunID:     runID,
	})
	if err != nil {
		return nil, "", err
	}
	return TeeLogger(console, fileLogger.Handler()), logPath, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
