// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no langtagger-specific dependencies.
//
// Key types:
//   - Result: parsed ffprobe output containing streams
//   - Stream: individual stream properties and metadata tags
//
// Primary entry points:
//   - ProbeAudio: executes ffprobe restricted to audio streams with a timeout
//   - Version: reports the ffprobe version line, used for dependency checks
//
// Failures are classified with ErrNotFound, ErrTimeout, ErrExit, and
// ErrMalformed so callers can tell a missing tool from a bad file.
package ffprobe
