package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the ffprobe binary could not be executed.
	ErrNotFound = errors.New("ffprobe not found")
	// ErrTimeout indicates ffprobe did not finish within the allotted time.
	ErrTimeout = errors.New("ffprobe timed out")
	// ErrExit indicates ffprobe exited with a non-zero status.
	ErrExit = errors.New("ffprobe failed")
	// ErrMalformed indicates ffprobe produced output that is not the expected JSON.
	ErrMalformed = errors.New("ffprobe output malformed")
)

// DefaultTimeout bounds a single probe when the caller passes zero.
const DefaultTimeout = 60 * time.Second

// waitDelay bounds how long Run waits for output pipes after the process is
// killed, in case ffprobe left children holding them open.
const waitDelay = 2 * time.Second

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Channels    int               `json:"channels"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

// ProbeAudio runs ffprobe against path, selecting audio streams only, and
// decodes the stream index, codec, and language/title tags. The child process
// is killed when ctx is cancelled or timeout elapses.
func ProbeAudio(ctx context.Context, binary, path string, timeout time.Duration) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe probe: empty path")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, binary,
		"-v", "error",
		"-hide_banner",
		"-select_streams", "a",
		"-show_entries", "stream=index,codec_name,codec_type,channels:stream_tags=language,title,handler_name:stream_disposition=default",
		"-of", "json",
		"--", path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		return Result{}, classifyRunError(ctx, probeCtx, err, timeout, stderr.String())
	}
	return Parse(stdout.Bytes())
}

// Parse decodes an ffprobe JSON document. A payload without a "streams" key is
// treated as malformed; an empty stream list is valid.
func Parse(output []byte) (Result, error) {
	var envelope struct {
		Streams *[]Stream `json:"streams"`
	}
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return Result{}, fmt.Errorf("%w: empty output", ErrMalformed)
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	result := Result{raw: append([]byte(nil), trimmed...)}
	switch {
	case envelope.Streams != nil:
		result.Streams = *envelope.Streams
	case bytes.Equal(trimmed, []byte("{}")):
		// ffprobe prints an empty object when no stream matched the selector.
	default:
		return Result{}, fmt.Errorf("%w: missing streams", ErrMalformed)
	}
	return result, nil
}

// Version runs `ffprobe -version` and returns its first line.
func Version(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	versionCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	output, err := exec.CommandContext(versionCtx, binary, "-version").Output()
	if err != nil {
		return "", classifyRunError(ctx, versionCtx, err, 10*time.Second, "")
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line), nil
}

func classifyRunError(parent, probeCtx context.Context, err error, timeout time.Duration, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			return fmt.Errorf("%w: exit status %d", ErrExit, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: exit status %d: %s", ErrExit, exitErr.ExitCode(), detail)
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrExit, err)
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if stream.CodecType == "" || strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}
