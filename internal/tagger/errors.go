package tagger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath marks a library root that does not exist or cannot be read.
	ErrInvalidPath = errors.New("invalid path")
	// ErrProbeToolMissing marks an ffprobe binary that cannot be executed.
	ErrProbeToolMissing = errors.New("probe tool missing")
	// ErrProbe marks a single file that ffprobe could not inspect.
	ErrProbe = errors.New("probe failed")
	// ErrSidecarParse marks an existing sidecar that could not be read or parsed.
	ErrSidecarParse = errors.New("sidecar parse failed")
	// ErrSidecarWrite marks a sidecar that could not be replaced.
	ErrSidecarWrite = errors.New("sidecar write failed")
	// ErrInvalidLanguage marks an unknown language code or bad profile table.
	ErrInvalidLanguage = errors.New("invalid language")
	// ErrLockHeld marks a library already being tagged by another run.
	ErrLockHeld = errors.New("library locked by another run")
)

// Error ties an error kind to the path it concerns.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func wrap(kind error, path string, err error) error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func wrapf(kind error, path, format string, args ...any) error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err aborts a run rather than skipping one item.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidPath),
		errors.Is(err, ErrProbeToolMissing),
		errors.Is(err, ErrInvalidLanguage),
		errors.Is(err, ErrLockHeld):
		return true
	default:
		return false
	}
}

// hint returns the operator guidance logged with an error kind.
func hint(err error) string {
	switch {
	case errors.Is(err, ErrProbe):
		return "verify the file plays and that ffprobe can read it"
	case errors.Is(err, ErrSidecarParse):
		return "fix or remove the malformed sidecar; it was left untouched"
	case errors.Is(err, ErrSidecarWrite):
		return "check folder permissions and free space; the original sidecar is unchanged"
	default:
		return "check logs for details"
	}
}
