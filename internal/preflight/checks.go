package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"langtagger/internal/config"
	"langtagger/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectoryAccess verifies that the directory exists and can be listed.
// When write is set it must also be writable.
func CheckDirectoryAccess(name, path string, write bool) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	mode := uint32(unix.R_OK | unix.X_OK)
	label := "read ok"
	if write {
		mode |= unix.W_OK
		label = "read/write ok"
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, label)}
}

// CheckFFprobe converts the dependency status into a preflight result.
func CheckFFprobe(ctx context.Context, binary string) Result {
	status := deps.CheckFFprobe(ctx, binary)
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Resolved
	if status.Version != "" {
		detail = fmt.Sprintf("%s (%s)", status.Resolved, status.Version)
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}

// RunAll executes every check that applies to a run over root. An empty root
// skips the library check.
func RunAll(ctx context.Context, cfg *config.Config, root string, dryRun bool) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	if strings.TrimSpace(root) != "" {
		results = append(results, CheckDirectoryAccess("Library root", root, !dryRun))
	}
	results = append(results, CheckFFprobe(ctx, cfg.FFprobeBinary()))
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir, true))
	}
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir, true))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
