// Package deps reports whether the external binaries langtagger shells out
// to are installed.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"langtagger/internal/media/ffprobe"
)

// Requirement defines an external dependency langtagger relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Resolved    string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// FFprobeRequirement describes the configured ffprobe binary.
func FFprobeRequirement(binary string) Requirement {
	return Requirement{
		Name:        "FFprobe",
		Command:     binary,
		Description: "Reads audio stream language and title tags",
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Resolved = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckFFprobe resolves the ffprobe binary and, when present, records the
// version line it reports. A binary that resolves but cannot report a
// version is treated as unavailable.
func CheckFFprobe(ctx context.Context, binary string) Status {
	status := CheckBinaries([]Requirement{FFprobeRequirement(binary)})[0]
	if !status.Available {
		return status
	}
	version, err := ffprobe.Version(ctx, status.Resolved)
	if err != nil {
		status.Available = false
		status.Detail = err.Error()
		return status
	}
	status.Version = version
	return status
}
