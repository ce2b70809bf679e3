package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"langtagger/internal/tagger"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(kind statusKind, colorize bool, s string) string {
	var c *color.Color
	switch kind {
	case statusOK:
		c = color.New(color.FgGreen)
	case statusWarn:
		c = color.New(color.FgYellow)
	case statusError:
		c = color.New(color.FgRed)
	default:
		c = color.New(color.FgBlue)
	}
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	return paint(kind, colorize, fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText))
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func renderBanner(dryRun bool, colorize bool) string {
	if dryRun {
		return paint(statusWarn, colorize, "===== Dry run: no files will be written =====")
	}
	return paint(statusWarn, colorize, "===== Writing language tags to sidecar files =====")
}

func folderStatusKind(status string) statusKind {
	switch status {
	case tagger.StatusTagged, tagger.StatusAlreadySet:
		return statusOK
	case tagger.StatusWouldTag:
		return statusWarn
	case tagger.StatusProbeFailed, tagger.StatusSidecarErr:
		return statusError
	default:
		return statusInfo
	}
}

func renderFolderLine(root string, result tagger.FolderResult, colorize bool) string {
	rel, err := filepath.Rel(root, result.Path)
	if err != nil {
		rel = result.Path
	}
	var detail string
	switch result.Status {
	case tagger.StatusTagged, tagger.StatusWouldTag:
		var tags []string
		for _, sc := range result.Sidecars {
			tags = append(tags, sc.Added...)
		}
		verb := "added"
		if result.Status == tagger.StatusWouldTag {
			verb = "would add"
		}
		detail = fmt.Sprintf("%s %s", verb, strings.Join(dedupe(tags), ", "))
	case tagger.StatusAlreadySet:
		detail = "tags already present"
	case tagger.StatusNoMatch:
		detail = "no matching audio track"
	default:
		detail = strings.Join(result.Errors, "; ")
	}
	return paint(folderStatusKind(result.Status), colorize, fmt.Sprintf("%s%s: %s", statusIndent, rel, detail))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func renderSummary(s *tagger.Summary) string {
	mode := "write"
	if s.DryRun {
		mode = "dry run"
	}
	count := func(n int) string { return humanize.Comma(int64(n)) }
	probed := count(s.FilesProbed)
	if s.CacheHits > 0 {
		probed = fmt.Sprintf("%s (%s cached)", probed, count(s.CacheHits))
	}
	sidecars := fmt.Sprintf("%s created, %s updated, %s unchanged",
		count(s.SidecarsCreated), count(s.SidecarsUpdated), count(s.SidecarsUnchanged))
	if s.DryRun {
		sidecars = fmt.Sprintf("%s would change, %s unchanged", count(s.SidecarsPlanned), count(s.SidecarsUnchanged))
	}
	rows := [][]string{
		{"Root", s.Root},
		{"Language", s.Language},
		{"Mode", mode},
		{"Folders scanned", count(s.FoldersScanned)},
		{"Folders matched", count(s.FoldersMatched)},
		{"Files probed", probed},
		{"Media inspected", humanize.Bytes(uint64(max(s.BytesInspected, 0)))},
		{"Sidecars", sidecars},
		{"Tags added", count(s.TagsAdded)},
		{"Skipped", fmt.Sprintf("%s probe, %s sidecar, %s unreadable", count(s.ProbeErrors), count(s.SidecarErrors), count(s.WalkErrors))},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	return renderTable("Run summary", []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}
