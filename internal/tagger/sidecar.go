package tagger

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"langtagger/internal/config"
	"langtagger/internal/fileutil"
	"langtagger/internal/language"
	"langtagger/internal/nfo"
)

// SidecarUpdateResult describes what UpdateSidecar did, or would do under
// dry run, to one sidecar.
type SidecarUpdateResult struct {
	Path    string   `json:"path"`
	Existed bool     `json:"existed"`
	Added   []string `json:"added,omitempty"`
	Present []string `json:"present,omitempty"`
	Written bool     `json:"written"`
	DryRun  bool     `json:"dry_run"`
	Before  []byte   `json:"-"`
	After   []byte   `json:"-"`
}

// Changed reports whether the sidecar needed new tags.
func (r SidecarUpdateResult) Changed() bool { return len(r.Added) > 0 }

// UpdateSidecar merges profile.TagsToAdd into the sidecar at path. A missing
// sidecar starts from an empty root element. Tags already present (trimmed,
// case-insensitive) are kept as they are. A sidecar that already has every tag
// is not rewritten, and under dryRun nothing is written at all.
func UpdateSidecar(path, rootElement string, profile language.Profile, dryRun bool) (SidecarUpdateResult, error) {
	result := SidecarUpdateResult{Path: path, DryRun: dryRun}

	var doc *nfo.Document
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		result.Existed = true
		result.Before = data
		doc, err = nfo.Parse(data)
		if err != nil {
			return result, wrap(ErrSidecarParse, path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		doc = nfo.NewSkeleton(rootElement)
	default:
		return result, wrap(ErrSidecarParse, path, err)
	}

	result.Added, result.Present = doc.AddTags(profile.TagsToAdd...)
	if !doc.Changed() {
		result.After = result.Before
		return result, nil
	}
	result.After = doc.Bytes()
	if dryRun {
		return result, nil
	}
	if err := fileutil.WriteFileAtomic(path, result.After, 0o644); err != nil {
		return result, wrap(ErrSidecarWrite, path, err)
	}
	result.Written = true
	return result, nil
}

// folderSidecarPath is the per-folder sidecar location.
func folderSidecarPath(folder string, tagging config.Tagging) string {
	return filepath.Join(folder, tagging.SidecarName)
}

// videoSidecarPath is <video-basename>.nfo next to the video.
func videoSidecarPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".nfo"
}
