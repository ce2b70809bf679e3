// Package scan discovers media folders: directories that directly contain
// at least one video file.
package scan

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Video is one discovered video file.
type Video struct {
	Path    string
	Name    string
	Size    int64
	ModTime int64 // UnixNano
}

// MediaFolder is a directory and the video files directly inside it, sorted
// by name.
type MediaFolder struct {
	Path   string
	Videos []Video
}

// Name is the folder's base name.
func (f MediaFolder) Name() string { return filepath.Base(f.Path) }

// Options controls discovery.
type Options struct {
	// Extensions are lowercase with a leading dot.
	Extensions []string
	// ExcludeDirs are directory base names skipped at any depth.
	ExcludeDirs []string
	// OnError is called for entries that cannot be read below the root.
	// The walk continues past them. Nil ignores such errors.
	OnError func(path string, err error)
}

// Folders walks root and returns every media folder in lexical path order.
// Directories whose names start with "." and excluded names are not entered.
// An unreadable root is returned as an error.
func Folders(root string, opts Options) ([]MediaFolder, error) {
	root = filepath.Clean(root)
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		if name = strings.TrimSpace(name); name != "" {
			excluded[name] = struct{}{}
		}
	}

	byDir := make(map[string][]Video)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if opts.OnError != nil {
				opts.OnError(path, walkErr)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := excluded[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := exts[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if opts.OnError != nil {
				opts.OnError(path, err)
			}
			return nil
		}
		dir := filepath.Dir(path)
		byDir[dir] = append(byDir[dir], Video{
			Path:    path,
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	folders := make([]MediaFolder, 0, len(byDir))
	for dir, videos := range byDir {
		sort.Slice(videos, func(i, j int) bool { return videos[i].Name < videos[j].Name })
		folders = append(folders, MediaFolder{Path: dir, Videos: videos})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, nil
}
