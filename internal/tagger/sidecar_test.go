package tagger

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"langtagger/internal/language"
)

var deProfile = language.Profile{Code: "de", Name: "German", SearchPatterns: []string{"German"}, TagsToAdd: []string{"German", "Deutsch"}}

func TestUpdateSidecarCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.nfo")
	res, err := UpdateSidecar(path, "movie", deProfile, false)
	if err != nil {
		t.Fatalf("UpdateSidecar: %v", err)
	}
	if res.Existed || !res.Written || !reflect.DeepEqual(res.Added, []string{"German", "Deutsch"}) {
		t.Fatalf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(res.After) {
		t.Fatal("written content should match After")
	}
}

func TestUpdateSidecarDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.nfo")
	res, err := UpdateSidecar(path, "movie", deProfile, true)
	if err != nil {
		t.Fatalf("UpdateSidecar: %v", err)
	}
	if res.Written || !res.DryRun || len(res.After) == 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run must not write")
	}
}

func TestUpdateSidecarAllPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.nfo")
	content := "<movie>\n  <tag>DEUTSCH</tag>\n  <tag> german </tag>\n</movie>\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := UpdateSidecar(path, "movie", deProfile, false)
	if err != nil {
		t.Fatalf("UpdateSidecar: %v", err)
	}
	if res.Changed() || res.Written || len(res.Present) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	data, _ := os.ReadFile(path)
	if string(data) != content {
		t.Fatal("sidecar should be untouched")
	}
}

func TestUpdateSidecarErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "movie.nfo")
	if err := os.WriteFile(bad, []byte("<movie>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := UpdateSidecar(bad, "movie", deProfile, false); !errors.Is(err, ErrSidecarParse) {
		t.Fatalf("expected ErrSidecarParse, got %v", err)
	}
	var typed *Error
	_, err := UpdateSidecar(filepath.Join(dir, "missing-dir", "movie.nfo"), "movie", deProfile, false)
	if !errors.Is(err, ErrSidecarWrite) || !errors.As(err, &typed) || typed.Path == "" {
		t.Fatalf("expected typed ErrSidecarWrite, got %v", err)
	}
	if IsFatal(err) {
		t.Fatal("sidecar errors are not fatal")
	}
}

func TestSidecarPaths(t *testing.T) {
	if got := videoSidecarPath("/m/Show/e01.mkv"); got != "/m/Show/e01.nfo" {
		t.Fatalf("videoSidecarPath = %q", got)
	}
}
