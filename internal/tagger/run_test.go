package tagger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"langtagger/internal/config"
	"langtagger/internal/tagger"
	"langtagger/internal/testsupport"
)

func newEnv(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *testsupport.FakeProbe, string) {
	t.Helper()
	fake := testsupport.NewFakeFFprobe(t)
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithFFprobe(fake)}, opts...)...)
	return cfg, fake, t.TempDir()
}

func run(t *testing.T, cfg *config.Config, root string, dryRun bool) *tagger.Summary {
	t.Helper()
	summary, err := tagger.Run(context.Background(), tagger.Options{Root: root, Language: "de", DryRun: dryRun, Config: cfg})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return summary
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func german() testsupport.AudioStream {
	return testsupport.AudioStream{Codec: "ac3", Language: "ger", Title: "German (DE)"}
}

func english() testsupport.AudioStream {
	return testsupport.AudioStream{Codec: "aac", Language: "eng", Title: "English"}
}

func TestRunCreatesSidecarForGermanAudio(t *testing.T) {
	cfg, _, root := newEnv(t)
	testsupport.WriteVideo(t, filepath.Join(root, "Das Boot", "Das Boot.mkv"), english(), german())

	summary := run(t, cfg, root, false)

	got := readFile(t, filepath.Join(root, "Das Boot", "movie.nfo"))
	want := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<movie>\n  <tag>German</tag>\n  <tag>Deutsch</tag>\n</movie>\n"
	if got != want {
		t.Fatalf("unexpected sidecar:\n%s", got)
	}
	if summary.FoldersMatched != 1 || summary.SidecarsCreated != 1 || summary.TagsAdded != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Folders[0].Status != tagger.StatusTagged || summary.Folders[0].MatchedVideo != "Das Boot.mkv" {
		t.Fatalf("unexpected folder result %+v", summary.Folders[0])
	}
}

func TestRunSkipsFoldersWithoutVideos(t *testing.T) {
	cfg, fake, root := newEnv(t)
	testsupport.WriteFile(t, filepath.Join(root, "Extras", "poster.jpg"), 10)

	summary := run(t, cfg, root, false)

	if summary.FoldersScanned != 0 || len(fake.Calls(t)) != 0 {
		t.Fatalf("expected nothing scanned, got %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(root, "Extras", "movie.nfo")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("sidecar must not be created in a folder without videos")
	}
}

func TestRunNoMatchLeavesFolderAlone(t *testing.T) {
	cfg, _, root := newEnv(t)
	testsupport.WriteVideo(t, filepath.Join(root, "Heat", "Heat.mkv"), english())

	summary := run(t, cfg, root, false)

	if summary.Folders[0].Status != tagger.StatusNoMatch || summary.FoldersMatched != 0 {
		t.Fatalf("unexpected summary %+v", summary.Folders[0])
	}
	if _, err := os.Stat(filepath.Join(root, "Heat", "movie.nfo")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("sidecar must not be created without a match")
	}
}

func TestRunFirstMatchWins(t *testing.T) {
	cfg, fake, root := newEnv(t, testsupport.WithCacheDisabled())
	dir := filepath.Join(root, "Movie")
	testsupport.WriteVideo(t, filepath.Join(dir, "a.mkv"), english())
	testsupport.WriteVideo(t, filepath.Join(dir, "b.mkv"), german())
	testsupport.WriteVideo(t, filepath.Join(dir, "c.mkv"), german())

	run(t, cfg, root, false)

	want := []string{filepath.Join(dir, "a.mkv"), filepath.Join(dir, "b.mkv")}
	if got := fake.Calls(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("probe calls = %v, want %v", got, want)
	}
}

func TestRunPreservesExistingSidecar(t *testing.T) {
	cfg, _, root := newEnv(t)
	dir := filepath.Join(root, "Movie")
	testsupport.WriteVideo(t, filepath.Join(dir, "movie.mkv"), german())
	existing := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<movie>\n  <title>X</title>\n  <tag>german</tag>\n</movie>\n"
	testsupport.WriteSidecar(t, dir, "movie.nfo", existing)

	summary := run(t, cfg, root, false)

	want := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<movie>\n  <title>X</title>\n  <tag>german</tag>\n  <tag>Deutsch</tag>\n</movie>\n"
	if got := readFile(t, filepath.Join(dir, "movie.nfo")); got != want {
		t.Fatalf("unexpected sidecar:\n%s", got)
	}
	if summary.SidecarsUpdated != 1 || summary.TagsAdded != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg, _, root := newEnv(t)
	dir := filepath.Join(root, "Movie")
	testsupport.WriteVideo(t, filepath.Join(dir, "movie.mkv"), german())

	run(t, cfg, root, false)
	first := readFile(t, filepath.Join(dir, "movie.nfo"))
	info, err := os.Stat(filepath.Join(dir, "movie.nfo"))
	if err != nil {
		t.Fatal(err)
	}

	summary := run(t, cfg, root, false)
	if second := readFile(t, filepath.Join(dir, "movie.nfo")); second != first {
		t.Fatalf("second run changed sidecar:\n%s\nvs\n%s", second, first)
	}
	after, err := os.Stat(filepath.Join(dir, "movie.nfo"))
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(info.ModTime()) {
		t.Fatal("unchanged sidecar must not be rewritten")
	}
	if summary.SidecarsUnchanged != 1 || summary.TagsAdded != 0 || summary.Folders[0].Status != tagger.StatusAlreadySet {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunLeavesMalformedSidecarUntouched(t *testing.T) {
	cfg, _, root := newEnv(t)
	bad := filepath.Join(root, "Bad")
	good := filepath.Join(root, "Good")
	testsupport.WriteVideo(t, filepath.Join(bad, "bad.mkv"), german())
	testsupport.WriteVideo(t, filepath.Join(good, "good.mkv"), german())
	malformed := "<movie><title>broken</movie>"
	testsupport.WriteSidecar(t, bad, "movie.nfo", malformed)

	summary := run(t, cfg, root, false)

	if got := readFile(t, filepath.Join(bad, "movie.nfo")); got != malformed {
		t.Fatalf("malformed sidecar modified: %s", got)
	}
	if !strings.Contains(readFile(t, filepath.Join(good, "movie.nfo")), "<tag>Deutsch</tag>") {
		t.Fatal("later folder should still be processed")
	}
	if summary.SidecarErrors != 1 || summary.Folders[0].Status != tagger.StatusSidecarErr {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg, _, root := newEnv(t)
	dir := filepath.Join(root, "Movie")
	testsupport.WriteVideo(t, filepath.Join(dir, "movie.mkv"), german())

	summary := run(t, cfg, root, true)

	if _, err := os.Stat(filepath.Join(dir, "movie.nfo")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run must not create a sidecar")
	}
	if _, err := os.Stat(cfg.Cache.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run must not create the probe cache")
	}
	if _, err := os.Stat(cfg.LockDir()); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run must not take the run lock")
	}
	folder := summary.Folders[0]
	if folder.Status != tagger.StatusWouldTag || len(folder.Sidecars) != 1 {
		t.Fatalf("unexpected folder result %+v", folder)
	}
	if got := folder.Sidecars[0].Added; !reflect.DeepEqual(got, []string{"German", "Deutsch"}) {
		t.Fatalf("unexpected planned tags %v", got)
	}
	if folder.Sidecars[0].Written {
		t.Fatal("dry run result must not report a write")
	}
}

func TestRunDryRunLeavesExistingSidecarUntouched(t *testing.T) {
	cfg, _, root := newEnv(t)
	dir := filepath.Join(root, "Movie")
	testsupport.WriteVideo(t, filepath.Join(dir, "movie.mkv"), german())
	existing := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<movie>\n  <title>X</title>\n</movie>\n"
	path := testsupport.WriteSidecar(t, dir, "movie.nfo", existing)
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	summary := run(t, cfg, root, true)

	if got := readFile(t, path); got != existing {
		t.Fatalf("dry run modified the sidecar:\n%s", got)
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Fatal("dry run touched the sidecar")
	}
	if summary.Folders[0].Status != tagger.StatusWouldTag {
		t.Fatalf("expected would-tag status, got %s", summary.Folders[0].Status)
	}
	sidecar := summary.Folders[0].Sidecars[0]
	if !sidecar.Existed || sidecar.Written || !reflect.DeepEqual(sidecar.Added, []string{"German", "Deutsch"}) {
		t.Fatalf("unexpected planned update %+v", sidecar)
	}
	if summary.SidecarsPlanned != 1 || summary.SidecarsUpdated != 0 {
		t.Fatalf("unexpected counters %+v", summary)
	}
}

func TestRunWithoutConfigUsesExpandedDefaults(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()
	fake := testsupport.NewFakeFFprobe(t)
	t.Setenv("HOME", home)
	t.Setenv("LANGTAGGER_FFPROBE", fake.Binary)
	t.Chdir(cwd)

	root := t.TempDir()
	testsupport.WriteVideo(t, filepath.Join(root, "Movie", "movie.mkv"), german())

	summary, err := tagger.Run(context.Background(), tagger.Options{Root: root, Language: "de"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.SidecarsCreated != 1 {
		t.Fatalf("expected a sidecar to be created, got %+v", summary)
	}
	entries, err := os.ReadDir(cwd)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("run must not create files in the working directory, found %s", entries[0].Name())
	}
	if _, err := os.Stat(filepath.Join(home, ".cache", "langtagger", "probe.db")); err != nil {
		t.Fatalf("expected probe cache under HOME: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".local", "state", "langtagger", "locks")); err != nil {
		t.Fatalf("expected lock directory under HOME: %v", err)
	}
}

func TestRunSkipsUnprobeableFiles(t *testing.T) {
	cfg, _, root := newEnv(t)
	dir := filepath.Join(root, "Movie")
	testsupport.WriteUnprobeableVideo(t, filepath.Join(dir, "a.mkv"))
	testsupport.WriteVideo(t, filepath.Join(dir, "b.mkv"), german())
	other := filepath.Join(root, "Other")
	testsupport.WriteVideo(t, filepath.Join(other, "x.mkv"))
	testsupport.WriteRawProbeOutput(t, filepath.Join(other, "x.mkv"), "not json")

	summary := run(t, cfg, root, false)

	if summary.ProbeErrors != 2 {
		t.Fatalf("ProbeErrors = %d, want 2", summary.ProbeErrors)
	}
	if summary.Folders[0].Status != tagger.StatusTagged {
		t.Fatalf("expected fallback to second video, got %+v", summary.Folders[0])
	}
	if summary.Folders[1].Status != tagger.StatusProbeFailed {
		t.Fatalf("unexpected status %+v", summary.Folders[1])
	}
}

func TestRunMatchesLanguageTags(t *testing.T) {
	untitled := testsupport.AudioStream{Codec: "dts", Language: "ger"}

	cfg, _, root := newEnv(t)
	testsupport.WriteVideo(t, filepath.Join(root, "M", "m.mkv"), untitled)
	if summary := run(t, cfg, root, true); summary.FoldersMatched != 1 {
		t.Fatalf("expected language tag match, got %+v", summary.Folders)
	}

	cfg, _, root = newEnv(t, testsupport.WithTagging(func(tg *config.Tagging) { tg.MatchLanguageTags = false }))
	testsupport.WriteVideo(t, filepath.Join(root, "M", "m.mkv"), untitled)
	if summary := run(t, cfg, root, true); summary.FoldersMatched != 0 {
		t.Fatalf("expected no match with language tag matching disabled, got %+v", summary.Folders)
	}
}

func TestRunFolderNameMatchingIsOptIn(t *testing.T) {
	cfg, _, root := newEnv(t)
	testsupport.WriteVideo(t, filepath.Join(root, "Film German", "film.mkv"))
	if summary := run(t, cfg, root, true); summary.FoldersMatched != 0 {
		t.Fatal("folder names must not match by default")
	}

	cfg, _, root = newEnv(t, testsupport.WithTagging(func(tg *config.Tagging) { tg.MatchFolderNames = true }))
	testsupport.WriteVideo(t, filepath.Join(root, "Film German", "film.mkv"))
	summary := run(t, cfg, root, true)
	if summary.FoldersMatched != 1 || !strings.Contains(summary.Folders[0].Evidence, "folder_name") {
		t.Fatalf("expected folder name match, got %+v", summary.Folders)
	}
}

func TestRunVideoSidecarMode(t *testing.T) {
	cfg, _, root := newEnv(t, testsupport.WithTagging(func(tg *config.Tagging) { tg.SidecarMode = config.SidecarModeVideo }))
	dir := filepath.Join(root, "Show")
	testsupport.WriteVideo(t, filepath.Join(dir, "e01.mkv"), german())
	testsupport.WriteVideo(t, filepath.Join(dir, "e02.mkv"), english())
	testsupport.WriteVideo(t, filepath.Join(dir, "e03.mkv"), german())

	summary := run(t, cfg, root, false)

	for name, want := range map[string]bool{"e01.nfo": true, "e02.nfo": false, "e03.nfo": true} {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists != want {
			t.Fatalf("%s exists=%v, want %v", name, exists, want)
		}
	}
	if summary.SidecarsCreated != 2 {
		t.Fatalf("SidecarsCreated = %d", summary.SidecarsCreated)
	}
}

func TestRunUsesProbeCache(t *testing.T) {
	cfg, fake, root := newEnv(t)
	testsupport.WriteVideo(t, filepath.Join(root, "M", "m.mkv"), german())

	run(t, cfg, root, false)
	summary := run(t, cfg, root, false)

	if calls := fake.Calls(t); len(calls) != 1 {
		t.Fatalf("expected one ffprobe call across runs, got %v", calls)
	}
	if summary.CacheHits != 1 {
		t.Fatalf("CacheHits = %d", summary.CacheHits)
	}

	noCache, err := tagger.Run(context.Background(), tagger.Options{Root: root, Config: cfg, NoCache: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if noCache.CacheHits != 0 || len(fake.Calls(t)) != 2 {
		t.Fatal("--no-cache must probe directly")
	}
}

func TestRunFatalErrors(t *testing.T) {
	cfg, _, root := newEnv(t)
	ctx := context.Background()

	_, err := tagger.Run(ctx, tagger.Options{Root: filepath.Join(root, "missing"), Config: cfg})
	if !errors.Is(err, tagger.ErrInvalidPath) || !tagger.IsFatal(err) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}

	_, err = tagger.Run(ctx, tagger.Options{Root: root, Language: "xx-unknown", Config: cfg})
	if !errors.Is(err, tagger.ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}

	missing := *cfg
	missing.Probe.FFprobeBinary = filepath.Join(root, "no-ffprobe")
	_, err = tagger.Run(ctx, tagger.Options{Root: root, Config: &missing})
	if !errors.Is(err, tagger.ErrProbeToolMissing) {
		t.Fatalf("expected ErrProbeToolMissing, got %v", err)
	}
}

func TestRunLockHeld(t *testing.T) {
	cfg, _, root := newEnv(t)
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatal(err)
	}
	lockPath := tagger.LockPath(cfg, abs)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(lockPath)
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	_, err = tagger.Run(context.Background(), tagger.Options{Root: root, Config: cfg})
	if !errors.Is(err, tagger.ErrLockHeld) || !tagger.IsFatal(err) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if _, err := tagger.Run(context.Background(), tagger.Options{Root: root, Config: cfg, DryRun: true}); err != nil {
		t.Fatalf("dry run should ignore the lock: %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg, _, root := newEnv(t)
	testsupport.WriteVideo(t, filepath.Join(root, "M", "m.mkv"), german())
	ctx, cancel := context.WithCancel(context.Background())
	observer := &cancelOnStart{cancel: cancel}

	_, err := tagger.Run(ctx, tagger.Options{Root: root, Config: cfg, Observer: observer})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(root, "M", "movie.nfo")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("cancelled run must not write")
	}
}

type cancelOnStart struct {
	cancel context.CancelFunc
}

func (c *cancelOnStart) Started(int)                        { c.cancel() }
func (c *cancelOnStart) FolderProcessed(tagger.FolderResult) {}
