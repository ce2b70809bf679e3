package tagger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"langtagger/internal/config"
	"langtagger/internal/deps"
	"langtagger/internal/language"
	"langtagger/internal/logging"
	"langtagger/internal/media/audio"
	"langtagger/internal/preflight"
	"langtagger/internal/probecache"
	"langtagger/internal/scan"
)

// Observer receives progress callbacks. Implementations must not block.
type Observer interface {
	Started(totalFolders int)
	FolderProcessed(result FolderResult)
}

// Options configures a run.
type Options struct {
	Root     string
	Language string // profile code; empty uses tagging.default_language
	DryRun   bool
	NoCache  bool
	RunID    string // generated when empty
	Config   *config.Config
	Logger   *slog.Logger
	Observer Observer
}

// Folder outcome labels.
const (
	StatusTagged      = "tagged"
	StatusWouldTag    = "would_tag"
	StatusAlreadySet  = "already_tagged"
	StatusNoMatch     = "no_match"
	StatusProbeFailed = "probe_failed"
	StatusSidecarErr  = "sidecar_error"
)

// FolderResult records what happened to one media folder.
type FolderResult struct {
	Path         string                `json:"path"`
	Status       string                `json:"status"`
	Videos       int                   `json:"videos"`
	Probed       int                   `json:"probed"`
	MatchedVideo string                `json:"matched_video,omitempty"`
	Evidence     string                `json:"evidence,omitempty"`
	Sidecars     []SidecarUpdateResult `json:"sidecars,omitempty"`
	Errors       []string              `json:"errors,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Root     string        `json:"root"`
	Language string        `json:"language"`
	DryRun   bool          `json:"dry_run"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`

	FoldersScanned    int   `json:"folders_scanned"`
	FoldersMatched    int   `json:"folders_matched"`
	FilesProbed       int   `json:"files_probed"`
	CacheHits         int   `json:"cache_hits"`
	BytesInspected    int64 `json:"bytes_inspected"`
	ProbeErrors       int   `json:"probe_errors"`
	WalkErrors        int   `json:"walk_errors"`
	SidecarsCreated   int   `json:"sidecars_created"`
	SidecarsUpdated   int   `json:"sidecars_updated"`
	SidecarsUnchanged int   `json:"sidecars_unchanged"`
	SidecarsPlanned   int   `json:"sidecars_planned"`
	SidecarErrors     int   `json:"sidecar_errors"`
	TagsAdded         int   `json:"tags_added"`

	Folders []FolderResult `json:"folders"`
}

// Skipped counts items that were logged and skipped.
func (s *Summary) Skipped() int {
	return s.ProbeErrors + s.WalkErrors + s.SidecarErrors
}

// ProfileRegistry builds the language registry from the built-in profiles
// and the [languages.<code>] configuration tables.
func ProfileRegistry(cfg *config.Config) (*language.Registry, error) {
	codes := make([]string, 0, len(cfg.Languages))
	for code := range cfg.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	overrides := make([]language.Profile, 0, len(codes))
	for _, code := range codes {
		entry := cfg.Languages[code]
		overrides = append(overrides, language.Profile{
			Code:           code,
			Name:           entry.Name,
			SearchPatterns: entry.SearchPatterns,
			TagsToAdd:      entry.TagsToAdd,
		})
	}
	return language.NewRegistry(overrides...)
}

// LockPath returns the run lock file for a library root.
func LockPath(cfg *config.Config, root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(cfg.LockDir(), hex.EncodeToString(sum[:8])+".lock")
}

// Run performs one tagging pass. The returned error is non-nil only for
// fatal conditions or cancellation; the summary is returned whenever the
// walk started.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	cfg := opts.Config
	if cfg == nil {
		defaults, err := config.Defaults()
		if err != nil {
			return nil, fmt.Errorf("default config: %w", err)
		}
		cfg = defaults
	}
	// A caller-supplied run id is already on the caller's logger.
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	logger := logging.ForComponent(ctx, opts.Logger, "tagger")

	root := strings.TrimSpace(opts.Root)
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, wrap(ErrInvalidPath, root, err)
	}
	if check := preflight.CheckDirectoryAccess("Library root", absRoot, false); !check.Passed {
		return nil, wrapf(ErrInvalidPath, absRoot, "%s", check.Detail)
	}

	ffprobeStatus := deps.CheckFFprobe(ctx, cfg.FFprobeBinary())
	if !ffprobeStatus.Available {
		return nil, wrapf(ErrProbeToolMissing, cfg.FFprobeBinary(), "%s", ffprobeStatus.Detail)
	}
	logger.Debug("ffprobe available",
		logging.String("binary", ffprobeStatus.Resolved),
		logging.String("version", ffprobeStatus.Version),
	)

	registry, err := ProfileRegistry(cfg)
	if err != nil {
		return nil, wrap(ErrInvalidLanguage, "", err)
	}
	code := strings.TrimSpace(opts.Language)
	if code == "" {
		code = cfg.Tagging.DefaultLanguage
	}
	profile, err := registry.Lookup(code)
	if err != nil {
		return nil, wrap(ErrInvalidLanguage, "", err)
	}

	if !opts.DryRun {
		lock, err := acquireLock(cfg, absRoot)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = lock.Unlock()
		}()
	}

	cache := openCache(ctx, cfg, opts, logger)
	if cache != nil {
		defer cache.Close()
	}

	summary := &Summary{
		RunID:    runID,
		Root:     absRoot,
		Language: profile.Code,
		DryRun:   opts.DryRun,
		Started:  time.Now(),
	}
	logger.Info("tagging run started",
		logging.String("root", absRoot),
		logging.String(logging.FieldLanguage, profile.Code),
		logging.Strings("tags", profile.TagsToAdd),
		logging.Bool("dry_run", opts.DryRun),
		logging.Bool("cache", cache != nil),
	)

	folders, err := scan.Folders(absRoot, scan.Options{
		Extensions:  cfg.Tagging.VideoExtensions,
		ExcludeDirs: cfg.Tagging.ExcludeDirs,
		OnError: func(path string, walkErr error) {
			summary.WalkErrors++
			logging.WarnWithContext(logger, "directory entry unreadable", "walk_failed",
				logging.Path(path),
				logging.Error(walkErr),
				logging.String(logging.FieldErrorHint, "check permissions below the library root"),
			)
		},
	})
	if err != nil {
		return nil, wrap(ErrInvalidPath, absRoot, err)
	}
	summary.FoldersScanned = len(folders)
	if opts.Observer != nil {
		opts.Observer.Started(len(folders))
	}

	r := &runner{
		cfg:     cfg,
		profile: profile,
		dryRun:  opts.DryRun,
		logger:  logger,
		summary: summary,
		prober: &prober{
			binary:  ffprobeStatus.Resolved,
			timeout: time.Duration(cfg.Probe.TimeoutSeconds) * time.Second,
			cache:   cache,
			logger:  logger,
		},
	}
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(summary.Started)
			return summary, err
		}
		result, err := r.processFolder(ctx, folder)
		summary.Folders = append(summary.Folders, result)
		if opts.Observer != nil {
			opts.Observer.FolderProcessed(result)
		}
		if err != nil {
			summary.Duration = time.Since(summary.Started)
			return summary, err
		}
	}

	summary.Duration = time.Since(summary.Started)
	logger.Info("tagging run complete",
		logging.Int("folders", summary.FoldersScanned),
		logging.Int("matched", summary.FoldersMatched),
		logging.Int("tags_added", summary.TagsAdded),
		logging.Int("skipped", summary.Skipped()),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func acquireLock(cfg *config.Config, root string) (*flock.Flock, error) {
	path := LockPath(cfg, root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, wrapf(ErrLockHeld, root, "lock file %s", path)
	}
	return lock, nil
}

// openCache returns nil when the cache is disabled or unusable. Dry runs
// never create or modify the cache.
func openCache(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) *probecache.Cache {
	if !cfg.Cache.Enabled || opts.NoCache || strings.TrimSpace(cfg.Cache.Path) == "" {
		return nil
	}
	var (
		cache *probecache.Cache
		err   error
	)
	if opts.DryRun {
		cache, err = probecache.OpenReadOnly(ctx, cfg.Cache.Path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("probe cache absent; dry run will not create it", logging.Path(cfg.Cache.Path))
			return nil
		}
	} else {
		cache, err = probecache.Open(ctx, cfg.Cache.Path)
	}
	if err != nil {
		logging.WarnWithContext(logger, "probe cache unavailable; probing every file", "cache_open_failed",
			logging.Path(cfg.Cache.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the cache file or run with --no-cache"),
			logging.String(logging.FieldImpact, "slower run"),
		)
		return nil
	}
	return cache
}

type runner struct {
	cfg     *config.Config
	profile language.Profile
	dryRun  bool
	logger  *slog.Logger
	summary *Summary
	prober  *prober
}

func (r *runner) processFolder(ctx context.Context, folder scan.MediaFolder) (FolderResult, error) {
	result := FolderResult{Path: folder.Path, Videos: len(folder.Videos), Status: StatusNoMatch}
	logger := r.logger.With(logging.Path(folder.Path))
	videoMode := r.cfg.Tagging.SidecarMode == config.SidecarModeVideo

	probeFailed := false
	for _, video := range folder.Videos {
		evidence, matched, err := r.matchVideo(ctx, folder, video, &result)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if isToolMissing(err) {
				return result, wrap(ErrProbeToolMissing, video.Path, err)
			}
			probeFailed = true
			result.Errors = append(result.Errors, err.Error())
		}
		if !matched {
			continue
		}
		if result.MatchedVideo == "" {
			result.MatchedVideo = video.Name
			result.Evidence = evidence.String()
		}
		logger.Info("language detected",
			logging.String(logging.FieldVideo, video.Name),
			logging.String(logging.FieldEvidence, evidence.String()),
		)
		if !videoMode {
			r.updateSidecar(logger, folderSidecarPath(folder.Path, r.cfg.Tagging), &result)
			break
		}
		r.updateSidecar(logger, videoSidecarPath(video.Path), &result)
	}

	if result.MatchedVideo != "" {
		r.summary.FoldersMatched++
		return result, nil
	}
	if probeFailed {
		result.Status = StatusProbeFailed
	}
	logger.Debug("no matching audio track",
		logging.Int("videos", len(folder.Videos)),
		logging.String(logging.FieldLanguage, r.profile.Code),
	)
	return result, nil
}

// matchVideo probes one video and tests it against the profile. Name
// matching still applies when the probe fails.
func (r *runner) matchVideo(ctx context.Context, folder scan.MediaFolder, video scan.Video, result *FolderResult) (audio.Evidence, bool, error) {
	tagging := r.cfg.Tagging
	logger := r.logger.With(logging.Path(video.Path))

	outcome, probeErr := r.prober.probe(ctx, video.Path)
	if probeErr != nil {
		if ctx.Err() != nil || isToolMissing(probeErr) {
			return audio.Evidence{}, false, probeErr
		}
		r.summary.ProbeErrors++
		logging.WarnWithContext(logger, "audio probe failed", "probe_failed",
			logging.Error(probeErr),
			logging.String(logging.FieldErrorHint, hint(probeErr)),
			logging.String(logging.FieldImpact, "file skipped"),
		)
	} else {
		result.Probed++
		r.summary.FilesProbed++
		r.summary.BytesInspected += video.Size
		if outcome.cached {
			r.summary.CacheHits++
		}
		if logger.Enabled(ctx, slog.LevelDebug) {
			summaries := make([]string, 0, len(outcome.tracks))
			for _, track := range outcome.tracks {
				summaries = append(summaries, track.Summary())
			}
			logger.Debug("audio tracks",
				logging.Strings("tracks", summaries),
				logging.String("file_name", video.Name),
				logging.String("folder_name", folder.Name()),
				logging.Bool("cached", outcome.cached),
			)
		}
		if ev, ok := audio.FindPatternMatch(outcome.tracks, r.profile); ok {
			return ev, true, nil
		}
		if tagging.MatchLanguageTags {
			if ev, ok := audio.MatchLanguageTag(outcome.tracks, r.profile); ok {
				return ev, true, nil
			}
		}
	}

	if tagging.MatchFileNames {
		if ev, ok := audio.MatchName("file_name", video.Name, r.profile); ok {
			return ev, true, probeErr
		}
	}
	if tagging.MatchFolderNames {
		if ev, ok := audio.MatchName("folder_name", folder.Name(), r.profile); ok {
			return ev, true, probeErr
		}
	}
	return audio.Evidence{}, false, probeErr
}

func (r *runner) updateSidecar(logger *slog.Logger, path string, result *FolderResult) {
	update, err := UpdateSidecar(path, r.cfg.Tagging.RootElement, r.profile, r.dryRun)
	if err != nil {
		r.summary.SidecarErrors++
		result.Status = StatusSidecarErr
		result.Errors = append(result.Errors, err.Error())
		logging.WarnWithContext(logger, "sidecar update failed", "sidecar_failed",
			logging.String("sidecar", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint(err)),
			logging.String(logging.FieldImpact, "folder skipped"),
		)
		return
	}
	result.Sidecars = append(result.Sidecars, update)

	switch {
	case !update.Changed():
		r.summary.SidecarsUnchanged++
		if result.Status != StatusSidecarErr && result.Status != StatusTagged && result.Status != StatusWouldTag {
			result.Status = StatusAlreadySet
		}
		logger.Info("sidecar already tagged",
			logging.String("sidecar", path),
			logging.Strings("present", update.Present),
		)
	case r.dryRun:
		r.summary.TagsAdded += len(update.Added)
		r.summary.SidecarsPlanned++
		if result.Status != StatusSidecarErr {
			result.Status = StatusWouldTag
		}
		logger.Info("dry run: would update sidecar",
			logging.String("sidecar", path),
			logging.Strings("tags", update.Added),
			logging.Bool("create", !update.Existed),
		)
	default:
		r.summary.TagsAdded += len(update.Added)
		if update.Existed {
			r.summary.SidecarsUpdated++
		} else {
			r.summary.SidecarsCreated++
		}
		if result.Status != StatusSidecarErr {
			result.Status = StatusTagged
		}
		logger.Info("sidecar updated",
			logging.String("sidecar", path),
			logging.Strings("tags", update.Added),
			logging.Bool("created", !update.Existed),
		)
	}
}
