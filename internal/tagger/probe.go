package tagger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"langtagger/internal/fileutil"
	"langtagger/internal/logging"
	"langtagger/internal/media/audio"
	"langtagger/internal/media/ffprobe"
	"langtagger/internal/probecache"
)

// ProbeAudioTracks runs ffprobe on path and returns its audio tracks. Any
// failure is reported as ErrProbe; the cause stays reachable through
// errors.Is (e.g. ffprobe.ErrTimeout).
func ProbeAudioTracks(ctx context.Context, binary, path string, timeout time.Duration) ([]audio.Track, error) {
	result, err := probeResult(ctx, binary, path, timeout)
	if err != nil {
		return nil, err
	}
	return audio.TracksFromStreams(result.Streams), nil
}

// probeResult returns the raw ffprobe result so callers can cache it.
// Cancellation is returned as the context error, not as ErrProbe.
func probeResult(ctx context.Context, binary, path string, timeout time.Duration) (ffprobe.Result, error) {
	result, err := ffprobe.ProbeAudio(ctx, binary, path, timeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ffprobe.Result{}, ctxErr
		}
		return ffprobe.Result{}, wrap(ErrProbe, path, err)
	}
	return result, nil
}

// prober adds the optional result cache in front of ffprobe.
type prober struct {
	binary  string
	timeout time.Duration
	cache   *probecache.Cache
	logger  *slog.Logger
}

type probeOutcome struct {
	tracks []audio.Track
	cached bool
}

func (p *prober) probe(ctx context.Context, path string) (probeOutcome, error) {
	var fp fileutil.Fingerprint
	fpOK := false
	if p.cache != nil {
		var err error
		fp, err = fileutil.Stat(path)
		fpOK = err == nil
		if fpOK {
			result, hit, cacheErr := p.cache.Get(ctx, path, fp)
			switch {
			case cacheErr != nil:
				p.logger.Debug("probe cache lookup failed", logging.Path(path), logging.Error(cacheErr))
			case hit:
				return probeOutcome{tracks: audio.TracksFromStreams(result.Streams), cached: true}, nil
			}
		}
	}

	if p.cache == nil {
		tracks, err := ProbeAudioTracks(ctx, p.binary, path, p.timeout)
		return probeOutcome{tracks: tracks}, err
	}
	result, err := probeResult(ctx, p.binary, path, p.timeout)
	if err != nil {
		return probeOutcome{}, err
	}
	if fpOK && !p.cache.ReadOnly() {
		if err := p.cache.Put(ctx, path, fp, result); err != nil {
			logging.WarnWithContext(p.logger, "probe cache store failed", "cache_store_failed",
				logging.Path(path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the cache file or run with --no-cache"),
				logging.String(logging.FieldImpact, "file will be probed again next run"),
			)
		}
	}
	return probeOutcome{tracks: audio.TracksFromStreams(result.Streams)}, nil
}

// isToolMissing reports probe failures caused by the binary itself.
func isToolMissing(err error) bool {
	return errors.Is(err, ffprobe.ErrNotFound)
}
