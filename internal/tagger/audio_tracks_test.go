package tagger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"langtagger/internal/media/ffprobe"
	"langtagger/internal/tagger"
	"langtagger/internal/testsupport"
)

func TestAudioTracksFromFFprobe(t *testing.T) {
	fake := testsupport.NewFakeFFprobe(t)
	video := filepath.Join(t.TempDir(), "movie.mkv")
	testsupport.WriteVideo(t, video, german(), english())

	tracks, err := tagger.ProbeAudioTracks(context.Background(), fake.Binary, video, time.Second)
	if err != nil {
		t.Fatalf("ProbeAudioTracks: %v", err)
	}
	if len(tracks) != 2 || tracks[0].Language != "ger" || tracks[1].Title != "English" {
		t.Fatalf("unexpected tracks %+v", tracks)
	}
}

func TestAudioTracksErrorChain(t *testing.T) {
	dir := t.TempDir()
	fake := testsupport.NewFakeFFprobe(t)
	malformed := filepath.Join(dir, "bad.mkv")
	testsupport.WriteVideo(t, malformed)
	testsupport.WriteRawProbeOutput(t, malformed, "not json")

	slow := filepath.Join(dir, "slow-ffprobe")
	if err := os.WriteFile(slow, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		binary  string
		timeout time.Duration
		cause   error
	}{
		{"malformed output", fake.Binary, time.Second, ffprobe.ErrMalformed},
		{"timeout", slow, 100 * time.Millisecond, ffprobe.ErrTimeout},
		{"missing binary", filepath.Join(dir, "absent"), time.Second, ffprobe.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tagger.ProbeAudioTracks(context.Background(), tc.binary, malformed, tc.timeout)
			if !errors.Is(err, tagger.ErrProbe) || !errors.Is(err, tc.cause) {
				t.Fatalf("expected ErrProbe wrapping %v, got %v", tc.cause, err)
			}
			var terr *tagger.Error
			if !errors.As(err, &terr) || terr.Path != malformed {
				t.Fatalf("expected *tagger.Error for %s, got %#v", malformed, err)
			}
			if tagger.IsFatal(err) {
				t.Fatal("a single unreadable file must not be fatal")
			}
		})
	}
}

func TestAudioTracksCancelled(t *testing.T) {
	fake := testsupport.NewFakeFFprobe(t)
	video := filepath.Join(t.TempDir(), "movie.mkv")
	testsupport.WriteVideo(t, video, german())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tagger.ProbeAudioTracks(ctx, fake.Binary, video, time.Second)
	if !errors.Is(err, context.Canceled) || errors.Is(err, tagger.ErrProbe) {
		t.Fatalf("expected bare context.Canceled, got %v", err)
	}
}
