package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeFFprobeScript answers `-version` and otherwise prints the fixture
// stored next to the probed file (.<name>.probe.json). A .<name>.probe.fail
// fixture makes it exit non-zero. Every probed path is appended to the log.
const fakeFFprobeScript = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffprobe version fake"
  exit 0
fi
for last; do :; done
echo "$last" >> "%s"
dir=$(dirname "$last")
base=$(basename "$last")
if [ -f "$dir/.$base.probe.fail" ]; then
  echo "Invalid data found when processing input" >&2
  exit 1
fi
if [ -f "$dir/.$base.probe.json" ]; then
  cat "$dir/.$base.probe.json"
  exit 0
fi
echo '{"streams":[]}'
`

// FakeProbe is a shell-script stand-in for ffprobe.
type FakeProbe struct {
	Binary  string
	LogPath string
}

// NewFakeFFprobe installs the fake in a temp directory.
func NewFakeFFprobe(t testing.TB) *FakeProbe {
	t.Helper()
	dir := t.TempDir()
	fake := &FakeProbe{
		Binary:  filepath.Join(dir, "ffprobe"),
		LogPath: filepath.Join(dir, "calls.log"),
	}
	script := strings.Replace(fakeFFprobeScript, "%s", fake.LogPath, 1)
	if err := os.WriteFile(fake.Binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return fake
}

// Calls returns the probed paths in invocation order.
func (f *FakeProbe) Calls(t testing.TB) []string {
	t.Helper()
	data, err := os.ReadFile(f.LogPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read fake ffprobe log: %v", err)
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// AudioStream describes a fixture audio track.
type AudioStream struct {
	Codec    string
	Language string
	Title    string
}

// WriteVideo creates a placeholder video at path whose fake probe reports
// the given audio streams.
func WriteVideo(t testing.TB, path string, streams ...AudioStream) {
	t.Helper()
	WriteFile(t, path, 16)

	type fixtureStream struct {
		Index     int               `json:"index"`
		CodecName string            `json:"codec_name,omitempty"`
		CodecType string            `json:"codec_type"`
		Tags      map[string]string `json:"tags,omitempty"`
	}
	out := struct {
		Streams []fixtureStream `json:"streams"`
	}{Streams: []fixtureStream{}}
	for i, s := range streams {
		tags := map[string]string{}
		if s.Language != "" {
			tags["language"] = s.Language
		}
		if s.Title != "" {
			tags["title"] = s.Title
		}
		out.Streams = append(out.Streams, fixtureStream{Index: i + 1, CodecName: s.Codec, CodecType: "audio", Tags: tags})
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal probe fixture: %v", err)
	}
	if err := os.WriteFile(probeFixture(path, ".probe.json"), data, 0o644); err != nil {
		t.Fatalf("write probe fixture: %v", err)
	}
}

// WriteUnprobeableVideo creates a placeholder video the fake probe fails on.
func WriteUnprobeableVideo(t testing.TB, path string) {
	t.Helper()
	WriteFile(t, path, 16)
	if err := os.WriteFile(probeFixture(path, ".probe.fail"), nil, 0o644); err != nil {
		t.Fatalf("write probe fixture: %v", err)
	}
}

// WriteRawProbeOutput overrides the fake probe output for path verbatim.
func WriteRawProbeOutput(t testing.TB, path, output string) {
	t.Helper()
	if err := os.WriteFile(probeFixture(path, ".probe.json"), []byte(output), 0o644); err != nil {
		t.Fatalf("write probe fixture: %v", err)
	}
}

func probeFixture(path, suffix string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+suffix)
}
