package audio

import (
	"fmt"
	"strings"

	"langtagger/internal/language"
	"langtagger/internal/media/ffprobe"
)

// Track is the per-stream AudioTrackInfo extracted from ffprobe output.
type Track struct {
	Index    int    `json:"index"`
	Codec    string `json:"codec,omitempty"`
	Channels int    `json:"channels,omitempty"`
	Language string `json:"language,omitempty"`
	Title    string `json:"title,omitempty"`
	Default  bool   `json:"default,omitempty"`
}

// Fields returns the metadata strings patterns are matched against.
func (t Track) Fields() []string {
	fields := make([]string, 0, 2)
	if t.Language != "" {
		fields = append(fields, t.Language)
	}
	if t.Title != "" {
		fields = append(fields, t.Title)
	}
	return fields
}

// Summary renders a short human-readable description, e.g.
// `#1 ger "German (DE)" ac3 6ch default`.
func (t Track) Summary() string {
	parts := []string{fmt.Sprintf("#%d", t.Index)}
	if t.Language != "" {
		parts = append(parts, t.Language)
	}
	if t.Title != "" {
		parts = append(parts, fmt.Sprintf("%q", t.Title))
	}
	if t.Codec != "" {
		parts = append(parts, t.Codec)
	}
	if t.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%dch", t.Channels))
	}
	if t.Default {
		parts = append(parts, "default")
	}
	return strings.Join(parts, " ")
}

// TracksFromStreams extracts audio tracks, ignoring non-audio streams when
// the codec type is known.
func TracksFromStreams(streams []ffprobe.Stream) []Track {
	tracks := make([]Track, 0, len(streams))
	for _, stream := range streams {
		if stream.CodecType != "" && !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		tracks = append(tracks, Track{
			Index:    stream.Index,
			Codec:    strings.TrimSpace(stream.CodecName),
			Channels: stream.Channels,
			Language: language.ExtractFromTags(stream.Tags),
			Title:    language.ExtractTitleFromTags(stream.Tags),
			Default:  stream.Disposition["default"] == 1,
		})
	}
	return tracks
}

// Evidence records why a set of tracks matched a profile.
type Evidence struct {
	Source  string // "track_title", "track_language", "language_tag", "file_name", "folder_name"
	Track   int    // stream index, or -1 for name matches
	Value   string
	Pattern string
}

func (e Evidence) String() string {
	if e.Track >= 0 {
		return fmt.Sprintf("%s %q on track #%d (pattern %q)", e.Source, e.Value, e.Track, e.Pattern)
	}
	return fmt.Sprintf("%s %q (pattern %q)", e.Source, e.Value, e.Pattern)
}

// MatchLanguage reports whether any track's language or title field contains,
// case-insensitively, any of the profile's search patterns.
func MatchLanguage(tracks []Track, profile language.Profile) bool {
	_, ok := FindPatternMatch(tracks, profile)
	return ok
}

// FindPatternMatch is MatchLanguage that also returns the first evidence found.
func FindPatternMatch(tracks []Track, profile language.Profile) (Evidence, bool) {
	for _, track := range tracks {
		if pattern, ok := profile.MatchingPattern(track.Language); ok {
			return Evidence{Source: "track_language", Track: track.Index, Value: track.Language, Pattern: pattern}, true
		}
		if pattern, ok := profile.MatchingPattern(track.Title); ok {
			return Evidence{Source: "track_title", Track: track.Index, Value: track.Title, Pattern: pattern}, true
		}
	}
	return Evidence{}, false
}

// MatchLanguageTag reports the first track whose language tag normalizes to
// the profile's code (e.g. "ger", "deu", and "de-AT" all normalize to "de").
func MatchLanguageTag(tracks []Track, profile language.Profile) (Evidence, bool) {
	want := language.ToISO2(profile.Code)
	if want == "" {
		want = strings.ToLower(strings.TrimSpace(profile.Code))
	}
	for _, track := range tracks {
		if track.Language == "" {
			continue
		}
		if language.ToISO2(track.Language) == want {
			return Evidence{Source: "language_tag", Track: track.Index, Value: track.Language, Pattern: profile.Code}, true
		}
	}
	return Evidence{}, false
}

// MatchName tests a file or folder name against the profile's patterns.
func MatchName(source, name string, profile language.Profile) (Evidence, bool) {
	if pattern, ok := profile.MatchingPattern(name); ok {
		return Evidence{Source: source, Track: -1, Value: name, Pattern: pattern}, true
	}
	return Evidence{}, false
}
