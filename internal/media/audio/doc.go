// Package audio turns ffprobe stream descriptions into AudioTrackInfo values
// and decides whether a set of tracks carries a given language.
//
// This package depends only on internal/media/ffprobe and internal/language.
//
// Key types:
//   - Track: language/title metadata for one audio stream
//   - Evidence: which track and field satisfied a profile
//
// Primary entry points:
//   - TracksFromStreams: extracts tracks from a probe result
//   - MatchLanguage: pattern match over track language/title fields
//   - MatchLanguageTag: normalized stream language tag comparison
package audio
