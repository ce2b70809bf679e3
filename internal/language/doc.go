// Package language provides language code normalization and the language
// profiles that drive tagging.
//
// Code conversions (ISO 639-1, ISO 639-2 terminology and bibliographic
// forms, English and native language words, BCP 47 tags) are consolidated
// here so the audio matcher and the CLI agree on what "de" means. Profiles
// bind a code to the search patterns matched against audio track metadata and
// the tags written into sidecars.
package language
