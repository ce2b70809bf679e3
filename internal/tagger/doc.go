// Package tagger runs a tagging pass over a media library: it discovers
// media folders, probes their videos' audio streams, and merges the selected
// language profile's tags into the NFO sidecars.
//
// A run is strictly sequential. Folders are processed in path order and, in
// folder sidecar mode, videos inside a folder are probed in name order until
// one matches. Errors tied to a single file or folder are logged, counted in
// the Summary, and do not stop the run; only the conditions wrapped with a
// fatal kind (see IsFatal) abort it.
package tagger
