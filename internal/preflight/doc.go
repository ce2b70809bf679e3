// Package preflight provides readiness checks for the filesystem paths and
// external tools langtagger depends on.
//
// These checks run in two contexts:
//   - The tagger calls CheckDirectoryAccess on the library root before a run.
//     A failed root check is fatal.
//   - The CLI "langtagger check" command calls RunAll to display a readiness
//     table for the configured paths and ffprobe.
package preflight
