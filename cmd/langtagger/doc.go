// Package main hosts the langtagger CLI entrypoint and command graph.
//
// The root command runs a tagging pass over a library directory; the
// subcommands cover configuration scaffolding, the language profile table,
// dependency checks, and probe cache maintenance. Configuration resolution
// and logger setup live here so internal/tagger stays free of terminal
// concerns.
package main
