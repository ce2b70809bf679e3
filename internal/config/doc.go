// Package config loads, normalizes, and validates langtagger configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the LANGTAGGER_FFPROBE environment
// fallback for the probe binary. The Config type centralizes every knob the CLI
// and tagger need, including user-defined language profiles under
// [languages.<code>].
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
