// Package logging builds the slog loggers langtagger writes with.
//
// A run logger prints one key=value line per record to the console and tees
// the same records as JSON into a per-run file under the log directory. The
// console and file sides can use different levels so a progress bar can own
// the terminal while the file keeps full detail. WarnWithContext fills in the
// event_type, error_hint, and impact fields every warning is expected to
// carry, and CleanupOldLogs prunes run logs past their retention.
package logging
