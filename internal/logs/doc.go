// Package logs reads the per-run log files langtagger writes into the log
// directory.
//
// Latest picks the newest run log, Tail returns its last lines with the byte
// offset they end at, and Follow polls from an offset until the context is
// cancelled. Memory use is bounded by the number of requested lines, not the
// size of the file.
package logs
