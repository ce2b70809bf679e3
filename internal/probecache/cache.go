// Package probecache stores ffprobe results in SQLite so unchanged files are
// not probed again. Entries are keyed by absolute path and are only served
// while the file's size and modification time still match.
package probecache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"langtagger/internal/fileutil"
	"langtagger/internal/media/ffprobe"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. A mismatching writable
// cache is dropped and rebuilt; its contents are disposable.
const schemaVersion = 1

var (
	// ErrReadOnly is returned by Put on a cache opened with OpenReadOnly.
	ErrReadOnly = errors.New("probe cache is read-only")
	// ErrSchemaMismatch indicates a read-only cache written by another schema version.
	ErrSchemaMismatch = errors.New("probe cache schema mismatch")
)

// Cache is a SQLite-backed probe result cache.
type Cache struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open creates or opens the cache at path for reading and writing.
func Open(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if err := applyPragmas(ctx, db, pragmas); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache := &Cache{db: db, path: path}
	if err := cache.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// OpenReadOnly opens an existing cache without creating or modifying it.
// A missing database yields an error matching fs.ErrNotExist.
func OpenReadOnly(ctx context.Context, path string) (*Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := applyPragmas(ctx, db, []string{"PRAGMA busy_timeout = 5000"}); err != nil {
		_ = db.Close()
		return nil, err
	}
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		_ = db.Close()
		return nil, fmt.Errorf("%w: found %d, want %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return &Cache{db: db, path: path, readOnly: true}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB, pragmas []string) error {
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	var version int
	if err := c.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS probe_results"); err != nil {
		return fmt.Errorf("drop stale cache: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// Path returns the database file location.
func (c *Cache) Path() string { return c.path }

// ReadOnly reports whether Put is disabled.
func (c *Cache) ReadOnly() bool { return c.readOnly }

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached result for path when the stored fingerprint matches.
func (c *Cache) Get(ctx context.Context, path string, fp fileutil.Fingerprint) (ffprobe.Result, bool, error) {
	var (
		size    int64
		modTime int64
		output  string
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT size, mod_time, output_json FROM probe_results WHERE path = ?", path,
	).Scan(&size, &modTime, &output)
	if errors.Is(err, sql.ErrNoRows) {
		return ffprobe.Result{}, false, nil
	}
	if err != nil {
		return ffprobe.Result{}, false, fmt.Errorf("query probe cache: %w", err)
	}
	if size != fp.Size || modTime != fp.ModTime {
		return ffprobe.Result{}, false, nil
	}
	result, err := ffprobe.Parse([]byte(output))
	if err != nil {
		return ffprobe.Result{}, false, fmt.Errorf("decode cached probe: %w", err)
	}
	return result, true, nil
}

// Put stores or replaces the result for path.
func (c *Cache) Put(ctx context.Context, path string, fp fileutil.Fingerprint, result ffprobe.Result) error {
	if c.readOnly {
		return ErrReadOnly
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO probe_results (path, size, mod_time, output_json, probed_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            size = excluded.size,
            mod_time = excluded.mod_time,
            output_json = excluded.output_json,
            probed_at = excluded.probed_at`,
		path, fp.Size, fp.ModTime, string(result.RawJSON()), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store probe result: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM probe_results").Scan(&n); err != nil {
		return 0, fmt.Errorf("count probe cache: %w", err)
	}
	return n, nil
}

// PruneMissing deletes entries whose files no longer exist and returns how
// many were removed.
func (c *Cache) PruneMissing(ctx context.Context) (int, error) {
	if c.readOnly {
		return 0, ErrReadOnly
	}
	rows, err := c.db.QueryContext(ctx, "SELECT path FROM probe_results")
	if err != nil {
		return 0, fmt.Errorf("list probe cache: %w", err)
	}
	var missing []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan probe cache: %w", err)
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			missing = append(missing, path)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, path := range missing {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM probe_results WHERE path = ?", path); err != nil {
			return 0, fmt.Errorf("prune probe cache: %w", err)
		}
	}
	return len(missing), nil
}
