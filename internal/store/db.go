package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cesargomez89/downtil/internal/storage"
)

// Lookup cache rows are small and written once per URL, so durability is
// relaxed and every connection shares one writer.
var cachePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

// DB is the on-disk lookup cache.
type DB struct {
	*sqlx.DB
}

// Open creates the cache file (and its directory) if needed, applies the
// schema and drops entries that expired while the server was down.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := storage.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", cacheDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply cache schema: %w", err)
	}

	c := &DB{db}
	if _, err := c.PruneCache(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prune cache: %w", err)
	}
	return c, nil
}

func cacheDSN(path string) string {
	params := make([]string, 0, len(cachePragmas))
	for _, p := range cachePragmas {
		params = append(params, "_pragma="+p)
	}
	return path + "?" + strings.Join(params, "&")
}

func (db *DB) Close() error {
	return db.DB.Close()
}
