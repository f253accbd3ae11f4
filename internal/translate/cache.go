package translate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"chorus/internal/config"
	"chorus/internal/services"
)

// Cache stores finished translations keyed by content so identical text is
// never sent to the model twice within the TTL window.
type Cache interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Store(ctx context.Context, key, text string) error
	Close() error
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS translations (
    cache_key TEXT PRIMARY KEY,
    translated_text TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_translations_created ON translations(created_at);
`

// SQLiteCache is the default Cache backed by its own database file.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenCache creates or opens the translation cache in the data directory.
func OpenCache(cfg *config.Config) (*SQLiteCache, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "translations.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open translation cache: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	ttl := time.Duration(cfg.Translation.CacheTTLDays) * 24 * time.Hour
	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// CacheKey derives the content-addressed key for one translation request.
// The same text translated for a different language or context produces a
// different key.
func CacheKey(text, sourceLanguage, targetLanguage, contextType string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(sourceLanguage))
	h.Write([]byte{0})
	h.Write([]byte(targetLanguage))
	h.Write([]byte{0})
	h.Write([]byte(contextType))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached translation when present and not expired.
// Expired rows are deleted on read.
func (c *SQLiteCache) Lookup(ctx context.Context, key string) (string, bool, error) {
	var (
		text      string
		createdAt string
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT translated_text, created_at FROM translations WHERE cache_key = ?", key,
	).Scan(&text, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, services.Wrap(services.ErrStorage, "translate", "cache-lookup", "read cache entry", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return "", false, services.Wrap(services.ErrStorage, "translate", "cache-lookup", "parse cache timestamp", err)
	}
	if c.ttl > 0 && time.Since(created) > c.ttl {
		_, _ = c.db.ExecContext(ctx, "DELETE FROM translations WHERE cache_key = ?", key)
		return "", false, nil
	}
	return text, true, nil
}

// Store upserts one translation.
func (c *SQLiteCache) Store(ctx context.Context, key, text string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO translations (cache_key, translated_text, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			translated_text = excluded.translated_text,
			created_at = excluded.created_at`,
		key, text, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "translate", "cache-store", "write cache entry", err)
	}
	return nil
}

// Prune deletes every expired entry and returns the number removed.
func (c *SQLiteCache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-c.ttl).Format(time.RFC3339Nano)
	res, err := c.db.ExecContext(ctx, "DELETE FROM translations WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "translate", "cache-prune", "delete expired entries", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "translate", "cache-prune", "read affected rows", err)
	}
	return removed, nil
}

// Close closes the cache database.
func (c *SQLiteCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
