package coingecko

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/cryptofolio/internal/domain"
)

// SnapshotCache stores the last fetched snapshot batch in the cache DB,
// msgpack-encoded. It exists so the engine keeps answering while the
// provider rate-limits us.
type SnapshotCache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewSnapshotCache creates a new snapshot cache
func NewSnapshotCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("cache", "snapshots").Logger(),
	}
}

// EnsureSchema creates the cache table if it does not exist.
func (c *SnapshotCache) EnsureSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_cache (
			key       TEXT PRIMARY KEY,
			payload   BLOB NOT NULL,
			stored_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create snapshot_cache table: %w", err)
	}
	return nil
}

// Store saves a snapshot batch under the key.
func (c *SnapshotCache) Store(key string, snaps []domain.AssetSnapshot) error {
	payload, err := msgpack.Marshal(snaps)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot batch: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO snapshot_cache (key, payload, stored_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload   = excluded.payload,
			stored_at = excluded.stored_at
	`, key, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store snapshot batch: %w", err)
	}
	return nil
}

// GetIfFresh returns the cached batch if it is within the TTL, or nil.
func (c *SnapshotCache) GetIfFresh(key string) ([]domain.AssetSnapshot, error) {
	snaps, storedAt, err := c.get(key)
	if err != nil || snaps == nil {
		return nil, err
	}
	if time.Since(storedAt) > c.ttl {
		return nil, nil
	}
	return snaps, nil
}

// GetStale returns the cached batch regardless of age. Fallback for
// when the provider is down: stale data beats no data.
func (c *SnapshotCache) GetStale(key string) ([]domain.AssetSnapshot, error) {
	snaps, _, err := c.get(key)
	return snaps, err
}

func (c *SnapshotCache) get(key string) ([]domain.AssetSnapshot, time.Time, error) {
	var (
		payload  []byte
		storedAt int64
	)
	err := c.db.QueryRow(
		"SELECT payload, stored_at FROM snapshot_cache WHERE key = ?", key,
	).Scan(&payload, &storedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	var snaps []domain.AssetSnapshot
	if err := msgpack.Unmarshal(payload, &snaps); err != nil {
		// A corrupt entry is treated as a miss; the next store fixes it.
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached snapshot batch")
		return nil, time.Time{}, nil
	}
	return snaps, time.Unix(storedAt, 0), nil
}
