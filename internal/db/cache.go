package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetCacheEntry retrieves one cached extraction, or nil when the capture has
// never been processed.
func (db *DB) GetCacheEntry(ctx context.Context, platform, canonicalURL, timestamp string) (*CacheEntry, error) {
	var e CacheEntry
	err := db.pool.QueryRow(ctx,
		`SELECT platform, handle, canonical_url, timestamp, original_url, archived_url,
		        followers, following, posts, subscribers, confidence, evidence, fetched_at
		 FROM wayback_snapshot_cache
		 WHERE platform = $1 AND canonical_url = $2 AND timestamp = $3`,
		platform, canonicalURL, timestamp,
	).Scan(&e.Platform, &e.Handle, &e.CanonicalURL, &e.Timestamp, &e.OriginalURL, &e.ArchivedURL,
		&e.Followers, &e.Following, &e.Posts, &e.Subscribers, &e.Confidence, &e.Evidence, &e.FetchedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return &e, nil
}

// UpsertCacheEntry stores an extraction result, replacing any previous result
// for the same capture.
func (db *DB) UpsertCacheEntry(ctx context.Context, e *CacheEntry) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO wayback_snapshot_cache
		   (platform, handle, canonical_url, timestamp, original_url, archived_url,
		    followers, following, posts, subscribers, confidence, evidence, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		 ON CONFLICT (platform, canonical_url, timestamp) DO UPDATE SET
		   handle = $2, original_url = $5, archived_url = $6,
		   followers = $7, following = $8, posts = $9, subscribers = $10,
		   confidence = $11, evidence = $12, fetched_at = NOW()`,
		e.Platform, e.Handle, e.CanonicalURL, e.Timestamp, e.OriginalURL, e.ArchivedURL,
		e.Followers, e.Following, e.Posts, e.Subscribers, e.Confidence, e.Evidence,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// ListCacheEntries retrieves every cached extraction for a profile in capture
// order, oldest first.
func (db *DB) ListCacheEntries(ctx context.Context, platform, canonicalURL string) ([]CacheEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT platform, handle, canonical_url, timestamp, original_url, archived_url,
		        followers, following, posts, subscribers, confidence, evidence, fetched_at
		 FROM wayback_snapshot_cache
		 WHERE platform = $1 AND canonical_url = $2
		 ORDER BY timestamp ASC`,
		platform, canonicalURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []CacheEntry
	for rows.Next() {
		var e CacheEntry
		if err := rows.Scan(&e.Platform, &e.Handle, &e.CanonicalURL, &e.Timestamp, &e.OriginalURL, &e.ArchivedURL,
			&e.Followers, &e.Following, &e.Posts, &e.Subscribers, &e.Confidence, &e.Evidence, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
