package db

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS wayback_snapshot_cache (
		platform      TEXT NOT NULL,
		handle        TEXT NOT NULL,
		canonical_url TEXT NOT NULL,
		timestamp     TEXT NOT NULL,
		original_url  TEXT NOT NULL,
		archived_url  TEXT NOT NULL,
		followers     BIGINT,
		following     BIGINT,
		posts         BIGINT,
		subscribers   BIGINT,
		confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
		evidence      TEXT,
		fetched_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (platform, canonical_url, timestamp)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_cache_handle
		ON wayback_snapshot_cache (platform, handle)`,
	`CREATE TABLE IF NOT EXISTS wayback_jobs (
		id              UUID PRIMARY KEY,
		platform        TEXT NOT NULL,
		handle          TEXT NOT NULL,
		canonical_url   TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'queued',
		from_year       INTEGER,
		to_year         INTEGER,
		from_date       TEXT,
		to_date         TEXT,
		max_snapshots   INTEGER NOT NULL,
		total_snapshots INTEGER NOT NULL DEFAULT 0,
		processed       INTEGER NOT NULL DEFAULT 0,
		snapshots_found INTEGER NOT NULL DEFAULT 0,
		sampled         INTEGER NOT NULL DEFAULT 0,
		with_metrics    INTEGER NOT NULL DEFAULT 0,
		cached          INTEGER NOT NULL DEFAULT 0,
		fetched         INTEGER NOT NULL DEFAULT 0,
		summary         TEXT,
		error           TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		started_at      TIMESTAMPTZ,
		finished_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wayback_jobs_created
		ON wayback_jobs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS wayback_job_snapshots (
		job_id       UUID NOT NULL REFERENCES wayback_jobs(id) ON DELETE CASCADE,
		timestamp    TEXT NOT NULL,
		original_url TEXT NOT NULL,
		archived_url TEXT NOT NULL,
		followers    BIGINT,
		following    BIGINT,
		posts        BIGINT,
		subscribers  BIGINT,
		confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
		evidence     TEXT,
		source       TEXT NOT NULL DEFAULT 'wayback',
		PRIMARY KEY (job_id, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS signal_points (
		series     TEXT NOT NULL,
		date       TEXT NOT NULL,
		value      DOUBLE PRECISION NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (series, date)
	)`,
}

// Migrate creates the schema. Statements are idempotent, so running it at
// every startup is safe.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
