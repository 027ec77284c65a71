// Package jobs orchestrates archaeology runs: discovery against the archive
// index, cache-first snapshot processing and persisted progress reporting.
package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/wayback"
)

// Store is the persistence surface the runner needs. *db.DB satisfies it;
// tests substitute an in-memory fake.
type Store interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (*db.Job, error)
	JobStatus(ctx context.Context, jobID uuid.UUID) (string, error)
	MarkJobRunning(ctx context.Context, jobID uuid.UUID) (bool, error)
	UpdateJobDiscovery(ctx context.Context, jobID uuid.UUID, total, found, sampled int) error
	UpdateJobProgress(ctx context.Context, jobID uuid.UUID, processed, withMetrics, cached, fetched int) error
	CompleteJob(ctx context.Context, jobID uuid.UUID, summary *string) error
	FailJob(ctx context.Context, jobID uuid.UUID, errText string) error
	UpsertJobSnapshot(ctx context.Context, s *db.JobSnapshot) error
	ListJobSnapshots(ctx context.Context, jobID uuid.UUID) ([]db.JobSnapshot, error)

	GetCacheEntry(ctx context.Context, platform, canonicalURL, timestamp string) (*db.CacheEntry, error)
	UpsertCacheEntry(ctx context.Context, e *db.CacheEntry) error
	ListCacheEntries(ctx context.Context, platform, canonicalURL string) ([]db.CacheEntry, error)
}

// Discoverer is the archive index surface, satisfied by *wayback.Client.
// Throttle exposes the client's shared request limiter so page downloads
// count against the same archive budget as index queries; the fetcher itself
// never delays, callers wait here before each live fetch.
type Discoverer interface {
	Discover(ctx context.Context, p *wayback.Profile, handle string, r wayback.DateRange) ([]wayback.Snapshot, error)
	Throttle(ctx context.Context) error
}

// Fetcher is the replay download surface, satisfied by *wayback.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, s wayback.Snapshot) (string, bool)
}
