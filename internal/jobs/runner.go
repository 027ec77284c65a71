package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/wayback"
)

// Summary notes attached to completed jobs. A nil summary means metrics were
// found and the result table speaks for itself.
const (
	SummaryNoSnapshots = "No Wayback snapshots found for selected date range."
	SummaryNoneSampled = "No snapshots sampled (unexpected)."
	SummaryNoMetrics   = "Snapshots found but no extractable metrics."
	SummaryAllCached   = "All snapshots served from cache."
)

// Runner executes archaeology jobs. Every outcome, including failure, is
// persisted on the job row; callers launch Run in a goroutine and poll the
// job over the API.
type Runner struct {
	store   Store
	client  Discoverer
	fetcher Fetcher
}

// NewRunner builds a job runner.
func NewRunner(store Store, client Discoverer, fetcher Fetcher) *Runner {
	return &Runner{store: store, client: client, fetcher: fetcher}
}

// Run processes one job to a terminal state. Errors are recorded on the job
// row rather than returned; the worker goroutine has nobody to return them to.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil || job == nil {
		log.Printf("job %s: load failed: %v", jobID, err)
		return
	}

	started, err := r.store.MarkJobRunning(ctx, jobID)
	if err != nil {
		log.Printf("job %s: start failed: %v", jobID, err)
		return
	}
	if !started {
		// Canceled (or otherwise resolved) before the worker picked it up.
		log.Printf("job %s: not in queued state, skipping", jobID)
		return
	}

	if err := r.run(ctx, job); err != nil {
		log.Printf("job %s: failed: %v", jobID, err)
		if ferr := r.store.FailJob(ctx, jobID, err.Error()); ferr != nil {
			log.Printf("job %s: recording failure failed: %v", jobID, ferr)
		}
	}
}

func (r *Runner) run(ctx context.Context, job *db.Job) error {
	profile, ok := wayback.ProfileFor(job.Platform)
	if !ok {
		return fmt.Errorf("unsupported platform: %s", job.Platform)
	}

	dr := wayback.DateRange{}
	if job.FromYear != nil {
		dr.FromYear = *job.FromYear
	}
	if job.ToYear != nil {
		dr.ToYear = *job.ToYear
	}
	if job.FromDate != nil {
		dr.FromDate = *job.FromDate
	}
	if job.ToDate != nil {
		dr.ToDate = *job.ToDate
	}

	snaps, err := r.client.Discover(ctx, profile, job.Handle, dr)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	found := len(snaps)
	log.Printf("job %s: %d captures discovered for %s/%s", job.ID, found, job.Platform, job.Handle)

	if found == 0 {
		if err := r.store.UpdateJobDiscovery(ctx, job.ID, 0, 0, 0); err != nil {
			return err
		}
		summary := SummaryNoSnapshots
		return r.store.CompleteJob(ctx, job.ID, &summary)
	}

	sampled := wayback.SampleStratified(snaps, job.MaxSnapshots)
	if err := r.store.UpdateJobDiscovery(ctx, job.ID, found, found, len(sampled)); err != nil {
		return err
	}
	if len(sampled) == 0 {
		summary := SummaryNoneSampled
		return r.store.CompleteJob(ctx, job.ID, &summary)
	}

	var processed, withMetrics, cached, fetched int
	for _, snap := range sampled {
		status, err := r.store.JobStatus(ctx, job.ID)
		if err != nil {
			return err
		}
		if status == db.JobStatusCanceled {
			// Processed rows stay; the status row already says canceled.
			log.Printf("job %s: canceled after %d snapshots", job.ID, processed)
			return nil
		}

		row, source, err := r.processSnapshot(ctx, job, profile, snap)
		if err != nil {
			return err
		}
		switch source {
		case db.SourceCache:
			cached++
		case db.SourceWayback:
			fetched++
		}
		if row.HasMetrics() {
			withMetrics++
		}
		if err := r.store.UpsertJobSnapshot(ctx, row); err != nil {
			return err
		}
		processed++
		if err := r.store.UpdateJobProgress(ctx, job.ID, processed, withMetrics, cached, fetched); err != nil {
			return err
		}
	}

	var summary *string
	switch {
	case withMetrics == 0:
		s := SummaryNoMetrics
		summary = &s
	case fetched == 0:
		s := SummaryAllCached
		summary = &s
	}
	return r.store.CompleteJob(ctx, job.ID, summary)
}

// processSnapshot resolves one capture, preferring the cache. A cached row
// without metrics is not trusted: the page is re-fetched in case a newer
// extraction strategy can now read it.
func (r *Runner) processSnapshot(ctx context.Context, job *db.Job, profile *wayback.Profile, snap wayback.Snapshot) (*db.JobSnapshot, string, error) {
	entry, err := r.store.GetCacheEntry(ctx, job.Platform, job.CanonicalURL, snap.Timestamp)
	if err != nil {
		return nil, "", err
	}
	if entry != nil && entry.HasMetrics() {
		return &db.JobSnapshot{
			JobID:       job.ID,
			Timestamp:   entry.Timestamp,
			OriginalURL: entry.OriginalURL,
			ArchivedURL: entry.ArchivedURL,
			Followers:   entry.Followers,
			Following:   entry.Following,
			Posts:       entry.Posts,
			Subscribers: entry.Subscribers,
			Confidence:  entry.Confidence,
			Evidence:    entry.Evidence,
			Source:      db.SourceCache,
		}, db.SourceCache, nil
	}

	// Cache miss: the page download counts against the archive budget, so
	// wait for the shared limiter before going out.
	if err := r.client.Throttle(ctx); err != nil {
		return nil, "", err
	}
	html, _ := r.fetcher.Fetch(ctx, snap)
	ex := wayback.Extract(html, profile.Metrics, profile.Strategies)

	fresh := &db.CacheEntry{
		Platform:     job.Platform,
		Handle:       job.Handle,
		CanonicalURL: job.CanonicalURL,
		Timestamp:    snap.Timestamp,
		OriginalURL:  snap.Original,
		ArchivedURL:  snap.ArchivedURL(),
		Confidence:   ex.BestConfidence(),
		Evidence:     ex.FirstEvidence(),
	}
	applyExtraction(fresh, ex)
	if err := r.store.UpsertCacheEntry(ctx, fresh); err != nil {
		return nil, "", err
	}

	return &db.JobSnapshot{
		JobID:       job.ID,
		Timestamp:   fresh.Timestamp,
		OriginalURL: fresh.OriginalURL,
		ArchivedURL: fresh.ArchivedURL,
		Followers:   fresh.Followers,
		Following:   fresh.Following,
		Posts:       fresh.Posts,
		Subscribers: fresh.Subscribers,
		Confidence:  fresh.Confidence,
		Evidence:    fresh.Evidence,
		Source:      db.SourceWayback,
	}, db.SourceWayback, nil
}

func applyExtraction(e *db.CacheEntry, ex wayback.Extraction) {
	e.Followers = ex[wayback.MetricFollowers].Value
	e.Following = ex[wayback.MetricFollowing].Value
	e.Posts = ex[wayback.MetricPosts].Value
	e.Subscribers = ex[wayback.MetricSubscribers].Value
}
