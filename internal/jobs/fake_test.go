package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/wayback"
)

// fakeStore is an in-memory Store for runner tests.
type fakeStore struct {
	jobs      map[uuid.UUID]*db.Job
	snapshots map[uuid.UUID][]db.JobSnapshot
	cache     map[string]*db.CacheEntry

	// cancelAfter flips the job to canceled once this many status polls
	// have happened. Zero means never.
	cancelAfter int
	statusPolls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      map[uuid.UUID]*db.Job{},
		snapshots: map[uuid.UUID][]db.JobSnapshot{},
		cache:     map[string]*db.CacheEntry{},
	}
}

func cacheKey(platform, canonicalURL, timestamp string) string {
	return platform + "|" + canonicalURL + "|" + timestamp
}

func (f *fakeStore) addJob(j *db.Job) uuid.UUID {
	j.ID = uuid.New()
	j.Status = db.JobStatusQueued
	f.jobs[j.ID] = j
	return j.ID
}

func (f *fakeStore) GetJob(_ context.Context, jobID uuid.UUID) (*db.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) JobStatus(_ context.Context, jobID uuid.UUID) (string, error) {
	f.statusPolls++
	if f.cancelAfter > 0 && f.statusPolls > f.cancelAfter {
		f.jobs[jobID].Status = db.JobStatusCanceled
	}
	return f.jobs[jobID].Status, nil
}

func (f *fakeStore) MarkJobRunning(_ context.Context, jobID uuid.UUID) (bool, error) {
	j := f.jobs[jobID]
	if j.Status != db.JobStatusQueued {
		return false, nil
	}
	j.Status = db.JobStatusRunning
	return true, nil
}

func (f *fakeStore) UpdateJobDiscovery(_ context.Context, jobID uuid.UUID, total, found, sampled int) error {
	j := f.jobs[jobID]
	j.TotalSnapshots = total
	j.SnapshotsFound = found
	j.Sampled = sampled
	return nil
}

func (f *fakeStore) UpdateJobProgress(_ context.Context, jobID uuid.UUID, processed, withMetrics, cached, fetched int) error {
	j := f.jobs[jobID]
	j.Processed = processed
	j.WithMetrics = withMetrics
	j.Cached = cached
	j.Fetched = fetched
	return nil
}

func (f *fakeStore) CompleteJob(_ context.Context, jobID uuid.UUID, summary *string) error {
	j := f.jobs[jobID]
	if j.Status != db.JobStatusRunning {
		return nil
	}
	j.Status = db.JobStatusCompleted
	j.Summary = summary
	return nil
}

func (f *fakeStore) FailJob(_ context.Context, jobID uuid.UUID, errText string) error {
	j := f.jobs[jobID]
	j.Status = db.JobStatusFailed
	j.Error = &errText
	return nil
}

func (f *fakeStore) UpsertJobSnapshot(_ context.Context, s *db.JobSnapshot) error {
	f.snapshots[s.JobID] = append(f.snapshots[s.JobID], *s)
	return nil
}

func (f *fakeStore) ListJobSnapshots(_ context.Context, jobID uuid.UUID) ([]db.JobSnapshot, error) {
	return f.snapshots[jobID], nil
}

func (f *fakeStore) GetCacheEntry(_ context.Context, platform, canonicalURL, timestamp string) (*db.CacheEntry, error) {
	e, ok := f.cache[cacheKey(platform, canonicalURL, timestamp)]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) UpsertCacheEntry(_ context.Context, e *db.CacheEntry) error {
	cp := *e
	f.cache[cacheKey(e.Platform, e.CanonicalURL, e.Timestamp)] = &cp
	return nil
}

func (f *fakeStore) ListCacheEntries(_ context.Context, platform, canonicalURL string) ([]db.CacheEntry, error) {
	var out []db.CacheEntry
	for _, e := range f.cache {
		if e.Platform == platform && e.CanonicalURL == canonicalURL {
			out = append(out, *e)
		}
	}
	return out, nil
}

// fakeDiscoverer serves a fixed capture list, or an error. Throttle counts
// its invocations and, when a limiter is set, waits on it like the real
// client does.
type fakeDiscoverer struct {
	snaps     []wayback.Snapshot
	err       error
	calls     int
	throttles int
	limiter   *rate.Limiter
}

func (f *fakeDiscoverer) Discover(context.Context, *wayback.Profile, string, wayback.DateRange) ([]wayback.Snapshot, error) {
	f.calls++
	return f.snaps, f.err
}

func (f *fakeDiscoverer) Throttle(ctx context.Context) error {
	f.throttles++
	if f.limiter != nil {
		return f.limiter.Wait(ctx)
	}
	return nil
}

// fakeFetcher serves HTML keyed by capture timestamp.
type fakeFetcher struct {
	htmlByTS map[string]string
	calls    int
}

func (f *fakeFetcher) Fetch(_ context.Context, s wayback.Snapshot) (string, bool) {
	f.calls++
	html, ok := f.htmlByTS[s.Timestamp]
	return html, ok
}

func igSnaps(n int) []wayback.Snapshot {
	snaps := make([]wayback.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		snaps = append(snaps, wayback.Snapshot{
			Timestamp: fmt.Sprintf("201%d0301101500", i),
			Original:  "https://www.instagram.com/nasa/",
		})
	}
	return snaps
}

const igMetricsHTML = `<ul><li>3 posts</li><li>3,646 followers</li><li>9 following</li></ul>`
