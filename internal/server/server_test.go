package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ozayn/signalmap/internal/config"
	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/jobs"
	"github.com/ozayn/signalmap/internal/server/ratelimit"
	"github.com/ozayn/signalmap/internal/signals"
	"github.com/ozayn/signalmap/internal/wayback"
)

// mockStore is a mutex-guarded in-memory Store. Job workers run in
// goroutines, so every method locks.
type mockStore struct {
	mu        sync.Mutex
	jobsByID  map[uuid.UUID]*db.Job
	snapshots map[uuid.UUID][]db.JobSnapshot
	cache     map[string]*db.CacheEntry
}

func newMockStore() *mockStore {
	return &mockStore{
		jobsByID:  make(map[uuid.UUID]*db.Job),
		snapshots: make(map[uuid.UUID][]db.JobSnapshot),
		cache:     make(map[string]*db.CacheEntry),
	}
}

func cacheKey(platform, canonicalURL, timestamp string) string {
	return platform + "|" + canonicalURL + "|" + timestamp
}

func (m *mockStore) CreateJob(_ context.Context, j *db.Job) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	stored := *j
	stored.ID = id
	stored.Status = db.JobStatusQueued
	stored.CreatedAt = time.Now()
	m.jobsByID[id] = &stored
	return id, nil
}

func (m *mockStore) GetJob(_ context.Context, jobID uuid.UUID) (*db.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobsByID[jobID]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *mockStore) ListJobs(_ context.Context, platform, handle string, limit int) ([]db.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Job, 0, len(m.jobsByID))
	for _, j := range m.jobsByID {
		if platform != "" && j.Platform != platform {
			continue
		}
		if handle != "" && j.Handle != handle {
			continue
		}
		out = append(out, *j)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) JobStatus(_ context.Context, jobID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobsByID[jobID]; ok {
		return j.Status, nil
	}
	return "", nil
}

func (m *mockStore) MarkJobRunning(_ context.Context, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobsByID[jobID]
	if !ok || j.Status != db.JobStatusQueued {
		return false, nil
	}
	j.Status = db.JobStatusRunning
	return true, nil
}

func (m *mockStore) UpdateJobDiscovery(_ context.Context, jobID uuid.UUID, total, found, sampled int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobsByID[jobID]; ok {
		j.TotalSnapshots, j.SnapshotsFound, j.Sampled = total, found, sampled
	}
	return nil
}

func (m *mockStore) UpdateJobProgress(_ context.Context, jobID uuid.UUID, processed, withMetrics, cached, fetched int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobsByID[jobID]; ok {
		j.Processed, j.WithMetrics, j.Cached, j.Fetched = processed, withMetrics, cached, fetched
	}
	return nil
}

func (m *mockStore) CompleteJob(_ context.Context, jobID uuid.UUID, summary *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobsByID[jobID]; ok && j.Status == db.JobStatusRunning {
		j.Status = db.JobStatusCompleted
		j.Summary = summary
	}
	return nil
}

func (m *mockStore) FailJob(_ context.Context, jobID uuid.UUID, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobsByID[jobID]; ok {
		j.Status = db.JobStatusFailed
		j.Error = &errText
	}
	return nil
}

func (m *mockStore) CancelJob(_ context.Context, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobsByID[jobID]
	if !ok {
		return false, nil
	}
	if j.Status != db.JobStatusQueued && j.Status != db.JobStatusRunning {
		return false, nil
	}
	j.Status = db.JobStatusCanceled
	return true, nil
}

func (m *mockStore) DeleteJob(_ context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobsByID, jobID)
	delete(m.snapshots, jobID)
	return nil
}

func (m *mockStore) UpsertJobSnapshot(_ context.Context, s *db.JobSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.JobID] = append(m.snapshots[s.JobID], *s)
	return nil
}

func (m *mockStore) ListJobSnapshots(_ context.Context, jobID uuid.UUID) ([]db.JobSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.JobSnapshot(nil), m.snapshots[jobID]...), nil
}

func (m *mockStore) GetCacheEntry(_ context.Context, platform, canonicalURL, timestamp string) (*db.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.cache[cacheKey(platform, canonicalURL, timestamp)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStore) UpsertCacheEntry(_ context.Context, e *db.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.cache[cacheKey(e.Platform, e.CanonicalURL, e.Timestamp)] = &cp
	return nil
}

func (m *mockStore) ListCacheEntries(_ context.Context, platform, canonicalURL string) ([]db.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.CacheEntry
	for _, e := range m.cache {
		if e.Platform == platform && e.CanonicalURL == canonicalURL {
			out = append(out, *e)
		}
	}
	return out, nil
}

// mockDiscoverer returns a fixed snapshot list.
type mockDiscoverer struct {
	mu        sync.Mutex
	snaps     []wayback.Snapshot
	err       error
	calls     int
	throttles int
}

func (d *mockDiscoverer) Discover(context.Context, *wayback.Profile, string, wayback.DateRange) ([]wayback.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.snaps, d.err
}

func (d *mockDiscoverer) Throttle(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.throttles++
	return nil
}

// mockFetcher serves canned HTML by timestamp.
type mockFetcher struct {
	mu       sync.Mutex
	htmlByTS map[string]string
}

func (f *mockFetcher) Fetch(_ context.Context, s wayback.Snapshot) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	html, ok := f.htmlByTS[s.Timestamp]
	return html, ok
}

// mockSignals serves fixed series.
type mockSignals struct {
	series *signals.Series
	err    error
}

func (m *mockSignals) Brent(context.Context, string, string) (*signals.Series, error) {
	return m.series, m.err
}

func (m *mockSignals) USDToman(context.Context, string, string) (*signals.Series, error) {
	return m.series, m.err
}

func (m *mockSignals) OilPPP(context.Context, string, string, string) (*signals.Series, error) {
	return m.series, m.err
}

type testDeps struct {
	store   *mockStore
	disc    *mockDiscoverer
	fetcher *mockFetcher
	signals *mockSignals
}

// newTestServer wires a server onto in-memory fakes with rate limiting off.
// Pass a nil store to exercise the no-database mode.
func newTestServer(store *mockStore) (*Server, *testDeps) {
	deps := &testDeps{
		store:   store,
		disc:    &mockDiscoverer{},
		fetcher: &mockFetcher{htmlByTS: map[string]string{}},
		signals: &mockSignals{series: &signals.Series{
			Series: signals.SeriesNameBrent,
			Unit:   "USD/barrel",
			Points: []signals.Observation{{Date: "2020-01-02", Value: 66.0}},
			Source: "upstream",
		}},
	}

	s := &Server{
		cfg: &config.Config{
			Port:         8080,
			WebOrigin:    "http://localhost:3000",
			MaxSnapshots: 5,
		},
		client:      deps.disc,
		fetcher:     deps.fetcher,
		signals:     deps.signals,
		rateLimiter: ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
	}
	if store != nil {
		s.store = store
		s.runner = jobs.NewRunner(store, deps.disc, deps.fetcher)
	}
	return s, deps
}
