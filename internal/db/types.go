package db

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses. A job moves queued -> running -> one of the terminal states.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCanceled  = "canceled"
)

// Snapshot sources recorded on processed rows.
const (
	SourceCache   = "cache"
	SourceWayback = "wayback"
)

// CacheEntry is one extraction result keyed by (platform, canonical URL,
// capture timestamp). Entries persist even when extraction found nothing, so
// the history endpoint can show coverage; the job pipeline still re-fetches
// metric-less entries in case a newer strategy can read them.
type CacheEntry struct {
	Platform     string     `json:"platform"`
	Handle       string     `json:"handle"`
	CanonicalURL string     `json:"canonical_url"`
	Timestamp    string     `json:"timestamp"`
	OriginalURL  string     `json:"original_url"`
	ArchivedURL  string     `json:"archived_url"`
	Followers    *int64     `json:"followers"`
	Following    *int64     `json:"following"`
	Posts        *int64     `json:"posts"`
	Subscribers  *int64     `json:"subscribers"`
	Confidence   float64    `json:"confidence"`
	Evidence     *string    `json:"evidence"`
	FetchedAt    *time.Time `json:"fetched_at,omitempty"`
}

// HasMetrics reports whether at least one metric value is present.
func (e *CacheEntry) HasMetrics() bool {
	return e.Followers != nil || e.Following != nil || e.Posts != nil || e.Subscribers != nil
}

// Job is one archaeology run over a profile's archive history.
type Job struct {
	ID           uuid.UUID `json:"id"`
	Platform     string    `json:"platform"`
	Handle       string    `json:"handle"`
	CanonicalURL string    `json:"canonical_url"`
	Status       string    `json:"status"`

	FromYear     *int    `json:"from_year,omitempty"`
	ToYear       *int    `json:"to_year,omitempty"`
	FromDate     *string `json:"from_date,omitempty"`
	ToDate       *string `json:"to_date,omitempty"`
	MaxSnapshots int     `json:"max_snapshots"`

	TotalSnapshots int `json:"total_snapshots"`
	Processed      int `json:"processed"`
	SnapshotsFound int `json:"snapshots_found"`
	Sampled        int `json:"sampled"`
	WithMetrics    int `json:"with_metrics"`
	Cached         int `json:"cached"`
	Fetched        int `json:"fetched"`

	Summary *string `json:"summary,omitempty"`
	Error   *string `json:"error,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// JobSnapshot is one processed capture within a job, keyed by
// (job ID, capture timestamp).
type JobSnapshot struct {
	JobID       uuid.UUID `json:"job_id"`
	Timestamp   string    `json:"timestamp"`
	OriginalURL string    `json:"original_url"`
	ArchivedURL string    `json:"archived_url"`
	Followers   *int64    `json:"followers"`
	Following   *int64    `json:"following"`
	Posts       *int64    `json:"posts"`
	Subscribers *int64    `json:"subscribers"`
	Confidence  float64   `json:"confidence"`
	Evidence    *string   `json:"evidence"`
	Source      string    `json:"source"`
}

// HasMetrics reports whether at least one metric value is present.
func (s *JobSnapshot) HasMetrics() bool {
	return s.Followers != nil || s.Following != nil || s.Posts != nil || s.Subscribers != nil
}

// SignalPoint is one dated observation in a macro series, keyed by
// (series, date).
type SignalPoint struct {
	Series    string    `json:"series"`
	Date      string    `json:"date"`
	Value     float64   `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}
