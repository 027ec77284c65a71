package jobs

import (
	"sort"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/wayback"
)

func isoDate(ts string) string {
	return wayback.TimestampToISO(ts)
}

// Result is one capture in an API-facing time series. Date is the ISO-8601
// rendering of the 14-digit archive timestamp.
type Result struct {
	Timestamp   string  `json:"timestamp"`
	Date        string  `json:"date"`
	OriginalURL string  `json:"original_url"`
	ArchivedURL string  `json:"archived_url"`
	Followers   *int64  `json:"followers"`
	Following   *int64  `json:"following"`
	Posts       *int64  `json:"posts"`
	Subscribers *int64  `json:"subscribers"`
	Confidence  float64 `json:"confidence"`
	Evidence    *string `json:"evidence"`
	Source      string  `json:"source"`
}

// HasMetrics reports whether at least one metric value is present.
func (r Result) HasMetrics() bool {
	return r.Followers != nil || r.Following != nil || r.Posts != nil || r.Subscribers != nil
}

func resultFromJobSnapshot(s db.JobSnapshot) Result {
	return Result{
		Timestamp:   s.Timestamp,
		Date:        isoDate(s.Timestamp),
		OriginalURL: s.OriginalURL,
		ArchivedURL: s.ArchivedURL,
		Followers:   s.Followers,
		Following:   s.Following,
		Posts:       s.Posts,
		Subscribers: s.Subscribers,
		Confidence:  s.Confidence,
		Evidence:    s.Evidence,
		Source:      s.Source,
	}
}

func resultFromCacheEntry(e db.CacheEntry) Result {
	return Result{
		Timestamp:   e.Timestamp,
		Date:        isoDate(e.Timestamp),
		OriginalURL: e.OriginalURL,
		ArchivedURL: e.ArchivedURL,
		Followers:   e.Followers,
		Following:   e.Following,
		Posts:       e.Posts,
		Subscribers: e.Subscribers,
		Confidence:  e.Confidence,
		Evidence:    e.Evidence,
		Source:      db.SourceCache,
	}
}

// MergeResults unions a job's own rows with the profile's accumulated cache
// history into one series, newest first. On a timestamp collision the row
// carrying metric values wins; among equals the job row wins, since it is the
// fresher extraction.
func MergeResults(jobSnaps []db.JobSnapshot, cacheRows []db.CacheEntry) []Result {
	byTS := make(map[string]Result, len(jobSnaps)+len(cacheRows))
	for _, s := range jobSnaps {
		byTS[s.Timestamp] = resultFromJobSnapshot(s)
	}
	for _, e := range cacheRows {
		candidate := resultFromCacheEntry(e)
		prev, seen := byTS[e.Timestamp]
		if !seen {
			byTS[e.Timestamp] = candidate
			continue
		}
		if !prev.HasMetrics() && candidate.HasMetrics() {
			byTS[e.Timestamp] = candidate
		}
	}

	out := make([]Result, 0, len(byTS))
	for _, r := range byTS {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}
