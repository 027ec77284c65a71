package jobs

import (
	"context"
	"log"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/wayback"
)

// DisclaimerNote accompanies every lookup response. Archive coverage is
// sparse and uneven, and the numbers are whatever the captured page said.
const DisclaimerNote = "Sparse archival snapshots from Wayback. Treat as contextual signals only; missing values are expected."

// LookupOptions bounds an ad-hoc lookup.
type LookupOptions struct {
	FromYear     int
	ToYear       int
	MaxSnapshots int
}

// DefaultMaxSnapshots caps how many captures an ad-hoc lookup processes.
const DefaultMaxSnapshots = 10

// LookupResult is the synchronous lookup response.
type LookupResult struct {
	Platform     string   `json:"platform"`
	Handle       string   `json:"handle"`
	CanonicalURL string   `json:"canonical_url"`
	Results      []Result `json:"results"`
	Source       string   `json:"source"`
	Notes        string   `json:"notes"`
}

// Lookup resolves a profile's archive history synchronously, capped to a
// small sample. Unlike job runs it uses a plain stride sample; ad-hoc ranges
// are short enough that per-year stratification buys nothing. The store may
// be nil, in which case results are computed without caching.
func Lookup(ctx context.Context, store Store, client Discoverer, fetcher Fetcher, profile *wayback.Profile, input string, opts LookupOptions) (*LookupResult, error) {
	handle, canonicalURL, err := profile.Canonicalize(input)
	if err != nil {
		return nil, err
	}
	if opts.MaxSnapshots <= 0 {
		opts.MaxSnapshots = DefaultMaxSnapshots
	}

	snaps, err := client.Discover(ctx, profile, handle, wayback.DateRange{
		FromYear: opts.FromYear,
		ToYear:   opts.ToYear,
	})
	if err != nil {
		return nil, err
	}
	sampled := wayback.SampleStride(snaps, opts.MaxSnapshots)

	var cached, fetched int
	results := make([]Result, 0, len(sampled))
	for _, snap := range sampled {
		if store != nil {
			entry, err := store.GetCacheEntry(ctx, profile.Name, canonicalURL, snap.Timestamp)
			if err != nil {
				return nil, err
			}
			if entry != nil && entry.HasMetrics() {
				r := resultFromCacheEntry(*entry)
				results = append(results, r)
				cached++
				continue
			}
		}

		// Live fetches honor the same archive budget as index queries.
		if err := client.Throttle(ctx); err != nil {
			return nil, err
		}
		html, _ := fetcher.Fetch(ctx, snap)
		ex := wayback.Extract(html, profile.Metrics, profile.Strategies)
		fetched++

		entry := &db.CacheEntry{
			Platform:     profile.Name,
			Handle:       handle,
			CanonicalURL: canonicalURL,
			Timestamp:    snap.Timestamp,
			OriginalURL:  snap.Original,
			ArchivedURL:  snap.ArchivedURL(),
			Confidence:   ex.BestConfidence(),
			Evidence:     ex.FirstEvidence(),
		}
		applyExtraction(entry, ex)
		if store != nil {
			if err := store.UpsertCacheEntry(ctx, entry); err != nil {
				log.Printf("lookup %s/%s: cache write failed: %v", profile.Name, handle, err)
			}
		}

		r := resultFromCacheEntry(*entry)
		r.Source = db.SourceWayback
		results = append(results, r)
	}

	// Newest first, matching the job result ordering.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	return &LookupResult{
		Platform:     profile.Name,
		Handle:       handle,
		CanonicalURL: canonicalURL,
		Results:      results,
		Source:       lookupSource(cached, fetched),
		Notes:        DisclaimerNote,
	}, nil
}

func lookupSource(cached, fetched int) string {
	switch {
	case fetched == 0 && cached > 0:
		return "cache"
	case cached == 0 && fetched > 0:
		return "live"
	case cached > 0 && fetched > 0:
		return "mixed"
	}
	return "live"
}
