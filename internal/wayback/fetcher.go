package wayback

import (
	"context"
	"io"
	"net/http"
	"time"
)

// UserAgent identifies outbound archive requests. The contact hint keeps the
// archive able to reach out if the crawl pattern causes trouble.
const UserAgent = "Mozilla/5.0 (compatible; SignalMap/1.0; research tool)"

const (
	fetchTimeout      = 10 * time.Second
	fetchRetryBackoff = 5 * time.Second
)

// Fetcher downloads archived snapshot bodies for extraction. Fetches are
// best-effort: any failure reads as "no HTML for this capture" and the
// pipeline moves on.
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	archiveBase string
	sleep       func(time.Duration)
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithArchiveBase overrides the replay host, for tests.
func WithArchiveBase(base string) FetcherOption {
	return func(f *Fetcher) { f.archiveBase = base }
}

// WithFetchClient overrides the underlying HTTP client.
func WithFetchClient(h *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = h }
}

// WithFetchSleep overrides the backoff sleep hook.
func WithFetchSleep(fn func(time.Duration)) FetcherOption {
	return func(f *Fetcher) { f.sleep = fn }
}

// NewFetcher builds a snapshot fetcher. Redirects are followed; the archive
// frequently redirects to its nearest capture of the requested URL.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient:  &http.Client{Timeout: fetchTimeout},
		userAgent:   UserAgent,
		archiveBase: ArchiveBase,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the replay HTML for one capture. The bool result reports
// whether usable HTML came back; oversized bodies are discarded to avoid
// feeding non-profile payloads into extraction. A 429 is retried once.
func (f *Fetcher) Fetch(ctx context.Context, s Snapshot) (string, bool) {
	replayURL := f.archiveBase + "/web/" + s.Timestamp + "/" + s.Original

	html, status, err := f.fetchOnce(ctx, replayURL)
	if err == nil && status == http.StatusTooManyRequests {
		f.sleep(fetchRetryBackoff)
		html, status, err = f.fetchOnce(ctx, replayURL)
	}
	if err != nil || status != http.StatusOK || html == "" {
		return "", false
	}
	return html, true
}

func (f *Fetcher) fetchOnce(ctx context.Context, replayURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, replayURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", resp.StatusCode, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxHTMLBytes+1))
	if err != nil {
		return "", resp.StatusCode, err
	}
	if len(body) > MaxHTMLBytes {
		return "", resp.StatusCode, nil
	}
	return string(body), resp.StatusCode, nil
}
