package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCDXBase is the public CDX search endpoint.
const DefaultCDXBase = "https://web.archive.org/cdx/search/cdx"

const (
	cdxTimeout      = 15 * time.Second
	cdxRetryBackoff = 8 * time.Second
	cdxResultLimit  = 2000

	// requestInterval spaces outbound archive requests to stay well under
	// the service's informal ~15 req/min ceiling.
	requestInterval = 4 * time.Second
)

// Client queries the CDX index for archival captures of profile URLs. One
// Client is shared by everything that talks to the archive so the rate
// limiter covers index queries and snapshot fetches together.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseURL     string
	userAgent   string
	resultLimit int

	// sleep is swapped out in tests so backoff does not stall them.
	sleep func(time.Duration)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCDXBase overrides the CDX endpoint, for tests.
func WithCDXBase(base string) ClientOption {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// WithLimiter overrides the request limiter.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithSleep overrides the backoff sleep hook.
func WithSleep(fn func(time.Duration)) ClientOption {
	return func(c *Client) { c.sleep = fn }
}

// NewClient builds a CDX client with conservative archive-friendly defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: cdxTimeout},
		limiter:     rate.NewLimiter(rate.Every(requestInterval), 1),
		baseURL:     DefaultCDXBase,
		userAgent:   UserAgent,
		resultLimit: cdxResultLimit,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Throttle blocks until the shared archive rate limiter admits one more
// request, or the context is canceled.
func (c *Client) Throttle(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// DateRange bounds discovery. Exact dates (YYYYMMDD) take precedence over
// bare years when both are set.
type DateRange struct {
	FromYear int
	ToYear   int
	FromDate string
	ToDate   string
}

func (r DateRange) from() string {
	if r.FromDate != "" {
		return r.FromDate
	}
	if r.FromYear > 0 {
		return fmt.Sprintf("%d", r.FromYear)
	}
	return ""
}

func (r DateRange) to() string {
	if r.ToDate != "" {
		return r.ToDate
	}
	if r.ToYear > 0 {
		return fmt.Sprintf("%d", r.ToYear)
	}
	return ""
}

// Query asks the CDX index for captures of one URL variant within the range.
// Only 200 text/html captures are requested, collapsed to at most one per
// day. A 429 response is retried once after a fixed backoff.
func (c *Client) Query(ctx context.Context, v Variant, r DateRange, exclude []string) ([]Snapshot, error) {
	q := url.Values{}
	q.Set("url", v.URL)
	q.Set("output", "json")
	q.Set("fl", "timestamp,original,statuscode,mimetype")
	q.Add("filter", "statuscode:200")
	q.Add("filter", "mimetype:text/html")
	q.Set("collapse", "timestamp:8")
	q.Set("limit", fmt.Sprintf("%d", c.resultLimit))
	if v.MatchPrefix {
		q.Set("matchType", "prefix")
		for _, pat := range exclude {
			q.Add("filter", "!original:"+pat)
		}
	}
	if from := r.from(); from != "" {
		q.Set("from", from)
	}
	if to := r.to(); to != "" {
		q.Set("to", to)
	}

	rows, err := c.queryOnce(ctx, q)
	if err == errRateLimited {
		c.sleep(cdxRetryBackoff)
		rows, err = c.queryOnce(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	return parseCDXRows(rows), nil
}

var errRateLimited = fmt.Errorf("cdx: rate limited")

func (c *Client) queryOnce(ctx context.Context, q url.Values) ([][]string, error) {
	if err := c.Throttle(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cdx query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("cdx query: unexpected status %d", resp.StatusCode)
	}

	var rows [][]string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("cdx query: decode: %w", err)
	}
	return rows, nil
}

// parseCDXRows turns the CDX JSON table (header row plus data rows) into
// snapshots. Field positions are read from the header rather than assumed.
func parseCDXRows(rows [][]string) []Snapshot {
	if len(rows) < 2 {
		return nil
	}
	tsIdx, origIdx := -1, -1
	for i, col := range rows[0] {
		switch col {
		case "timestamp":
			tsIdx = i
		case "original":
			origIdx = i
		}
	}
	if tsIdx < 0 || origIdx < 0 {
		return nil
	}
	snaps := make([]Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= tsIdx || len(row) <= origIdx {
			continue
		}
		ts, orig := row[tsIdx], row[origIdx]
		if len(ts) < 8 || orig == "" {
			continue
		}
		snaps = append(snaps, Snapshot{Timestamp: ts, Original: orig})
	}
	return snaps
}

// Discover enumerates a profile's URL variants against the index and returns
// the deduplicated union of profile-page captures, sorted ascending by
// capture time. Individual variant failures are tolerated; only a fully
// empty sweep yields an empty result. Unless the profile exhausts variants,
// the sweep stops at the first spelling with captures.
func (c *Client) Discover(ctx context.Context, p *Profile, handle string, r DateRange) ([]Snapshot, error) {
	var all []Snapshot
	for _, v := range p.URLVariants(handle) {
		snaps, err := c.Query(ctx, v, r, p.PrefixExclude)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, s := range snaps {
			// Prefix sweeps return every path under the spelling;
			// keep only captures of the profile page itself.
			if v.MatchPrefix && !p.IsProfileURL(s.Original, handle) {
				continue
			}
			all = append(all, s)
		}
		if !p.ExhaustVariants && len(all) > 0 {
			break
		}
	}
	return Deduplicate(all), nil
}
