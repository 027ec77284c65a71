package wayback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, slept *[]time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithCDXBase(srv.URL),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithSleep(func(d time.Duration) {
			if slept != nil {
				*slept = append(*slept, d)
			}
		}),
	)
}

func writeCDX(t *testing.T, w http.ResponseWriter, rows [][]string) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(rows))
}

func TestClient_Query_Params(t *testing.T) {
	var got map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeCDX(t, w, [][]string{{"timestamp", "original", "statuscode", "mimetype"}})
	}, nil)

	_, err := c.Query(context.Background(),
		Variant{URL: "twitter.com/jack", MatchPrefix: true},
		DateRange{FromYear: 2010, ToYear: 2015},
		[]string{".*/status/"})
	require.NoError(t, err)

	assert.Equal(t, []string{"twitter.com/jack"}, got["url"])
	assert.Equal(t, []string{"json"}, got["output"])
	assert.Equal(t, []string{"timestamp,original,statuscode,mimetype"}, got["fl"])
	assert.Equal(t, []string{"timestamp:8"}, got["collapse"])
	assert.Equal(t, []string{"prefix"}, got["matchType"])
	assert.Equal(t, []string{"2010"}, got["from"])
	assert.Equal(t, []string{"2015"}, got["to"])
	assert.Contains(t, got["filter"], "statuscode:200")
	assert.Contains(t, got["filter"], "mimetype:text/html")
	assert.Contains(t, got["filter"], "!original:.*/status/")
}

func TestClient_Query_ExactDatesTakePrecedence(t *testing.T) {
	var got map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeCDX(t, w, nil)
	}, nil)

	_, err := c.Query(context.Background(), Variant{URL: "twitter.com/jack"},
		DateRange{FromYear: 2010, ToYear: 2015, FromDate: "20120301", ToDate: "20140901"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"20120301"}, got["from"])
	assert.Equal(t, []string{"20140901"}, got["to"])
	assert.Empty(t, got["matchType"])
}

func TestClient_Query_ParsesRowsByHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Columns deliberately reordered relative to the fl request.
		writeCDX(t, w, [][]string{
			{"original", "timestamp", "statuscode", "mimetype"},
			{"http://twitter.com:80/jack", "20100501120000", "200", "text/html"},
			{"https://twitter.com/jack", "20150501120000", "200", "text/html"},
		})
	}, nil)

	snaps, err := c.Query(context.Background(), Variant{URL: "twitter.com/jack"}, DateRange{}, nil)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "20100501120000", snaps[0].Timestamp)
	assert.Equal(t, "http://twitter.com:80/jack", snaps[0].Original)
}

func TestClient_Query_EmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}, nil)

	snaps, err := c.Query(context.Background(), Variant{URL: "twitter.com/nobody"}, DateRange{}, nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestClient_Query_RateLimitedRetriesOnce(t *testing.T) {
	var slept []time.Duration
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCDX(t, w, [][]string{
			{"timestamp", "original", "statuscode", "mimetype"},
			{"20150501120000", "https://twitter.com/jack", "200", "text/html"},
		})
	}, &slept)

	snaps, err := c.Query(context.Background(), Variant{URL: "twitter.com/jack"}, DateRange{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{cdxRetryBackoff}, slept)
	assert.Len(t, snaps, 1)
}

func TestClient_Query_PersistentRateLimitFails(t *testing.T) {
	var slept []time.Duration
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, &slept)

	_, err := c.Query(context.Background(), Variant{URL: "twitter.com/jack"}, DateRange{}, nil)
	assert.Error(t, err)
	assert.Len(t, slept, 1)
}

func TestClient_Discover_StopsAtFirstProductiveVariant(t *testing.T) {
	requested := []string{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		u := r.URL.Query().Get("url")
		requested = append(requested, u)
		if u == "https://www.instagram.com/nasa/" {
			writeCDX(t, w, nil)
			return
		}
		writeCDX(t, w, [][]string{
			{"timestamp", "original", "statuscode", "mimetype"},
			{"20160301101500", "https://instagram.com/nasa/", "200", "text/html"},
		})
	}, nil)

	snaps, err := c.Discover(context.Background(), Instagram, "nasa", DateRange{})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	// First spelling was empty, second answered, the rest were never queried.
	assert.Len(t, requested, 2)
}

func TestClient_Discover_ExhaustsAndUnionsVariants(t *testing.T) {
	byURL := map[string][][]string{
		"twitter.com:80/jack": {
			{"timestamp", "original", "statuscode", "mimetype"},
			{"20100501120000", "http://twitter.com:80/jack", "200", "text/html"},
		},
		"https://twitter.com/jack": {
			{"timestamp", "original", "statuscode", "mimetype"},
			{"20150501120000", "https://twitter.com/jack", "200", "text/html"},
			// Same capture moment as the :80 variant, preferred spelling.
			{"20100501120000", "https://twitter.com/jack", "200", "text/html"},
		},
	}
	requested := map[string]bool{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		u := r.URL.Query().Get("url")
		requested[u] = true
		writeCDX(t, w, byURL[u])
	}, nil)

	snaps, err := c.Discover(context.Background(), Twitter, "jack", DateRange{})
	require.NoError(t, err)

	// Every spelling was swept even though the first already had captures.
	assert.Len(t, requested, len(Twitter.URLVariants("jack")))

	require.Len(t, snaps, 2)
	assert.Equal(t, "20100501120000", snaps[0].Timestamp)
	assert.Equal(t, "https://twitter.com/jack", snaps[0].Original)
	assert.Equal(t, "20150501120000", snaps[1].Timestamp)
}

func TestClient_Discover_FiltersSubPagesOnPrefixVariants(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("matchType") != "prefix" {
			writeCDX(t, w, nil)
			return
		}
		writeCDX(t, w, [][]string{
			{"timestamp", "original", "statuscode", "mimetype"},
			{"20140101000000", "http://twitter.com/jack", "200", "text/html"},
			{"20140102000000", "http://twitter.com/jack/status/20", "200", "text/html"},
			{"20140103000000", "http://twitter.com/jack/followers", "200", "text/html"},
		})
	}, nil)

	snaps, err := c.Discover(context.Background(), Twitter, "jack", DateRange{})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "http://twitter.com/jack", snaps[0].Original)
}

func TestClient_Discover_ToleratesVariantFailures(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeCDX(t, w, [][]string{
			{"timestamp", "original", "statuscode", "mimetype"},
			{"20160301101500", "https://instagram.com/nasa/", "200", "text/html"},
		})
	}, nil)

	snaps, err := c.Discover(context.Background(), Instagram, "nasa", DateRange{})
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestClient_Discover_EmptyWhenAllVariantsFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	snaps, err := c.Discover(context.Background(), Instagram, "nasa", DateRange{})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestClient_Discover_CanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCDX(t, w, nil)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Discover(ctx, Instagram, "nasa", DateRange{})
	assert.Error(t, err)
}
