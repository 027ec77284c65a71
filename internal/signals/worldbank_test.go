package signals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPPPCountry(t *testing.T) {
	for _, name := range []string{"iran", "IRN", " Iran "} {
		code, ok := PPPCountry(name)
		require.True(t, ok, name)
		assert.Equal(t, "IRN", code)
	}
	code, ok := PPPCountry("turkey")
	require.True(t, ok)
	assert.Equal(t, "TUR", code)

	_, ok = PPPCountry("atlantis")
	assert.False(t, ok)
}

func TestFetchPPP_ParsesEnvelope(t *testing.T) {
	payload := `[
		{"page":1,"pages":1,"per_page":100,"total":3},
		[
			{"date":"2021","value":null},
			{"date":"2020","value":32577.3},
			{"date":"2019","value":28815.1}
		]
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "IRN")
		assert.Contains(t, r.URL.Path, indicatorPPP)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	// Point the request at the test server by rewriting through its client.
	client := srv.Client()
	client.Transport = rewriteHost(srv.URL)

	obs, err := FetchPPP(context.Background(), client, "IRN")
	require.NoError(t, err)
	require.Len(t, obs, 2)
	// Null years are dropped and output is ascending.
	assert.Equal(t, "2019", obs[0].Date)
	assert.InDelta(t, 28815.1, obs[0].Value, 1e-9)
	assert.Equal(t, "2020", obs[1].Date)
}

func TestFetchPPP_BadEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode([]any{map[string]any{"message": "invalid"}}))
	}))
	defer srv.Close()

	client := srv.Client()
	client.Transport = rewriteHost(srv.URL)

	_, err := FetchPPP(context.Background(), client, "IRN")
	assert.Error(t, err)
}

// rewriteHost redirects every outbound request to the test server while
// preserving path and query.
type rewriteHost string

func (h rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	target := strings.TrimPrefix(string(h), "http://")
	req.URL.Scheme = "http"
	req.URL.Host = target
	return http.DefaultTransport.RoundTrip(req)
}
