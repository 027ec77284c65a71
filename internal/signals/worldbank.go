package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const worldBankBase = "https://api.worldbank.org/v2"

// PPP conversion factor, local currency units per international dollar.
const indicatorPPP = "PA.NUS.PPP"

// Country codes the PPP endpoint accepts, keyed by the API path spelling.
var pppCountries = map[string]string{
	"iran":   "IRN",
	"irn":    "IRN",
	"turkey": "TUR",
	"tur":    "TUR",
}

// PPPCountry resolves an API path spelling to a World Bank ISO3 code.
func PPPCountry(name string) (string, bool) {
	code, ok := pppCountries[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// FetchPPP downloads the annual PPP conversion factor series for a country.
// The v2 response is a two-element array: request metadata, then entries.
func FetchPPP(ctx context.Context, client *http.Client, iso3 string) ([]Observation, error) {
	url := fmt.Sprintf("%s/country/%s/indicator/%s?format=json&per_page=100", worldBankBase, iso3, indicatorPPP)
	body, err := get(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("worldbank %s: %w", iso3, err)
	}

	var envelope []json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, fmt.Errorf("worldbank %s: decode: %w", iso3, err)
	}
	if len(envelope) < 2 {
		return nil, fmt.Errorf("worldbank %s: unexpected envelope", iso3)
	}

	var entries []struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(envelope[1], &entries); err != nil {
		return nil, fmt.Errorf("worldbank %s: decode entries: %w", iso3, err)
	}

	var obs []Observation
	for _, e := range entries {
		if e.Value == nil || len(e.Date) != 4 {
			continue
		}
		obs = append(obs, Observation{Date: e.Date, Value: *e.Value})
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date < obs[j].Date })
	if len(obs) == 0 {
		return nil, fmt.Errorf("worldbank %s: no observations", iso3)
	}
	return obs, nil
}
