package signals

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// FRED series identifiers.
const (
	SeriesBrent      = "DCOILBRENTEU"     // Brent crude, USD per barrel, daily
	SeriesIranRialFX = "XRNCUSIRA618NRUG" // official Rial per USD, annual
)

const (
	fredCSVBase = "https://fred.stlouisfed.org/graph/fredgraph.csv"
	fredTXTBase = "https://fred.stlouisfed.org/data"
)

// Observation is one dated value in a series.
type Observation struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// FetchFRED downloads a series from FRED's public CSV export, falling back to
// the legacy TXT rendering when the CSV endpoint misbehaves. Missing
// observations (".") are dropped, never interpolated.
func FetchFRED(ctx context.Context, client *http.Client, seriesID string) ([]Observation, error) {
	body, err := get(ctx, client, fmt.Sprintf("%s?id=%s", fredCSVBase, seriesID))
	if err == nil {
		obs, perr := parseFREDCSV(body)
		if perr == nil && len(obs) > 0 {
			return obs, nil
		}
	}

	body, err = get(ctx, client, fmt.Sprintf("%s/%s.txt", fredTXTBase, seriesID))
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", seriesID, err)
	}
	obs, err := parseFREDTXT(body)
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", seriesID, err)
	}
	return obs, nil
}

func get(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// parseFREDCSV reads the two-column DATE,VALUE export.
func parseFREDCSV(body string) ([]Observation, error) {
	var obs []Observation
	sc := bufio.NewScanner(strings.NewReader(body))
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			// Header row; also catches HTML error pages early.
			if !strings.Contains(strings.ToUpper(line), "DATE") {
				return nil, fmt.Errorf("unexpected csv header: %q", line)
			}
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		date, raw := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if raw == "" || raw == "." {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		obs = append(obs, Observation{Date: date, Value: v})
	}
	return obs, sc.Err()
}

// parseFREDTXT reads the legacy fixed-text rendering: a prose preamble, then
// "DATE VALUE" lines.
func parseFREDTXT(body string) ([]Observation, error) {
	var obs []Observation
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		date, raw := fields[0], fields[1]
		if len(date) != 10 || date[4] != '-' {
			continue
		}
		if raw == "." {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		obs = append(obs, Observation{Date: date, Value: v})
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations in txt body")
	}
	return obs, sc.Err()
}
