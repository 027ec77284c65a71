package signals

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const bonbastURL = "https://bonbast.com/"

// bonbastUSDNear matches a number within close range after a USD mention, the
// markup-free fallback when the page structure shifts.
var bonbastUSDNear = regexp.MustCompile(`(?i)(?:USD|US Dollar)[^0-9]{0,80}?([0-9][0-9,]{2,})`)

// FetchBonbastUSD downloads the Bonbast front page and reads the current
// open-market USD sell rate in Toman.
func FetchBonbastUSD(ctx context.Context, client *http.Client) (float64, error) {
	body, err := get(ctx, client, bonbastURL)
	if err != nil {
		return 0, fmt.Errorf("bonbast: %w", err)
	}
	rate, err := ParseBonbastUSD(body)
	if err != nil {
		return 0, fmt.Errorf("bonbast: %w", err)
	}
	return rate, nil
}

// ParseBonbastUSD reads the USD sell rate out of Bonbast HTML. The page
// layout has changed several times, so three strategies run in order: the
// usd1 cell id, a table row labelled USD, then a loose proximity scan.
func ParseBonbastUSD(html string) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if rate, ok := bonbastByCellID(doc); ok {
			return rate, nil
		}
		if rate, ok := bonbastByRowLabel(doc); ok {
			return rate, nil
		}
	}
	if m := bonbastUSDNear.FindStringSubmatch(html); m != nil {
		if rate, ok := parseRate(m[1]); ok {
			return rate, nil
		}
	}
	return 0, fmt.Errorf("no usd rate found")
}

func bonbastByCellID(doc *goquery.Document) (float64, bool) {
	text := strings.TrimSpace(doc.Find("#usd1").First().Text())
	if text == "" {
		return 0, false
	}
	return parseRate(text)
}

func bonbastByRowLabel(doc *goquery.Document) (rate float64, found bool) {
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := strings.ToLower(row.Find("td,th").First().Text())
		if !strings.Contains(label, "usd") && !strings.Contains(label, "us dollar") {
			return true
		}
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			if found {
				return
			}
			if v, ok := parseRate(strings.TrimSpace(cell.Text())); ok {
				rate, found = v, true
			}
		})
		return !found
	})
	return rate, found
}

// parseRate accepts a plausible Toman quote: digits with optional thousands
// separators, at least three digits so currency codes and row indexes are
// never mistaken for rates.
func parseRate(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if len(s) < 3 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
