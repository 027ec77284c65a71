// Package wayback discovers archived profile snapshots through the Internet
// Archive's CDX index and extracts historical audience metrics from them.
package wayback

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ArchiveBase is the public Wayback Machine host.
const ArchiveBase = "https://web.archive.org"

// Snapshot is one archival capture candidate reported by the CDX index.
type Snapshot struct {
	// Timestamp is the 14-digit capture time (YYYYMMDDhhmmss). The format
	// sorts chronologically as a plain string.
	Timestamp string
	// Original is the URL exactly as it was captured, including historic
	// scheme, www and :80 quirks. It is never normalized.
	Original string
}

// ArchivedURL builds the replay URL for this capture. It is a pure function
// of (Timestamp, Original); the original URL is passed through untouched.
func (s Snapshot) ArchivedURL() string {
	return fmt.Sprintf("%s/web/%s/%s", ArchiveBase, s.Timestamp, s.Original)
}

// Year returns the capture year, or 0 if the timestamp is malformed.
func (s Snapshot) Year() int {
	if len(s.Timestamp) < 4 {
		return 0
	}
	var y int
	if _, err := fmt.Sscanf(s.Timestamp[:4], "%d", &y); err != nil {
		return 0
	}
	return y
}

// TimestampToISO converts a 14-digit archive timestamp to ISO-8601 UTC
// (YYYY-MM-DDThh:mm:ssZ). Returns "" for malformed input.
func TimestampToISO(ts string) string {
	t, err := time.Parse("20060102150405", ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

var port80 = regexp.MustCompile(`:80(/|$)`)

// NormalizeURL reduces a captured URL to its dedup form: scheme, an explicit
// :80 port, a www. prefix and any trailing slash are stripped, and the rest
// is lowercased.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range []string{"https://", "http://"} {
		if strings.HasPrefix(u, p) {
			u = u[len(p):]
			break
		}
	}
	u = port80.ReplaceAllString(u, "$1")
	u = strings.TrimPrefix(u, "www.")
	u = strings.TrimRight(u, "/")
	return u
}

// PreferenceScore ranks captured URL spellings for dedup tie-breaks. Higher
// wins: https beats http, and the www form beats the bare domain.
func PreferenceScore(raw string) int {
	score := 0
	if strings.HasPrefix(raw, "https://") {
		score += 2
	} else if strings.HasPrefix(raw, "http://") {
		score++
	}
	if strings.Contains(strings.ToLower(raw), "//www.") {
		score++
	}
	return score
}

// SortByTimestamp orders snapshots ascending by capture time, in place.
func SortByTimestamp(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Timestamp < snaps[j].Timestamp })
}
