package wayback

import (
	"fmt"
	"regexp"
	"strings"
)

// Platform identifiers.
const (
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformYouTube   = "youtube"
)

// ErrInvalidHandle is returned when an input cannot be canonicalized into a
// profile identity for the platform.
type ErrInvalidHandle struct {
	Platform string
	Input    string
}

func (e *ErrInvalidHandle) Error() string {
	return fmt.Sprintf("%s: invalid handle or profile URL: %q", e.Platform, e.Input)
}

// Variant is one URL spelling to try against the CDX index. Prefix variants
// enumerate every captured path under the spelling and rely on the profile
// path check to reject sub-pages.
type Variant struct {
	URL         string
	MatchPrefix bool
}

// Profile parameterizes the shared discovery/extraction pipeline for one
// platform. Platform differences are data, not code forks: the URL spellings
// the archive knew the profile under, the path shape of a profile page, and
// the extraction strategy chain with its metric names and plausibility
// bounds.
type Profile struct {
	Name    string
	Metrics []string

	// Canonicalize turns user input (bare handle, @handle, or profile URL)
	// into the stable identity (handle, canonical URL) used for caching.
	Canonicalize func(input string) (handle, canonicalURL string, err error)

	// URLVariants lists the index query spellings in preference order.
	// Capture-time URL conventions changed across eras (http vs https, www
	// vs bare, :80 port annotations on pre-2014 captures, path scheme
	// migrations), so one spelling never covers a long-lived profile.
	URLVariants func(handle string) []Variant

	// IsProfileURL reports whether a captured URL resolves to exactly the
	// profile page, by parsing its path. Sub-pages such as /photos,
	// /status/… or /followers are rejected.
	IsProfileURL func(original, handle string) bool

	// Strategies is the extraction cascade, ordered from highest to lowest
	// trust.
	Strategies []Strategy

	// ExhaustVariants queries every variant and unions the results. When
	// false, discovery stops at the first variant that yields captures.
	ExhaustVariants bool

	// PrefixExclude lists CDX-side original-URL exclusion regexes applied
	// to prefix queries, trimming obvious sub-page noise before transfer.
	PrefixExclude []string
}

var profiles = map[string]*Profile{
	PlatformInstagram: Instagram,
	PlatformTwitter:   Twitter,
	PlatformYouTube:   YouTube,
}

// ProfileFor resolves a platform identifier.
func ProfileFor(platform string) (*Profile, bool) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(platform))]
	return p, ok
}

// Platforms lists the supported platform identifiers.
func Platforms() []string {
	return []string{PlatformInstagram, PlatformTwitter, PlatformYouTube}
}

var pathPort = regexp.MustCompile(`:\d+`)

// pathAfterDomain isolates the captured path following the first matching
// domain, with query, fragment and port annotations stripped.
func pathAfterDomain(original string, domains ...string) (string, bool) {
	s := original
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	lower := strings.ToLower(s)
	for _, d := range domains {
		idx := strings.Index(lower, d)
		if idx < 0 {
			continue
		}
		rest := s[idx+len(d):]
		rest = pathPort.ReplaceAllString(rest, "")
		return strings.Trim(rest, "/"), true
	}
	return "", false
}

// pathSegments splits a trimmed path into its non-empty segments.
func pathSegments(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// handleFromInput strips an @ prefix and anything after whitespace or a
// slash, yielding a bare handle.
func handleFromInput(s string) string {
	h := strings.TrimPrefix(strings.TrimSpace(s), "@")
	if i := strings.IndexAny(h, " \t"); i >= 0 {
		h = h[:i]
	}
	return strings.Trim(h, "/")
}
