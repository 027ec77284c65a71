package wayback

import (
	"fmt"
	"regexp"
	"strings"
)

var twFollowersBound = Bound{Lo: 0, Hi: 10_000_000_000}

// Era-specific embedded data: the profile JSON twitter shipped with
// server-rendered pages carries a followers_count field.
var twJSONFollowers = regexp.MustCompile(`"followers_count"\s*:\s*(\d+)`)

var twTextFollowers = regexp.MustCompile(`(?i)([0-9][0-9,.]*)\s*([KM])?\s*(?:</[a-z]+>\s*){0,2}followers?`)

func twFollowerPatterns() []MetricPattern {
	return []MetricPattern{
		{Name: MetricFollowers, Pattern: twTextFollowers, Bound: twFollowersBound},
	}
}

// Twitter reads a single followers metric. The profile lived under both
// twitter.com and x.com with wildly varying capture spellings, so discovery
// queries every variant and unions the results.
var Twitter = &Profile{
	Name:            PlatformTwitter,
	Metrics:         []string{MetricFollowers},
	ExhaustVariants: true,
	PrefixExclude:   []string{".*/status/", ".*/statuses/"},
	Canonicalize: func(input string) (string, string, error) {
		s := strings.TrimSpace(input)
		if s == "" {
			return "", "", &ErrInvalidHandle{Platform: PlatformTwitter, Input: input}
		}
		lower := strings.ToLower(s)
		if strings.Contains(lower, "twitter.com") || strings.Contains(lower, "x.com") {
			path, _ := pathAfterDomain(s, "twitter.com", "x.com")
			segs := pathSegments(path)
			if len(segs) == 0 {
				return "", "", &ErrInvalidHandle{Platform: PlatformTwitter, Input: input}
			}
			h := handleFromInput(segs[0])
			if h == "" {
				return "", "", &ErrInvalidHandle{Platform: PlatformTwitter, Input: input}
			}
			return h, fmt.Sprintf("https://twitter.com/%s", h), nil
		}
		h := handleFromInput(s)
		if h == "" {
			return "", "", &ErrInvalidHandle{Platform: PlatformTwitter, Input: input}
		}
		return h, fmt.Sprintf("https://twitter.com/%s", h), nil
	},
	URLVariants: func(handle string) []Variant {
		// Wayback coverage differs between the two domains and across
		// capture eras; pre-2014 captures often carry :80.
		return []Variant{
			{URL: fmt.Sprintf("twitter.com:80/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("twitter.com/%s/", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("twitter.com/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("https://twitter.com/%s", handle)},
			{URL: fmt.Sprintf("www.twitter.com/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("http://twitter.com:80/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("x.com:80/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("x.com/%s/", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("x.com/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("https://x.com/%s", handle)},
			{URL: fmt.Sprintf("www.x.com/%s", handle), MatchPrefix: true},
		}
	},
	IsProfileURL: func(original, handle string) bool {
		path, ok := pathAfterDomain(original, "twitter.com", "x.com")
		if !ok {
			return false
		}
		segs := pathSegments(path)
		return len(segs) == 1 && strings.EqualFold(segs[0], handle)
	},
	Strategies: []Strategy{
		&EmbeddedJSONStrategy{
			StrategyName: "profile-json",
			Confidence:   0.75,
			MinMetrics:   1,
			Patterns: []MetricPattern{
				{Name: MetricFollowers, Pattern: twJSONFollowers, Bound: twFollowersBound},
			},
		},
		&MetaDescriptionStrategy{
			StrategyName: "meta-description",
			Confidence:   0.75,
			MinMetrics:   1,
			Patterns:     twFollowerPatterns(),
		},
		&ContextWindowStrategy{
			StrategyName: "near-text",
			Confidence:   0.5,
			MinMetrics:   1,
			Before:       20,
			After:        30,
			Patterns:     twFollowerPatterns(),
		},
	},
}
