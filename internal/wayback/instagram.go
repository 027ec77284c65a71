package wayback

import (
	"fmt"
	"regexp"
	"strings"
)

// Instagram plausibility bounds. Follower counts on Instagram have never
// approached a billion; following/post counts are capped far lower.
var (
	igFollowersBound = Bound{Lo: 0, Hi: 1_000_000_000}
	igFollowingBound = Bound{Lo: -1, Hi: 100_000_000}
	igPostsBound     = Bound{Lo: -1, Hi: 100_000_000}
)

// Embedded sharedData blobs, roughly 2012-2019 era profile pages.
var (
	igJSONFollowers = regexp.MustCompile(`"followed_by"\s*:\s*\{\s*"count"\s*:\s*(\d+)`)
	igJSONFollowing = regexp.MustCompile(`"follows"\s*:\s*\{\s*"count"\s*:\s*(\d+)`)
	igJSONPosts     = regexp.MustCompile(`"media"\s*:\s*\{\s*"count"\s*:\s*(\d+)`)
)

// Visible-markup patterns. Old eras render counts inside list/span markup, so
// a closing tag may sit between the number and the noun.
var (
	igTextFollowers = regexp.MustCompile(`(?i)([0-9][0-9,.٬٫]*)\s*([KM])?\s*(?:</[a-z]+>\s*){0,2}followers?`)
	igTextFollowing = regexp.MustCompile(`(?i)([0-9][0-9,.٬٫]*)\s*([KM])?\s*(?:</[a-z]+>\s*){0,2}following`)
	igTextPosts     = regexp.MustCompile(`(?i)([0-9][0-9,.٬٫]*)\s*([KM])?\s*(?:</[a-z]+>\s*){0,2}posts?`)
)

func igTextPatterns() []MetricPattern {
	return []MetricPattern{
		{Name: MetricFollowers, Pattern: igTextFollowers, Bound: igFollowersBound},
		{Name: MetricFollowing, Pattern: igTextFollowing, Bound: igFollowingBound},
		{Name: MetricPosts, Pattern: igTextPosts, Bound: igPostsBound},
	}
}

// Instagram reads followers/following/posts. All layers below the embedded
// blob require at least two counts in the same evidence string: a lone number
// near the word "followers" on an arbitrary-era page is too weak a signal.
var Instagram = &Profile{
	Name:    PlatformInstagram,
	Metrics: []string{MetricFollowers, MetricFollowing, MetricPosts},
	Canonicalize: func(input string) (string, string, error) {
		s := strings.TrimSpace(input)
		if strings.Contains(strings.ToLower(s), "instagram.com") {
			path, _ := pathAfterDomain(s, "instagram.com")
			segs := pathSegments(path)
			if len(segs) == 0 {
				return "", "", &ErrInvalidHandle{Platform: PlatformInstagram, Input: input}
			}
			s = segs[0]
		}
		h := handleFromInput(s)
		if h == "" {
			return "", "", &ErrInvalidHandle{Platform: PlatformInstagram, Input: input}
		}
		return h, fmt.Sprintf("https://www.instagram.com/%s/", h), nil
	},
	URLVariants: func(handle string) []Variant {
		return []Variant{
			{URL: fmt.Sprintf("https://www.instagram.com/%s/", handle)},
			{URL: fmt.Sprintf("https://instagram.com/%s/", handle)},
			{URL: fmt.Sprintf("https://www.instagram.com/%s", handle)},
			{URL: fmt.Sprintf("http://instagram.com/%s", handle)},
			{URL: fmt.Sprintf("instagram.com:80/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("www.instagram.com/%s", handle), MatchPrefix: true},
		}
	},
	IsProfileURL: func(original, handle string) bool {
		path, ok := pathAfterDomain(original, "instagram.com")
		if !ok {
			return false
		}
		segs := pathSegments(path)
		return len(segs) == 1 && strings.EqualFold(segs[0], handle)
	},
	Strategies: []Strategy{
		&EmbeddedJSONStrategy{
			StrategyName: "shared-data",
			Confidence:   0.75,
			MinMetrics:   1,
			Patterns: []MetricPattern{
				{Name: MetricFollowers, Pattern: igJSONFollowers, Bound: igFollowersBound},
				{Name: MetricFollowing, Pattern: igJSONFollowing, Bound: igFollowingBound},
				{Name: MetricPosts, Pattern: igJSONPosts, Bound: igPostsBound},
			},
		},
		&MetaDescriptionStrategy{
			StrategyName: "meta-description",
			Confidence:   0.75,
			MinMetrics:   2,
			Patterns:     igTextPatterns(),
		},
		&ContextWindowStrategy{
			StrategyName: "near-text",
			Confidence:   0.55,
			MinMetrics:   2,
			Before:       60,
			After:        80,
			Patterns:     igTextPatterns(),
		},
	},
}
