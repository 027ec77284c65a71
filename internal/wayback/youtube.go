package wayback

import (
	"fmt"
	"regexp"
	"strings"
)

var ytSubscribersBound = Bound{Lo: 0, Hi: 10_000_000_000}

// Embedded player/page data across eras: polymer pages ship a
// subscriberCountText object, older pages a bare subscriber_count field.
var (
	ytJSONSubscriberText  = regexp.MustCompile(`"subscriberCountText"[^}]{0,120}?"(?:simpleText|text)"\s*:\s*"([0-9][0-9,.]*)\s*([KM])?\s*subscribers?"`)
	ytJSONSubscriberCount = regexp.MustCompile(`"subscriber_count"\s*:\s*"?(\d+)`)
)

var (
	ytTextSubscribers = regexp.MustCompile(`(?i)([0-9][0-9,.]*)\s*([KM])?\s*(?:</[a-z]+>\s*){0,2}subscribers?`)
	// Reversed form seen on mid-era channel pages: the noun first, then the
	// count within close range.
	ytTextSubscribersRev = regexp.MustCompile(`(?i)subscribers?\s*[^0-9]{0,50}?([0-9][0-9,.]*)\s*([KM])?`)
)

// YouTube reads a single subscribers metric. Channel URLs migrated from
// /user/ to /c/ to /@handle, so the variant list enumerates all three path
// schemes; discovery stops at the first spelling with captures since the
// schemes rarely coexist for one channel.
var YouTube = &Profile{
	Name:    PlatformYouTube,
	Metrics: []string{MetricSubscribers},
	Canonicalize: func(input string) (string, string, error) {
		s := strings.TrimSpace(input)
		if s == "" {
			return "", "", &ErrInvalidHandle{Platform: PlatformYouTube, Input: input}
		}
		lower := strings.ToLower(s)
		if strings.Contains(lower, "youtube.com") {
			path, _ := pathAfterDomain(s, "youtube.com")
			segs := pathSegments(path)
			switch {
			case len(segs) == 2 && (strings.EqualFold(segs[0], "user") || strings.EqualFold(segs[0], "c") || strings.EqualFold(segs[0], "channel")):
				return segs[1], fmt.Sprintf("https://www.youtube.com/%s/%s", strings.ToLower(segs[0]), segs[1]), nil
			case len(segs) == 1 && strings.HasPrefix(segs[0], "@"):
				h := strings.TrimPrefix(segs[0], "@")
				return h, fmt.Sprintf("https://www.youtube.com/@%s", h), nil
			case len(segs) == 1:
				return segs[0], fmt.Sprintf("https://www.youtube.com/@%s", segs[0]), nil
			}
			return "", "", &ErrInvalidHandle{Platform: PlatformYouTube, Input: input}
		}
		h := handleFromInput(s)
		if h == "" {
			return "", "", &ErrInvalidHandle{Platform: PlatformYouTube, Input: input}
		}
		return h, fmt.Sprintf("https://www.youtube.com/@%s", h), nil
	},
	URLVariants: func(handle string) []Variant {
		return []Variant{
			{URL: fmt.Sprintf("https://www.youtube.com/@%s", handle)},
			{URL: fmt.Sprintf("youtube.com:80/user/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("youtube.com:80/c/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("youtube.com:80/@%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("youtube.com/user/%s/", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("youtube.com/c/%s/", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("youtube.com/@%s/", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("www.youtube.com/user/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("www.youtube.com/c/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("https://www.youtube.com/user/%s", handle)},
			{URL: fmt.Sprintf("http://youtube.com:80/user/%s", handle), MatchPrefix: true},
			{URL: fmt.Sprintf("http://www.youtube.com:80/user/%s", handle), MatchPrefix: true},
		}
	},
	IsProfileURL: func(original, handle string) bool {
		path, ok := pathAfterDomain(original, "youtube.com")
		if !ok {
			return false
		}
		segs := pathSegments(path)
		switch len(segs) {
		case 1:
			return strings.EqualFold(strings.TrimPrefix(segs[0], "@"), handle)
		case 2:
			first := strings.ToLower(segs[0])
			if first != "user" && first != "c" && first != "channel" {
				return false
			}
			return strings.EqualFold(segs[1], handle)
		}
		return false
	},
	Strategies: []Strategy{
		&EmbeddedJSONStrategy{
			StrategyName: "player-json",
			Confidence:   0.75,
			MinMetrics:   1,
			Patterns: []MetricPattern{
				{Name: MetricSubscribers, Pattern: ytJSONSubscriberText, Bound: ytSubscribersBound},
				{Name: MetricSubscribers, Pattern: ytJSONSubscriberCount, Bound: ytSubscribersBound},
			},
		},
		&MetaDescriptionStrategy{
			StrategyName: "meta-description",
			Confidence:   0.75,
			MinMetrics:   1,
			Patterns: []MetricPattern{
				{Name: MetricSubscribers, Pattern: ytTextSubscribers, Bound: ytSubscribersBound},
			},
		},
		&ContextWindowStrategy{
			StrategyName: "near-text",
			Confidence:   0.5,
			MinMetrics:   1,
			Before:       20,
			After:        30,
			Patterns: []MetricPattern{
				{Name: MetricSubscribers, Pattern: ytTextSubscribers, Bound: ytSubscribersBound},
			},
		},
		&ContextWindowStrategy{
			StrategyName: "near-text-reversed",
			Confidence:   0.5,
			MinMetrics:   1,
			Before:       10,
			After:        20,
			Patterns: []MetricPattern{
				{Name: MetricSubscribers, Pattern: ytTextSubscribersRev, Bound: ytSubscribersBound},
			},
		},
	},
}
