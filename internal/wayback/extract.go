package wayback

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxHTMLBytes is the ceiling above which a body is treated as a non-profile
// page and rejected outright.
const MaxHTMLBytes = 2_000_000

// EvidenceMaxLen bounds evidence excerpts (in runes); longer excerpts are cut
// and marked with an ellipsis.
const EvidenceMaxLen = 140

// Metric names shared across platforms.
const (
	MetricFollowers   = "followers"
	MetricFollowing   = "following"
	MetricPosts       = "posts"
	MetricSubscribers = "subscribers"
)

// Metric is the outcome of reading one named count from a snapshot's HTML.
// Invariant: Value == nil ⟺ Confidence == 0 ⟺ Evidence == nil. A value is
// only ever a literal number found in the source; nothing is interpolated.
type Metric struct {
	Value      *int64
	Confidence float64
	Evidence   *string
}

// Extraction maps metric names to their extraction outcomes.
type Extraction map[string]Metric

// HasValues reports whether at least one metric carries a value.
func (e Extraction) HasValues() bool {
	for _, m := range e {
		if m.Value != nil {
			return true
		}
	}
	return false
}

// BestConfidence returns the highest confidence among metrics with values.
func (e Extraction) BestConfidence() float64 {
	best := 0.0
	for _, m := range e {
		if m.Value != nil && m.Confidence > best {
			best = m.Confidence
		}
	}
	return best
}

// FirstEvidence returns any evidence string, or nil when no metric has one.
func (e Extraction) FirstEvidence() *string {
	for _, m := range e {
		if m.Evidence != nil {
			return m.Evidence
		}
	}
	return nil
}

// Bound is the plausibility window for a metric: a value passes iff
// Lo < v < Hi. Implausible numbers are discarded rather than reported,
// because a false positive is worse than a gap.
type Bound struct {
	Lo int64
	Hi int64
}

func (b Bound) ok(v int64) bool { return v > b.Lo && v < b.Hi }

// Document wraps one snapshot's HTML for the strategy cascade. The goquery
// parse is lazy; regex strategies never pay for it.
type Document struct {
	HTML string

	parsed *goquery.Document
	metas  []string
	metaOK bool
}

// NewDocument prepares HTML for extraction.
func NewDocument(html string) *Document {
	return &Document{HTML: html}
}

// MetaDescriptions returns the content of description and og:description meta
// tags in document order. Parse failures yield an empty list.
func (d *Document) MetaDescriptions() []string {
	if d.metaOK {
		return d.metas
	}
	d.metaOK = true
	if d.parsed == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(d.HTML))
		if err != nil {
			return nil
		}
		d.parsed = doc
	}
	d.parsed.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		prop, _ := s.Attr("property")
		key := strings.ToLower(name + prop)
		if key != "description" && key != "og:description" {
			return
		}
		if content, ok := s.Attr("content"); ok && content != "" {
			d.metas = append(d.metas, content)
		}
	})
	return d.metas
}

// Strategy is one layer of the extraction cascade. Layers are ordered from
// highest to lowest trust; the first layer that yields a usable result wins
// and everything below it is skipped.
type Strategy interface {
	Name() string
	Extract(d *Document) (Extraction, bool)
}

// Extract runs the cascade over one snapshot's HTML. The returned Extraction
// always contains every metric name; metrics no strategy could read are left
// with a nil value and zero confidence. Oversized or empty bodies short-
// circuit to an all-empty result.
func Extract(html string, metrics []string, chain []Strategy) Extraction {
	out := make(Extraction, len(metrics))
	for _, name := range metrics {
		out[name] = Metric{}
	}
	if html == "" || len(html) > MaxHTMLBytes {
		return out
	}
	d := NewDocument(html)
	for _, s := range chain {
		res, ok := s.Extract(d)
		if !ok {
			continue
		}
		for name, m := range res {
			if _, known := out[name]; !known {
				continue
			}
			if m.Value == nil {
				continue
			}
			out[name] = m
		}
		return out
	}
	return out
}

var countCleaner = strings.NewReplacer(",", "", " ", "", "٬", "", "٫", ".")

// parseCount turns a raw matched number plus optional K/M suffix into an
// integer. Thousands separators and the Arabic digit/decimal marks seen in
// localized captures are stripped first.
func parseCount(raw, suffix string) (int64, bool) {
	s := countCleaner.Replace(strings.TrimSpace(raw))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(strings.TrimSpace(suffix)) {
	case "M":
		f *= 1_000_000
	case "K":
		f *= 1_000
	}
	return int64(f), true
}

// truncateEvidence bounds an excerpt to EvidenceMaxLen runes, marking cuts
// with an ellipsis. The uncut portion stays a literal substring of its source.
func truncateEvidence(s string) string {
	r := []rune(s)
	if len(r) <= EvidenceMaxLen {
		return s
	}
	return string(r[:EvidenceMaxLen]) + "..."
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(s string) *string { return &s }
