package wayback

import "regexp"

// MetricPattern binds a metric name to the regex that reads it. Group 1
// captures the raw number; group 2, when present, captures a K/M suffix.
// Values outside Bound are discarded as implausible.
type MetricPattern struct {
	Name    string
	Pattern *regexp.Regexp
	Bound   Bound
}

// match scans text for the first occurrence that parses and passes the
// plausibility bound, returning the value and the match span. Iteration
// follows document order so repeated runs are deterministic.
func (p MetricPattern) match(text string) (val int64, start, end int, ok bool) {
	for _, m := range p.Pattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[2]:m[3]]
		suffix := ""
		if len(m) >= 6 && m[4] >= 0 {
			suffix = text[m[4]:m[5]]
		}
		v, parsed := parseCount(raw, suffix)
		if !parsed || !p.Bound.ok(v) {
			continue
		}
		return v, m[0], m[1], true
	}
	return 0, 0, 0, false
}

// EmbeddedJSONStrategy reads the machine-authored data blobs platforms
// historically embedded in profile pages (for example nested count objects in
// a sharedData script). Machine-authored fields are unambiguous, so this is
// the most trusted layer.
type EmbeddedJSONStrategy struct {
	StrategyName string
	Patterns     []MetricPattern
	Confidence   float64
	MinMetrics   int
}

func (s *EmbeddedJSONStrategy) Name() string { return s.StrategyName }

func (s *EmbeddedJSONStrategy) Extract(d *Document) (Extraction, bool) {
	found := make(Extraction)
	lo, hi := -1, -1
	for _, p := range s.Patterns {
		if _, dup := found[p.Name]; dup {
			continue
		}
		v, start, end, ok := p.match(d.HTML)
		if !ok {
			continue
		}
		found[p.Name] = Metric{Value: int64Ptr(v)}
		if lo == -1 || start < lo {
			lo = start
		}
		if end > hi {
			hi = end
		}
	}
	if len(found) < s.MinMetrics || len(found) == 0 {
		return nil, false
	}
	// Evidence is the matched embedded-data fragment spanning every hit.
	evidence := truncateEvidence(d.HTML[lo:hi])
	for name, m := range found {
		m.Confidence = s.Confidence
		m.Evidence = strPtr(evidence)
		found[name] = m
	}
	return found, true
}

// MetaDescriptionStrategy reads counts out of description/og:description meta
// tags. Platforms wrote these for link previews, so a recognizable
// "<number> <metric>" phrase there is nearly as trustworthy as embedded data.
type MetaDescriptionStrategy struct {
	StrategyName string
	Patterns     []MetricPattern
	Confidence   float64
	// MinMetrics guards multi-metric platforms: a preview line quoting a
	// single stray number is not accepted, matching counts must co-occur.
	MinMetrics int
}

func (s *MetaDescriptionStrategy) Name() string { return s.StrategyName }

func (s *MetaDescriptionStrategy) Extract(d *Document) (Extraction, bool) {
	for _, content := range d.MetaDescriptions() {
		found := make(Extraction)
		for _, p := range s.Patterns {
			if _, dup := found[p.Name]; dup {
				continue
			}
			v, _, _, ok := p.match(content)
			if !ok {
				continue
			}
			found[p.Name] = Metric{Value: int64Ptr(v)}
		}
		if len(found) < s.MinMetrics || len(found) == 0 {
			continue
		}
		evidence := truncateEvidence(content)
		for name, m := range found {
			m.Confidence = s.Confidence
			m.Evidence = strPtr(evidence)
			found[name] = m
		}
		return found, true
	}
	return nil, false
}

// ContextWindowStrategy scans visible markup. A window is anchored at each
// metric match in turn; all metric patterns are re-read inside that window and
// the first window holding at least MinMetrics distinct counts wins. Tight
// windows give the proximity layer; wide windows with MinMetrics >= 2 give
// the loose last-resort scan, where a lone out-of-context number is never
// accepted for multi-metric platforms.
type ContextWindowStrategy struct {
	StrategyName string
	Patterns     []MetricPattern
	Confidence   float64
	MinMetrics   int
	Before       int
	After        int
}

func (s *ContextWindowStrategy) Name() string { return s.StrategyName }

func (s *ContextWindowStrategy) Extract(d *Document) (Extraction, bool) {
	html := d.HTML
	for _, anchor := range s.Patterns {
		_, start, end, ok := anchor.match(html)
		if !ok {
			continue
		}
		lo := start - s.Before
		if lo < 0 {
			lo = 0
		}
		hi := end + s.After
		if hi > len(html) {
			hi = len(html)
		}
		window := html[lo:hi]

		found := make(Extraction)
		for _, p := range s.Patterns {
			if _, dup := found[p.Name]; dup {
				continue
			}
			v, _, _, ok := p.match(window)
			if !ok {
				continue
			}
			found[p.Name] = Metric{Value: int64Ptr(v)}
		}
		if len(found) < s.MinMetrics || len(found) == 0 {
			continue
		}
		evidence := truncateEvidence(window)
		for name, m := range found {
			m.Confidence = s.Confidence
			m.Evidence = strPtr(evidence)
			found[name] = m
		}
		return found, true
	}
	return nil, false
}
