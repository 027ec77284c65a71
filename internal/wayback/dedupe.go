package wayback

// Deduplicate collapses snapshots the index reported more than once for the
// same capture moment under different URL spellings. Two snapshots collide
// when they share (timestamp, normalized URL); the spelling with the higher
// preference score survives, so later archived-URL construction uses the
// canonical modern form. Output is sorted ascending by timestamp.
func Deduplicate(snaps []Snapshot) []Snapshot {
	type key struct {
		ts   string
		norm string
	}
	seen := make(map[key]Snapshot, len(snaps))
	for _, s := range snaps {
		k := key{ts: s.Timestamp, norm: NormalizeURL(s.Original)}
		prev, ok := seen[k]
		if !ok || PreferenceScore(s.Original) > PreferenceScore(prev.Original) {
			seen[k] = s
		}
	}
	out := make([]Snapshot, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	SortByTimestamp(out)
	return out
}
