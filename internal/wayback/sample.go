package wayback

import "sort"

// MaxSampleSize is the hard ceiling on snapshots per run. Every capture costs
// a throttled archive fetch, so samples above this are clamped rather than
// honored.
const MaxSampleSize = 100

// SampleStratified selects at most k snapshots with even temporal coverage,
// guaranteeing representation across as many distinct capture years as the
// data supports. Long-lived profiles have dense recent years and sparse early
// ones; a plain stride over the full list starves the early era, which hurts
// a time series more than a slightly uneven spread. This is the canonical
// sampler for job runs.
//
// Slots are allocated per year (k / years each, remainder to the earliest
// years); within a year an evenly strided subsequence is taken. Years with
// fewer captures than their quota contribute everything they have, so the
// result may be shorter than k.
func SampleStratified(snaps []Snapshot, k int) []Snapshot {
	if len(snaps) == 0 || k <= 0 {
		return nil
	}
	if k > MaxSampleSize {
		k = MaxSampleSize
	}
	sorted := make([]Snapshot, len(snaps))
	copy(sorted, snaps)
	SortByTimestamp(sorted)
	if len(sorted) <= k {
		return sorted
	}

	byYear := make(map[int][]Snapshot)
	var years []int
	for _, s := range sorted {
		y := s.Year()
		if _, ok := byYear[y]; !ok {
			years = append(years, y)
		}
		byYear[y] = append(byYear[y], s)
	}
	sort.Ints(years)

	base := k / len(years)
	rem := k % len(years)

	var picked []Snapshot
	for i, y := range years {
		quota := base
		if i < rem {
			quota++
		}
		picked = append(picked, strideOver(byYear[y], quota)...)
	}
	SortByTimestamp(picked)
	return picked
}

// SampleStride selects at most k snapshots by a uniform stride over the full
// chronologically sorted list. It is a documented simplification of
// SampleStratified used by the ad-hoc connector path, where date ranges are
// typically short enough that per-year stratification buys nothing.
func SampleStride(snaps []Snapshot, k int) []Snapshot {
	if len(snaps) == 0 || k <= 0 {
		return nil
	}
	if k > MaxSampleSize {
		k = MaxSampleSize
	}
	sorted := make([]Snapshot, len(snaps))
	copy(sorted, snaps)
	SortByTimestamp(sorted)
	if len(sorted) <= k {
		return sorted
	}
	return strideOver(sorted, k)
}

// strideOver takes an evenly strided subsequence of length <= k from an
// already sorted slice.
func strideOver(sorted []Snapshot, k int) []Snapshot {
	if k <= 0 {
		return nil
	}
	if len(sorted) <= k {
		out := make([]Snapshot, len(sorted))
		copy(out, sorted)
		return out
	}
	step := len(sorted) / k
	if step < 1 {
		step = 1
	}
	out := make([]Snapshot, 0, k)
	for i := 0; i < k; i++ {
		idx := i * step
		if idx >= len(sorted) {
			break
		}
		out = append(out, sorted[idx])
	}
	return out
}
