package wayback

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yearSnaps(year, n int) []Snapshot {
	snaps := make([]Snapshot, 0, n)
	for i := 0; i < n; i++ {
		snaps = append(snaps, Snapshot{
			Timestamp: fmt.Sprintf("%d%02d01000000", year, i+1),
			Original:  "https://twitter.com/jack",
		})
	}
	return snaps
}

func TestSampleStratified_FewerThanQuotaReturnsAll(t *testing.T) {
	snaps := yearSnaps(2015, 3)
	out := SampleStratified(snaps, 10)
	assert.Len(t, out, 3)
}

func TestSampleStratified_CoversEveryYear(t *testing.T) {
	var snaps []Snapshot
	snaps = append(snaps, yearSnaps(2012, 2)...)
	snaps = append(snaps, yearSnaps(2018, 12)...)
	snaps = append(snaps, yearSnaps(2019, 12)...)

	out := SampleStratified(snaps, 9)
	require.NotEmpty(t, out)
	assert.LessOrEqual(t, len(out), 9)

	seen := map[int]bool{}
	for _, s := range out {
		seen[s.Year()] = true
	}
	// The sparse early year still gets representation instead of being
	// starved by the dense recent ones.
	assert.True(t, seen[2012])
	assert.True(t, seen[2018])
	assert.True(t, seen[2019])
}

func TestSampleStratified_RemainderGoesToEarliestYears(t *testing.T) {
	var snaps []Snapshot
	snaps = append(snaps, yearSnaps(2014, 10)...)
	snaps = append(snaps, yearSnaps(2015, 10)...)
	snaps = append(snaps, yearSnaps(2016, 10)...)

	out := SampleStratified(snaps, 7)
	counts := map[int]int{}
	for _, s := range out {
		counts[s.Year()]++
	}
	// 7 over 3 years: base 2 each, remainder 1 to the earliest year.
	assert.Equal(t, 3, counts[2014])
	assert.Equal(t, 2, counts[2015])
	assert.Equal(t, 2, counts[2016])
}

func TestSampleStratified_OutputSorted(t *testing.T) {
	var snaps []Snapshot
	snaps = append(snaps, yearSnaps(2019, 8)...)
	snaps = append(snaps, yearSnaps(2013, 8)...)

	out := SampleStratified(snaps, 6)
	for i := 1; i < len(out); i++ {
		assert.True(t, out[i-1].Timestamp < out[i].Timestamp)
	}
}

func TestSampleStratified_ClampsToMaxSampleSize(t *testing.T) {
	var snaps []Snapshot
	for y := 2010; y < 2020; y++ {
		snaps = append(snaps, yearSnaps(y, 50)...)
	}
	out := SampleStratified(snaps, 500)
	assert.Len(t, out, MaxSampleSize)
}

func TestSampleStratified_ZeroQuota(t *testing.T) {
	assert.Nil(t, SampleStratified(yearSnaps(2015, 5), 0))
	assert.Nil(t, SampleStratified(nil, 5))
}

func TestSampleStride_UniformSpread(t *testing.T) {
	snaps := yearSnaps(2018, 12)
	out := SampleStride(snaps, 4)
	require.Len(t, out, 4)
	// Stride 3 over 12 picks indices 0, 3, 6, 9.
	assert.Equal(t, snaps[0].Timestamp, out[0].Timestamp)
	assert.Equal(t, snaps[3].Timestamp, out[1].Timestamp)
	assert.Equal(t, snaps[6].Timestamp, out[2].Timestamp)
	assert.Equal(t, snaps[9].Timestamp, out[3].Timestamp)
}

func TestSampleStride_FewerThanQuotaReturnsAll(t *testing.T) {
	snaps := yearSnaps(2018, 3)
	out := SampleStride(snaps, 5)
	assert.Len(t, out, 3)
}

func TestSampleStride_ClampsToMaxSampleSize(t *testing.T) {
	var snaps []Snapshot
	for y := 2010; y < 2020; y++ {
		snaps = append(snaps, yearSnaps(y, 50)...)
	}
	out := SampleStride(snaps, 500)
	assert.Len(t, out, MaxSampleSize)
}

func TestSampleStride_DoesNotMutateInput(t *testing.T) {
	snaps := []Snapshot{
		{Timestamp: "20200101000000"},
		{Timestamp: "20100101000000"},
	}
	_ = SampleStride(snaps, 1)
	assert.Equal(t, "20200101000000", snaps[0].Timestamp)
}
