package signals

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozayn/signalmap/internal/db"
)

type fakeSignalStore struct {
	rows    map[string][]db.SignalPoint
	upserts int
}

func newFakeSignalStore() *fakeSignalStore {
	return &fakeSignalStore{rows: map[string][]db.SignalPoint{}}
}

func (f *fakeSignalStore) UpsertSignalPoints(_ context.Context, points []db.SignalPoint) error {
	f.upserts++
	for _, p := range points {
		p.FetchedAt = time.Now()
		f.rows[p.Series] = append(f.rows[p.Series], p)
	}
	return nil
}

func (f *fakeSignalStore) GetSignalPoints(_ context.Context, series string) ([]db.SignalPoint, error) {
	return f.rows[series], nil
}

func testService(store Store) (*Service, *int) {
	fetches := 0
	s := NewService(store)
	s.fetchFRED = func(_ context.Context, _ *http.Client, seriesID string) ([]Observation, error) {
		fetches++
		switch seriesID {
		case SeriesBrent:
			return []Observation{
				{Date: "2019-06-03", Value: 60.0},
				{Date: "2019-06-04", Value: 70.0},
				{Date: "2020-01-02", Value: 66.0},
			}, nil
		case SeriesIranRialFX:
			return []Observation{
				{Date: "2019-01-01", Value: 42000.0},
				{Date: "2020-01-01", Value: 42105.0},
			}, nil
		}
		return nil, assert.AnError
	}
	s.fetchPPP = func(_ context.Context, _ *http.Client, iso3 string) ([]Observation, error) {
		fetches++
		return []Observation{
			{Date: "2019", Value: 30000.0},
			{Date: "2021", Value: 40000.0},
		}, nil
	}
	s.fetchBonbast = func(context.Context, *http.Client) (float64, error) {
		fetches++
		return 61250.0, nil
	}
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s, &fetches
}

func TestService_Brent_UpstreamThenCache(t *testing.T) {
	store := newFakeSignalStore()
	s, fetches := testService(store)

	series, err := s.Brent(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "upstream", series.Source)
	assert.Equal(t, SeriesNameBrent, series.Series)
	assert.Equal(t, "USD/barrel", series.Unit)
	assert.Len(t, series.Points, 3)
	assert.Equal(t, NotesBrent, series.Notes)
	assert.Equal(t, 1, store.upserts)

	// Second read is served from the process cache without refetching.
	series, err = s.Brent(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "cache", series.Source)
	assert.Equal(t, 1, *fetches)
}

func TestService_Brent_DateBounds(t *testing.T) {
	s, _ := testService(nil)

	series, err := s.Brent(context.Background(), "2019-06-04", "2019")
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.Equal(t, "2019-06-04", series.Points[0].Date)
}

func TestService_Brent_FreshDBCopySkipsUpstream(t *testing.T) {
	store := newFakeSignalStore()
	store.rows[SeriesNameBrent] = []db.SignalPoint{
		{Series: SeriesNameBrent, Date: "2020-01-02", Value: 66.0,
			FetchedAt: time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)},
	}
	s, fetches := testService(store)

	series, err := s.Brent(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "db", series.Source)
	assert.Zero(t, *fetches)
}

func TestService_Brent_StaleDBCopyRefetches(t *testing.T) {
	store := newFakeSignalStore()
	store.rows[SeriesNameBrent] = []db.SignalPoint{
		{Series: SeriesNameBrent, Date: "2020-01-02", Value: 66.0,
			FetchedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	s, fetches := testService(store)

	series, err := s.Brent(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "upstream", series.Source)
	assert.Equal(t, 1, *fetches)
}

func TestService_USDToman_MergesOfficialAndSpot(t *testing.T) {
	s, _ := testService(nil)

	series, err := s.USDToman(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, series.Points, 3)

	// Official Rial history divided down to Toman.
	assert.Equal(t, "2019-01-01", series.Points[0].Date)
	assert.InDelta(t, 4200.0, series.Points[0].Value, 1e-9)

	// Today's open-market spot rides at the end.
	last := series.Points[len(series.Points)-1]
	assert.Equal(t, "2024-05-01", last.Date)
	assert.InDelta(t, 61250.0, last.Value, 1e-9)
}

func TestService_USDToman_SpotFailureDegrades(t *testing.T) {
	s, _ := testService(nil)
	s.fetchBonbast = func(context.Context, *http.Client) (float64, error) {
		return 0, assert.AnError
	}

	series, err := s.USDToman(context.Background(), "", "")
	require.NoError(t, err)
	// History only, no spot point.
	assert.Len(t, series.Points, 2)
}

func TestService_OilPPP(t *testing.T) {
	s, _ := testService(nil)

	series, err := s.OilPPP(context.Background(), "iran", "", "")
	require.NoError(t, err)
	assert.Equal(t, "oil_ppp_IRN", series.Series)

	// Only 2019 overlaps: brent average (60+70)/2 = 65 times factor 30000.
	require.Len(t, series.Points, 1)
	assert.Equal(t, "2019", series.Points[0].Date)
	assert.InDelta(t, 65.0*30000.0, series.Points[0].Value, 1e-6)
}

func TestService_OilPPP_UnknownCountry(t *testing.T) {
	s, _ := testService(nil)
	_, err := s.OilPPP(context.Background(), "atlantis", "", "")
	assert.Error(t, err)
}

func TestAnnualAverage(t *testing.T) {
	avg := annualAverage([]Observation{
		{Date: "2019-01-01", Value: 10},
		{Date: "2019-12-31", Value: 30},
		{Date: "2020-06-15", Value: 50},
	})
	assert.InDelta(t, 20, avg["2019"], 1e-9)
	assert.InDelta(t, 50, avg["2020"], 1e-9)
}

func TestFilterRange(t *testing.T) {
	obs := []Observation{
		{Date: "2019-06-03"}, {Date: "2020-01-02"}, {Date: "2021-03-04"},
	}
	assert.Len(t, filterRange(obs, "", ""), 3)
	assert.Len(t, filterRange(obs, "2020-01-01", ""), 2)
	assert.Len(t, filterRange(obs, "", "2020"), 2)
	assert.Len(t, filterRange(obs, "2020", "2020"), 1)
}
