package signals

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ozayn/signalmap/internal/db"
)

// Series names as persisted in signal_points.
const (
	SeriesNameBrent    = "brent"
	SeriesNameUSDToman = "usd_toman"
)

// Notes attached to series responses.
const (
	NotesBrent    = "Brent crude spot price, USD per barrel. Source: FRED " + SeriesBrent + "."
	NotesUSDToman = "Open-market USD to Toman. Annual official rate from FRED, current spot from Bonbast."
	NotesOilPPP   = "Annual Brent average converted at the PPP conversion factor. Source: FRED + World Bank PA.NUS.PPP."
)

// Series is an API-facing signal series with source attribution.
type Series struct {
	Series string        `json:"series"`
	Unit   string        `json:"unit"`
	Points []Observation `json:"points"`
	Source string        `json:"source"`
	Notes  string        `json:"notes"`
}

// Store is the persistence surface the service needs; *db.DB satisfies it.
// A nil store disables persistence but not the service.
type Store interface {
	UpsertSignalPoints(ctx context.Context, points []db.SignalPoint) error
	GetSignalPoints(ctx context.Context, series string) ([]db.SignalPoint, error)
}

// Service serves signal series through a three-layer read path: process TTL
// cache, then Postgres, then the upstream source (persisting on the way out).
type Service struct {
	store Store
	cache *TTLCache
	ttl   time.Duration
	now   func() time.Time

	// Fetch hooks, swapped for fakes in tests.
	fetchFRED    func(ctx context.Context, client *http.Client, seriesID string) ([]Observation, error)
	fetchPPP     func(ctx context.Context, client *http.Client, iso3 string) ([]Observation, error)
	fetchBonbast func(ctx context.Context, client *http.Client) (float64, error)
	httpClient   *http.Client
}

// NewService builds a signal service.
func NewService(store Store) *Service {
	return &Service{
		store:        store,
		cache:        NewTTLCache(),
		ttl:          DefaultTTL,
		now:          time.Now,
		fetchFRED:    FetchFRED,
		fetchPPP:     FetchPPP,
		fetchBonbast: FetchBonbastUSD,
		httpClient:   &http.Client{Timeout: 20 * time.Second},
	}
}

// Brent returns the Brent crude series, optionally bounded by start/end dates
// (inclusive, YYYY-MM-DD or bare-year prefixes).
func (s *Service) Brent(ctx context.Context, start, end string) (*Series, error) {
	points, source, err := s.series(ctx, SeriesNameBrent, func(ctx context.Context) ([]Observation, error) {
		return s.fetchFRED(ctx, s.httpClient, SeriesBrent)
	})
	if err != nil {
		return nil, err
	}
	return &Series{
		Series: SeriesNameBrent,
		Unit:   "USD/barrel",
		Points: filterRange(points, start, end),
		Source: source,
		Notes:  NotesBrent,
	}, nil
}

// USDToman returns the USD to Toman series: the official annual rate history
// merged with today's open-market spot, fetched concurrently.
func (s *Service) USDToman(ctx context.Context, start, end string) (*Series, error) {
	points, source, err := s.series(ctx, SeriesNameUSDToman, s.fetchUSDToman)
	if err != nil {
		return nil, err
	}
	return &Series{
		Series: SeriesNameUSDToman,
		Unit:   "Toman/USD",
		Points: filterRange(points, start, end),
		Source: source,
		Notes:  NotesUSDToman,
	}, nil
}

func (s *Service) fetchUSDToman(ctx context.Context) ([]Observation, error) {
	var official []Observation
	var spot float64
	var spotErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		obs, err := s.fetchFRED(gctx, s.httpClient, SeriesIranRialFX)
		if err != nil {
			return err
		}
		official = obs
		return nil
	})
	g.Go(func() error {
		// Spot failure degrades to history-only rather than failing the
		// whole series.
		spot, spotErr = s.fetchBonbast(gctx, s.httpClient)
		if spotErr != nil {
			log.Printf("signals: bonbast spot unavailable: %v", spotErr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The official series quotes Rial; Toman is a tenth of that.
	points := make([]Observation, 0, len(official)+1)
	for _, o := range official {
		points = append(points, Observation{Date: o.Date, Value: o.Value / 10})
	}
	if spotErr == nil && spot > 0 {
		points = append(points, Observation{Date: s.now().UTC().Format("2006-01-02"), Value: spot})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// OilPPP returns the annual Brent average converted at a country's PPP
// conversion factor: what a barrel costs in PPP-adjusted local units.
func (s *Service) OilPPP(ctx context.Context, country, start, end string) (*Series, error) {
	iso3, ok := PPPCountry(country)
	if !ok {
		return nil, fmt.Errorf("unsupported country: %s", country)
	}
	name := "oil_ppp_" + iso3
	points, source, err := s.series(ctx, name, func(ctx context.Context) ([]Observation, error) {
		return s.fetchOilPPP(ctx, iso3)
	})
	if err != nil {
		return nil, err
	}
	return &Series{
		Series: name,
		Unit:   "LCU/barrel (PPP)",
		Points: filterRange(points, start, end),
		Source: source,
		Notes:  NotesOilPPP,
	}, nil
}

func (s *Service) fetchOilPPP(ctx context.Context, iso3 string) ([]Observation, error) {
	var brent, ppp []Observation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		obs, err := s.fetchFRED(gctx, s.httpClient, SeriesBrent)
		if err != nil {
			return err
		}
		brent = obs
		return nil
	})
	g.Go(func() error {
		obs, err := s.fetchPPP(gctx, s.httpClient, iso3)
		if err != nil {
			return err
		}
		ppp = obs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avgByYear := annualAverage(brent)
	var points []Observation
	for _, factor := range ppp {
		avg, ok := avgByYear[factor.Date]
		if !ok {
			continue
		}
		points = append(points, Observation{Date: factor.Date, Value: avg * factor.Value})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no overlapping years between brent and ppp series")
	}
	return points, nil
}

// series is the shared read path: TTL cache, then the database when its copy
// is still fresh, then upstream with a persist on the way out.
func (s *Service) series(ctx context.Context, name string, fetch func(ctx context.Context) ([]Observation, error)) ([]Observation, string, error) {
	if v := s.cache.Get(name); v != nil {
		return v.([]Observation), "cache", nil
	}

	if s.store != nil {
		stored, err := s.store.GetSignalPoints(ctx, name)
		if err != nil {
			log.Printf("signals: %s: db read failed: %v", name, err)
		} else if fresh := freshObservations(stored, s.now(), s.ttl); fresh != nil {
			s.cache.Set(name, fresh, s.ttl)
			return fresh, "db", nil
		}
	}

	points, err := fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	s.cache.Set(name, points, s.ttl)
	if s.store != nil {
		rows := make([]db.SignalPoint, 0, len(points))
		for _, p := range points {
			rows = append(rows, db.SignalPoint{Series: name, Date: p.Date, Value: p.Value})
		}
		if err := s.store.UpsertSignalPoints(ctx, rows); err != nil {
			log.Printf("signals: %s: db write failed: %v", name, err)
		}
	}
	return points, "upstream", nil
}

// freshObservations converts stored rows when the newest fetch is within ttl,
// otherwise nil so the caller refetches.
func freshObservations(rows []db.SignalPoint, now time.Time, ttl time.Duration) []Observation {
	if len(rows) == 0 {
		return nil
	}
	var newest time.Time
	for _, r := range rows {
		if r.FetchedAt.After(newest) {
			newest = r.FetchedAt
		}
	}
	if now.Sub(newest) > ttl {
		return nil
	}
	obs := make([]Observation, 0, len(rows))
	for _, r := range rows {
		obs = append(obs, Observation{Date: r.Date, Value: r.Value})
	}
	return obs
}

// annualAverage folds dated observations into per-year means, keyed by the
// four-digit year.
func annualAverage(obs []Observation) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, o := range obs {
		if len(o.Date) < 4 {
			continue
		}
		y := o.Date[:4]
		sums[y] += o.Value
		counts[y]++
	}
	out := make(map[string]float64, len(sums))
	for y, sum := range sums {
		out[y] = sum / float64(counts[y])
	}
	return out
}

// filterRange bounds a series by inclusive date prefixes. Empty bounds pass
// everything through.
func filterRange(obs []Observation, start, end string) []Observation {
	if start == "" && end == "" {
		return obs
	}
	var out []Observation
	for _, o := range obs {
		if start != "" && o.Date < start {
			continue
		}
		if end != "" && o.Date[:min(len(o.Date), len(end))] > end {
			continue
		}
		out = append(out, o)
	}
	return out
}
