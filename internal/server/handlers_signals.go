package server

import (
	"fmt"
	"net/http"

	"github.com/ozayn/signalmap/internal/signals"
)

// handleBrent returns the Brent crude daily price series.
func (s *Server) handleBrent(w http.ResponseWriter, r *http.Request) {
	s.signalResponse(w, r, func(start, end string) (*signals.Series, error) {
		return s.signals.Brent(r.Context(), start, end)
	})
}

// handleUSDToman returns the USD to Iranian Toman series: official history
// plus, when reachable, today's open-market spot.
func (s *Server) handleUSDToman(w http.ResponseWriter, r *http.Request) {
	s.signalResponse(w, r, func(start, end string) (*signals.Series, error) {
		return s.signals.USDToman(r.Context(), start, end)
	})
}

// handleOilPPP returns annual Brent prices restated in a country's
// PPP-adjusted local currency.
func (s *Server) handleOilPPP(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")
	if _, ok := signals.PPPCountry(country); !ok {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("unsupported country: %s", country))
		return
	}
	s.signalResponse(w, r, func(start, end string) (*signals.Series, error) {
		return s.signals.OilPPP(r.Context(), country, start, end)
	})
}

// signalResponse runs one series fetch with the request's date bounds.
// Upstream failures surface as 502; the data lives on third-party services.
func (s *Server) signalResponse(w http.ResponseWriter, r *http.Request, fetch func(start, end string) (*signals.Series, error)) {
	q := r.URL.Query()
	series, err := fetch(q.Get("start"), q.Get("end"))
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, series)
}
