package server

import (
	"net/http"
	"strings"
)

// handleGeocode handles GET /geocode?q=.
func (s *RunsServer) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if s.geocoder == nil {
		writeError(w, http.StatusNotFound, "Geocoding is not enabled")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Missing query parameter 'q'")
		return
	}

	results, err := s.geocoder.Search(r.Context(), q)
	if err != nil {
		s.logger.Warn("geocode failed", "error", err)
		writeError(w, http.StatusBadGateway, "Geocoding service unavailable")
		return
	}
	writeData(w, http.StatusOK, results)
}
