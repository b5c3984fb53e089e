package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/foodtruck-agent/internal/types"
)

// DefaultNearbyRadiusKm is used when /trucks/nearby omits radius_km.
const DefaultNearbyRadiusKm = 5.0

// handleCheckDuplicates classifies a candidate record against stored trucks.
func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var candidate types.CandidateRecord
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(candidate.Name) == "" {
		s.errorFrom(w, &ErrValidation{Field: "name", Message: "name is required"})
		return
	}

	result, err := s.deps.Duplicates.CheckForDuplicates(r.Context(), &candidate)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleDiscoveryRun runs one discovery pass and returns its summary.
func (s *Server) handleDiscoveryRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Discovery == nil {
		s.errorFrom(w, &ErrUnavailable{Component: "discovery"})
		return
	}
	s.jsonResponse(w, http.StatusOK, s.deps.Discovery.Run(r.Context()))
}

// handleTrucksNearby lists trucks within radius_km of lat/lng.
func (s *Server) handleTrucksNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseCoordinate(q.Get("lat"), "lat", 90)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	lng, err := parseCoordinate(q.Get("lng"), "lng", 180)
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	radius := DefaultNearbyRadiusKm
	if raw := q.Get("radius_km"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
			s.errorFrom(w, &ErrValidation{Field: "radius_km", Message: "must be a positive number"})
			return
		}
	}

	trucks, err := s.deps.Store.ListTrucksByRadius(r.Context(), lat, lng, radius)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if trucks == nil {
		trucks = []types.Truck{}
	}
	s.jsonResponse(w, http.StatusOK, trucks)
}

func parseCoordinate(raw, field string, bound float64) (float64, error) {
	if raw == "" {
		return 0, &ErrValidation{Field: field, Message: "is required"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < -bound || v > bound {
		return 0, &ErrValidation{Field: field, Message: "out of range"}
	}
	return v, nil
}
