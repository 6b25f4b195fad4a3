package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/example/carwatch/internal/feed"
	"github.com/example/carwatch/internal/geo"
	"github.com/example/carwatch/internal/models"
	"github.com/example/carwatch/internal/subs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryFloat(r *http.Request, key string) (float64, error) {
	return strconv.ParseFloat(r.URL.Query().Get(key), 64)
}

// handleVehicles serves a one-shot ranked snapshot for map bootstrap: the
// display set at the observation radius, before any session is running.
func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	branchID, ok := feed.BranchID(city)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown city")
		return
	}
	lat, errLat := queryFloat(r, "lat")
	lng, errLng := queryFloat(r, "lng")
	radius, errRadius := queryFloat(r, "radius")
	if errLat != nil || errLng != nil || errRadius != nil || radius <= 0 {
		writeError(w, http.StatusBadRequest, "lat, lng and radius must be numbers, radius > 0")
		return
	}

	vehicles, err := s.source.Snapshot(r.Context(), branchID)
	if err != nil {
		s.logger.Warn("snapshot failed", "city", city, "error", err)
		writeError(w, http.StatusBadGateway, "feed unavailable")
		return
	}
	origin := models.Coord{Lat: lat, Lng: lng}
	display := geo.Rank(vehicles, origin, radius+s.cfg.ObservationBufferM)
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(vehicles),
		"vehicles": display,
	})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	fromLat, e1 := queryFloat(r, "from_lat")
	fromLng, e2 := queryFloat(r, "from_lng")
	toLat, e3 := queryFloat(r, "to_lat")
	toLng, e4 := queryFloat(r, "to_lng")
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		writeError(w, http.StatusBadRequest, "from_lat, from_lng, to_lat, to_lng must be numbers")
		return
	}
	est, err := s.walker.Walk(r.Context(), models.Coord{Lat: fromLat, Lng: fromLng}, models.Coord{Lat: toLat, Lng: toLng})
	if err != nil {
		writeError(w, http.StatusBadGateway, "routing unavailable")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

type subscribeBody struct {
	PushSubscription json.RawMessage `json:"pushSubscription"`
	City             string          `json:"city"`
	Lat              float64         `json:"lat"`
	Lng              float64         `json:"lng"`
	Radius           float64         `json:"radius"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if s.push == nil || !s.push.Configured() {
		writeError(w, http.StatusServiceUnavailable, "push not configured")
		return
	}
	var body subscribeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.registry.Register(subs.SubscribeRequest{
		Endpoint: body.PushSubscription,
		City:     body.City,
		Lat:      body.Lat,
		Lng:      body.Lng,
		RadiusM:  body.Radius,
	})
	if err != nil {
		var ve *subs.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Cancelling an unknown or already-delivered id succeeds by contract.
	s.registry.Cancel(body.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleVAPIDKey(w http.ResponseWriter, r *http.Request) {
	var key *string
	if s.push != nil && s.push.Configured() {
		key = &s.push.PublicKey
	}
	writeJSON(w, http.StatusOK, map[string]*string{"publicKey": key})
}
