package api

import (
	"net/http"
	"strconv"

	"flight_spotter/internal/auth"
	"flight_spotter/internal/models"
	"flight_spotter/internal/opensky"
)

type focusResponse struct {
	CombinedResult *models.ResolvedAircraft `json:"combinedResult"`
}

type areaResponse struct {
	Aircraft []models.LiveState `json:"aircraft"`
}

// spottedRequest is the body of POST /aircraft/spotted
type spottedRequest struct {
	Callsign      string `json:"callsign" validate:"required,max=16"`
	TailNum       string `json:"tailNum" validate:"max=16"`
	ManNum        string `json:"manNum" validate:"max=16"`
	ManYear       string `json:"manYear" validate:"max=8"`
	RegName       string `json:"regName" validate:"max=128"`
	ManName       string `json:"manName" validate:"max=128"`
	ModelNum      string `json:"modelNum" validate:"max=64"`
	ThumbnailSrc  string `json:"thumbnailSrc" validate:"omitempty,url,max=512"`
	Photographer  string `json:"photographer" validate:"max=128"`
	OriginCountry string `json:"origin_country" validate:"max=64"`
}

type deleteSpottedRequest struct {
	Callsign string `json:"callsign" validate:"required,max=16"`
}

// handleFocus serves GET /aircraft/focus?icao24=
func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	result, err := s.Resolver.Resolve(r.Context(), r.URL.Query().Get("icao24"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, focusResponse{CombinedResult: result})
}

// handleBoundingBox serves GET /aircraft?lat1=&lon1=&lat2=&lon2=
func (s *Server) handleBoundingBox(w http.ResponseWriter, r *http.Request) {
	box, ok := parseBoundingBox(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Bounding box coordinates are required")
		return
	}

	states, err := s.Area.FetchByBoundingBox(r.Context(), box)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if states == nil {
		states = []models.LiveState{}
	}
	writeJSON(w, http.StatusOK, areaResponse{Aircraft: states})
}

func parseBoundingBox(r *http.Request) (opensky.BoundingBox, bool) {
	q := r.URL.Query()
	var coords [4]float64
	for i, key := range []string{"lat1", "lon1", "lat2", "lon2"} {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		if err != nil {
			return opensky.BoundingBox{}, false
		}
		coords[i] = v
	}

	lat1, lon1, lat2, lon2 := coords[0], coords[1], coords[2], coords[3]
	if !validLatitude(lat1) || !validLatitude(lat2) || !validLongitude(lon1) || !validLongitude(lon2) {
		return opensky.BoundingBox{}, false
	}
	return opensky.NewBoundingBox(lat1, lon1, lat2, lon2), true
}

func validLatitude(v float64) bool  { return v >= -90 && v <= 90 }
func validLongitude(v float64) bool { return v >= -180 && v <= 180 }

// handleAddSpotted serves POST /aircraft/spotted
func (s *Server) handleAddSpotted(w http.ResponseWriter, r *http.Request) {
	var req spottedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	saved, err := s.Flights.Add(r.Context(), &models.SpottedFlight{
		UserID:        user.ID,
		Callsign:      req.Callsign,
		TailNum:       req.TailNum,
		ManNum:        req.ManNum,
		ManYear:       req.ManYear,
		RegName:       req.RegName,
		ManName:       req.ManName,
		ModelNum:      req.ModelNum,
		ThumbnailSrc:  req.ThumbnailSrc,
		Photographer:  req.Photographer,
		OriginCountry: req.OriginCountry,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleDeleteSpotted serves POST /aircraft/delete
func (s *Server) handleDeleteSpotted(w http.ResponseWriter, r *http.Request) {
	var req deleteSpottedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	removed, err := s.Flights.Remove(r.Context(), user.ID, req.Callsign)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

// currentUser loads the account behind the request token. A token for a deleted
// account is treated as unauthorized.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	user, err := s.Users.Get(r.Context(), claims.Username)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return nil, false
		}
		writeDomainError(w, r, err)
		return nil, false
	}
	return user, true
}
