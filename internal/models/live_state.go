package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// LiveState is one state vector from the OpenSky live feed.
// Nullable feed values are pointers so that JSON null survives a round trip.
type LiveState struct {
	ICAO24         string   `json:"icao24"`
	Callsign       *string  `json:"callsign"`
	OriginCountry  string   `json:"origin_country"`
	TimePosition   *int64   `json:"time_position"`
	LastContact    int64    `json:"last_contact"`
	Longitude      *float64 `json:"longitude"`
	Latitude       *float64 `json:"latitude"`
	BaroAltitude   *float64 `json:"baro_altitude"`
	OnGround       bool     `json:"on_ground"`
	Velocity       *float64 `json:"velocity"`
	TrueTrack      *float64 `json:"true_track"`
	VerticalRate   *float64 `json:"vertical_rate"`
	Sensors        []int    `json:"sensors"`
	GeoAltitude    *float64 `json:"geo_altitude"`
	Squawk         *string  `json:"squawk"`
	SPI            bool     `json:"spi"`
	PositionSource int      `json:"position_source"`
	Category       *int     `json:"category"`
}

// LiveStateField binds one tuple position of the feed to a LiveState field
type LiveStateField struct {
	Name   string
	target func(s *LiveState) any
}

// LiveStateSchema is the positional layout of an OpenSky state vector.
// A change in the feed shape is an edit to this list only.
var LiveStateSchema = []LiveStateField{
	{"icao24", func(s *LiveState) any { return &s.ICAO24 }},
	{"callsign", func(s *LiveState) any { return &s.Callsign }},
	{"origin_country", func(s *LiveState) any { return &s.OriginCountry }},
	{"time_position", func(s *LiveState) any { return &s.TimePosition }},
	{"last_contact", func(s *LiveState) any { return &s.LastContact }},
	{"longitude", func(s *LiveState) any { return &s.Longitude }},
	{"latitude", func(s *LiveState) any { return &s.Latitude }},
	{"baro_altitude", func(s *LiveState) any { return &s.BaroAltitude }},
	{"on_ground", func(s *LiveState) any { return &s.OnGround }},
	{"velocity", func(s *LiveState) any { return &s.Velocity }},
	{"true_track", func(s *LiveState) any { return &s.TrueTrack }},
	{"vertical_rate", func(s *LiveState) any { return &s.VerticalRate }},
	{"sensors", func(s *LiveState) any { return &s.Sensors }},
	{"geo_altitude", func(s *LiveState) any { return &s.GeoAltitude }},
	{"squawk", func(s *LiveState) any { return &s.Squawk }},
	{"spi", func(s *LiveState) any { return &s.SPI }},
	{"position_source", func(s *LiveState) any { return &s.PositionSource }},
	{"category", func(s *LiveState) any { return &s.Category }},
}

// MinLiveStateFields is the shortest tuple accepted. The trailing category
// column is only sent when extended data is requested.
var MinLiveStateFields = len(LiveStateSchema) - 1

// DecodeLiveState decodes one positional state tuple using LiveStateSchema.
// Extra trailing columns are ignored.
func DecodeLiveState(tuple []json.RawMessage) (LiveState, error) {
	var s LiveState
	if len(tuple) < MinLiveStateFields {
		return s, fmt.Errorf("state vector has %d fields, want at least %d", len(tuple), MinLiveStateFields)
	}

	for i, field := range LiveStateSchema {
		if i >= len(tuple) {
			break
		}
		if err := json.Unmarshal(tuple[i], field.target(&s)); err != nil {
			return s, fmt.Errorf("failed to decode %s: %w", field.Name, err)
		}
	}

	return s, nil
}
