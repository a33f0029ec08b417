package api

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
)

var mapPage = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Map</title>
  <style>
    #map { height: 400px; width: 100%; }
  </style>
</head>
<body>
  <h1>Map</h1>
  <div id="map"></div>
  <script>
    function initMap() {
      var fallback = { lat: 39.8283, lng: -98.5795 };
      var map = new google.maps.Map(document.getElementById('map'), { center: fallback, zoom: 4 });
      if (!navigator.geolocation) {
        return;
      }
      navigator.geolocation.getCurrentPosition(function (position) {
        map.setCenter({ lat: position.coords.latitude, lng: position.coords.longitude });
        map.setZoom(12);
      });
    }
  </script>
  <script async defer src="https://maps.googleapis.com/maps/api/js?key={{.APIKey}}&callback=initMap"></script>
</body>
</html>
`))

// handleMap serves GET /map
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := mapPage.Execute(&buf, struct{ APIKey string }{s.MapsAPIKey}); err != nil {
		slog.Error("Failed to render map", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render map")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
