package geomap

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
)

// Renderer writes the routed path as a self-contained Leaflet HTML artifact
// named by conversation id, and can open it for viewing.
type Renderer struct {
	outputDir   string
	openBrowser bool
}

func NewRenderer(outputDir string, openBrowser bool) *Renderer {
	return &Renderer{
		outputDir:   outputDir,
		openBrowser: openBrowser,
	}
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Revised route</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var path = {{.Path}};
var map = L.map('map').setView(path[0], 6);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
L.polyline(path, {color: 'blue', weight: 5}).addTo(map);
L.marker(path[0]).addTo(map).bindPopup('Start');
L.marker(path[path.length - 1]).addTo(map).bindPopup('Destination');
map.fitBounds(L.polyline(path).getBounds());
</script>
</body>
</html>
`))

// Render writes route_<conversationID>.html and returns its path.
func (r *Renderer) Render(path []Coordinate, conversationID string) (string, error) {
	if len(path) < 2 {
		return "", fmt.Errorf("need at least 2 points to render, got %d", len(path))
	}

	points := make([][2]float64, len(path))
	for i, c := range path {
		points[i] = [2]float64{c.Lat, c.Lon}
	}
	encoded, err := json.Marshal(points)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(r.outputDir, fmt.Sprintf("route_%s.html", conversationID))

	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	err = mapTemplate.Execute(f, struct{ Path template.JS }{Path: template.JS(encoded)})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	if r.openBrowser {
		// Viewing is optional; a headless host is not an error.
		_ = browser.OpenFile(outPath)
	}
	return outPath, nil
}
