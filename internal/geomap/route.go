package geomap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Router requests a driving path from the OpenRouteService directions API.
type Router struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewRouter(baseURL, apiKey string, client *http.Client) *Router {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Router{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Route returns the road path through the given waypoints. The service speaks
// GeoJSON with (lon, lat) ordering; the result is converted back to
// Coordinate order.
func (r *Router) Route(ctx context.Context, waypoints []Coordinate) ([]Coordinate, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("need at least 2 waypoints, got %d", len(waypoints))
	}

	coords := make([][2]float64, len(waypoints))
	for i, w := range waypoints {
		coords[i] = [2]float64{w.Lon, w.Lat}
	}
	body, err := json.Marshal(map[string]any{"coordinates": coords})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("routing service status %d: %s", resp.StatusCode, detail)
	}

	var geo struct {
		Features []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return nil, err
	}
	if len(geo.Features) == 0 {
		return nil, fmt.Errorf("routing response has no features")
	}

	var path []Coordinate
	for _, pt := range geo.Features[0].Geometry.Coordinates {
		if len(pt) < 2 {
			continue
		}
		path = append(path, Coordinate{Lat: pt[1], Lon: pt[0]})
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("routing response has empty geometry")
	}
	return path, nil
}
