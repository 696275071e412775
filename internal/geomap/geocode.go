package geomap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// ErrNoResult is returned when the geocoding service has no candidate for a
// place name.
var ErrNoResult = errors.New("geomap: no geocoding result")

// Geocoder resolves free-text place names against the Nominatim search API.
// One GET per place, first candidate wins, no retries.
type Geocoder struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

func NewGeocoder(baseURL, userAgent string, client *http.Client) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Geocoder{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

func (g *Geocoder) Geocode(ctx context.Context, place string) (Coordinate, error) {
	endpoint := fmt.Sprintf("%s?format=json&q=%s", g.baseURL, url.QueryEscape(place))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinate{}, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return Coordinate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Coordinate{}, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var candidates []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return Coordinate{}, err
	}
	if len(candidates) == 0 {
		return Coordinate{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(candidates[0].Lat, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("bad latitude %q: %w", candidates[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(candidates[0].Lon, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("bad longitude %q: %w", candidates[0].Lon, err)
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}
