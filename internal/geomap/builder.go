package geomap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/agenthands/detour/internal/config"
)

var (
	// ErrTooFewPlaces means the revised route names fewer than two places.
	ErrTooFewPlaces = errors.New("geomap: route needs at least 2 places")
	// ErrTooFewCoordinates means geocoding resolved fewer than two of the
	// given places.
	ErrTooFewCoordinates = errors.New("geomap: fewer than 2 places could be resolved")
)

// MapBuilder turns a revised route's place names into a rendered map
// artifact: geocode each place, request the road path, render it.
type MapBuilder struct {
	geocoder *Geocoder
	router   *Router
	renderer *Renderer
	logger   *zap.Logger
}

func NewMapBuilder(cfg config.MappingConfig, client *http.Client, logger *zap.Logger) *MapBuilder {
	return &MapBuilder{
		geocoder: NewGeocoder(cfg.NominatimURL, cfg.UserAgent, client),
		router:   NewRouter(cfg.ORSBaseURL, cfg.ORSAPIKey, client),
		renderer: NewRenderer(cfg.OutputDir, cfg.OpenBrowser),
		logger:   logger,
	}
}

// Build renders the map for a revised route and returns the artifact path.
// Unresolvable places are skipped; the distinct failure modes (too few places
// given, too few resolved, routing call failed) surface as distinct errors.
func (b *MapBuilder) Build(ctx context.Context, places []string, conversationID string) (string, error) {
	if len(places) < 2 {
		return "", ErrTooFewPlaces
	}

	var waypoints []Coordinate
	for _, place := range places {
		coord, err := b.geocoder.Geocode(ctx, place)
		if err != nil {
			b.logger.Warn("skipping unresolvable place",
				zap.String("place", place), zap.Error(err))
			continue
		}
		waypoints = append(waypoints, coord)
	}
	if len(waypoints) < 2 {
		return "", ErrTooFewCoordinates
	}

	path, err := b.router.Route(ctx, waypoints)
	if err != nil {
		return "", fmt.Errorf("routing call failed: %w", err)
	}

	return b.renderer.Render(path, conversationID)
}
