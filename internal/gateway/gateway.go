// Package gateway obtains multi-stop driving routes from OSRM-compatible
// backends. Every configured backend is queried at once and the first good
// answer wins; when none answers, a straight-line estimate is returned.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/logger"
	"github.com/Az-san/intern-0818-0821/internal/metrics"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	DefaultTimeout   = 6 * time.Second
	DefaultProfile   = "driving"
	DefaultUserAgent = "ConciergePlanner/1.0"
	DefaultCacheTTL  = 24 * time.Hour
)

// DefaultBackends are the public OSRM demo servers
var DefaultBackends = []string{
	"https://router.project-osrm.org",
	"https://routing.openstreetmap.de/routed-car",
}

// ErrInvalidInput is returned for requests no backend could ever satisfy
var ErrInvalidInput = errors.New("invalid route input")

var validProfiles = map[string]bool{
	"driving": true,
	"walking": true,
	"cycling": true,
}

// Config configures a Gateway
type Config struct {
	Backends         []string
	Timeout          time.Duration
	Profile          string
	FallbackSpeedKmh float64
	UserAgent        string
	CacheTTL         time.Duration
}

// RouteOptions tune a single ComputeRoute call
type RouteOptions struct {
	Profile string
	Snap    bool
}

// Gateway computes routes. It is safe for concurrent use.
type Gateway struct {
	backends         []string
	httpClient       *http.Client
	timeout          time.Duration
	profile          string
	fallbackSpeedKmh float64
	userAgent        string
	cache            database.RouteCacheRepository
	cacheTTL         time.Duration
	logger           *zap.Logger
}

// New creates a gateway. cache may be nil.
func New(cfg Config, cache database.RouteCacheRepository, log *zap.Logger) *Gateway {
	backends := make([]string, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		if b = strings.TrimSpace(b); b != "" {
			backends = append(backends, strings.TrimRight(b, "/"))
		}
	}
	if len(backends) == 0 {
		backends = append(backends, DefaultBackends...)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	profile := cfg.Profile
	if !validProfiles[profile] {
		profile = DefaultProfile
	}
	speed := cfg.FallbackSpeedKmh
	if speed <= 0 {
		speed = geo.DefaultFallbackSpeedKmh
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Gateway{
		backends:         backends,
		httpClient:       &http.Client{Timeout: timeout},
		timeout:          timeout,
		profile:          profile,
		fallbackSpeedKmh: speed,
		userAgent:        ua,
		cache:            cache,
		cacheTTL:         ttl,
		logger:           logger.OrNop(log).Named("osrm"),
	}
}

// Backends returns the configured backend base URLs in priority order
func (g *Gateway) Backends() []string {
	return append([]string(nil), g.backends...)
}

// ComputeRoute returns a route through stops in the given order. It only
// fails for invalid input; unreachable backends yield a degraded route.
func (g *Gateway) ComputeRoute(ctx context.Context, stops []models.Stop, opts RouteOptions) (*models.Route, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 stops, got %d", ErrInvalidInput, len(stops))
	}
	for i, s := range stops {
		if !geo.ValidCoordinates(s.Coords) {
			return nil, fmt.Errorf("%w: stop %d has out-of-range coordinates (%f, %f)", ErrInvalidInput, i, s.Coords.Lat, s.Coords.Lng)
		}
	}

	profile := opts.Profile
	if profile == "" {
		profile = g.profile
	}
	if !validProfiles[profile] {
		return nil, fmt.Errorf("%w: unsupported profile %q", ErrInvalidInput, profile)
	}

	stops = append([]models.Stop(nil), stops...)
	key := cacheKey(profile, opts.Snap, stops)
	if cached := g.cachedRoute(ctx, key, stops); cached != nil {
		return cached, nil
	}

	if opts.Snap {
		g.snap(ctx, profile, stops)
	}

	points := make([]models.Coordinates, len(stops))
	for i, s := range stops {
		points[i] = s.Coords
	}

	winner := g.race(ctx, profile, points)
	if winner == nil {
		metrics.RoutingFallbacks.Inc()
		g.logger.Warn("all routing backends failed, using straight-line estimate",
			zap.Int("stops", len(stops)),
			zap.Strings("backends", g.backends),
		)
		return g.fallbackRoute(stops), nil
	}

	route := normalize(stops, winner.route)
	backend := winner.backend
	latency := winner.elapsed.Milliseconds()
	route.Backend = &backend
	route.LatencyMs = &latency

	g.logger.Info("route computed",
		zap.String("backend", backend),
		zap.Int("stops", len(stops)),
		zap.Float64("distance_km", route.DistanceKm),
		zap.Float64("duration_minutes", route.DurationMinutes),
		zap.Int64("latency_ms", latency),
	)

	g.storeRoute(ctx, key, route)
	return route, nil
}

type raceResult struct {
	backend string
	route   *osrmRoute
	err     error
	elapsed time.Duration
}

// race queries every backend concurrently and returns the first success, or
// nil once all branches failed or the deadline passed. Losing branches are
// left to finish on their own; the buffered channel absorbs their results.
func (g *Gateway) race(ctx context.Context, profile string, points []models.Coordinates) *raceResult {
	results := make(chan raceResult, len(g.backends))
	for _, b := range g.backends {
		go func(backend string) {
			start := time.Now()
			route, err := g.fetchRoute(ctx, backend, profile, points)
			elapsed := time.Since(start)

			label := backendLabel(backend)
			metrics.RoutingBackendDuration.WithLabelValues(label).Observe(elapsed.Seconds())
			metrics.RoutingBackendRequests.WithLabelValues(label, outcomeOf(err)).Inc()

			results <- raceResult{backend: backend, route: route, err: err, elapsed: elapsed}
		}(b)
	}

	deadline := time.NewTimer(g.timeout)
	defer deadline.Stop()

	for pending := len(g.backends); pending > 0; pending-- {
		select {
		case r := <-results:
			if r.err == nil {
				return &r
			}
			var bErr *ErrBackendFailed
			if errors.As(r.err, &bErr) && bErr.RateLimited() {
				g.logger.Warn("routing backend rate limited", zap.String("backend", r.backend))
			} else {
				g.logger.Warn("routing backend failed", zap.String("backend", r.backend), zap.Error(r.err))
			}
		case <-deadline.C:
			g.logger.Warn("routing race timed out", zap.Duration("timeout", g.timeout), zap.Int("pending", pending))
			return nil
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	var bErr *ErrBackendFailed
	if errors.As(err, &bErr) {
		switch {
		case bErr.RateLimited():
			return metrics.OutcomeRateLimited
		case bErr.Status == http.StatusOK:
			return metrics.OutcomeRejected
		}
	}
	return metrics.OutcomeError
}

// snap moves each stop onto the road network using the active backend.
// Points whose lookup fails keep their original coordinates.
func (g *Gateway) snap(ctx context.Context, profile string, stops []models.Stop) {
	backend := g.backends[0]

	var wg sync.WaitGroup
	for i := range stops {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapped, err := g.fetchNearest(ctx, backend, profile, stops[i].Coords)
			if err != nil {
				g.logger.Debug("snap failed, keeping original coordinate",
					zap.String("stop", stops[i].ID),
					zap.Error(err),
				)
				return
			}
			stops[i].Coords = snapped
		}(i)
	}
	wg.Wait()
}

// fallbackRoute builds a straight-line route at the nominal fallback speed
func (g *Gateway) fallbackRoute(stops []models.Stop) *models.Route {
	geometry := make([]models.Coordinates, len(stops))
	for i, s := range stops {
		geometry[i] = s.Coords
	}

	legs := make([]models.RouteLeg, 0, len(stops)-1)
	totalKm, totalMin := 0.0, 0.0
	for i := 0; i+1 < len(stops); i++ {
		km := geo.HaversineKm(stops[i].Coords, stops[i+1].Coords)
		minutes := geo.TravelMinutes(km, g.fallbackSpeedKmh)
		totalKm += km
		totalMin += minutes
		legs = append(legs, models.RouteLeg{
			Index:           i,
			DistanceKm:      geo.Round(km, 2),
			DurationMinutes: geo.Round(minutes, 1),
		})
	}

	return &models.Route{
		Stops:           stops,
		Geometry:        geometry,
		DistanceKm:      geo.Round(totalKm, 2),
		DurationMinutes: geo.Round(totalMin, 1),
		Legs:            legs,
		Degraded:        true,
	}
}

// normalize converts a backend route into the common shape. Legs missing
// from the payload are apportioned from the totals by straight-line share.
func normalize(stops []models.Stop, r *osrmRoute) *models.Route {
	geometry := make([]models.Coordinates, 0, len(r.Geometry.Coordinates))
	for _, c := range r.Geometry.Coordinates {
		if len(c) >= 2 {
			geometry = append(geometry, models.Coordinates{Lat: c[1], Lng: c[0]})
		}
	}
	if len(geometry) == 0 {
		for _, s := range stops {
			geometry = append(geometry, s.Coords)
		}
	}

	n := len(stops) - 1
	legs := make([]models.RouteLeg, n)
	if len(r.Legs) == n {
		for i, l := range r.Legs {
			legs[i] = models.RouteLeg{
				Index:           i,
				DistanceKm:      geo.Round(l.Distance/1000, 2),
				DurationMinutes: geo.Round(l.Duration/60, 1),
			}
		}
	} else {
		straight := make([]float64, n)
		total := 0.0
		for i := 0; i < n; i++ {
			straight[i] = geo.HaversineKm(stops[i].Coords, stops[i+1].Coords)
			total += straight[i]
		}
		for i := 0; i < n; i++ {
			share := 1 / float64(n)
			if total > 0 {
				share = straight[i] / total
			}
			legs[i] = models.RouteLeg{
				Index:           i,
				DistanceKm:      geo.Round(r.Distance*share/1000, 2),
				DurationMinutes: geo.Round(r.Duration*share/60, 1),
			}
		}
	}

	return &models.Route{
		Stops:           stops,
		Geometry:        geometry,
		DistanceKm:      geo.Round(r.Distance/1000, 2),
		DurationMinutes: geo.Round(r.Duration/60, 1),
		Legs:            legs,
	}
}
