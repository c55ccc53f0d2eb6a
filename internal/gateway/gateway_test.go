package gateway

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/models"
	"github.com/Az-san/intern-0818-0821/internal/testutil"
)

// tenKmNorth is the latitude 10 km north of the equator on a 6371 km sphere
var tenKmNorth = 10.0 / (geo.EarthRadiusKm * math.Pi / 180)

func twoStops() []models.Stop {
	return []models.Stop{
		{ID: models.OriginID, Coords: models.Coordinates{Lat: 0, Lng: 0}},
		{ID: "D001", Coords: models.Coordinates{Lat: tenKmNorth, Lng: 0}},
	}
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u := srv.URL
	srv.Close()
	return u
}

func newTestGateway(t *testing.T, backends ...string) *Gateway {
	return New(Config{Backends: backends, Timeout: 2 * time.Second}, nil, zaptest.NewLogger(t))
}

func TestComputeRoute_Success(t *testing.T) {
	osrm := testutil.NewMockOSRM(t)
	gw := newTestGateway(t, osrm.URL())

	stops := []models.Stop{
		{ID: models.OriginID, Coords: models.Coordinates{Lat: 26.2124, Lng: 127.6809}},
		{ID: "D001", Coords: models.Coordinates{Lat: 26.3344, Lng: 127.8056}},
		{ID: "D002", Coords: models.Coordinates{Lat: 26.6943, Lng: 127.8779}},
	}

	route, err := gw.ComputeRoute(context.Background(), stops, RouteOptions{})
	require.NoError(t, err)

	require.NotNil(t, route.Backend)
	assert.Equal(t, osrm.URL(), *route.Backend)
	assert.False(t, route.Degraded)
	require.NotNil(t, route.LatencyMs)
	assert.Len(t, route.Legs, len(route.Stops)-1)
	assert.Len(t, route.Geometry, 3)
	assert.Equal(t, "D001", route.Stops[1].ID)

	sumKm, sumMin := 0.0, 0.0
	for i, leg := range route.Legs {
		assert.Equal(t, i, leg.Index)
		sumKm += leg.DistanceKm
		sumMin += leg.DurationMinutes
	}
	assert.InDelta(t, route.DistanceKm, sumKm, 0.02)
	assert.InDelta(t, route.DurationMinutes, sumMin, 0.2)

	q := osrm.LastQuery()
	assert.Contains(t, q, "overview=simplified")
	assert.Contains(t, q, "geometries=geojson")
	assert.Contains(t, q, "steps=false")
	assert.Contains(t, q, "alternatives=false")
}

func TestComputeRoute_FirstSuccessWins(t *testing.T) {
	slow := testutil.NewMockOSRM(t)
	slow.Delay = 300 * time.Millisecond
	fast := testutil.NewMockOSRM(t)

	gw := newTestGateway(t, slow.URL(), fast.URL())

	route, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)
	require.NotNil(t, route.Backend)
	assert.Equal(t, fast.URL(), *route.Backend)
}

func TestComputeRoute_RateLimitedBackendIsSkipped(t *testing.T) {
	limited := testutil.NewMockOSRM(t)
	limited.Status = http.StatusTooManyRequests
	healthy := testutil.NewMockOSRM(t)
	healthy.Delay = 50 * time.Millisecond

	gw := newTestGateway(t, limited.URL(), healthy.URL())

	route, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)
	require.NotNil(t, route.Backend)
	assert.Equal(t, healthy.URL(), *route.Backend)
	assert.Equal(t, 1, limited.RouteCalls(), "a failed branch is not re-issued")
}

func TestComputeRoute_AllBackendsFail(t *testing.T) {
	broken := testutil.NewMockOSRM(t)
	broken.Status = http.StatusInternalServerError

	gw := newTestGateway(t, broken.URL(), deadURL(t))

	route, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)
	require.NotNil(t, route)

	assert.Nil(t, route.Backend)
	assert.Nil(t, route.LatencyMs)
	assert.True(t, route.Degraded)
	assert.InDelta(t, 10.0, route.DistanceKm, 0.01)
	assert.InDelta(t, 15.0, route.DurationMinutes, 0.05)
	require.Len(t, route.Legs, 1)
	assert.InDelta(t, 15.0, route.Legs[0].DurationMinutes, 0.05)
	assert.Len(t, route.Geometry, 2)
}

func TestComputeRoute_NonOkCodeDegrades(t *testing.T) {
	osrm := testutil.NewMockOSRM(t)
	osrm.Code = "NoRoute"

	gw := newTestGateway(t, osrm.URL())

	route, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)
	assert.Nil(t, route.Backend)
	assert.True(t, route.Degraded)
}

func TestComputeRoute_TimeoutDegrades(t *testing.T) {
	osrm := testutil.NewMockOSRM(t)
	osrm.Delay = 2 * time.Second

	gw := New(Config{Backends: []string{osrm.URL()}, Timeout: 150 * time.Millisecond}, nil, zaptest.NewLogger(t))

	start := time.Now()
	route, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Nil(t, route.Backend)
	assert.True(t, route.Degraded)
}

func TestComputeRoute_InvalidInput(t *testing.T) {
	gw := newTestGateway(t, deadURL(t))

	tests := []struct {
		name  string
		stops []models.Stop
		opts  RouteOptions
	}{
		{"no stops", nil, RouteOptions{}},
		{"single stop", twoStops()[:1], RouteOptions{}},
		{"latitude out of range", []models.Stop{
			{ID: "a", Coords: models.Coordinates{Lat: 95, Lng: 0}},
			{ID: "b", Coords: models.Coordinates{Lat: 0, Lng: 0}},
		}, RouteOptions{}},
		{"unsupported profile", twoStops(), RouteOptions{Profile: "flying"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := gw.ComputeRoute(context.Background(), tt.stops, tt.opts)
			assert.Nil(t, route)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestComputeRoute_Snap(t *testing.T) {
	osrm := testutil.NewMockOSRM(t)
	snapped := models.Coordinates{Lat: 0.0005, Lng: 0.0004}
	osrm.Nearest = &snapped

	gw := newTestGateway(t, osrm.URL())

	route, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{Snap: true})
	require.NoError(t, err)

	assert.Equal(t, 2, osrm.NearestCalls())
	for _, s := range route.Stops {
		assert.Equal(t, snapped, s.Coords)
	}
}

func TestComputeRoute_SnapFailureKeepsCoordinates(t *testing.T) {
	osrm := testutil.NewMockOSRM(t)
	gw := newTestGateway(t, osrm.URL())

	stops := twoStops()
	route, err := gw.ComputeRoute(context.Background(), stops, RouteOptions{Snap: true})
	require.NoError(t, err)

	assert.Equal(t, 2, osrm.NearestCalls())
	assert.Equal(t, stops[0].Coords, route.Stops[0].Coords)
	assert.Equal(t, stops[1].Coords, route.Stops[1].Coords)
	assert.NotNil(t, route.Backend)
}

func TestComputeRoute_CachesLiveRoutesOnly(t *testing.T) {
	osrm := testutil.NewMockOSRM(t)
	cache := testutil.NewMockRouteCache()
	gw := New(Config{Backends: []string{osrm.URL()}, Timeout: 2 * time.Second}, cache, zaptest.NewLogger(t))

	first, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Count())

	relabelled := twoStops()
	relabelled[1].ID = "D999"
	second, err := gw.ComputeRoute(context.Background(), relabelled, RouteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, osrm.RouteCalls())
	assert.Equal(t, first.DistanceKm, second.DistanceKm)
	assert.Equal(t, "D999", second.Stops[1].ID)

	degradedCache := testutil.NewMockRouteCache()
	offline := New(Config{Backends: []string{deadURL(t)}, Timeout: time.Second}, degradedCache, zaptest.NewLogger(t))
	route, err := offline.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)
	assert.True(t, route.Degraded)
	assert.Zero(t, degradedCache.Count())
}

func TestComputeRoute_CacheErrorsAreIgnored(t *testing.T) {
	osrm := testutil.NewMockOSRM(t)
	cache := testutil.NewMockRouteCache()
	cache.Err = errors.New("cache down")
	gw := New(Config{Backends: []string{osrm.URL()}, Timeout: 2 * time.Second}, cache, zaptest.NewLogger(t))

	route, err := gw.ComputeRoute(context.Background(), twoStops(), RouteOptions{})
	require.NoError(t, err)
	assert.NotNil(t, route.Backend)
}

func TestNormalize_ApportionsMissingLegs(t *testing.T) {
	stops := []models.Stop{
		{ID: "a", Coords: models.Coordinates{Lat: 0, Lng: 0}},
		{ID: "b", Coords: models.Coordinates{Lat: 0.01, Lng: 0}},
		{ID: "c", Coords: models.Coordinates{Lat: 0.02, Lng: 0}},
	}

	route := normalize(stops, &osrmRoute{Distance: 3000, Duration: 600})

	require.Len(t, route.Legs, 2)
	assert.InDelta(t, 1.5, route.Legs[0].DistanceKm, 0.01)
	assert.InDelta(t, 5.0, route.Legs[1].DurationMinutes, 0.05)
	assert.Equal(t, 3.0, route.DistanceKm)
	assert.Equal(t, 10.0, route.DurationMinutes)
	assert.Len(t, route.Geometry, 3, "stops stand in for a missing geometry")
}

func TestNew_Defaults(t *testing.T) {
	gw := New(Config{}, nil, nil)

	assert.Equal(t, DefaultBackends, gw.Backends())
	assert.Equal(t, DefaultTimeout, gw.timeout)
	assert.Equal(t, DefaultProfile, gw.profile)
	assert.Equal(t, geo.DefaultFallbackSpeedKmh, gw.fallbackSpeedKmh)
}

func TestBackendLabel(t *testing.T) {
	assert.Equal(t, "routing.openstreetmap.de/routed-car", backendLabel("https://routing.openstreetmap.de/routed-car"))
	assert.Equal(t, "router.project-osrm.org", backendLabel("https://router.project-osrm.org/"))
}

func TestFormatCoordinates(t *testing.T) {
	got := formatCoordinates([]models.Coordinates{{Lat: 26.2124, Lng: 127.6809}, {Lat: 1, Lng: 2}})
	assert.Equal(t, "127.680900,26.212400;2.000000,1.000000", got)
	assert.False(t, strings.Contains(got, " "))
}
