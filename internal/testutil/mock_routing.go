package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

// MockOSRM is a fake OSRM backend. Route answers use straight-line leg
// lengths at SpeedKmh unless Status or Code override the outcome.
type MockOSRM struct {
	Server   *httptest.Server
	Status   int
	Code     string
	Delay    time.Duration
	SpeedKmh float64
	// Nearest, when set, is returned by the nearest endpoint for every point.
	Nearest *models.Coordinates

	routeCalls   atomic.Int32
	nearestCalls atomic.Int32
	mu           sync.Mutex
	lastQuery    string
}

// NewMockOSRM starts a fake backend that is closed with the test
func NewMockOSRM(t testing.TB) *MockOSRM {
	t.Helper()
	m := &MockOSRM{Status: http.StatusOK, Code: "Ok", SpeedKmh: 30}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Server.Close)
	return m
}

// URL is the base URL to configure as a backend
func (m *MockOSRM) URL() string { return m.Server.URL }

func (m *MockOSRM) RouteCalls() int   { return int(m.routeCalls.Load()) }
func (m *MockOSRM) NearestCalls() int { return int(m.nearestCalls.Load()) }

// LastQuery returns the raw query string of the last route request
func (m *MockOSRM) LastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

func (m *MockOSRM) serve(w http.ResponseWriter, r *http.Request) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/route/v1/"):
		m.routeCalls.Add(1)
		m.mu.Lock()
		m.lastQuery = r.URL.RawQuery
		m.mu.Unlock()
		m.serveRoute(w, r)
	case strings.HasPrefix(r.URL.Path, "/nearest/v1/"):
		m.nearestCalls.Add(1)
		m.serveNearest(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockOSRM) serveRoute(w http.ResponseWriter, r *http.Request) {
	if m.Status != http.StatusOK {
		w.WriteHeader(m.Status)
		fmt.Fprint(w, `{"message":"mock failure"}`)
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	points, err := ParseCoordinates(parts[len(parts)-1])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"code":"InvalidQuery","message":%q}`, err.Error())
		return
	}

	writeJSON(w, RouteResponse(m.Code, points, m.SpeedKmh))
}

func (m *MockOSRM) serveNearest(w http.ResponseWriter, r *http.Request) {
	if m.Status != http.StatusOK || m.Nearest == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"code": "Ok",
		"waypoints": []map[string]interface{}{
			{"location": []float64{m.Nearest.Lng, m.Nearest.Lat}, "distance": 3.2, "name": "snapped"},
		},
	})
}

// ParseCoordinates parses OSRM's "lng,lat;lng,lat" path segment
func ParseCoordinates(s string) ([]models.Coordinates, error) {
	var out []models.Coordinates
	for _, pair := range strings.Split(s, ";") {
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("bad coordinate %q", pair)
		}
		lng, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Coordinates{Lat: lat, Lng: lng})
	}
	return out, nil
}

// RouteResponse builds an OSRM route payload with straight-line legs
func RouteResponse(code string, points []models.Coordinates, speedKmh float64) map[string]interface{} {
	legs := make([]map[string]float64, 0, len(points))
	geometry := make([][]float64, 0, len(points))
	totalM, totalS := 0.0, 0.0
	for i, p := range points {
		geometry = append(geometry, []float64{p.Lng, p.Lat})
		if i+1 < len(points) {
			m := geo.HaversineKm(p, points[i+1]) * 1000
			s := m / (speedKmh * 1000 / 3600)
			legs = append(legs, map[string]float64{"distance": m, "duration": s})
			totalM += m
			totalS += s
		}
	}

	return map[string]interface{}{
		"code": code,
		"routes": []map[string]interface{}{{
			"distance": totalM,
			"duration": totalS,
			"geometry": map[string]interface{}{"type": "LineString", "coordinates": geometry},
			"legs":     legs,
		}},
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// MockRouteCache is an in-memory RouteCacheRepository
type MockRouteCache struct {
	mu      sync.Mutex
	entries map[string]models.Route
	Err     error
}

func NewMockRouteCache() *MockRouteCache {
	return &MockRouteCache{entries: make(map[string]models.Route)}
}

func (c *MockRouteCache) Get(ctx context.Context, key string) (*models.Route, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	r, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	r.Stops = append([]models.Stop(nil), r.Stops...)
	return &r, nil
}

func (c *MockRouteCache) Set(ctx context.Context, key string, route *models.Route, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.entries[key] = *route
	return nil
}

// Count returns the number of entries in the cache
func (c *MockRouteCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MockDestinations is an in-memory DestinationRepository
type MockDestinations struct {
	items map[string]models.Destination
	order []string
	Err   error
}

func NewMockDestinations(dests ...models.Destination) *MockDestinations {
	m := &MockDestinations{items: make(map[string]models.Destination)}
	for _, d := range dests {
		m.items[d.ID] = d
		m.order = append(m.order, d.ID)
	}
	return m
}

func (m *MockDestinations) List(ctx context.Context, category string) ([]models.Destination, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Destination, 0, len(m.order))
	for _, id := range m.order {
		d := m.items[id]
		if category == "" || d.Category == category {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockDestinations) GetDestination(ctx context.Context, id string) (*models.Destination, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	d, ok := m.items[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &d, nil
}

func (m *MockDestinations) GetByIDs(ctx context.Context, ids []string) ([]models.Destination, error) {
	out := make([]models.Destination, 0, len(ids))
	for _, id := range ids {
		if d, ok := m.items[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockDestinations) Count(ctx context.Context) (int, error) {
	return len(m.items), m.Err
}
