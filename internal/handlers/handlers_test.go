package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/geocoding"
	"github.com/Az-san/intern-0818-0821/internal/itinerary"
	"github.com/Az-san/intern-0818-0821/internal/models"
	"github.com/Az-san/intern-0818-0821/internal/recommendation"
	"github.com/Az-san/intern-0818-0821/internal/rerank"
	"github.com/Az-san/intern-0818-0821/internal/routing"
	"github.com/Az-san/intern-0818-0821/internal/testutil"
)

type stubStore struct{ err error }

func (s *stubStore) HealthCheck(ctx context.Context) error { return s.err }

type stubGuests struct {
	guests map[string]models.GuestProfile
}

func (s *stubGuests) List(ctx context.Context) ([]models.GuestProfile, error) {
	out := make([]models.GuestProfile, 0, len(s.guests))
	for _, g := range s.guests {
		out = append(out, g)
	}
	return out, nil
}

func (s *stubGuests) GetGuest(ctx context.Context, id string) (*models.GuestProfile, error) {
	g, ok := s.guests[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &g, nil
}

// stubPlanner records the stops it was asked to plan
type stubPlanner struct {
	stops []models.Stop
	opts  routing.PlanOptions
	err   error
}

func (p *stubPlanner) Plan(ctx context.Context, stops []models.Stop, opts routing.PlanOptions) (*models.PlannedRoute, error) {
	p.stops = stops
	p.opts = opts
	if p.err != nil {
		return nil, p.err
	}
	pr := &models.PlannedRoute{Route: models.Route{Stops: stops}}
	for i, s := range stops {
		pr.Waypoints = append(pr.Waypoints, models.Waypoint{Order: i, ID: s.ID, Coords: s.Coords})
	}
	return pr, nil
}

type stubGeocoder struct {
	results []geocoding.GeocodingResult
	err     error
	queries []string
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (*geocoding.GeocodingResult, error) {
	return nil, errors.New("not used")
}

func (g *stubGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*geocoding.GeocodingResult, error) {
	return nil, errors.New("not used")
}

func (g *stubGeocoder) Search(ctx context.Context, query string, limit int) ([]geocoding.GeocodingResult, error) {
	g.queries = append(g.queries, fmt.Sprintf("%s/%d", query, limit))
	return g.results, g.err
}

var (
	sefaUtaki = models.Destination{
		ID: "N1", Name: "Sefa-utaki", Category: "nature",
		Coords:                   models.Coordinates{Lat: 26.1728, Lng: 127.8276},
		Tags:                     []string{"nature", "scenic"},
		EstimatedDurationMinutes: 90,
	}
	museum = models.Destination{
		ID: "M1", Name: "Prefectural Museum", Category: "museum",
		Coords:                   models.Coordinates{Lat: 26.2270, Lng: 127.6940},
		Tags:                     []string{"museum", "culture"},
		EstimatedDurationMinutes: 60,
		Indoor:                   true,
	}
	hotelOrigin = models.Stop{ID: models.OriginID, Coords: models.Coordinates{Lat: 26.2124, Lng: 127.6809}}
)

type fixture struct {
	handler *Handler
	store   *stubStore
	dests   *testutil.MockDestinations
	planner *stubPlanner
	geo     *stubGeocoder
	router  *gin.Engine
}

func setupTestHandler(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)

	f := &fixture{
		store:   &stubStore{},
		dests:   testutil.NewMockDestinations(sefaUtaki, museum),
		planner: &stubPlanner{},
		geo:     &stubGeocoder{},
	}
	origin := hotelOrigin
	f.handler = &Handler{
		Store:        f.store,
		Destinations: f.dests,
		Guests: &stubGuests{guests: map[string]models.GuestProfile{
			"G1": {ID: "G1", Age: 30, Interests: []string{"nature"}, Party: models.PartyComposition{Adults: 1}},
		}},
		Scorer:  recommendation.NewEngine(),
		Planner: f.planner,
		Itineraries: itinerary.NewBuilder(itinerary.Config{
			Location: time.UTC,
			Now:      func() time.Time { return time.Date(2025, 8, 20, 7, 0, 0, 0, time.UTC) },
		}),
		Reranker: rerank.NewService(nil, zaptest.NewLogger(t)),
		Geocoder: f.geo,
		Origin:   &origin,
		Backends: []string{"https://osrm.example"},
		Logger:   zaptest.NewLogger(t),
	}

	f.router = gin.New()
	f.handler.RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, code, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestHealthCheck(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]interface{}](t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, 2.0, resp["destinations"])
	assert.Equal(t, []interface{}{"https://osrm.example"}, resp["backends"])
}

func TestHealthCheck_StoreDown(t *testing.T) {
	f := setupTestHandler(t)
	f.store.err = errors.New("database is locked")

	w := f.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestListDestinations(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodGet, "/api/v1/destinations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Destinations []models.Destination `json:"destinations"`
		Count        int                  `json:"count"`
	}](t, w)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "N1", resp.Destinations[0].ID)

	w = f.do(t, http.MethodGet, "/api/v1/destinations?category=museum", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Prefectural Museum")
	assert.NotContains(t, w.Body.String(), "Sefa-utaki")

	w = f.do(t, http.MethodGet, "/api/v1/destinations?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode[map[string]interface{}](t, w)["count"])
}

func TestListDestinations_RankedForGuest(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodGet, "/api/v1/destinations?guest_id=G1&weather=SUNNY&season=fall", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[struct {
		GuestID      string                     `json:"guest_id"`
		Context      models.Context             `json:"context"`
		Destinations []models.ScoredDestination `json:"destinations"`
	}](t, w)

	assert.Equal(t, "G1", resp.GuestID)
	assert.Equal(t, models.Context{Weather: models.WeatherSunny, Season: models.SeasonAutumn}, resp.Context)
	require.Len(t, resp.Destinations, 2)
	assert.Equal(t, "N1", resp.Destinations[0].ID, "interest match puts nature first")
	assert.GreaterOrEqual(t, resp.Destinations[0].Score, resp.Destinations[1].Score)
	assert.NotEmpty(t, resp.Destinations[0].Factors)
}

func TestListDestinations_Errors(t *testing.T) {
	f := setupTestHandler(t)

	assertErrorCode(t, f.do(t, http.MethodGet, "/api/v1/destinations?limit=abc", nil), http.StatusBadRequest, CodeValidation)
	assertErrorCode(t, f.do(t, http.MethodGet, "/api/v1/destinations?guest_id=nobody", nil), http.StatusNotFound, CodeNotFound)

	f.dests.Err = errors.New("disk I/O error")
	w := f.do(t, http.MethodGet, "/api/v1/destinations", nil)
	assertErrorCode(t, w, http.StatusInternalServerError, CodeInternal)
	assert.NotContains(t, w.Body.String(), "disk I/O", "internal details stay in the log")
}

func TestGetDestinationAndGuest(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodGet, "/api/v1/destinations/M1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Prefectural Museum", decode[models.Destination](t, w).Name)

	assertErrorCode(t, f.do(t, http.MethodGet, "/api/v1/destinations/X9", nil), http.StatusNotFound, CodeNotFound)

	w = f.do(t, http.MethodGet, "/api/v1/guests/G1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"nature"}, decode[models.GuestProfile](t, w).Interests)

	assertErrorCode(t, f.do(t, http.MethodGet, "/api/v1/guests/G2", nil), http.StatusNotFound, CodeNotFound)
}

func TestPlanRoute(t *testing.T) {
	f := setupTestHandler(t)
	lat, lng := 26.2148, 127.6792

	w := f.do(t, http.MethodPost, "/api/v1/route", map[string]interface{}{
		"stops": []map[string]interface{}{
			{"id": "M1"},
			{"id": "cafe", "lat": lat, "lng": lng},
			{"id": "N1"},
		},
		"optimize":       true,
		"profile":        "walking",
		"include_origin": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, f.planner.stops, 4)
	assert.Equal(t, hotelOrigin, f.planner.stops[0])
	assert.Equal(t, models.Stop{ID: "M1", Coords: museum.Coords}, f.planner.stops[1])
	assert.Equal(t, models.Stop{ID: "cafe", Coords: models.Coordinates{Lat: lat, Lng: lng}}, f.planner.stops[2])
	assert.Equal(t, sefaUtaki.Coords, f.planner.stops[3].Coords)
	assert.Equal(t, routing.PlanOptions{Optimize: true, Profile: "walking"}, f.planner.opts)

	planned := decode[models.PlannedRoute](t, w)
	assert.Len(t, planned.Waypoints, 4)
}

func TestPlanRoute_OriginNotDuplicated(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodPost, "/api/v1/route", map[string]interface{}{
		"stops":          []map[string]interface{}{{"id": "start"}, {"id": "N1"}},
		"include_origin": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.planner.stops, 2)
	assert.Equal(t, hotelOrigin, f.planner.stops[0])
}

func TestPlanRoute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		setup  func(f *fixture)
		status int
		code   string
	}{
		{
			name:   "malformed body",
			body:   "not an object",
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
		{
			name:   "unknown destination",
			body:   map[string]interface{}{"stops": []map[string]interface{}{{"id": "M1"}, {"id": "X9"}}},
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
		{
			name:   "coordinates out of range",
			body:   map[string]interface{}{"stops": []map[string]interface{}{{"id": "a", "lat": 91.0, "lng": 0.0}, {"id": "M1"}}},
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
		{
			name:   "half coordinates",
			body:   map[string]interface{}{"stops": []map[string]interface{}{{"id": "a", "lat": 26.0}, {"id": "M1"}}},
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
		{
			name:   "origin without hotel",
			body:   map[string]interface{}{"stops": []map[string]interface{}{{"id": "M1"}}, "include_origin": true},
			setup:  func(f *fixture) { f.handler.Origin = nil },
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
		{
			name:   "planner rejects input",
			body:   map[string]interface{}{"stops": []map[string]interface{}{{"id": "M1"}}},
			setup:  func(f *fixture) { f.planner.err = fmt.Errorf("%w: need at least 2 stops, got 1", routing.ErrInvalidInput) },
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
		{
			name:   "planner fails",
			body:   map[string]interface{}{"stops": []map[string]interface{}{{"id": "M1"}, {"id": "N1"}}},
			setup:  func(f *fixture) { f.planner.err = errors.New("boom") },
			status: http.StatusInternalServerError,
			code:   CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestHandler(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			assertErrorCode(t, f.do(t, http.MethodPost, "/api/v1/route", tt.body), tt.status, tt.code)
		})
	}
}

func itineraryBody() map[string]interface{} {
	return map[string]interface{}{
		"start_time": "09:00",
		"date":       "2025-08-21",
		"route": models.PlannedRoute{
			Route: models.Route{DistanceKm: 10},
			Waypoints: []models.Waypoint{
				{Order: 0, ID: models.OriginID, Name: "Start", TravelToNext: &models.RouteLeg{Index: 0, DistanceKm: 10, DurationMinutes: 20}},
				{Order: 1, ID: "N1", Name: "Sefa-utaki", EstimatedStayMinutes: 90},
			},
		},
	}
}

func TestBuildItinerary(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodPost, "/api/v1/itinerary", itineraryBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	it := decode[models.Itinerary](t, w)
	assert.Equal(t, "2025-08-21", it.Date)
	assert.Equal(t, "09:00", it.StartTime)
	assert.Equal(t, "11:05", it.EndTime)
	assert.Len(t, it.Events, 4)
	assert.Equal(t, 1, it.Summary.TotalDestinations)
}

func TestBuildItinerary_Text(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodPost, "/api/v1/itinerary?format=text", itineraryBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "Itinerary - 2025-08-21")
	assert.Contains(t, w.Body.String(), "Sefa-utaki")
}

func TestBuildItinerary_Errors(t *testing.T) {
	f := setupTestHandler(t)

	assertErrorCode(t, f.do(t, http.MethodPost, "/api/v1/itinerary", map[string]interface{}{"start_time": "09:00"}),
		http.StatusBadRequest, CodeValidation)

	body := itineraryBody()
	body["start_time"] = "9 o'clock"
	assertErrorCode(t, f.do(t, http.MethodPost, "/api/v1/itinerary", body), http.StatusBadRequest, CodeValidation)

	body = itineraryBody()
	body["route"] = models.PlannedRoute{}
	assertErrorCode(t, f.do(t, http.MethodPost, "/api/v1/itinerary", body), http.StatusBadRequest, CodeValidation)
}

func TestSuggest_FallbackRanking(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodPost, "/api/v1/suggest", map[string]interface{}{
		"guest_id": "G1",
		"context":  map[string]string{"weather": "sunny", "season": "spring"},
		"top_k":    1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		GuestID  string                `json:"guest_id"`
		Accepted []rerank.RankedItem   `json:"accepted"`
		Rejected []rerank.RejectedItem `json:"rejected"`
		Source   string                `json:"source"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "G1", resp.GuestID)
	assert.Equal(t, rerank.SourceFallback, resp.Source)
	require.Len(t, resp.Accepted, 1)
	assert.Equal(t, "N1", resp.Accepted[0].ID)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, "M1", resp.Rejected[0].ID)
	assert.Equal(t, []string{rerank.ReasonLowScore}, resp.Rejected[0].Reasons)
}

func TestSuggest_CandidatesAndErrors(t *testing.T) {
	f := setupTestHandler(t)

	w := f.do(t, http.MethodPost, "/api/v1/suggest", map[string]interface{}{
		"guest_id":   "G1",
		"candidates": []string{"M1"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"id":"M1"`)
	assert.NotContains(t, w.Body.String(), `"id":"N1"`)

	f.handler.Reranker = nil
	w = f.do(t, http.MethodPost, "/api/v1/suggest", map[string]interface{}{"guest_id": "G1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), rerank.SourceFallback)

	assertErrorCode(t, f.do(t, http.MethodPost, "/api/v1/suggest", map[string]interface{}{}), http.StatusBadRequest, CodeValidation)
	assertErrorCode(t, f.do(t, http.MethodPost, "/api/v1/suggest", map[string]interface{}{"guest_id": "G1", "top_k": -1}),
		http.StatusBadRequest, CodeValidation)
	assertErrorCode(t, f.do(t, http.MethodPost, "/api/v1/suggest", map[string]interface{}{"guest_id": "ghost"}),
		http.StatusNotFound, CodeNotFound)
}

func TestPlaceSearch(t *testing.T) {
	f := setupTestHandler(t)
	f.geo.results = []geocoding.GeocodingResult{
		{Coords: models.Coordinates{Lat: 26.2124, Lng: 127.6809}, DisplayName: "Naha"},
	}

	w := f.do(t, http.MethodGet, "/api/v1/places/search?q=Naha&limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[[]geocoding.GeocodingResult](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, "Naha", results[0].DisplayName)
	assert.Equal(t, []string{"Naha/20"}, f.geo.queries, "limit is capped")

	w = f.do(t, http.MethodGet, "/api/v1/places/search?q=N", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
	assert.Len(t, f.geo.queries, 1, "short queries skip the geocoder")

	f.geo.err = errors.New("HTTP 503")
	w = f.do(t, http.MethodGet, "/api/v1/places/search?q=Okinawa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	assertErrorCode(t, f.do(t, http.MethodGet, "/api/v1/places/search?q=Naha&limit=0", nil), http.StatusBadRequest, CodeValidation)
}
