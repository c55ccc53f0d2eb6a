package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Az-san/intern-0818-0821/internal/gateway"
	"github.com/Az-san/intern-0818-0821/internal/models"
	"github.com/Az-san/intern-0818-0821/internal/testutil"
)

// mockRouteComputer returns one 10-minute, 5 km leg per consecutive pair
type mockRouteComputer struct {
	calls [][]models.Stop
	opts  []gateway.RouteOptions
	err   error
}

func (m *mockRouteComputer) ComputeRoute(ctx context.Context, stops []models.Stop, opts gateway.RouteOptions) (*models.Route, error) {
	m.calls = append(m.calls, stops)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}

	legs := make([]models.RouteLeg, 0, len(stops)-1)
	for i := 0; i+1 < len(stops); i++ {
		legs = append(legs, models.RouteLeg{Index: i, DistanceKm: 5, DurationMinutes: 10})
	}
	backend := "mock"
	return &models.Route{
		Stops:           stops,
		DistanceKm:      5 * float64(len(legs)),
		DurationMinutes: 10 * float64(len(legs)),
		Legs:            legs,
		Backend:         &backend,
	}, nil
}

func catalog() *testutil.MockDestinations {
	return testutil.NewMockDestinations(
		models.Destination{ID: "D001", Name: "Shurijo Castle", EstimatedDurationMinutes: 90, Coords: models.Coordinates{Lat: 0, Lng: 1}},
		models.Destination{ID: "D002", Name: "Churaumi Aquarium", EstimatedDurationMinutes: 150, Coords: models.Coordinates{Lat: 0, Lng: 10}},
	)
}

func TestPlan_KeepsOrderWithoutOptimize(t *testing.T) {
	routes := &mockRouteComputer{}
	p := NewPlanner(routes, catalog(), zaptest.NewLogger(t))

	stops := []models.Stop{
		{ID: models.OriginID, Coords: models.Coordinates{Lat: 0, Lng: 0}},
		{ID: "D002", Coords: models.Coordinates{Lat: 0, Lng: 10}},
		{ID: "D001", Coords: models.Coordinates{Lat: 0, Lng: 1}},
	}

	planned, err := p.Plan(context.Background(), stops, PlanOptions{Profile: "driving", Snap: true})
	require.NoError(t, err)

	require.Len(t, routes.calls, 1)
	assert.Equal(t, []string{models.OriginID, "D002", "D001"}, stopIDs(routes.calls[0]))
	assert.Equal(t, gateway.RouteOptions{Profile: "driving", Snap: true}, routes.opts[0])

	require.Len(t, planned.Waypoints, 3)
	assert.Equal(t, OriginName, planned.Waypoints[0].Name)
	assert.Zero(t, planned.Waypoints[0].EstimatedStayMinutes)
	assert.Equal(t, "Churaumi Aquarium", planned.Waypoints[1].Name)
	assert.Equal(t, 150, planned.Waypoints[1].EstimatedStayMinutes)
	assert.Equal(t, "Shurijo Castle", planned.Waypoints[2].Name)

	require.NotNil(t, planned.Waypoints[0].TravelToNext)
	assert.Equal(t, 0, planned.Waypoints[0].TravelToNext.Index)
	assert.Nil(t, planned.Waypoints[2].TravelToNext)

	assert.Equal(t, 2, planned.Summary.TotalDestinations)
	assert.Equal(t, 240, planned.Summary.TotalStayMinutes)
	assert.Equal(t, 20.0, planned.Summary.TotalTravelMinutes)
	assert.Equal(t, 260.0, planned.Summary.EstimatedTotalMinutes)
}

func TestPlan_OptimizePinsOrigin(t *testing.T) {
	routes := &mockRouteComputer{}
	p := NewPlanner(routes, catalog(), zaptest.NewLogger(t))

	stops := []models.Stop{
		{ID: models.OriginID, Coords: models.Coordinates{Lat: 0, Lng: 0}},
		{ID: "A", Coords: models.Coordinates{Lat: 0, Lng: 1}},
		{ID: "B", Coords: models.Coordinates{Lat: 0, Lng: 10}},
		{ID: "C", Coords: models.Coordinates{Lat: 0, Lng: 2}},
	}

	planned, err := p.Plan(context.Background(), stops, PlanOptions{Optimize: true})
	require.NoError(t, err)

	assert.Equal(t, []string{models.OriginID, "A", "C", "B"}, stopIDs(routes.calls[0]))

	// Unknown ids keep the label of their input position.
	assert.Equal(t, "Point 2", planned.Waypoints[1].Name)
	assert.Equal(t, "Point 4", planned.Waypoints[2].Name)
	assert.Equal(t, "Point 3", planned.Waypoints[3].Name)
	for _, wp := range planned.Waypoints[1:] {
		assert.Equal(t, DefaultStayMinutes, wp.EstimatedStayMinutes)
	}
	for i, wp := range planned.Waypoints {
		assert.Equal(t, i, wp.Order)
	}
}

func TestPlan_LookupErrorFallsBackToPlaceholder(t *testing.T) {
	dests := catalog()
	dests.Err = errors.New("database is locked")
	p := NewPlanner(&mockRouteComputer{}, dests, zaptest.NewLogger(t))

	planned, err := p.Plan(context.Background(), []models.Stop{
		{ID: "D001", Coords: models.Coordinates{Lat: 0, Lng: 1}},
		{ID: "D002", Coords: models.Coordinates{Lat: 0, Lng: 10}},
	}, PlanOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Point 1", planned.Waypoints[0].Name)
	assert.Equal(t, "Point 2", planned.Waypoints[1].Name)
	assert.Equal(t, 2, planned.Summary.TotalDestinations)
}

func TestPlan_InvalidInput(t *testing.T) {
	routes := &mockRouteComputer{}
	p := NewPlanner(routes, catalog(), nil)

	_, err := p.Plan(context.Background(), []models.Stop{{ID: "D001"}}, PlanOptions{})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Empty(t, routes.calls)

	routes.err = gateway.ErrInvalidInput
	_, err = p.Plan(context.Background(), []models.Stop{{ID: "a"}, {ID: "b"}}, PlanOptions{})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPlan_WithGatewayFallback(t *testing.T) {
	gw := gateway.New(gateway.Config{Backends: []string{"http://127.0.0.1:1"}, Timeout: 500 * time.Millisecond}, nil, zaptest.NewLogger(t))
	p := NewPlanner(gw, catalog(), zaptest.NewLogger(t))

	planned, err := p.Plan(context.Background(), []models.Stop{
		{ID: "start", Coords: models.Coordinates{Lat: 26.2124, Lng: 127.6809}},
		{ID: "D001", Coords: models.Coordinates{Lat: 26.2170, Lng: 127.7195}},
	}, PlanOptions{Optimize: true})
	require.NoError(t, err)

	assert.True(t, planned.Route.Degraded)
	assert.Nil(t, planned.Route.Backend)
	assert.Len(t, planned.Route.Legs, 1)
	assert.Equal(t, OriginName, planned.Waypoints[0].Name)
	assert.Equal(t, 1, planned.Summary.TotalDestinations)
}
