// Package routing orders sightseeing stops and turns a backend route into
// waypoints with display names and stay times.
package routing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/gateway"
	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/logger"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	OriginName         = "Start"
	DefaultStayMinutes = 60
)

// Planner builds planned routes. It holds no per-request state.
type Planner struct {
	routes       RouteComputer
	destinations DestinationLookup
	logger       *zap.Logger
}

// NewPlanner creates a planner backed by the given route computer and catalog
func NewPlanner(routes RouteComputer, destinations DestinationLookup, log *zap.Logger) *Planner {
	return &Planner{
		routes:       routes,
		destinations: destinations,
		logger:       logger.OrNop(log).Named("planner"),
	}
}

type stopInfo struct {
	name string
	stay int
}

// Plan routes the stops, optionally reordering all but the first with the
// nearest-neighbor heuristic, and attaches per-stop metadata.
func (p *Planner) Plan(ctx context.Context, stops []models.Stop, opts PlanOptions) (*models.PlannedRoute, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 stops, got %d", ErrInvalidInput, len(stops))
	}

	// Labels use the caller's positions, before any reordering.
	infos := make([]stopInfo, len(stops))
	for i, s := range stops {
		infos[i] = p.describe(ctx, s, i)
	}

	order := make([]int, len(stops))
	for i := range order {
		order[i] = i
	}
	if opts.Optimize {
		order = nearestNeighborIndices(stops)
	}

	ordered := make([]models.Stop, len(order))
	for k, i := range order {
		ordered[k] = stops[i]
	}

	p.logger.Info("planning route",
		zap.Int("stops", len(stops)),
		zap.Bool("optimize", opts.Optimize),
		zap.Bool("snap", opts.Snap),
	)

	route, err := p.routes.ComputeRoute(ctx, ordered, gateway.RouteOptions{Profile: opts.Profile, Snap: opts.Snap})
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("failed to compute route: %w", err)
	}

	waypoints := make([]models.Waypoint, len(route.Stops))
	for k, s := range route.Stops {
		info := infos[order[k]]
		wp := models.Waypoint{
			Order:                k,
			ID:                   s.ID,
			Name:                 info.name,
			Coords:               s.Coords,
			EstimatedStayMinutes: info.stay,
		}
		if k < len(route.Legs) {
			leg := route.Legs[k]
			wp.TravelToNext = &leg
		}
		waypoints[k] = wp
	}

	return &models.PlannedRoute{
		Route:     *route,
		Waypoints: waypoints,
		Summary:   summarize(waypoints, route.Legs),
	}, nil
}

// describe resolves a stop to its display name and stay time. position is
// the stop's zero-based input index.
func (p *Planner) describe(ctx context.Context, s models.Stop, position int) stopInfo {
	if s.IsOrigin() {
		return stopInfo{name: OriginName, stay: 0}
	}

	placeholder := stopInfo{name: fmt.Sprintf("Point %d", position+1), stay: DefaultStayMinutes}
	if p.destinations == nil || s.ID == "" {
		return placeholder
	}

	dest, err := p.destinations.GetDestination(ctx, s.ID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			p.logger.Warn("destination lookup failed", zap.String("id", s.ID), zap.Error(err))
		} else {
			p.logger.Debug("unknown destination id, using placeholder", zap.String("id", s.ID))
		}
		return placeholder
	}
	if dest == nil {
		return placeholder
	}

	stay := dest.EstimatedDurationMinutes
	if stay <= 0 {
		stay = DefaultStayMinutes
	}
	return stopInfo{name: dest.Name, stay: stay}
}

func summarize(waypoints []models.Waypoint, legs []models.RouteLeg) models.PlanSummary {
	var s models.PlanSummary
	for _, wp := range waypoints {
		if !models.IsOriginID(wp.ID) {
			s.TotalDestinations++
		}
		s.TotalStayMinutes += wp.EstimatedStayMinutes
	}
	for _, l := range legs {
		s.TotalTravelMinutes += l.DurationMinutes
	}
	s.TotalTravelMinutes = geo.Round(s.TotalTravelMinutes, 1)
	s.EstimatedTotalMinutes = geo.Round(s.TotalTravelMinutes+float64(s.TotalStayMinutes), 1)
	return s
}
