package routing

import (
	"context"
	"errors"

	"github.com/Az-san/intern-0818-0821/internal/gateway"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

// RouteComputer obtains a route through stops in the given order
type RouteComputer interface {
	ComputeRoute(ctx context.Context, stops []models.Stop, opts gateway.RouteOptions) (*models.Route, error)
}

// DestinationLookup resolves stop identifiers against the reference catalog
type DestinationLookup interface {
	GetDestination(ctx context.Context, id string) (*models.Destination, error)
}

// PlanOptions controls stop ordering and the routing profile
type PlanOptions struct {
	Optimize bool
	Profile  string
	Snap     bool
}

// ErrInvalidInput is returned when the stops cannot form a route
var ErrInvalidInput = errors.New("invalid planning input")
