package database

import (
	"context"
	"time"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

// DataStore is the interface for reference-data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Destinations() DestinationRepository
	Guests() GuestRepository
	RouteCache() RouteCacheRepository
}

// DestinationRepository gives read access to the destination catalog.
// GetDestination returns ErrNotFound for unknown ids.
type DestinationRepository interface {
	List(ctx context.Context, category string) ([]models.Destination, error)
	GetDestination(ctx context.Context, id string) (*models.Destination, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Destination, error)
	Count(ctx context.Context) (int, error)
}

// GuestRepository gives read access to guest profiles.
// GetGuest returns ErrNotFound for unknown ids.
type GuestRepository interface {
	List(ctx context.Context) ([]models.GuestProfile, error)
	GetGuest(ctx context.Context, id string) (*models.GuestProfile, error)
}

// RouteCacheRepository caches live routing answers. Get returns nil, nil on a miss.
type RouteCacheRepository interface {
	Get(ctx context.Context, key string) (*models.Route, error)
	Set(ctx context.Context, key string, route *models.Route, ttl time.Duration) error
}
