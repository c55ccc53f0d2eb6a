package geocoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

// Hotel describes the day's starting point. Explicit coordinates win over
// the address.
type Hotel struct {
	Name    string
	Address string
	Coords  *models.Coordinates
}

// ResolveOrigin returns the hotel as the origin stop, geocoding its address
// when no coordinates are configured.
func ResolveOrigin(ctx context.Context, g Geocoder, hotel Hotel, maxRetries int) (models.Stop, error) {
	if hotel.Coords != nil {
		if !geo.ValidCoordinates(*hotel.Coords) {
			return models.Stop{}, fmt.Errorf("hotel coordinates out of range: %f,%f", hotel.Coords.Lat, hotel.Coords.Lng)
		}
		return models.Stop{ID: models.OriginID, Coords: *hotel.Coords}, nil
	}

	if hotel.Address == "" {
		return models.Stop{}, errors.New("hotel has neither coordinates nor an address")
	}
	if g == nil {
		return models.Stop{}, errors.New("hotel address given but no geocoder configured")
	}

	if maxRetries < 1 {
		maxRetries = 1
	}
	result, err := g.GeocodeWithRetry(ctx, hotel.Address, maxRetries)
	if err != nil {
		return models.Stop{}, fmt.Errorf("failed to resolve hotel address: %w", err)
	}
	return models.Stop{ID: models.OriginID, Coords: result.Coords}, nil
}
