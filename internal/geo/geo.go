// Package geo provides great-circle helpers shared by stop ordering and the
// straight-line routing fallback.
package geo

import (
	"math"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0

	// DefaultFallbackSpeedKmh is the nominal driving speed used when no
	// routing backend answers.
	DefaultFallbackSpeedKmh = 40.0
)

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(a, b models.Coordinates) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLng*sinLng

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// PathKm returns the summed great-circle length of an ordered path.
func PathKm(points []models.Coordinates) float64 {
	total := 0.0
	for i := 0; i+1 < len(points); i++ {
		total += HaversineKm(points[i], points[i+1])
	}
	return total
}

// TravelMinutes converts a distance into minutes at a constant speed.
func TravelMinutes(km, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultFallbackSpeedKmh
	}
	return km / speedKmh * 60
}

// ValidCoordinates reports whether c lies within WGS-84 bounds.
func ValidCoordinates(c models.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
