package routing

import (
	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

// NearestNeighborOrder keeps stops[0] in place and orders the rest by
// repeatedly visiting the closest unvisited stop. Ties go to the stop that
// appears first in the input. It returns a new slice.
func NearestNeighborOrder(stops []models.Stop) []models.Stop {
	ordered := make([]models.Stop, 0, len(stops))
	for _, i := range nearestNeighborIndices(stops) {
		ordered = append(ordered, stops[i])
	}
	return ordered
}

// nearestNeighborIndices returns the greedy visiting order as input positions
func nearestNeighborIndices(stops []models.Stop) []int {
	if len(stops) == 0 {
		return nil
	}

	order := make([]int, 0, len(stops))
	order = append(order, 0)

	remaining := make([]int, 0, len(stops)-1)
	for i := 1; i < len(stops); i++ {
		remaining = append(remaining, i)
	}
	current := stops[0].Coords

	for len(remaining) > 0 {
		best := 0
		bestDist := geo.HaversineKm(current, stops[remaining[0]].Coords)
		for k := 1; k < len(remaining); k++ {
			if d := geo.HaversineKm(current, stops[remaining[k]].Coords); d < bestDist {
				best, bestDist = k, d
			}
		}

		next := remaining[best]
		order = append(order, next)
		current = stops[next].Coords
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return order
}
