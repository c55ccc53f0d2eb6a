package itinerary

import (
	"fmt"
	"strings"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

// ExportText renders an itinerary as a plain-text handout
func ExportText(it *models.Itinerary) string {
	if it == nil {
		return "Itinerary could not be generated"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Itinerary - %s\n", it.Date)
	sb.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&sb, "Start: %s\n", it.StartTime)
	fmt.Fprintf(&sb, "End: %s\n", it.EndTime)
	fmt.Fprintf(&sb, "Total duration: %s hours\n\n", formatNumber(it.TotalDurationHours))

	for _, e := range it.Events {
		switch e.Kind {
		case models.EventSightseeing:
			fmt.Fprintf(&sb, "%s - %s\n", e.Time, e.Location)
			fmt.Fprintf(&sb, "  %s (%s min)\n\n", e.Description, formatNumber(deref(e.DurationMinutes)))
		case models.EventTravel:
			fmt.Fprintf(&sb, "%s - Travel\n", e.Time)
			fmt.Fprintf(&sb, "  %s -> %s\n", e.From, e.To)
			fmt.Fprintf(&sb, "  Distance: %s km, Time: %s min\n\n", formatNumber(deref(e.DistanceKm)), formatNumber(deref(e.DurationMinutes)))
		}
	}

	fmt.Fprintf(&sb, "Destinations: %d, travel %s min, sightseeing %s min, %s km\n",
		it.Summary.TotalDestinations,
		formatNumber(it.Summary.TotalTravelMinutes),
		formatNumber(it.Summary.TotalSightseeingMinutes),
		formatNumber(it.Summary.TotalDistanceKm),
	)
	return sb.String()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
