package dataload

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

// LoadDestinationsFile reads the destination catalog from path
func LoadDestinationsFile(path string) ([]models.Destination, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDestinations(f)
}

// LoadDestinations parses destination rows. Rows without an id are skipped;
// a row with unusable coordinates fails the whole load.
func LoadDestinations(r io.Reader) ([]models.Destination, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{"destination_id", "name", "latitude", "longitude"} {
		if !t.has(col) {
			return nil, fmt.Errorf("destination csv is missing column %q", col)
		}
	}

	destinations := make([]models.Destination, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2

		id := t.get(row, "destination_id")
		if id == "" {
			continue
		}

		d, err := parseDestination(t, row)
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", line, id, err)
		}
		destinations = append(destinations, d)
	}
	return destinations, nil
}

func parseDestination(t *table, row []string) (models.Destination, error) {
	d := models.Destination{
		ID:               t.get(row, "destination_id"),
		Name:             t.get(row, "name"),
		Category:         t.get(row, "category"),
		Description:      t.get(row, "description"),
		Tags:             splitList(t.get(row, "tags")),
		Indoor:           parseBool(t.get(row, "indoor")),
		BarrierFree:      parseBool(t.get(row, "barrier_free")),
		StrollerFriendly: parseBool(t.get(row, "stroller_friendly")),
		AdultOnly:        strings.EqualFold(t.get(row, "age_preference"), "adult"),
	}

	lat, err := strconv.ParseFloat(t.get(row, "latitude"), 64)
	if err != nil {
		return d, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(t.get(row, "longitude"), 64)
	if err != nil {
		return d, fmt.Errorf("invalid longitude: %w", err)
	}
	d.Coords = models.Coordinates{Lat: lat, Lng: lng}
	if !geo.ValidCoordinates(d.Coords) {
		return d, fmt.Errorf("coordinates out of range: %f,%f", lat, lng)
	}

	if v := t.get(row, "estimated_duration_minutes", "estimated_duration"); v != "" {
		n, err := optionalInt(v)
		if err != nil {
			return d, fmt.Errorf("invalid estimated duration %q", v)
		}
		d.EstimatedDurationMinutes = *n
	}

	for _, f := range []struct {
		dst   **int
		names []string
	}{
		{&d.PriceMin, []string{"price_min", "price_min_yen"}},
		{&d.PriceMax, []string{"price_max", "price_max_yen"}},
		{&d.CrowdLevel, []string{"crowd_level"}},
	} {
		v, err := optionalInt(t.get(row, f.names...))
		if err != nil {
			return d, fmt.Errorf("invalid %s: %w", f.names[0], err)
		}
		*f.dst = v
	}

	return d, nil
}
