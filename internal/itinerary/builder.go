// Package itinerary expands a planned route into a timed day schedule.
package itinerary

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	DefaultBufferMinutes = 15
	DefaultStartTime     = "09:00"
	DefaultOriginLabel   = "Hotel"

	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

// ErrInvalidInput is returned for an empty route or an unparsable time or date
var ErrInvalidInput = errors.New("invalid itinerary input")

// Config configures a Builder. Zero values select the defaults.
type Config struct {
	BufferMinutes    int
	DefaultStartTime string
	OriginLabel      string
	Location         *time.Location
	Now              func() time.Time
}

// Builder simulates a day along a planned route. It is stateless.
type Builder struct {
	buffer       time.Duration
	defaultStart string
	originLabel  string
	loc          *time.Location
	now          func() time.Time
}

func NewBuilder(cfg Config) *Builder {
	b := &Builder{
		buffer:       time.Duration(cfg.BufferMinutes) * time.Minute,
		defaultStart: cfg.DefaultStartTime,
		originLabel:  cfg.OriginLabel,
		loc:          cfg.Location,
		now:          cfg.Now,
	}
	if cfg.BufferMinutes <= 0 {
		b.buffer = DefaultBufferMinutes * time.Minute
	}
	if b.defaultStart == "" {
		b.defaultStart = DefaultStartTime
	}
	if b.originLabel == "" {
		b.originLabel = DefaultOriginLabel
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Build runs the day simulation. startTime is "HH:MM" and date is
// "YYYY-MM-DD"; empty values use the configured start and today.
func (b *Builder) Build(route *models.PlannedRoute, startTime, date string) (*models.Itinerary, error) {
	if route == nil || len(route.Waypoints) == 0 {
		return nil, fmt.Errorf("%w: route has no waypoints", ErrInvalidInput)
	}

	if startTime == "" {
		startTime = b.defaultStart
	}
	clock, err := time.Parse(clockLayout, strings.TrimSpace(startTime))
	if err != nil {
		return nil, fmt.Errorf("%w: start time %q is not HH:MM", ErrInvalidInput, startTime)
	}

	day := b.now().In(b.loc)
	if date != "" {
		day, err = time.ParseInLocation(dateLayout, strings.TrimSpace(date), b.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidInput, date)
		}
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, b.loc)
	sim := &simulation{now: start, buffer: b.buffer}

	waypoints := route.Waypoints
	first := 0
	if isOrigin(waypoints[0]) && len(waypoints) >= 2 {
		sim.departure(b.originLabel)
		if leg := waypoints[0].TravelToNext; leg != nil {
			sim.travel(b.originLabel, waypoints[1].Name, leg)
		}
		first = 1
	}

	for i := first; i < len(waypoints); i++ {
		wp := waypoints[i]
		sim.arrival(wp.Name)
		sim.sightseeing(wp.Name, wp.EstimatedStayMinutes)

		if i < len(waypoints)-1 {
			sim.departure(wp.Name)
			if leg := wp.TravelToNext; leg != nil {
				sim.travel(wp.Name, waypoints[i+1].Name, leg)
			}
		}
	}

	return &models.Itinerary{
		Date:               start.Format(dateLayout),
		StartTime:          start.Format(clockLayout),
		EndTime:            sim.now.Format(clockLayout),
		TotalDurationHours: geo.Round(sim.now.Sub(start).Hours(), 1),
		Events:             sim.events,
		Summary:            summarize(sim.events, route.Route.DistanceKm),
	}, nil
}

// isOrigin recognizes the origin by id, display name, or a zero stay
func isOrigin(wp models.Waypoint) bool {
	if models.IsOriginID(wp.ID) {
		return true
	}
	switch strings.TrimSpace(wp.Name) {
	case "Start", "START", "スタート":
		return true
	}
	return wp.EstimatedStayMinutes == 0
}

type simulation struct {
	now    time.Time
	buffer time.Duration
	events []models.ScheduleEvent
}

func (s *simulation) departure(location string) {
	s.events = append(s.events, models.ScheduleEvent{
		Kind:        models.EventDeparture,
		Time:        s.now.Format(clockLayout),
		At:          s.now,
		Location:    location,
		Description: "Depart from " + location,
	})
}

func (s *simulation) arrival(location string) {
	s.events = append(s.events, models.ScheduleEvent{
		Kind:        models.EventArrival,
		Time:        s.now.Format(clockLayout),
		At:          s.now,
		Location:    location,
		Description: "Arrive at " + location,
	})
}

func (s *simulation) sightseeing(location string, stayMinutes int) {
	stay := float64(stayMinutes)
	s.events = append(s.events, models.ScheduleEvent{
		Kind:            models.EventSightseeing,
		Time:            s.now.Format(clockLayout),
		At:              s.now,
		Location:        location,
		Description:     "Sightseeing at " + location,
		DurationMinutes: &stay,
	})
	s.now = s.now.Add(minutes(stay))
}

// travel emits the leg and advances the clock by the leg plus the buffer
func (s *simulation) travel(from, to string, leg *models.RouteLeg) {
	duration := leg.DurationMinutes
	distance := leg.DistanceKm
	until := s.now.Add(minutes(duration))

	s.events = append(s.events, models.ScheduleEvent{
		Kind:            models.EventTravel,
		Time:            s.now.Format(clockLayout) + "-" + until.Format(clockLayout),
		At:              s.now,
		Until:           &until,
		From:            from,
		To:              to,
		Description:     fmt.Sprintf("Travel (%s km, %s min)", formatNumber(distance), formatNumber(duration)),
		DurationMinutes: &duration,
		DistanceKm:      &distance,
	})
	s.now = until.Add(s.buffer)
}

func minutes(m float64) time.Duration {
	return time.Duration(math.Round(m * float64(time.Minute)))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func summarize(events []models.ScheduleEvent, distanceKm float64) models.ItinerarySummary {
	var s models.ItinerarySummary
	for _, e := range events {
		switch e.Kind {
		case models.EventSightseeing:
			s.TotalDestinations++
			if e.DurationMinutes != nil {
				s.TotalSightseeingMinutes += *e.DurationMinutes
			}
		case models.EventTravel:
			if e.DurationMinutes != nil {
				s.TotalTravelMinutes += *e.DurationMinutes
			}
		}
	}
	s.TotalTravelMinutes = geo.Round(s.TotalTravelMinutes, 1)
	s.TotalDistanceKm = distanceKm
	return s
}
