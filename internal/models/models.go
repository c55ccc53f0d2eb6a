package models

import (
	"math"
	"strings"
	"time"
)

// OriginID is the reserved stop identifier for the guest's starting location
const OriginID = "START"

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RoundCoordinate rounds a coordinate component to 5 decimal places (~1m)
func RoundCoordinate(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// Destination is an immutable sightseeing spot from the reference catalog
type Destination struct {
	ID                       string      `json:"id"`
	Name                     string      `json:"name"`
	Coords                   Coordinates `json:"coordinates"`
	Category                 string      `json:"category"`
	Description              string      `json:"description,omitempty"`
	Tags                     []string    `json:"tags"`
	EstimatedDurationMinutes int         `json:"estimated_duration_minutes"`
	PriceMin                 *int        `json:"price_min"`
	PriceMax                 *int        `json:"price_max"`
	CrowdLevel               *int        `json:"crowd_level"`
	Indoor                   bool        `json:"indoor"`
	BarrierFree              bool        `json:"barrier_free"`
	StrollerFriendly         bool        `json:"stroller_friendly"`
	AdultOnly                bool        `json:"adult_only"`
}

// GetCoords returns the coordinates of the destination
func (d *Destination) GetCoords() Coordinates {
	return d.Coords
}

// PartyComposition counts the people travelling with the guest, guest included
type PartyComposition struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Seniors  int `json:"seniors"`
}

// AccessibilityNeeds flags accommodations the party requires
type AccessibilityNeeds struct {
	Stroller   bool `json:"stroller"`
	Wheelchair bool `json:"wheelchair"`
}

// Any reports whether at least one accommodation is needed
func (a AccessibilityNeeds) Any() bool {
	return a.Stroller || a.Wheelchair
}

// CrowdAversion is the guest's tolerance for busy places
type CrowdAversion string

const (
	CrowdAversionNone   CrowdAversion = "none"
	CrowdAversionMedium CrowdAversion = "medium"
	CrowdAversionHigh   CrowdAversion = "high"
)

// ParseCrowdAversion maps free input onto a known aversion level
func ParseCrowdAversion(s string) CrowdAversion {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "medium", "mid":
		return CrowdAversionMedium
	case "high":
		return CrowdAversionHigh
	default:
		return CrowdAversionNone
	}
}

// GuestProfile is the read-only view of a hotel guest used for scoring
type GuestProfile struct {
	ID            string             `json:"id"`
	Age           int                `json:"age"`
	Interests     []string           `json:"interests"`
	Party         PartyComposition   `json:"party"`
	Accessibility AccessibilityNeeds `json:"accessibility"`
	Budget        *int               `json:"budget"`
	CrowdAversion CrowdAversion      `json:"crowd_aversion"`
	Notes         string             `json:"notes,omitempty"`
}

type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherRainy  Weather = "rainy"
	WeatherCloudy Weather = "cloudy"
)

type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

// Context holds the day conditions a recommendation is made under
type Context struct {
	Weather Weather `json:"weather"`
	Season  Season  `json:"season"`
}

// Normalized fills empty or unknown values with sunny/spring
func (c Context) Normalized() Context {
	out := Context{
		Weather: Weather(strings.ToLower(strings.TrimSpace(string(c.Weather)))),
		Season:  Season(strings.ToLower(strings.TrimSpace(string(c.Season)))),
	}
	switch out.Weather {
	case WeatherSunny, WeatherRainy, WeatherCloudy:
	default:
		out.Weather = WeatherSunny
	}
	switch out.Season {
	case SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter:
	case "fall":
		out.Season = SeasonAutumn
	default:
		out.Season = SeasonSpring
	}
	return out
}

// Factor is one additive contribution to a recommendation score
type Factor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ScoredDestination is a destination with its computed relevance
type ScoredDestination struct {
	Destination
	Score   float64  `json:"score"`
	Factors []Factor `json:"factors"`
}

// Stop is an ordering-neutral routing input
type Stop struct {
	ID     string      `json:"id"`
	Coords Coordinates `json:"coordinates"`
}

// IsOrigin reports whether the stop is the origin sentinel
func (s Stop) IsOrigin() bool {
	return IsOriginID(s.ID)
}

// IsOriginID reports whether id names the origin sentinel
func IsOriginID(id string) bool {
	return strings.EqualFold(strings.TrimSpace(id), OriginID)
}

// RouteLeg connects Stops[Index] to Stops[Index+1]
type RouteLeg struct {
	Index           int     `json:"index"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// Route is a normalized multi-stop route
type Route struct {
	Stops           []Stop        `json:"stops"`
	Geometry        []Coordinates `json:"geometry"`
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes float64       `json:"duration_minutes"`
	Legs            []RouteLeg    `json:"legs"`
	Backend         *string       `json:"backend"`
	Degraded        bool          `json:"degraded"`
	LatencyMs       *int64        `json:"latency_ms"`
}

// Waypoint is a route stop enriched with display metadata
type Waypoint struct {
	Order                int         `json:"order"`
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Coords               Coordinates `json:"coordinates"`
	EstimatedStayMinutes int         `json:"estimated_stay_minutes"`
	TravelToNext         *RouteLeg   `json:"travel_to_next"`
}

// PlanSummary aggregates a planned route
type PlanSummary struct {
	TotalDestinations     int     `json:"total_destinations"`
	TotalTravelMinutes    float64 `json:"total_travel_minutes"`
	TotalStayMinutes      int     `json:"total_stay_minutes"`
	EstimatedTotalMinutes float64 `json:"estimated_total_minutes"`
}

// PlannedRoute is the route planner output
type PlannedRoute struct {
	Route     Route       `json:"route"`
	Waypoints []Waypoint  `json:"waypoints"`
	Summary   PlanSummary `json:"summary"`
}

type EventKind string

const (
	EventDeparture   EventKind = "departure"
	EventTravel      EventKind = "travel"
	EventArrival     EventKind = "arrival"
	EventSightseeing EventKind = "sightseeing"
)

// ScheduleEvent is one entry of an itinerary timeline
type ScheduleEvent struct {
	Kind            EventKind  `json:"kind"`
	Time            string     `json:"time"`
	At              time.Time  `json:"at"`
	Until           *time.Time `json:"until"`
	Location        string     `json:"location,omitempty"`
	From            string     `json:"from,omitempty"`
	To              string     `json:"to,omitempty"`
	Description     string     `json:"description"`
	DurationMinutes *float64   `json:"duration_minutes"`
	DistanceKm      *float64   `json:"distance_km"`
}

// ItinerarySummary aggregates the emitted events
type ItinerarySummary struct {
	TotalDestinations       int     `json:"total_destinations"`
	TotalTravelMinutes      float64 `json:"total_travel_minutes"`
	TotalSightseeingMinutes float64 `json:"total_sightseeing_minutes"`
	TotalDistanceKm         float64 `json:"total_distance_km"`
}

// Itinerary is a timed day plan
type Itinerary struct {
	Date               string           `json:"date"`
	StartTime          string           `json:"start_time"`
	EndTime            string           `json:"end_time"`
	TotalDurationHours float64          `json:"total_duration_hours"`
	Events             []ScheduleEvent  `json:"events"`
	Summary            ItinerarySummary `json:"summary"`
}
