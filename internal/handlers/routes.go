package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/itinerary"
	"github.com/Az-san/intern-0818-0821/internal/models"
	"github.com/Az-san/intern-0818-0821/internal/routing"
)

// StopRequest names a stop. Lat/Lng may be omitted for catalog destinations.
type StopRequest struct {
	ID  string   `json:"id"`
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type RouteRequest struct {
	Stops         []StopRequest `json:"stops" binding:"required"`
	Optimize      bool          `json:"optimize"`
	Snap          bool          `json:"snap"`
	Profile       string        `json:"profile"`
	IncludeOrigin bool          `json:"include_origin"`
}

type ItineraryRequest struct {
	Route     *models.PlannedRoute `json:"route" binding:"required"`
	StartTime string               `json:"start_time"`
	Date      string               `json:"date"`
}

// HandlePlanRoute handles POST /api/v1/route
func (h *Handler) HandlePlanRoute(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body: "+err.Error())
		return
	}

	stops, err := h.resolveStops(c, req.Stops)
	if err != nil {
		if errors.Is(err, errBadStop) {
			h.handleValidationError(c, err.Error())
		} else {
			h.handleInternalError(c, err)
		}
		return
	}

	if req.IncludeOrigin {
		if h.Origin == nil {
			h.handleValidationError(c, "include_origin requested but no hotel origin is configured")
			return
		}
		if len(stops) == 0 || !stops[0].IsOrigin() {
			stops = append([]models.Stop{*h.Origin}, stops...)
		}
	}

	planned, err := h.Planner.Plan(c.Request.Context(), stops, routing.PlanOptions{
		Optimize: req.Optimize,
		Profile:  req.Profile,
		Snap:     req.Snap,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.log().Info("route planned",
		zap.Int("stops", len(stops)),
		zap.Float64("distance_km", planned.Route.DistanceKm),
		zap.Bool("degraded", planned.Route.Degraded),
	)
	c.JSON(http.StatusOK, planned)
}

var errBadStop = errors.New("invalid stop")

// resolveStops fills missing coordinates from the catalog and the origin
func (h *Handler) resolveStops(c *gin.Context, reqs []StopRequest) ([]models.Stop, error) {
	stops := make([]models.Stop, 0, len(reqs))
	for i, r := range reqs {
		id := strings.TrimSpace(r.ID)

		if r.Lat != nil && r.Lng != nil {
			coords := models.Coordinates{Lat: *r.Lat, Lng: *r.Lng}
			if !geo.ValidCoordinates(coords) {
				return nil, fmt.Errorf("%w: stop %d coordinates out of range", errBadStop, i)
			}
			stops = append(stops, models.Stop{ID: id, Coords: coords})
			continue
		}
		if r.Lat != nil || r.Lng != nil {
			return nil, fmt.Errorf("%w: stop %d needs both lat and lng", errBadStop, i)
		}

		switch {
		case id == "":
			return nil, fmt.Errorf("%w: stop %d has neither an id nor coordinates", errBadStop, i)
		case models.IsOriginID(id):
			if h.Origin == nil {
				return nil, fmt.Errorf("%w: stop %d refers to the origin but none is configured", errBadStop, i)
			}
			stops = append(stops, *h.Origin)
		default:
			dest, err := h.Destinations.GetDestination(c.Request.Context(), id)
			if errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("%w: stop %d: unknown destination %q", errBadStop, i, id)
			}
			if err != nil {
				return nil, err
			}
			stops = append(stops, models.Stop{ID: dest.ID, Coords: dest.GetCoords()})
		}
	}
	return stops, nil
}

// HandleBuildItinerary handles POST /api/v1/itinerary. ?format=text returns
// the plain-text export.
func (h *Handler) HandleBuildItinerary(c *gin.Context) {
	var req ItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body: "+err.Error())
		return
	}

	it, err := h.Itineraries.Build(req.Route, req.StartTime, req.Date)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, itinerary.ExportText(it))
		return
	}
	c.JSON(http.StatusOK, it)
}
