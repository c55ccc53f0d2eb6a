// Package handlers exposes the planner over a JSON HTTP API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/geocoding"
	"github.com/Az-san/intern-0818-0821/internal/itinerary"
	"github.com/Az-san/intern-0818-0821/internal/logger"
	"github.com/Az-san/intern-0818-0821/internal/models"
	"github.com/Az-san/intern-0818-0821/internal/rerank"
	"github.com/Az-san/intern-0818-0821/internal/routing"
)

// Error codes
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Scorer ranks destinations for a guest
type Scorer interface {
	SortByScore(guest *models.GuestProfile, ctx models.Context, dests []models.Destination) []models.ScoredDestination
}

type RoutePlanner interface {
	Plan(ctx context.Context, stops []models.Stop, opts routing.PlanOptions) (*models.PlannedRoute, error)
}

type ItineraryBuilder interface {
	Build(route *models.PlannedRoute, startTime, date string) (*models.Itinerary, error)
}

// Handler provides the HTTP endpoints and their dependencies. Origin,
// Geocoder and Reranker may be nil.
type Handler struct {
	Store        HealthChecker
	Destinations database.DestinationRepository
	Guests       database.GuestRepository
	Scorer       Scorer
	Planner      RoutePlanner
	Itineraries  ItineraryBuilder
	Reranker     rerank.Reranker
	Geocoder     geocoding.Geocoder
	Origin       *models.Stop
	Backends     []string
	Logger       *zap.Logger
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RegisterRoutes mounts every endpoint under /api/v1
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/v1")
	{
		api.GET("/health", h.HandleHealthCheck)

		api.GET("/destinations", h.HandleListDestinations)
		api.GET("/destinations/:id", h.HandleGetDestination)
		api.GET("/guests/:id", h.HandleGetGuest)

		api.POST("/route", h.HandlePlanRoute)
		api.POST("/itinerary", h.HandleBuildItinerary)
		api.POST("/suggest", h.HandleSuggest)

		api.GET("/places/search", h.HandlePlaceSearch)
	}
}

func (h *Handler) log() *zap.Logger {
	return logger.OrNop(h.Logger).Named("http")
}

func (h *Handler) writeError(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func (h *Handler) handleNotFound(c *gin.Context, message string) {
	h.writeError(c, http.StatusNotFound, CodeNotFound, message, nil)
}

func (h *Handler) handleValidationError(c *gin.Context, message string) {
	h.writeError(c, http.StatusBadRequest, CodeValidation, message, nil)
}

func (h *Handler) handleInternalError(c *gin.Context, err error) {
	h.log().Error("internal error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	h.writeError(c, http.StatusInternalServerError, CodeInternal, "An error occurred. Please try again.", nil)
}

// handleError maps package sentinels onto the error envelope
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.handleNotFound(c, err.Error())
	case errors.Is(err, routing.ErrInvalidInput), errors.Is(err, itinerary.ErrInvalidInput):
		h.handleValidationError(c, err.Error())
	default:
		h.handleInternalError(c, err)
	}
}
