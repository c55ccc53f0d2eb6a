package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if h.Store != nil {
		if err := h.Store.HealthCheck(ctx); err != nil {
			h.log().Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}

	count, err := h.Destinations.Count(ctx)
	if err != nil {
		h.handleInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"destinations": count,
		"backends":     h.Backends,
		"origin":       h.Origin,
	})
}

// HandleListDestinations handles GET /api/v1/destinations. With guest_id the
// catalog is scored for that guest and returned best first.
func (h *Handler) HandleListDestinations(c *gin.Context) {
	ctx := c.Request.Context()
	category := strings.TrimSpace(c.Query("category"))

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.handleValidationError(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	dests, err := h.Destinations.List(ctx, category)
	if err != nil {
		h.handleInternalError(c, err)
		return
	}

	guestID := strings.TrimSpace(c.Query("guest_id"))
	if guestID == "" {
		if limit > 0 && len(dests) > limit {
			dests = dests[:limit]
		}
		c.JSON(http.StatusOK, gin.H{"destinations": dests, "count": len(dests)})
		return
	}

	guest, err := h.Guests.GetGuest(ctx, guestID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	dayCtx := models.Context{
		Weather: models.Weather(c.Query("weather")),
		Season:  models.Season(c.Query("season")),
	}.Normalized()

	scored := h.Scorer.SortByScore(guest, dayCtx, dests)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	h.log().Debug("ranked destinations",
		zap.String("guest_id", guestID),
		zap.String("weather", string(dayCtx.Weather)),
		zap.String("season", string(dayCtx.Season)),
		zap.Int("results", len(scored)),
	)

	c.JSON(http.StatusOK, gin.H{
		"guest_id":     guestID,
		"context":      dayCtx,
		"destinations": scored,
		"count":        len(scored),
	})
}

// HandleGetDestination handles GET /api/v1/destinations/:id
func (h *Handler) HandleGetDestination(c *gin.Context) {
	dest, err := h.Destinations.GetDestination(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dest)
}

// HandleGetGuest handles GET /api/v1/guests/:id
func (h *Handler) HandleGetGuest(c *gin.Context) {
	guest, err := h.Guests.GetGuest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, guest)
}
