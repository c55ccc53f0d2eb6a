package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/geocoding"
)

const (
	minSearchRunes     = 2
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

// HandlePlaceSearch handles GET /api/v1/places/search. Lookup failures
// answer with an empty list.
func (h *Handler) HandlePlaceSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	empty := []geocoding.GeocodingResult{}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.handleValidationError(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	if h.Geocoder == nil || utf8.RuneCountInString(query) < minSearchRunes {
		c.JSON(http.StatusOK, empty)
		return
	}

	results, err := h.Geocoder.Search(c.Request.Context(), query, limit)
	if err != nil {
		h.log().Warn("place search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusOK, empty)
		return
	}
	if results == nil {
		results = empty
	}
	c.JSON(http.StatusOK, results)
}
