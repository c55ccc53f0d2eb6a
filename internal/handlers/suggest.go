package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/models"
	"github.com/Az-san/intern-0818-0821/internal/rerank"
)

type SuggestRequest struct {
	GuestID       string         `json:"guest_id" binding:"required"`
	Context       models.Context `json:"context"`
	Budget        *int           `json:"budget"`
	CrowdAversion string         `json:"crowd_aversion"`
	Candidates    []string       `json:"candidates"`
	TopK          int            `json:"top_k"`
}

type SuggestResponse struct {
	GuestID string         `json:"guest_id"`
	Context models.Context `json:"context"`
	*rerank.Result
}

// HandleSuggest handles POST /api/v1/suggest. Request budget and crowd
// aversion override the stored profile for this call only.
func (h *Handler) HandleSuggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body: "+err.Error())
		return
	}
	if req.TopK < 0 {
		h.handleValidationError(c, "top_k cannot be negative")
		return
	}
	ctx := c.Request.Context()

	stored, err := h.Guests.GetGuest(ctx, strings.TrimSpace(req.GuestID))
	if err != nil {
		h.handleError(c, err)
		return
	}
	guest := *stored
	if req.Budget != nil {
		guest.Budget = req.Budget
	}
	if req.CrowdAversion != "" {
		guest.CrowdAversion = models.ParseCrowdAversion(req.CrowdAversion)
	}

	var dests []models.Destination
	if len(req.Candidates) > 0 {
		dests, err = h.Destinations.GetByIDs(ctx, req.Candidates)
	} else {
		dests, err = h.Destinations.List(ctx, "")
	}
	if err != nil {
		h.handleInternalError(c, err)
		return
	}

	dayCtx := req.Context.Normalized()
	rankReq := rerank.Request{
		Guest: &guest,
		Constraints: rerank.Constraints{
			Weather:       dayCtx.Weather,
			Season:        dayCtx.Season,
			Budget:        guest.Budget,
			CrowdAversion: guest.CrowdAversion,
		},
		Candidates: h.Scorer.SortByScore(&guest, dayCtx, dests),
		TopK:       req.TopK,
	}

	var result *rerank.Result
	if h.Reranker != nil {
		result, err = h.Reranker.Rank(ctx, rankReq)
		if err != nil {
			h.handleInternalError(c, err)
			return
		}
	} else {
		result = rerank.ByScore(rankReq)
	}

	h.log().Info("suggestions ranked",
		zap.String("guest_id", guest.ID),
		zap.String("source", result.Source),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("rejected", len(result.Rejected)),
	)
	c.JSON(http.StatusOK, SuggestResponse{GuestID: guest.ID, Context: dayCtx, Result: result})
}
