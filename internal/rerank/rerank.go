// Package rerank reorders scored candidates for a guest, through an
// OpenAI-compatible chat model when one is configured and by score otherwise.
package rerank

import (
	"context"
	"fmt"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	DefaultTopK = 10

	SourceLLM      = "llm"
	SourceFallback = "fallback"

	ReasonLowScore = "low_score"
)

// Reranker orders candidates for a guest
type Reranker interface {
	Rank(ctx context.Context, req Request) (*Result, error)
}

// Constraints are the per-request conditions passed along with the guest
type Constraints struct {
	Weather       models.Weather       `json:"weather"`
	Season        models.Season        `json:"season"`
	Budget        *int                 `json:"budget,omitempty"`
	CrowdAversion models.CrowdAversion `json:"crowd_aversion,omitempty"`
}

type Request struct {
	Guest       *models.GuestProfile
	Constraints Constraints
	Candidates  []models.ScoredDestination
	TopK        int
}

func (r Request) topK() int {
	if r.TopK <= 0 {
		return DefaultTopK
	}
	return r.TopK
}

type RankedItem struct {
	ID      string   `json:"id"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

type RejectedItem struct {
	ID      string   `json:"id"`
	Reasons []string `json:"reasons"`
}

type Result struct {
	Accepted []RankedItem   `json:"accepted"`
	Rejected []RejectedItem `json:"rejected"`
	Source   string         `json:"source"`
}

// ErrInvalidResponse is returned when the model output cannot be used
type ErrInvalidResponse struct {
	Reason string
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid rerank response: %s", e.Reason)
}
