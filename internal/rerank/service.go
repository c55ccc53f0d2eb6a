package rerank

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/logger"
	"github.com/Az-san/intern-0818-0821/internal/metrics"
)

// Service ranks with the model when available and by score otherwise.
// It never fails.
type Service struct {
	llm    Reranker
	logger *zap.Logger
}

// NewService creates a service; llm may be nil to always rank by score
func NewService(llm Reranker, log *zap.Logger) *Service {
	return &Service{llm: llm, logger: logger.OrNop(log).Named("rerank")}
}

// Enabled reports whether a model is configured
func (s *Service) Enabled() bool {
	return s.llm != nil
}

func (s *Service) Rank(ctx context.Context, req Request) (*Result, error) {
	if len(req.Candidates) == 0 {
		return &Result{Accepted: []RankedItem{}, Rejected: []RejectedItem{}, Source: SourceFallback}, nil
	}

	if s.llm == nil {
		metrics.RerankFallbacks.WithLabelValues("disabled").Inc()
		return ByScore(req), nil
	}

	result, err := s.llm.Rank(ctx, req)
	if err == nil {
		return result, nil
	}

	reason := fallbackReason(err)
	metrics.RerankFallbacks.WithLabelValues(reason).Inc()
	s.logger.Warn("llm rerank failed, ranking by score",
		zap.String("reason", reason),
		zap.Int("candidates", len(req.Candidates)),
		zap.Error(err),
	)
	return ByScore(req), nil
}

func fallbackReason(err error) string {
	var invalid *ErrInvalidResponse
	switch {
	case errors.As(err, &invalid):
		return "invalid_response"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

// ByScore accepts the top-k candidates by score, keeping input order among
// equal scores, and rejects the rest.
func ByScore(req Request) *Result {
	candidates := append(req.Candidates[:0:0], req.Candidates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	result := &Result{Accepted: []RankedItem{}, Rejected: []RejectedItem{}, Source: SourceFallback}
	limit := req.topK()
	for i, c := range candidates {
		if i >= limit {
			result.Rejected = append(result.Rejected, RejectedItem{ID: c.ID, Reasons: []string{ReasonLowScore}})
			continue
		}
		var reasons []string
		for _, f := range c.Factors {
			if f.Name != "base" && f.Value > 0 {
				reasons = append(reasons, f.Name)
			}
		}
		result.Accepted = append(result.Accepted, RankedItem{ID: c.ID, Score: c.Score, Reasons: reasons})
	}
	return result
}
