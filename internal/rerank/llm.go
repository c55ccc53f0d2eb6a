package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/logger"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second

	systemPrompt = "You are a travel planner reranker. " +
		"Rank items strictly based on constraints (budget, weather, season, accessibility). " +
		"Return only JSON with fields: accepted[], rejected[]."
)

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMClient asks a chat-completions endpoint to rank candidates
type LLMClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

func NewLLMClient(cfg LLMConfig, log *zap.Logger) *LLMClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &LLMClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.OrNop(log).Named("llm"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type candidateBrief struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Indoor           bool   `json:"indoor"`
	BarrierFree      bool   `json:"barrier_free"`
	StrollerFriendly bool   `json:"stroller_friendly"`
	PriceMin         *int   `json:"price_min,omitempty"`
	CrowdLevel       *int   `json:"crowd_level,omitempty"`
	DurationMinutes  int    `json:"duration_min"`
}

type guestBrief struct {
	ID            string                    `json:"id,omitempty"`
	Party         models.PartyComposition   `json:"party"`
	Accessibility models.AccessibilityNeeds `json:"accessibility"`
	Interests     []string                  `json:"interests"`
}

type promptPayload struct {
	Guest        *guestBrief      `json:"guest,omitempty"`
	Constraints  Constraints      `json:"constraints"`
	TopK         int              `json:"top_k"`
	Candidates   []candidateBrief `json:"candidates"`
	OutputSchema json.RawMessage  `json:"output_schema"`
}

// Rank sends one chat completion and validates the answer. Ids that are not
// among the candidates are dropped; a response left with no accepted items
// is an error.
func (c *LLMClient) Rank(ctx context.Context, req Request) (*Result, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("chat endpoint returned HTTP %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, &ErrInvalidResponse{Reason: "chat envelope is not JSON"}
	}
	if len(chat.Choices) == 0 {
		return nil, &ErrInvalidResponse{Reason: "no choices"}
	}

	content := chat.Choices[0].Message.Content
	if err := validateDocument(content); err != nil {
		return nil, err
	}

	var out Result
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, &ErrInvalidResponse{Reason: err.Error()}
	}

	result := filterKnown(out, req)
	if len(result.Accepted) == 0 {
		return nil, &ErrInvalidResponse{Reason: "no accepted candidate is known"}
	}

	c.logger.Debug("llm rerank completed",
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Duration("latency", time.Since(start)),
	)
	return result, nil
}

func buildPrompt(req Request) (string, error) {
	payload := promptPayload{
		Constraints:  req.Constraints,
		TopK:         req.topK(),
		Candidates:   make([]candidateBrief, len(req.Candidates)),
		OutputSchema: json.RawMessage(resultSchema),
	}
	if g := req.Guest; g != nil {
		payload.Guest = &guestBrief{ID: g.ID, Party: g.Party, Accessibility: g.Accessibility, Interests: g.Interests}
	}
	for i, c := range req.Candidates {
		payload.Candidates[i] = candidateBrief{
			ID:               c.ID,
			Name:             c.Name,
			Category:         c.Category,
			Indoor:           c.Indoor,
			BarrierFree:      c.BarrierFree,
			StrollerFriendly: c.StrollerFriendly,
			PriceMin:         c.PriceMin,
			CrowdLevel:       c.CrowdLevel,
			DurationMinutes:  c.EstimatedDurationMinutes,
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}
	return string(b), nil
}

// filterKnown keeps candidate ids only, once each, and moves accepted items
// beyond top-k to rejected.
func filterKnown(out Result, req Request) *Result {
	known := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		known[c.ID] = true
	}
	seen := make(map[string]bool)

	result := &Result{Accepted: []RankedItem{}, Rejected: []RejectedItem{}, Source: SourceLLM}
	limit := req.topK()

	for _, item := range out.Accepted {
		if !known[item.ID] || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		if len(result.Accepted) < limit {
			result.Accepted = append(result.Accepted, item)
		} else {
			result.Rejected = append(result.Rejected, RejectedItem{ID: item.ID, Reasons: []string{ReasonLowScore}})
		}
	}
	for _, item := range out.Rejected {
		if !known[item.ID] || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		result.Rejected = append(result.Rejected, item)
	}
	return result
}
