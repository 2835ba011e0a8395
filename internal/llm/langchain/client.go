// Package langchain implements the pipeline's Reasoner capability on top of
// an OpenAI-compatible chat model. Every call passes the rate limiter first;
// a refused reservation surfaces as the rate-limited sentinel so escalation
// steps can skip instead of fail.
package langchain

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/ratelimit"
)

type Client struct {
	cfg     Config
	model   llms.Model
	limiter *ratelimit.Limiter
	log     *slog.Logger
}

// NewClient builds the chat model. A missing API key is not an error here:
// the client is still constructed and every call reports unavailable, which
// the pipeline degrades around.
func NewClient(cfg Config, limiter *ratelimit.Limiter, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	c := &Client{cfg: cfg, limiter: limiter, log: logger}
	if cfg.APIKey == "" {
		logger.Info("llm.disabled", "reason", "no api key configured")
		return c, nil
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, common.WrapError(err, "create chat model")
	}
	c.model = model
	logger.Info("llm.ready", "model", cfg.Model)
	return c, nil
}

// Available reports whether the client can make calls at all.
func (c *Client) Available() bool {
	return c != nil && c.model != nil
}

// Complete sends a text-only prompt and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	parts := []llms.ContentPart{llms.TextPart(prompt)}
	return c.generate(ctx, parts, ratelimit.EstimateTokens(prompt))
}

// CompleteWithImage sends a prompt plus one image attached as a data URL.
func (c *Client) CompleteWithImage(ctx context.Context, prompt, imageDataURL string) (string, error) {
	parts := []llms.ContentPart{
		llms.TextPart(prompt),
		llms.ImageURLPart(imageDataURL),
	}
	// images cost far more than their URL length; bill a flat surcharge
	return c.generate(ctx, parts, ratelimit.EstimateTokens(prompt)+3000)
}

func (c *Client) generate(ctx context.Context, parts []llms.ContentPart, estimate int) (string, error) {
	if !c.Available() {
		return "", common.ErrReasoningUnavailable
	}

	rid := uuid.New().String()
	if c.limiter != nil && !c.limiter.Acquire(estimate) {
		c.log.Warn("llm.call.rate_limited", "req_id", rid, "estimated_tokens", estimate)
		return "", common.ErrRateLimited
	}

	start := time.Now()
	c.log.Info("llm.call.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"parts", len(parts),
		"estimated_tokens", estimate,
	)

	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	callOpts := []llms.CallOption{llms.WithTemperature(float64(c.cfg.Temperature))}
	if c.cfg.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.cfg.MaxTokens))
	}

	completion, err := c.model.GenerateContent(callCtx, []llms.MessageContent{
		{Role: schema.ChatMessageTypeHuman, Parts: parts},
	}, callOpts...)
	if err != nil {
		c.log.Error("llm.call.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.WrapError(common.ErrReasoningUnavailable, err.Error())
	}
	if len(completion.Choices) == 0 {
		c.log.Error("llm.call.no_choices", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", common.WrapError(common.ErrReasoningMalformed, "no choices in completion")
	}

	choice := completion.Choices[0]
	if c.limiter != nil {
		if info := choice.GenerationInfo; info != nil {
			if v, ok := info["TotalTokens"].(int); ok {
				c.limiter.RecordActual(estimate, v)
			}
		}
	}

	c.log.Info("llm.call.ok",
		"req_id", rid,
		"response_chars", len(choice.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return choice.Content, nil
}
