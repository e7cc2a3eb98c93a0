package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient provides access to Anthropic's Messages API. It is
// selected instead of Client when a model name carries the "claude-"
// prefix (see NewClientFor), giving C6 and C9 a second concrete backend.
type AnthropicClient struct {
	client   *anthropic.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

// NewAnthropicClient creates a new Anthropic-backed LLM client.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for anthropic backend")
	}

	opts := []anthropic.ClientOption{}
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicClient{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logger.Named("llm.anthropic"),
	}, nil
}

// GenerateResponse generates a chat completion response with usage stats.
// jsonMode is enforced by instruction only: the Messages API this client
// targets has no structured-output toggle, so the system message is
// appended with an explicit "respond with JSON only" directive and the
// caller still runs the response through ExtractJSON.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
	maxTokens int,
	jsonMode bool,
) (*GenerateResponseResult, error) {
	if jsonMode {
		systemMessage += "\n\nRespond with a single JSON object and no surrounding prose or code fences."
	}

	c.logger.Debug("llm request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature),
		zap.Bool("json_mode", jsonMode))

	start := time.Now()

	temp := float32(temperature)
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemMessage,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
		MaxTokens:   maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		c.logger.Error("llm request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classifyAnthropicError(err)
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return nil, fmt.Errorf("no content in response")
	}

	elapsed := time.Since(start)
	c.logger.Info("llm request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", elapsed))

	return &GenerateResponseResult{
		Content:          *resp.Content[0].Text,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *AnthropicClient) GetEndpoint() string {
	return c.endpoint
}

// classifyAnthropicError reuses the same structured Error taxonomy as the
// OpenAI client so callers (retry, circuit breaker) don't branch on backend.
func classifyAnthropicError(err error) *Error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		retryable := apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr()
		return NewError(classifyAnthropicErrorType(apiErr), apiErr.Message, retryable, err)
	}
	return ClassifyError(err)
}

func classifyAnthropicErrorType(apiErr *anthropic.APIError) ErrorType {
	switch {
	case apiErr.IsAuthenticationErr():
		return ErrorTypeAuth
	case apiErr.IsRateLimitErr(), apiErr.IsOverloadedErr():
		return ErrorTypeEndpoint
	default:
		return ErrorTypeUnknown
	}
}
