package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
)

// anthropicModelPrefix identifies an Anthropic model name. When a caller
// names a model explicitly (C9's per-request model_name), prefix wins over
// cfg.Backend so one process can mix models from both providers; when no
// model is named, cfg.Backend picks the default.
const anthropicModelPrefix = "claude-"

// NewClientFor builds the LLMClient appropriate for model, using cfg for
// endpoint/API-key resolution. Pass "" for model to use cfg's configured
// default backend and model.
func NewClientFor(cfg *config.LLMConfig, model string, logger *zap.Logger) (LLMClient, error) {
	anthropic := cfg.Backend == "anthropic"
	if model == "" {
		model = cfg.DefaultModel
	} else {
		anthropic = strings.HasPrefix(strings.ToLower(model), anthropicModelPrefix)
	}

	if anthropic {
		return NewAnthropicClient(&Config{
			Endpoint: cfg.BaseURL,
			Model:    model,
			APIKey:   cfg.AnthropicAPIKey,
		}, logger)
	}

	return NewClient(&Config{
		Endpoint: cfg.BaseURL,
		Model:    model,
		APIKey:   cfg.APIKey,
	}, logger)
}

// NewDefaultClient builds the LLMClient for cfg's configured backend and
// default model, used by both C6 (enrichment) and C9 (conversational
// engine) absent a per-request model override.
func NewDefaultClient(cfg *config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	if cfg.DefaultModel == "" {
		return nil, fmt.Errorf("llm default_model is required")
	}
	return NewClientFor(cfg, "", logger)
}
