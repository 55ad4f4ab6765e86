package agent

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ModelConfig selects the chat model behind a text session
type ModelConfig struct {
	Model   string
	Token   string
	BaseURL string
}

// NewModel creates an OpenAI-compatible chat model. BaseURL may point at any
// compatible endpoint, such as GitHub Models.
func NewModel(cfg ModelConfig) (llms.Model, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("an API key is required for the agent model")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.Token),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return client, nil
}
