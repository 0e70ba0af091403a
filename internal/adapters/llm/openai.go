package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

var ErrNoChoices = errors.New("no choices in OpenAI response")

// OpenAIBackend calls a chat-completions endpoint: OpenAI, Azure OpenAI or
// any compatible server.
type OpenAIBackend struct {
	client    *openai.Client
	modelName string
}

type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string

	// Azure switches to deployment-style URLs. BaseURL is then the
	// resource endpoint and Model the deployment name.
	Azure      bool
	APIVersion string
}

func NewOpenAIBackend(opts OpenAIOptions) *OpenAIBackend {
	var cfg openai.ClientConfig
	if opts.Azure {
		cfg = openai.DefaultAzureConfig(opts.APIKey, opts.BaseURL)
		if opts.APIVersion != "" {
			cfg.APIVersion = opts.APIVersion
		}
	} else {
		cfg = openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
	}

	return &OpenAIBackend{
		client:    openai.NewClientWithConfig(cfg),
		modelName: opts.Model,
	}
}

func (o *OpenAIBackend) Name() string {
	return "openai:" + o.modelName
}

func (o *OpenAIBackend) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
