package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

// GenAIBackend calls Gemini, either through the Gemini API or Vertex AI.
type GenAIBackend struct {
	client    *genai.Client
	modelName string
}

type GenAIOptions struct {
	Model string

	// APIKey selects the Gemini API.
	APIKey string

	// Project and Location select Vertex AI.
	Project  string
	Location string
}

func NewGenAIBackend(ctx context.Context, opts GenAIOptions) (*GenAIBackend, error) {
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash-lite"
	}

	cfg := &genai.ClientConfig{}
	switch {
	case opts.Project != "":
		cfg.Project = opts.Project
		cfg.Location = opts.Location
		cfg.Backend = genai.BackendVertexAI
	case opts.APIKey != "":
		cfg.APIKey = opts.APIKey
		cfg.Backend = genai.BackendGeminiAPI
	default:
		return nil, errors.New("genai: either an API key or a GCP project is required")
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GenAIBackend{
		client:    client,
		modelName: opts.Model,
	}, nil
}

func (g *GenAIBackend) Name() string {
	return "genai:" + g.modelName
}

func (g *GenAIBackend) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(p.User, genai.RoleUser),
	}

	temp := p.Temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       &temp,
	}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", errors.New("genai returned empty text")
	}
	return text, nil
}
