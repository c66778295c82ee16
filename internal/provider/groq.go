package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms/openai"

	"resume-rag/internal/models"
)

// GroqProvider generates through Groq's OpenAI-compatible API. Groq has no
// embedding model, so embeddings go to the fallback it was built with.
type GroqProvider struct {
	llm      *openai.LLM
	fallback Embedder
}

func NewGroqProvider(apiKey, baseURL, model string, fallback Embedder) (*GroqProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: groq api key is required", models.ErrConfiguration)
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: groq requires an embedding fallback provider", models.ErrConfiguration)
	}
	llm, err := newOpenAILLM(apiKey, baseURL, model)
	if err != nil {
		return nil, err
	}
	return &GroqProvider{llm: llm, fallback: fallback}, nil
}

func (p *GroqProvider) Name() string { return Groq }

func (p *GroqProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return generate(ctx, Groq, p.llm, prompt)
}

func (p *GroqProvider) EmbedContent(ctx context.Context, chunks []string, purpose Purpose) ([][]float32, error) {
	log.Debug().Int("chunks", len(chunks)).Msg("Groq has no embedding model, using fallback")
	return p.fallback.EmbedContent(ctx, chunks, purpose)
}
