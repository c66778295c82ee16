package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"resume-rag/internal/models"
)

// OpenAIProvider talks to any OpenAI-compatible endpoint through langchaingo.
type OpenAIProvider struct {
	name     string
	llm      *openai.LLM
	embedder *embeddings.EmbedderImpl
}

func NewOpenAIProvider(apiKey, baseURL, model, embeddingModel string) (*OpenAIProvider, error) {
	apiKey = strings.TrimPrefix(strings.TrimSpace(apiKey), "Bearer ")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", models.ErrConfiguration)
	}
	llm, err := newOpenAILLM(apiKey, baseURL, model, openai.WithEmbeddingModel(embeddingModel))
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embedder: %w", models.ErrConfiguration, err)
	}
	return &OpenAIProvider{name: OpenAI, llm: llm, embedder: embedder}, nil
}

func newOpenAILLM(apiKey, baseURL, model string, extra ...openai.Option) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize llm: %w", models.ErrConfiguration, err)
	}
	return llm, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return generate(ctx, p.name, p.llm, prompt)
}

// EmbedContent ignores purpose: OpenAI uses one symmetric embedding model.
func (p *OpenAIProvider) EmbedContent(ctx context.Context, chunks []string, _ Purpose) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %s embeddings failed: %w", models.ErrProvider, p.name, err)
	}
	if err := checkLengths(p.name, len(chunks), len(vectors)); err != nil {
		return nil, err
	}
	return vectors, nil
}

func generate(ctx context.Context, name string, llm llms.Model, prompt string) (string, error) {
	answer, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s generation failed: %w", models.ErrProvider, name, err)
	}
	return answer, nil
}
