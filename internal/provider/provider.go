// Package provider hides the text-generation and embedding backends behind one
// capability set and resolves a provider name to a concrete client.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"resume-rag/internal/models"
)

// Purpose tells the backend what an embedding is for, so providers with
// asymmetric models can pick the right one.
type Purpose int

const (
	PurposeDocument Purpose = iota
	PurposeQuery
)

func (p Purpose) String() string {
	if p == PurposeQuery {
		return "retrieval_query"
	}
	return "retrieval_document"
}

type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Embedder returns one vector per input chunk, in input order.
type Embedder interface {
	EmbedContent(ctx context.Context, chunks []string, purpose Purpose) ([][]float32, error)
}

type Provider interface {
	Generator
	Embedder
	Name() string
}

const (
	Google = "google"
	OpenAI = "openai"
	Groq   = "groq"
)

// Options carries per-provider model and endpoint overrides. Zero values fall
// back to the defaults below.
type Options struct {
	GoogleModel          string
	GoogleEmbeddingModel string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	OpenAIBaseURL        string
	GroqModel            string
	GroqBaseURL          string

	// FallbackAPIKey is the OpenAI credential used for embeddings by
	// providers that cannot embed themselves.
	FallbackAPIKey string

	Guard GuardOptions
}

const (
	defaultGoogleModel          = "gemini-1.5-flash"
	defaultGoogleEmbeddingModel = "embedding-001"
	defaultOpenAIModel          = "gpt-4o"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
	defaultGroqModel            = "llama3-8b-8192"
	defaultGroqBaseURL          = "https://api.groq.com/openai/v1"
	defaultGuardInterval        = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.GoogleModel == "" {
		o.GoogleModel = defaultGoogleModel
	}
	if o.GoogleEmbeddingModel == "" {
		o.GoogleEmbeddingModel = defaultGoogleEmbeddingModel
	}
	if o.OpenAIModel == "" {
		o.OpenAIModel = defaultOpenAIModel
	}
	if o.OpenAIEmbeddingModel == "" {
		o.OpenAIEmbeddingModel = defaultOpenAIEmbeddingModel
	}
	if o.GroqModel == "" {
		o.GroqModel = defaultGroqModel
	}
	if o.GroqBaseURL == "" {
		o.GroqBaseURL = defaultGroqBaseURL
	}
	return o
}

// New resolves name to a provider. An unknown name, or a missing credential
// (including the fallback credential a provider depends on), fails here with
// models.ErrConfiguration rather than on first use.
func New(ctx context.Context, name, apiKey string, opts Options) (Provider, error) {
	opts = opts.withDefaults()
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key is required for provider %q", models.ErrConfiguration, name)
	}

	var (
		p   Provider
		err error
	)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Google:
		p, err = NewGoogleProvider(ctx, apiKey, opts.GoogleModel, opts.GoogleEmbeddingModel)
	case OpenAI:
		p, err = NewOpenAIProvider(apiKey, opts.OpenAIBaseURL, opts.OpenAIModel, opts.OpenAIEmbeddingModel)
	case Groq:
		var fallback Provider
		fallback, err = NewOpenAIProvider(opts.FallbackAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel, opts.OpenAIEmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("%w: groq needs an openai key for embeddings: %w", models.ErrConfiguration, err)
		}
		p, err = NewGroqProvider(apiKey, opts.GroqBaseURL, opts.GroqModel, fallback)
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider: %s", models.ErrConfiguration, name)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Str("provider", p.Name()).Bool("guarded", opts.Guard.Enabled).Msg("Provider initialized")
	if opts.Guard.Enabled {
		return NewGuarded(p, opts.Guard), nil
	}
	return p, nil
}

func checkLengths(name string, want, got int) error {
	if want != got {
		return fmt.Errorf("%w: %s returned %d embeddings for %d inputs", models.ErrProvider, name, got, want)
	}
	return nil
}
