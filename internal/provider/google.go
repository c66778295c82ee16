package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"resume-rag/internal/models"
)

// GoogleProvider uses Gemini for generation and the task-typed embedding
// model for documents and queries.
type GoogleProvider struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGoogleProvider(ctx context.Context, apiKey, model, embeddingModel string) (*GoogleProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: google api key is required", models.ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %w", models.ErrConfiguration, err)
	}
	return &GoogleProvider{client: client, model: model, embeddingModel: embeddingModel}, nil
}

func (p *GoogleProvider) Name() string { return Google }

func (p *GoogleProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.GenerativeModel(p.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: google generation failed: %w", models.ErrProvider, err)
	}
	return responseText(resp), nil
}

func (p *GoogleProvider) EmbedContent(ctx context.Context, chunks []string, purpose Purpose) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	em := p.client.EmbeddingModel(p.embeddingModel)
	em.TaskType = taskType(purpose)

	batch := em.NewBatch()
	for _, c := range chunks {
		batch.AddContent(genai.Text(c))
	}
	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: google embeddings failed: %w", models.ErrProvider, err)
	}
	if err := checkLengths(Google, len(chunks), len(resp.Embeddings)); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("%w: google returned no embedding for chunk %d", models.ErrProvider, i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

func taskType(purpose Purpose) genai.TaskType {
	if purpose == PurposeQuery {
		return genai.TaskTypeRetrievalQuery
	}
	return genai.TaskTypeRetrievalDocument
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}
