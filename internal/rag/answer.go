package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"resume-rag/internal/models"
	"resume-rag/internal/provider"
)

var thinkTag = regexp.MustCompile(models.ThinkTag)

// Answer answers query using the session's default top-k.
func (s *Session) Answer(ctx context.Context, query string) (string, error) {
	return s.AnswerQuery(ctx, query, s.opts.TopK)
}

// AnswerQuery retrieves the k nearest chunks and generates an answer grounded
// on them and the recent conversation. When nothing is retrieved it returns
// the fixed insufficient-information reply without calling the generator.
// Memory is only updated after a successful generation.
func (s *Session) AnswerQuery(ctx context.Context, query string, k int) (string, error) {
	if k <= 0 {
		k = s.opts.TopK
	}
	l := s.logger()

	embs, err := s.provider.EmbedContent(ctx, []string{query}, provider.PurposeQuery)
	if err != nil {
		return "", fmt.Errorf("%w: failed to embed query: %w", models.ErrGeneration, err)
	}
	if len(embs) != 1 {
		return "", fmt.Errorf("%w: expected one query embedding, got %d", models.ErrGeneration, len(embs))
	}

	docs, err := s.current().Query(ctx, embs[0], k)
	if err != nil {
		return "", fmt.Errorf("%w: failed to retrieve context: %w", models.ErrGeneration, err)
	}
	if len(docs) == 0 {
		l.Debug().Str("query", query).Msg("No context retrieved")
		return models.InsufficientInformation, nil
	}

	prompt := BuildPrompt(strings.Join(docs, models.ContextSeparator), s.memory.Transcript(), query)
	raw, err := s.provider.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	answer := CleanAnswer(raw)

	s.memory.Append(
		models.Turn{Role: models.RoleUser, Content: query},
		models.Turn{Role: models.RoleAssistant, Content: answer},
	)
	l.Info().Int("context_chunks", len(docs)).Msg("Answered query")
	return answer, nil
}

// BuildPrompt assembles the advocate prompt. transcript is empty for a fresh
// conversation.
func BuildPrompt(retrieved, transcript, query string) string {
	return fmt.Sprintf(models.AnswerPromptTemplate, models.AdvocatePrompt, retrieved, transcript, query)
}

// CleanAnswer drops <think> blocks some models emit before the answer.
func CleanAnswer(raw string) string {
	return strings.TrimSpace(thinkTag.ReplaceAllString(raw, ""))
}
