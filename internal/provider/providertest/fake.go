// Package providertest offers an in-process provider for tests.
package providertest

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"resume-rag/internal/models"
	"resume-rag/internal/provider"
)

const Dim = 16

// Fake embeds text as a bag of hashed words and answers with a fixed reply.
type Fake struct {
	Reply string
	// GenerateErr and EmbedErr are returned wrapped in models.ErrProvider.
	GenerateErr error
	EmbedErr    error
	// FailEmbedCall makes the n-th EmbedContent call (1-based) fail.
	FailEmbedCall int
	// Delay, when set, is slept before embedding a batch starting with first.
	Delay func(first string) time.Duration

	mu            sync.Mutex
	embedCalls    int
	generateCalls int
	closes        int
	prompts       []string
	purposes      []provider.Purpose
}

var _ provider.Provider = (*Fake)(nil)

func (f *Fake) Name() string { return "fake" }

func (f *Fake) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.prompts = append(f.prompts, prompt)
	if f.GenerateErr != nil {
		return "", wrap(f.GenerateErr)
	}
	if f.Reply == "" {
		return "They built it.", nil
	}
	return f.Reply, nil
}

func (f *Fake) EmbedContent(ctx context.Context, chunks []string, purpose provider.Purpose) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	call := f.embedCalls
	f.purposes = append(f.purposes, purpose)
	f.mu.Unlock()

	if f.EmbedErr != nil || call == f.FailEmbedCall {
		err := f.EmbedErr
		if err == nil {
			err = context.DeadlineExceeded
		}
		return nil, wrap(err)
	}
	if f.Delay != nil && len(chunks) > 0 {
		select {
		case <-time.After(f.Delay(chunks[0])):
		case <-ctx.Done():
			return nil, wrap(ctx.Err())
		}
	}

	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = Embed(c)
	}
	return out, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

// Closed reports how many times Close was called.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *Fake) EmbedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls
}

func (f *Fake) GenerateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls
}

func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *Fake) Purposes() []provider.Purpose {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Purpose(nil), f.purposes...)
}

// Embed hashes each lower-cased word into one of Dim buckets.
func Embed(text string) []float32 {
	v := make([]float32, Dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!:;\"'")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%Dim]++
	}
	return v
}

func wrap(err error) error {
	return fmt.Errorf("%w: %w", models.ErrProvider, err)
}
