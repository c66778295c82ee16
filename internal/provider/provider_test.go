package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"resume-rag/internal/models"
)

// recordingEmbedder returns a one-dimensional vector per chunk holding the
// chunk length, so order can be checked.
type recordingEmbedder struct {
	calls    int
	purposes []Purpose
}

func (e *recordingEmbedder) EmbedContent(_ context.Context, chunks []string, purpose Purpose) ([][]float32, error) {
	e.calls++
	e.purposes = append(e.purposes, purpose)
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = []float32{float32(len(c))}
	}
	return out, nil
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), "anthropic-ish", "key", Options{})
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNew_MissingKey(t *testing.T) {
	for _, name := range []string{Google, OpenAI, Groq} {
		_, err := New(context.Background(), name, "  ", Options{FallbackAPIKey: "fallback"})
		if !errors.Is(err, models.ErrConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}

func TestNew_GroqNeedsFallbackKey(t *testing.T) {
	_, err := New(context.Background(), "GROQ", "groq-key", Options{})
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNew_GroqWithFallback(t *testing.T) {
	p, err := New(context.Background(), "groq", "groq-key", Options{FallbackAPIKey: "openai-key"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Name() != Groq {
		t.Errorf("expected groq, got %s", p.Name())
	}
}

func TestGroq_DelegatesEmbeddings(t *testing.T) {
	fallback := &recordingEmbedder{}
	p, err := NewGroqProvider("groq-key", "", "llama3-8b-8192", fallback)
	if err != nil {
		t.Fatalf("new groq: %v", err)
	}

	chunks := []string{"a", "bbb", "cc"}
	vectors, err := p.EmbedContent(context.Background(), chunks, PurposeQuery)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if fallback.calls != 1 {
		t.Fatalf("expected 1 fallback call, got %d", fallback.calls)
	}
	if fallback.purposes[0] != PurposeQuery {
		t.Errorf("purpose not forwarded: %v", fallback.purposes[0])
	}
	if len(vectors) != len(chunks) {
		t.Fatalf("expected %d vectors, got %d", len(chunks), len(vectors))
	}
	for i, c := range chunks {
		if vectors[i][0] != float32(len(c)) {
			t.Errorf("vector %d out of order: %v", i, vectors[i])
		}
	}
}

func TestGroq_RequiresFallback(t *testing.T) {
	_, err := NewGroqProvider("groq-key", "", "m", nil)
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func newOpenAIServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			var req struct {
				Input []string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode embeddings request: %v", err)
			}
			type item struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}
			data := make([]item, len(req.Input))
			for i, in := range req.Input {
				data[i] = item{Object: "embedding", Embedding: []float32{float32(len(in)), 1}, Index: i}
			}
			json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "text-embedding-3-small"})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": time.Now().Unix(),
				"model":   "gpt-4o",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": "Alice built a chat system."},
					"finish_reason": "stop",
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_EmbedAndGenerate(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK)
	p, err := New(context.Background(), "openai", "sk-test", Options{OpenAIBaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	chunks := []string{"one", "three", "twenty"}
	vectors, err := p.EmbedContent(context.Background(), chunks, PurposeDocument)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, c := range chunks {
		if vectors[i][0] != float32(len(c)) {
			t.Errorf("vector %d out of order: %v", i, vectors[i])
		}
	}

	answer, err := p.GenerateContent(context.Background(), "What did Alice build?")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "Alice built a chat system." {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestOpenAI_ProviderError(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusTooManyRequests)
	p, err := NewOpenAIProvider("sk-test", srv.URL, defaultOpenAIModel, defaultOpenAIEmbeddingModel)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := p.EmbedContent(context.Background(), []string{"x"}, PurposeDocument); !errors.Is(err, models.ErrProvider) {
		t.Errorf("expected provider error from embed, got %v", err)
	}
	if _, err := p.GenerateContent(context.Background(), "x"); !errors.Is(err, models.ErrProvider) {
		t.Errorf("expected provider error from generate, got %v", err)
	}
}

func TestGoogle_Live(t *testing.T) {
	key := os.Getenv("GOOGLE_API_KEY")
	if key == "" {
		t.Skip("GOOGLE_API_KEY not set")
	}
	p, err := New(context.Background(), Google, key, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	vectors, err := p.EmbedContent(context.Background(), []string{"hello", "world"}, PurposeDocument)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) == 0 {
		t.Fatalf("unexpected embeddings: %d", len(vectors))
	}
}

func TestPurposeString(t *testing.T) {
	if PurposeDocument.String() != "retrieval_document" || PurposeQuery.String() != "retrieval_query" {
		t.Errorf("unexpected purpose names")
	}
}
