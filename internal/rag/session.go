// Package rag binds a provider, a collection and a conversation memory into a
// session that indexes chunks and answers questions about them.
package rag

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"resume-rag/internal/memory"
	"resume-rag/internal/models"
	"resume-rag/internal/provider"
	"resume-rag/internal/vectorstore"
)

type Options struct {
	BatchSize int
	// EmbedConcurrency > 1 embeds that many batches in parallel
	EmbedConcurrency int
	TopK             int
	MemorySize       int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = models.DefaultBatchSize
	}
	if o.EmbedConcurrency <= 0 {
		o.EmbedConcurrency = 1
	}
	if o.TopK <= 0 {
		o.TopK = models.DefaultTopK
	}
	if o.MemorySize <= 0 {
		o.MemorySize = models.DefaultMemorySize
	}
	return o
}

// Session serves one logical conversation over one collection. It owns its
// memory; the collection's storage outlives it.
type Session struct {
	provider provider.Provider
	store    vectorstore.Store
	memory   *memory.Buffer
	opts     Options

	// writeMu serializes count-then-add so chunk ids never collide. It is
	// taken before mu.
	writeMu sync.Mutex

	mu         sync.RWMutex
	collection vectorstore.Collection
}

// CreateSession resolves providerName and opens (or creates) the collection.
func CreateSession(ctx context.Context, store vectorstore.Store, collectionName, providerName, apiKey string, popts provider.Options, opts Options) (*Session, error) {
	p, err := provider.New(ctx, providerName, apiKey, popts)
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, store, p, collectionName, opts)
}

func NewSession(ctx context.Context, store vectorstore.Store, p provider.Provider, collectionName string, opts Options) (*Session, error) {
	if collectionName == "" {
		return nil, fmt.Errorf("%w: collection name is required", models.ErrConfiguration)
	}
	col, err := store.Open(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open collection %s: %w", models.ErrStorage, collectionName, err)
	}
	opts = opts.withDefaults()
	return &Session{
		provider:   p,
		store:      store,
		memory:     memory.New(opts.MemorySize),
		opts:       opts,
		collection: col,
	}, nil
}

func (s *Session) CollectionName() string {
	return s.current().Name()
}

func (s *Session) ProviderName() string {
	return s.provider.Name()
}

func (s *Session) current() vectorstore.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// RenameCollection moves the session's records to newName. On failure the
// session keeps pointing at the untouched original.
func (s *Session) RenameCollection(ctx context.Context, newName string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	renamed, err := vectorstore.Rename(ctx, s.store, s.collection, newName)
	if err != nil {
		return err
	}
	s.collection = renamed
	return nil
}

// ClearMemory forgets the conversation; the collection is not affected.
func (s *Session) ClearMemory() {
	s.memory.Clear()
}

func (s *Session) MemorySummary() models.MemorySummary {
	return s.memory.Summary()
}

func (s *Session) History() []models.Turn {
	return s.memory.Turns()
}

func (s *Session) Count(ctx context.Context) (int, error) {
	return s.current().Count(ctx)
}

// Close releases the provider's client when it holds one. The collection and
// store stay open.
func (s *Session) Close() error {
	if c, ok := s.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Session) logger() *zerolog.Logger {
	l := log.With().Str("collection", s.CollectionName()).Str("provider", s.provider.Name()).Logger()
	return &l
}
