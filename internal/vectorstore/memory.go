package vectorstore

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"resume-rag/internal/models"
)

// MemoryStore keeps collections in process memory and searches them by brute
// force cosine similarity. Nothing survives Close.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Open(_ context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	return s.insertLocked(name), nil
}

func (s *MemoryStore) Create(_ context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionExists, name)
	}
	return s.insertLocked(name), nil
}

func (s *MemoryStore) insertLocked(name string) *memoryCollection {
	c := &memoryCollection{name: name, index: make(map[string]int)}
	s.collections[name] = c
	return c
}

func (s *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*memoryCollection)
	return nil
}

type memoryCollection struct {
	mu      sync.RWMutex
	name    string
	records []models.Record
	index   map[string]int
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}

func (c *memoryCollection) Add(_ context.Context, records []models.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := CheckIDs(records, func(id string) bool {
		_, ok := c.index[id]
		return ok
	})
	if err != nil {
		return err
	}
	for _, r := range records {
		c.index[r.ID] = len(c.records)
		c.records = append(c.records, cloneRecord(r))
	}
	return nil
}

func (c *memoryCollection) Query(_ context.Context, vector []float32, k int) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k = min(k, len(c.records))
	if k <= 0 {
		return nil, nil
	}

	idxs := make([]int, len(c.records))
	scores := make([]float64, len(c.records))
	for i, r := range c.records {
		if len(r.Embedding) != len(vector) {
			return nil, fmt.Errorf("%w: query has %d dimensions, record %s has %d", models.ErrStorage, len(vector), r.ID, len(r.Embedding))
		}
		idxs[i] = i
		scores[i] = cosineSimilarity(vector, r.Embedding)
	}
	// stable keeps insertion order between equal scores
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	docs := make([]string, k)
	for i := 0; i < k; i++ {
		docs[i] = c.records[idxs[i]].Document
	}
	return docs, nil
}

func (c *memoryCollection) GetAll(context.Context) ([]models.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Record, len(c.records))
	for i, r := range c.records {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func cloneRecord(r models.Record) models.Record {
	r.Embedding = append([]float32(nil), r.Embedding...)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
