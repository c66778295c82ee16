// Package storetest holds the behaviour every vectorstore.Store backend must
// share, run from each backend's own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"resume-rag/internal/models"
	"resume-rag/internal/vectorstore"
)

// Records builds n records with ids chunk_{start}.. and unit vectors along
// axis i%dim.
func Records(start, n, dim int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		vec := make([]float32, dim)
		vec[(start+i)%dim] = 1
		out[i] = models.Record{
			ID:        fmt.Sprintf("%s%d", models.ChunkIDPrefix, start+i),
			Embedding: vec,
			Document:  fmt.Sprintf("document %d", start+i),
			Metadata:  map[string]string{"position": fmt.Sprint(start + i)},
		}
	}
	return out
}

func Run(t *testing.T, newStore func(t *testing.T) vectorstore.Store) {
	t.Run("OpenCountAdd", func(t *testing.T) { testOpenCountAdd(t, newStore(t)) })
	t.Run("QueryOrder", func(t *testing.T) { testQueryOrder(t, newStore(t)) })
	t.Run("QueryClampsK", func(t *testing.T) { testQueryClampsK(t, newStore(t)) })
	t.Run("QueryDimensionMismatch", func(t *testing.T) { testQueryDimensionMismatch(t, newStore(t)) })
	t.Run("DuplicateIDs", func(t *testing.T) { testDuplicateIDs(t, newStore(t)) })
	t.Run("GetAll", func(t *testing.T) { testGetAll(t, newStore(t)) })
	t.Run("CreateDelete", func(t *testing.T) { testCreateDelete(t, newStore(t)) })
	t.Run("Rename", func(t *testing.T) { testRename(t, newStore(t)) })
}

func mustOpen(t *testing.T, s vectorstore.Store, name string) vectorstore.Collection {
	t.Helper()
	c, err := s.Open(context.Background(), name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	return c
}

func mustCount(t *testing.T, c vectorstore.Collection) int {
	t.Helper()
	n, err := c.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func testOpenCountAdd(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	c := mustOpen(t, s, "resume")
	if c.Name() != "resume" {
		t.Errorf("expected name resume, got %s", c.Name())
	}
	if n := mustCount(t, c); n != 0 {
		t.Fatalf("expected empty collection, got %d", n)
	}
	if err := c.Add(ctx, Records(0, 3, 4)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if n := mustCount(t, mustOpen(t, s, "resume")); n != 3 {
		t.Errorf("expected 3 records after reopen, got %d", n)
	}
}

func testQueryOrder(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	c := mustOpen(t, s, "resume")
	records := []models.Record{
		{ID: "chunk_0", Embedding: []float32{1, 0, 0}, Document: "x axis"},
		{ID: "chunk_1", Embedding: []float32{0, 1, 0}, Document: "y axis"},
		{ID: "chunk_2", Embedding: []float32{0.8, 0.6, 0}, Document: "mostly x"},
	}
	if err := c.Add(ctx, records); err != nil {
		t.Fatalf("add: %v", err)
	}
	docs, err := c.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0] != "x axis" || docs[1] != "mostly x" {
		t.Errorf("unexpected order %v", docs)
	}
}

func testQueryClampsK(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	c := mustOpen(t, s, "resume")
	docs, err := c.Query(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("query empty: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %v", docs)
	}
	if err := c.Add(ctx, Records(0, 2, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	docs, err = c.Query(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %v", docs)
	}
}

func testQueryDimensionMismatch(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	c := mustOpen(t, s, "resume")
	if err := c.Add(ctx, Records(0, 2, 3)); err != nil {
		t.Fatalf("add: %v", err)
	}
	docs, err := c.Query(ctx, []float32{1, 0}, 2)
	if !errors.Is(err, models.ErrStorage) {
		t.Fatalf("expected storage error for 2-dim query, got %v (docs %v)", err, docs)
	}
}

func testDuplicateIDs(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	c := mustOpen(t, s, "resume")
	if err := c.Add(ctx, Records(0, 2, 3)); err != nil {
		t.Fatalf("add: %v", err)
	}

	clash := append(Records(2, 1, 3), Records(1, 1, 3)...)
	err := c.Add(ctx, clash)
	if !errors.Is(err, models.ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if !errors.Is(err, models.ErrStorage) {
		t.Errorf("duplicate id error must be a storage error, got %v", err)
	}
	inBatch := append(Records(5, 1, 3), Records(5, 1, 3)...)
	if err := c.Add(ctx, inBatch); !errors.Is(err, models.ErrDuplicateID) {
		t.Fatalf("expected duplicate id error for repeated batch id, got %v", err)
	}
	if n := mustCount(t, c); n != 2 {
		t.Errorf("rejected adds must not write, count=%d", n)
	}
}

func testGetAll(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	c := mustOpen(t, s, "resume")
	want := Records(0, 5, 3)
	if err := c.Add(ctx, want[:3]); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(ctx, want[3:]); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := c.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Document != want[i].Document {
			t.Errorf("record %d: expected %s/%q, got %s/%q", i, want[i].ID, want[i].Document, got[i].ID, got[i].Document)
		}
		if got[i].Metadata["position"] != want[i].Metadata["position"] {
			t.Errorf("record %d: metadata mismatch %v", i, got[i].Metadata)
		}
		if len(got[i].Embedding) != 3 {
			t.Errorf("record %d: expected 3-dim embedding, got %d", i, len(got[i].Embedding))
		}
	}
}

func testCreateDelete(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	if _, err := s.Create(ctx, "fresh"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, "fresh"); !errors.Is(err, models.ErrCollectionExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
	ok, err := s.Exists(ctx, "fresh")
	if err != nil || !ok {
		t.Fatalf("expected collection to exist: %v", err)
	}
	if err := s.Delete(ctx, "fresh"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = s.Exists(ctx, "fresh")
	if err != nil || ok {
		t.Fatalf("expected collection to be gone: %v", err)
	}
}

func testRename(t *testing.T, s vectorstore.Store) {
	ctx := context.Background()
	c := mustOpen(t, s, "temp-1")
	if err := c.Add(ctx, Records(0, 4, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	renamed, err := vectorstore.Rename(ctx, s, c, "final")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name() != "final" {
		t.Errorf("expected final, got %s", renamed.Name())
	}
	if n := mustCount(t, renamed); n != 4 {
		t.Errorf("expected 4 records after rename, got %d", n)
	}
	if ok, _ := s.Exists(ctx, "temp-1"); ok {
		t.Errorf("source collection should be deleted")
	}

	// ids continue after a rename
	if err := renamed.Add(ctx, Records(4, 1, 2)); err != nil {
		t.Fatalf("add after rename: %v", err)
	}
	if err := renamed.Add(ctx, Records(0, 1, 2)); !errors.Is(err, models.ErrDuplicateID) {
		t.Errorf("copied ids must still be known, got %v", err)
	}
}
