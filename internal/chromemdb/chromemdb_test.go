package chromemdb

import (
	"context"
	"path/filepath"
	"testing"

	"resume-rag/internal/vectorstore"
	"resume-rag/internal/vectorstore/storetest"
)

func newTestManager(t *testing.T, inMemory bool) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(Options{Path: t.TempDir(), InMemory: inMemory, EncryptionKey: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestPersistentStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorstore.Store { return newTestManager(t, false) })
}

func TestInMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorstore.Store { return newTestManager(t, true) })
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := NewVectorDBManager(Options{Path: dir})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	c, err := m.Open(ctx, "resume")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Add(ctx, storetest.Records(0, 3, 3)); err != nil {
		t.Fatalf("add: %v", err)
	}
	m.Close()

	m2, err := NewVectorDBManager(Options{Path: dir})
	if err != nil {
		t.Fatalf("reopen manager: %v", err)
	}
	defer m2.Close()
	c2, err := m2.Open(ctx, "resume")
	if err != nil {
		t.Fatalf("reopen collection: %v", err)
	}
	if n, _ := c2.Count(ctx); n != 3 {
		t.Errorf("expected 3 records after reopen, got %d", n)
	}
	all, err := c2.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 3 || all[0].ID != "chunk_0" || all[2].ID != "chunk_2" {
		t.Errorf("unexpected records after reopen: %+v", all)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, false)
	c, _ := m.Open(ctx, "resume")
	if err := c.Add(ctx, storetest.Records(0, 2, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Export(filepath.Join(t.TempDir(), "resume.chromem"), "resume"); err != nil {
		t.Fatalf("export: %v", err)
	}

	noKey := &VectorDBManager{db: m.db, manifest: m.manifest, collections: m.collections}
	if err := noKey.Export(filepath.Join(t.TempDir(), "x.chromem")); err == nil {
		t.Errorf("expected error without encryption key")
	}
}
