package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"resume-rag/internal/models"
	"resume-rag/internal/vectorstore"
)

const (
	chromemDir   = "chromem"
	manifestFile = "manifest.db"
)

// VectorDBManager stores collections in a chromem-go database. chromem cannot
// list the documents of a collection, so record ids are kept in a manifest
// next to it.
type VectorDBManager struct {
	mu            sync.Mutex
	db            *chromem.DB
	manifest      manifest
	collections   map[string]*collection
	dbPath        string
	compress      bool
	encryptionKey string
}

type Options struct {
	Path          string
	InMemory      bool
	Compress      bool
	EncryptionKey string
}

// NewVectorDBManager opens (or creates) the database at opts.Path. With
// InMemory set nothing touches the disk.
func NewVectorDBManager(opts Options) (*VectorDBManager, error) {
	m := &VectorDBManager{
		collections:   make(map[string]*collection),
		dbPath:        opts.Path,
		compress:      opts.Compress,
		encryptionKey: opts.EncryptionKey,
	}
	if opts.InMemory {
		m.db = chromem.NewDB()
		m.manifest = newMemoryManifest()
		return m, nil
	}

	db, err := chromem.NewPersistentDB(filepath.Join(opts.Path, chromemDir), opts.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	mf, err := newBoltManifest(filepath.Join(opts.Path, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	m.db = db
	m.manifest = mf
	return m, nil
}

func (m *VectorDBManager) Open(_ context.Context, name string) (vectorstore.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateCollection(name)
}

func (m *VectorDBManager) Create(_ context.Context, name string) (vectorstore.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db.GetCollection(name, nil) != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionExists, name)
	}
	return m.getOrCreateCollection(name)
}

func (m *VectorDBManager) Exists(_ context.Context, name string) (bool, error) {
	return m.db.GetCollection(name, nil) != nil, nil
}

// delete collection along with its manifest entries
func (m *VectorDBManager) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db.GetCollection(name, nil) == nil {
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	delete(m.collections, name)
	if err := m.manifest.drop(name); err != nil {
		return fmt.Errorf("failed to drop manifest for %s: %w", name, err)
	}
	return nil
}

func (m *VectorDBManager) Close() error {
	return m.manifest.close()
}

// Export writes the named collections (all when none given) to a single
// encrypted file, by default next to the database.
func (m *VectorDBManager) Export(filePath string, collections ...string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if filePath == "" {
		filePath = filepath.Join(m.dbPath, "collections.chromem")
	}
	log.Debug().Str("file", filePath).Bool("compress", m.compress).Strs("collections", collections).Msg("Exporting collections")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, collections...); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// create or read collection, reusing the wrapper so writers share its lock
func (m *VectorDBManager) getOrCreateCollection(name string) (*collection, error) {
	if c, ok := m.collections[name]; ok {
		return c, nil
	}
	c, err := m.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	wrapped := &collection{c: c, manifest: m.manifest}
	m.collections[name] = wrapped
	return wrapped, nil
}

type collection struct {
	mu       sync.Mutex
	c        *chromem.Collection
	manifest manifest
}

func (c *collection) Name() string { return c.c.Name }

func (c *collection) Count(context.Context) (int, error) {
	return c.c.Count(), nil
}

// Add writes the documents to chromem first and the ids to the manifest
// second, undoing the chromem write when either step fails.
func (c *collection) Add(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	known, err := c.manifest.ids(c.c.Name)
	if err != nil {
		return fmt.Errorf("%w: failed to read manifest: %w", models.ErrStorage, err)
	}
	set := make(map[string]struct{}, len(known))
	for _, id := range known {
		set[id] = struct{}{}
	}
	err = vectorstore.CheckIDs(records, func(id string) bool {
		_, ok := set[id]
		return ok
	})
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	ids := make([]string, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Document,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
		}
		ids[i] = r.ID
	}

	if err := c.c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		c.rollback(ids)
		return fmt.Errorf("%w: failed to add documents: %w", models.ErrStorage, err)
	}
	if err := c.manifest.append(c.c.Name, ids); err != nil {
		c.rollback(ids)
		return fmt.Errorf("%w: failed to record ids: %w", models.ErrStorage, err)
	}
	return nil
}

func (c *collection) rollback(ids []string) {
	// background ctx: the caller's ctx may be the reason we are rolling back
	if err := c.c.Delete(context.Background(), nil, nil, ids...); err != nil {
		log.Error().Err(err).Str("collection", c.c.Name).Int("documents", len(ids)).Msg("Failed to roll back documents")
	}
}

func (c *collection) Query(ctx context.Context, vector []float32, k int) ([]string, error) {
	k = min(k, c.c.Count())
	if k <= 0 {
		return nil, nil
	}
	results, err := c.c.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %w", models.ErrStorage, err)
	}
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Content
	}
	return docs, nil
}

// GetAll returns records in insertion order. chromem stores normalized
// embeddings, so the vectors come back with unit length.
func (c *collection) GetAll(ctx context.Context) ([]models.Record, error) {
	ids, err := c.manifest.ids(c.c.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read manifest: %w", models.ErrStorage, err)
	}
	records := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		doc, err := c.c.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get document %s: %w", models.ErrStorage, id, err)
		}
		records = append(records, models.Record{
			ID:        doc.ID,
			Embedding: doc.Embedding,
			Document:  doc.Content,
			Metadata:  doc.Metadata,
		})
	}
	return records, nil
}
