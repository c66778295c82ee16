// Package db stores collections in Postgres with the pgvector extension.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"resume-rag/internal/models"
	"resume-rag/internal/vectorstore"
)

// Document is one record row; (collection, id) is the key.
type Document struct {
	bun.BaseModel `bun:"table:rag_records,alias:r"`
	Collection    string            `bun:"collection,pk"`
	ID            string            `bun:"id,pk"`
	Seq           int64             `bun:"seq,notnull"`
	Content       string            `bun:"content,notnull"`
	Embedding     pgvector.Vector   `bun:"embedding,notnull,type:vector"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
}

// CollectionRow registers a collection, so empty collections exist too.
type CollectionRow struct {
	bun.BaseModel `bun:"table:rag_collections,alias:c"`
	Name          string `bun:"name,pk"`
}

type Config struct {
	DSN      string
	Password string
	// Driver is "pgdriver" (default) or "pq"
	Driver string
	Debug  bool
}

func ConnectDB(cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", models.ErrConfiguration)
	}
	if cfg.Driver == "pq" {
		return sql.Open("postgres", cfg.DSN)
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// InitDB creates the extension, tables and the lookup index.
func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	if _, err := db.NewCreateTable().Model((*CollectionRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateIndex().Model((*Document)(nil)).Index("rag_records_collection_seq_idx").IfNotExists().Column("collection", "seq").Exec(ctx)
	return err
}

// DropDocuments removes both tables
func DropDocuments(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewDropTable().Model((*CollectionRow)(nil)).IfExists().Exec(ctx)
	return err
}

// Store implements vectorstore.Store on top of bun.
type Store struct {
	db *bun.DB
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Open(ctx context.Context, name string) (vectorstore.Collection, error) {
	_, err := s.db.NewInsert().Model(&CollectionRow{Name: name}).On("CONFLICT (name) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &collection{db: s.db, name: name}, nil
}

func (s *Store) Create(ctx context.Context, name string) (vectorstore.Collection, error) {
	res, err := s.db.NewInsert().Model(&CollectionRow{Name: name}).On("CONFLICT (name) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionExists, name)
	}
	return &collection{db: s.db, name: name}, nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	return s.db.NewSelect().Model((*CollectionRow)(nil)).Where("name = ?", name).Exists(ctx)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*CollectionRow)(nil)).Where("name = ?", name).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
		}
		_, err = tx.NewDelete().Model((*Document)(nil)).Where("collection = ?", name).Exec(ctx)
		return err
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

type collection struct {
	db   *bun.DB
	name string
}

func (c *collection) Name() string { return c.name }

func (c *collection) Count(ctx context.Context) (int, error) {
	n, err := c.db.NewSelect().Model((*Document)(nil)).Where("collection = ?", c.name).Count(ctx)
	return n, vectorstore.WrapStorage(err, "failed to count documents")
}

// Add inserts every record in one transaction.
func (c *collection) Add(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		var existing []string
		err := tx.NewSelect().Model((*Document)(nil)).Column("id").
			Where("collection = ?", c.name).Where("id IN (?)", bun.In(ids)).
			Scan(ctx, &existing)
		if err != nil {
			return err
		}
		known := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			known[id] = struct{}{}
		}
		err = vectorstore.CheckIDs(records, func(id string) bool {
			_, ok := known[id]
			return ok
		})
		if err != nil {
			return err
		}

		var next int64
		err = tx.NewSelect().Model((*Document)(nil)).ColumnExpr("COALESCE(MAX(seq), -1) + 1").
			Where("collection = ?", c.name).Scan(ctx, &next)
		if err != nil {
			return err
		}

		docs := make([]Document, len(records))
		for i, r := range records {
			docs[i] = Document{
				Collection: c.name,
				ID:         r.ID,
				Seq:        next + int64(i),
				Content:    r.Document,
				Embedding:  pgvector.NewVector(r.Embedding),
				Metadata:   r.Metadata,
			}
		}
		_, err = tx.NewInsert().Model(&docs).Exec(ctx)
		return err
	})
	return vectorstore.WrapStorage(err, "failed to add documents")
}

// Query orders by cosine distance; seq breaks ties.
func (c *collection) Query(ctx context.Context, vector []float32, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	var docs []string
	err := c.db.NewSelect().Model((*Document)(nil)).Column("content").
		Where("collection = ?", c.name).
		OrderExpr("embedding <=> ?", pgvector.NewVector(vector)).
		Order("seq").
		Limit(k).
		Scan(ctx, &docs)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, vectorstore.WrapStorage(err, "failed to query by similarity")
	}
	return docs, nil
}

func (c *collection) GetAll(ctx context.Context) ([]models.Record, error) {
	var docs []Document
	err := c.db.NewSelect().Model(&docs).Where("collection = ?", c.name).Order("seq").Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, vectorstore.WrapStorage(err, "failed to load documents")
	}
	records := make([]models.Record, len(docs))
	for i, d := range docs {
		records[i] = models.Record{
			ID:        d.ID,
			Embedding: d.Embedding.Slice(),
			Document:  d.Content,
			Metadata:  d.Metadata,
		}
	}
	log.Debug().Str("collection", c.name).Int("records", len(records)).Msg("Loaded collection records")
	return records, nil
}
