// Package vectorstore defines the named-collection contract the RAG core writes
// to and reads from, plus the backend-independent rename procedure.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"resume-rag/internal/models"
)

// Collection is a named set of records supporting similarity lookup.
type Collection interface {
	Name() string
	Count(ctx context.Context) (int, error)
	// Add is all-or-nothing. An id that already exists, or repeats within
	// records, fails the whole call with models.ErrDuplicateID. Backend
	// failures from every method carry models.ErrStorage.
	Add(ctx context.Context, records []models.Record) error
	// Query returns up to k documents, nearest first.
	Query(ctx context.Context, vector []float32, k int) ([]string, error)
	GetAll(ctx context.Context) ([]models.Record, error)
}

// Store owns the persistent collections.
type Store interface {
	// Open returns the named collection, creating it when missing.
	Open(ctx context.Context, name string) (Collection, error)
	// Create fails with models.ErrCollectionExists when name is taken.
	Create(ctx context.Context, name string) (Collection, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Rename moves every record of col into a new collection called newName and
// then deletes col. If the copy does not complete the partial target is
// dropped and col is left untouched.
func Rename(ctx context.Context, store Store, col Collection, newName string) (Collection, error) {
	if col.Name() == newName {
		return col, nil
	}
	if newName == "" {
		return nil, fmt.Errorf("%w: new collection name is required", models.ErrStorage)
	}

	records, err := col.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read collection %s: %w", models.ErrStorage, col.Name(), err)
	}

	target, err := store.Create(ctx, newName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create collection %s: %w", models.ErrStorage, newName, err)
	}

	if len(records) > 0 {
		if err := target.Add(ctx, records); err != nil {
			if derr := store.Delete(ctx, newName); derr != nil {
				log.Error().Err(derr).Str("collection", newName).Msg("Failed to drop partial rename target")
			}
			return nil, fmt.Errorf("%w: failed to copy %d records to %s: %w", models.ErrStorage, len(records), newName, err)
		}
	}

	if err := store.Delete(ctx, col.Name()); err != nil {
		// the source is still complete; drop the copy so a retry can recreate it
		if derr := store.Delete(ctx, newName); derr != nil {
			log.Error().Err(derr).Str("collection", newName).Msg("Failed to drop rename target")
		}
		return nil, fmt.Errorf("%w: failed to delete collection %s: %w", models.ErrStorage, col.Name(), err)
	}

	log.Info().Str("from", col.Name()).Str("to", newName).Int("records", len(records)).Msg("Renamed collection")
	return target, nil
}

// WrapStorage classifies a backend failure as models.ErrStorage. Errors that
// already carry it are returned unchanged.
func WrapStorage(err error, msg string) error {
	if err == nil || errors.Is(err, models.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", models.ErrStorage, msg, err)
}

// CheckIDs rejects records whose ids repeat within the batch or already exist
// according to exists. The error carries models.ErrStorage and
// models.ErrDuplicateID.
func CheckIDs(records []models.Record, exists func(id string) bool) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id is required", models.ErrStorage)
		}
		if _, ok := seen[r.ID]; ok || exists(r.ID) {
			return fmt.Errorf("%w: %w: %s", models.ErrStorage, models.ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
