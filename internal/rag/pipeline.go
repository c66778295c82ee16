package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"resume-rag/internal/models"
	"resume-rag/internal/provider"
)

// IndexChunks embeds and stores chunks as chunk_0..chunk_{n-1}. A collection
// that already holds records is left alone, so indexing happens once.
func (s *Session) IndexChunks(ctx context.Context, chunks []string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	col := s.current()
	count, err := col.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to count collection %s: %w", models.ErrIndexing, col.Name(), err)
	}
	if count > 0 {
		s.logger().Debug().Int("records", count).Msg("Collection already indexed, skipping")
		return nil
	}
	_, err = s.write(ctx, chunks, 0)
	return err
}

// AddChunks appends chunks with ids continuing after the current count and
// returns how many were added.
func (s *Session) AddChunks(ctx context.Context, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	col := s.current()
	count, err := col.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count collection %s: %w", models.ErrIndexing, col.Name(), err)
	}
	return s.write(ctx, chunks, count)
}

// write must be called with writeMu held so start stays the collection's count
// until the records land.
func (s *Session) write(ctx context.Context, chunks []string, start int) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, err
	}

	records := make([]models.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.Record{
			ID:        fmt.Sprintf("%s%d", models.ChunkIDPrefix, start+i),
			Embedding: vectors[i],
			Document:  chunk,
		}
	}

	col := s.current()
	if err := col.Add(ctx, records); err != nil {
		return 0, fmt.Errorf("%w: failed to write %d records to %s: %w", models.ErrIndexing, len(records), col.Name(), err)
	}
	s.logger().Info().Int("chunks", len(chunks)).Int("first_id", start).Msg("Indexed chunks")
	return len(chunks), nil
}

// embedAll embeds chunks in batches. Batches may run in parallel but results
// land at their chunk's position, and nothing is returned unless every batch
// succeeded.
func (s *Session) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	size := s.opts.BatchSize
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EmbedConcurrency)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		g.Go(func() error {
			embs, err := s.provider.EmbedContent(gctx, chunks[start:end], provider.PurposeDocument)
			if err != nil {
				return fmt.Errorf("%w: failed to embed chunks %d-%d: %w", models.ErrIndexing, start, end-1, err)
			}
			if len(embs) != end-start {
				return fmt.Errorf("%w: expected %d embeddings for chunks %d-%d, got %d", models.ErrIndexing, end-start, start, end-1, len(embs))
			}
			copy(vectors[start:end], embs)
			s.logger().Debug().Int("from", start).Int("to", end-1).Msg("Embedded batch")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
