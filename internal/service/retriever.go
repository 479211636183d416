package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/phuslu/log"

	"lorerag/internal/domain"
	"lorerag/internal/snapshot"
)

// Retriever answers top-k queries against the snapshot of one directory.
// The loaded snapshot is immutable and swapped whole on Reload, so queries
// need no locks and in-flight ones finish on the snapshot they started with.
type Retriever struct {
	dir      string
	embedder domain.Embedder
	logger   *log.Logger
	current  atomic.Pointer[snapshot.Snapshot]
}

var _ domain.Retriever = (*Retriever)(nil)

// NewRetriever returns a retriever for dir with nothing loaded yet. Queries
// fail with ErrSnapshotNotFound until a Reload succeeds.
func NewRetriever(dir string, embedder domain.Embedder, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Retriever{dir: dir, embedder: embedder, logger: logger}
}

// Load opens the snapshot in dir for querying with embedder.
func Load(ctx context.Context, dir string, embedder domain.Embedder, logger *log.Logger) (*Retriever, error) {
	r := NewRetriever(dir, embedder, logger)
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload reads the currently published snapshot and swaps it in. On error
// the previously loaded snapshot stays in service.
func (r *Retriever) Reload(ctx context.Context) error {
	snap, err := snapshot.Read(ctx, r.dir)
	if err != nil {
		return err
	}
	m := snap.Manifest
	if m.Model != r.embedder.Name() || m.Dimension != r.embedder.Dimension() {
		return fmt.Errorf("%w: snapshot built with %s (%d dims), embedder is %s (%d dims)",
			domain.ErrSnapshotMismatch, m.Model, m.Dimension, r.embedder.Name(), r.embedder.Dimension())
	}
	r.current.Store(snap)
	r.logger.Info().Str("dir", r.dir).Str("build_id", m.BuildID).Int("chunks", m.ChunkCount).Msg("snapshot loaded")
	return nil
}

// Info returns the manifest of the loaded snapshot.
func (r *Retriever) Info() (domain.Manifest, bool) {
	snap := r.current.Load()
	if snap == nil {
		return domain.Manifest{}, false
	}
	return snap.Manifest, true
}

// Retrieve returns the texts of the topK chunks nearest to query, nearest
// first. A topK above the chunk count returns every chunk.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	results, err := r.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Chunk.Text
	}
	return texts, nil
}

// Search is Retrieve with chunk positions and distances.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	snap := r.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: nothing loaded from %s", domain.ErrSnapshotNotFound, r.dir)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrRetrieval, topK)
	}
	if len(snap.Chunks) == 0 {
		return []domain.SearchResult{}, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrieval, err)
	}
	hits, err := snap.Index.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}
	out := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		out[i] = domain.SearchResult{
			Chunk:    domain.Chunk{Index: h.Position, Text: snap.Chunks[h.Position]},
			Distance: h.Distance,
		}
	}
	r.logger.Debug().Int("top_k", topK).Int("hits", len(out)).Msg("retrieved")
	return out, nil
}
