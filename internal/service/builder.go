package service

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"lorerag/internal/chunker"
	"lorerag/internal/domain"
	"lorerag/internal/snapshot"
	"lorerag/internal/source"
	"lorerag/internal/vectorstore/flat"
)

// Builder turns a lorebook into a published corpus snapshot.
type Builder struct {
	embedder  domain.Embedder
	chunkSize int
	overlap   int
	logger    *log.Logger
}

// NewBuilder creates a builder that chunks with the given window parameters
// and embeds with embedder. Parameters are validated on Build.
func NewBuilder(embedder domain.Embedder, chunkSize, overlap int, logger *log.Logger) *Builder {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Builder{embedder: embedder, chunkSize: chunkSize, overlap: overlap, logger: logger}
}

// Build reads the lorebook at sourcePath and publishes its snapshot into
// outputDir. It returns the number of chunks indexed.
func (b *Builder) Build(ctx context.Context, sourcePath, outputDir string) (int, error) {
	if _, err := chunker.NewWordChunker(b.chunkSize, b.overlap); err != nil {
		return 0, err
	}
	text, err := source.Load(sourcePath)
	if err != nil {
		return 0, err
	}
	b.logger.Info().Str("source", sourcePath).Int("bytes", len(text)).Msg("loaded lorebook")
	return b.BuildText(ctx, text, outputDir)
}

// BuildText is Build for text already in memory.
func (b *Builder) BuildText(ctx context.Context, text, outputDir string) (int, error) {
	start := time.Now()
	wc, err := chunker.NewWordChunker(b.chunkSize, b.overlap)
	if err != nil {
		return 0, err
	}
	chunks, err := wc.Chunk(text)
	if err != nil {
		return 0, err
	}
	b.logger.Info().Str("model", b.embedder.Name()).Int("chunks", len(chunks)).Int("chunk_size", b.chunkSize).Int("overlap", b.overlap).Msg("building snapshot")

	vectors, err := b.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	ix, err := flat.New(b.embedder.Dimension())
	if err != nil {
		return 0, err
	}
	if err := ix.Add(vectors...); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	m, err := snapshot.Write(ctx, outputDir, ix, chunks, snapshot.Params{
		Model:     b.embedder.Name(),
		ChunkSize: b.chunkSize,
		Overlap:   b.overlap,
	})
	if err != nil {
		return 0, err
	}
	b.logger.Info().
		Str("dir", outputDir).
		Str("build_id", m.BuildID).
		Str("model", m.Model).
		Int("dimension", m.Dimension).
		Int("chunks", m.ChunkCount).
		Dur("took", time.Since(start)).
		Msg("snapshot published")
	return len(chunks), nil
}
