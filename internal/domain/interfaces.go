package domain

import (
	"context"
	"time"
)

// Chunk is one overlapping word window of the lorebook. Index is its position
// in the ordered chunk list and doubles as the row of its vector in the index.
type Chunk struct {
	Index int
	Text  string
}

// SearchResult represents a matching chunk with its L2 distance to the query.
type SearchResult struct {
	Chunk    Chunk
	Distance float64
}

// Manifest describes a published corpus snapshot.
type Manifest struct {
	Version        int       `yaml:"version"`
	BuildID        string    `yaml:"build_id"`
	CreatedAt      time.Time `yaml:"created_at"`
	Model          string    `yaml:"model"`
	Dimension      int       `yaml:"dimension"`
	Distance       string    `yaml:"distance"`
	ChunkSize      int       `yaml:"chunk_size"`
	Overlap        int       `yaml:"overlap"`
	ChunkCount     int       `yaml:"chunk_count"`
	IndexFile      string    `yaml:"index_file"`
	MetadataFile   string    `yaml:"metadata_file"`
	IndexSHA256    string    `yaml:"index_sha256"`
	MetadataSHA256 string    `yaml:"metadata_sha256"`
}

// Embedder converts free text into fixed-dimension vectors. Name identifies
// the model and version; snapshots record it and refuse to load under a
// different one.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits a document into ordered chunk texts.
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// Retriever answers nearest-neighbour queries against a loaded snapshot.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

// Answerer produces a natural-language answer grounded in context chunks.
type Answerer interface {
	Name() string
	Answer(ctx context.Context, question string, chunks []string) (string, error)
}
