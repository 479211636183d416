package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"google.golang.org/genai"

	"lorerag/internal/embedding"
)

// maxBatch is the largest number of contents the Gemini API accepts in one
// embedding request.
const maxBatch = 100

// Config configures the Gemini embedder.
type Config struct {
	Model     string
	Dimension int
	Timeout   time.Duration
}

// Embedder produces embeddings with a Gemini embedding model.
type Embedder struct {
	client    *genai.Client
	model     string
	dimension int
	timeout   time.Duration
	logger    *log.Logger
}

// NewEmbedder wraps an initialised genai client.
func NewEmbedder(client *genai.Client, cfg Config, logger *log.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("gemini embedder: genai client is nil")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-embedding-001"
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("gemini embedder: dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Embedder{client: client, model: cfg.Model, dimension: cfg.Dimension, timeout: cfg.Timeout, logger: logger}, nil
}

// Name returns the model identity recorded in snapshots.
func (e *Embedder) Name() string { return "gemini:" + e.model }

// Dimension returns the configured output dimensionality.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns an embedding vector for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in requests of at most 100 contents each.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	outputDim := int32(e.dimension)
	start := time.Now()
	result, err := e.client.Models.EmbedContent(callCtx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if result == nil {
		return nil, errors.New("no embedding returned from API")
	}
	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("embedding %d missing from response", i)
		}
		vec := append([]float32(nil), emb.Values...)
		// Reduced-dimension Gemini embeddings are not unit length.
		embedding.Normalize(vec)
		out[i] = vec
	}
	if err := embedding.CheckBatch(out, len(texts), e.dimension); err != nil {
		return nil, err
	}
	e.logger.Debug().Int("texts", len(texts)).Dur("took", time.Since(start)).Msg("gemini embeddings generated")
	return out, nil
}
