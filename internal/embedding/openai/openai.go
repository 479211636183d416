package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/phuslu/log"
	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"lorerag/internal/embedding"
)

const defaultBaseURL = "https://api.openai.com/v1"

var errBadResponse = errors.New("unexpected embeddings response")

// Client is an OpenAI-compatible embeddings client implementing
// domain.Embedder. It works against OpenAI itself and against Ollama's
// /v1 endpoint (e.g. model "all-minilm", 384 dimensions).
type Client struct {
	client      *goopenai.Client
	model       string
	dimension   int
	timeout     time.Duration
	batchSize   int
	concurrency int
	maxRetries  int
	logger      *log.Logger
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Dimension   int
	Timeout     time.Duration
	BatchSize   int
	Concurrency int
	MaxRetries  int
}

// NewClient creates a new embeddings client using the provided configuration.
// The API key is only mandatory when talking to api.openai.com.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("openai embedder: dimension must be set for model %s", cfg.Model)
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		if cfg.BaseURL == defaultBaseURL {
			return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
		}
		key = "unused"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}

	oc := goopenai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:      goopenai.NewClientWithConfig(oc),
		model:       cfg.Model,
		dimension:   cfg.Dimension,
		timeout:     cfg.Timeout,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
	}, nil
}

// Name returns the model identity recorded in snapshots.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch splits texts into batches of BatchSize and sends up to
// Concurrency of them at once. Output order matches input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := c.embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			c.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("retrying embeddings request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		vecs, err := c.request(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, fmt.Errorf("openai embeddings failed: %w", lastErr)
}

func (c *Client) request(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(callCtx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: index %d out of range", errBadResponse, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	if err := embedding.CheckBatch(out, len(texts), c.dimension); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadResponse, err)
	}
	return out, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, errBadResponse) {
		return false
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	// Transport errors and timeouts.
	return true
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
