package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/phuslu/log"
	"google.golang.org/genai"

	"lorerag/internal/config"
	"lorerag/internal/domain"
	"lorerag/internal/embedding/gemini"
	"lorerag/internal/embedding/hashing"
	"lorerag/internal/embedding/openai"
	"lorerag/internal/llm"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func newGenAIClient(ctx context.Context, keyEnv string) (*genai.Client, error) {
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", keyEnv)
	}
	return genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
}

// newEmbedder assembles the embedder selected by cfg.
func newEmbedder(ctx context.Context, cfg config.EmbedderConfig, logger *log.Logger) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Hashing.Dimension), nil
	case "openai":
		o := cfg.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:     o.BaseURL,
			APIKeyEnv:   o.APIKeyEnv,
			Model:       o.Model,
			Dimension:   o.Dimension,
			Timeout:     secs(o.TimeoutSecs),
			BatchSize:   o.BatchSize,
			Concurrency: o.Concurrency,
			MaxRetries:  o.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		g := cfg.Gemini
		client, err := newGenAIClient(ctx, g.APIKeyEnv)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		emb, err := gemini.NewEmbedder(client, gemini.Config{
			Model:     g.Model,
			Dimension: g.Dimension,
			Timeout:   secs(g.TimeoutSecs),
		}, logger)
		if err != nil {
			return nil, err
		}
		return emb, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfiguration, cfg.Type)
	}
}

// newAnswerer assembles the answerer selected by cfg. A Gemini answerer
// without an API key falls back to the extractive one.
func newAnswerer(ctx context.Context, cfg config.LLMConfig, logger *log.Logger) (domain.Answerer, error) {
	switch cfg.Type {
	case "extractive":
		return llm.NewExtractiveAnswerer(cfg.MaxSentences), nil
	case "gemini", "":
		client, err := newGenAIClient(ctx, cfg.APIKeyEnv)
		if err != nil {
			logger.Warn().Err(err).Msg("gemini unavailable, answering extractively")
			return llm.NewExtractiveAnswerer(cfg.MaxSentences), nil
		}
		ans, err := llm.NewGeminiAnswerer(client, llm.GeminiConfig{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     secs(cfg.TimeoutSecs),
			MaxRetries:  cfg.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		return ans, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm %q", domain.ErrInvalidConfiguration, cfg.Type)
	}
}
