package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini answerer.
type GeminiConfig struct {
	Model       string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
}

// GeminiAnswerer answers with a Gemini model through the genai SDK.
type GeminiAnswerer struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *log.Logger
}

// NewGeminiAnswerer wraps an existing genai client.
func NewGeminiAnswerer(client *genai.Client, cfg GeminiConfig, logger *log.Logger) (*GeminiAnswerer, error) {
	if client == nil {
		return nil, errors.New("gemini answerer: nil client")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &GeminiAnswerer{client: client, cfg: cfg, logger: logger}, nil
}

// Name returns the model used for answers.
func (g *GeminiAnswerer) Name() string { return "gemini:" + g.cfg.Model }

// Answer asks the model to answer question from chunks only.
func (g *GeminiAnswerer) Answer(ctx context.Context, question string, chunks []string) (string, error) {
	if len(chunks) == 0 {
		return NoContextAnswer, nil
	}
	prompt := BuildPrompt(question, chunks)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}

	var (
		resp   *genai.GenerateContentResponse
		apiErr error
	)
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := min(time.Second<<(attempt-1), 10*time.Second)
			g.logger.Warn().Err(apiErr).Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying gemini answer")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		resp, apiErr = g.client.Models.GenerateContent(callCtx, g.cfg.Model, []*genai.Content{
			genai.NewContentFromText(prompt, genai.RoleUser),
		}, config)
		cancel()
		if apiErr == nil || ctx.Err() != nil {
			break
		}
	}
	if apiErr != nil {
		return "", fmt.Errorf("generate content (model: %s): %w", g.cfg.Model, apiErr)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from %s", g.cfg.Model)
	}
	return text, nil
}
