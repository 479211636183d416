package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"lorerag/internal/domain"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Searcher is the part of a retriever the ask flow needs.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Answer is the result of one question.
type Answer struct {
	Text    string
	Sources []domain.SearchResult
}

// Asker retrieves context for a question and hands it to an answerer.
type Asker struct {
	searcher Searcher
	answerer domain.Answerer
	topK     int
	logger   *log.Logger
}

// NewAsker wires a searcher and an answerer together.
func NewAsker(searcher Searcher, answerer domain.Answerer, topK int, logger *log.Logger) *Asker {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Asker{searcher: searcher, answerer: answerer, topK: topK, logger: logger}
}

// Ask answers question from the topK nearest chunks.
func (a *Asker) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	start := time.Now()
	sources, err := a.searcher.Search(ctx, question, a.topK)
	if err != nil {
		return Answer{}, err
	}
	chunks := make([]string, len(sources))
	for i, s := range sources {
		chunks[i] = s.Chunk.Text
	}
	text, err := a.answerer.Answer(ctx, question, chunks)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %s: %w", domain.ErrAnswer, a.answerer.Name(), err)
	}
	a.logger.Info().Str("answerer", a.answerer.Name()).Int("sources", len(sources)).Dur("took", time.Since(start)).Msg("answered question")
	return Answer{Text: text, Sources: sources}, nil
}
