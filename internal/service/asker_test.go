package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorerag/internal/domain"
)

type stubSearcher struct {
	results []domain.SearchResult
	err     error
	topK    int
}

func (s *stubSearcher) Search(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	s.topK = topK
	return s.results, s.err
}

type stubAnswerer struct {
	chunks []string
	err    error
}

func (a *stubAnswerer) Name() string { return "stub" }

func (a *stubAnswerer) Answer(_ context.Context, question string, chunks []string) (string, error) {
	a.chunks = chunks
	if a.err != nil {
		return "", a.err
	}
	return "answer to " + question, nil
}

func TestAsk_PassesChunksInOrder(t *testing.T) {
	s := &stubSearcher{results: []domain.SearchResult{
		{Chunk: domain.Chunk{Index: 2, Text: "second"}, Distance: 0.1},
		{Chunk: domain.Chunk{Index: 0, Text: "first"}, Distance: 0.4},
	}}
	a := &stubAnswerer{}

	got, err := NewAsker(s, a, 3, nil).Ask(context.Background(), "  who?  ")
	require.NoError(t, err)
	assert.Equal(t, "answer to who?", got.Text)
	assert.Equal(t, []string{"second", "first"}, a.chunks)
	assert.Len(t, got.Sources, 2)
	assert.Equal(t, 3, s.topK)
}

func TestAsk_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewAsker(&stubSearcher{}, &stubAnswerer{}, 3, nil).Ask(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = NewAsker(&stubSearcher{err: domain.ErrSnapshotNotFound}, &stubAnswerer{}, 3, nil).Ask(ctx, "q")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	_, err = NewAsker(&stubSearcher{}, &stubAnswerer{err: errors.New("quota")}, 3, nil).Ask(ctx, "q")
	assert.ErrorIs(t, err, domain.ErrAnswer)

	_, err = NewAsker(&stubSearcher{}, &stubAnswerer{err: context.DeadlineExceeded}, 3, nil).Ask(ctx, "q")
	assert.ErrorIs(t, err, domain.ErrAnswer)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
