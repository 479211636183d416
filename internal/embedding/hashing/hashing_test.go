package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbedder_Basics(t *testing.T) {
	e := NewEmbedder(0)
	assert.Equal(t, DefaultDimension, e.Dimension())
	assert.Equal(t, "hashing-v1-384", e.Name())

	v, err := e.Embed(context.Background(), "The dragon lives in the north mountains.")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)
	assert.InDelta(t, 1, norm(v), 1e-6)
}

func TestEmbedder_Deterministic(t *testing.T) {
	a := NewEmbedder(64)
	b := NewEmbedder(64)
	va, err := a.Embed(context.Background(), "The king rules from the capital city.")
	require.NoError(t, err)
	vb, err := b.Embed(context.Background(), "The king rules from the capital city.")
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestEmbedder_IgnoresCaseAndStopwords(t *testing.T) {
	e := NewEmbedder(0)
	va, err := e.Embed(context.Background(), "the DRAGON")
	require.NoError(t, err)
	vb, err := e.Embed(context.Background(), "a dragon")
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestEmbedder_StopwordOnlyTextIsNotZero(t *testing.T) {
	e := NewEmbedder(0)
	v, err := e.Embed(context.Background(), "to be or not to be")
	require.NoError(t, err)
	assert.InDelta(t, 1, norm(v), 1e-6)

	empty, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Zero(t, norm(empty))
}

func TestEmbedder_EmbedBatchPreservesOrder(t *testing.T) {
	e := NewEmbedder(0)
	texts := []string{"dragon", "king", "capital"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))
	for i, text := range texts {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestEmbedder_EmbedBatchHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(0).EmbedBatch(ctx, []string{"dragon"})
	assert.ErrorIs(t, err, context.Canceled)
}
