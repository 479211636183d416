package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorerag/internal/domain"
)

const lore = `The dragon lives in the north mountains.
The king rules from the capital city.`

func TestChunk_EdgeCases(t *testing.T) {
	got, err := Chunk("", 500, 50)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Chunk("   \n\t ", 500, 50)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Chunk("a b c", 500, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c"}, got)
}

func TestChunk_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{name: "overlap equals size", chunkSize: 10, overlap: 10},
		{name: "overlap exceeds size", chunkSize: 10, overlap: 20},
		{name: "zero size", chunkSize: 0, overlap: 0},
		{name: "negative overlap", chunkSize: 10, overlap: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk(lore, tt.chunkSize, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

			_, err = NewWordChunker(tt.chunkSize, tt.overlap)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestChunk_Windows(t *testing.T) {
	got, err := Chunk(lore, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"The dragon lives in the",
		"the north mountains. The king",
		"king rules from the capital",
		"capital city.",
	}, got)
}

func TestChunk_TrailingOverlapWindow(t *testing.T) {
	got, err := Chunk("a b c d e", 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c d e", "e"}, got)

	got, err = Chunk("a b c d e f g h i", 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c d e", "e f g h i", "i"}, got)

	got, err = Chunk("a b c d", 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c d"}, got)

	words := make([]string, 500)
	for i := range words {
		words[i] = "w"
	}
	got, err = Chunk(strings.Join(words, " "), 500, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, strings.Fields(got[1]), 50)
}

func TestChunk_NormalisesWhitespace(t *testing.T) {
	got, err := Chunk("  alpha\t\tbeta\n\ngamma  ", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha beta", "gamma"}, got)
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat(lore+" ", 40)
	first, err := Chunk(text, 17, 4)
	require.NoError(t, err)
	second, err := Chunk(text, 17, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunk_Coverage(t *testing.T) {
	words := make([]string, 0, 103)
	for i := 0; i < 103; i++ {
		words = append(words, "w"+strings.Repeat("x", i%7)+string(rune('a'+i%26)))
	}
	text := strings.Join(words, " ")

	for _, params := range [][2]int{{10, 3}, {7, 0}, {50, 49}, {200, 10}} {
		chunks, err := Chunk(text, params[0], params[1])
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		// Every window starts chunkSize-overlap words after the previous one.
		step := params[0] - params[1]
		covered := make([]bool, len(words))
		for i, c := range chunks {
			tokens := strings.Fields(c)
			assert.LessOrEqual(t, len(tokens), params[0])
			start := i * step
			for j, tok := range tokens {
				require.Equal(t, words[start+j], tok)
				covered[start+j] = true
			}
		}
		for i, ok := range covered {
			assert.Truef(t, ok, "word %d not covered with params %v", i, params)
		}
	}
}

func TestWordChunker(t *testing.T) {
	c, err := NewWordChunker(5, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, c.ChunkSize())
	assert.Equal(t, 1, c.Overlap())

	got, err := c.Chunk(lore)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
