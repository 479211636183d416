package chunker

import (
	"fmt"
	"strings"

	"lorerag/internal/domain"
)

// WordChunker splits text into fixed-size word windows that overlap by a
// fixed number of words.
type WordChunker struct {
	chunkSize int
	overlap   int
}

// NewWordChunker validates the window parameters up front so a bad
// configuration fails before any document is read.
func NewWordChunker(chunkSize, overlap int) (*WordChunker, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &WordChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk implements domain.Chunker.
func (c *WordChunker) Chunk(text string) ([]string, error) {
	return Chunk(text, c.chunkSize, c.overlap)
}

// ChunkSize returns the window length in words.
func (c *WordChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the number of words shared by consecutive windows.
func (c *WordChunker) Overlap() int { return c.overlap }

// Chunk splits text on whitespace and joins windows of chunkSize words with
// single spaces. A window starts every chunkSize-overlap words while the start
// is inside the text, so the last one may be shorter and may hold only the
// final overlap words. Empty text yields no chunks.
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}
	step := chunkSize - overlap
	chunks := make([]string, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidConfiguration, overlap, chunkSize)
	}
	return nil
}
