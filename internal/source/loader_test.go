package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorerag/internal/domain"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw_lore.txt")
	require.NoError(t, os.WriteFile(path, []byte("The dragon sleeps."), 0o644))

	text, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "The dragon sleeps.", text)
}

func TestLoad_NotFound(t *testing.T) {
	dir := t.TempDir()

	for _, path := range []string{"", filepath.Join(dir, "missing.txt"), dir} {
		_, err := Load(path)
		assert.ErrorIs(t, err, domain.ErrSourceNotFound, "path %q", path)
	}
}
