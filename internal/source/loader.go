package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"lorerag/internal/domain"
)

// Load reads the lorebook at path. A missing file is reported as
// domain.ErrSourceNotFound; other read failures are returned as is.
func Load(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrSourceNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: lorebook not found at %s", domain.ErrSourceNotFound, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrSourceNotFound, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
