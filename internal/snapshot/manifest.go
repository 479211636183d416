package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lorerag/internal/domain"
)

const (
	// ManifestName is the fixed publish point of a snapshot directory.
	ManifestName = "manifest.yaml"
	// FormatVersion is the manifest layout version written by this package.
	FormatVersion = 1
	// DistanceL2 is the only distance recorded in manifests.
	DistanceL2 = "l2"

	indexPrefix    = "lore_index-"
	indexSuffix    = ".bin"
	metadataPrefix = "lore_metadata-"
	metadataSuffix = ".db"
)

func indexFileName(gen string) string    { return indexPrefix + gen + indexSuffix }
func metadataFileName(gen string) string { return metadataPrefix + gen + metadataSuffix }

// ReadManifest loads the published manifest of dir.
func ReadManifest(dir string) (domain.Manifest, error) {
	var m domain.Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, fmt.Errorf("%w: no %s in %s", domain.ErrSnapshotNotFound, ManifestName, dir)
		}
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: parse manifest: %v", domain.ErrSnapshotCorrupt, err)
	}
	if m.Version != FormatVersion {
		return m, fmt.Errorf("%w: unsupported manifest version %d", domain.ErrSnapshotCorrupt, m.Version)
	}
	if m.IndexFile == "" || m.MetadataFile == "" {
		return m, fmt.Errorf("%w: manifest names no artifacts", domain.ErrSnapshotCorrupt)
	}
	if filepath.Base(m.IndexFile) != m.IndexFile || filepath.Base(m.MetadataFile) != m.MetadataFile {
		return m, fmt.Errorf("%w: artifact names must be plain file names", domain.ErrSnapshotCorrupt)
	}
	return m, nil
}

// publishManifest replaces dir/manifest.yaml in a single rename.
func publishManifest(dir string, m domain.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, ManifestName)); err != nil {
		return fmt.Errorf("publish manifest: %w", err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes directory entries. Not every platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
