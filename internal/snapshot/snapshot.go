// Package snapshot persists a corpus snapshot: the vector index, the ordered
// chunk texts and a manifest tying them together.
//
// A snapshot directory holds generation-named artifacts and one fixed-name
// manifest.yaml. Writers publish by renaming a new manifest over the old one,
// so a reader sees either the previous snapshot or the new one in full. The
// previous generation is kept on disk for readers that resolved the old
// manifest just before the swap.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"lorerag/internal/domain"
	"lorerag/internal/vectorstore"
	"lorerag/internal/vectorstore/flat"
)

// Snapshot is a loaded, read-only corpus snapshot. Chunks[i] is the text of
// the i-th vector in Index.
type Snapshot struct {
	Manifest domain.Manifest
	Index    vectorstore.Index
	Chunks   []string
}

// Params are the build parameters recorded in the manifest.
type Params struct {
	Model     string
	ChunkSize int
	Overlap   int
}

// Write persists ix and chunks into dir and publishes them. It returns the
// published manifest.
func Write(ctx context.Context, dir string, ix vectorstore.Index, chunks []string, p Params) (domain.Manifest, error) {
	if ix == nil {
		return domain.Manifest{}, errors.New("snapshot: nil index")
	}
	if ix.Len() != len(chunks) {
		return domain.Manifest{}, fmt.Errorf("snapshot: index holds %d vectors for %d chunks", ix.Len(), len(chunks))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Manifest{}, fmt.Errorf("create snapshot dir: %w", err)
	}

	previous, err := ReadManifest(dir)
	hasPrevious := err == nil

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("generate build id: %w", err)
	}
	m := domain.Manifest{
		Version:      FormatVersion,
		BuildID:      id.String(),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		Model:        p.Model,
		Dimension:    ix.Dimension(),
		Distance:     DistanceL2,
		ChunkSize:    p.ChunkSize,
		Overlap:      p.Overlap,
		ChunkCount:   len(chunks),
		IndexFile:    indexFileName(id.String()),
		MetadataFile: metadataFileName(id.String()),
	}

	indexPath := filepath.Join(dir, m.IndexFile)
	metaPath := filepath.Join(dir, m.MetadataFile)
	published := false
	defer func() {
		if !published {
			_ = os.Remove(indexPath)
			_ = os.Remove(metaPath)
		}
	}()

	data, err := ix.MarshalBinary()
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("encode index: %w", err)
	}
	if err := writeFileSync(indexPath, data); err != nil {
		return domain.Manifest{}, fmt.Errorf("write index: %w", err)
	}
	m.IndexSHA256 = digest(data)

	meta := map[string]string{
		"build_id":  m.BuildID,
		"model":     m.Model,
		"dimension": fmt.Sprint(m.Dimension),
	}
	if err := writeMetadata(ctx, metaPath, chunks, meta); err != nil {
		return domain.Manifest{}, err
	}
	if err := syncFile(metaPath); err != nil {
		return domain.Manifest{}, fmt.Errorf("sync metadata: %w", err)
	}
	if m.MetadataSHA256, err = fileDigest(metaPath); err != nil {
		return domain.Manifest{}, err
	}

	if err := ctx.Err(); err != nil {
		return domain.Manifest{}, err
	}
	if err := publishManifest(dir, m); err != nil {
		return domain.Manifest{}, err
	}
	published = true

	keep := map[string]bool{m.IndexFile: true, m.MetadataFile: true}
	if hasPrevious {
		keep[previous.IndexFile] = true
		keep[previous.MetadataFile] = true
	}
	collect(dir, keep)
	return m, nil
}

// errArtifactGone marks an artifact named by the manifest that no longer
// exists. It always travels with domain.ErrSnapshotNotFound.
var errArtifactGone = errors.New("artifact gone")

// manifestRead runs between reading the manifest and opening its artifacts.
// Tests use it to publish concurrently at that point.
var manifestRead func()

// Read loads the snapshot published in dir and verifies it against its
// manifest. If the artifacts vanish because newer builds were published
// after the manifest was read, Read starts over once from the new manifest.
func Read(ctx context.Context, dir string) (*Snapshot, error) {
	snap, m, err := read(ctx, dir)
	if err != nil && errors.Is(err, errArtifactGone) {
		if cur, cerr := ReadManifest(dir); cerr == nil && cur.BuildID != m.BuildID {
			snap, _, err = read(ctx, dir)
		}
	}
	return snap, err
}

func read(ctx context.Context, dir string) (*Snapshot, domain.Manifest, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, m, err
	}
	if manifestRead != nil {
		manifestRead()
	}
	indexPath := filepath.Join(dir, m.IndexFile)
	metaPath := filepath.Join(dir, m.MetadataFile)
	gone := func(p string) error {
		return fmt.Errorf("%w: %w: missing artifact %s", domain.ErrSnapshotNotFound, errArtifactGone, filepath.Base(p))
	}
	for _, p := range []string{indexPath, metaPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, m, gone(p)
			}
			return nil, m, err
		}
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, m, gone(indexPath)
		}
		return nil, m, fmt.Errorf("read index: %w", err)
	}
	if got := digest(data); got != m.IndexSHA256 {
		return nil, m, fmt.Errorf("%w: index checksum %s, manifest says %s", domain.ErrSnapshotCorrupt, got, m.IndexSHA256)
	}
	ix := &flat.Index{}
	if err := ix.UnmarshalBinary(data); err != nil {
		return nil, m, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	if ix.Dimension() != m.Dimension {
		return nil, m, fmt.Errorf("%w: index dimension %d, manifest says %d", domain.ErrSnapshotCorrupt, ix.Dimension(), m.Dimension)
	}

	sum, err := fileDigest(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, m, gone(metaPath)
		}
		return nil, m, err
	}
	if sum != m.MetadataSHA256 {
		return nil, m, fmt.Errorf("%w: metadata checksum %s, manifest says %s", domain.ErrSnapshotCorrupt, sum, m.MetadataSHA256)
	}
	chunks, meta, err := readMetadata(ctx, metaPath)
	if err != nil {
		if _, serr := os.Stat(metaPath); errors.Is(serr, fs.ErrNotExist) {
			return nil, m, gone(metaPath)
		}
		return nil, m, fmt.Errorf("%w: read metadata: %v", domain.ErrSnapshotCorrupt, err)
	}
	if id := meta["build_id"]; id != m.BuildID {
		return nil, m, fmt.Errorf("%w: metadata belongs to build %q, manifest says %q", domain.ErrSnapshotCorrupt, id, m.BuildID)
	}
	if len(chunks) != ix.Len() || len(chunks) != m.ChunkCount {
		return nil, m, fmt.Errorf("%w: %d chunks, %d vectors, manifest says %d", domain.ErrSnapshotCorrupt, len(chunks), ix.Len(), m.ChunkCount)
	}
	return &Snapshot{Manifest: m, Index: ix, Chunks: chunks}, m, nil
}

// collect removes artifacts of generations not named in keep.
func collect(dir string, keep map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || keep[name] || !isArtifact(name) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
}

func isArtifact(name string) bool {
	return (strings.HasPrefix(name, indexPrefix) && strings.HasSuffix(name, indexSuffix)) ||
		(strings.HasPrefix(name, metadataPrefix) && strings.HasSuffix(name, metadataSuffix))
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
