package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const metadataSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	position INTEGER PRIMARY KEY,
	text     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

func openMetadata(path string) (*sql.DB, error) { return sql.Open("sqlite", path) }

// openMetadataReadOnly opens an existing metadata file. A missing file is an
// error rather than a new empty database.
func openMetadataReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
}

// writeMetadata stores the ordered chunk texts and key/value metadata in a
// fresh SQLite file at path.
func writeMetadata(ctx context.Context, path string, chunks []string, meta map[string]string) error {
	db, err := openMetadata(path)
	if err != nil {
		return fmt.Errorf("open metadata: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, metadataSchema); err != nil {
		return fmt.Errorf("create metadata schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks(position, text) VALUES(?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, text := range chunks {
		if _, err := stmt.ExecContext(ctx, i, text); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES(?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata: %w", err)
	}
	return nil
}

// readMetadata returns chunk texts ordered by position and the meta table.
// Positions must run 0..n-1 without gaps.
func readMetadata(ctx context.Context, path string) ([]string, map[string]string, error) {
	db, err := openMetadataReadOnly(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT position, text FROM chunks ORDER BY position`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var chunks []string
	for rows.Next() {
		var (
			pos  int
			text string
		)
		if err := rows.Scan(&pos, &text); err != nil {
			return nil, nil, err
		}
		if pos != len(chunks) {
			return nil, nil, fmt.Errorf("chunk positions not contiguous at %d", pos)
		}
		chunks = append(chunks, text)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	meta := map[string]string{}
	mrows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var k, v string
		if err := mrows.Scan(&k, &v); err != nil {
			return nil, nil, err
		}
		meta[k] = v
	}
	if err := mrows.Err(); err != nil {
		return nil, nil, err
	}
	if chunks == nil {
		chunks = []string{}
	}
	return chunks, meta, nil
}
