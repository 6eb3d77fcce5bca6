// Package sqlite provides a persistent index cache backed by SQLite.
//
// Each cache entry maps (document fingerprint, embedding scheme version)
// to one serialized index. Store replaces an entry inside a single
// transaction, so concurrent readers never observe a partially written
// index. Eviction is left to an external storage-quota policy.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MIMICLab/DocsRay/internal/adapters/driven/cache/sqlite/migrations"
	"github.com/MIMICLab/DocsRay/internal/core/domain"
	"github.com/MIMICLab/DocsRay/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.IndexCache = (*Cache)(nil)

// Cache is a SQLite-based implementation of driven.IndexCache.
type Cache struct {
	db   *sql.DB
	path string
}

// NewCache creates a SQLite index cache in the given data directory.
// If dataDir is empty, defaults to ~/.docsray/cache.
func NewCache(dataDir string) (*Cache, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docsray", "cache")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode lets queries read while a build is storing.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	c := &Cache{db: db, path: dbPath}

	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Load returns the cached index for the key, or domain.ErrNotFound.
func (c *Cache) Load(ctx context.Context, fingerprint, scheme string) (*domain.Index, error) {
	idx := &domain.Index{Fingerprint: fingerprint, Scheme: scheme}

	row := c.db.QueryRowContext(ctx, `
		SELECT build_id, title, created_at
		FROM indices WHERE fingerprint = ? AND scheme = ?
	`, fingerprint, scheme)
	if err := row.Scan(&idx.BuildID, &idx.Title, &idx.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading index entry: %w", err)
	}

	chunks, err := c.loadChunks(ctx, fingerprint, scheme)
	if err != nil {
		return nil, err
	}
	sections, err := c.loadSections(ctx, fingerprint, scheme)
	if err != nil {
		return nil, err
	}

	idx.Chunks = chunks
	idx.Sections = sections
	idx.Reindex()
	return idx, nil
}

// Store persists the index, replacing any previous entry for the same
// (fingerprint, scheme) key. The whole write runs in one transaction:
// it publishes either the complete index or nothing.
func (c *Cache) Store(ctx context.Context, index *domain.Index) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Replace the entry; cascades clear old chunks and sections.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM indices WHERE fingerprint = ? AND scheme = ?
	`, index.Fingerprint, index.Scheme); err != nil {
		return fmt.Errorf("clearing previous entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO indices (fingerprint, scheme, build_id, title, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, index.Fingerprint, index.Scheme, index.BuildID, index.Title, index.CreatedAt); err != nil {
		return fmt.Errorf("saving index entry: %w", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_chunks
			(fingerprint, scheme, ord, chunk_id, section_index, position, content, token_count, page, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer chunkStmt.Close()

	for ord, chunk := range index.Chunks {
		if _, err := chunkStmt.ExecContext(ctx,
			index.Fingerprint, index.Scheme, ord,
			chunk.ID, chunk.SectionIndex, chunk.Position, chunk.Content,
			chunk.TokenCount, chunk.Page, float32SliceToBytes(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("saving chunk %d: %w", ord, err)
		}
	}

	sectionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_sections
			(fingerprint, scheme, section_index, title, start_page, vector)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing section statement: %w", err)
	}
	defer sectionStmt.Close()

	for _, rep := range index.Sections {
		if _, err := sectionStmt.ExecContext(ctx,
			index.Fingerprint, index.Scheme,
			rep.SectionIndex, rep.Title, rep.StartPage, float32SliceToBytes(rep.Vector),
		); err != nil {
			return fmt.Errorf("saving section rep %d: %w", rep.SectionIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes the cache entry for the key, if present.
func (c *Cache) Delete(ctx context.Context, fingerprint, scheme string) error {
	if _, err := c.db.ExecContext(ctx, `
		DELETE FROM indices WHERE fingerprint = ? AND scheme = ?
	`, fingerprint, scheme); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}

func (c *Cache) loadChunks(ctx context.Context, fingerprint, scheme string) ([]domain.Chunk, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT chunk_id, section_index, position, content, token_count, page, embedding
		FROM index_chunks
		WHERE fingerprint = ? AND scheme = ?
		ORDER BY ord
	`, fingerprint, scheme)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.SectionIndex, &chunk.Position,
			&chunk.Content, &chunk.TokenCount, &chunk.Page, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func (c *Cache) loadSections(ctx context.Context, fingerprint, scheme string) ([]domain.SectionRep, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT section_index, title, start_page, vector
		FROM index_sections
		WHERE fingerprint = ? AND scheme = ?
		ORDER BY section_index
	`, fingerprint, scheme)
	if err != nil {
		return nil, fmt.Errorf("querying section reps: %w", err)
	}
	defer rows.Close()

	var sections []domain.SectionRep //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rep domain.SectionRep
		var blob []byte
		if err := rows.Scan(&rep.SectionIndex, &rep.Title, &rep.StartPage, &blob); err != nil {
			return nil, fmt.Errorf("scanning section rep: %w", err)
		}
		rep.Vector = bytesToFloat32Slice(blob)
		sections = append(sections, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating section reps: %w", err)
	}
	return sections, nil
}

// migrate runs all pending migrations.
func (c *Cache) migrate(fsys embed.FS) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := c.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if floats == nil {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
