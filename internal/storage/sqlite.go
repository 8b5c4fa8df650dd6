package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore is an embedded vector store backed by a single SQLite database
// file inside the persist directory. Collections are rows sharing a collection
// name; similarity search is a brute-force dot product over the collection,
// which is adequate for per-document collections of a few thousand chunks.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the store under dataDir.
// The database uses WAL mode so concurrent ingestion of different collections
// does not serialize on a single writer lock for reads.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id         TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			book_id    TEXT NOT NULL,
			source     TEXT NOT NULL,
			page       INTEGER NOT NULL,
			content    TEXT NOT NULL,
			vector     BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
	`)
	if err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// UpsertBatch appends records to the named collection inside one transaction.
// The transaction commits before returning, so each batch survives a crash
// that happens mid-ingestion of later batches.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	dim := len(records[0].Vector)
	for i, rec := range records {
		if len(rec.Vector) != dim {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(rec.Vector), dim)
		}
	}
	if existing, err := s.collectionDim(ctx, collection); err != nil {
		return err
	} else if existing > 0 && existing != dim {
		return fmt.Errorf("%w: collection %q holds %d-dimension vectors, got %d",
			ErrDimensionMismatch, collection, existing, dim)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, collection, book_id, source, page, content, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection = excluded.collection,
			book_id    = excluded.book_id,
			source     = excluded.source,
			page       = excluded.page,
			content    = excluded.content,
			vector     = excluded.vector
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.ID, collection, rec.BookID,
			rec.Source, rec.Page, rec.Content, float32SliceToBytes(rec.Vector)); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// Query scans the collection and ranks every stored vector by dot product
// against the query vector. Vectors are stored L2-normalized, so the dot
// product is the cosine similarity.
func (s *SQLiteStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]ScoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, source, page, content, vector
		FROM chunks WHERE collection = ?
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", collection, err)
	}
	defer rows.Close()

	var scored []ScoredRecord
	for rows.Next() {
		var rec Record
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.BookID, &rec.Source, &rec.Page, &rec.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		stored := bytesToFloat32Slice(blob)
		if len(stored) != len(vector) {
			return nil, fmt.Errorf("%w: query has %d dimensions, collection %q holds %d",
				ErrDimensionMismatch, len(vector), collection, len(stored))
		}
		scored = append(scored, ScoredRecord{Record: rec, Score: dot(stored, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	// An empty scan is indistinguishable from a collection that never
	// existed; both report not found and callers degrade to empty results.
	if len(scored) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteCollection removes every chunk in the collection. Idempotent.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	return nil
}

// Stats reports the chunk count for a collection. A collection that was never
// written (or was deleted) reports zero chunks.
func (s *SQLiteStore) Stats(ctx context.Context, collection string) (CollectionStats, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", collection).Scan(&count)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("counting chunks in %q: %w", collection, err)
	}
	return CollectionStats{BookID: collection, ChunkCount: count}, nil
}

// collectionDim returns the dimension of vectors already stored in the
// collection, or 0 if the collection is empty.
func (s *SQLiteStore) collectionDim(ctx context.Context, collection string) (int, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT vector FROM chunks WHERE collection = ? LIMIT 1", collection).Scan(&blob)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection dimension: %w", err)
	}
	return len(blob) / 4, nil
}

// float32SliceToBytes encodes a vector as little-endian float32 bytes.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
