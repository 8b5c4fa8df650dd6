package storage

import "context"

// Record is one embedded chunk persisted in a collection.
// The collection name is the book_id of the document the chunk came from.
type Record struct {
	ID      string    // UUID
	BookID  string    // Owning document identifier (== collection name)
	Source  string    // Original filename the chunk was extracted from
	Page    int       // 1-based page number; 0 for non-paginated sources
	Content string    // Chunk text content
	Vector  []float32 // L2-normalized embedding
}

// ScoredRecord pairs a stored record with its cosine similarity to the query
// vector. Embeddings are not echoed back on query results.
type ScoredRecord struct {
	Record
	Score float64
}

// CollectionStats describes the persisted state of one collection.
type CollectionStats struct {
	BookID     string
	ChunkCount int
}

// Store is a persistent per-collection vector store. Collections are named by
// book_id and hold (vector, content, metadata) triples.
//
// Querying a collection that has never been written returns
// ErrCollectionNotFound; callers that need graceful degradation translate it
// into an empty result set. DeleteCollection is idempotent.
type Store interface {
	// UpsertBatch appends records to the named collection, creating it if
	// absent. Each call is durable on return, so a crash between batches
	// loses nothing already written.
	UpsertBatch(ctx context.Context, collection string, records []Record) error

	// Query returns up to k stored records ordered by descending cosine
	// similarity to vector.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]ScoredRecord, error)

	// DeleteCollection removes all data for a collection. Deleting a
	// collection that does not exist is not an error.
	DeleteCollection(ctx context.Context, collection string) error

	// Stats reports the chunk count for a collection. A collection that was
	// never written reports zero chunks.
	Stats(ctx context.Context, collection string) (CollectionStats, error)

	Close() error
}
