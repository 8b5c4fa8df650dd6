package indexer

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/VishaliniSaravanan/NoteLooms/internal/embedding"
	"github.com/VishaliniSaravanan/NoteLooms/internal/storage"
)

const (
	// DefaultTopK is the result count when the caller does not specify k.
	DefaultTopK = 3

	// PreviewLen caps result content, in runes. The chat layer quotes
	// retrieved context into prompts and never needs whole chunks.
	PreviewLen = 500
)

// QueryResult is one retrieved chunk, ready for the chat layer.
type QueryResult struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Page    string  `json:"page"` // page number, or "N/A" for non-paginated sources
	Source  string  `json:"source"`
}

// QueryResponse carries ordered results, or an empty result set plus an
// error description when retrieval failed. Query failures never propagate as
// hard errors: the chat layer calls speculatively and falls back to a
// non-retrieval answer.
type QueryResponse struct {
	Results []QueryResult `json:"results"`
	Error   string        `json:"error,omitempty"`
}

// BookStats reports the persisted state of one book's collection.
type BookStats struct {
	BookID     string `json:"book_id"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"` // "ready" or "error"
	Error      string `json:"error,omitempty"`
}

// Retriever answers questions against ingested books. It must be configured
// with the same embedder configuration used at ingestion time; querying in a
// different embedding space silently returns garbage scores, and that
// compatibility is the caller's responsibility.
type Retriever struct {
	embedder embedding.Embedder
	store    storage.Store
	logger   *slog.Logger
}

// NewRetriever creates a retrieval service over the given embedder and store.
func NewRetriever(embedder embedding.Embedder, store storage.Store, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// QueryBook returns up to k chunks most similar to the question, ordered by
// descending similarity. A collection with fewer than k chunks returns all
// of them. Missing collections and store failures degrade to an empty result
// set with an error description.
func (r *Retriever) QueryBook(ctx context.Context, bookID, question string, k int) *QueryResponse {
	if k <= 0 {
		k = DefaultTopK
	}

	vectors, err := r.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		r.logger.Error("failed to embed question", "book_id", bookID, "error", err)
		return &QueryResponse{Results: []QueryResult{}, Error: err.Error()}
	}

	scored, err := r.store.Query(ctx, bookID, vectors[0], k)
	if err != nil {
		if errors.Is(err, storage.ErrCollectionNotFound) {
			r.logger.Warn("book not ingested", "book_id", bookID)
		} else {
			r.logger.Error("store query failed", "book_id", bookID, "error", err)
		}
		return &QueryResponse{Results: []QueryResult{}, Error: err.Error()}
	}

	results := make([]QueryResult, len(scored))
	for i, rec := range scored {
		results[i] = QueryResult{
			Content: preview(rec.Content),
			Score:   rec.Score,
			Page:    formatPage(rec.Page),
			Source:  rec.Source,
		}
	}
	return &QueryResponse{Results: results}
}

// DeleteBook removes a book's collection. Reports true when the collection
// is gone, including when it never existed.
func (r *Retriever) DeleteBook(ctx context.Context, bookID string) bool {
	if err := r.store.DeleteCollection(ctx, bookID); err != nil {
		r.logger.Error("failed to delete book", "book_id", bookID, "error", err)
		return false
	}
	r.logger.Info("deleted book", "book_id", bookID)
	return true
}

// GetStats reports chunk count and readiness for a book.
func (r *Retriever) GetStats(ctx context.Context, bookID string) BookStats {
	stats, err := r.store.Stats(ctx, bookID)
	if err != nil {
		r.logger.Error("failed to get stats", "book_id", bookID, "error", err)
		return BookStats{BookID: bookID, Status: "error", Error: err.Error()}
	}
	return BookStats{
		BookID:     bookID,
		ChunkCount: stats.ChunkCount,
		Status:     "ready",
	}
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLen {
		return content
	}
	return string(runes[:PreviewLen])
}

func formatPage(page int) string {
	if page <= 0 {
		return "N/A"
	}
	return strconv.Itoa(page)
}
