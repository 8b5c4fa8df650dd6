// Package indexer orchestrates document ingestion (load, chunk, embed,
// store) and retrieval over the vector store. Both sides hold no state
// across calls; the store is the only durable collaborator.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/VishaliniSaravanan/NoteLooms/internal/document"
	"github.com/VishaliniSaravanan/NoteLooms/internal/embedding"
	"github.com/VishaliniSaravanan/NoteLooms/internal/splitter"
	"github.com/VishaliniSaravanan/NoteLooms/internal/storage"
)

// DefaultBatchSize is how many chunks are embedded and upserted per batch.
// Each batch completes (embed, then durable upsert) before the next starts,
// bounding peak memory to one batch of chunks plus vectors.
const DefaultBatchSize = 100

// LoaderSelector picks a document loader for a source path. It is the seam
// for new document formats: supporting one means supplying a loader, the
// rest of the pipeline is format-blind.
type LoaderSelector func(path string, logger *slog.Logger) document.Loader

// Pipeline ingests one document at a time into the vector store. Loading,
// chunking, and embedding+storing run strictly in sequence; chunk overlap
// depends on having all page units in document order before splitting.
type Pipeline struct {
	selectLoader LoaderSelector
	splitter     *splitter.Splitter
	embedder     embedding.Embedder
	store        storage.Store
	batchSize    int
	logger       *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
func NewPipeline(
	selectLoader LoaderSelector,
	split *splitter.Splitter,
	embedder embedding.Embedder,
	store storage.Store,
	logger *slog.Logger,
) *Pipeline {
	if selectLoader == nil {
		selectLoader = document.ForPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		selectLoader: selectLoader,
		splitter:     split,
		embedder:     embedder,
		store:        store,
		batchSize:    DefaultBatchSize,
		logger:       logger,
	}
}

// ProcessDocument runs the full ingestion for one document and returns the
// number of chunks stored. A document with no extractable text is a valid
// empty outcome and returns 0 with no error. Infrastructural failures
// (embedding model, store) abort the call; batches already upserted stay in
// the collection.
//
// Re-ingesting an existing bookID appends a second copy of the document.
// Callers wanting replace semantics delete the book first.
func (p *Pipeline) ProcessDocument(ctx context.Context, path, bookID string, metadata map[string]string, maxPages int) (int, error) {
	// 1. Load page units, in parallel for paginated formats.
	loader := p.selectLoader(path, p.logger)
	units, err := loader.Load(ctx, path, maxPages)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	if len(units) == 0 {
		p.logger.Warn("no text extracted", "path", path, "book_id", bookID)
		return 0, nil
	}

	// 2. Chunk all units. The splitter needs the complete ordered sequence
	// to compute overlaps relative to document order.
	chunks, err := p.splitter.SplitUnitsParallel(ctx, units)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", path, err)
	}
	if len(chunks) == 0 {
		p.logger.Warn("no chunks produced", "path", path, "book_id", bookID)
		return 0, nil
	}
	p.logger.Info("chunked document", "book_id", bookID, "pages", len(units), "chunks", len(chunks))

	// Caller-supplied metadata can pin the source name, e.g. the original
	// upload filename instead of the temp file on disk.
	sourceOverride := metadata["filename"]

	// 3. Embed and store in fixed-size batches. Each batch is durable
	// before the next begins, so a crash loses at most the batch in
	// flight.
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}

		records := make([]storage.Record, len(batch))
		for i, chunk := range batch {
			source := chunk.Source
			if sourceOverride != "" {
				source = sourceOverride
			}
			records[i] = storage.Record{
				ID:      uuid.New().String(),
				BookID:  bookID,
				Source:  source,
				Page:    chunk.Page,
				Content: chunk.Content,
				Vector:  vectors[i],
			}
		}

		if err := p.store.UpsertBatch(ctx, bookID, records); err != nil {
			return 0, fmt.Errorf("store batch %d-%d: %w", start, end, err)
		}
		p.logger.Debug("stored batch", "book_id", bookID, "from", start, "to", end)
	}

	p.logger.Info("processed document", "book_id", bookID, "chunks", len(chunks))
	return len(chunks), nil
}
