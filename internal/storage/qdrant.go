package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore keeps one Qdrant collection per book_id. It is the deployment
// option for installations that already run a Qdrant server; the embedded
// SQLite store otherwise covers the same contract.
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStore creates a Qdrant client with health validation.
// It performs a health check with retry on startup and fails fast if Qdrant
// is unreachable.
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{client: client, host: host, port: port}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health checks with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := newBackoff()
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ensureCollection creates the collection for a book if it does not exist.
// The vector dimension is taken from the first batch written to it.
func (s *QdrantStore) ensureCollection(ctx context.Context, collection string, dim int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", collection, err)
	}
	return nil
}

// UpsertBatch appends records to the book's collection, creating it on first
// write. Upserts wait for durability so a crash between batches loses nothing
// already acknowledged.
func (s *QdrantStore) UpsertBatch(ctx context.Context, collection string, records []Record) error {
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

	if err := s.ensureCollection(ctx, collection, dim); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"book_id": rec.BookID,
				"source":  rec.Source,
				"page":    rec.Page,
				"content": rec.Content,
			}),
		}
	}

	return s.upsertWithRetry(ctx, collection, points)
}

// upsertWithRetry performs the upsert with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	b := newBackoff()
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("failed to upsert %d points into %q: %w", len(points), collection, err)
	}
	return nil
}

// Query returns up to k records from the book's collection ordered by cosine
// similarity. Returns ErrCollectionNotFound for books never ingested.
func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]ScoredRecord, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %q: %w", collection, err)
	}

	scored := make([]ScoredRecord, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		scored = append(scored, ScoredRecord{
			Record: Record{
				ID:      result.Id.GetUuid(),
				BookID:  payload["book_id"].GetStringValue(),
				Source:  payload["source"].GetStringValue(),
				Page:    int(payload["page"].GetIntegerValue()),
				Content: payload["content"].GetStringValue(),
			},
			Score: float64(result.Score),
		})
	}
	return scored, nil
}

// DeleteCollection removes the book's collection. Deleting a collection that
// does not exist is not an error.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	return nil
}

// Stats reports the point count for the book's collection. A missing
// collection reports zero chunks rather than an error.
func (s *QdrantStore) Stats(ctx context.Context, collection string) (CollectionStats, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return CollectionStats{BookID: collection}, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("failed to get collection %q: %w", collection, err)
	}
	return CollectionStats{
		BookID:     collection,
		ChunkCount: int(info.GetPointsCount()),
	}, nil
}

// newBackoff returns the retry policy shared by all Qdrant operations:
// initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}
