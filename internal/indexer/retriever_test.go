package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VishaliniSaravanan/NoteLooms/internal/document"
)

func TestQueryBook_KTruncation(t *testing.T) {
	rig := newRig(t, &fakeLoader{pages: []document.PageUnit{
		{Text: "photosynthesis photosynthesis photosynthesis in plants", Page: 1, Source: "bio.pdf"},
		{Text: "cellular respiration", Page: 2, Source: "bio.pdf"},
		{Text: "mitosis and meiosis", Page: 3, Source: "bio.pdf"},
	}})
	ctx := context.Background()

	count, err := rig.pipeline.ProcessDocument(ctx, "bio.pdf", "bio", nil, 100)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	// k larger than the collection returns the full collection, ordered.
	resp := rig.retriever.QueryBook(ctx, "bio", "photosynthesis", 5)
	require.Empty(t, resp.Error)
	require.Len(t, resp.Results, 3)
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
	assert.Contains(t, resp.Results[0].Content, "photosynthesis")
}

func TestQueryBook_Idempotent(t *testing.T) {
	rig := newRig(t, threePageBook())
	ctx := context.Background()

	_, err := rig.pipeline.ProcessDocument(ctx, "book.pdf", "stable", nil, 100)
	require.NoError(t, err)

	first := rig.retriever.QueryBook(ctx, "stable", "BBBB", 4)
	second := rig.retriever.QueryBook(ctx, "stable", "BBBB", 4)
	assert.Equal(t, first, second, "unchanged collection and deterministic embedder give identical results")
}

func TestQueryBook_MissingBookDegrades(t *testing.T) {
	rig := newRig(t, nil)

	resp := rig.retriever.QueryBook(context.Background(), "never-ingested", "anything", 3)
	assert.Empty(t, resp.Results)
	assert.NotEmpty(t, resp.Error, "missing collection reports an error description, not a hard failure")
}

func TestQueryBook_EmbedderFailureDegrades(t *testing.T) {
	store := newRig(t, nil).store
	retriever := NewRetriever(failEmbedder{}, store, nil)

	resp := retriever.QueryBook(context.Background(), "any", "question", 3)
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.Error, "model unavailable")
}

func TestQueryBook_DefaultK(t *testing.T) {
	rig := newRig(t, threePageBook())
	ctx := context.Background()

	_, err := rig.pipeline.ProcessDocument(ctx, "book.pdf", "defk", nil, 100)
	require.NoError(t, err)

	resp := rig.retriever.QueryBook(ctx, "defk", "CCCC", 0)
	require.Empty(t, resp.Error)
	assert.Len(t, resp.Results, DefaultTopK)
}

func TestQueryBook_PreviewTruncation(t *testing.T) {
	long := strings.Repeat("lengthy chunk content ", 50) // ~1100 chars in one chunk
	rig := newRig(t, &fakeLoader{pages: []document.PageUnit{
		{Text: long[:990], Page: 1, Source: "long.pdf"},
	}})
	ctx := context.Background()

	_, err := rig.pipeline.ProcessDocument(ctx, "long.pdf", "preview", nil, 100)
	require.NoError(t, err)

	resp := rig.retriever.QueryBook(ctx, "preview", "lengthy content", 1)
	require.Empty(t, resp.Error)
	require.Len(t, resp.Results, 1)
	assert.Len(t, []rune(resp.Results[0].Content), PreviewLen)
}

func TestDeleteBook(t *testing.T) {
	rig := newRig(t, threePageBook())
	ctx := context.Background()

	_, err := rig.pipeline.ProcessDocument(ctx, "book.pdf", "doomed", nil, 100)
	require.NoError(t, err)

	assert.True(t, rig.retriever.DeleteBook(ctx, "doomed"))

	stats := rig.retriever.GetStats(ctx, "doomed")
	assert.Equal(t, "ready", stats.Status)
	assert.Equal(t, 0, stats.ChunkCount)

	resp := rig.retriever.QueryBook(ctx, "doomed", "AAAA", 3)
	assert.Empty(t, resp.Results)
	assert.NotEmpty(t, resp.Error)
}

func TestDeleteBook_Nonexistent(t *testing.T) {
	rig := newRig(t, nil)

	// Deleting a book that was never ingested must not fail.
	assert.True(t, rig.retriever.DeleteBook(context.Background(), "no-such-book"))
}

func TestGetStats_NeverIngested(t *testing.T) {
	rig := newRig(t, nil)

	stats := rig.retriever.GetStats(context.Background(), "unknown")
	assert.Equal(t, "ready", stats.Status)
	assert.Equal(t, 0, stats.ChunkCount)
	assert.Equal(t, "unknown", stats.BookID)
}

func TestFormatPage(t *testing.T) {
	assert.Equal(t, "N/A", formatPage(0))
	assert.Equal(t, "N/A", formatPage(-1))
	assert.Equal(t, "12", formatPage(12))
}
