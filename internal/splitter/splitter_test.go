package splitter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VishaliniSaravanan/NoteLooms/internal/document"
)

// reconstruct undoes the overlap: chunk i+1 repeats the trailing overlap of
// chunk i unless chunk i was shorter than the overlap.
func reconstruct(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		skip := overlap
		if len([]rune(chunks[i-1])) <= overlap {
			skip = 0
		}
		runes := []rune(chunks[i])
		sb.WriteString(string(runes[skip:]))
	}
	return sb.String()
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := New(1000, 100)
	chunks := s.Split("A short paragraph that fits in one chunk.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short paragraph that fits in one chunk.", chunks[0])
}

func TestSplit_EmptyText(t *testing.T) {
	assert.Empty(t, New(1000, 100).Split(""))
}

func TestSplit_SizeBound(t *testing.T) {
	s := New(1000, 100)
	text := strings.Repeat("word and more text. ", 500)

	for i, chunk := range s.Split(text) {
		assert.LessOrEqual(t, len([]rune(chunk)), 1000, "chunk %d exceeds size bound", i)
	}
}

func TestSplit_LosslessCoverage(t *testing.T) {
	s := New(200, 20)
	texts := []string{
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40),
		strings.Repeat("linebreak\nseparated\ntext\n", 60),
		strings.Repeat("x", 950),
		"para one.\n\npara two.\n\n" + strings.Repeat("long paragraph text ", 50),
	}
	for _, text := range texts {
		chunks := s.Split(text)
		assert.Equal(t, text, reconstruct(chunks, 20))
	}
}

func TestSplit_OverlapInvariant(t *testing.T) {
	s := New(300, 30)
	text := strings.Repeat("Sentences build paragraphs. Paragraphs build pages. ", 40)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		curr := []rune(chunks[i])
		if len(prev) <= 30 {
			continue // no overlap applied after a tiny chunk
		}
		want := string(prev[len(prev)-30:])
		require.GreaterOrEqual(t, len(curr), 30)
		assert.Equal(t, want, string(curr[:30]), "chunk %d does not reopen with chunk %d's tail", i, i-1)
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	s := New(100, 10)
	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 80) + ". " + strings.Repeat("c", 40)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"),
		"first chunk should break after the paragraph boundary, got %q", chunks[0])
}

func TestSplit_FallsBackThroughSeparators(t *testing.T) {
	s := New(100, 10)

	// No paragraphs or lines: sentence boundary wins.
	sentText := strings.Repeat("w", 50) + ". " + strings.Repeat("w", 80)
	chunks := s.Split(sentText)
	assert.True(t, strings.HasSuffix(chunks[0], ". "), "got %q", chunks[0])

	// Only spaces: word boundary wins.
	wordText := strings.Repeat("abcde ", 40)
	for _, chunk := range s.Split(wordText)[:1] {
		assert.True(t, strings.HasSuffix(chunk, " "))
	}

	// Nothing at all: hard cut at the bound.
	hard := s.Split(strings.Repeat("z", 250))
	assert.Len(t, []rune(hard[0]), 100)
}

func TestSplit_HardCutProgresses(t *testing.T) {
	s := New(1000, 100)
	chunks := s.Split(strings.Repeat("A", 1500))

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 600)
	assert.Equal(t, chunks[0][900:], chunks[1][:100])
}

func TestSplitUnits_ThreePageScenario(t *testing.T) {
	s := New(1000, 100)
	units := []document.PageUnit{
		{Text: strings.Repeat("A", 1500), Page: 1, Source: "book.pdf"},
		{Text: strings.Repeat("B", 1500), Page: 2, Source: "book.pdf"},
		{Text: strings.Repeat("C", 1500), Page: 3, Source: "book.pdf"},
	}

	chunks := s.SplitUnits(units)
	require.GreaterOrEqual(t, len(chunks), 6)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 1000, "chunk %d over size bound", i)
		assert.Equal(t, "book.pdf", chunk.Source)
	}

	// Page attribution follows the source page, and chunks within a page
	// after the first reopen with the prior chunk's trailing 100 runes.
	byPage := map[int][]Chunk{}
	for _, chunk := range chunks {
		byPage[chunk.Page] = append(byPage[chunk.Page], chunk)
	}
	require.Len(t, byPage, 3)
	for page, pageChunks := range byPage {
		require.Len(t, pageChunks, 2, "page %d", page)
		prev := pageChunks[0].Content
		assert.Equal(t, prev[len(prev)-100:], pageChunks[1].Content[:100], "page %d overlap", page)
	}

	// No overlap across page boundaries.
	assert.NotEqual(t, chunks[1].Page, chunks[2].Page)
	assert.False(t, strings.HasPrefix(chunks[2].Content, chunks[1].Content[len(chunks[1].Content)-100:]))
}

func TestSplitUnits_EmptyInput(t *testing.T) {
	s := New(1000, 100)
	assert.Empty(t, s.SplitUnits(nil))
	assert.Empty(t, s.SplitUnits([]document.PageUnit{}))
}

func TestSplitUnitsParallel_MatchesSequential(t *testing.T) {
	s := New(500, 50)

	var units []document.PageUnit
	for page := 1; page <= 37; page++ {
		units = append(units, document.PageUnit{
			Text:   strings.Repeat("Page content with words and sentences. ", 30+page),
			Page:   page,
			Source: "big.pdf",
		})
	}

	sequential := s.SplitUnits(units)
	parallel, err := s.SplitUnitsParallel(context.Background(), units)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestSplitUnitsParallel_Empty(t *testing.T) {
	chunks, err := New(1000, 100).SplitUnitsParallel(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
