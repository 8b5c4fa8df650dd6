// Package splitter cuts page text into bounded, overlapping chunks for
// embedding and retrieval.
package splitter

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/VishaliniSaravanan/NoteLooms/internal/document"
)

const (
	// DefaultChunkSize bounds chunk content, in runes.
	DefaultChunkSize = 1000

	// DefaultOverlap is how many trailing runes of one chunk reopen the
	// next, so retrieval context is not cut mid-thought at boundaries.
	DefaultOverlap = 100

	// maxBatchWorkers bounds the parallel chunking pool.
	maxBatchWorkers = 4

	// minBatchPages keeps batches from degenerating into per-page goroutines
	// for small documents.
	minBatchPages = 5
)

// separators are tried coarsest to finest: paragraph, line, sentence, word.
// A window with none of them gets a hard cut at the size bound.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunk is a bounded substring of one page unit. Chunks are exact substrings
// of the source text: concatenating a page's chunks minus their overlaps
// reproduces the page losslessly.
type Chunk struct {
	Content string
	Source  string
	Page    int
}

// Splitter produces overlapping chunks of at most chunkSize runes.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a splitter. Non-positive arguments select the defaults.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts one text into chunk contents. Each chunk is at most chunkSize
// runes, and each chunk after the first begins with the trailing overlap of
// the previous chunk whenever the previous chunk is longer than the overlap.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		end = s.breakPoint(runes, start, end)
		out = append(out, string(runes[start:end]))

		next := end - s.overlap
		if next <= start {
			// Chunk shorter than the overlap: restart cleanly rather
			// than looping over the same region.
			next = end
		}
		start = next
	}
	return out
}

// breakPoint picks the split position in (start, limit]. The coarsest
// separator present in the window wins; the split lands just after the
// separator so it stays with the leading chunk. No separator means a hard
// cut at the size bound.
func (s *Splitter) breakPoint(runes []rune, start, limit int) int {
	window := runes[start:limit]
	for _, sep := range separators {
		sepRunes := []rune(sep)
		if i := lastIndexRunes(window, sepRunes); i >= 0 {
			return start + i + len(sepRunes)
		}
	}
	return limit
}

// SplitUnits chunks an ordered sequence of page units, preserving document
// order and per-chunk page attribution. Overlap never crosses page
// boundaries.
func (s *Splitter) SplitUnits(units []document.PageUnit) []Chunk {
	var chunks []Chunk
	for _, unit := range units {
		for _, content := range s.Split(unit.Text) {
			chunks = append(chunks, Chunk{
				Content: content,
				Source:  unit.Source,
				Page:    unit.Page,
			})
		}
	}
	return chunks
}

// SplitUnitsParallel chunks batches of pages concurrently. Batches are
// contiguous page ranges reassembled in order, so the result is identical to
// SplitUnits.
func (s *Splitter) SplitUnitsParallel(ctx context.Context, units []document.PageUnit) ([]Chunk, error) {
	if len(units) == 0 {
		return nil, nil
	}

	batchSize := len(units) / maxBatchWorkers
	if batchSize < minBatchPages {
		batchSize = minBatchPages
	}

	type batch struct {
		index int
		units []document.PageUnit
	}
	var batches []batch
	for i := 0; i < len(units); i += batchSize {
		end := min(i+batchSize, len(units))
		batches = append(batches, batch{index: len(batches), units: units[i:end]})
	}

	results := make([][]Chunk, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchWorkers)
	for _, b := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[b.index] = s.SplitUnits(b.units)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, part := range results {
		chunks = append(chunks, part...)
	}
	return chunks, nil
}

// lastIndexRunes returns the index of the last occurrence of sep in window,
// or -1 if absent.
func lastIndexRunes(window, sep []rune) int {
	if len(sep) == 0 || len(sep) > len(window) {
		return -1
	}
outer:
	for i := len(window) - len(sep); i >= 0; i-- {
		for j := range sep {
			if window[i+j] != sep[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
