// Package document extracts per-page text units from source files.
//
// Each supported format implements Loader; adding a format means adding a
// Loader, the chunker and store never change. Paginated formats (PDF) load
// pages concurrently with per-page fault isolation; everything else loads as
// a single bounded blob.
package document

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// MaxBlobLen caps the content of non-paginated sources, as a safety bound
// against pathological single-blob files.
const MaxBlobLen = 10000

// PageUnit is one page's extracted text. Page is 1-based for paginated
// formats and 0 for single-blob sources.
type PageUnit struct {
	Text   string
	Page   int
	Source string
}

// Loader produces ordered page units for one document format, loading at
// most maxPages pages (maxPages <= 0 means no cap).
type Loader interface {
	Load(ctx context.Context, path string, maxPages int) ([]PageUnit, error)
}

// ForPath selects a loader by file extension. Unrecognized extensions fall
// back to the plain-text loader.
func ForPath(path string, logger *slog.Logger) Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDFLoader(logger)
	case ".docx", ".doc":
		return NewDocxLoader()
	case ".md", ".markdown":
		return NewMarkdownLoader()
	default:
		return NewTextLoader()
	}
}

// blobUnit wraps a whole-file extraction as a single truncated page unit.
// Empty extractions yield no units.
func blobUnit(text, path string) []PageUnit {
	text = strings.TrimSpace(truncateRunes(text, MaxBlobLen))
	if text == "" {
		return nil
	}
	return []PageUnit{{Text: text, Source: filepath.Base(path)}}
}

// truncateRunes cuts s to at most n runes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
