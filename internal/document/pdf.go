package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// MaxPageWorkers bounds the page-loading pool regardless of host core count,
// capping concurrent file handles and resident page text.
const MaxPageWorkers = 8

// PDFLoader extracts text from PDF files one page at a time. Pages load
// concurrently; a corrupt or unreadable page is logged and skipped rather
// than failing the document.
type PDFLoader struct {
	logger *slog.Logger

	// Extraction seams, replaced in tests to simulate per-page faults.
	pageCount func(path string) (int, error)
	loadPage  func(path string, num int) (*PageUnit, error)
}

// NewPDFLoader creates a PDF loader. A nil logger uses slog.Default.
func NewPDFLoader(logger *slog.Logger) *PDFLoader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &PDFLoader{logger: logger}
	l.pageCount = l.countPages
	l.loadPage = l.extractPage
	return l
}

// Load extracts up to maxPages pages in original page order. Pages with no
// extractable text produce no unit. The only hard failures are an unreadable
// document and context cancellation.
func (l *PDFLoader) Load(ctx context.Context, path string, maxPages int) ([]PageUnit, error) {
	total, err := l.pageCount(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}

	pages := total
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}
	if pages == 0 {
		return nil, nil
	}
	l.logger.Info("loading pdf", "source", filepath.Base(path), "pages", pages, "total", total)

	// Workers fill a page-indexed slice, so completion order never matters:
	// chunk overlap downstream depends on original document order.
	results := make([]*PageUnit, pages)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxPageWorkers)
	for num := 1; num <= pages; num++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			unit, err := l.loadPage(path, num)
			if err != nil {
				// Per-page faults are recoverable: skip the page.
				l.logger.Error("failed to load page",
					"source", filepath.Base(path), "page", num, "error", err)
				return nil
			}
			results[num-1] = unit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	units := make([]PageUnit, 0, pages)
	for _, unit := range results {
		if unit != nil {
			units = append(units, *unit)
		}
	}
	l.logger.Info("loaded pdf", "source", filepath.Base(path), "pages_with_text", len(units))
	return units, nil
}

// countPages opens the document just long enough to read the page count.
func (l *PDFLoader) countPages(path string) (n int, err error) {
	defer recoverExtraction(&err)

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// extractPage extracts the text of a single page. Each call opens its own
// handle so the file is released on every exit path, including panics from
// malformed page content.
func (l *PDFLoader) extractPage(path string, num int) (unit *PageUnit, err error) {
	defer recoverExtraction(&err)

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	page := reader.Page(num)
	if page.V.IsNull() {
		return nil, nil
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	return &PageUnit{Text: text, Page: num, Source: filepath.Base(path)}, nil
}

// recoverExtraction converts extraction panics into errors. The pdf library
// panics on some malformed documents; a panic must cost one page, not the
// whole ingestion.
func recoverExtraction(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("extraction panicked: %v", r)
	}
}
