package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// TextLoader loads plain-text files as a single blob unit.
type TextLoader struct{}

func NewTextLoader() *TextLoader { return &TextLoader{} }

// Load reads the whole file, truncated to MaxBlobLen. maxPages does not
// apply to non-paginated sources.
func (l *TextLoader) Load(_ context.Context, path string, _ int) ([]PageUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return blobUnit(string(data), path), nil
}
