package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownLoader loads markdown files as a single blob unit with formatting
// stripped, so the chunker sees prose instead of markup syntax.
type MarkdownLoader struct {
	parser goldmark.Markdown
}

func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{parser: goldmark.New()}
}

// Load parses the markdown and extracts its plain text, truncated to
// MaxBlobLen. maxPages does not apply to non-paginated sources.
func (l *MarkdownLoader) Load(_ context.Context, path string, _ int) ([]PageUnit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return blobUnit(l.extractText(source), path), nil
}

// extractText walks the AST collecting text content. Paragraph and heading
// boundaries become blank lines, which the chunker prefers as split points.
func (l *MarkdownLoader) extractText(source []byte) string {
	reader := text.NewReader(source)
	doc := l.parser.Parser().Parse(reader)

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(source))
				}
				buf.WriteString("\n\n")
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				buf.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}
