package document

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// DocxLoader loads Word documents as a single blob unit. DOCX carries no
// reliable page boundaries (pagination is a rendering decision), so the
// whole document is one non-paginated unit.
type DocxLoader struct{}

func NewDocxLoader() *DocxLoader { return &DocxLoader{} }

// Load extracts paragraph text from word/document.xml, truncated to
// MaxBlobLen. maxPages does not apply to non-paginated sources.
func (l *DocxLoader) Load(_ context.Context, path string, _ int) ([]PageUnit, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", filepath.Base(path), err)
	}
	defer archive.Close()

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("docx %s has no word/document.xml", filepath.Base(path))
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	text, err := extractDocxText(rc)
	if err != nil {
		return nil, fmt.Errorf("parse docx %s: %w", filepath.Base(path), err)
	}
	return blobUnit(text, path), nil
}

// extractDocxText streams the WordprocessingML, keeping character data from
// <w:t> runs and turning paragraph ends into blank lines.
func extractDocxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var sb strings.Builder
	inTextRun := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				sb.WriteString("\n\n")
			case "br":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inTextRun {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
