// Package docx extracts paragraph text from Word (.docx) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.FormatDOCX.MIMEType()}
}

// Format returns the file format this normaliser parses.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatDOCX
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts a DOCX document to a single document whose paragraphs
// are separated by blank lines. Table cells are read in document order.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	// Open as ZIP archive
	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive: %v", domain.ErrInvalidInput, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, err
	}

	paragraphs, err := extractParagraphs(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidInput, documentPart, err)
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		SourceID:  raw.SourceID,
		URI:       raw.URI,
		Title:     extractTitle(reader, raw.URI),
		Format:    domain.FormatDOCX,
		Content:   textclean.Clean(strings.Join(paragraphs, "\n\n")),
		Metadata:  textclean.CopyMetadata(raw.Metadata),
		CreatedAt: time.Now(),
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["paragraphs"] = len(paragraphs)

	return &driven.NormaliseResult{
		Documents: []domain.Document{doc},
	}, nil
}

// errPartNotFound reports a missing archive member.
var errPartNotFound = errors.New("part not found")

// readPart returns the bytes of one archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrInvalidInput, name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrInvalidInput, name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, name, errPartNotFound)
}

// extractParagraphs streams word/document.xml and returns the text of each
// non-empty paragraph. Runs are concatenated, tabs and breaks become spaces
// and newlines.
func extractParagraphs(content []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle extracts the title from docProps/core.xml or falls back to filename.
func extractTitle(reader *zip.Reader, uri string) string {
	content, err := readPart(reader, corePart)
	if err == nil {
		var core coreXML
		if err := xml.Unmarshal(content, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}
	return textclean.TitleFromPath(uri)
}
