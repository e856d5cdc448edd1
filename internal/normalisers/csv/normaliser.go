// Package csv reads comma-separated files, producing one document per row.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
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

// Normaliser handles CSV documents.
type Normaliser struct{}

// New creates a new CSV normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/csv", "application/csv"}
}

// Format returns the file format this normaliser parses.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatCSV
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise treats the first record as the header and renders every following
// row as "header: value" lines. Empty rows are skipped; row numbers count data
// rows from 1.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw.Content, []byte("\uFEFF"))))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &driven.NormaliseResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", domain.ErrInvalidInput, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	title := textclean.TitleFromPath(raw.URI)
	now := time.Now()

	var docs []domain.Document
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}

		content := renderRow(header, record)
		if content == "" {
			continue
		}

		metadata := textclean.CopyMetadata(raw.Metadata)
		metadata["mime_type"] = raw.MIMEType
		metadata["header"] = strings.Join(header, ",")
		metadata["row"] = row

		docs = append(docs, domain.Document{
			ID:        uuid.New().String(),
			SourceID:  raw.SourceID,
			URI:       raw.URI,
			Title:     title,
			Format:    domain.FormatCSV,
			Content:   content,
			Metadata:  metadata,
			CreatedAt: now,
		})
	}

	return &driven.NormaliseResult{Documents: docs}, nil
}

// renderRow pairs values with their column names. Extra values beyond the
// header get positional names.
func renderRow(header, record []string) string {
	var b strings.Builder
	for i, value := range record {
		value = textclean.Clean(value)
		if value == "" {
			continue
		}
		name := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && header[i] != "" {
			name = header[i]
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}
