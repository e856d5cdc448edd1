// Package pdf extracts page text from PDF files using poppler's pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const toolName = "pdftotext"

// maxTitleLength is the longest first line accepted as a title.
const maxTitleLength = 200

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return `pdftotext is required to read PDF files. Install poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// Normaliser handles PDF documents, producing one document per page.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.FormatPDF.MIMEType()}
}

// Format returns the file format this normaliser parses.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatPDF
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts text page by page. Pages are separated by form feeds in
// pdftotext output; blank pages are skipped but keep their page numbers.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !strings.HasPrefix(string(raw.Content), "%PDF-") {
		return nil, fmt.Errorf("%w: missing PDF header", domain.ErrInvalidInput)
	}

	// pdftotext needs a seekable file.
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	pages := strings.Split(string(out), "\f")
	title := extractTitle(string(out), raw.URI)
	now := time.Now()

	docs := make([]domain.Document, 0, len(pages))
	for i, page := range pages {
		text := textclean.Clean(page)
		if text == "" {
			continue
		}

		metadata := textclean.CopyMetadata(raw.Metadata)
		metadata["mime_type"] = raw.MIMEType
		metadata["page"] = i + 1
		metadata["total_pages"] = countPages(pages)

		docs = append(docs, domain.Document{
			ID:        uuid.New().String(),
			SourceID:  raw.SourceID,
			URI:       raw.URI,
			Title:     title,
			Format:    domain.FormatPDF,
			Content:   text,
			Metadata:  metadata,
			CreatedAt: now,
		})
	}

	return &driven.NormaliseResult{Documents: docs}, nil
}

// countPages ignores the empty segment after the final form feed.
func countPages(pages []string) int {
	n := len(pages)
	if n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		n--
	}
	return n
}

// extractTitle returns the first short non-empty line, or a title derived
// from the file name.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\f\x00"))
		if line == "" || len(line) > maxTitleLength {
			continue
		}
		return line
	}
	return textclean.TitleFromPath(filepath.Base(uri))
}
