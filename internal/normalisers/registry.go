package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/csv"
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/jsondoc"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw files to the highest priority normaliser that
// supports their MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// NewDefaultRegistry registers a normaliser for every supported format.
// jsonFields selects the JSON paths to extract; empty means flatten.
func NewDefaultRegistry(jsonFields []string) *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(plaintext.New())
	r.Register(jsondoc.NewWithFields(jsonFields))
	r.Register(docx.New())
	r.Register(csv.New())
	return r
}

// Register adds a normaliser under each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mime := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mime], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mime] = list
	}
}

// Normalise runs the best matching normaliser. When the raw document carries
// no MIME type it is derived from the format.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mime := raw.MIMEType
	if mime == "" && raw.Format.IsValid() {
		mime = raw.Format.MIMEType()
	}

	r.mu.RLock()
	list := r.byMIME[mime]
	r.mu.RUnlock()

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedFormat, mime)
	}
	return list[0].Normalise(ctx, raw)
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mime := range r.byMIME {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}

// Formats returns the formats that have at least one normaliser.
func (r *Registry) Formats() []domain.Format {
	var formats []domain.Format
	for _, f := range domain.AllFormats() {
		r.mu.RLock()
		_, ok := r.byMIME[f.MIMEType()]
		r.mu.RUnlock()
		if ok {
			formats = append(formats, f)
		}
	}
	return formats
}
