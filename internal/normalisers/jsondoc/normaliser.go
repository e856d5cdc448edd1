// Package jsondoc reads JSON files into documents, either by extracting a
// configured set of fields or by flattening the whole value.
package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles JSON documents.
type Normaliser struct {
	fields []string
}

// New creates a JSON normaliser that flattens every value.
func New() *Normaliser {
	return &Normaliser{}
}

// NewWithFields creates a JSON normaliser that only extracts the given dotted
// paths, e.g. "author.name" or "items.0.title".
func NewWithFields(fields []string) *Normaliser {
	var clean []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			clean = append(clean, f)
		}
	}
	return &Normaliser{fields: clean}
}

// Fields returns the configured extraction paths.
func (n *Normaliser) Fields() []string {
	return n.fields
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/json"}
}

// Format returns the file format this normaliser parses.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatJSON
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise decodes the file. A top-level array yields one document per
// element; any other value yields a single document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Content))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return &driven.NormaliseResult{}, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", domain.ErrInvalidInput)
	}

	now := time.Now()
	newDoc := func(v any, index int) (domain.Document, bool) {
		content := n.render(v)
		if content == "" {
			return domain.Document{}, false
		}
		metadata := textclean.CopyMetadata(raw.Metadata)
		metadata["mime_type"] = raw.MIMEType
		if index >= 0 {
			metadata["index"] = index
		}
		return domain.Document{
			ID:        uuid.New().String(),
			SourceID:  raw.SourceID,
			URI:       raw.URI,
			Title:     titleOf(v, raw.URI),
			Format:    domain.FormatJSON,
			Content:   content,
			Metadata:  metadata,
			CreatedAt: now,
		}, true
	}

	var docs []domain.Document
	if items, ok := value.([]any); ok {
		for i, item := range items {
			if doc, ok := newDoc(item, i); ok {
				docs = append(docs, doc)
			}
		}
	} else if doc, ok := newDoc(value, -1); ok {
		docs = append(docs, doc)
	}

	return &driven.NormaliseResult{Documents: docs}, nil
}

// render produces "path: value" lines for the configured fields, or for
// every leaf when no fields are configured.
func (n *Normaliser) render(v any) string {
	var lines []string
	if len(n.fields) == 0 {
		flatten("", v, &lines)
	} else {
		for _, field := range n.fields {
			found, ok := Lookup(v, field)
			if !ok {
				continue
			}
			text := scalarString(found)
			if text == "" {
				continue
			}
			lines = append(lines, field+": "+text)
		}
	}
	return textclean.Clean(strings.Join(lines, "\n"))
}

// Lookup resolves a dotted path against a decoded JSON value. Numeric
// segments index into arrays.
func Lookup(v any, path string) (any, bool) {
	current := v
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

func flatten(prefix string, v any, lines *[]string) {
	switch node := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(join(prefix, k), node[k], lines)
		}
	case []any:
		for i, item := range node {
			flatten(join(prefix, strconv.Itoa(i)), item, lines)
		}
	default:
		text := scalarString(node)
		if text == "" {
			return
		}
		if prefix == "" {
			prefix = "value"
		}
		*lines = append(*lines, prefix+": "+text)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// scalarString renders leaves as text and containers as compact JSON.
func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func titleOf(v any, uri string) string {
	if obj, ok := v.(map[string]any); ok {
		for _, key := range []string{"title", "name"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return textclean.TitleFromPath(uri)
}
