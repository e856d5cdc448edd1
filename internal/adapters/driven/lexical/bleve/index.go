// Package bleve provides the lexical index behind hybrid retrieval,
// backed by a Bleve full-text index.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DirName is the index directory inside the persist directory.
const DirName = "lexical.bleve"

// deletePage is how many hits are removed per search round in DeleteSource.
const deletePage = 1000

// Ensure Index implements the interface.
var _ driven.LexicalIndex = (*Index)(nil)

// textDoc is the document shape stored in Bleve.
type textDoc struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Title   string `json:"title"`
}

// Index is a Bleve-backed lexical index keyed by chunk key.
type Index struct {
	mu    sync.RWMutex
	dir   string
	index bleve.Index
}

// lockTimeout bounds the wait for the index file lock held by another
// docqa process.
const lockTimeout = "1s"

// New opens the index in dir, creating it when absent. It fails after
// lockTimeout when another process holds the index open.
func New(dir string) (*Index, error) {
	runtime := map[string]interface{}{"bolt_timeout": lockTimeout}
	idx, err := bleve.OpenUsing(dir, runtime)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.NewUsing(dir, buildIndexMapping(),
			bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore, runtime)
	}
	if err != nil {
		return nil, fmt.Errorf("opening bleve index %s: %w", dir, err)
	}
	return &Index{dir: dir, index: idx}, nil
}

// NewMemOnly creates an index that is never written to disk.
func NewMemOnly() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Index adds or replaces chunks.
func (x *Index) Index(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.index.NewBatch()
	for _, c := range chunks {
		title, _ := c.Metadata["title"].(string)
		if err := batch.Index(c.Key(), textDoc{Content: c.Content, Source: c.SourceID, Title: title}); err != nil {
			return fmt.Errorf("indexing %s: %w", c.Key(), err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("writing lexical batch: %w", err)
	}
	return nil
}

// Search matches query against chunk content and titles.
func (x *Index) Search(_ context.Context, query string, limit int) ([]driven.LexicalHit, error) {
	if limit <= 0 || query == "" {
		return nil, nil
	}

	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")
	contentQuery.SetBoost(1.0)
	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(2.0)
	disjunction := bleve.NewDisjunctionQuery([]blevequery.Query{contentQuery, titleQuery}...)

	req := bleve.NewSearchRequestOptions(disjunction, limit, 0, false)

	x.mu.RLock()
	res, err := x.index.Search(req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]driven.LexicalHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, driven.LexicalHit{Key: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// DeleteSource removes every chunk of a source.
func (x *Index) DeleteSource(_ context.Context, sourceID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for {
		q := bleve.NewTermQuery(sourceID)
		q.SetField("source")
		res, err := x.index.Search(bleve.NewSearchRequestOptions(q, deletePage, 0, false))
		if err != nil {
			return fmt.Errorf("finding chunks of %s: %w", sourceID, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := x.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("deleting chunks of %s: %w", sourceID, err)
		}
	}
}

// Reset drops every chunk by recreating the index.
func (x *Index) Reset(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.index.Close(); err != nil {
		return fmt.Errorf("closing bleve index: %w", err)
	}

	var (
		idx bleve.Index
		err error
	)
	if x.dir == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(x.dir); err != nil {
			return fmt.Errorf("removing bleve index: %w", err)
		}
		idx, err = bleve.New(x.dir, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("recreating bleve index: %w", err)
	}
	x.index = idx
	return nil
}

// Count returns the number of indexed chunks.
func (x *Index) Count() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Store = false
	titleField.Index = true
	docMapping.AddFieldMappingsAt("title", titleField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = false
	sourceField.Index = true
	sourceField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("source", sourceField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
