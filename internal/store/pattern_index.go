package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// WhitespaceTokenizerName names the Bleve tokenizer that splits purely on
// whitespace runs, keeping punctuation attached to the token it borders.
// This is what makes code-idiom queries like ": BaseClass", "ILogger<",
// and "[Fact]" phrase-matchable (spec §4.4).
const WhitespaceTokenizerName = "amanmcp_whitespace_punct"

// PatternAnalyzerName is the analyzer built from WhitespaceTokenizerName.
const PatternAnalyzerName = "amanmcp_pattern"

func init() {
	_ = registry.RegisterTokenizer(WhitespaceTokenizerName, whitespaceTokenizerConstructor)
}

// PatternDocument is indexed per-symbol: a whitespace-tokenized
// concatenation of signature, name, and kind (spec §3 Embedding Row
// code_pattern field).
type PatternDocument struct {
	Content string `json:"content"`
}

// PatternResult is a single pattern-search hit.
type PatternResult struct {
	ID    string
	Score float64
}

// PatternIndex provides whitespace-tokenized phrase search over
// code_pattern strings, using the same Bleve corruption-recovery
// conventions as BleveBM25Index.
type PatternIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// NewPatternIndex creates (or opens) a pattern index at path. Empty path
// creates an in-memory index, matching NewBleveBM25Index's convention.
func NewPatternIndex(path string) (*PatternIndex, error) {
	indexMapping, err := createPatternMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open pattern index: %w", err)
	}

	return &PatternIndex{index: idx, path: path}, nil
}

func createPatternMapping() (*mapping.IndexMappingImpl, error) {
	analyzerDef := map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": WhitespaceTokenizerName,
	}

	m := bleve.NewIndexMapping()
	if err := m.AddCustomAnalyzer(PatternAnalyzerName, analyzerDef); err != nil {
		return nil, fmt.Errorf("failed to register pattern analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = PatternAnalyzerName
	docMapping.AddFieldMappingsAt("content", fieldMapping)

	m.DefaultMapping = docMapping
	m.DefaultAnalyzer = PatternAnalyzerName
	return m, nil
}

// Index adds or replaces pattern documents keyed by symbol id.
func (p *PatternIndex) Index(ctx context.Context, id, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("pattern index is closed")
	}
	return p.index.Index(id, PatternDocument{Content: content})
}

// IndexBatch adds or replaces many pattern documents in one batch.
func (p *PatternIndex) IndexBatch(ctx context.Context, docs map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("pattern index is closed")
	}
	batch := p.index.NewBatch()
	for id, content := range docs {
		if err := batch.Index(id, PatternDocument{Content: content}); err != nil {
			return fmt.Errorf("failed to batch-index %s: %w", id, err)
		}
	}
	return p.index.Batch(batch)
}

// Search runs a (possibly phrase-quoted) query against code_pattern.
// Per spec §4.8, FTS parser errors return an empty result, never an error.
func (p *PatternIndex) Search(ctx context.Context, query string, limit int) ([]*PatternResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, fmt.Errorf("pattern index is closed")
	}
	if strings.TrimSpace(query) == "" {
		return []*PatternResult{}, nil
	}

	q := bleve.NewMatchPhraseQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := p.index.Search(req)
	if err != nil {
		// Invalid query syntax degrades to empty results (spec §4.8/§7).
		return []*PatternResult{}, nil
	}

	out := make([]*PatternResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, &PatternResult{ID: hit.ID, Score: hit.Score})
	}
	return out, nil
}

// Delete removes pattern documents by id.
func (p *PatternIndex) Delete(ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("pattern index is closed")
	}
	batch := p.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return p.index.Batch(batch)
}

// Close releases index resources.
func (p *PatternIndex) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.index.Close()
}

func whitespaceTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &whitespacePunctTokenizer{}, nil
}

// whitespacePunctTokenizer splits input on runs of whitespace only,
// preserving punctuation attached to its neighboring characters. This is
// what lets a query like ": BaseClass" or "[Fact]" match as a phrase of
// literal tokens instead of being destroyed by word-boundary splitting.
type whitespacePunctTokenizer struct{}

func (t *whitespacePunctTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	fields := strings.Fields(text)

	result := make(analysis.TokenStream, 0, len(fields))
	offset := 0
	for i, f := range fields {
		start := strings.Index(text[offset:], f)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(f)
		result = append(result, &analysis.Token{
			Term:     []byte(f),
			Start:    start,
			End:      end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
		offset = end
	}
	return result
}
