// Package query implements the lookup/find_refs/get_symbols/trace/explore
// surface exposed to MCP tool callers, built on top of internal/store's
// symbol graph and internal/graph's reachability engine.
package query

import (
	"math"
	"sort"
	"strings"

	"github.com/Aman-CERP/amanmcp/internal/embed"
	"github.com/Aman-CERP/amanmcp/internal/graph"
	"github.com/Aman-CERP/amanmcp/internal/namecase"
	"github.com/Aman-CERP/amanmcp/internal/search"
	"github.com/Aman-CERP/amanmcp/internal/store"
)

// SemanticLookupThreshold is the minimum cosine similarity a symbol's
// embedding needs to satisfy the final resolution-chain strategy.
const SemanticLookupThreshold = 0.80

// SemanticTraceThreshold is the minimum similarity used to break ties
// between same-distance naming-variant candidates during Trace.
const SemanticTraceThreshold = 0.70

// Surface is the query engine: the set of read operations an MCP tool
// handler calls into. It holds no per-request state.
type Surface struct {
	symbols       store.SymbolGraphStore
	reach         *graph.Engine
	embedder      embed.Embedder    // optional; nil disables semantic strategies
	symbolVectors store.VectorStore // optional; symbol-id-keyed embeddings
	patternIndex  *store.PatternIndex // optional; nil disables the pattern search method
	reranker      search.Reranker   // optional; nil keeps fused order unchanged
}

// Option configures a Surface, matching the teacher's functional-option
// style in internal/search.EngineOption.
type Option func(*Surface)

// WithEmbedder enables semantic lookup/trace fallback strategies.
func WithEmbedder(e embed.Embedder) Option {
	return func(s *Surface) { s.embedder = e }
}

// WithSymbolVectors sets the vector store used for symbol-level semantic
// search (distinct from the chunk-level VectorStore used by internal/search).
func WithSymbolVectors(v store.VectorStore) Option {
	return func(s *Surface) { s.symbolVectors = v }
}

// WithPatternIndex enables the `pattern` search method.
func WithPatternIndex(p *store.PatternIndex) Option {
	return func(s *Surface) { s.patternIndex = p }
}

// WithReranker sets the cross-encoder reranker applied after fusion in
// Search, matching internal/search's reranker abstraction (FEAT-RR1).
// When unset, Search keeps fused ordering unchanged.
func WithReranker(r search.Reranker) Option {
	return func(s *Surface) { s.reranker = r }
}

// NewSurface builds a query surface over a symbol graph store and
// reachability engine.
func NewSurface(symbols store.SymbolGraphStore, reach *graph.Engine, opts ...Option) *Surface {
	s := &Surface{symbols: symbols, reach: reach}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nameVariants returns the candidate spellings of name worth trying across
// resolution strategies that compare against stored symbol names.
func nameVariants(name string) []string {
	return namecase.Variants(name)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// sortByScoreDesc sorts candidates by Score descending, breaking ties by
// symbol id for determinism (mirrors internal/search's RRF tie-break rule).
func sortSymbolsByScoreDesc(symbols []*store.SymbolRow) {
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Score != symbols[j].Score {
			return symbols[i].Score > symbols[j].Score
		}
		return symbols[i].ID < symbols[j].ID
	})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
