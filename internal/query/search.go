package query

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

// SearchMethod names which ranking strategy produced (or should produce) a
// search result.
type SearchMethod string

const (
	MethodAuto     SearchMethod = "auto"
	MethodText     SearchMethod = "text"
	MethodPattern  SearchMethod = "pattern"
	MethodSemantic SearchMethod = "semantic"
	MethodHybrid   SearchMethod = "hybrid"
)

// searchRRFConstant matches internal/search.DefaultRRFConstant; hybrid
// fusion here is symbol-keyed rather than chunk-keyed so it cannot reuse
// search.RRFFusion directly, but the formula and k are the same.
const searchRRFConstant = 60

// SearchFilters narrows candidates before scoring (spec §4.8).
type SearchFilters struct {
	Language string
	FileGlob string
}

// SearchOptions configures a Search call.
type SearchOptions struct {
	Method      SearchMethod
	Limit       int
	Filters     SearchFilters
	Rerank      *bool // nil means default-on
	Expand      bool
	ExpandLimit int
}

// SearchHit is one ranked result from Search (spec §4.8 SearchHit).
type SearchHit struct {
	SymbolID    string
	Name        string
	Kind        store.SymbolKind
	Language    string
	FilePath    string
	StartLine   int
	EndLine     int
	Signature   string
	DocComment  string
	CodeContext string
	Score       float64
	MethodUsed  SearchMethod
	Fallback    bool
	Callers     []*store.SymbolRow
	Callees     []*store.SymbolRow
}

// patternCharPattern matches the bracket/punctuation set spec §4.8 treats
// as evidence of a code-idiom query (": BaseClass", "ILogger<T>", "[Fact]").
var patternCharPattern = regexp.MustCompile(`[:<>\[\]{}()]`)

// bareIdentifierPattern matches a single identifier-shaped token with no
// surrounding prose.
var bareIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Search resolves query against the symbol graph using the method named by
// opts (or an auto-selected one), applies filters, optionally reranks and
// graph-expands the result, and returns hits in spec tie-break order:
// score desc, then file_path asc, then start_line asc.
func (s *Surface) Search(ctx context.Context, workspaceID, query string, opts SearchOptions) ([]*SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	method := opts.Method
	if method == "" || method == MethodAuto {
		method = selectMethod(query)
	}

	var (
		hits     []*SearchHit
		fallback bool
		err      error
	)

	switch method {
	case MethodText:
		hits, err = s.searchText(ctx, workspaceID, query, limit)
		if err == nil && len(hits) == 0 {
			hits, err = s.searchSemantic(ctx, workspaceID, query, limit)
			fallback = true
		}
	case MethodPattern:
		hits, err = s.searchPattern(ctx, workspaceID, query, limit)
	case MethodSemantic:
		hits, err = s.searchSemantic(ctx, workspaceID, query, limit)
	case MethodHybrid:
		hits, err = s.searchHybrid(ctx, workspaceID, query, limit)
	default:
		hits, err = s.searchHybrid(ctx, workspaceID, query, limit)
	}
	if err != nil {
		return nil, err
	}
	if fallback {
		for _, h := range hits {
			h.Fallback = true
		}
	}

	hits = applyFilters(hits, opts.Filters)

	hits = s.maybeRerank(ctx, query, hits, opts.Rerank, limit)

	sortHitsForSearch(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}

	if opts.Expand && len(hits) > 0 {
		if err := s.expandHits(ctx, workspaceID, hits, opts.ExpandLimit); err != nil {
			return nil, err
		}
	}

	return hits, nil
}

// selectMethod implements spec §4.8's auto-method table: any query carrying
// pattern punctuation (": BaseClass", "ILogger<T>", "[Fact]") is treated as a
// code idiom (pattern), regardless of how many whitespace-split words it
// contains; a short bare identifier is treated as a name lookup (text);
// anything else goes through hybrid.
func selectMethod(query string) SearchMethod {
	if patternCharPattern.MatchString(query) {
		return MethodPattern
	}
	if bareIdentifierPattern.MatchString(query) {
		return MethodText
	}
	return MethodHybrid
}

func (s *Surface) searchText(ctx context.Context, workspaceID, query string, limit int) ([]*SearchHit, error) {
	rows, err := s.symbols.SearchSymbolsFTS(ctx, workspaceID, query, limit)
	if err != nil {
		return nil, err
	}
	maxScore := 0.0
	for _, r := range rows {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	hits := make([]*SearchHit, len(rows))
	for i, r := range rows {
		score := 0.0
		if maxScore > 0 {
			score = r.Score / maxScore
		}
		hits[i] = hitFromSymbol(r, score, MethodText)
	}
	return hits, nil
}

func (s *Surface) searchPattern(ctx context.Context, workspaceID, query string, limit int) ([]*SearchHit, error) {
	if s.patternIndex == nil {
		return []*SearchHit{}, nil
	}
	q := query
	if patternCharPattern.MatchString(q) && !strings.HasPrefix(q, `"`) {
		q = `"` + q + `"`
	}
	results, err := s.patternIndex.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []*SearchHit{}, nil
	}

	ids := make([]string, len(results))
	scoreByID := make(map[string]float64, len(results))
	maxScore := 0.0
	for i, r := range results {
		ids[i] = r.ID
		scoreByID[r.ID] = r.Score
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	symbols, err := s.symbols.GetSymbolsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}
	hits := make([]*SearchHit, 0, len(symbols))
	for _, sym := range symbols {
		score := 0.0
		if maxScore > 0 {
			score = scoreByID[sym.ID] / maxScore
		}
		hits = append(hits, hitFromSymbol(sym, score, MethodPattern))
	}
	return hits, nil
}

func (s *Surface) searchSemantic(ctx context.Context, workspaceID, query string, limit int) ([]*SearchHit, error) {
	if s.embedder == nil || s.symbolVectors == nil {
		return []*SearchHit{}, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := s.symbolVectors.Search(ctx, vec, 4*limit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []*SearchHit{}, nil
	}

	ids := make([]string, len(results))
	scoreByID := make(map[string]float64, len(results))
	for i, r := range results {
		ids[i] = r.ID
		scoreByID[r.ID] = float64(r.Score)
	}
	symbols, err := s.symbols.GetSymbolsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}
	hits := make([]*SearchHit, 0, len(symbols))
	for _, sym := range symbols {
		hits = append(hits, hitFromSymbol(sym, scoreByID[sym.ID], MethodSemantic))
	}
	return hits, nil
}

// searchHybrid fuses text and semantic candidate lists with Reciprocal
// Rank Fusion (k=60, equal weights), matching internal/search.RRFFusion's
// algorithm but keyed by symbol id with the symbol tie-break order.
func (s *Surface) searchHybrid(ctx context.Context, workspaceID, query string, limit int) ([]*SearchHit, error) {
	textHits, err := s.searchText(ctx, workspaceID, query, 4*limit)
	if err != nil {
		return nil, err
	}
	semHits, err := s.searchSemantic(ctx, workspaceID, query, limit)
	if err != nil {
		return nil, err
	}
	if len(textHits) == 0 && len(semHits) == 0 {
		return []*SearchHit{}, nil
	}

	type fused struct {
		hit *SearchHit
		rrf float64
	}
	byID := make(map[string]*fused)

	missingRank := len(textHits)
	if len(semHits) > missingRank {
		missingRank = len(semHits)
	}
	missingRank++

	for rank, h := range textHits {
		f := &fused{hit: h}
		f.rrf += 0.5 / float64(searchRRFConstant+rank+1)
		byID[h.SymbolID] = f
	}
	for rank, h := range semHits {
		f, ok := byID[h.SymbolID]
		if !ok {
			f = &fused{hit: h}
			byID[h.SymbolID] = f
		}
		f.rrf += 0.5 / float64(searchRRFConstant+rank+1)
	}
	for id, f := range byID {
		_, inText := indexOfHit(textHits, id)
		_, inSem := indexOfHit(semHits, id)
		if inText && !inSem {
			f.rrf += 0.5 / float64(searchRRFConstant+missingRank)
		}
		if inSem && !inText {
			f.rrf += 0.5 / float64(searchRRFConstant+missingRank)
		}
	}

	maxRRF := 0.0
	for _, f := range byID {
		if f.rrf > maxRRF {
			maxRRF = f.rrf
		}
	}

	hits := make([]*SearchHit, 0, len(byID))
	for _, f := range byID {
		score := 0.0
		if maxRRF > 0 {
			score = f.rrf / maxRRF
		}
		f.hit.Score = score
		f.hit.MethodUsed = MethodHybrid
		hits = append(hits, f.hit)
	}
	return hits, nil
}

func indexOfHit(hits []*SearchHit, id string) (int, bool) {
	for i, h := range hits {
		if h.SymbolID == id {
			return i, true
		}
	}
	return -1, false
}

func hitFromSymbol(sym *store.SymbolRow, score float64, method SearchMethod) *SearchHit {
	return &SearchHit{
		SymbolID:    sym.ID,
		Name:        sym.Name,
		Kind:        sym.Kind,
		Language:    sym.Language,
		FilePath:    sym.FilePath,
		StartLine:   sym.StartLine,
		EndLine:     sym.EndLine,
		Signature:   sym.Signature,
		DocComment:  sym.DocComment,
		CodeContext: sym.CodeContext,
		Score:       score,
		MethodUsed:  method,
	}
}

func applyFilters(hits []*SearchHit, f SearchFilters) []*SearchHit {
	if f.Language == "" && f.FileGlob == "" {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		if f.Language != "" && !strings.EqualFold(h.Language, f.Language) {
			continue
		}
		if f.FileGlob != "" {
			if ok, _ := filepath.Match(f.FileGlob, h.FilePath); !ok {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

// maybeRerank takes the top min(50, 4*limit) fused hits and replaces their
// scores with the reranker's cross-encoder scores (spec §4.8). Reranking
// is opt-in-default-on; unavailable/failing rerankers silently keep the
// fused order, never fail the request.
func (s *Surface) maybeRerank(ctx context.Context, query string, hits []*SearchHit, rerank *bool, limit int) []*SearchHit {
	enabled := rerank == nil || *rerank
	if !enabled || s.reranker == nil || len(hits) == 0 {
		return hits
	}
	if !s.reranker.Available(ctx) {
		return hits
	}

	topR := 50
	if 4*limit < topR {
		topR = 4 * limit
	}
	if topR > len(hits) {
		topR = len(hits)
	}
	candidates := hits[:topR]

	docs := make([]string, len(candidates))
	for i, h := range candidates {
		doc := h.Name + " " + h.Signature + " " + truncateDoc(h.DocComment, 200)
		if h.CodeContext != "" {
			doc += " " + h.CodeContext
		}
		docs[i] = doc
	}

	results, err := s.reranker.Rerank(ctx, query, docs, 0)
	if err != nil || len(results) == 0 {
		return hits
	}
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		candidates[r.Index].Score = r.Score
	}
	return hits
}

func truncateDoc(doc string, max int) string {
	if len(doc) <= max {
		return doc
	}
	return doc[:max]
}

// sortHitsForSearch applies spec §4.8's tie-break: score desc, then
// file_path asc, then start_line asc.
func sortHitsForSearch(hits []*SearchHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].FilePath != hits[j].FilePath {
			return hits[i].FilePath < hits[j].FilePath
		}
		return hits[i].StartLine < hits[j].StartLine
	})
}

// expandHits attaches up to expandLimit callers/callees per hit in exactly
// three batch queries total: one ReachToMany over all hit ids (dependents),
// one ReachFromMany over all hit ids (dependencies), and one GetSymbolsByIDs
// to hydrate the union. Per spec §4.8, N+1 queries here is a defect.
func (s *Surface) expandHits(ctx context.Context, workspaceID string, hits []*SearchHit, expandLimit int) error {
	if expandLimit <= 0 {
		expandLimit = 5
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.SymbolID
	}

	dependents, err := s.symbols.ReachToMany(ctx, workspaceID, ids, 1)
	if err != nil {
		return err
	}
	dependencies, err := s.symbols.ReachFromMany(ctx, workspaceID, ids, 1)
	if err != nil {
		return err
	}

	callersByTarget := make(map[string][]string)
	for _, r := range dependents {
		if len(callersByTarget[r.TargetID]) >= expandLimit {
			continue
		}
		callersByTarget[r.TargetID] = append(callersByTarget[r.TargetID], r.SourceID)
	}
	calleesBySource := make(map[string][]string)
	for _, r := range dependencies {
		if len(calleesBySource[r.SourceID]) >= expandLimit {
			continue
		}
		calleesBySource[r.SourceID] = append(calleesBySource[r.SourceID], r.TargetID)
	}

	unionSet := make(map[string]struct{})
	for _, list := range callersByTarget {
		for _, id := range list {
			unionSet[id] = struct{}{}
		}
	}
	for _, list := range calleesBySource {
		for _, id := range list {
			unionSet[id] = struct{}{}
		}
	}
	if len(unionSet) == 0 {
		return nil
	}
	unionIDs := make([]string, 0, len(unionSet))
	for id := range unionSet {
		unionIDs = append(unionIDs, id)
	}
	symbols, err := s.symbols.GetSymbolsByIDs(ctx, workspaceID, unionIDs)
	if err != nil {
		return err
	}
	byID := make(map[string]*store.SymbolRow, len(symbols))
	for _, sym := range symbols {
		byID[sym.ID] = sym
	}

	for _, h := range hits {
		for _, id := range callersByTarget[h.SymbolID] {
			if sym, ok := byID[id]; ok {
				h.Callers = append(h.Callers, sym)
			}
		}
		for _, id := range calleesBySource[h.SymbolID] {
			if sym, ok := byID[id]; ok {
				h.Callees = append(h.Callees, sym)
			}
		}
	}
	return nil
}
