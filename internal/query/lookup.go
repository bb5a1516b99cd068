package query

import (
	"context"
	"strings"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

// LookupStrategy names which step of the resolution chain produced a hit.
type LookupStrategy string

const (
	StrategyExact          LookupStrategy = "exact"
	StrategyQualified      LookupStrategy = "qualified"
	StrategyCaseInsensitive LookupStrategy = "case_insensitive"
	StrategyWordPart       LookupStrategy = "word_part"
	StrategyFuzzy          LookupStrategy = "fuzzy"
	StrategySemantic       LookupStrategy = "semantic"
)

// LookupHit is one candidate definition for a lookup query.
type LookupHit struct {
	Symbol   *store.SymbolRow
	Strategy LookupStrategy
	Score    float64
}

// Lookup resolves name to its most likely definition(s), trying
// progressively fuzzier strategies until one produces a hit:
// exact name -> qualified-name suffix -> case-insensitive -> word-part
// substring -> Damerau-Levenshtein distance <= 2 -> semantic similarity.
// Every strategy that finds something stops the chain; callers see which
// strategy matched via LookupHit.Strategy.
func (s *Surface) Lookup(ctx context.Context, workspaceID, name string) ([]*LookupHit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	if hits, err := s.lookupExact(ctx, workspaceID, name); err != nil || len(hits) > 0 {
		return hits, err
	}
	if hits, err := s.lookupQualified(ctx, workspaceID, name); err != nil || len(hits) > 0 {
		return hits, err
	}
	if hits, err := s.lookupCaseInsensitive(ctx, workspaceID, name); err != nil || len(hits) > 0 {
		return hits, err
	}
	if hits, err := s.lookupWordPart(ctx, workspaceID, name); err != nil || len(hits) > 0 {
		return hits, err
	}
	if hits, err := s.lookupFuzzy(ctx, workspaceID, name); err != nil || len(hits) > 0 {
		return hits, err
	}
	return s.lookupSemantic(ctx, workspaceID, name)
}

func (s *Surface) lookupExact(ctx context.Context, workspaceID, name string) ([]*LookupHit, error) {
	symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, name, true)
	if err != nil {
		return nil, err
	}
	return wrapHits(symbols, StrategyExact, 1.0), nil
}

// lookupQualified splits "Type.Member" / "Type::Member" / "pkg.Name"
// style queries and tries the final segment as an exact name match.
func (s *Surface) lookupQualified(ctx context.Context, workspaceID, name string) ([]*LookupHit, error) {
	sep := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' || name[i] == ':' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return nil, nil
	}
	tail := strings.TrimLeft(name[sep+1:], ":")
	if tail == "" || tail == name {
		return nil, nil
	}
	symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, tail, true)
	if err != nil {
		return nil, err
	}
	return wrapHits(symbols, StrategyQualified, 0.95), nil
}

func (s *Surface) lookupCaseInsensitive(ctx context.Context, workspaceID, name string) ([]*LookupHit, error) {
	symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, name, false)
	if err != nil {
		return nil, err
	}
	return wrapHits(symbols, StrategyCaseInsensitive, 0.9), nil
}

func (s *Surface) lookupWordPart(ctx context.Context, workspaceID, name string) ([]*LookupHit, error) {
	allNames, err := s.symbols.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var matches []*store.SymbolRow
	for _, candidate := range allNames {
		if candidate == name {
			continue
		}
		if containsFold(candidate, name) {
			found, err := s.symbols.GetSymbolsByName(ctx, workspaceID, candidate, true)
			if err != nil {
				return nil, err
			}
			matches = append(matches, found...)
		}
	}
	return wrapHits(matches, StrategyWordPart, 0.75), nil
}

func (s *Surface) lookupFuzzy(ctx context.Context, workspaceID, name string) ([]*LookupHit, error) {
	allNames, err := s.symbols.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var hits []*LookupHit
	for _, candidate := range allNames {
		dist := damerauLevenshtein(strings.ToLower(name), strings.ToLower(candidate))
		if dist > 2 {
			continue
		}
		symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, candidate, true)
		if err != nil {
			return nil, err
		}
		score := 1.0 - float64(dist)*0.15
		for _, sym := range symbols {
			sym.Score = score
			hits = append(hits, &LookupHit{Symbol: sym, Strategy: StrategyFuzzy, Score: score})
		}
	}
	sortHitsByScoreDesc(hits)
	return hits, nil
}

func (s *Surface) lookupSemantic(ctx context.Context, workspaceID, name string) ([]*LookupHit, error) {
	if s.embedder == nil || s.symbolVectors == nil {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, name)
	if err != nil {
		return nil, err
	}
	results, err := s.symbolVectors.Search(ctx, vec, 10)
	if err != nil {
		return nil, err
	}

	var ids []string
	scoreByID := make(map[string]float64)
	for _, r := range results {
		if r.Score < SemanticLookupThreshold {
			continue
		}
		ids = append(ids, r.ID)
		scoreByID[r.ID] = r.Score
	}
	if len(ids) == 0 {
		return nil, nil
	}

	symbols, err := s.symbols.GetSymbolsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}
	var hits []*LookupHit
	for _, sym := range symbols {
		score := scoreByID[sym.ID]
		sym.Score = score
		hits = append(hits, &LookupHit{Symbol: sym, Strategy: StrategySemantic, Score: score})
	}
	sortHitsByScoreDesc(hits)
	return hits, nil
}

func wrapHits(symbols []*store.SymbolRow, strategy LookupStrategy, score float64) []*LookupHit {
	if len(symbols) == 0 {
		return nil
	}
	hits := make([]*LookupHit, len(symbols))
	for i, sym := range symbols {
		sym.Score = score
		hits[i] = &LookupHit{Symbol: sym, Strategy: strategy, Score: score}
	}
	return hits
}

func sortHitsByScoreDesc(hits []*LookupHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].Score < hits[j].Score; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}
}

// damerauLevenshtein computes edit distance allowing insertions,
// deletions, substitutions, and adjacent transpositions. No dependency
// in the teacher or retrieved pack provides this (see DESIGN.md); it is
// a small, self-contained algorithm with no natural third-party home.
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min3(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := d[i-2][j-2] + 1; t < d[i][j] {
					d[i][j] = t
				}
			}
		}
	}
	return d[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
