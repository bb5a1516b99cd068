package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/amanmcp/internal/search"
	"github.com/Aman-CERP/amanmcp/internal/store"
)

// ExploreMode selects which codebase-wide analysis Explore runs.
type ExploreMode string

const (
	ExploreDeadCode ExploreMode = "dead_code"
	ExploreHotSpots ExploreMode = "hot_spots"
	ExploreTypes    ExploreMode = "types"
	ExploreSimilar  ExploreMode = "similar"
	ExploreDeps     ExploreMode = "deps"
)

// ExploreOptions configures an explore query.
type ExploreOptions struct {
	Limit int
	// Target is required for ExploreSimilar (a symbol id to compare
	// against) and optional scoping for ExploreDeps (a file path prefix).
	Target string
}

// ExploreResult carries mode-specific findings.
type ExploreResult struct {
	Mode    ExploreMode
	Symbols []*store.SymbolRow
}

var typeKinds = map[store.SymbolKind]bool{
	store.KindClass:     true,
	store.KindInterface: true,
	store.KindStruct:    true,
	store.KindEnum:      true,
	store.KindTypeAlias: true,
	store.KindTrait:     true,
}

// entryPointKinds are symbol kinds exempt from dead_code reporting
// even with zero inbound references, since they're invoked by a runtime
// rather than by other indexed code (main functions, exported package
// API surfaces are still reported; only language entry points are not).
var deadCodeExemptNames = map[string]bool{
	"main":     true,
	"init":     true,
	"Main":     true,
	"TestMain": true,
}

// deadCodeKinds are the symbol kinds dead_code considers (spec §4.9).
var deadCodeKinds = map[store.SymbolKind]bool{
	store.KindFunction: true,
	store.KindMethod:   true,
	store.KindClass:    true,
}

// Explore runs one of the codebase-wide analysis modes (spec §4.9).
func (s *Surface) Explore(ctx context.Context, workspaceID string, mode ExploreMode, opts ExploreOptions) (*ExploreResult, error) {
	switch mode {
	case ExploreDeadCode:
		return s.exploreDeadCode(ctx, workspaceID, opts)
	case ExploreHotSpots:
		return s.exploreHotSpots(ctx, workspaceID, opts)
	case ExploreTypes:
		return s.exploreTypes(ctx, workspaceID, opts)
	case ExploreSimilar:
		return s.exploreSimilar(ctx, workspaceID, opts)
	case ExploreDeps:
		return s.exploreDeps(ctx, workspaceID, opts)
	default:
		return nil, fmt.Errorf("unrecognized explore mode %q", mode)
	}
}

// exploreDeadCode finds Function/Method/Class symbols with no incoming
// Calls/References edges and no identifiers targeting them, excluding
// runtime entry points, underscore-prefixed names, test files, and dead
// islands (spec §4.9, glossary "Dead island").
func (s *Surface) exploreDeadCode(ctx context.Context, workspaceID string, opts ExploreOptions) (*ExploreResult, error) {
	names, err := s.symbols.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var allSymbols []*store.SymbolRow
	for _, name := range names {
		symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, name, true)
		if err != nil {
			return nil, err
		}
		allSymbols = append(allSymbols, symbols...)
	}

	islandIDs, err := s.findDeadIslands(ctx, workspaceID, allSymbols)
	if err != nil {
		return nil, err
	}

	var dead []*store.SymbolRow
	for _, sym := range allSymbols {
		if !deadCodeKinds[sym.Kind] {
			continue
		}
		if deadCodeExemptNames[sym.Name] || strings.HasPrefix(sym.Name, "_") {
			continue
		}
		if search.IsTestFile(sym.FilePath) {
			continue
		}
		if islandIDs[sym.ID] {
			continue
		}
		refsIn, err := s.symbols.GetRelationshipsTo(ctx, workspaceID, sym.ID, "")
		if err != nil {
			return nil, err
		}
		identsIn, err := s.symbols.GetIdentifiersByTarget(ctx, workspaceID, sym.ID)
		if err != nil {
			return nil, err
		}
		if len(refsIn) == 0 && len(identsIn) == 0 {
			dead = append(dead, sym)
		}
	}
	return limitResult(ExploreDeadCode, dead, opts.Limit), nil
}

// findDeadIslands computes strongly-connected components of the Calls graph
// over allSymbols and returns the id set of every symbol belonging to a
// component with no incoming Calls edge from outside the component (spec's
// glossary "Dead island" — excluded from dead_code even when, considered in
// isolation, each member appears to have inbound calls from its siblings).
func (s *Surface) findDeadIslands(ctx context.Context, workspaceID string, allSymbols []*store.SymbolRow) (map[string]bool, error) {
	adjacency := make(map[string][]string, len(allSymbols))
	for _, sym := range allSymbols {
		rels, err := s.symbols.GetRelationshipsFrom(ctx, workspaceID, sym.ID, store.RelationshipCalls)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			adjacency[rel.FromSymbolID] = append(adjacency[rel.FromSymbolID], rel.ToSymbolID)
		}
	}

	sccOf := tarjanSCCs(adjacency)

	hasExternalPredecessor := make(map[int]bool)
	for src, targets := range adjacency {
		for _, tgt := range targets {
			if sccOf[src] != sccOf[tgt] {
				hasExternalPredecessor[sccOf[tgt]] = true
			}
		}
	}

	// Count members per component to ignore trivial singletons without a
	// self-loop; those are already correctly handled by the plain
	// zero-inbound-edges check above.
	sccSize := make(map[int]int)
	selfLoop := make(map[int]bool)
	for src, targets := range adjacency {
		sccSize[sccOf[src]]++
		for _, tgt := range targets {
			if src == tgt {
				selfLoop[sccOf[src]] = true
			}
		}
	}

	islands := make(map[string]bool)
	for id, scc := range sccOf {
		if hasExternalPredecessor[scc] {
			continue
		}
		if sccSize[scc] > 1 || selfLoop[scc] {
			islands[id] = true
		}
	}
	return islands, nil
}

// tarjanSCCs computes strongly-connected components of a directed graph
// given as an adjacency list, returning each node's component index.
func tarjanSCCs(adjacency map[string][]string) map[string]int {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	sccOf := make(map[string]int)
	sccCount := 0

	nodes := make(map[string]bool)
	for src, targets := range adjacency {
		nodes[src] = true
		for _, tgt := range targets {
			nodes[tgt] = true
		}
	}

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				sccOf[w] = sccCount
				if w == v {
					break
				}
			}
			sccCount++
		}
	}

	for v := range nodes {
		if _, seen := indices[v]; !seen {
			strongConnect(v)
		}
	}
	return sccOf
}

// exploreHotSpots ranks symbols by fan-in (incoming Calls edges).
func (s *Surface) exploreHotSpots(ctx context.Context, workspaceID string, opts ExploreOptions) (*ExploreResult, error) {
	names, err := s.symbols.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var ranked []*store.SymbolRow
	for _, name := range names {
		symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, name, true)
		if err != nil {
			return nil, err
		}
		for _, sym := range symbols {
			refsIn, err := s.symbols.GetRelationshipsTo(ctx, workspaceID, sym.ID, store.RelationshipCalls)
			if err != nil {
				return nil, err
			}
			if len(refsIn) == 0 {
				continue
			}
			sym.Score = float64(len(refsIn))
			ranked = append(ranked, sym)
		}
	}
	sortSymbolsByScoreDesc(ranked)
	return limitResult(ExploreHotSpots, ranked, opts.Limit), nil
}

// exploreTypes returns all class/interface/struct/enum/type-alias/trait symbols.
func (s *Surface) exploreTypes(ctx context.Context, workspaceID string, opts ExploreOptions) (*ExploreResult, error) {
	names, err := s.symbols.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var types []*store.SymbolRow
	for _, name := range names {
		symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, name, true)
		if err != nil {
			return nil, err
		}
		for _, sym := range symbols {
			if typeKinds[sym.Kind] {
				types = append(types, sym)
			}
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return limitResult(ExploreTypes, types, opts.Limit), nil
}

// exploreSimilar ranks symbols by embedding similarity to opts.Target
// (a symbol id). Requires an embedder and symbol vector store; returns
// an empty result (not an error) when neither is configured, matching
// the degrade-gracefully convention used by internal/store.PatternIndex.
func (s *Surface) exploreSimilar(ctx context.Context, workspaceID string, opts ExploreOptions) (*ExploreResult, error) {
	if s.symbolVectors == nil || opts.Target == "" {
		return &ExploreResult{Mode: ExploreSimilar}, nil
	}

	base, err := s.symbols.GetSymbolsByIDs(ctx, workspaceID, []string{opts.Target})
	if err != nil || len(base) == 0 {
		return &ExploreResult{Mode: ExploreSimilar}, nil
	}

	query := base[0].Name + " " + base[0].Signature
	if s.embedder == nil {
		return &ExploreResult{Mode: ExploreSimilar}, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := s.symbolVectors.Search(ctx, vec, limit+1)
	if err != nil {
		return nil, err
	}

	var ids []string
	scoreByID := make(map[string]float64)
	for _, r := range results {
		if r.ID == opts.Target {
			continue
		}
		ids = append(ids, r.ID)
		scoreByID[r.ID] = r.Score
	}
	symbols, err := s.symbols.GetSymbolsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}
	for _, sym := range symbols {
		sym.Score = scoreByID[sym.ID]
	}
	sortSymbolsByScoreDesc(symbols)
	return limitResult(ExploreSimilar, symbols, limit), nil
}

// exploreDeps lists the Imports relationships recorded for the workspace,
// optionally scoped to files under opts.Target, rendered as synthetic
// symbol rows naming the import target (spec §4.9 "deps" mode).
func (s *Surface) exploreDeps(ctx context.Context, workspaceID string, opts ExploreOptions) (*ExploreResult, error) {
	names, err := s.symbols.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var deps []*store.SymbolRow
	for _, name := range names {
		symbols, err := s.symbols.GetSymbolsByName(ctx, workspaceID, name, true)
		if err != nil {
			return nil, err
		}
		for _, sym := range symbols {
			if opts.Target != "" && sym.FilePath != opts.Target {
				continue
			}
			rels, err := s.symbols.GetRelationshipsFrom(ctx, workspaceID, sym.ID, store.RelationshipImports)
			if err != nil {
				return nil, err
			}
			for _, rel := range rels {
				key := sym.FilePath + "->" + rel.ToSymbolID
				if seen[key] {
					continue
				}
				seen[key] = true
				deps = append(deps, &store.SymbolRow{
					ID:       rel.ID,
					Name:     rel.ToSymbolID,
					Kind:     store.KindModule,
					FilePath: sym.FilePath,
				})
			}
		}
	}
	return limitResult(ExploreDeps, deps, opts.Limit), nil
}

func limitResult(mode ExploreMode, symbols []*store.SymbolRow, limit int) *ExploreResult {
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	return &ExploreResult{Mode: mode, Symbols: symbols}
}
