// Package graph computes transitive reachability over the Calls
// relationship extracted by internal/chunk, persisting it so trace and
// explore queries never need an on-the-fly BFS.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

// MaxClosureDepth bounds how far a single BFS frontier expands before it
// stops recording new reachability rows for a source symbol.
const MaxClosureDepth = 10

// DefaultWorkerCount is how many source symbols are expanded concurrently
// when recomputing reachability for a workspace, matching the teacher's
// multi_query.go parallelism default.
const DefaultWorkerCount = 4

// Engine recomputes and queries the reachability closure for a workspace.
type Engine struct {
	symbolStore  store.SymbolGraphStore
	workerCount  int
	maxDepth     int
}

// NewEngine builds a reachability engine over a SymbolGraphStore.
func NewEngine(symbolStore store.SymbolGraphStore, workerCount int) *Engine {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &Engine{symbolStore: symbolStore, workerCount: workerCount, maxDepth: MaxClosureDepth}
}

// Recompute rebuilds the full reachability table for a workspace from the
// current Calls relationships. It is not incremental: every call replaces
// the workspace's whole reachability set in one transaction, since partial
// closures are worse than stale ones (spec §4.5).
func (e *Engine) Recompute(ctx context.Context, workspaceID string) (int, error) {
	adjacency, err := e.buildAdjacency(ctx, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("build call adjacency: %w", err)
	}

	sources := make([]string, 0, len(adjacency))
	for id := range adjacency {
		sources = append(sources, id)
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.workerCount)

	var mu sync.Mutex
	var rows []*store.ReachabilityRow

	for _, src := range sources {
		src := src
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			closure := bfsClosure(src, adjacency, e.maxDepth)
			mu.Lock()
			for target, dist := range closure {
				rows = append(rows, &store.ReachabilityRow{SourceID: src, TargetID: target, MinDistance: dist})
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("reachability recompute: %w", err)
	}

	if err := e.symbolStore.ReplaceReachability(ctx, workspaceID, rows); err != nil {
		return 0, fmt.Errorf("replace reachability: %w", err)
	}

	slog.Info("reachability_recompute_complete",
		slog.String("workspace_id", workspaceID),
		slog.Int("sources", len(sources)),
		slog.Int("rows", len(rows)))
	return len(rows), nil
}

// buildAdjacency loads every Calls relationship in the workspace into an
// in-memory adjacency list. Reachability closures are computed in memory
// rather than with recursive SQL, since SQLite's recursive CTE support via
// modernc.org/sqlite is present but the teacher's store layer has no
// precedent for it — plain Go BFS over a map follows the teacher's
// existing "load then process" shape instead.
func (e *Engine) buildAdjacency(ctx context.Context, workspaceID string) (map[string][]string, error) {
	names, err := e.symbolStore.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	adjacency := make(map[string][]string)
	for _, name := range names {
		symbols, err := e.symbolStore.GetSymbolsByName(ctx, workspaceID, name, true)
		if err != nil {
			return nil, err
		}
		for _, sym := range symbols {
			rels, err := e.symbolStore.GetRelationshipsFrom(ctx, workspaceID, sym.ID, store.RelationshipCalls)
			if err != nil {
				return nil, err
			}
			for _, rel := range rels {
				adjacency[rel.FromSymbolID] = append(adjacency[rel.FromSymbolID], rel.ToSymbolID)
			}
		}
	}
	return adjacency, nil
}

// bfsClosure returns every node reachable from src within maxDepth hops,
// mapped to its minimum distance. src itself is never included.
func bfsClosure(src string, adjacency map[string][]string, maxDepth int) map[string]int {
	visited := map[string]int{src: 0}
	queue := []string{src}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []string
		for _, node := range queue {
			for _, neighbor := range adjacency[node] {
				if _, seen := visited[neighbor]; !seen {
					visited[neighbor] = depth + 1
					next = append(next, neighbor)
				}
			}
		}
		queue = next
	}

	delete(visited, src)
	return visited
}

// IsStale reports whether the persisted reachability table appears to lag
// the current Calls relationships, per spec §4.5's staleness heuristic: a
// partial re-index leaves reachCount strictly below callCount (not just
// zero), and a dangling relationship endpoint (a Calls target whose symbol
// row no longer exists) is stale regardless of row counts.
func (e *Engine) IsStale(ctx context.Context, workspaceID string) (bool, error) {
	callCount, err := e.symbolStore.CountRelationships(ctx, workspaceID, store.RelationshipCalls)
	if err != nil {
		return false, fmt.Errorf("count calls relationships: %w", err)
	}
	if callCount > 0 {
		reachCount, err := e.symbolStore.CountReachability(ctx, workspaceID)
		if err != nil {
			return false, fmt.Errorf("count reachability: %w", err)
		}
		if reachCount < callCount {
			return true, nil
		}
	}

	dangling, err := e.hasDanglingReference(ctx, workspaceID)
	if err != nil {
		return false, fmt.Errorf("check dangling references: %w", err)
	}
	return dangling, nil
}

// hasDanglingReference reports whether any Calls relationship in the
// workspace targets a symbol id that no longer has a symbol row, which
// happens when a file is re-indexed and a symbol it used to define is
// removed before dependent files are re-indexed.
func (e *Engine) hasDanglingReference(ctx context.Context, workspaceID string) (bool, error) {
	names, err := e.symbolStore.GetAllSymbolNames(ctx, workspaceID)
	if err != nil {
		return false, err
	}

	knownIDs := make(map[string]bool)
	var symbols []*store.SymbolRow
	for _, name := range names {
		syms, err := e.symbolStore.GetSymbolsByName(ctx, workspaceID, name, true)
		if err != nil {
			return false, err
		}
		symbols = append(symbols, syms...)
		for _, sym := range syms {
			knownIDs[sym.ID] = true
		}
	}

	for _, sym := range symbols {
		rels, err := e.symbolStore.GetRelationshipsFrom(ctx, workspaceID, sym.ID, store.RelationshipCalls)
		if err != nil {
			return false, err
		}
		for _, rel := range rels {
			if !knownIDs[rel.ToSymbolID] {
				return true, nil
			}
		}
	}
	return false, nil
}

// Dependents returns symbols that can reach target within maxDistance hops.
func (e *Engine) Dependents(ctx context.Context, workspaceID, targetID string, maxDistance int) ([]*store.ReachabilityRow, error) {
	if maxDistance <= 0 {
		maxDistance = MaxClosureDepth
	}
	return e.symbolStore.ReachTo(ctx, workspaceID, targetID, maxDistance)
}

// Dependencies returns symbols reachable from source within maxDistance hops.
func (e *Engine) Dependencies(ctx context.Context, workspaceID, sourceID string, maxDistance int) ([]*store.ReachabilityRow, error) {
	if maxDistance <= 0 {
		maxDistance = MaxClosureDepth
	}
	return e.symbolStore.ReachFrom(ctx, workspaceID, sourceID, maxDistance)
}

// CanReach reports whether source can reach target through Calls edges.
func (e *Engine) CanReach(ctx context.Context, workspaceID, sourceID, targetID string) (bool, error) {
	return e.symbolStore.CanReach(ctx, workspaceID, sourceID, targetID)
}

// Distance returns the minimum hop count from source to target, if known.
func (e *Engine) Distance(ctx context.Context, workspaceID, sourceID, targetID string) (int, bool, error) {
	return e.symbolStore.Distance(ctx, workspaceID, sourceID, targetID)
}
