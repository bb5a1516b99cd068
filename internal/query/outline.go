package query

import (
	"context"
	"sort"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

// OutlineMode selects how much detail get_symbols returns per symbol.
type OutlineMode string

const (
	OutlineStructure OutlineMode = "structure" // names, kinds, nesting only
	OutlineMinimal   OutlineMode = "minimal"   // + signatures
	OutlineFull      OutlineMode = "full"      // + doc comments and code context
)

// OutlineOptions configures a get_symbols query.
type OutlineOptions struct {
	Mode     OutlineMode
	MaxDepth int    // 0 means unlimited nesting
	Target   string // optional substring/semantic filter over symbol names
}

// OutlineNode is one entry in a file's symbol tree.
type OutlineNode struct {
	Symbol   *store.SymbolRow
	Depth    int
	Children []*OutlineNode
}

// GetSymbols returns the symbol outline for a file, nested by
// parent_symbol_id and trimmed to the requested detail mode.
func (s *Surface) GetSymbols(ctx context.Context, workspaceID, path string, opts OutlineOptions) ([]*OutlineNode, error) {
	symbols, err := s.symbols.GetSymbolsByFile(ctx, workspaceID, path)
	if err != nil {
		return nil, err
	}
	if opts.Target != "" {
		symbols = filterByTarget(symbols, opts.Target)
	}
	applyMode(symbols, opts.Mode)

	tree := buildOutlineTree(symbols, opts.MaxDepth)
	return tree, nil
}

func filterByTarget(symbols []*store.SymbolRow, target string) []*store.SymbolRow {
	var out []*store.SymbolRow
	for _, sym := range symbols {
		if containsFold(sym.Name, target) || containsFold(sym.Signature, target) {
			out = append(out, sym)
		}
	}
	return out
}

func applyMode(symbols []*store.SymbolRow, mode OutlineMode) {
	switch mode {
	case OutlineStructure:
		for _, sym := range symbols {
			sym.Signature = ""
			sym.DocComment = ""
			sym.CodeContext = ""
		}
	case OutlineMinimal:
		for _, sym := range symbols {
			sym.DocComment = ""
			sym.CodeContext = ""
		}
	case OutlineFull, "":
		// keep everything
	}
}

func buildOutlineTree(symbols []*store.SymbolRow, maxDepth int) []*OutlineNode {
	nodeByID := make(map[string]*OutlineNode, len(symbols))
	for _, sym := range symbols {
		nodeByID[sym.ID] = &OutlineNode{Symbol: sym}
	}

	var roots []*OutlineNode
	for _, sym := range symbols {
		node := nodeByID[sym.ID]
		parent, hasParent := nodeByID[sym.ParentSymbolID]
		if sym.ParentSymbolID == "" || !hasParent {
			node.Depth = 0
			roots = append(roots, node)
			continue
		}
		node.Depth = parent.Depth + 1
		if maxDepth > 0 && node.Depth > maxDepth {
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortNodesByLine(roots)
	return roots
}

func sortNodesByLine(nodes []*OutlineNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Symbol.StartLine < nodes[j].Symbol.StartLine })
	for _, n := range nodes {
		sortNodesByLine(n.Children)
	}
}
