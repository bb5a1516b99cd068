package query

import (
	"context"
	"sort"

	"github.com/Aman-CERP/amanmcp/internal/store"
)

// FindRefsOptions configures a find_refs query.
type FindRefsOptions struct {
	KindFilter     store.IdentifierKind // empty means any kind
	IncludeContext bool
	Limit          int
}

// FileRefs groups a target symbol's references within a single file.
type FileRefs struct {
	FilePath    string
	Identifiers []*store.IdentifierRow
}

// FindRefs returns every identifier whose target_symbol_id is symbolID,
// grouped by file and sorted by reference count descending, then by file
// path ascending for files tied on count (spec §4.9).
func (s *Surface) FindRefs(ctx context.Context, workspaceID, symbolID string, opts FindRefsOptions) ([]*FileRefs, error) {
	idents, err := s.symbols.GetIdentifiersByTarget(ctx, workspaceID, symbolID)
	if err != nil {
		return nil, err
	}

	byFile := make(map[string][]*store.IdentifierRow)
	for _, ident := range idents {
		if opts.KindFilter != "" && ident.Kind != opts.KindFilter {
			continue
		}
		byFile[ident.FilePath] = append(byFile[ident.FilePath], ident)
	}

	groups := make([]*FileRefs, 0, len(byFile))
	for path, refs := range byFile {
		sort.Slice(refs, func(i, j int) bool { return refs[i].Line < refs[j].Line })
		groups = append(groups, &FileRefs{FilePath: path, Identifiers: refs})
	}

	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Identifiers) != len(groups[j].Identifiers) {
			return len(groups[i].Identifiers) > len(groups[j].Identifiers)
		}
		return groups[i].FilePath < groups[j].FilePath
	})

	if opts.Limit > 0 {
		total := 0
		limited := groups[:0]
		for _, g := range groups {
			if total >= opts.Limit {
				break
			}
			remaining := opts.Limit - total
			if len(g.Identifiers) > remaining {
				g.Identifiers = g.Identifiers[:remaining]
			}
			limited = append(limited, g)
			total += len(g.Identifiers)
		}
		groups = limited
	}

	return groups, nil
}
