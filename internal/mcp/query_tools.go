package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/store"
	"github.com/Aman-CERP/amanmcp/internal/workspace"
)

// registerQueryTools registers the symbol-graph query tools (lookup,
// find_refs, get_symbols, trace, explore) and the workspace management
// tool. Called from SetQuerySurface once a query.Surface is available;
// a nil querySurface leaves these tools unregistered entirely, since an
// MCP client has no use for a tool that always errors.
func (s *Server) registerQueryTools() {
	if s.querySurface == nil {
		return
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "lookup",
		Description: "Resolve a symbol name to its definition(s). Tries exact match, qualified-name suffix, case-insensitive, substring, fuzzy, and semantic matching in order, stopping at the first strategy that finds something. Use when you know a name but not its file.",
	}, s.mcpLookupHandler)
	s.logger.Debug("Registered tool", slog.String("name", "lookup"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_refs",
		Description: "Find every reference to a symbol by id, grouped by file and ranked by reference count. Use after lookup to see everywhere a symbol is used.",
	}, s.mcpFindRefsHandler)
	s.logger.Debug("Registered tool", slog.String("name", "find_refs"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_symbols",
		Description: "Get the symbol outline of a file, nested by parent/child structure. structure mode lists only names and kinds, minimal adds signatures, full adds doc comments and code context.",
	}, s.mcpGetSymbolsHandler)
	s.logger.Debug("Registered tool", slog.String("name", "get_symbols"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "trace",
		Description: "Trace call paths outward from a symbol toward a target name, matching across naming conventions (snake_case, camelCase, etc). Use to follow a request across language or module boundaries.",
	}, s.mcpTraceHandler)
	s.logger.Debug("Registered tool", slog.String("name", "trace"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "explore",
		Description: "Run a codebase-wide analysis: dead_code (unreferenced functions), hot_spots (most-called functions), types (classes/interfaces/structs), similar (symbols like a given one), or deps (import graph).",
	}, s.mcpExploreHandler)
	s.logger.Debug("Registered tool", slog.String("name", "explore"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "manage_workspace",
		Description: "Add, remove, list, or check the health of indexed workspaces. Use add to register a new codebase root before indexing it.",
	}, s.mcpManageWorkspaceHandler)
	s.logger.Debug("Registered tool", slog.String("name", "manage_workspace"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_symbols",
		Description: "Rank symbols against a query. method=auto picks text (bare identifier), pattern (code idiom like \": BaseClass\"), or hybrid (prose); semantic and hybrid need an embedder. Set expand to attach callers/callees from the reachability graph.",
	}, s.mcpSearchSymbolsHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search_symbols"))

	s.logger.Info("MCP query tools registered", slog.Int("count", 7))
}

// --- lookup ---

// LookupInput defines the input schema for the lookup tool.
type LookupInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"id of the workspace to search, from manage_workspace"`
	Name        string `json:"name" jsonschema:"symbol name to resolve"`
}

// LookupOutput defines the output schema for the lookup tool.
type LookupOutput struct {
	Hits []LookupHitOutput `json:"hits" jsonschema:"candidate definitions, most confident first"`
}

// LookupHitOutput is one candidate definition.
type LookupHitOutput struct {
	Symbol   SymbolOutput `json:"symbol"`
	Strategy string       `json:"strategy" jsonschema:"which resolution strategy produced this hit"`
	Score    float64      `json:"score" jsonschema:"confidence between 0 and 1"`
}

func (s *Server) mcpLookupHandler(ctx context.Context, _ *mcp.CallToolRequest, input LookupInput) (
	*mcp.CallToolResult, LookupOutput, error,
) {
	if input.Name == "" {
		return nil, LookupOutput{}, NewInvalidParamsError("name parameter is required")
	}

	hits, err := s.querySurface.Lookup(ctx, input.WorkspaceID, input.Name)
	if err != nil {
		return nil, LookupOutput{}, MapError(err)
	}

	out := LookupOutput{Hits: make([]LookupHitOutput, 0, len(hits))}
	for _, h := range hits {
		out.Hits = append(out.Hits, LookupHitOutput{
			Symbol:   toSymbolOutput(h.Symbol),
			Strategy: string(h.Strategy),
			Score:    h.Score,
		})
	}
	return nil, out, nil
}

// --- find_refs ---

// FindRefsInput defines the input schema for the find_refs tool.
type FindRefsInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"id of the workspace to search"`
	SymbolID    string `json:"symbol_id" jsonschema:"id of the symbol to find references to, from lookup"`
	Kind        string `json:"kind,omitempty" jsonschema:"filter by identifier kind: Call, Reference, Import, TypeUsage"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum total references across all files"`
}

// FindRefsOutput defines the output schema for the find_refs tool.
type FindRefsOutput struct {
	Files []FileRefsOutput `json:"files" jsonschema:"references grouped by file, most-referencing file first"`
}

// FileRefsOutput is one file's references to the target symbol.
type FileRefsOutput struct {
	FilePath    string                `json:"file_path"`
	Identifiers []IdentifierOutput `json:"identifiers"`
}

// IdentifierOutput is a single reference occurrence.
type IdentifierOutput struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

func (s *Server) mcpFindRefsHandler(ctx context.Context, _ *mcp.CallToolRequest, input FindRefsInput) (
	*mcp.CallToolResult, FindRefsOutput, error,
) {
	if input.SymbolID == "" {
		return nil, FindRefsOutput{}, NewInvalidParamsError("symbol_id parameter is required")
	}

	opts := query.FindRefsOptions{
		KindFilter: store.IdentifierKind(input.Kind),
		Limit:      input.Limit,
	}
	groups, err := s.querySurface.FindRefs(ctx, input.WorkspaceID, input.SymbolID, opts)
	if err != nil {
		return nil, FindRefsOutput{}, MapError(err)
	}

	out := FindRefsOutput{Files: make([]FileRefsOutput, 0, len(groups))}
	for _, g := range groups {
		idents := make([]IdentifierOutput, 0, len(g.Identifiers))
		for _, id := range g.Identifiers {
			idents = append(idents, IdentifierOutput{Name: id.Name, Kind: string(id.Kind), Line: id.Line, Col: id.Col})
		}
		out.Files = append(out.Files, FileRefsOutput{FilePath: g.FilePath, Identifiers: idents})
	}
	return nil, out, nil
}

// --- get_symbols ---

// GetSymbolsInput defines the input schema for the get_symbols tool.
type GetSymbolsInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"id of the workspace to search"`
	Path        string `json:"path" jsonschema:"file path to outline"`
	Mode        string `json:"mode,omitempty" jsonschema:"detail level: structure, minimal, or full (default structure)"`
	MaxDepth    int    `json:"max_depth,omitempty" jsonschema:"maximum nesting depth, 0 means unlimited"`
	Target      string `json:"target,omitempty" jsonschema:"only include symbols whose name or signature contains this substring"`
}

// GetSymbolsOutput defines the output schema for the get_symbols tool.
type GetSymbolsOutput struct {
	Symbols []OutlineNodeOutput `json:"symbols" jsonschema:"top-level symbol tree for the file"`
}

// OutlineNodeOutput is one node of a file's nested symbol tree.
type OutlineNodeOutput struct {
	Symbol   SymbolOutput        `json:"symbol"`
	Depth    int                 `json:"depth"`
	Children []OutlineNodeOutput `json:"children,omitempty"`
}

func (s *Server) mcpGetSymbolsHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetSymbolsInput) (
	*mcp.CallToolResult, GetSymbolsOutput, error,
) {
	if input.Path == "" {
		return nil, GetSymbolsOutput{}, NewInvalidParamsError("path parameter is required")
	}

	mode := query.OutlineMode(input.Mode)
	if mode == "" {
		mode = query.OutlineStructure
	}

	tree, err := s.querySurface.GetSymbols(ctx, input.WorkspaceID, input.Path, query.OutlineOptions{
		Mode:     mode,
		MaxDepth: input.MaxDepth,
		Target:   input.Target,
	})
	if err != nil {
		return nil, GetSymbolsOutput{}, MapError(err)
	}

	out := GetSymbolsOutput{Symbols: toOutlineNodeOutputs(tree)}
	return nil, out, nil
}

func toOutlineNodeOutputs(nodes []*query.OutlineNode) []OutlineNodeOutput {
	out := make([]OutlineNodeOutput, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, OutlineNodeOutput{
			Symbol:   toSymbolOutput(n.Symbol),
			Depth:    n.Depth,
			Children: toOutlineNodeOutputs(n.Children),
		})
	}
	return out
}

// --- trace ---

// TraceInput defines the input schema for the trace tool.
type TraceInput struct {
	WorkspaceID  string `json:"workspace_id" jsonschema:"id of the workspace to search"`
	FromSymbolID string `json:"from_symbol_id" jsonschema:"id of the symbol to trace call paths from"`
	TargetName   string `json:"target_name" jsonschema:"name to look for downstream, matched across naming conventions"`
	MaxDepth     int    `json:"max_depth,omitempty" jsonschema:"maximum call-graph hops to search, default 10"`
}

// TraceOutput defines the output schema for the trace tool.
type TraceOutput struct {
	Found bool              `json:"found"`
	Hops  []TraceHopOutput `json:"hops" jsonschema:"matching symbols, nearest first"`
}

// TraceHopOutput is one candidate hop in a trace result.
type TraceHopOutput struct {
	Symbol     SymbolOutput `json:"symbol"`
	Distance   int          `json:"distance" jsonschema:"call-graph hops from the source symbol"`
	NameMatch  string       `json:"name_match" jsonschema:"naming variant of target_name that matched"`
	Confidence float64      `json:"confidence"`
}

func (s *Server) mcpTraceHandler(ctx context.Context, _ *mcp.CallToolRequest, input TraceInput) (
	*mcp.CallToolResult, TraceOutput, error,
) {
	if input.FromSymbolID == "" || input.TargetName == "" {
		return nil, TraceOutput{}, NewInvalidParamsError("from_symbol_id and target_name parameters are required")
	}

	result, err := s.querySurface.Trace(ctx, input.WorkspaceID, input.FromSymbolID, input.TargetName, query.TraceOptions{
		MaxDepth: input.MaxDepth,
	})
	if err != nil {
		return nil, TraceOutput{}, MapError(err)
	}

	out := TraceOutput{Found: result.Found, Hops: make([]TraceHopOutput, 0, len(result.Hops))}
	for _, h := range result.Hops {
		out.Hops = append(out.Hops, TraceHopOutput{
			Symbol:     toSymbolOutput(h.Symbol),
			Distance:   h.Distance,
			NameMatch:  h.NameMatch,
			Confidence: h.Confidence,
		})
	}
	return nil, out, nil
}

// --- explore ---

// ExploreInput defines the input schema for the explore tool.
type ExploreInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"id of the workspace to search"`
	Mode        string `json:"mode" jsonschema:"analysis mode: dead_code, hot_spots, types, similar, or deps"`
	Target      string `json:"target,omitempty" jsonschema:"symbol id for similar mode, or file path prefix for deps mode"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum symbols to return"`
}

// ExploreOutput defines the output schema for the explore tool.
type ExploreOutput struct {
	Mode    string         `json:"mode"`
	Symbols []SymbolOutput `json:"symbols"`
}

func (s *Server) mcpExploreHandler(ctx context.Context, _ *mcp.CallToolRequest, input ExploreInput) (
	*mcp.CallToolResult, ExploreOutput, error,
) {
	if input.Mode == "" {
		return nil, ExploreOutput{}, NewInvalidParamsError("mode parameter is required")
	}

	result, err := s.querySurface.Explore(ctx, input.WorkspaceID, query.ExploreMode(input.Mode), query.ExploreOptions{
		Limit:  input.Limit,
		Target: input.Target,
	})
	if err != nil {
		return nil, ExploreOutput{}, MapError(err)
	}

	out := ExploreOutput{Mode: string(result.Mode), Symbols: make([]SymbolOutput, 0, len(result.Symbols))}
	for _, sym := range result.Symbols {
		out.Symbols = append(out.Symbols, toSymbolOutput(sym))
	}
	return nil, out, nil
}

// --- search_symbols ---

// SearchSymbolsInput defines the input schema for the search_symbols tool.
type SearchSymbolsInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"id of the workspace to search"`
	Query       string `json:"query" jsonschema:"search query: an identifier, a code idiom, or a prose description"`
	Method      string `json:"method,omitempty" jsonschema:"auto (default), text, pattern, semantic, or hybrid"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum hits to return, default 10"`
	Language    string `json:"language,omitempty" jsonschema:"restrict to symbols in this language"`
	FileGlob    string `json:"file_glob,omitempty" jsonschema:"restrict to files matching this glob"`
	Rerank      *bool  `json:"rerank,omitempty" jsonschema:"apply the cross-encoder reranker, default true"`
	Expand      bool   `json:"expand,omitempty" jsonschema:"attach callers/callees from the reachability graph"`
	ExpandLimit int    `json:"expand_limit,omitempty" jsonschema:"max callers/callees per hit when expand is set, default 5"`
}

// SearchSymbolsOutput defines the output schema for the search_symbols tool.
type SearchSymbolsOutput struct {
	Hits []SearchHitOutput `json:"hits" jsonschema:"ranked results, highest score first"`
}

// SearchHitOutput is one ranked search result.
type SearchHitOutput struct {
	Symbol     SymbolOutput   `json:"symbol"`
	CodeContext string        `json:"code_context,omitempty"`
	MethodUsed string         `json:"method_used" jsonschema:"which method actually produced this hit"`
	Fallback   bool           `json:"fallback,omitempty" jsonschema:"true if text search found nothing and this came from the semantic fallback"`
	Callers    []SymbolOutput `json:"callers,omitempty"`
	Callees    []SymbolOutput `json:"callees,omitempty"`
}

func (s *Server) mcpSearchSymbolsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchSymbolsInput) (
	*mcp.CallToolResult, SearchSymbolsOutput, error,
) {
	if input.Query == "" {
		return nil, SearchSymbolsOutput{}, NewInvalidParamsError("query parameter is required")
	}

	hits, err := s.querySurface.Search(ctx, input.WorkspaceID, input.Query, query.SearchOptions{
		Method: query.SearchMethod(input.Method),
		Limit:  input.Limit,
		Filters: query.SearchFilters{
			Language: input.Language,
			FileGlob: input.FileGlob,
		},
		Rerank:      input.Rerank,
		Expand:      input.Expand,
		ExpandLimit: input.ExpandLimit,
	})
	if err != nil {
		return nil, SearchSymbolsOutput{}, MapError(err)
	}

	out := SearchSymbolsOutput{Hits: make([]SearchHitOutput, 0, len(hits))}
	for _, h := range hits {
		callers := make([]SymbolOutput, 0, len(h.Callers))
		for _, c := range h.Callers {
			callers = append(callers, toSymbolOutput(c))
		}
		callees := make([]SymbolOutput, 0, len(h.Callees))
		for _, c := range h.Callees {
			callees = append(callees, toSymbolOutput(c))
		}
		out.Hits = append(out.Hits, SearchHitOutput{
			Symbol: SymbolOutput{
				ID:         h.SymbolID,
				Name:       h.Name,
				Kind:       string(h.Kind),
				Language:   h.Language,
				FilePath:   h.FilePath,
				StartLine:  h.StartLine,
				EndLine:    h.EndLine,
				Signature:  h.Signature,
				DocComment: h.DocComment,
				Score:      h.Score,
			},
			CodeContext: h.CodeContext,
			MethodUsed:  string(h.MethodUsed),
			Fallback:    h.Fallback,
			Callers:     callers,
			Callees:     callees,
		})
	}
	return nil, out, nil
}

// --- manage_workspace ---

// ManageWorkspaceInput defines the input schema for the manage_workspace tool.
type ManageWorkspaceInput struct {
	Action   string `json:"action" jsonschema:"add, remove, list, or health"`
	RootPath string `json:"root_path,omitempty" jsonschema:"codebase root to register, required for add"`
	ID       string `json:"id,omitempty" jsonschema:"workspace id, required for remove and health"`
}

// ManageWorkspaceOutput defines the output schema for the manage_workspace tool.
type ManageWorkspaceOutput struct {
	Workspaces []WorkspaceOutput `json:"workspaces,omitempty"`
	Status     string             `json:"status,omitempty" jsonschema:"health status when action is health"`
}

// WorkspaceOutput describes one registered workspace.
type WorkspaceOutput struct {
	ID          string `json:"id"`
	RootPath    string `json:"root_path"`
	Name        string `json:"name"`
	FileCount   int    `json:"file_count"`
	SymbolCount int    `json:"symbol_count"`
}

func (s *Server) mcpManageWorkspaceHandler(ctx context.Context, _ *mcp.CallToolRequest, input ManageWorkspaceInput) (
	*mcp.CallToolResult, ManageWorkspaceOutput, error,
) {
	if s.workspaces == nil {
		return nil, ManageWorkspaceOutput{}, NewInvalidParamsError("workspace registry is not configured")
	}

	switch input.Action {
	case "add":
		if input.RootPath == "" {
			return nil, ManageWorkspaceOutput{}, NewInvalidParamsError("root_path parameter is required for add")
		}
		entry, err := s.workspaces.Add(input.RootPath)
		if err != nil {
			return nil, ManageWorkspaceOutput{}, MapError(err)
		}
		return nil, ManageWorkspaceOutput{Workspaces: []WorkspaceOutput{toWorkspaceOutput(entry)}}, nil

	case "remove":
		if input.ID == "" {
			return nil, ManageWorkspaceOutput{}, NewInvalidParamsError("id parameter is required for remove")
		}
		if err := s.workspaces.Remove(input.ID); err != nil {
			return nil, ManageWorkspaceOutput{}, MapError(err)
		}
		return nil, ManageWorkspaceOutput{}, nil

	case "list":
		entries := s.workspaces.List()
		out := make([]WorkspaceOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, toWorkspaceOutput(e))
		}
		return nil, ManageWorkspaceOutput{Workspaces: out}, nil

	case "health":
		if input.ID == "" {
			return nil, ManageWorkspaceOutput{}, NewInvalidParamsError("id parameter is required for health")
		}
		status, err := s.workspaces.Health(input.ID)
		if err != nil {
			return nil, ManageWorkspaceOutput{}, MapError(err)
		}
		return nil, ManageWorkspaceOutput{Status: string(status)}, nil

	default:
		return nil, ManageWorkspaceOutput{}, NewInvalidParamsError("action must be one of: add, remove, list, health")
	}
}

func toWorkspaceOutput(e *workspace.Entry) WorkspaceOutput {
	return WorkspaceOutput{
		ID:          e.ID,
		RootPath:    e.RootPath,
		Name:        e.Name,
		FileCount:   e.FileCount,
		SymbolCount: e.SymbolCount,
	}
}

// --- shared symbol output shape ---

// SymbolOutput is the MCP-facing rendering of a store.SymbolRow.
type SymbolOutput struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Language   string  `json:"language,omitempty"`
	FilePath   string  `json:"file_path"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Signature  string  `json:"signature,omitempty"`
	DocComment string  `json:"doc_comment,omitempty"`
	Visibility string  `json:"visibility,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

func toSymbolOutput(sym *store.SymbolRow) SymbolOutput {
	if sym == nil {
		return SymbolOutput{}
	}
	return SymbolOutput{
		ID:         sym.ID,
		Name:       sym.Name,
		Kind:       string(sym.Kind),
		Language:   sym.Language,
		FilePath:   sym.FilePath,
		StartLine:  sym.StartLine,
		EndLine:    sym.EndLine,
		Signature:  sym.Signature,
		DocComment: sym.DocComment,
		Visibility: sym.Visibility,
		Score:      sym.Score,
	}
}
