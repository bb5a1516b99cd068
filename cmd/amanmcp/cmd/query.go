package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/internal/config"
	"github.com/Aman-CERP/amanmcp/internal/embed"
	"github.com/Aman-CERP/amanmcp/internal/graph"
	"github.com/Aman-CERP/amanmcp/internal/idhash"
	"github.com/Aman-CERP/amanmcp/internal/output"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/store"
)

// querySurfaceHandle bundles the query.Surface built for one CLI invocation
// with the resources it needs closed afterward.
type querySurfaceHandle struct {
	surface     *query.Surface
	workspaceID string
	close       func()
}

// openQuerySurface builds a query.Surface against the current project's
// data directory, the same stack serveDataDir wires up minus the MCP
// server itself. It does not wire a symbol-level vector store: nothing in
// this repo constructs one yet (serveDataDir doesn't either), so the
// semantic and hybrid methods degrade to text-only until that store
// exists; offline skips even the embedder to keep one-shot CLI calls fast.
func openQuerySurface(ctx context.Context, offline bool) (*querySurfaceHandle, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	if abs, absErr := filepath.Abs(root); absErr == nil {
		root = abs
	}
	dataDir := filepath.Join(root, ".amanmcp")
	symbolsPath := filepath.Join(dataDir, "symbols.db")
	if _, statErr := os.Stat(symbolsPath); os.IsNotExist(statErr) {
		return nil, fmt.Errorf("no symbol graph found in %s\nRun 'amanmcp index' first", root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	symbolStore, err := store.NewSQLiteSymbolGraphStore(symbolsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol graph store: %w", err)
	}
	closers := []func(){func() { _ = symbolStore.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	reach := graph.NewEngine(symbolStore, cfg.Graph.Workers)
	opts := []query.Option{}

	if !offline {
		embedCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		embedder, embedErr := embed.NewEmbedder(embedCtx, embed.ParseProvider(cfg.Embeddings.Provider), cfg.Embeddings.Model)
		cancel()
		if embedErr == nil {
			closers = append(closers, func() { _ = embedder.Close() })
			opts = append(opts, query.WithEmbedder(embedder))
		}
	}

	patternPath := filepath.Join(dataDir, "pattern.bleve")
	if _, statErr := os.Stat(patternPath); statErr == nil {
		patternIndex, piErr := store.NewPatternIndex(patternPath)
		if piErr == nil {
			closers = append(closers, func() { _ = patternIndex.Close() })
			opts = append(opts, query.WithPatternIndex(patternIndex))
		}
	}

	surface := query.NewSurface(symbolStore, reach, opts...)
	return &querySurfaceHandle{surface: surface, workspaceID: idhash.WorkspaceID(root), close: closeAll}, nil
}

func newQueryCmd() *cobra.Command {
	var workspaceID string
	var offline bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the symbol graph (lookup, references, outline, trace, explore, search)",
	}
	cmd.PersistentFlags().StringVar(&workspaceID, "workspace", "", "Workspace id (defaults to the current project root)")
	cmd.PersistentFlags().BoolVar(&offline, "offline", false, "Skip embedder startup (disables semantic/hybrid methods)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newQueryLookupCmd(&workspaceID, &offline, &jsonOutput))
	cmd.AddCommand(newQueryFindRefsCmd(&workspaceID, &offline, &jsonOutput))
	cmd.AddCommand(newQueryGetSymbolsCmd(&workspaceID, &offline, &jsonOutput))
	cmd.AddCommand(newQueryTraceCmd(&workspaceID, &offline, &jsonOutput))
	cmd.AddCommand(newQueryExploreCmd(&workspaceID, &offline, &jsonOutput))
	cmd.AddCommand(newQuerySearchCmd(&workspaceID, &offline, &jsonOutput))

	return cmd
}

func resolveQuerySurface(ctx context.Context, workspaceID *string, offline bool) (*querySurfaceHandle, string, error) {
	h, err := openQuerySurface(ctx, offline)
	if err != nil {
		return nil, "", err
	}
	ws := *workspaceID
	if ws == "" {
		ws = h.workspaceID
	}
	return h, ws, nil
}

func emitJSONOrLines(cmd *cobra.Command, jsonOutput bool, v any, lines func(out *output.Writer)) error {
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	lines(output.New(cmd.OutOrStdout()))
	return nil
}

func newQueryLookupCmd(workspaceID *string, offline, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Resolve a symbol name to candidate symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ws, err := resolveQuerySurface(cmd.Context(), workspaceID, *offline)
			if err != nil {
				return err
			}
			defer h.close()
			hits, err := h.surface.Lookup(cmd.Context(), ws, args[0])
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}
			return emitJSONOrLines(cmd, *jsonOutput, hits, func(out *output.Writer) {
				if len(hits) == 0 {
					out.Status("", "No matches")
					return
				}
				for _, hit := range hits {
					out.Statusf("", "%s  %s:%d  (%s, score %.2f)", hit.Symbol.Name, hit.Symbol.FilePath, hit.Symbol.StartLine, hit.Strategy, hit.Score)
				}
			})
		},
	}
}

func newQueryFindRefsCmd(workspaceID *string, offline, jsonOutput *bool) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "find-refs <symbol-id>",
		Short: "List references to a symbol, grouped by file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ws, err := resolveQuerySurface(cmd.Context(), workspaceID, *offline)
			if err != nil {
				return err
			}
			defer h.close()
			refs, err := h.surface.FindRefs(cmd.Context(), ws, args[0], query.FindRefsOptions{Limit: limit})
			if err != nil {
				return fmt.Errorf("find-refs failed: %w", err)
			}
			return emitJSONOrLines(cmd, *jsonOutput, refs, func(out *output.Writer) {
				if len(refs) == 0 {
					out.Status("", "No references")
					return
				}
				for _, fr := range refs {
					out.Statusf("", "%s  (%d references)", fr.FilePath, len(fr.Identifiers))
					for _, ident := range fr.Identifiers {
						out.Statusf("", "  line %d  (%s)", ident.Line, ident.Kind)
					}
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum references to return (0 means unlimited)")
	return cmd
}

func newQueryGetSymbolsCmd(workspaceID *string, offline, jsonOutput *bool) *cobra.Command {
	var mode string
	var maxDepth int
	var target string

	cmd := &cobra.Command{
		Use:   "get-symbols <file-path>",
		Short: "Show the symbol outline for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ws, err := resolveQuerySurface(cmd.Context(), workspaceID, *offline)
			if err != nil {
				return err
			}
			defer h.close()
			nodes, err := h.surface.GetSymbols(cmd.Context(), ws, args[0], query.OutlineOptions{
				Mode:     query.OutlineMode(mode),
				MaxDepth: maxDepth,
				Target:   target,
			})
			if err != nil {
				return fmt.Errorf("get-symbols failed: %w", err)
			}
			return emitJSONOrLines(cmd, *jsonOutput, nodes, func(out *output.Writer) {
				printOutline(out, nodes)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(query.OutlineStructure), "Detail mode: structure, minimal, full")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum nesting depth (0 means unlimited)")
	cmd.Flags().StringVar(&target, "target", "", "Filter to symbols matching this substring")
	return cmd
}

func printOutline(out *output.Writer, nodes []*query.OutlineNode) {
	for _, n := range nodes {
		indent := ""
		for i := 0; i < n.Depth; i++ {
			indent += "  "
		}
		out.Statusf("", "%s%s (%s)  line %d", indent, n.Symbol.Name, n.Symbol.Kind, n.Symbol.StartLine)
		printOutline(out, n.Children)
	}
}

func newQueryTraceCmd(workspaceID *string, offline, jsonOutput *bool) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "trace <from-symbol-id> <target-name>",
		Short: "Trace outward from a symbol to find a call path reaching target-name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ws, err := resolveQuerySurface(cmd.Context(), workspaceID, *offline)
			if err != nil {
				return err
			}
			defer h.close()
			result, err := h.surface.Trace(cmd.Context(), ws, args[0], args[1], query.TraceOptions{MaxDepth: maxDepth})
			if err != nil {
				return fmt.Errorf("trace failed: %w", err)
			}
			return emitJSONOrLines(cmd, *jsonOutput, result, func(out *output.Writer) {
				if !result.Found {
					out.Status("", "No path found")
					return
				}
				for _, hop := range result.Hops {
					out.Statusf("", "%s  %s:%d  (distance %d)", hop.Symbol.Name, hop.Symbol.FilePath, hop.Symbol.StartLine, hop.Distance)
				}
			})
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum hop distance (0 uses the graph engine default)")
	return cmd
}

func newQueryExploreCmd(workspaceID *string, offline, jsonOutput *bool) *cobra.Command {
	var limit int
	var target string

	cmd := &cobra.Command{
		Use:   "explore <mode>",
		Short: "Run a codebase-wide analysis: dead_code, hot_spots, types, similar, deps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ws, err := resolveQuerySurface(cmd.Context(), workspaceID, *offline)
			if err != nil {
				return err
			}
			defer h.close()
			result, err := h.surface.Explore(cmd.Context(), ws, query.ExploreMode(args[0]), query.ExploreOptions{
				Limit:  limit,
				Target: target,
			})
			if err != nil {
				return fmt.Errorf("explore failed: %w", err)
			}
			return emitJSONOrLines(cmd, *jsonOutput, result, func(out *output.Writer) {
				if len(result.Symbols) == 0 {
					out.Status("", "No results")
					return
				}
				for _, sym := range result.Symbols {
					out.Statusf("", "%s  %s:%d  (%s)", sym.Name, sym.FilePath, sym.StartLine, sym.Kind)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum symbols to return")
	cmd.Flags().StringVar(&target, "target", "", "Comparison symbol id (similar) or path prefix (deps)")
	return cmd
}

func newQuerySearchCmd(workspaceID *string, offline, jsonOutput *bool) *cobra.Command {
	var method string
	var limit int
	var language string
	var fileGlob string
	var expand bool
	var expandLimit int
	var noRerank bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank symbols against a query (text, pattern, semantic, hybrid)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ws, err := resolveQuerySurface(cmd.Context(), workspaceID, *offline)
			if err != nil {
				return err
			}
			defer h.close()

			q := args[0]
			if len(args) > 1 {
				for _, a := range args[1:] {
					q += " " + a
				}
			}

			var rerank *bool
			if noRerank {
				f := false
				rerank = &f
			}

			hits, err := h.surface.Search(cmd.Context(), ws, q, query.SearchOptions{
				Method: query.SearchMethod(method),
				Limit:  limit,
				Filters: query.SearchFilters{
					Language: language,
					FileGlob: fileGlob,
				},
				Rerank:      rerank,
				Expand:      expand,
				ExpandLimit: expandLimit,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return emitJSONOrLines(cmd, *jsonOutput, hits, func(out *output.Writer) {
				if len(hits) == 0 {
					out.Status("", fmt.Sprintf("No results for %q", q))
					return
				}
				out.Statusf("🔍", "Found %d results for %q (method: auto-resolved to first hit's %s):", len(hits), q, hits[0].MethodUsed)
				for _, hit := range hits {
					fallback := ""
					if hit.Fallback {
						fallback = " [fallback]"
					}
					out.Statusf("", "%s  %s:%d  (score %.3f, %s)%s", hit.Name, hit.FilePath, hit.StartLine, hit.Score, hit.MethodUsed, fallback)
					for _, c := range hit.Callers {
						out.Statusf("", "    caller: %s  %s:%d", c.Name, c.FilePath, c.StartLine)
					}
					for _, c := range hit.Callees {
						out.Statusf("", "    callee: %s  %s:%d", c.Name, c.FilePath, c.StartLine)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "auto", "Search method: auto, text, pattern, semantic, hybrid")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum hits to return")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Filter by language")
	cmd.Flags().StringVar(&fileGlob, "file-glob", "", "Filter by file path glob")
	cmd.Flags().BoolVar(&expand, "expand", false, "Attach callers/callees from the reachability graph")
	cmd.Flags().IntVar(&expandLimit, "expand-limit", 5, "Max callers/callees per hit when --expand is set")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "Disable the cross-encoder reranker")
	return cmd
}
