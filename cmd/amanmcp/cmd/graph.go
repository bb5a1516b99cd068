package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/internal/config"
	"github.com/Aman-CERP/amanmcp/internal/graph"
	"github.com/Aman-CERP/amanmcp/internal/idhash"
	"github.com/Aman-CERP/amanmcp/internal/output"
	"github.com/Aman-CERP/amanmcp/internal/store"
)

// openSymbolStoreForCmd resolves the project root's symbol graph store for
// a single CLI invocation, the same dataDir layout serveDataDir uses.
func openSymbolStoreForCmd() (store.SymbolGraphStore, string, func(), error) {
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
		return nil, "", nil, fmt.Errorf("no symbol graph found in %s\nRun 'amanmcp index' first", root)
	}
	symbolStore, err := store.NewSQLiteSymbolGraphStore(symbolsPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to open symbol graph store: %w", err)
	}
	return symbolStore, idhash.WorkspaceID(root), func() { _ = symbolStore.Close() }, nil
}

func newGraphCmd() *cobra.Command {
	var workspaceID string
	var graphWorkers int

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect and recompute the reachability graph",
	}
	cmd.PersistentFlags().StringVar(&workspaceID, "workspace", "", "Workspace id (defaults to the current project root)")
	cmd.PersistentFlags().IntVar(&graphWorkers, "workers", 4, "Worker count for graph recompute")

	cmd.AddCommand(newGraphRecomputeCmd(&workspaceID, &graphWorkers))
	cmd.AddCommand(newGraphStaleCmd(&workspaceID, &graphWorkers))
	cmd.AddCommand(newGraphDependentsCmd(&workspaceID, &graphWorkers))
	cmd.AddCommand(newGraphDependenciesCmd(&workspaceID, &graphWorkers))
	cmd.AddCommand(newGraphDistanceCmd(&workspaceID, &graphWorkers))

	return cmd
}

func resolveGraph(workspaceID *string, workers int) (*graph.Engine, store.SymbolGraphStore, string, func(), error) {
	symbolStore, defaultWS, cleanup, err := openSymbolStoreForCmd()
	if err != nil {
		return nil, nil, "", nil, err
	}
	ws := *workspaceID
	if ws == "" {
		ws = defaultWS
	}
	return graph.NewEngine(symbolStore, workers), symbolStore, ws, cleanup, nil
}

func newGraphRecomputeCmd(workspaceID *string, workers *int) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild the reachability closure for a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, ws, cleanup, err := resolveGraph(workspaceID, *workers)
			if err != nil {
				return err
			}
			defer cleanup()
			n, err := eng.Recompute(cmd.Context(), ws)
			if err != nil {
				return fmt.Errorf("recompute failed: %w", err)
			}
			output.New(cmd.OutOrStdout()).Successf("Recomputed reachability: %d edges", n)
			return nil
		},
	}
}

func newGraphStaleCmd(workspaceID *string, workers *int) *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "Report whether the reachability closure needs a recompute",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, ws, cleanup, err := resolveGraph(workspaceID, *workers)
			if err != nil {
				return err
			}
			defer cleanup()
			stale, err := eng.IsStale(cmd.Context(), ws)
			if err != nil {
				return fmt.Errorf("stale check failed: %w", err)
			}
			out := output.New(cmd.OutOrStdout())
			if stale {
				out.Status("", "stale")
			} else {
				out.Status("", "fresh")
			}
			return nil
		},
	}
}

func newGraphDependentsCmd(workspaceID *string, workers *int) *cobra.Command {
	var maxDistance int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "dependents <symbol-id>",
		Short: "List symbols that (transitively) depend on a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphReach(cmd, workspaceID, workers, args[0], maxDistance, jsonOutput, true)
		},
	}
	cmd.Flags().IntVar(&maxDistance, "max-distance", 0, "Maximum hop distance (0 means unlimited)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newGraphDependenciesCmd(workspaceID *string, workers *int) *cobra.Command {
	var maxDistance int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "dependencies <symbol-id>",
		Short: "List symbols that a symbol (transitively) depends on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphReach(cmd, workspaceID, workers, args[0], maxDistance, jsonOutput, false)
		},
	}
	cmd.Flags().IntVar(&maxDistance, "max-distance", 0, "Maximum hop distance (0 means unlimited)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runGraphReach(cmd *cobra.Command, workspaceID *string, workers *int, symbolID string, maxDistance int, jsonOutput, dependents bool) error {
	eng, symbolStore, ws, cleanup, err := resolveGraph(workspaceID, *workers)
	if err != nil {
		return err
	}
	defer cleanup()

	var rows []*store.ReachabilityRow
	if dependents {
		rows, err = eng.Dependents(cmd.Context(), ws, symbolID, maxDistance)
	} else {
		rows, err = eng.Dependencies(cmd.Context(), ws, symbolID, maxDistance)
	}
	if err != nil {
		return fmt.Errorf("reachability query failed: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if dependents {
			ids = append(ids, r.SourceID)
		} else {
			ids = append(ids, r.TargetID)
		}
	}
	symbols, err := symbolStore.GetSymbolsByIDs(cmd.Context(), ws, ids)
	if err != nil {
		return fmt.Errorf("failed to hydrate symbols: %w", err)
	}
	byID := make(map[string]*store.SymbolRow, len(symbols))
	for _, sym := range symbols {
		byID[sym.ID] = sym
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(symbols)
	}

	out := output.New(cmd.OutOrStdout())
	if len(rows) == 0 {
		out.Status("", "No results")
		return nil
	}
	for _, r := range rows {
		id := r.SourceID
		if !dependents {
			id = r.TargetID
		}
		if sym, ok := byID[id]; ok {
			out.Statusf("", "%s  %s:%d  (distance %d)", sym.Name, sym.FilePath, sym.StartLine, r.Distance)
		} else {
			out.Statusf("", "%s  (distance %d)", id, r.Distance)
		}
	}
	return nil
}

func newGraphDistanceCmd(workspaceID *string, workers *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distance <from-symbol-id> <to-symbol-id>",
		Short: "Report the shortest hop distance between two symbols",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, ws, cleanup, err := resolveGraph(workspaceID, *workers)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			if cmd.Context() != nil {
				ctx = cmd.Context()
			}
			dist, found, err := eng.Distance(ctx, ws, args[0], args[1])
			if err != nil {
				return fmt.Errorf("distance query failed: %w", err)
			}
			out := output.New(cmd.OutOrStdout())
			if !found {
				out.Status("", "unreachable")
				return nil
			}
			out.Statusf("", "distance: %d", dist)
			return nil
		},
	}
	return cmd
}
