package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/internal/chunk"
	"github.com/Aman-CERP/amanmcp/internal/config"
	"github.com/Aman-CERP/amanmcp/internal/embed"
	"github.com/Aman-CERP/amanmcp/internal/graph"
	"github.com/Aman-CERP/amanmcp/internal/index"
	"github.com/Aman-CERP/amanmcp/internal/logging"
	amcp "github.com/Aman-CERP/amanmcp/internal/mcp"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/scanner"
	"github.com/Aman-CERP/amanmcp/internal/search"
	"github.com/Aman-CERP/amanmcp/internal/session"
	"github.com/Aman-CERP/amanmcp/internal/store"
	"github.com/Aman-CERP/amanmcp/internal/watcher"
	"github.com/Aman-CERP/amanmcp/internal/workspace"
)

func newServeCmd() *cobra.Command {
	var transport string
	var port int
	var debug bool
	var sessionName string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server over stdio.

AI clients (Claude Code, Cursor) speak JSON-RPC to this process over
stdin/stdout. No output other than protocol messages may reach stdout:
all diagnostics go to the log file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				_ = os.Setenv("AMANMCP_MCP_LOG_LEVEL", "debug")
			}
			if sessionName != "" {
				return runServeWithSession(cmd.Context(), transport, port, sessionName)
			}
			return runServe(cmd.Context(), transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve over: stdio")
	cmd.Flags().IntVar(&port, "port", 0, "Port for network transports (unused for stdio)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to ~/.amanmcp/logs/")
	cmd.Flags().StringVar(&sessionName, "session", "", "Serve a saved session's index instead of the current directory")

	return cmd
}

// runServe starts the MCP server against the project root's own .amanmcp
// index. It must not write to stdout before s.Serve is called: the MCP
// protocol requires stdin/stdout to carry only JSON-RPC frames.
func runServe(ctx context.Context, transport string, port int) error {
	if transport == "stdio" {
		if err := verifyStdinForMCP(); err != nil {
			return err
		}
	}

	cleanup, err := setupServeLogging()
	if err != nil {
		return fmt.Errorf("failed to set up MCP-safe logging: %w", err)
	}
	defer cleanup()

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	dataDir := filepath.Join(root, ".amanmcp")

	return serveDataDir(ctx, root, dataDir, transport, port)
}

// runServeWithSession serves a previously saved session's index rather
// than the current directory's .amanmcp directory.
func runServeWithSession(ctx context.Context, transport string, port int, sessionName string) error {
	if transport == "stdio" {
		if err := verifyStdinForMCP(); err != nil {
			return err
		}
	}

	cleanup, err := setupServeLogging()
	if err != nil {
		return fmt.Errorf("failed to set up MCP-safe logging: %w", err)
	}
	defer cleanup()

	cfg := config.NewConfig()
	mgr, err := session.NewManager(session.ManagerConfig{StoragePath: cfg.Sessions.StoragePath})
	if err != nil {
		return fmt.Errorf("failed to open session manager: %w", err)
	}

	sess, err := mgr.Get(sessionName)
	if err != nil {
		return fmt.Errorf("failed to load session %q: %w", sessionName, err)
	}

	return serveDataDir(ctx, sess.ProjectPath, mgr.SessionDir(sessionName), transport, port)
}

// setupServeLogging sets up MCP-safe file logging, honoring --debug (passed
// through via AMANMCP_MCP_LOG_LEVEL) to raise verbosity beyond the default.
func setupServeLogging() (func(), error) {
	if level := os.Getenv("AMANMCP_MCP_LOG_LEVEL"); level != "" {
		return logging.SetupMCPModeWithLevel(level)
	}
	return logging.SetupMCPMode()
}

// serveDataDir wires up the metadata/BM25/vector/symbol stores, embedder,
// search engine, reachability engine, workspace registry, and MCP server
// for one data directory, then blocks serving until ctx is cancelled.
func serveDataDir(ctx context.Context, root, dataDir, transport string, port int) error {
	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	metadataPath := filepath.Join(dataDir, "metadata.db")
	metadata, err := store.NewSQLiteStore(metadataPath)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer func() { _ = metadata.Close() }()

	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25, err := store.NewBM25IndexWithBackend(bm25BasePath, store.DefaultBM25Config(), cfg.Search.BM25Backend)
	if err != nil {
		return fmt.Errorf("failed to open BM25 index: %w", err)
	}
	defer func() { _ = bm25.Close() }()

	var embedder embed.Embedder
	provider := embed.ParseProvider(cfg.Embeddings.Provider)
	embedCtx, embedCancel := context.WithTimeout(ctx, 15*time.Second)
	embedder, err = embed.NewEmbedder(embedCtx, provider, cfg.Embeddings.Model)
	embedCancel()
	if err != nil {
		slog.Warn("embedder initialization failed, falling back to static embeddings",
			slog.String("error", err.Error()))
		embedder = embed.NewStaticEmbedder768()
	}
	defer func() { _ = embedder.Close() }()

	vectorCfg := store.DefaultVectorStoreConfig(embedder.Dimensions())
	vector, err := store.NewHNSWStore(vectorCfg)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer func() { _ = vector.Close() }()

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		if err := vector.Load(vectorPath); err != nil {
			slog.Warn("failed to load vector index, starting empty", slog.String("error", err.Error()))
		}
	}

	engineCfg := search.DefaultConfig()
	engineCfg.DefaultWeights = search.Weights{BM25: cfg.Search.BM25Weight, Semantic: cfg.Search.SemanticWeight}
	engineCfg.RRFConstant = cfg.Search.RRFConstant
	engineCfg.MaxLimit = cfg.Search.MaxResults
	engine, err := search.NewEngine(bm25, vector, embedder, metadata, engineCfg)
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}

	server, err := amcp.NewServer(engine, metadata, embedder, cfg, root)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	symbolsPath := filepath.Join(dataDir, "symbols.db")
	symbolStore, err := store.NewSQLiteSymbolGraphStore(symbolsPath)
	if err != nil {
		return fmt.Errorf("failed to open symbol graph store: %w", err)
	}
	defer func() { _ = symbolStore.Close() }()

	reach := graph.NewEngine(symbolStore, cfg.Graph.Workers)

	patternPath := filepath.Join(dataDir, "pattern.bleve")
	patternIndex, err := store.NewPatternIndex(patternPath)
	if err != nil {
		return fmt.Errorf("failed to open pattern index: %w", err)
	}
	defer func() { _ = patternIndex.Close() }()

	var reranker search.Reranker = &search.NoOpReranker{}
	rerankCtx, rerankCancel := context.WithTimeout(ctx, 2*time.Second)
	if mlx, mlxErr := search.NewMLXReranker(rerankCtx, search.MLXRerankerConfig{}); mlxErr == nil && mlx.Available(rerankCtx) {
		reranker = mlx
	} else if mlxErr == nil {
		_ = mlx.Close()
	}
	rerankCancel()

	querySurface := query.NewSurface(symbolStore, reach,
		query.WithEmbedder(embedder),
		query.WithPatternIndex(patternIndex),
		query.WithReranker(reranker))

	registryPath := cfg.Workspaces.RegistryPath
	if registryPath == "" {
		registryPath = workspace.DefaultRegistryPath()
	}
	registry, err := workspace.Load(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load workspace registry: %w", err)
	}
	if _, err := registry.Add(root); err != nil {
		slog.Warn("failed to register workspace", slog.String("error", err.Error()))
	}

	server.SetQuerySurface(querySurface, reach, registry)

	coordinator, err := newCoordinator(root, dataDir, cfg, engine, metadata, symbolStore, reach, patternIndex)
	if err != nil {
		slog.Warn("incremental indexing disabled", slog.String("error", err.Error()))
	}

	// File watching initializes in the background so it never delays the
	// MCP handshake: clients expect a response within ~500ms of connecting.
	startWatcher(ctx, root, cfg, coordinator)

	return server.Serve(ctx, transport, fmt.Sprintf(":%d", port))
}

// newCoordinator builds the incremental-index coordinator that the file
// watcher feeds. It reuses the same chunker/parser/extractor stack the
// initial full index uses (internal/index.Runner), kept in the teacher's
// RAG-chunking idiom, plus the symbol-graph extraction pipeline.
func newCoordinator(root, dataDir string, cfg *config.Config, engine *search.Engine, metadata store.MetadataStore, symbolStore store.SymbolGraphStore, reach *graph.Engine, patternIndex *store.PatternIndex) (*index.Coordinator, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	registry := chunk.DefaultRegistry()

	return index.NewCoordinator(index.CoordinatorConfig{
		ProjectID:    index.ProjectID(root),
		RootPath:     root,
		DataDir:      dataDir,
		Engine:       engine,
		Metadata:     metadata,
		CodeChunker:  chunk.NewCodeChunker(),
		MDChunker:    chunk.NewMarkdownChunker(),
		Scanner:      sc,
		SymbolStore:  symbolStore,
		Reach:        reach,
		SymbolParser: chunk.NewParserWithRegistry(registry),
		Extractor:    chunk.NewSymbolExtractorWithRegistry(registry),
		RelExtractor: chunk.NewRelationshipExtractor(),
		PatternIndex: patternIndex,
	}), nil
}

// startWatcher launches the filesystem watcher in a goroutine. Its startup
// cost (a few hundred ms to a few seconds depending on the filesystem) must
// never block MCP server startup. Debounced event batches are handed to
// coordinator (if non-nil) to keep the index in sync with live edits.
func startWatcher(ctx context.Context, root string, cfg *config.Config, coordinator *index.Coordinator) {
	opts := watcher.DefaultOptions()
	if cfg.Performance.WatchDebounce != "" {
		if d, err := time.ParseDuration(cfg.Performance.WatchDebounce); err == nil {
			opts.DebounceWindow = d
		}
	}

	startupTimeout := 2 * time.Second
	if v := os.Getenv("AMANMCP_WATCHER_STARTUP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			startupTimeout = d
		}
	}

	go func() {
		w, err := watcher.NewHybridWatcher(opts)
		if err != nil {
			slog.Warn("file watcher unavailable", slog.String("error", err.Error()))
			return
		}

		startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if err := w.Start(startCtx, root); err != nil {
			slog.Warn("file watcher failed to start", slog.String("error", err.Error()))
			return
		}
		slog.Info("file watcher started", slog.String("root", root))

		if coordinator != nil {
			go func() {
				if err := coordinator.ReconcileFilesOnStartup(ctx); err != nil {
					slog.Warn("startup file reconciliation failed", slog.String("error", err.Error()))
				}
				if err := coordinator.ReconcileOnStartup(ctx); err != nil {
					slog.Warn("startup gitignore reconciliation failed", slog.String("error", err.Error()))
				}
			}()
		}

		for {
			select {
			case <-ctx.Done():
				_ = w.Stop()
				return
			case events, ok := <-w.Events():
				if !ok {
					return
				}
				if coordinator != nil {
					if err := coordinator.HandleEvents(ctx, events); err != nil {
						slog.Warn("failed to handle file events", slog.String("error", err.Error()))
					}
				}
			case err := <-w.Errors():
				if err != nil {
					slog.Warn("file watcher error", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// verifyStdinForMCP reports an error when stdin looks like an interactive
// terminal rather than a pipe, since the MCP protocol expects a client
// process driving stdin with JSON-RPC frames, not a human typing.
func verifyStdinForMCP() error {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is a terminal, not a pipe: amanmcp serve expects an MCP client " +
			"to connect over stdin/stdout (e.g. launched by Claude Code or Cursor), not to run interactively")
	}
	return nil
}
