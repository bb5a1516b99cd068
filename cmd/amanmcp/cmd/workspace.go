package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/internal/config"
	"github.com/Aman-CERP/amanmcp/internal/output"
	"github.com/Aman-CERP/amanmcp/internal/workspace"
)

// newWorkspaceCmd groups commands over the workspace registry (spec's
// multi-workspace directory), the same one serve wires every project root
// into at startup.
func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage registered workspaces",
	}

	cmd.AddCommand(newWorkspaceAddCmd())
	cmd.AddCommand(newWorkspaceRemoveCmd())
	cmd.AddCommand(newWorkspaceListCmd())
	cmd.AddCommand(newWorkspaceHealthCmd())
	cmd.AddCommand(newWorkspaceCleanCmd())

	return cmd
}

func openRegistry() (*workspace.Registry, error) {
	cfg, err := config.Load(".")
	if err != nil {
		cfg = config.NewConfig()
	}
	path := cfg.Workspaces.RegistryPath
	if path == "" {
		path = workspace.DefaultRegistryPath()
	}
	return workspace.Load(path)
}

func newWorkspaceAddCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a workspace root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openRegistry()
			if err != nil {
				return fmt.Errorf("failed to open workspace registry: %w", err)
			}
			entry, err := registry.Add(args[0])
			if err != nil {
				return fmt.Errorf("failed to add workspace: %w", err)
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			}
			out := output.New(cmd.OutOrStdout())
			out.Successf("Registered workspace %s (%s)", entry.ID, entry.RootPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newWorkspaceRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Unregister a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openRegistry()
			if err != nil {
				return fmt.Errorf("failed to open workspace registry: %w", err)
			}
			if err := registry.Remove(args[0]); err != nil {
				return fmt.Errorf("failed to remove workspace: %w", err)
			}
			output.New(cmd.OutOrStdout()).Successf("Removed workspace %s", args[0])
			return nil
		},
	}
	return cmd
}

func newWorkspaceListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openRegistry()
			if err != nil {
				return fmt.Errorf("failed to open workspace registry: %w", err)
			}
			entries := registry.List()
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			out := output.New(cmd.OutOrStdout())
			if len(entries) == 0 {
				out.Status("", "No workspaces registered")
				return nil
			}
			for _, e := range entries {
				out.Statusf("", "%s  %s  (files: %d, symbols: %d)", e.ID, e.RootPath, e.FileCount, e.SymbolCount)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newWorkspaceHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health <id>",
		Short: "Report a workspace's health status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openRegistry()
			if err != nil {
				return fmt.Errorf("failed to open workspace registry: %w", err)
			}
			status, err := registry.Health(args[0])
			if err != nil {
				return fmt.Errorf("failed to check workspace health: %w", err)
			}
			output.New(cmd.OutOrStdout()).Status("", string(status))
			return nil
		},
	}
	return cmd
}

func newWorkspaceCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove workspaces whose root path no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openRegistry()
			if err != nil {
				return fmt.Errorf("failed to open workspace registry: %w", err)
			}
			removed, err := registry.Clean()
			if err != nil {
				return fmt.Errorf("failed to clean workspace registry: %w", err)
			}
			out := output.New(cmd.OutOrStdout())
			if len(removed) == 0 {
				out.Status("", "Nothing to clean")
				return nil
			}
			for _, id := range removed {
				out.Statusf("", "Removed missing workspace %s", id)
			}
			return nil
		},
	}
	return cmd
}
