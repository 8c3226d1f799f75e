package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orito-ai/orito-core/internal/agentdef"
	"github.com/orito-ai/orito-core/internal/config"
)

// buildAgentsCmd creates the "agents" command group for inspecting Agent
// Definition Loader (spec §4.3) source directories, grounded on the
// teacher's cmd/nexus/commands_agents.go list/show shape.
func buildAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect agent definitions",
	}
	cmd.AddCommand(buildAgentsListCmd(), buildAgentsShowCmd())
	return cmd
}

func buildAgentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agent types found under agent_defs.dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := agentDefsDir()
			if err != nil {
				return err
			}
			types, err := listAgentTypes(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(types) == 0 {
				fmt.Fprintf(out, "no agent definitions found under %s\n", dir)
				return nil
			}
			for _, t := range types {
				fmt.Fprintln(out, t)
			}
			return nil
		},
	}
	return cmd
}

func buildAgentsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <agent-type>",
		Short: "Show a parsed agent definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := agentDefsDir()
			if err != nil {
				return err
			}
			loader := agentdef.New(dir)
			def, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:          %s\n", def.Name)
			fmt.Fprintf(out, "description:   %s\n", def.Description)
			fmt.Fprintf(out, "mode:          %s\n", def.Mode)
			fmt.Fprintf(out, "color:         %s\n", def.Color)
			fmt.Fprintf(out, "maxTokens:     %d\n", def.MaxTokens)
			fmt.Fprintf(out, "maxResults:    %d\n", def.MaxResults)
			fmt.Fprintf(out, "maxSubAgents:  %d\n", def.MaxSubAgents)
			fmt.Fprintf(out, "tools.allowed: %s\n", strings.Join(def.Tools.Allowed, ", "))
			if len(def.Tools.Restricted) > 0 {
				fmt.Fprintf(out, "tools.restricted: %s\n", strings.Join(def.Tools.Restricted, ", "))
			}
			return nil
		},
	}
	return cmd
}

// agentDefsDir loads configPath just far enough to resolve agent_defs.dir,
// falling back to its documented default when no config file is present.
func agentDefsDir() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "agents", nil
		}
		return "", err
	}
	return cfg.AgentDefs.Dir, nil
}

func listAgentTypes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var types []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, entry.Name(), agentdef.DefinitionFilename)); err != nil {
			continue
		}
		types = append(types, entry.Name())
	}
	sort.Strings(types)
	return types, nil
}
