package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orito-ai/orito-core/internal/classifier"
)

// buildClassifyCmd runs just the Query Classifier (spec §4.6) against a
// message, useful for tuning classification rules without spinning up an
// LLM-backed agent.
func buildClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Classify a message's intent and complexity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			result := classifier.Classify(message)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "intent:     %s\n", result.Intent)
			fmt.Fprintf(out, "complexity: %s\n", result.Complexity)
			if classifier.NeedsSystemProfile(result.Intent) {
				fmt.Fprintln(out, "requires system profile: yes")
			}
			return nil
		},
	}
	return cmd
}
