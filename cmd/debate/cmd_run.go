// This file contains the terminal debate flow used when the web UI is
// skipped with --no-ui.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"debate/internal/sysopen"
	"debate/internal/triage"
)

var responseHeader = lipgloss.NewStyle().Bold(true).Underline(true)

// runTerminal executes one debate round entirely in the terminal: parallel
// prompts, per-target results, then the synthesis, optionally copied to the
// clipboard.
func runTerminal(ctx context.Context, prompt string, mode triage.Mode) error {
	orc, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := orc.Start(ctx); err != nil {
		return err
	}
	defer orc.Stop(context.WithoutCancel(ctx))

	status := orc.CheckAuth(ctx)
	var missing []string
	for id, ok := range status {
		if !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not logged in to: %s (run 'debate --setup' first)",
			strings.Join(missing, ", "))
	}

	fmt.Println(dimmed.Render("Querying all models in parallel..."))
	responses := orc.Debate(ctx, prompt, nil, cfg.ResponseTimeout())

	for _, target := range orc.Targets() {
		fmt.Println("\n" + responseHeader.Render(target.Name))
		fmt.Println(responses[target.ID])
	}

	triageClient, ok := orc.Client(cfg.TriageTarget)
	if !ok {
		return fmt.Errorf("%s client not available for synthesis", cfg.TriageTarget)
	}

	fmt.Println("\n" + dimmed.Render("Running unified analysis..."))
	fmt.Println("\n" + responseHeader.Render("Synthesis"))
	result, err := triage.Run(ctx, triageClient, prompt, responses, orc.Targets(), mode,
		func(chunk string) { fmt.Print(chunk) }, cfg.ResponseTimeout())
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}
	fmt.Println()

	if copyResult {
		if sysopen.CopyToClipboard(result) {
			fmt.Println(dimmed.Render("Synthesis copied to clipboard."))
		}
	}
	return nil
}
