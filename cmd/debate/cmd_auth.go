// This file contains the interactive auth setup and auth check flows.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("✗")
	headline = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimmed   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	panel    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("14")).
			Padding(0, 2)
)

// runSetup opens a browser window per target that needs login and waits for
// the operator to confirm each one.
func runSetup(ctx context.Context) error {
	fmt.Println(panel.Render(headline.Render("Debate Auth Setup") + "\n\n" +
		"This will open browser windows for you to log in to each model's\n" +
		"site. Your login sessions are saved for future runs."))

	// Manual login needs a visible window.
	cfg.Browser.Headless = false

	orc, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := orc.Start(ctx); err != nil {
		return err
	}
	defer orc.Stop(context.WithoutCancel(ctx))

	status := orc.CheckAuth(ctx)
	stdin := bufio.NewReader(os.Stdin)

	for _, target := range orc.Targets() {
		if status[target.ID] {
			fmt.Printf("  %s %s: already authenticated\n", okMark, target.Name)
			continue
		}
		c, ok := orc.Client(target.ID)
		if !ok {
			continue
		}

		fmt.Printf("\n[%s] Please log in manually in the browser window.\n", strings.ToUpper(target.Name))
		err := c.SetupAuth(ctx, func() error {
			fmt.Print("Press Enter here when done... ")
			_, rerr := stdin.ReadString('\n')
			return rerr
		})
		if err != nil {
			fmt.Printf("  %s %s: setup failed: %v\n", failMark, target.Name, err)
			continue
		}
		fmt.Printf("  %s %s: session saved\n", okMark, target.Name)
	}

	fmt.Println("\n" + headline.Render("Setup complete!") + " You can now run debates.")
	return nil
}

// runCheck prints the authentication status of every target.
func runCheck(ctx context.Context) error {
	fmt.Println(dimmed.Render("Checking authentication status..."))

	orc, err := newOrchestrator()
	if err != nil {
		return err
	}
	if err := orc.Start(ctx); err != nil {
		return err
	}
	defer orc.Stop(context.WithoutCancel(ctx))

	status := orc.CheckAuth(ctx)
	allOK := true
	for _, target := range orc.Targets() {
		if status[target.ID] {
			fmt.Printf("  %s %s: authenticated\n", okMark, target.Name)
		} else {
			fmt.Printf("  %s %s: not authenticated\n", failMark, target.Name)
			allOK = false
		}
	}
	if !allOK {
		fmt.Println("\n" + dimmed.Render("Run 'debate --setup' to authenticate."))
	}
	return nil
}
