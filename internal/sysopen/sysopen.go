// Package sysopen wraps the small native integrations the CLI uses:
// clipboard copy and opening URLs in the user's default browser.
package sysopen

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// CopyToClipboard puts text on the system clipboard. Returns false instead
// of an error; clipboard failure is never worth failing an operation over.
func CopyToClipboard(text string) bool {
	return clipboard.WriteAll(text) == nil
}

// OpenURL opens a URL in the default browser without blocking.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	// Detach; the opener's exit status is not interesting.
	go func() { _ = cmd.Wait() }()
	return nil
}
