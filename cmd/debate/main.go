// Command debate queries multiple AI chat sites in parallel through a real
// browser and synthesizes their answers.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"debate/internal/browser"
	"debate/internal/client"
	"debate/internal/config"
	"debate/internal/logging"
	"debate/internal/orchestrator"
	"debate/internal/selectors"
	"debate/internal/server"
	"debate/internal/sysopen"
	"debate/internal/triage"
)

var (
	// Global flags
	verbose    bool
	logDir     string
	configPath string
	setup      bool
	check      bool
	port       int
	noBrowser  bool
	noUI       bool
	copyResult bool
	modeFlag   string
	headless   bool
	backend    string
	controlURL string

	logger      *zap.Logger
	closeLogger func()
	cfg         config.Config
)

var rootCmd = &cobra.Command{
	Use:   "debate [prompt]",
	Short: "Multi-model debate synthesizer",
	Long: `Query Claude, ChatGPT, and Gemini in parallel through a real browser
and synthesize their responses into one analysis.

Examples:
  debate "Is Rust better than Go for CLI tools?"
  debate --mode arbitration "What year was Python released?"
  debate --setup   # One-time auth setup
  debate --check   # Authentication status`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, closeLogger, err = logging.New(logging.Options{Verbose: verbose, Dir: logDir})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if port != 0 {
			cfg.Server.Port = port
		}
		if headless {
			cfg.Browser.Headless = true
		}
		if backend != "" {
			cfg.Browser.Backend = backend
		}
		if controlURL != "" {
			cfg.Browser.ControlURL = controlURL
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogger != nil {
			closeLogger()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if setup {
			return runSetup(cmd.Context())
		}
		if check {
			return runCheck(cmd.Context())
		}

		prompt := ""
		if len(args) > 0 {
			prompt = args[0]
		}
		if noUI {
			if prompt == "" {
				return fmt.Errorf("--no-ui needs a prompt argument")
			}
			return runTerminal(cmd.Context(), prompt, triage.ParseMode(modeFlag))
		}
		return runServe(cmd.Context(), prompt)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "also write a debug log file to this directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file path")
	rootCmd.Flags().BoolVar(&setup, "setup", false, "run interactive auth setup for all targets")
	rootCmd.Flags().BoolVar(&check, "check", false, "check authentication status for all targets")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "server port (overrides config)")
	rootCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "don't open the UI in a browser")
	rootCmd.Flags().BoolVar(&noUI, "no-ui", false, "run one debate in the terminal, no web UI")
	rootCmd.Flags().BoolVar(&copyResult, "copy", false, "copy the synthesis to the clipboard (--no-ui only)")
	rootCmd.Flags().StringVar(&modeFlag, "mode", "unified", "analysis mode: unified, synthesis, or arbitration")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run Chrome headless")
	rootCmd.Flags().StringVar(&backend, "backend", "", "session backend: launch or attach")
	rootCmd.Flags().StringVar(&controlURL, "control-url", "", "DevTools URL for the attach backend")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".debate.yaml"
	}
	return home + "/.debate/config.yaml"
}

// targetIDs resolves the configured target set, defaulting to all.
func targetIDs() []string {
	if len(cfg.Targets) > 0 {
		return cfg.Targets
	}
	return selectors.IDs()
}

// newBackend builds the session backend named by config.
func newBackend() (browser.Backend, error) {
	switch cfg.Browser.Backend {
	case "", "launch":
		return &browser.LaunchBackend{
			DataDir:   cfg.DataDir(),
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
			Logger:    logger,
		}, nil
	case "attach":
		if cfg.Browser.ControlURL == "" {
			return nil, fmt.Errorf("attach backend needs a control URL (--control-url)")
		}
		return &browser.AttachBackend{
			ControlURL: cfg.Browser.ControlURL,
			DataDir:    cfg.DataDir(),
			Logger:     logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Browser.Backend)
	}
}

// newOrchestrator wires clients over a fresh backend.
func newOrchestrator() (*orchestrator.Orchestrator, error) {
	be, err := newBackend()
	if err != nil {
		return nil, err
	}
	tuning := client.Tuning{
		NavigationTimeout: cfg.NavigationTimeout(),
		PollInterval:      cfg.PollInterval(),
		StableTicks:       cfg.Prompt.StableTicks,
		Retry: client.RetryConfig{
			MaxAttempts: cfg.Prompt.MaxRetries,
			BaseDelay:   cfg.RetryDelayBase(),
		},
	}
	return orchestrator.NewForTargets(targetIDs(), func(t selectors.TargetDescriptor) client.Client {
		return client.New(t, be, tuning, logger)
	}, logger)
}

// runServe starts the local server and opens the UI, optionally preloading
// a prompt so the round starts immediately.
func runServe(ctx context.Context, prompt string) error {
	srv := server.New(newOrchestrator, cfg.TriageTarget, cfg.ResponseTimeout(), logger)

	query := url.Values{}
	if prompt != "" {
		query.Set("prompt", prompt)
	}
	if modeFlag != "" && modeFlag != "unified" {
		query.Set("mode", modeFlag)
	}
	uiURL := "http://" + cfg.Addr() + "/"
	if len(query) > 0 {
		uiURL += "?" + query.Encode()
	}

	if !noBrowser {
		go func() {
			time.Sleep(time.Second) // let the listener come up
			if err := sysopen.OpenURL(uiURL); err != nil {
				logger.Warn("could not open browser", zap.Error(err))
			}
		}()
	}

	fmt.Printf("Serving on %s\n", uiURL)
	return srv.ListenAndServe(ctx, cfg.Addr())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
