package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"debate/internal/selectors"
)

// stealthJS hides the most common automation tells. Good enough for session
// reuse on the target sites; this is not a general anti-detection layer.
const stealthJS = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = window.chrome || { runtime: {} };
`

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Session owns the live page for one target plus its persistent identity:
// an isolated profile directory and a cookie store that survive restarts.
// A Session is exclusively owned by its client.
type Session struct {
	ID       string
	TargetID string

	page        *rod.Page
	pc          PageController
	browser     *rod.Browser
	launch      *launcher.Launcher
	ownsBrowser bool
	cookiePath  string
	logger      *zap.Logger

	CreatedAt time.Time
}

// Controller returns the page controller for this session's page.
func (s *Session) Controller() PageController {
	return s.pc
}

// LoadCookies installs persisted cookies, if a store exists for the target.
// Called before the first navigation.
func (s *Session) LoadCookies(ctx context.Context) error {
	if s.cookiePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.cookiePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cookie store: %w", err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("decode cookie store: %w", err)
	}
	if err := s.Controller().SetCookies(ctx, cookies); err != nil {
		return fmt.Errorf("restore cookies: %w", err)
	}
	s.logger.Debug("restored cookies",
		zap.String("target", s.TargetID),
		zap.Int("count", len(cookies)))
	return nil
}

// SaveCookies persists the current cookies for the target. Called before
// teardown so the login survives the process.
func (s *Session) SaveCookies(ctx context.Context) error {
	if s.cookiePath == "" {
		return nil
	}
	cookies, err := s.Controller().Cookies(ctx)
	if err != nil {
		return fmt.Errorf("snapshot cookies: %w", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.cookiePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.cookiePath, data, 0o600)
}

// Close saves cookies and tears the session down. The browser process is
// closed only when this session launched it.
func (s *Session) Close(ctx context.Context) error {
	if err := s.SaveCookies(ctx); err != nil {
		s.logger.Warn("cookie save failed", zap.String("target", s.TargetID), zap.Error(err))
	}
	var err error
	if s.page != nil {
		err = s.page.Close()
	}
	if s.ownsBrowser && s.browser != nil {
		if cerr := s.browser.Close(); err == nil {
			err = cerr
		}
		if s.launch != nil {
			s.launch.Cleanup()
		}
	}
	return err
}

// Backend acquires sessions. Two implementations: LaunchBackend starts one
// Chrome per target with a persistent profile; AttachBackend shares one
// already-running Chrome over its DevTools URL. The choice is made at
// construction time, never at call sites.
type Backend interface {
	NewSession(ctx context.Context, target selectors.TargetDescriptor) (*Session, error)
}

// LaunchBackend launches a dedicated Chrome per target with a persistent
// user-data directory, so each target's login survives across runs and no
// two targets share storage.
type LaunchBackend struct {
	// DataDir is the root directory for per-target profiles and cookie
	// stores.
	DataDir string
	// Headless runs Chrome without a window. Interactive auth setup needs
	// this off.
	Headless bool
	// UserAgent overrides the browser user agent. Empty uses a desktop
	// Chrome string rather than the headless default.
	UserAgent string
	Logger    *zap.Logger
}

// NewSession launches Chrome for the target and returns its session.
func (b *LaunchBackend) NewSession(ctx context.Context, target selectors.TargetDescriptor) (*Session, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	profileDir := filepath.Join(b.DataDir, target.ID, "profile")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	ua := b.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	launch := launcher.New().
		Headless(b.Headless).
		UserDataDir(profileDir).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("disable-features"), "IsolateOrigins,site-per-process").
		Set(flags.Flag("window-size"), "1280,900").
		Set(flags.Flag("user-agent"), ua).
		Delete(flags.Flag("enable-automation"))

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome for %s: %w", target.ID, err)
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("connect to chrome for %s: %w", target.ID, err)
	}

	page, err := firstOrNewPage(br)
	if err != nil {
		_ = br.Close()
		launch.Cleanup()
		return nil, fmt.Errorf("open page for %s: %w", target.ID, err)
	}

	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: stealthJS}).Call(page); err != nil {
		logger.Warn("stealth script install failed", zap.String("target", target.ID), zap.Error(err))
	}

	s := &Session{
		ID:          uuid.NewString(),
		TargetID:    target.ID,
		page:        page,
		pc:          NewRodController(page),
		browser:     br,
		launch:      launch,
		ownsBrowser: true,
		cookiePath:  filepath.Join(b.DataDir, "cookies", target.ID+".json"),
		logger:      logger,
		CreatedAt:   time.Now(),
	}
	if err := s.LoadCookies(ctx); err != nil {
		logger.Warn("cookie restore failed", zap.String("target", target.ID), zap.Error(err))
	}
	return s, nil
}

// AttachBackend attaches to an existing Chrome over its DevTools control
// URL. All targets share the one browser but each session owns its own page
// and never shares input focus with another.
type AttachBackend struct {
	// ControlURL is the DevTools websocket URL of the running Chrome.
	ControlURL string
	// DataDir locates per-target cookie stores. Cookies land in the shared
	// browser context, so attach mode trades isolation for startup speed.
	DataDir string
	Logger  *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func (b *AttachBackend) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}
	br := rod.New().ControlURL(b.ControlURL)
	if err := br.Connect(); err != nil {
		return nil, fmt.Errorf("attach to chrome at %s: %w", b.ControlURL, err)
	}
	b.browser = br
	return br, nil
}

// NewSession opens a fresh page for the target in the shared browser.
func (b *AttachBackend) NewSession(ctx context.Context, target selectors.TargetDescriptor) (*Session, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	br, err := b.connect()
	if err != nil {
		return nil, err
	}

	page, err := br.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page for %s: %w", target.ID, err)
	}

	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: stealthJS}).Call(page); err != nil {
		logger.Warn("stealth script install failed", zap.String("target", target.ID), zap.Error(err))
	}

	s := &Session{
		ID:          uuid.NewString(),
		TargetID:    target.ID,
		page:        page,
		pc:          NewRodController(page),
		browser:     br,
		ownsBrowser: false,
		cookiePath:  filepath.Join(b.DataDir, "cookies", target.ID+".json"),
		logger:      logger,
		CreatedAt:   time.Now(),
	}
	if err := s.LoadCookies(ctx); err != nil {
		logger.Warn("cookie restore failed", zap.String("target", target.ID), zap.Error(err))
	}
	return s, nil
}

// Close shuts down the shared browser connection.
func (b *AttachBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

func firstOrNewPage(br *rod.Browser) (*rod.Page, error) {
	pages, err := br.Pages()
	if err != nil {
		return nil, err
	}
	if len(pages) > 0 {
		return pages[0], nil
	}
	return br.Page(proto.TargetCreateTarget{URL: "about:blank"})
}
