// Package client drives one chat web interface end to end: session
// lifecycle, auth checks, and the locate → fill → submit → stream-poll
// pipeline that turns a prompt into a streamed response. One client owns one
// target; the orchestrator fans out across clients.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"debate/internal/browser"
	"debate/internal/selectors"
)

// Client is what the orchestrator depends on. TargetClient is the real
// implementation; tests substitute fakes.
type Client interface {
	Target() selectors.TargetDescriptor
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	SetupAuth(ctx context.Context, confirm func() error) error
	SendPrompt(ctx context.Context, prompt string, onChunk func(string), timeout time.Duration) (string, error)
}

// state is the client lifecycle.
type state int

const (
	stateStopped state = iota
	stateStarting
	stateReady
	stateSubmitting
	stateStreaming
	stateStopping
)

func (s state) String() string {
	switch s {
	case stateStopped:
		return "stopped"
	case stateStarting:
		return "starting"
	case stateReady:
		return "ready"
	case stateSubmitting:
		return "submitting"
	case stateStreaming:
		return "streaming"
	case stateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Tuning holds the timing knobs of the prompt pipeline. Zero values are
// replaced by DefaultTuning's.
type Tuning struct {
	// NavigationTimeout bounds each page navigation.
	NavigationTimeout time.Duration
	// LoadTimeout bounds the wait for the load event after navigating.
	LoadTimeout time.Duration
	// SettleDelay is the pause after navigation before touching the DOM.
	SettleDelay time.Duration
	// InputLocateTimeout is the shared budget for locating the input.
	InputLocateTimeout time.Duration
	// SubmitLocateTimeout is the shared budget for locating the submit
	// control.
	SubmitLocateTimeout time.Duration
	// AuthCheckTimeout bounds the DOM-settle wait in IsAuthenticated.
	AuthCheckTimeout time.Duration
	// InitialStreamDelay is the pause before the first response poll.
	InitialStreamDelay time.Duration
	// PollInterval is the streaming loop tick.
	PollInterval time.Duration
	// StableTicks is how many unchanged polls count as completion when no
	// explicit signal is available. A tunable, not a load-bearing
	// constant.
	StableTicks int
	// PerCharDelay paces the keystroke-simulation injection fallback.
	PerCharDelay time.Duration
	// Retry configures the SendPrompt retry loop.
	Retry RetryConfig
}

// DefaultTuning returns the production defaults.
func DefaultTuning() Tuning {
	return Tuning{
		NavigationTimeout:   30 * time.Second,
		LoadTimeout:         15 * time.Second,
		SettleDelay:         time.Second,
		InputLocateTimeout:  15 * time.Second,
		SubmitLocateTimeout: 5 * time.Second,
		AuthCheckTimeout:    10 * time.Second,
		InitialStreamDelay:  time.Second,
		PollInterval:        100 * time.Millisecond,
		StableTicks:         30, // 3s of no growth at the default interval
		PerCharDelay:        10 * time.Millisecond,
		Retry:               DefaultRetryConfig(),
	}
}

// withDefaults fills zero fields from DefaultTuning.
func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.NavigationTimeout == 0 {
		t.NavigationTimeout = d.NavigationTimeout
	}
	if t.LoadTimeout == 0 {
		t.LoadTimeout = d.LoadTimeout
	}
	if t.SettleDelay == 0 {
		t.SettleDelay = d.SettleDelay
	}
	if t.InputLocateTimeout == 0 {
		t.InputLocateTimeout = d.InputLocateTimeout
	}
	if t.SubmitLocateTimeout == 0 {
		t.SubmitLocateTimeout = d.SubmitLocateTimeout
	}
	if t.AuthCheckTimeout == 0 {
		t.AuthCheckTimeout = d.AuthCheckTimeout
	}
	if t.InitialStreamDelay == 0 {
		t.InitialStreamDelay = d.InitialStreamDelay
	}
	if t.PollInterval == 0 {
		t.PollInterval = d.PollInterval
	}
	if t.StableTicks == 0 {
		t.StableTicks = d.StableTicks
	}
	if t.PerCharDelay == 0 {
		t.PerCharDelay = d.PerCharDelay
	}
	if t.Retry.MaxAttempts == 0 {
		t.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if t.Retry.BaseDelay == 0 {
		t.Retry.BaseDelay = d.Retry.BaseDelay
	}
	if t.Retry.MaxDelay == 0 {
		t.Retry.MaxDelay = d.Retry.MaxDelay
	}
	return t
}

// TargetClient is the browser-backed client for one target.
//
// States: Stopped → Starting → Ready → (Submitting → Streaming → Ready) →
// Stopping → Stopped. Ready is the only state in which SendPrompt may be
// invoked.
type TargetClient struct {
	target  selectors.TargetDescriptor
	backend browser.Backend
	tuning  Tuning
	logger  *zap.Logger

	mu      sync.Mutex
	state   state
	session *browser.Session
	pc      browser.PageController
}

var _ Client = (*TargetClient)(nil)

// New constructs a client for the target. The session is not acquired until
// Start.
func New(target selectors.TargetDescriptor, backend browser.Backend, tuning Tuning, logger *zap.Logger) *TargetClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TargetClient{
		target:  target,
		backend: backend,
		tuning:  tuning.withDefaults(),
		logger:  logger.With(zap.String("target", target.ID)),
	}
}

// Target returns the client's target descriptor.
func (c *TargetClient) Target() selectors.TargetDescriptor { return c.target }

// Start acquires the target's session. Calling Start on a client that is
// not stopped is a caller error.
func (c *TargetClient) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != stateStopped {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("start %s: client is %s, not stopped", c.target.ID, st)
	}
	c.state = stateStarting
	c.mu.Unlock()

	session, err := c.backend.NewSession(ctx, c.target)
	if err != nil {
		c.setState(stateStopped)
		return fmt.Errorf("start %s: %w", c.target.ID, err)
	}

	c.mu.Lock()
	c.session = session
	c.pc = session.Controller()
	c.state = stateReady
	c.mu.Unlock()

	c.logger.Info("client started", zap.String("session", session.ID))
	return nil
}

// Stop saves cookies and releases the session.
func (c *TargetClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateStopped {
		c.mu.Unlock()
		return nil
	}
	session := c.session
	c.state = stateStopping
	c.mu.Unlock()

	var err error
	if session != nil {
		err = session.Close(ctx)
	}

	c.mu.Lock()
	c.session = nil
	c.pc = nil
	c.state = stateStopped
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("stop %s: %w", c.target.ID, err)
	}
	c.logger.Info("client stopped")
	return nil
}

// IsAuthenticated heuristically checks for a live login: the landing page of
// each target shows the prompt input only to signed-in users, so presence of
// any input locator is treated as proof of login. Never returns an error;
// any navigation failure reads as "not authenticated".
func (c *TargetClient) IsAuthenticated(ctx context.Context) bool {
	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()
	if pc == nil {
		return false
	}

	if err := pc.Navigate(ctx, c.target.URL, c.tuning.NavigationTimeout); err != nil {
		c.logger.Debug("auth check navigation failed", zap.Error(err))
		return false
	}
	if err := sleepCtx(ctx, 2*c.tuning.SettleDelay); err != nil {
		return false
	}
	if err := pc.WaitLoad(ctx, c.tuning.AuthCheckTimeout); err != nil {
		c.logger.Debug("auth check load wait failed", zap.Error(err))
		return false
	}

	for _, loc := range c.target.Inputs {
		if _, ok, err := pc.Query(ctx, loc); err == nil && ok {
			return true
		}
	}
	return false
}

// SetupAuth opens the landing page and blocks on confirm, the operator's
// "login complete" signal. This is the one intentionally blocking,
// human-in-the-loop operation; it has no timeout of its own. Verification
// failure re-prompts once, then is reported as a warning rather than
// failing the setup flow.
func (c *TargetClient) SetupAuth(ctx context.Context, confirm func() error) error {
	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()
	if pc == nil {
		return ErrNotStarted
	}

	if err := pc.Navigate(ctx, c.target.URL, c.tuning.NavigationTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := confirm(); err != nil {
			return err
		}
		if c.IsAuthenticated(ctx) {
			c.logger.Info("login verified")
			return c.saveCookies(ctx)
		}
		if attempt == 0 {
			c.logger.Warn("could not verify login, asking again")
		}
	}

	c.logger.Warn("login could not be verified; the session may still be saved")
	return c.saveCookies(ctx)
}

func (c *TargetClient) saveCookies(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	if err := session.SaveCookies(ctx); err != nil {
		c.logger.Warn("cookie save failed", zap.Error(err))
	}
	return nil
}

// SendPrompt submits a prompt and streams the response, returning the final
// text. onChunk, when non-nil, receives each growth delta as it appears.
// Locator exhaustion and navigation timeouts are retried with a page reload
// and exponential backoff between attempts; any other failure propagates
// immediately.
func (c *TargetClient) SendPrompt(ctx context.Context, prompt string, onChunk func(string), timeout time.Duration) (string, error) {
	c.mu.Lock()
	if c.state != stateReady {
		st := c.state
		c.mu.Unlock()
		return "", fmt.Errorf("%w: send prompt on %s client", ErrNotStarted, st)
	}
	c.state = stateSubmitting
	pc := c.pc
	c.mu.Unlock()

	defer c.setState(stateReady)

	retryable := func(err error) bool {
		return errors.Is(err, browser.ErrElementNotFound) || errors.Is(err, ErrNavigation)
	}
	reset := func(ctx context.Context) error {
		return pc.Reload(ctx)
	}

	return withRetry(ctx, c.tuning.Retry, c.logger, "send prompt", retryable, reset,
		func(ctx context.Context) (string, error) {
			return c.sendPromptOnce(ctx, pc, prompt, onChunk, timeout)
		})
}

// sendPromptOnce runs steps 2-5 of the pipeline as one retryable unit.
func (c *TargetClient) sendPromptOnce(ctx context.Context, pc browser.PageController, prompt string, onChunk func(string), timeout time.Duration) (string, error) {
	if err := pc.Navigate(ctx, c.target.NewChatURL, c.tuning.NavigationTimeout); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNavigation, c.target.NewChatURL, err)
	}
	if err := sleepCtx(ctx, c.tuning.SettleDelay); err != nil {
		return "", err
	}
	if err := pc.WaitLoad(ctx, c.tuning.LoadTimeout); err != nil {
		return "", fmt.Errorf("%w: load: %v", ErrNavigation, err)
	}
	if err := sleepCtx(ctx, c.tuning.SettleDelay/2); err != nil {
		return "", err
	}

	input, err := browser.FindWithFallbacks(ctx, pc, c.target.Inputs, c.tuning.InputLocateTimeout, browser.ModeVisible)
	if err != nil {
		return "", fmt.Errorf("input field: %w", err)
	}

	if err := input.Click(); err != nil {
		return "", fmt.Errorf("focus input: %w", err)
	}
	if err := sleepCtx(ctx, 200*time.Millisecond); err != nil {
		return "", err
	}
	if err := c.inject(ctx, pc, input, prompt); err != nil {
		return "", fmt.Errorf("fill input: %w", err)
	}
	if err := sleepCtx(ctx, 300*time.Millisecond); err != nil {
		return "", err
	}

	submit, err := browser.FindWithFallbacks(ctx, pc, c.target.Submits, c.tuning.SubmitLocateTimeout, browser.ModeVisible)
	if err != nil {
		return "", fmt.Errorf("submit control: %w", err)
	}
	if err := submit.Click(); err != nil {
		return "", fmt.Errorf("click submit: %w", err)
	}

	c.setState(stateStreaming)
	defer c.setState(stateSubmitting)
	return c.streamResponse(ctx, onChunk, timeout)
}

// inject writes the prompt into the input, fastest path first: a single DOM
// mutation with a synthetic input event, then the backend's form fill, then
// character-by-character keystrokes. Each fallback runs only when the
// previous one failed.
func (c *TargetClient) inject(ctx context.Context, pc browser.PageController, input browser.Element, prompt string) error {
	if err := input.SetText(prompt); err == nil {
		return nil
	} else {
		c.logger.Debug("fast-path injection failed, falling back to fill", zap.Error(err))
	}

	if err := input.Input(prompt); err == nil {
		return nil
	} else {
		c.logger.Debug("fill injection failed, falling back to typing", zap.Error(err))
	}

	if err := input.Click(); err != nil {
		return err
	}
	return pc.InsertText(ctx, prompt, c.tuning.PerCharDelay)
}

func (c *TargetClient) setState(s state) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
