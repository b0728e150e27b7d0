// Package browser provides the page-controller capability the debate tool
// drives chat UIs through: navigation, DOM query, input, and cookie access
// over a real Chrome instance. The concrete implementation rides on rod/CDP;
// everything above this package depends only on the PageController and
// Element interfaces so the backend is swappable (and mockable in tests).
package browser

import (
	"context"
	"time"

	"debate/internal/selectors"
)

// Element is a handle to a located DOM node.
type Element interface {
	// Click dispatches a left click on the element.
	Click() error
	// SetText replaces the element's content in a single DOM mutation and
	// dispatches a synthetic input event. This is the fast injection path;
	// it handles arbitrarily long text in one step.
	SetText(text string) error
	// Input fills the element the way the automation backend fills form
	// controls. Fallback when SetText fails.
	Input(text string) error
	// Text returns the element's rendered text.
	Text() (string, error)
	// Visible reports whether the element is visible.
	Visible() (bool, error)
}

// PageController is the one surface that touches a live page. All waits are
// individually timeout-bounded so a wedged page cannot stall its caller
// beyond the caller's own budget.
type PageController interface {
	// Navigate loads a URL, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitLoad waits for the page load event, bounded by timeout.
	WaitLoad(ctx context.Context, timeout time.Duration) error
	// Reload reloads the current page.
	Reload(ctx context.Context) error

	// Query returns an element matching the locator if one exists right
	// now, without waiting. ok is false when nothing matches.
	Query(ctx context.Context, loc selectors.Locator) (el Element, ok bool, err error)
	// QueryAll returns all elements currently matching the locator,
	// without waiting. An empty slice means no match.
	QueryAll(ctx context.Context, loc selectors.Locator) ([]Element, error)
	// WaitVisible waits up to timeout for a visible element matching the
	// locator.
	WaitVisible(ctx context.Context, loc selectors.Locator, timeout time.Duration) (Element, error)

	// InsertText emulates keystrokes into the focused element, one rune at
	// a time with perCharDelay between them. Last-resort injection path.
	InsertText(ctx context.Context, text string, perCharDelay time.Duration) error

	// Cookies returns the cookies visible to the current page.
	Cookies(ctx context.Context) ([]Cookie, error)
	// SetCookies installs cookies into the browser context.
	SetCookies(ctx context.Context, cookies []Cookie) error
}

// Cookie is the backend-neutral cookie representation persisted to disk
// between runs.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}
