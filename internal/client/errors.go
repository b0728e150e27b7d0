package client

import "errors"

// Error taxonomy for the single-target client. ErrElementNotFound lives in
// the browser package next to the locator that produces it.
var (
	// ErrNotStarted means an operation was invoked outside the Ready
	// state. Programmer error; never retried.
	ErrNotStarted = errors.New("client not started")

	// ErrNavigation wraps a failed or timed-out page navigation. Retried
	// at the SendPrompt level.
	ErrNavigation = errors.New("navigation failed")

	// ErrResponseTimeout means the streaming loop exhausted its budget
	// without observing any text. Terminal for the target; not retried.
	ErrResponseTimeout = errors.New("response timeout")

	// ErrAuthenticationRequired means the target needs a manual login
	// before prompts can be submitted.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrMaxRetriesExceeded wraps the last underlying cause after the
	// prompt retry budget is spent.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)
