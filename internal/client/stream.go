package client

import (
	"context"
	"fmt"
	"time"
)

// streamPhase makes the polling loop's state explicit so the stability and
// timeout thresholds are testable on their own.
type streamPhase int

const (
	// phaseAwaitingFirst: no response text observed yet.
	phaseAwaitingFirst streamPhase = iota
	// phaseStreaming: text observed and still growing.
	phaseStreaming
	// phaseStabilizing: text observed but unchanged for at least one tick.
	phaseStabilizing
	// phaseComplete: a completion signal fired or stability held long
	// enough.
	phaseComplete
)

// streamState tracks one in-flight prompt's response as the DOM is polled.
// It lives only for the duration of one SendPrompt call.
type streamState struct {
	phase       streamPhase
	lastText    string // current truth, shrink or grow
	longestText string // best value to return on timeout
	stableTicks int
	threshold   int
	startTime   time.Time
}

func newStreamState(stableThreshold int) *streamState {
	return &streamState{
		phase:     phaseAwaitingFirst,
		threshold: stableThreshold,
		startTime: time.Now(),
	}
}

// observe folds one polled text value into the state and returns the chunk
// delta to emit, if any. Deltas are emitted only for strictly-growing text;
// a shrink (a UI re-render replacing the message) becomes the new truth
// without emitting anything, and the longest text seen is kept for the
// timeout return path.
func (s *streamState) observe(text string) (delta string) {
	if text == "" {
		return ""
	}

	if text == s.lastText {
		s.stableTicks++
		if s.phase == phaseStreaming || s.phase == phaseAwaitingFirst {
			s.phase = phaseStabilizing
		}
		return ""
	}

	if len(text) > len(s.lastText) {
		delta = text[len(s.lastText):]
	}
	s.lastText = text
	if len(text) > len(s.longestText) {
		s.longestText = text
	}
	s.stableTicks = 0
	s.phase = phaseStreaming
	return delta
}

// stableLongEnough reports whether the stability heuristic considers the
// response finished: text has been seen and has not changed for more than
// the configured number of ticks.
func (s *streamState) stableLongEnough() bool {
	return s.lastText != "" && s.stableTicks > s.threshold
}

// pollText queries the response locators in priority order and returns the
// last matching element's text for the first locator yielding non-empty
// text. Multiple fallback locators may all match stale nodes; ordering plus
// the last-element heuristic selects the live, most recent message without
// a stable DOM id.
func (c *TargetClient) pollText(ctx context.Context) string {
	for _, loc := range c.target.Responses {
		els, err := c.pc.QueryAll(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		text, err := els[len(els)-1].Text()
		if err != nil {
			continue
		}
		if text != "" {
			return text
		}
	}
	return ""
}

// responseComplete evaluates the completion signals in priority order:
// a dedicated completion indicator, then the stop control. A visible stop
// control means generation is still in progress and its invisibility means
// done; a stop control missing from the DOM entirely is inconclusive and
// leaves the decision to the stability heuristic.
func (c *TargetClient) responseComplete(ctx context.Context) bool {
	if c.target.Complete != nil {
		if _, ok, err := c.pc.Query(ctx, *c.target.Complete); err == nil && ok {
			return true
		}
	}

	if c.target.Stop != nil {
		el, ok, err := c.pc.Query(ctx, *c.target.Stop)
		if err == nil && ok {
			visible, verr := el.Visible()
			if verr == nil && !visible {
				return true
			}
		}
	}

	return false
}

// streamResponse polls the DOM until the response completes, emitting growth
// deltas to onChunk. On timeout it returns whatever text accumulated;
// ErrResponseTimeout only when nothing was ever observed.
func (c *TargetClient) streamResponse(ctx context.Context, onChunk func(string), timeout time.Duration) (string, error) {
	st := newStreamState(c.tuning.StableTicks)
	deadline := st.startTime.Add(timeout)

	// Give the first token a moment to render before polling.
	if err := sleepCtx(ctx, c.tuning.InitialStreamDelay); err != nil {
		return "", err
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			if st.longestText != "" {
				// Partial result beats total failure.
				return st.longestText, nil
			}
			return "", fmt.Errorf("%w after %v", ErrResponseTimeout, timeout)
		}

		if text := c.pollText(ctx); text != "" {
			if delta := st.observe(text); delta != "" && onChunk != nil {
				onChunk(delta)
			}

			if c.responseComplete(ctx) {
				st.phase = phaseComplete
				return st.lastText, nil
			}
			if st.stableLongEnough() {
				st.phase = phaseComplete
				return st.lastText, nil
			}
		}

		if err := sleepCtx(ctx, c.tuning.PollInterval); err != nil {
			return "", err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
