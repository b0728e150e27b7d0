package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debate/internal/selectors"
)

// ErrElementNotFound indicates every candidate locator was exhausted without
// a usable match.
var ErrElementNotFound = errors.New("element not found")

// FindMode selects how strictly FindWithFallbacks filters candidates.
type FindMode int

const (
	// ModeVisible requires a visible match first, falling back to an
	// existence-only pass if no candidate becomes visible in budget.
	// Visible-first avoids interacting with hidden duplicate DOM nodes,
	// which these UIs are full of.
	ModeVisible FindMode = iota
	// ModeAny accepts any existing match regardless of visibility.
	ModeAny
)

// FindWithFallbacks tries candidate locators in priority order against a
// shared timeout budget. The budget is divided evenly across candidates for
// the visible pass; the existence pass that follows is unbounded by
// visibility and recovers when visibility detection itself is unreliable
// (custom web components with nonstandard rendering). No candidate is probed
// twice within a pass.
func FindWithFallbacks(ctx context.Context, pc PageController, candidates []selectors.Locator, total time.Duration, mode FindMode) (Element, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidate locators", ErrElementNotFound)
	}

	if mode == ModeVisible {
		slice := total / time.Duration(len(candidates))
		for _, loc := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			el, err := pc.WaitVisible(ctx, loc, slice)
			if err == nil {
				return el, nil
			}
		}
	}

	// Existence-only pass: take the first candidate present in the DOM,
	// visible or not.
	for _, loc := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		el, ok, err := pc.Query(ctx, loc)
		if err != nil {
			continue
		}
		if ok {
			return el, nil
		}
	}

	return nil, fmt.Errorf("%w: tried %v", ErrElementNotFound, candidates)
}
