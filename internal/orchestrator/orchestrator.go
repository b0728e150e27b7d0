// Package orchestrator fans one prompt out to every configured target
// concurrently and gathers the results. A single target's failure is
// isolated: it becomes a placeholder string in the result map, never an
// aborted round.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"debate/internal/client"
	"debate/internal/selectors"
)

// ResponseMap maps target ID to final response text, or an error placeholder
// of the form "[Error: <kind>: <truncated message>]". Keys are fixed to the
// configured target set.
type ResponseMap map[string]string

// AuthStatus maps target ID to whether that target has a live login.
type AuthStatus map[string]bool

// UpdateFunc receives streamed chunks tagged with their target.
type UpdateFunc func(targetID, chunk string)

// Orchestrator owns one client per target.
type Orchestrator struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]client.Client
}

// New builds an orchestrator over the given clients. The usual entry point
// is NewForTargets; this constructor exists so tests can hand in fakes.
func New(clients []client.Client, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	byID := make(map[string]client.Client, len(clients))
	for _, c := range clients {
		byID[c.Target().ID] = c
	}
	return &Orchestrator{logger: logger, clients: byID}
}

// NewForTargets constructs browser-backed clients for the target IDs.
func NewForTargets(targetIDs []string, factory func(selectors.TargetDescriptor) client.Client, logger *zap.Logger) (*Orchestrator, error) {
	clients := make([]client.Client, 0, len(targetIDs))
	for _, id := range targetIDs {
		target, err := selectors.Get(id)
		if err != nil {
			return nil, err
		}
		clients = append(clients, factory(target))
	}
	if len(clients) == 0 {
		return nil, errors.New("no targets configured")
	}
	return New(clients, logger), nil
}

// Start starts all clients concurrently. A client that fails to start is
// dropped with a warning; the orchestrator continues with the survivors.
// Only a total loss, every client failing, is an error.
func (o *Orchestrator) Start(ctx context.Context) error {
	clients := o.snapshot()

	var (
		mu     sync.Mutex
		failed []string
	)
	g, ctx := errgroup.WithContext(ctx)
	for id, c := range clients {
		g.Go(func() error {
			if err := c.Start(ctx); err != nil {
				o.logger.Warn("client start failed",
					zap.String("target", id), zap.Error(err))
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	for _, id := range failed {
		delete(o.clients, id)
	}
	remaining := len(o.clients)
	o.mu.Unlock()

	if remaining == 0 {
		return fmt.Errorf("all %d clients failed to start", len(clients))
	}
	return nil
}

// Stop stops all clients concurrently. Individual failures are logged and
// swallowed so one wedged client cannot keep the rest alive.
func (o *Orchestrator) Stop(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for id, c := range o.snapshot() {
		g.Go(func() error {
			if err := c.Stop(ctx); err != nil {
				o.logger.Warn("client stop failed",
					zap.String("target", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// CheckAuth runs the auth heuristic on every client concurrently.
func (o *Orchestrator) CheckAuth(ctx context.Context) AuthStatus {
	var (
		mu     sync.Mutex
		status = make(AuthStatus)
	)
	g, ctx := errgroup.WithContext(ctx)
	for id, c := range o.snapshot() {
		g.Go(func() error {
			ok := c.IsAuthenticated(ctx)
			mu.Lock()
			status[id] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return status
}

// Debate sends the prompt to every client concurrently and waits for all of
// them, success or caught failure, before returning. Each client streams
// through its own closure into the shared onUpdate. A failing client's slot
// holds a placeholder error string; it never aborts or blocks the others,
// which is why this uses a plain WaitGroup rather than a cancelling group.
func (o *Orchestrator) Debate(ctx context.Context, prompt string, onUpdate UpdateFunc, timeout time.Duration) ResponseMap {
	clients := o.snapshot()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		responses = make(ResponseMap, len(clients))
	)

	for id, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var onChunk func(string)
			if onUpdate != nil {
				onChunk = func(chunk string) { onUpdate(id, chunk) }
			}

			text, err := c.SendPrompt(ctx, prompt, onChunk, timeout)
			if err != nil {
				text = errorPlaceholder(err)
				o.logger.Warn("target failed",
					zap.String("target", id), zap.Error(err))
				if onUpdate != nil {
					onUpdate(id, text)
				}
			}

			mu.Lock()
			responses[id] = text
			mu.Unlock()
		}()
	}
	wg.Wait()

	return responses
}

// Client returns the client for a target, for the synthesis round that
// reuses one already-started session.
func (o *Orchestrator) Client(targetID string) (client.Client, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.clients[targetID]
	return c, ok
}

// Targets returns the descriptors of all currently owned clients.
func (o *Orchestrator) Targets() []selectors.TargetDescriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]selectors.TargetDescriptor, 0, len(o.clients))
	for _, c := range o.clients {
		out = append(out, c.Target())
	}
	return out
}

func (o *Orchestrator) snapshot() map[string]client.Client {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]client.Client, len(o.clients))
	for id, c := range o.clients {
		out[id] = c
	}
	return out
}

// errorPlaceholder renders a failure as the in-band placeholder string
// stored in the target's slot.
func errorPlaceholder(err error) string {
	msg := err.Error()
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return fmt.Sprintf("[Error: %s: %s]", errorKind(err), msg)
}

// errorKind names the taxonomy bucket for a failure.
func errorKind(err error) string {
	switch {
	case errors.Is(err, client.ErrResponseTimeout):
		return "ResponseTimeout"
	case errors.Is(err, client.ErrNotStarted):
		return "NotStarted"
	case errors.Is(err, client.ErrAuthenticationRequired):
		return "AuthenticationRequired"
	default:
		return "LLMClientError"
	}
}
