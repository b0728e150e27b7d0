// Package selectors holds the per-target DOM locator registry for the chat
// web interfaces the debate tool drives. Selectors are centralized here so
// they can be updated in one place when a UI changes. Each role carries a
// primary locator plus ordered fallbacks for when the markup drifts.
package selectors

import (
	"fmt"
	"sort"
)

// Kind tags how a Locator should be interpreted by the automation backend.
type Kind int

const (
	// KindCSS is a CSS selector string.
	KindCSS Kind = iota
	// KindRole matches an element by ARIA role attribute.
	KindRole
	// KindText matches an element containing the given visible text.
	KindText
)

// String returns the kind name for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindCSS:
		return "css"
	case KindRole:
		return "role"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Locator identifies a DOM element. The Kind determines how Value is
// interpreted, so the registry is not tied to any one automation backend.
type Locator struct {
	Kind  Kind
	Value string
}

// CSS builds a CSS locator.
func CSS(value string) Locator { return Locator{Kind: KindCSS, Value: value} }

// Role builds an ARIA role locator.
func Role(value string) Locator { return Locator{Kind: KindRole, Value: value} }

// Text builds a visible-text locator.
func Text(value string) Locator { return Locator{Kind: KindText, Value: value} }

// String renders the locator for error messages.
func (l Locator) String() string {
	return fmt.Sprintf("%s(%s)", l.Kind, l.Value)
}

// TargetDescriptor describes one chat web interface: where it lives and how
// to find the pieces of its UI. Locator lists are ordered by decreasing
// reliability; the primary selector comes first.
type TargetDescriptor struct {
	// ID is the stable identifier used as a map key everywhere.
	ID string
	// Name is the human-readable display name.
	Name string
	// URL is the landing page, used for auth checks and manual login.
	URL string
	// NewChatURL starts a fresh conversation.
	NewChatURL string

	// Inputs locate the prompt input field.
	Inputs []Locator
	// Submits locate the send control.
	Submits []Locator
	// Responses locate the streamed response container. Multiple nodes may
	// match; the last matching node is the most recent message.
	Responses []Locator

	// Stop locates the "stop generating" control, if the UI has one. A
	// visible stop control means generation is still in progress.
	Stop *Locator
	// Complete locates a dedicated completion indicator, if the UI has one.
	Complete *Locator
}

// Validate checks the descriptor invariants: an identifier, the URLs, and
// non-empty locator lists for all three required roles.
func (t TargetDescriptor) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("target descriptor missing ID")
	}
	if t.URL == "" || t.NewChatURL == "" {
		return fmt.Errorf("target %s: missing URL or NewChatURL", t.ID)
	}
	if len(t.Inputs) == 0 {
		return fmt.Errorf("target %s: no input locators", t.ID)
	}
	if len(t.Submits) == 0 {
		return fmt.Errorf("target %s: no submit locators", t.ID)
	}
	if len(t.Responses) == 0 {
		return fmt.Errorf("target %s: no response locators", t.ID)
	}
	return nil
}

// Get returns the descriptor for a target ID.
func Get(id string) (TargetDescriptor, error) {
	t, ok := registry[id]
	if !ok {
		return TargetDescriptor{}, fmt.Errorf("unknown target: %s (available: %v)", id, IDs())
	}
	return t, nil
}

// IDs returns all registered target identifiers in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns descriptors for every registered target.
func All() []TargetDescriptor {
	out := make([]TargetDescriptor, 0, len(registry))
	for _, id := range IDs() {
		out = append(out, registry[id])
	}
	return out
}
