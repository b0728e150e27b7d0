// Package triage builds and runs the second-round synthesis: a composite
// prompt embedding every target's response is submitted through one
// already-started client, and that client's model arbitrates.
package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"debate/internal/client"
	"debate/internal/selectors"
)

// Mode selects the analysis the composite prompt asks for. Unified does
// synthesis and arbitration in a single pass, which is cheaper in tokens;
// the split modes remain for callers that want one or the other.
type Mode string

const (
	ModeUnified     Mode = "unified"
	ModeSynthesis   Mode = "synthesis"
	ModeArbitration Mode = "arbitration"
)

// ParseMode maps a user-supplied string to a Mode, defaulting to unified.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(s)) {
	case ModeSynthesis:
		return ModeSynthesis
	case ModeArbitration:
		return ModeArbitration
	default:
		return ModeUnified
	}
}

const unifiedInstructions = `When analyzing the AI responses below, structure your analysis in exactly this format:

## Consensus Points
List facts and conclusions where all models agree. These represent high-confidence information.

## Key Disagreements
Identify where the models conflict or provide different answers. For each disagreement:
- State the conflicting positions
- Evaluate the reasoning quality
- Indicate which position seems most credible (or mark as "needs verification")

## Synthesized Answer
Merge the best insights from all responses into a coherent, comprehensive answer.
- Integrate complementary perspectives
- Attribute unique insights when valuable (e.g., "As noted by one model...")
- Remove redundancy while preserving nuance

Be concise but thorough. The goal is to give the user maximum value from consulting multiple AI models.`

const synthesisInstructions = `Your task:
1. Identify the best ideas from each response
2. Merge them into a coherent, unified answer
3. Remove redundancy while preserving unique insights
4. When a particular model had a notably good point, attribute it

Be concise but comprehensive. The goal is to give the user the best possible answer by combining the strengths of all models.`

const arbitrationInstructions = `Your task:
1. AGREEMENTS: List facts/claims where all models agree (high confidence)
2. DISAGREEMENTS: List points where they conflict or contradict each other
3. VERDICT: For each disagreement, evaluate the reasoning and evidence, then:
   - Declare which model is correct, OR
   - Mark as "needs verification" if you can't determine the truth

Format your response clearly with sections for Agreements, Disagreements, and Verdicts.`

// BuildPrompt deterministically renders the composite prompt for the given
// original question and per-target responses. Targets with no entry get an
// explicit "[No response from <Name>]" placeholder; a missing response is
// distinct from an error placeholder stored by the orchestrator.
func BuildPrompt(originalPrompt string, responses map[string]string, targets []selectors.TargetDescriptor, mode Mode) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing responses from %d AI models: %s.\n\n", len(targets), strings.Join(names, ", "))

	switch mode {
	case ModeSynthesis:
		b.WriteString(synthesisInstructions)
	case ModeArbitration:
		b.WriteString(arbitrationInstructions)
	default:
		b.WriteString(unifiedInstructions)
	}

	b.WriteString("\n\n---\n\nORIGINAL QUESTION:\n")
	b.WriteString(originalPrompt)

	for _, t := range targets {
		response, ok := responses[t.ID]
		if !ok || response == "" {
			response = fmt.Sprintf("[No response from %s]", t.Name)
		}
		fmt.Fprintf(&b, "\n\n---\n\n%s'S RESPONSE:\n%s", strings.ToUpper(t.Name), response)
	}

	b.WriteString("\n\n---\n\nNow provide your analysis:")
	return b.String()
}

// Run builds the composite prompt and submits it through the given client,
// reusing its existing authenticated session. This is a second, sequential
// application of the ordinary prompt pipeline, not a new mechanism.
func Run(
	ctx context.Context,
	c client.Client,
	originalPrompt string,
	responses map[string]string,
	targets []selectors.TargetDescriptor,
	mode Mode,
	onChunk func(string),
	timeout time.Duration,
) (string, error) {
	prompt := BuildPrompt(originalPrompt, responses, targets, mode)
	return c.SendPrompt(ctx, prompt, onChunk, timeout)
}
