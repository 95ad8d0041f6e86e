// Package generation produces the streamed text of tutorial steps.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/bhandras/stepwise/internal/server/database"
	"github.com/bhandras/stepwise/internal/tutorial"
)

// Request is one step request as seen by a generator.
type Request struct {
	AccountID string
	Params    tutorial.RequestParams
	// Step is Params.Step as a number.
	Step int
	// History holds the earlier turns of the conversation, oldest first.
	History []database.Turn
}

// Delta is one piece of a generated reply. ResponseID is set on at least
// the first delta of a stream.
type Delta struct {
	ResponseID string
	Text       string
}

// Stream yields deltas until io.EOF.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}

// Generator opens reply streams.
type Generator interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// SystemPrompt returns the instructions given to the model for mode.
func SystemPrompt(mode tutorial.Mode) string {
	base := "You are a patient programming tutor guiding a learner through a problem " +
		"one small step at a time. Never reveal the full solution at once. "
	switch mode {
	case tutorial.ModeStuck:
		return base + "The learner is stuck on the current step. Give one short hint " +
			"that points them in the right direction without writing the code for them."
	case tutorial.ModeInstructionHint:
		return base + "The learner did not understand the instructions of the current step. " +
			"Restate them more concretely, in simpler words."
	default:
		return base + "Write only the requested step: what to do and why, with at most a " +
			"short code fragment. When the solution is complete, end your reply with \"" +
			tutorial.CompletionSentinel + "\"."
	}
}

// UserPrompt renders the learner's side of a turn.
func UserPrompt(req Request) string {
	var b strings.Builder
	switch req.Params.Mode {
	case tutorial.ModeStuck:
		fmt.Fprintf(&b, "I am stuck on step %d.\n", req.Step)
	case tutorial.ModeInstructionHint:
		fmt.Fprintf(&b, "Please explain the instructions of step %d again.\n", req.Step)
	default:
		fmt.Fprintf(&b, "Give me step %d.\n", req.Step)
	}
	if len(req.History) == 0 {
		fmt.Fprintf(&b, "\nProblem:\n%s\n", req.Params.Problem)
	}
	if code := strings.TrimSpace(req.Params.CurrentCode); code != "" {
		fmt.Fprintf(&b, "\nMy current code:\n```\n%s\n```\n", code)
	}
	return b.String()
}
