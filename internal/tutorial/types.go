package tutorial

import (
	"github.com/bhandras/stepwise/internal/actor"
)

const (
	// CompletionSentinel marks the end of the guided sequence when it appears
	// inside a streamed fragment.
	CompletionSentinel = "Tutorial complete"

	// FallbackText replaces the target field when its stream fails.
	FallbackText = "Unable to load step instructions."

	// DefaultMaxSteps bounds StepIndex when no limit is configured.
	DefaultMaxSteps = 10
)

// Mode is the kind of content requested from the generation service.
type Mode string

const (
	// ModeGenerate requests the full body of a step.
	ModeGenerate Mode = "generate"
	// ModeStuck requests a hint for a learner who is stuck.
	ModeStuck Mode = "stuck"
	// ModeInstructionHint requests clarified instructions for a step.
	ModeInstructionHint Mode = "instructionHint"
)

// Valid reports whether m is one of the modes understood by the service.
func (m Mode) Valid() bool {
	switch m {
	case ModeGenerate, ModeStuck, ModeInstructionHint:
		return true
	}
	return false
}

// Target names the State field a fetch writes into.
type Target int

const (
	// TargetStep writes into State.Step.
	TargetStep Target = iota
	// TargetHint writes into State.StepHint.
	TargetHint
	// TargetInstructionHint writes into State.StepInstructionHint.
	TargetInstructionHint

	numTargets
)

// String implements fmt.Stringer.
func (t Target) String() string {
	switch t {
	case TargetStep:
		return "step"
	case TargetHint:
		return "stepHint"
	case TargetInstructionHint:
		return "stepInstructionHint"
	}
	return "unknown"
}

// Fetch is the tag a stream was opened with. The reducer keeps one expected
// Fetch per target; events carrying any other tag are stale.
type Fetch struct {
	// Tag is unique per fetch within a State. Zero means "no fetch".
	Tag       int64
	Target    Target
	Mode      Mode
	StepIndex int
	// Acc accumulates the message fragments received so far.
	Acc string
}

// Active reports whether the fetch slot holds an in-flight fetch.
func (f Fetch) Active() bool { return f.Tag != 0 }

// State is the authoritative record of one tutorial session.
//
// State is a value: copies never share memory, so snapshots handed to
// observers stay consistent while the actor moves on.
type State struct {
	// Problem is the user's problem statement. Empty means no active session.
	Problem string

	// ConversationID correlates all step requests of one dialogue.
	ConversationID string
	// LatestResponseID is the most recent response identity reported by the
	// service; it is passed forward as previousResponseId.
	LatestResponseID string

	StepIndex int
	MaxSteps  int

	Step                string
	StepHint            string
	StepInstructionHint string

	// IsLastStep is monotonic until the next conversation starts.
	IsLastStep bool

	// FetchGen is the last tag handed out.
	FetchGen int64
	// Fetches holds the currently expected fetch per target.
	Fetches [numTargets]Fetch
}

// NewState returns the state of a freshly mounted session view.
func NewState(maxSteps int) State {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return State{StepIndex: 1, MaxSteps: maxSteps}
}

// Active reports whether a session is in progress.
func (s State) Active() bool { return s.Problem != "" }

// Loading reports whether any stream is still expected to deliver content.
func (s State) Loading() bool {
	for _, f := range s.Fetches {
		if f.Active() {
			return true
		}
	}
	return false
}

// Field returns the content of the given target field.
func (s State) Field(t Target) string {
	switch t {
	case TargetStep:
		return s.Step
	case TargetHint:
		return s.StepHint
	case TargetInstructionHint:
		return s.StepInstructionHint
	}
	return ""
}

func (s *State) setField(t Target, v string) {
	switch t {
	case TargetStep:
		s.Step = v
	case TargetHint:
		s.StepHint = v
	case TargetInstructionHint:
		s.StepInstructionHint = v
	}
}

// Commands

type cmdStart struct {
	actor.InputBase
	Problem        string
	ConversationID string
	CurrentCode    string
	Reply          chan error
}

type cmdStuck struct {
	actor.InputBase
	Problem        string
	ConversationID string
	CurrentCode    string
	Reply          chan error
}

type cmdRestart struct {
	actor.InputBase
	ConversationID string
	CurrentCode    string
	Reply          chan error
}

type cmdNext struct {
	actor.InputBase
	CurrentCode string
	Reply       chan error
}

type cmdHint struct {
	actor.InputBase
	CurrentCode string
	Reply       chan error
}

type cmdInstructionHint struct {
	actor.InputBase
	CurrentCode string
	Reply       chan error
}

type cmdReset struct {
	actor.InputBase
	ConversationID string
	Reply          chan error
}

type cmdSetMaxSteps struct {
	actor.InputBase
	MaxSteps int
	Reply    chan error
}

// Events emitted by the stream runtime. Tag identifies the fetch.

type evChunk struct {
	actor.InputBase
	Tag  int64
	Data string
}

type evResponseID struct {
	actor.InputBase
	Tag int64
	ID  string
}

type evStreamDone struct {
	actor.InputBase
	Tag int64
}

type evStreamFailed struct {
	actor.InputBase
	Tag int64
	Err error
}

// Effects

// effOpenStream asks the runtime to open an event stream for a fetch.
type effOpenStream struct {
	actor.EffectBase
	Fetch  Fetch
	Params RequestParams
}

// effCloseStream asks the runtime to close (or abandon) a fetch's stream.
type effCloseStream struct {
	actor.EffectBase
	Tag int64
}

// effReply completes a command's reply channel.
type effReply struct {
	actor.EffectBase
	Reply chan error
	Err   error
}

func (e effReply) complete() {
	select {
	case e.Reply <- e.Err:
	default:
	}
}
