package tutorial

import (
	"strings"

	"github.com/bhandras/stepwise/internal/actor"
)

// Reduce is the tutorial session reducer.
//
// Commands implement the user-facing transitions; events are stream
// observations and are applied only while their fetch tag is still the one
// expected for its target.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	switch in := input.(type) {
	case cmdStart:
		return reduceBegin(state, in.Problem, in.ConversationID, in.CurrentCode, ModeGenerate, in.Reply)
	case cmdStuck:
		return reduceBegin(state, in.Problem, in.ConversationID, in.CurrentCode, ModeStuck, in.Reply)
	case cmdRestart:
		return reduceRestart(state, in)
	case cmdNext:
		return reduceNext(state, in)
	case cmdHint:
		return reduceHint(state, TargetHint, ModeStuck, in.CurrentCode, in.Reply)
	case cmdInstructionHint:
		return reduceHint(state, TargetInstructionHint, ModeInstructionHint, in.CurrentCode, in.Reply)
	case cmdReset:
		return reduceReset(state, in)
	case cmdSetMaxSteps:
		if in.MaxSteps < 1 {
			return state, replied(in.Reply, ErrInvalidMaxSteps)
		}
		state.MaxSteps = in.MaxSteps
		return state, replied(in.Reply, nil)

	case evChunk:
		return reduceChunk(state, in)
	case evResponseID:
		if _, ok := state.current(in.Tag); !ok {
			return state, nil
		}
		state.LatestResponseID = in.ID
		return state, nil
	case evStreamDone:
		f, ok := state.current(in.Tag)
		if !ok {
			return state, nil
		}
		state.Fetches[f.Target] = Fetch{}
		return state, []actor.Effect{effCloseStream{Tag: in.Tag}}
	case evStreamFailed:
		f, ok := state.current(in.Tag)
		if !ok {
			return state, nil
		}
		state.setField(f.Target, FallbackText)
		state.StepIndex = f.StepIndex
		state.Fetches[f.Target] = Fetch{}
		return state, []actor.Effect{effCloseStream{Tag: in.Tag}}
	default:
		return state, nil
	}
}

// reduceBegin starts a new conversation on problem (start and stuck from the
// intake form). A running session must be restarted or reset instead.
func reduceBegin(state State, problem, convID, code string, mode Mode, r chan error) (State, []actor.Effect) {
	if state.Active() {
		return state, replied(r, ErrSessionActive)
	}
	if strings.TrimSpace(problem) == "" {
		return state, replied(r, ErrEmptyProblem)
	}
	state.Problem = problem
	state.Step = ""

	state, effects := state.newConversation(convID)
	state, fetchEffects := state.beginFetch(1, mode, TargetStep, code)
	return state, replied(r, nil, append(effects, fetchEffects...)...)
}

func reduceRestart(state State, cmd cmdRestart) (State, []actor.Effect) {
	state, effects := state.newConversation(cmd.ConversationID)
	state, fetchEffects := state.beginFetch(1, ModeGenerate, TargetStep, cmd.CurrentCode)
	return state, replied(cmd.Reply, nil, append(effects, fetchEffects...)...)
}

func reduceNext(state State, cmd cmdNext) (State, []actor.Effect) {
	if !state.Active() {
		return state, replied(cmd.Reply, ErrNoSession)
	}
	if state.IsLastStep {
		return state, replied(cmd.Reply, ErrTutorialComplete)
	}
	if state.StepIndex >= state.MaxSteps {
		state.IsLastStep = true
		return state, replied(cmd.Reply, nil)
	}

	// Hints belong to the step being left; late hint chunks must not land
	// under the new step.
	var effects []actor.Effect
	for _, t := range []Target{TargetHint, TargetInstructionHint} {
		state, effects = state.supersede(t, effects)
	}
	state.StepHint = ""
	state.StepInstructionHint = ""

	state, fetchEffects := state.beginFetch(state.StepIndex+1, ModeGenerate, TargetStep, cmd.CurrentCode)
	return state, replied(cmd.Reply, nil, append(effects, fetchEffects...)...)
}

func reduceHint(state State, target Target, mode Mode, code string, r chan error) (State, []actor.Effect) {
	if state.Step == "" {
		return state, replied(r, ErrNoStep)
	}
	state, effects := state.beginFetch(state.StepIndex, mode, target, code)
	return state, replied(r, nil, effects...)
}

func reduceReset(state State, cmd cmdReset) (State, []actor.Effect) {
	state, effects := state.newConversation(cmd.ConversationID)
	state.Problem = ""
	state.Step = ""
	return state, replied(cmd.Reply, nil, effects...)
}

func reduceChunk(state State, ev evChunk) (State, []actor.Effect) {
	f, ok := state.current(ev.Tag)
	if !ok {
		return state, nil
	}
	f.Acc += ev.Data
	state.Fetches[f.Target] = f

	// Only the incoming fragment is checked: a sentinel split across two
	// fragments is not recognised.
	if strings.Contains(ev.Data, CompletionSentinel) {
		state.IsLastStep = true
	}
	state.setField(f.Target, f.Acc)
	state.StepIndex = f.StepIndex
	return state, nil
}

// newConversation switches to convID and drops everything tied to the
// previous conversation: response chain, completion flag, hints and all
// in-flight fetches.
func (s State) newConversation(convID string) (State, []actor.Effect) {
	var effects []actor.Effect
	for t := Target(0); t < numTargets; t++ {
		s, effects = s.supersede(t, effects)
	}
	s.ConversationID = convID
	s.LatestResponseID = ""
	s.StepIndex = 1
	s.IsLastStep = false
	s.StepHint = ""
	s.StepInstructionHint = ""
	return s, effects
}

// beginFetch clears the target field, points StepIndex at the fetched step
// and tags a new stream for it. Without a problem it is a no-op.
func (s State) beginFetch(stepIndex int, mode Mode, target Target, code string) (State, []actor.Effect) {
	if s.Problem == "" {
		return s, nil
	}
	var effects []actor.Effect
	s, effects = s.supersede(target, effects)

	s.setField(target, "")
	s.StepIndex = stepIndex
	s.FetchGen++
	f := Fetch{Tag: s.FetchGen, Target: target, Mode: mode, StepIndex: stepIndex}
	s.Fetches[target] = f

	return s, append(effects, effOpenStream{
		Fetch:  f,
		Params: BuildRequest(stepIndex, mode, s, code),
	})
}

// supersede forgets the expected fetch for target and asks the runtime to
// close its stream.
func (s State) supersede(target Target, effects []actor.Effect) (State, []actor.Effect) {
	if old := s.Fetches[target]; old.Active() {
		effects = append(effects, effCloseStream{Tag: old.Tag})
		s.Fetches[target] = Fetch{}
	}
	return s, effects
}

// current returns the expected fetch carrying tag, if any.
func (s State) current(tag int64) (Fetch, bool) {
	if tag == 0 {
		return Fetch{}, false
	}
	for _, f := range s.Fetches {
		if f.Tag == tag {
			return f, true
		}
	}
	return Fetch{}, false
}

// replied appends the completion of a command's reply channel to effects.
// Replies travel as effects so that callers only observe them once the new
// state is visible.
func replied(ch chan error, err error, effects ...actor.Effect) []actor.Effect {
	if ch == nil {
		return effects
	}
	return append(effects, effReply{Reply: ch, Err: err})
}
