package tutorial

import (
	"context"
	"sync"

	"github.com/bhandras/stepwise/internal/actor"
	"github.com/bhandras/stepwise/internal/identity"
	"github.com/bhandras/stepwise/pkg/logger"
)

// Workspace supplies the learner's current code. It is read whenever a
// request is built.
type Workspace interface {
	Content() string
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// Runtime interprets stream effects. Usually a *StreamRuntime.
	Runtime actor.Runtime
	// IDs generates conversation ids. Defaults to identity.UUID.
	IDs identity.Generator
	// Workspace supplies currentCode. Nil means an empty workspace.
	Workspace Workspace
	// MaxSteps bounds the sequence. Defaults to DefaultMaxSteps.
	MaxSteps int
	// MailboxSize overrides the actor mailbox size.
	MailboxSize int
}

// Session is the front door to one tutorial session. All state lives in an
// actor; Session only injects identifiers and workspace content into commands
// and fans state snapshots out to observers.
type Session struct {
	actor     *actor.Actor[State]
	ids       identity.Generator
	workspace Workspace

	mu        sync.Mutex
	observers map[int]func(State)
	nextObs   int
	closeOnce sync.Once
}

// NewSession creates and starts a session.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		ids:       cfg.IDs,
		workspace: cfg.Workspace,
		observers: make(map[int]func(State)),
	}
	if s.ids == nil {
		s.ids = identity.UUID{}
	}

	opts := []actor.Option[State]{
		actor.WithHooks(actor.Hooks[State]{
			OnInput: func(in actor.Input) {
				logger.Tracef("tutorial: input %T", in)
			},
			OnTransition: s.onTransition,
			OnDropped: func(in actor.Input) {
				logger.Warnf("tutorial: mailbox full, dropped %T", in)
			},
		}),
	}
	if cfg.MailboxSize > 0 {
		opts = append(opts, actor.WithMailboxSize[State](cfg.MailboxSize))
	}

	s.actor = actor.New(NewState(cfg.MaxSteps), Reduce, replyRuntime{next: cfg.Runtime}, opts...)
	s.actor.Start()
	return s
}

// Start begins a new conversation for problem and fetches step 1.
func (s *Session) Start(ctx context.Context, problem string) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return Start(problem, s.ids.NewID(), s.code(), r)
	})
}

// Stuck begins a new conversation for problem, fetching a stuck-mode answer
// as step 1.
func (s *Session) Stuck(ctx context.Context, problem string) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return Stuck(problem, s.ids.NewID(), s.code(), r)
	})
}

// Restart starts the current problem over under a new conversation.
func (s *Session) Restart(ctx context.Context) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return Restart(s.ids.NewID(), s.code(), r)
	})
}

// Next advances to the next step.
func (s *Session) Next(ctx context.Context) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return Next(s.code(), r)
	})
}

// Hint fetches a hint for the current step.
func (s *Session) Hint(ctx context.Context) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return Hint(s.code(), r)
	})
}

// InstructionHint fetches clarified instructions for the current step.
func (s *Session) InstructionHint(ctx context.Context) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return InstructionHint(s.code(), r)
	})
}

// Reset abandons the session and returns to intake.
func (s *Session) Reset(ctx context.Context) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return Reset(s.ids.NewID(), r)
	})
}

// SetMaxSteps changes the step limit.
func (s *Session) SetMaxSteps(ctx context.Context, n int) error {
	return s.do(ctx, func(r chan error) actor.Input {
		return SetMaxSteps(n, r)
	})
}

// State returns a snapshot of the session state.
func (s *Session) State() State { return s.actor.State() }

// Subscribe registers fn to be called with a snapshot after every transition
// that changed state. fn runs on the session goroutine and must not call back
// into blocking Session methods.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Close stops the session and every open stream.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.actor.Stop()
		<-s.actor.Done()
	})
}

func (s *Session) do(ctx context.Context, build func(chan error) actor.Input) error {
	select {
	case <-s.actor.Done():
		return ErrSessionClosed
	default:
	}

	reply := make(chan error, 1)
	if !s.actor.Enqueue(build(reply)) {
		select {
		case <-s.actor.Done():
			return ErrSessionClosed
		default:
			return ErrMailboxFull
		}
	}

	select {
	case err := <-reply:
		return err
	case <-s.actor.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) code() string {
	if s.workspace == nil {
		return ""
	}
	return s.workspace.Content()
}

func (s *Session) onTransition(prev, next State, in actor.Input) {
	if prev == next {
		if tag, stale := staleTag(prev, in); stale {
			logger.Debugf("tutorial: discarded stale %T for tag=%d", in, tag)
		}
		return
	}

	s.mu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// staleTag reports whether in is a stream event whose fetch is no longer
// expected by state.
func staleTag(state State, in actor.Input) (int64, bool) {
	var tag int64
	switch ev := in.(type) {
	case evChunk:
		tag = ev.Tag
	case evResponseID:
		tag = ev.Tag
	case evStreamDone:
		tag = ev.Tag
	case evStreamFailed:
		tag = ev.Tag
	default:
		return 0, false
	}
	_, ok := state.current(tag)
	return tag, !ok
}

// replyRuntime completes command replies and forwards every other effect.
// It runs after the actor has published the new state, so a caller whose
// command returned always observes its effect through State.
type replyRuntime struct {
	next actor.Runtime
}

func (r replyRuntime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	rest := effects[:0:0]
	var replies []effReply
	for _, eff := range effects {
		if e, ok := eff.(effReply); ok {
			replies = append(replies, e)
			continue
		}
		rest = append(rest, eff)
	}
	if r.next != nil && len(rest) > 0 {
		r.next.HandleEffects(ctx, rest, emit)
	}
	for _, e := range replies {
		e.complete()
	}
}

func (r replyRuntime) Stop() {
	if r.next != nil {
		r.next.Stop()
	}
}
