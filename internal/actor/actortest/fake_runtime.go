// Package actortest provides test helpers for the actor package.
package actortest

import (
	"context"
	"sync"
	"time"

	"github.com/bhandras/stepwise/internal/actor"
)

// FakeRuntime records effects instead of executing them.
//
// Tests that need follow-up events can set EmitFn; it runs on its own
// goroutine per effect so that emit may block on the mailbox.
type FakeRuntime struct {
	mu      sync.Mutex
	effects []actor.Effect
	changed chan struct{}

	// EmitFn, when non-nil, is invoked for each effect.
	EmitFn func(ctx context.Context, eff actor.Effect, emit func(actor.Input))
}

// HandleEffects implements actor.Runtime.
func (r *FakeRuntime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	r.mu.Lock()
	r.effects = append(r.effects, effects...)
	emitFn := r.EmitFn
	if r.changed != nil {
		close(r.changed)
		r.changed = nil
	}
	r.mu.Unlock()

	if emitFn == nil {
		return
	}
	for _, eff := range effects {
		go emitFn(ctx, eff, emit)
	}
}

// Stop implements actor.Runtime.
func (r *FakeRuntime) Stop() {}

// Effects returns a snapshot of recorded effects.
func (r *FakeRuntime) Effects() []actor.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]actor.Effect, len(r.effects))
	copy(out, r.effects)
	return out
}

// WaitEffects blocks until at least n effects were recorded or the timeout
// elapses, and returns the recorded effects.
func (r *FakeRuntime) WaitEffects(n int, timeout time.Duration) []actor.Effect {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		if len(r.effects) >= n {
			out := make([]actor.Effect, len(r.effects))
			copy(out, r.effects)
			r.mu.Unlock()
			return out
		}
		if r.changed == nil {
			r.changed = make(chan struct{})
		}
		ch := r.changed
		r.mu.Unlock()

		select {
		case <-ch:
		case <-deadline:
			return r.Effects()
		}
	}
}

// Reset clears recorded effects.
func (r *FakeRuntime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = nil
}
