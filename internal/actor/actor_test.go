package actor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhandras/stepwise/internal/actor"
	"github.com/bhandras/stepwise/internal/actor/actortest"
	"github.com/stretchr/testify/require"
)

type addInput struct {
	actor.InputBase
	n int
}

type addEffect struct {
	actor.EffectBase
	n int
}

func sumReducer(state int, input actor.Input) (int, []actor.Effect) {
	in, ok := input.(addInput)
	if !ok {
		return state, nil
	}
	return state + in.n, []actor.Effect{addEffect{n: in.n}}
}

func waitState(t *testing.T, a *actor.Actor[int], want int) {
	t.Helper()
	require.Eventually(t, func() bool { return a.State() == want }, 2*time.Second, 5*time.Millisecond)
}

func TestActorProcessesInputsSequentially(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{}
	a := actor.New[int](0, sumReducer, rt)
	a.Start()
	defer a.Stop()

	for i := 1; i <= 5; i++ {
		require.True(t, a.Enqueue(addInput{n: i}), "enqueue %d", i)
	}

	waitState(t, a, 15)
	require.Len(t, rt.WaitEffects(5, time.Second), 5)
}

func TestActorRuntimeEmitsFeedBack(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{
		EmitFn: func(ctx context.Context, eff actor.Effect, emit func(actor.Input)) {
			if e, ok := eff.(addEffect); ok && e.n == 1 {
				emit(addInput{n: 10})
			}
		},
	}
	a := actor.New[int](0, sumReducer, rt)
	a.Start()
	defer a.Stop()

	require.NoError(t, a.Send(context.Background(), addInput{n: 1}))
	waitState(t, a, 11)
}

func TestActorHooksObserveTransitions(t *testing.T) {
	t.Parallel()

	var transitions atomic.Int64
	a := actor.New[int](0, sumReducer, nil, actor.WithHooks(actor.Hooks[int]{
		OnTransition: func(prev, next int, _ actor.Input) {
			if next != prev {
				transitions.Add(1)
			}
		},
	}))
	a.Start()
	defer a.Stop()

	require.True(t, a.Enqueue(addInput{n: 2}))
	require.True(t, a.Enqueue(addInput{n: 3}))
	waitState(t, a, 5)
	require.Eventually(t, func() bool { return transitions.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestActorEnqueueDropsWhenMailboxFull(t *testing.T) {
	t.Parallel()

	var dropped atomic.Int64
	a := actor.New[int](0, sumReducer, nil,
		actor.WithMailboxSize[int](1),
		actor.WithHooks(actor.Hooks[int]{
			OnDropped: func(actor.Input) { dropped.Add(1) },
		}),
	)
	defer a.Stop()

	// Loop not started: the mailbox fills up.
	require.True(t, a.Enqueue(addInput{n: 1}))
	require.False(t, a.Enqueue(addInput{n: 1}))
	require.Equal(t, int64(1), dropped.Load())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.Send(ctx, addInput{n: 1}), context.DeadlineExceeded)
}

func TestActorSendAfterStop(t *testing.T) {
	t.Parallel()

	a := actor.New[int](0, sumReducer, nil)
	a.Start()
	a.Stop()
	<-a.Done()

	require.ErrorIs(t, a.Send(context.Background(), addInput{n: 1}), actor.ErrStopped)
	require.False(t, a.Enqueue(addInput{n: 1}))
}
