package tutorial_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bhandras/stepwise/internal/actor/actortest"
	"github.com/bhandras/stepwise/internal/identity"
	"github.com/bhandras/stepwise/internal/tutorial"
	"github.com/stretchr/testify/require"
)

type staticCode string

func (s staticCode) Content() string { return string(s) }

// scriptedServer answers every step request with "Step <n> body" in two
// fragments, announcing response id "resp-<n>-<mode>".
type scriptedServer struct {
	mu   sync.Mutex
	reqs []tutorial.RequestParams
	// lastStep makes the given step carry the completion sentinel.
	lastStep int
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := tutorial.ParseRequestParams(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.reqs = append(s.reqs, p)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprintf(w, "event: responseId\ndata: resp-%s-%s\n\n", p.Step, p.Mode)
	fmt.Fprintf(w, "data: Step %s \n\n", p.Step)
	body := "body"
	if n, _ := p.StepNumber(); n == s.lastStep {
		body = "body. " + tutorial.CompletionSentinel
	}
	fmt.Fprintf(w, "data: %s\n\n", body)
	fmt.Fprint(w, "event: done\n\n")
}

func (s *scriptedServer) requests() []tutorial.RequestParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tutorial.RequestParams(nil), s.reqs...)
}

func newSession(t *testing.T, h http.Handler, maxSteps int) *tutorial.Session {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	sess := tutorial.NewSession(tutorial.SessionConfig{
		Runtime:   tutorial.NewStreamRuntime(srv.URL + "/api/tutorials/stream/"),
		IDs:       &identity.Sequence{Prefix: "conv"},
		Workspace: staticCode("package main"),
		MaxSteps:  maxSteps,
	})
	t.Cleanup(sess.Close)
	return sess
}

func waitFor(t *testing.T, sess *tutorial.Session, cond func(tutorial.State) bool) tutorial.State {
	t.Helper()
	require.Eventually(t, func() bool {
		return cond(sess.State())
	}, 3*time.Second, 5*time.Millisecond)
	return sess.State()
}

func loaded(s tutorial.State) bool { return !s.Loading() && s.Step != "" }

func TestSessionWalkthrough(t *testing.T) {
	srv := &scriptedServer{lastStep: 3}
	sess := newSession(t, srv, 0)
	ctx := context.Background()

	require.NoError(t, sess.Start(ctx, "reverse a linked list"))
	st := waitFor(t, sess, loaded)
	require.Equal(t, "Step 1 body", st.Step)
	require.Equal(t, "conv-1", st.ConversationID)
	require.Equal(t, "resp-1-generate", st.LatestResponseID)

	require.NoError(t, sess.Hint(ctx))
	st = waitFor(t, sess, func(s tutorial.State) bool { return !s.Loading() && s.StepHint != "" })
	require.Equal(t, "Step 1 body", st.StepHint)
	require.Equal(t, "Step 1 body", st.Step)

	require.NoError(t, sess.Next(ctx))
	st = waitFor(t, sess, loaded)
	require.Equal(t, 2, st.StepIndex)
	require.Empty(t, st.StepHint)

	require.NoError(t, sess.Next(ctx))
	st = waitFor(t, sess, func(s tutorial.State) bool { return s.IsLastStep && !s.Loading() })
	require.Equal(t, "Step 3 body. Tutorial complete", st.Step)
	require.ErrorIs(t, sess.Next(ctx), tutorial.ErrTutorialComplete)

	reqs := srv.requests()
	require.Len(t, reqs, 4)
	require.Equal(t, "resp-1-generate", reqs[1].PreviousResponseID)
	require.Equal(t, tutorial.ModeStuck, reqs[1].Mode)
	require.Equal(t, "resp-1-stuck", reqs[2].PreviousResponseID)
	require.Equal(t, "package main", reqs[3].CurrentCode)
	for _, r := range reqs {
		require.Equal(t, "conv-1", r.ConversationID)
	}

	require.NoError(t, sess.Restart(ctx))
	st = waitFor(t, sess, loaded)
	require.Equal(t, "conv-2", st.ConversationID)
	require.False(t, st.IsLastStep)
	require.Equal(t, "", srv.requests()[4].PreviousResponseID)

	require.NoError(t, sess.Reset(ctx))
	st = sess.State()
	require.False(t, st.Active())
	require.Equal(t, "conv-3", st.ConversationID)
}

func TestSessionStreamFailureShowsFallback(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	sess := newSession(t, h, 0)

	require.NoError(t, sess.Start(context.Background(), "p"))
	st := waitFor(t, sess, func(s tutorial.State) bool { return !s.Loading() })
	require.Equal(t, tutorial.FallbackText, st.Step)
	require.Equal(t, 1, st.StepIndex)
}

func TestSessionRepliesAfterStateIsVisible(t *testing.T) {
	rt := &actortest.FakeRuntime{}
	sess := tutorial.NewSession(tutorial.SessionConfig{
		Runtime: rt,
		IDs:     &identity.Sequence{},
	})
	defer sess.Close()
	ctx := context.Background()

	require.ErrorIs(t, sess.Start(ctx, ""), tutorial.ErrEmptyProblem)
	require.ErrorIs(t, sess.Next(ctx), tutorial.ErrNoSession)

	require.NoError(t, sess.Start(ctx, "p"))
	st := sess.State()
	require.Equal(t, "p", st.Problem)
	require.True(t, st.Loading())
	require.ErrorIs(t, sess.Hint(ctx), tutorial.ErrNoStep)
	require.ErrorIs(t, sess.Stuck(ctx, "other"), tutorial.ErrSessionActive)
	require.Equal(t, "p", sess.State().Problem)

	require.NoError(t, sess.SetMaxSteps(ctx, 4))
	require.Equal(t, 4, sess.State().MaxSteps)
}

func TestSessionObservers(t *testing.T) {
	rt := &actortest.FakeRuntime{}
	sess := tutorial.NewSession(tutorial.SessionConfig{Runtime: rt})
	defer sess.Close()
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen []int
	)
	cancel := sess.Subscribe(func(s tutorial.State) {
		mu.Lock()
		seen = append(seen, s.MaxSteps)
		mu.Unlock()
	})

	require.NoError(t, sess.SetMaxSteps(ctx, 3))
	require.NoError(t, sess.SetMaxSteps(ctx, 3))
	require.NoError(t, sess.SetMaxSteps(ctx, 5))
	cancel()
	require.NoError(t, sess.SetMaxSteps(ctx, 7))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{3, 5}, seen)
}

func TestSessionCloseStopsStreams(t *testing.T) {
	opened := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		close(opened)
		<-r.Context().Done()
	}))
	defer srv.Close()

	rt := tutorial.NewStreamRuntime(srv.URL)
	sess := tutorial.NewSession(tutorial.SessionConfig{Runtime: rt})
	require.NoError(t, sess.Start(context.Background(), "p"))
	<-opened

	sess.Close()
	waited := make(chan struct{})
	go func() {
		rt.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("stream goroutine survived Close")
	}
}

func TestSessionClosed(t *testing.T) {
	sess := tutorial.NewSession(tutorial.SessionConfig{Runtime: &actortest.FakeRuntime{}})
	sess.Close()
	sess.Close()

	require.ErrorIs(t, sess.Start(context.Background(), "p"), tutorial.ErrSessionClosed)
}
