package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/bhandras/stepwise/internal/identity"
	"github.com/bhandras/stepwise/internal/server/database"
	"github.com/bhandras/stepwise/internal/tutorial"
)

func drain(t *testing.T, s Stream) (string, []Delta) {
	t.Helper()
	defer s.Close()
	var (
		text   strings.Builder
		deltas []Delta
	)
	for {
		d, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), deltas
		}
		require.NoError(t, err)
		text.WriteString(d.Text)
		deltas = append(deltas, d)
	}
}

func request(step int, mode tutorial.Mode) Request {
	return Request{
		AccountID: "a",
		Step:      step,
		Params: tutorial.RequestParams{
			Step:    fmt.Sprint(step),
			Mode:    mode,
			Problem: "reverse a list",
		},
	}
}

func TestScriptedStream(t *testing.T) {
	g := &Scripted{Steps: 3, IDs: &identity.Sequence{Prefix: "resp"}}

	s, err := g.Stream(context.Background(), request(1, tutorial.ModeGenerate))
	require.NoError(t, err)
	text, deltas := drain(t, s)
	require.Equal(t, `Step 1 of 3: work on the next piece of "reverse a list".`, text)
	require.Greater(t, len(deltas), 1)
	require.Equal(t, "resp-1", deltas[0].ResponseID)
	for _, d := range deltas[1:] {
		require.Empty(t, d.ResponseID)
	}

	s, err = g.Stream(context.Background(), request(3, tutorial.ModeGenerate))
	require.NoError(t, err)
	text, deltas = drain(t, s)
	require.True(t, strings.HasSuffix(text, tutorial.CompletionSentinel))
	require.Equal(t, tutorial.CompletionSentinel, deltas[len(deltas)-1].Text)

	s, err = g.Stream(context.Background(), request(2, tutorial.ModeStuck))
	require.NoError(t, err)
	text, _ = drain(t, s)
	require.Contains(t, text, "Hint for step 2")
	require.NotContains(t, text, tutorial.CompletionSentinel)
}

func TestFragmentsKeepSentinelWhole(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"a b", []string{"a ", "b"}},
		{"Done. Tutorial complete", []string{"Done. ", "Tutorial complete"}},
		{"Tutorial complete!", []string{"Tutorial complete", "!"}},
		{"Tutorial", []string{"Tutorial"}},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, fragments(tc.text), "%q", tc.text)
	}
}

func TestScriptedStreamCancelled(t *testing.T) {
	g := &Scripted{Steps: 2}
	ctx, cancel := context.WithCancel(context.Background())
	s, err := g.Stream(ctx, request(1, tutorial.ModeGenerate))
	require.NoError(t, err)

	cancel()
	_, err = s.Recv()
	require.ErrorIs(t, err, context.Canceled)
}

func TestScriptedRejectsBadStep(t *testing.T) {
	_, err := (&Scripted{}).Stream(context.Background(), request(0, tutorial.ModeGenerate))
	require.ErrorIs(t, err, tutorial.ErrInvalidStep)
}

func TestUserPromptIncludesProblemOnlyOnce(t *testing.T) {
	req := request(1, tutorial.ModeGenerate)
	req.Params.CurrentCode = "package main"
	p := UserPrompt(req)
	require.Contains(t, p, "reverse a list")
	require.Contains(t, p, "package main")

	req.History = []database.Turn{{Prompt: "earlier", Content: "reply"}}
	require.NotContains(t, UserPrompt(req), "reverse a list")
}

func TestMessagesReplayHistory(t *testing.T) {
	req := request(2, tutorial.ModeGenerate)
	req.History = []database.Turn{{Prompt: "Give me step 1.", Content: "Step 1"}}

	msgs := Messages(req)
	require.Len(t, msgs, 4)
	require.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	require.Equal(t, "Give me step 1.", msgs[1].Content)
	require.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	require.Contains(t, msgs[3].Content, "step 2")
}

func TestOpenAIStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range []string{"Step ", "1.", ""} {
			fmt.Fprintf(w, "data: {\"id\":\"chatcmpl-1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	g, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	s, err := g.Stream(context.Background(), request(1, tutorial.ModeGenerate))
	require.NoError(t, err)
	text, deltas := drain(t, s)
	require.Equal(t, "Step 1.", text)
	require.Equal(t, "chatcmpl-1", deltas[0].ResponseID)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	require.Error(t, err)
}
