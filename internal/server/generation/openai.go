package generation

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bhandras/stepwise/internal/tutorial"
)

// OpenAIConfig configures the OpenAI generator.
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// OpenAI streams chat completions.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns a generator for cfg.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), model: model}, nil
}

// Messages renders req as a chat transcript: system prompt, replayed history
// and the new user turn.
func Messages(req Request) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(req.Params.Mode),
	}}
	for _, t := range req.History {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Prompt},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Content},
		)
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: UserPrompt(req),
	})
}

// Stream implements Generator.
func (g *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	if !req.Params.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", tutorial.ErrInvalidMode, req.Params.Mode)
	}
	s, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: Messages(req),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create stream: %w", err)
	}
	return &openaiStream{s: s}, nil
}

type openaiStream struct {
	s  *openai.ChatCompletionStream
	id string
}

func (o *openaiStream) Recv() (Delta, error) {
	for {
		resp, err := o.s.Recv()
		if errors.Is(err, io.EOF) {
			return Delta{}, io.EOF
		}
		if err != nil {
			return Delta{}, fmt.Errorf("openai: recv: %w", err)
		}

		var d Delta
		if o.id == "" && resp.ID != "" {
			o.id = resp.ID
			d.ResponseID = resp.ID
		}
		for _, c := range resp.Choices {
			d.Text += c.Delta.Content
		}
		if d.ResponseID != "" || d.Text != "" {
			return d, nil
		}
	}
}

func (o *openaiStream) Close() error {
	return o.s.Close()
}
