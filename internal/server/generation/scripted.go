package generation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bhandras/stepwise/internal/identity"
	"github.com/bhandras/stepwise/internal/tutorial"
)

// Scripted is a deterministic offline generator. It produces Steps steps and
// ends the last one with the completion sentinel.
type Scripted struct {
	Steps int
	// IDs names responses. Defaults to identity.UUID.
	IDs identity.Generator
	// Delay is slept before every fragment.
	Delay time.Duration
}

// Stream implements Generator.
func (s *Scripted) Stream(ctx context.Context, req Request) (Stream, error) {
	if req.Step < 1 {
		return nil, fmt.Errorf("%w: %d", tutorial.ErrInvalidStep, req.Step)
	}
	ids := s.IDs
	if ids == nil {
		ids = identity.UUID{}
	}
	return &scriptedStream{
		ctx:   ctx,
		id:    ids.NewID(),
		frags: fragments(s.reply(req)),
		delay: s.Delay,
	}, nil
}

func (s *Scripted) reply(req Request) string {
	steps := s.Steps
	if steps < 1 {
		steps = 1
	}
	switch req.Params.Mode {
	case tutorial.ModeStuck:
		if req.Step == 1 && len(req.History) == 0 {
			return fmt.Sprintf("Start by restating %q in your own words and write down one example input.",
				req.Params.Problem)
		}
		return fmt.Sprintf("Hint for step %d: solve the smallest possible input by hand first.", req.Step)
	case tutorial.ModeInstructionHint:
		return fmt.Sprintf("Step %d, in other words: change one thing in your code, then run it.", req.Step)
	}

	if req.Step >= steps {
		return fmt.Sprintf("Step %d: check every edge case once more. %s", req.Step, tutorial.CompletionSentinel)
	}
	return fmt.Sprintf("Step %d of %d: work on the next piece of %q.", req.Step, steps, req.Params.Problem)
}

// fragments splits text into word-sized pieces that keep their spacing. The
// completion sentinel always travels as one piece since clients only look
// for it within a single fragment.
func fragments(text string) []string {
	var out []string
	for len(text) > 0 {
		if strings.HasPrefix(text, tutorial.CompletionSentinel) {
			out = append(out, tutorial.CompletionSentinel)
			text = text[len(tutorial.CompletionSentinel):]
			continue
		}
		i := strings.IndexByte(text, ' ')
		if i < 0 {
			out = append(out, text)
			break
		}
		out = append(out, text[:i+1])
		text = text[i+1:]
	}
	return out
}

type scriptedStream struct {
	ctx   context.Context
	id    string
	frags []string
	delay time.Duration
	sent  bool
}

func (s *scriptedStream) Recv() (Delta, error) {
	if err := s.ctx.Err(); err != nil {
		return Delta{}, err
	}
	if len(s.frags) == 0 {
		return Delta{}, io.EOF
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-s.ctx.Done():
			return Delta{}, s.ctx.Err()
		}
	}

	d := Delta{Text: s.frags[0]}
	s.frags = s.frags[1:]
	if !s.sent {
		d.ResponseID = s.id
		s.sent = true
	}
	return d, nil
}

func (s *scriptedStream) Close() error {
	s.frags = nil
	return nil
}
