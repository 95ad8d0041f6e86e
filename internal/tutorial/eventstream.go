package tutorial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/tmaxmax/go-sse"
)

// Event names used by the step stream.
const (
	EventMessage    = "message"
	EventResponseID = "responseId"
	EventDone       = "done"
)

const maxEventSize = 1 << 20

// ErrEventTooLarge is returned when a single event exceeds the decoder limit.
// It is treated as a malformed stream.
var ErrEventTooLarge = errors.New("event stream event too large")

// Event is one dispatched text/event-stream event.
type Event struct {
	ID   string
	Name string
	Data string
}

// Events yields the events of a text/event-stream body in order. Unnamed
// events are reported as EventMessage; named ones are dispatched even
// without data since done carries no payload. The sequence ends quietly at
// EOF, and a malformed or broken stream yields one final error.
func Events(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for ev, err := range sse.Read(r, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
			if err != nil {
				if errors.Is(err, bufio.ErrTooLong) {
					err = fmt.Errorf("%w: %w", ErrEventTooLarge, err)
				}
				yield(Event{}, err)
				return
			}
			name := ev.Type
			if name == "" {
				name = EventMessage
			}
			if !yield(Event{ID: ev.LastEventID, Name: name, Data: ev.Data}, nil) {
				return
			}
		}
	}
}
