// Package uievents carries fire-and-forget notifications from the tutorial
// view to whatever hosts it.
package uievents

import (
	"sync"

	"github.com/bhandras/stepwise/pkg/logger"
)

// ShowPlusDialog asks the host to present the subscription upsell.
const ShowPlusDialog = "showPlusDialog"

// Handler reacts to a dispatched event.
type Handler func(name string)

// Bus dispatches named events to registered handlers. The zero value is
// ready to use.
type Bus struct {
	mu       sync.Mutex
	handlers map[string]map[int]Handler
	next     int
	wg       sync.WaitGroup
}

// On registers fn for events called name and returns a function that
// unregisters it.
func (b *Bus) On(name string, fn Handler) (off func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[string]map[int]Handler)
	}
	if b.handlers[name] == nil {
		b.handlers[name] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.handlers[name][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[name], id)
	}
}

// Dispatch notifies every handler of name on its own goroutine and returns
// immediately. There is no payload and no acknowledgement.
func (b *Bus) Dispatch(name string) {
	b.mu.Lock()
	fns := make([]Handler, 0, len(b.handlers[name]))
	for _, fn := range b.handlers[name] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	logger.Debugf("uievents: dispatch %s to %d handler(s)", name, len(fns))
	for _, fn := range fns {
		b.wg.Add(1)
		go func(fn Handler) {
			defer b.wg.Done()
			fn(name)
		}(fn)
	}
}

// Wait blocks until every handler started by Dispatch has returned.
func (b *Bus) Wait() { b.wg.Wait() }
