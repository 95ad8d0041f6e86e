package tutorial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bhandras/stepwise/internal/actor"
	"github.com/bhandras/stepwise/pkg/logger"
)

// errEndedBeforeDone is reported when the server closes the stream without
// sending a done event.
var errEndedBeforeDone = errors.New("stream ended before done event")

// StreamRuntime interprets the reducer's stream effects: it opens one event
// stream per fetch, decodes it, and emits tagged events back to the session.
//
// Runtime never mutates session state. A stream whose fetch was superseded is
// cancelled and stops emitting; anything it emitted before noticing is
// discarded by the reducer's tag check.
type StreamRuntime struct {
	endpoint string
	token    string
	httpc    *http.Client

	mu       sync.Mutex
	stopped  bool
	streams  map[int64]context.CancelFunc
	byTarget map[Target]int64
	wg       sync.WaitGroup
}

// RuntimeOption configures a StreamRuntime.
type RuntimeOption func(*StreamRuntime)

// WithHTTPClient overrides the HTTP client used for streams.
func WithHTTPClient(c *http.Client) RuntimeOption {
	return func(r *StreamRuntime) {
		if c != nil {
			r.httpc = c
		}
	}
}

// WithToken sets the bearer token sent with every stream request.
func WithToken(token string) RuntimeOption {
	return func(r *StreamRuntime) { r.token = strings.TrimSpace(token) }
}

// NewStreamRuntime returns a runtime streaming from endpoint, the absolute
// URL of the step stream.
func NewStreamRuntime(endpoint string, opts ...RuntimeOption) *StreamRuntime {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	r := &StreamRuntime{
		endpoint: endpoint,
		// No overall timeout: a step stream may legitimately stay open for as
		// long as the service keeps generating.
		httpc:    &http.Client{Timeout: 0, Transport: tr},
		streams:  make(map[int64]context.CancelFunc),
		byTarget: make(map[Target]int64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleEffects implements actor.Runtime.
func (r *StreamRuntime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := eff.(type) {
		case effOpenStream:
			r.open(ctx, e, emit)
		case effCloseStream:
			r.close(e.Tag)
		}
	}
}

// Stop implements actor.Runtime.
func (r *StreamRuntime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for tag, cancel := range r.streams {
		cancel()
		delete(r.streams, tag)
	}
	r.byTarget = make(map[Target]int64)
}

// Wait blocks until every stream goroutine has exited.
func (r *StreamRuntime) Wait() { r.wg.Wait() }

func (r *StreamRuntime) open(ctx context.Context, eff effOpenStream, emit func(actor.Input)) {
	tag := eff.Fetch.Tag

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	// A new fetch for the same target implicitly cancels the old one.
	if old, ok := r.byTarget[eff.Fetch.Target]; ok {
		if cancel, ok := r.streams[old]; ok {
			cancel()
			delete(r.streams, old)
		}
	}
	sctx, cancel := context.WithCancel(ctx)
	r.streams[tag] = cancel
	r.byTarget[eff.Fetch.Target] = tag
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.forget(eff.Fetch.Target, tag)

		send := func(in actor.Input) {
			if sctx.Err() != nil {
				return
			}
			emit(in)
		}

		err := r.consume(sctx, eff, send)
		if err == nil || sctx.Err() != nil {
			return
		}
		logger.Warnf("tutorial: %s stream for step %d failed: %v", eff.Fetch.Target, eff.Fetch.StepIndex, err)
		send(evStreamFailed{Tag: tag, Err: err})
	}()
}

func (r *StreamRuntime) close(tag int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.streams[tag]; ok {
		cancel()
		delete(r.streams, tag)
	}
}

func (r *StreamRuntime) forget(target Target, tag int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.streams[tag]; ok {
		cancel()
		delete(r.streams, tag)
	}
	if r.byTarget[target] == tag {
		delete(r.byTarget, target)
	}
}

// consume reads one stream until its done event. Any other ending is an
// error.
func (r *StreamRuntime) consume(ctx context.Context, eff effOpenStream, send func(actor.Input)) error {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return fmt.Errorf("bad stream endpoint: %w", err)
	}
	u.RawQuery = eff.Params.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	logger.Debugf("tutorial: open stream tag=%d target=%s step=%s mode=%s",
		eff.Fetch.Tag, eff.Fetch.Target, eff.Params.Step, eff.Params.Mode)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("stream status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/event-stream") {
		return fmt.Errorf("unexpected content type %q", ct)
	}

	tag := eff.Fetch.Tag
	for ev, err := range Events(resp.Body) {
		if err != nil {
			return err
		}

		switch ev.Name {
		case EventMessage:
			send(evChunk{Tag: tag, Data: ev.Data})
		case EventResponseID:
			send(evResponseID{Tag: tag, ID: ev.Data})
		case EventDone:
			send(evStreamDone{Tag: tag})
			return nil
		default:
			logger.Tracef("tutorial: ignoring %q event on tag=%d", ev.Name, tag)
		}
	}
	return errEndedBeforeDone
}
