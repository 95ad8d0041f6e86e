// Package workspace exposes the learner's current code to tutorial requests.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bhandras/stepwise/pkg/logger"
)

// DefaultDebounce is how long File waits after the last change before it
// re-reads the file.
const DefaultDebounce = 100 * time.Millisecond

// Accessor returns the current content of the workspace.
type Accessor interface {
	Content() string
}

// Static is an Accessor over a fixed string.
type Static string

// Content implements Accessor.
func (s Static) Content() string { return string(s) }

// FileOption configures a File.
type FileOption func(*File)

// WithDebounce sets the reload debounce duration.
func WithDebounce(d time.Duration) FileOption {
	return func(f *File) {
		if d > 0 {
			f.debounce = d
		}
	}
}

// WithOnChange registers a callback invoked with the new content after every
// reload.
func WithOnChange(fn func(string)) FileOption {
	return func(f *File) { f.onChange = fn }
}

// File is an Accessor over a file on disk. It watches the file's directory
// (atomic saves replace the file) and serves the last content it read. A
// missing file reads as "".
type File struct {
	path     string
	debounce time.Duration
	onChange func(string)

	mu      sync.RWMutex
	content string
	timer   *time.Timer

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenFile loads path and starts watching it.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f := &File{
		path:     abs,
		debounce: DefaultDebounce,
		onChange: func(string) {},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := f.reload(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	f.fsw = fsw
	f.ctx, f.cancel = context.WithCancel(context.Background())
	go f.watch()
	return f, nil
}

// Content implements Accessor.
func (f *File) Content() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.content
}

// Path returns the watched file path.
func (f *File) Path() string { return f.path }

// Close stops watching.
func (f *File) Close() error {
	f.cancel()
	err := f.fsw.Close()
	<-f.done

	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()
	return err
}

func (f *File) watch() {
	defer close(f.done)
	target := filepath.Base(f.path)

	for {
		select {
		case <-f.ctx.Done():
			return
		case ev, ok := <-f.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				f.trigger()
			}
		case err, ok := <-f.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnf("workspace: watch %s: %v", f.path, err)
		}
	}
}

// trigger schedules a reload, collapsing bursts of events into one read.
func (f *File) trigger() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		if f.ctx.Err() != nil {
			return
		}
		if err := f.reload(); err != nil {
			logger.Warnf("workspace: reload %s: %v", f.path, err)
			return
		}
		f.onChange(f.Content())
	})
}

func (f *File) reload() error {
	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	case err != nil:
		return err
	}

	f.mu.Lock()
	f.content = string(data)
	f.mu.Unlock()
	logger.Debugf("workspace: loaded %s (%d bytes)", f.path, len(data))
	return nil
}
