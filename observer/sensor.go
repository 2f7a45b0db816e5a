// Package observer watches a storage file for growth and wakes a consumer
// without the consumer having to poll.
package observer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ErrNotFile is returned by NewSensor when target exists but is not a
// regular file. A missing target is reported as the wrapped stat error.
var ErrNotFile = errors.New("brec: observer target is not a regular file")

// Wake reports the storage file's length observed at the moment a wake was
// emitted.
type Wake struct {
	Size uint64
}

// Sensor watches a single storage file and emits a Wake on its channel
// whenever the file grows past what was last acknowledged via Processed.
// At most one unacknowledged Wake is ever pending: Sensor coalesces bursts
// of writes into a single pending notification rather than flooding the
// channel.
type Sensor struct {
	target       string
	locked       atomic.Bool
	processedLen atomic.Uint64

	ch      chan Wake
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSensor starts watching target and returns the Sensor along with its
// Wake channel (capacity 1). Call Close when done to stop the underlying
// watcher.
func NewSensor(target string) (*Sensor, <-chan Wake, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, nil, fmt.Errorf("brec: stat observer target: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, nil, ErrNotFile
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("brec: creating watcher: %w", err)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		_ = watcher.Close()

		return nil, nil, err
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()

		return nil, nil, fmt.Errorf("brec: watching %s: %w", filepath.Dir(abs), err)
	}

	s := &Sensor{
		target:  abs,
		ch:      make(chan Wake, 1),
		watcher: watcher,
		done:    make(chan struct{}),
	}

	go s.loop()

	return s, s.ch, nil
}

func (s *Sensor) loop() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != s.target {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			s.emit()
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			// Watcher errors are not surfaced past the Wake channel: a
			// missed notification is recoverable by the consumer's next
			// Processed call re-checking file size.
		}
	}
}

// Processed acknowledges that the consumer has read the storage file up to
// byte offset until. processedLen only ever moves forward. Processed then
// unlocks the sensor and, if the file has already grown past until, emits a
// Wake immediately rather than waiting for the next filesystem event.
func (s *Sensor) Processed(until uint64) {
	raiseMax(&s.processedLen, until)
	s.locked.Store(false)
	s.emit()
}

func (s *Sensor) emit() {
	info, err := os.Stat(s.target)
	if err != nil {
		return
	}

	size := uint64(info.Size())

	if size <= s.processedLen.Load() {
		return
	}

	if !s.locked.CompareAndSwap(false, true) {
		return
	}

	select {
	case s.ch <- Wake{Size: size}:
	default:
		// Channel already holds an unacknowledged Wake; nothing more to
		// do until Processed is called.
	}
}

// Close stops the watcher. It does not close the Wake channel, so a
// consumer blocked on a receive from it will simply never receive again.
func (s *Sensor) Close() error {
	close(s.done)

	return s.watcher.Close()
}

func raiseMax(store *atomic.Uint64, candidate uint64) {
	for {
		current := store.Load()
		if candidate <= current {
			return
		}

		if store.CompareAndSwap(current, candidate) {
			return
		}
	}
}
